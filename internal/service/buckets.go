package service

import (
	"context"
	"time"

	"github.com/arencloud/strata/internal/models"
	"github.com/arencloud/strata/internal/s3"
)

func (s *StorageService) ListBuckets(ctx context.Context, connID string) ([]models.BucketInfo, error) {
	var out []models.BucketInfo
	err := s.withAdmin("list_buckets", connID, nil, func(a *s3.Admin) error {
		var err error
		out, err = a.ListBuckets(ctx)
		return err
	})
	return out, err
}

// CreateBucket uses the connection's region when region is empty.
func (s *StorageService) CreateBucket(ctx context.Context, connID, name, region string) error {
	return s.withAdmin("create_bucket", connID, []any{"bucket", name, "region", region}, func(a *s3.Admin) error {
		if err := a.CreateBucket(ctx, name, region); err != nil {
			return err
		}
		s.log.Info("bucket created", "bucket", name)
		return nil
	})
}

func (s *StorageService) DeleteBucket(ctx context.Context, connID, name string) error {
	return s.withAdmin("delete_bucket", connID, []any{"bucket", name}, func(a *s3.Admin) error {
		if err := a.DeleteBucket(ctx, name); err != nil {
			return err
		}
		s.log.Info("bucket deleted", "bucket", name)
		return nil
	})
}

func (s *StorageService) BucketExists(ctx context.Context, connID, name string) (bool, error) {
	var ok bool
	err := s.withAdmin("head_bucket", connID, []any{"bucket", name}, func(a *s3.Admin) error {
		var err error
		ok, err = a.BucketExists(ctx, name)
		return err
	})
	return ok, err
}

func (s *StorageService) BucketLocation(ctx context.Context, connID, name string) (*string, error) {
	var loc *string
	err := s.withAdmin("bucket_location", connID, []any{"bucket", name}, func(a *s3.Admin) error {
		var err error
		loc, err = a.BucketLocation(ctx, name)
		return err
	})
	return loc, err
}

func (s *StorageService) BucketVersioning(ctx context.Context, connID, name string) (*string, error) {
	var status *string
	err := s.withAdmin("bucket_versioning", connID, []any{"bucket", name}, func(a *s3.Admin) error {
		var err error
		status, err = a.BucketVersioning(ctx, name)
		return err
	})
	return status, err
}

func (s *StorageService) BucketStats(ctx context.Context, connID, name string) (models.BucketStats, error) {
	var stats models.BucketStats
	err := s.withAdmin("bucket_stats", connID, []any{"bucket", name}, func(a *s3.Admin) error {
		var err error
		stats, err = a.BucketStats(ctx, name)
		return err
	})
	return stats, err
}

func (s *StorageService) ObjectMetadata(ctx context.Context, connID, bucket, key string) (models.ObjectMetadata, error) {
	var md models.ObjectMetadata
	err := s.withAdmin("head_object", connID, []any{"bucket", bucket, "key", key}, func(a *s3.Admin) error {
		var err error
		md, err = a.ObjectMetadata(ctx, bucket, key)
		return err
	})
	return md, err
}

func (s *StorageService) CopyObject(ctx context.Context, connID, srcBucket, srcKey, dstBucket, dstKey string) error {
	kv := []any{"srcBucket", srcBucket, "srcKey", srcKey, "dstBucket", dstBucket, "dstKey", dstKey}
	return s.withAdmin("copy_object", connID, kv, func(a *s3.Admin) error {
		if err := a.Copy(ctx, srcBucket, srcKey, dstBucket, dstKey); err != nil {
			return err
		}
		s.log.Info("object copied", kv...)
		return nil
	})
}

func (s *StorageService) PresignedURL(ctx context.Context, connID, bucket, key string, expires time.Duration) (string, error) {
	var url string
	err := s.withAdmin("presign", connID, []any{"bucket", bucket, "key", key}, func(a *s3.Admin) error {
		var err error
		url, err = a.PresignedURL(ctx, bucket, key, expires)
		return err
	})
	return url, err
}
