package s3

import (
	"context"

	"github.com/arencloud/strata/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (a *Admin) ListBuckets(ctx context.Context) ([]models.BucketInfo, error) {
	out, err := a.api.ListBuckets(ctx, &awss3.ListBucketsInput{})
	if err != nil {
		return nil, normalize(err)
	}
	buckets := make([]models.BucketInfo, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		info := models.BucketInfo{
			Name:   aws.ToString(b.Name),
			Region: strPtr(aws.ToString(b.BucketRegion)),
		}
		if b.CreationDate != nil {
			ts := b.CreationDate.Unix()
			info.CreatedAt = &ts
		}
		buckets = append(buckets, info)
	}
	return buckets, nil
}

// CreateBucket creates name in region, or in the connection's region when
// region is empty. The default region is sent without a location constraint.
func (a *Admin) CreateBucket(ctx context.Context, name, region string) error {
	if region == "" {
		region = a.region
	}
	in := &awss3.CreateBucketInput{Bucket: aws.String(name)}
	if c := LocationConstraint(region); c != "" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c),
		}
	}
	_, err := a.api.CreateBucket(ctx, in)
	return normalize(err)
}

func (a *Admin) DeleteBucket(ctx context.Context, name string) error {
	_, err := a.api.DeleteBucket(ctx, &awss3.DeleteBucketInput{Bucket: aws.String(name)})
	return normalize(err)
}

// BucketExists reports false, without error, for a not-found answer.
func (a *Admin) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := a.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(name)})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, normalize(err)
}

func (a *Admin) BucketLocation(ctx context.Context, name string) (*string, error) {
	out, err := a.api.GetBucketLocation(ctx, &awss3.GetBucketLocationInput{Bucket: aws.String(name)})
	if err != nil {
		return nil, normalize(err)
	}
	return strPtr(string(out.LocationConstraint)), nil
}

func (a *Admin) BucketVersioning(ctx context.Context, name string) (*string, error) {
	out, err := a.api.GetBucketVersioning(ctx, &awss3.GetBucketVersioningInput{Bucket: aws.String(name)})
	if err != nil {
		return nil, normalize(err)
	}
	return strPtr(string(out.Status)), nil
}

// BucketStats walks every page of the bucket. A failing page discards the
// partial sums.
func (a *Admin) BucketStats(ctx context.Context, name string) (models.BucketStats, error) {
	stats := models.BucketStats{Name: name}
	var token *string
	for {
		out, err := a.api.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(name),
			ContinuationToken: token,
		})
		if err != nil {
			return models.BucketStats{}, normalize(err)
		}
		for _, obj := range out.Contents {
			stats.ObjectCount++
			stats.TotalSize += aws.ToInt64(obj.Size)
		}
		if !aws.ToBool(out.IsTruncated) || aws.ToString(out.NextContinuationToken) == "" {
			return stats, nil
		}
		token = out.NextContinuationToken
	}
}

func (a *Admin) ObjectMetadata(ctx context.Context, bucket, key string) (models.ObjectMetadata, error) {
	out, err := a.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return models.ObjectMetadata{}, normalize(err)
	}
	md := models.ObjectMetadata{
		Key:                key,
		Size:               aws.ToInt64(out.ContentLength),
		ETag:               out.ETag,
		ContentType:        out.ContentType,
		ContentEncoding:    out.ContentEncoding,
		ContentDisposition: out.ContentDisposition,
		ContentLanguage:    out.ContentLanguage,
		CacheControl:       out.CacheControl,
		StorageClass:       strPtr(string(out.StorageClass)),
		VersionID:          out.VersionId,
		CustomMetadata:     map[string]string{},
	}
	if out.LastModified != nil {
		ts := out.LastModified.Unix()
		md.LastModified = &ts
	}
	for k, v := range out.Metadata {
		md.CustomMetadata[k] = v
	}
	return md, nil
}
