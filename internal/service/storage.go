// Package service exposes storage operations addressed by connection id.
// Each call resolves the connection, builds fresh clients and records logs
// and metrics around the core operation.
package service

import (
	"context"
	"time"

	"github.com/arencloud/strata/internal/connection"
	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/logging"
	"github.com/arencloud/strata/internal/metrics"
	"github.com/arencloud/strata/internal/models"
	"github.com/arencloud/strata/internal/progress"
	"github.com/arencloud/strata/internal/s3"
)

type Options struct {
	// TextPreviewMax bounds ReadText; zero means the core default.
	TextPreviewMax int64
	// MaxUploadBytes rejects larger uploads; zero means unlimited.
	MaxUploadBytes int64
	// TransferDir is the only directory UploadFile and DownloadFile may
	// touch; empty disables them.
	TransferDir string
}

type StorageService struct {
	reg     *connection.Registry
	factory s3.ClientFactory
	sink    progress.Sink
	log     logging.Logger
	opts    Options
}

func NewStorageService(reg *connection.Registry, factory s3.ClientFactory, sink progress.Sink, logger logging.Logger, opts Options) *StorageService {
	if sink == nil {
		sink = progress.Discard
	}
	return &StorageService{
		reg:     reg,
		factory: factory,
		sink:    sink,
		log:     logger.With("service", "storage"),
		opts:    opts,
	}
}

func (s *StorageService) run(op string, kv []any, fn func() error) error {
	start := time.Now()
	s.log.Debug(op, kv...)
	err := fn()
	metrics.ObserveOperation(op, start, err)
	if err != nil {
		fields := make([]any, 0, len(kv)+2)
		fields = append(append(fields, kv...), "error", err)
		s.log.Error(op+" failed", fields...)
	}
	return err
}

func (s *StorageService) operator(connID, bucket string) (*s3.Operator, error) {
	conn, err := s.reg.Get(connID)
	if err != nil {
		return nil, err
	}
	return s.factory.Operator(conn, bucket)
}

func (s *StorageService) admin(connID string) (*s3.Admin, error) {
	conn, err := s.reg.Get(connID)
	if err != nil {
		return nil, err
	}
	return s.factory.Admin(conn)
}

// withOperator and withAdmin resolve the client inside run so lookup
// failures are logged and counted like any other.
func (s *StorageService) withOperator(op, connID, bucket string, kv []any, fn func(*s3.Operator) error) error {
	return s.run(op, append([]any{"conn", connID, "bucket", bucket}, kv...), func() error {
		o, err := s.operator(connID, bucket)
		if err != nil {
			return err
		}
		return fn(o)
	})
}

func (s *StorageService) withAdmin(op, connID string, kv []any, fn func(*s3.Admin) error) error {
	return s.run(op, append([]any{"conn", connID}, kv...), func() error {
		a, err := s.admin(connID)
		if err != nil {
			return err
		}
		return fn(a)
	})
}

func (s *StorageService) ListObjects(ctx context.Context, connID, bucket, prefix string, limit int, token string) (models.ListPage, error) {
	var page models.ListPage
	err := s.withOperator("list_objects", connID, bucket, []any{"prefix", prefix}, func(o *s3.Operator) error {
		var err error
		page, err = o.ListPage(ctx, prefix, limit, token)
		return err
	})
	return page, err
}

func (s *StorageService) ListAllObjects(ctx context.Context, connID, bucket, prefix string) (models.ListPage, error) {
	var page models.ListPage
	err := s.withOperator("list_all_objects", connID, bucket, []any{"prefix", prefix}, func(o *s3.Operator) error {
		var err error
		page, err = o.ListAll(ctx, prefix)
		return err
	})
	return page, err
}

func (s *StorageService) ObjectDetails(ctx context.Context, connID, bucket, key string) (models.Entry, error) {
	var e models.Entry
	err := s.withOperator("stat_object", connID, bucket, []any{"key", key}, func(o *s3.Operator) error {
		var err error
		e, err = o.Stat(ctx, key)
		return err
	})
	return e, err
}

// Upload writes data as key and reports progress at the start and the end.
func (s *StorageService) Upload(ctx context.Context, connID, bucket, key string, data []byte) error {
	size := int64(len(data))
	if s.opts.MaxUploadBytes > 0 && size > s.opts.MaxUploadBytes {
		return errs.TooLarge("upload", size, s.opts.MaxUploadBytes)
	}
	return s.withOperator("upload", connID, bucket, []any{"key", key, "size", size}, func(o *s3.Operator) error {
		s.sink.Emit(progress.Event(key, 0, size))
		if err := o.Write(ctx, key, data); err != nil {
			return err
		}
		s.sink.Emit(progress.Event(key, size, size))
		metrics.BytesUploadedTotal.Add(float64(size))
		s.log.Info("object uploaded", "bucket", bucket, "key", key, "size", size)
		return nil
	})
}

func (s *StorageService) Download(ctx context.Context, connID, bucket, key string) ([]byte, error) {
	var data []byte
	err := s.withOperator("download", connID, bucket, []any{"key", key}, func(o *s3.Operator) error {
		var err error
		data, err = o.Read(ctx, key)
		if err == nil {
			metrics.BytesDownloadedTotal.Add(float64(len(data)))
		}
		return err
	})
	return data, err
}

func (s *StorageService) DeleteObject(ctx context.Context, connID, bucket, key string) error {
	return s.withOperator("delete_object", connID, bucket, []any{"key", key}, func(o *s3.Operator) error {
		if err := o.Delete(ctx, key); err != nil {
			return err
		}
		s.log.Info("object deleted", "bucket", bucket, "key", key)
		return nil
	})
}

func (s *StorageService) DeleteObjects(ctx context.Context, connID, bucket string, keys []string) error {
	return s.withOperator("delete_objects", connID, bucket, []any{"count", len(keys)}, func(o *s3.Operator) error {
		if err := o.DeleteMany(ctx, keys); err != nil {
			return err
		}
		s.log.Info("objects deleted", "bucket", bucket, "count", len(keys))
		return nil
	})
}

func (s *StorageService) CreateFolder(ctx context.Context, connID, bucket, path string) error {
	return s.withOperator("create_folder", connID, bucket, []any{"path", path}, func(o *s3.Operator) error {
		if err := o.CreateFolder(ctx, path); err != nil {
			return err
		}
		s.log.Info("folder created", "bucket", bucket, "path", path)
		return nil
	})
}

func (s *StorageService) ReadText(ctx context.Context, connID, bucket, key string) (string, error) {
	var text string
	err := s.withOperator("read_text", connID, bucket, []any{"key", key}, func(o *s3.Operator) error {
		var err error
		text, err = o.ReadText(ctx, key, s.opts.TextPreviewMax)
		return err
	})
	return text, err
}

func (s *StorageService) RenameObject(ctx context.Context, connID, bucket, oldKey, newKey string) error {
	return s.run("rename_object", []any{"conn", connID, "bucket", bucket, "from", oldKey, "to", newKey}, func() error {
		conn, err := s.reg.Get(connID)
		if err != nil {
			return err
		}
		a, err := s.factory.Admin(conn)
		if err != nil {
			return err
		}
		o, err := s.factory.Operator(conn, bucket)
		if err != nil {
			return err
		}
		if err := s3.Rename(ctx, a, o, oldKey, newKey); err != nil {
			return err
		}
		s.log.Info("object renamed", "bucket", bucket, "from", oldKey, "to", newKey)
		return nil
	})
}
