package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/models"
)

// DefaultTextPreviewMax bounds ReadText when the caller passes no limit.
const DefaultTextPreviewMax int64 = 1 << 20

// Write replaces key with data in a single request.
func (o *Operator) Write(ctx context.Context, key string, data []byte) error {
	return normalize(o.store.Put(ctx, key, bytes.NewReader(data), int64(len(data))))
}

// Read returns the whole object.
func (o *Operator) Read(ctx context.Context, key string) ([]byte, error) {
	rc, err := o.store.Get(ctx, key)
	if err != nil {
		return nil, normalize(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, normalize(err)
	}
	return data, nil
}

// Delete removes key. Missing keys are not an error.
func (o *Operator) Delete(ctx context.Context, key string) error {
	return normalize(o.store.Remove(ctx, key))
}

// DeleteMany removes keys in sequential batches no larger than the
// provider's batch cap. The first failing batch stops the run; earlier
// batches stay deleted.
func (o *Operator) DeleteMany(ctx context.Context, keys []string) error {
	size := o.profile.BatchDeleteMax
	if size <= 0 {
		size = len(keys)
	}
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		if err := o.store.RemoveBatch(ctx, keys[start:end]); err != nil {
			return normalize(err)
		}
	}
	return nil
}

func (o *Operator) Stat(ctx context.Context, key string) (models.Entry, error) {
	info, err := o.store.Stat(ctx, key)
	if err != nil {
		return models.Entry{}, normalize(err)
	}
	info.Key = key
	return toEntry(info), nil
}

// CreateFolder writes an empty marker object; path gets a trailing slash.
func (o *Operator) CreateFolder(ctx context.Context, path string) error {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return o.Write(ctx, path, nil)
}

// ReadText returns the object as UTF-8 text. Objects larger than max are
// rejected from their metadata alone.
func (o *Operator) ReadText(ctx context.Context, key string, max int64) (string, error) {
	if max <= 0 {
		max = DefaultTextPreviewMax
	}
	info, err := o.store.Stat(ctx, key)
	if err != nil {
		return "", normalize(err)
	}
	if info.Size > max {
		return "", errs.SizeLimitExceeded(info.Size, max)
	}
	data, err := o.Read(ctx, key)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errs.Encoding(nil)
	}
	return string(data), nil
}
