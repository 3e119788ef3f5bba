package s3

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/models"

	minio "github.com/minio/minio-go/v7"
)

const (
	DefaultPageLimit = 500
	MaxPageLimit     = 1000

	tokenPrefix = "v1:"
	// sorts after every other code point, so resuming after prefix+maxRune
	// skips the whole sub-tree of a common prefix
	maxRune = "\U0010FFFF"
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return limit
	}
}

func normalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

func encodeToken(lastKey string) string {
	return tokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(lastKey))
}

// decodeToken turns a continuation token into the key to resume after.
func decodeToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	raw, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok {
		return "", errs.Backendf("invalid continuation token")
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(b) == 0 {
		return "", errs.Backendf("invalid continuation token")
	}
	key := string(b)
	if strings.HasSuffix(key, "/") {
		return key + maxRune, nil
	}
	return key, nil
}

func isDirectory(info minio.ObjectInfo) bool {
	return strings.HasSuffix(info.Key, "/")
}

func toEntry(info minio.ObjectInfo) models.Entry {
	e := models.Entry{
		Key:         info.Key,
		Size:        info.Size,
		IsDirectory: isDirectory(info),
	}
	if !info.LastModified.IsZero() {
		e.LastModified = info.LastModified.Unix()
	}
	if info.ETag != "" {
		etag := info.ETag
		e.ETag = &etag
	}
	if info.ContentType != "" {
		ct := info.ContentType
		e.ContentType = &ct
	}
	return e
}

func newPage() models.ListPage {
	return models.ListPage{Objects: []models.Entry{}, Prefixes: []string{}}
}

func addToPage(page *models.ListPage, info minio.ObjectInfo) {
	if isDirectory(info) {
		page.Prefixes = append(page.Prefixes, info.Key)
		return
	}
	page.Objects = append(page.Objects, toEntry(info))
}

// ListPage returns one page of the delimiter listing under prefix. Objects
// and prefixes count against the same limit. A non-empty token resumes after
// the last entry of the page that produced it.
func (o *Operator) ListPage(ctx context.Context, prefix string, limit int, token string) (models.ListPage, error) {
	prefix = normalizePrefix(prefix)
	limit = clampLimit(limit)
	startAfter, err := decodeToken(token)
	if err != nil {
		return models.ListPage{}, err
	}

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	page := newPage()
	count := 0
	last := ""
	for info := range o.store.List(lctx, prefix, startAfter) {
		if info.Err != nil {
			return models.ListPage{}, normalize(info.Err)
		}
		if prefix != "" && info.Key == prefix {
			continue
		}
		if count >= limit {
			next := encodeToken(last)
			page.ContinuationToken = &next
			page.IsTruncated = true
			return page, nil
		}
		addToPage(&page, info)
		last = info.Key
		count++
	}
	if err := ctx.Err(); err != nil {
		return models.ListPage{}, normalize(err)
	}
	return page, nil
}

// ListAll drains the delimiter listing under prefix.
func (o *Operator) ListAll(ctx context.Context, prefix string) (models.ListPage, error) {
	prefix = normalizePrefix(prefix)
	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	page := newPage()
	for info := range o.store.List(lctx, prefix, "") {
		if info.Err != nil {
			return models.ListPage{}, normalize(info.Err)
		}
		if prefix != "" && info.Key == prefix {
			continue
		}
		addToPage(&page, info)
	}
	if err := ctx.Err(); err != nil {
		return models.ListPage{}, normalize(err)
	}
	return page, nil
}
