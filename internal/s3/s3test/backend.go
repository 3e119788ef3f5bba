// Package s3test provides an in-memory S3 backend for tests. One Backend
// serves both the object store and the admin API, so objects written through
// one are visible through the other.
package s3test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	minio "github.com/minio/minio-go/v7"
)

type object struct {
	data        []byte
	contentType string
	modified    time.Time
	metadata    map[string]string
}

type bucket struct {
	created    time.Time
	region     string
	versioning string
	objects    map[string]object
}

// Backend is safe for concurrent use. The exported error fields inject
// failures into the matching calls.
type Backend struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	calls   map[string]int
	batches [][]string
	creates []*awss3.CreateBucketInput

	// PageSize caps ListObjectsV2 pages; zero means 1000.
	PageSize int

	ListErr       error
	GetErr        error
	RemoveErr     error
	HeadBucketErr error
	StatsErrPage  int // 1-based page of ListObjectsV2 that fails with StatsErr
	StatsErr      error
}

func New() *Backend {
	return &Backend{buckets: map[string]*bucket{}, calls: map[string]int{}}
}

func notFound(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "Not Found"}
}

func (b *Backend) count(op string) {
	b.calls[op]++
}

// Calls returns how often op was invoked.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Batches returns the key batches passed to RemoveBatch, in order.
func (b *Backend) Batches() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.batches...)
}

// CreateRequests returns every CreateBucket input received.
func (b *Backend) CreateRequests() []*awss3.CreateBucketInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*awss3.CreateBucketInput(nil), b.creates...)
}

func (b *Backend) bucketLocked(name string) *bucket {
	bk, ok := b.buckets[name]
	if !ok {
		bk = &bucket{created: time.Now(), objects: map[string]object{}}
		b.buckets[name] = bk
	}
	return bk
}

// AddBucket creates an empty bucket.
func (b *Backend) AddBucket(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bucketLocked(name)
}

// SetVersioning sets the status returned by GetBucketVersioning.
func (b *Backend) SetVersioning(name, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bucketLocked(name).versioning = status
}

// PutObject seeds an object.
func (b *Backend) PutObject(bucketName, key string, data []byte) {
	b.PutObjectWithMeta(bucketName, key, data, "", nil)
}

func (b *Backend) PutObjectWithMeta(bucketName, key string, data []byte, contentType string, meta map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bucketLocked(bucketName).objects[key] = object{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		modified:    time.Now(),
		metadata:    meta,
	}
}

// Object returns a copy of the stored bytes.
func (b *Backend) Object(bucketName, key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.buckets[bucketName]
	if !ok {
		return nil, false
	}
	obj, ok := bk.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

func (b *Backend) sortedKeys(bucketName string) []string {
	bk, ok := b.buckets[bucketName]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(bk.objects))
	for k := range bk.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store returns an object store bound to bucketName.
func (b *Backend) Store(bucketName string) *Store {
	return &Store{b: b, bucket: bucketName}
}

// Admin returns the admin API view of the backend.
func (b *Backend) Admin() *Admin {
	return &Admin{b: b}
}

type Store struct {
	b      *Backend
	bucket string
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.count("Put")
	s.b.bucketLocked(s.bucket).objects[key] = object{data: data, modified: time.Now()}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.count("Get")
	if s.b.GetErr != nil {
		return nil, s.b.GetErr
	}
	obj, ok := s.b.bucketLocked(s.bucket).objects[key]
	if !ok {
		return nil, minio.ErrorResponse{StatusCode: 404, Code: "NoSuchKey", Message: "The specified key does not exist."}
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), obj.data...))), nil
}

func (s *Store) Stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.count("Stat")
	obj, ok := s.b.bucketLocked(s.bucket).objects[key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{StatusCode: 404, Code: "NoSuchKey", Message: "The specified key does not exist."}
	}
	return minio.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		LastModified: obj.modified,
		ContentType:  obj.contentType,
		ETag:         "etag-" + key,
	}, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.count("Remove")
	if s.b.RemoveErr != nil {
		return s.b.RemoveErr
	}
	delete(s.b.bucketLocked(s.bucket).objects, key)
	return nil
}

func (s *Store) RemoveBatch(ctx context.Context, keys []string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.count("RemoveBatch")
	s.b.batches = append(s.b.batches, append([]string(nil), keys...))
	if s.b.RemoveErr != nil {
		return s.b.RemoveErr
	}
	bk := s.b.bucketLocked(s.bucket)
	for _, k := range keys {
		delete(bk.objects, k)
	}
	return nil
}

// List emulates a delimiter listing: keys below a further "/" roll up into
// one common prefix entry.
func (s *Store) List(ctx context.Context, prefix, startAfter string) <-chan minio.ObjectInfo {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.count("List")
	if s.b.ListErr != nil {
		ch := make(chan minio.ObjectInfo, 1)
		ch <- minio.ObjectInfo{Err: s.b.ListErr}
		close(ch)
		return ch
	}
	bk := s.b.bucketLocked(s.bucket)
	var out []minio.ObjectInfo
	lastPrefix := ""
	for _, key := range s.b.sortedKeys(s.bucket) {
		if !strings.HasPrefix(key, prefix) || (startAfter != "" && key <= startAfter) {
			continue
		}
		rest := key[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			cp := prefix + rest[:i+1]
			if cp != lastPrefix {
				out = append(out, minio.ObjectInfo{Key: cp})
				lastPrefix = cp
			}
			continue
		}
		obj := bk.objects[key]
		out = append(out, minio.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
			ContentType:  obj.contentType,
			ETag:         "etag-" + key,
		})
	}
	ch := make(chan minio.ObjectInfo, len(out))
	for _, o := range out {
		ch <- o
	}
	close(ch)
	return ch
}
