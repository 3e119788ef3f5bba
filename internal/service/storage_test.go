package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/arencloud/strata/internal/connection"
	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/logging"
	"github.com/arencloud/strata/internal/models"
	"github.com/arencloud/strata/internal/progress"
	"github.com/arencloud/strata/internal/s3"
	"github.com/arencloud/strata/internal/s3/s3test"
)

type fakeFactory struct{ b *s3test.Backend }

func (f fakeFactory) Operator(conn models.ConnectionWithSecret, bucket string) (*s3.Operator, error) {
	return s3.NewOperatorWithStore(bucket, s3.ProfileFor(conn.Provider), f.b.Store(bucket)), nil
}

func (f fakeFactory) Admin(conn models.ConnectionWithSecret) (*s3.Admin, error) {
	return s3.NewAdminWithClient(f.b.Admin(), nil, conn.Region), nil
}

type recorder struct{ events []models.Progress }

func (r *recorder) Emit(p models.Progress) { r.events = append(r.events, p) }

func newService(t *testing.T, opts Options) (*StorageService, *s3test.Backend, *recorder) {
	t.Helper()
	reg := connection.NewRegistry()
	reg.Put(models.ConnectionWithSecret{
		Connection: models.Connection{ID: "c1", Name: "local", Provider: models.ProviderMinio, Endpoint: "http://localhost:9000", Region: "eu-west-1", UsePathStyle: true},
		SecretKey:  "secret",
	})
	b := s3test.New()
	rec := &recorder{}
	return NewStorageService(reg, fakeFactory{b: b}, rec, logging.New("test", "error", true), opts), b, rec
}

func TestUploadReportsProgress(t *testing.T) {
	svc, b, rec := newService(t, Options{})
	ctx := context.Background()
	if err := svc.Upload(ctx, "c1", "data", "a.bin", []byte("12345678")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("events=%+v", rec.events)
	}
	if rec.events[0].Percent != 0 || rec.events[1].Percent != 100 || rec.events[1].BytesDone != 8 {
		t.Fatalf("events=%+v", rec.events)
	}
	if data, ok := b.Object("data", "a.bin"); !ok || string(data) != "12345678" {
		t.Fatalf("stored=%q ok=%v", data, ok)
	}
	got, err := svc.Download(ctx, "c1", "data", "a.bin")
	if err != nil || string(got) != "12345678" {
		t.Fatalf("Download=%q,%v", got, err)
	}
}

func TestUploadLimit(t *testing.T) {
	svc, _, rec := newService(t, Options{MaxUploadBytes: 4})
	err := svc.Upload(context.Background(), "c1", "data", "big", []byte("12345"))
	if !errs.Is(err, errs.KindSizeLimitExceeded) {
		t.Fatalf("err=%v", err)
	}
	if len(rec.events) != 0 {
		t.Fatal("progress emitted for rejected upload")
	}
}

func TestUnknownConnection(t *testing.T) {
	svc, _, _ := newService(t, Options{})
	ctx := context.Background()
	if _, err := svc.ListBuckets(ctx, "nope"); !errs.Is(err, errs.KindConnectionNotFound) {
		t.Fatalf("ListBuckets err=%v", err)
	}
	if _, err := svc.ListObjects(ctx, "nope", "b", "", 0, ""); !errs.Is(err, errs.KindConnectionNotFound) {
		t.Fatalf("ListObjects err=%v", err)
	}
	if err := svc.RenameObject(ctx, "nope", "b", "a", "b"); !errs.Is(err, errs.KindConnectionNotFound) {
		t.Fatalf("Rename err=%v", err)
	}
}

func TestObjectWorkflow(t *testing.T) {
	svc, b, _ := newService(t, Options{TextPreviewMax: 16})
	ctx := context.Background()

	if err := svc.CreateFolder(ctx, "c1", "data", "docs"); err != nil {
		t.Fatal(err)
	}
	b.PutObject("data", "docs/readme.md", []byte("# hi"))
	b.PutObject("data", "docs/huge.log", []byte(strings.Repeat("x", 32)))

	page, err := svc.ListObjects(ctx, "c1", "data", "docs", 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Objects) != 2 || len(page.Prefixes) != 0 {
		t.Fatalf("page=%+v", page)
	}

	text, err := svc.ReadText(ctx, "c1", "data", "docs/readme.md")
	if err != nil || text != "# hi" {
		t.Fatalf("ReadText=%q,%v", text, err)
	}
	if _, err := svc.ReadText(ctx, "c1", "data", "docs/huge.log"); !errs.Is(err, errs.KindSizeLimitExceeded) {
		t.Fatalf("preview limit err=%v", err)
	}

	if err := svc.RenameObject(ctx, "c1", "data", "docs/readme.md", "docs/README.md"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := svc.ObjectDetails(ctx, "c1", "data", "docs/README.md"); err != nil {
		t.Fatalf("details after rename: %v", err)
	}
	md, err := svc.ObjectMetadata(ctx, "c1", "data", "docs/README.md")
	if err != nil || md.Size != 4 {
		t.Fatalf("metadata=%+v,%v", md, err)
	}

	if err := svc.CopyObject(ctx, "c1", "data", "docs/README.md", "data", "docs/copy.md"); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteObjects(ctx, "c1", "data", []string{"docs/README.md", "docs/copy.md"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteObject(ctx, "c1", "data", "docs/huge.log"); err != nil {
		t.Fatal(err)
	}
	all, err := svc.ListAllObjects(ctx, "c1", "data", "docs/")
	if err != nil || len(all.Objects) != 0 {
		t.Fatalf("after deletes=%+v,%v", all, err)
	}
}

func TestBucketWorkflow(t *testing.T) {
	svc, b, _ := newService(t, Options{})
	ctx := context.Background()

	if err := svc.CreateBucket(ctx, "c1", "photos", ""); err != nil {
		t.Fatal(err)
	}
	reqs := b.CreateRequests()
	if len(reqs) != 1 || reqs[0].CreateBucketConfiguration == nil || string(reqs[0].CreateBucketConfiguration.LocationConstraint) != "eu-west-1" {
		t.Fatal("connection region not used for bucket creation")
	}
	ok, err := svc.BucketExists(ctx, "c1", "photos")
	if err != nil || !ok {
		t.Fatalf("exists=%v,%v", ok, err)
	}
	loc, err := svc.BucketLocation(ctx, "c1", "photos")
	if err != nil || loc == nil || *loc != "eu-west-1" {
		t.Fatalf("location=%v,%v", loc, err)
	}
	if v, err := svc.BucketVersioning(ctx, "c1", "photos"); err != nil || v != nil {
		t.Fatalf("versioning=%v,%v", v, err)
	}
	b.PutObject("photos", "a.jpg", []byte("abc"))
	stats, err := svc.BucketStats(ctx, "c1", "photos")
	if err != nil || stats.ObjectCount != 1 || stats.TotalSize != 3 {
		t.Fatalf("stats=%+v,%v", stats, err)
	}
	buckets, err := svc.ListBuckets(ctx, "c1")
	if err != nil || len(buckets) != 1 || buckets[0].Name != "photos" {
		t.Fatalf("buckets=%+v,%v", buckets, err)
	}
	if err := svc.DeleteBucket(ctx, "c1", "photos"); !errs.Is(err, errs.KindBackend) {
		t.Fatalf("delete non-empty err=%v", err)
	}
}

func TestPresignThroughFactory(t *testing.T) {
	reg := connection.NewRegistry()
	reg.Put(models.ConnectionWithSecret{
		Connection: models.Connection{ID: "c1", Provider: models.ProviderMinio, Endpoint: "http://localhost:9000", AccessKey: "AK", UsePathStyle: true},
		SecretKey:  "SK",
	})
	svc := NewStorageService(reg, s3.Factory{}, progress.Discard, logging.New("test", "error", true), Options{})
	u, err := svc.PresignedURL(context.Background(), "c1", "b", "k.txt", 5*time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(u, "http://localhost:9000/b/k.txt?") || !strings.Contains(u, "X-Amz-Expires=300") {
		t.Fatalf("url=%s", u)
	}
}
