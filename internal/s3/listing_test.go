package s3

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/s3/s3test"

	minio "github.com/minio/minio-go/v7"
)

func newTestOperator(b *s3test.Backend, profile Profile) *Operator {
	b.AddBucket("data")
	return NewOperatorWithStore("data", profile, b.Store("data"))
}

func seed(b *s3test.Backend, keys ...string) {
	for _, k := range keys {
		b.PutObject("data", k, []byte("x"))
	}
}

func TestListPageClassifiesAndSkipsOwnMarker(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	seed(b, "docs/", "docs/a.txt", "docs/b.txt", "docs/sub/c.txt", "docs/sub/d.txt", "other.txt")

	page, err := op.ListPage(context.Background(), "docs", 0, "")
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page.Objects) != 2 || page.Objects[0].Key != "docs/a.txt" || page.Objects[1].Key != "docs/b.txt" {
		t.Fatalf("objects=%+v", page.Objects)
	}
	if !reflect.DeepEqual(page.Prefixes, []string{"docs/sub/"}) {
		t.Fatalf("prefixes=%v", page.Prefixes)
	}
	if page.IsTruncated || page.ContinuationToken != nil {
		t.Fatalf("unexpected truncation: %+v", page)
	}
}

func TestListPageRoot(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	seed(b, "a.txt", "dir/x", "dir/y")

	page, err := op.ListPage(context.Background(), "", 10, "")
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page.Objects) != 1 || page.Objects[0].Key != "a.txt" {
		t.Fatalf("objects=%+v", page.Objects)
	}
	if !reflect.DeepEqual(page.Prefixes, []string{"dir/"}) {
		t.Fatalf("prefixes=%v", page.Prefixes)
	}
}

func TestListPageEmpty(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	page, err := op.ListPage(context.Background(), "nothing/", 10, "")
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if page.Objects == nil || page.Prefixes == nil {
		t.Fatal("empty page should carry empty slices")
	}
	if len(page.Objects)+len(page.Prefixes) != 0 || page.IsTruncated {
		t.Fatalf("page=%+v", page)
	}
}

func TestListPageExactLimitIsNotTruncated(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	seed(b, "p/1", "p/2", "p/3")

	page, err := op.ListPage(context.Background(), "p/", 3, "")
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if page.IsTruncated || page.ContinuationToken != nil || len(page.Objects) != 3 {
		t.Fatalf("page=%+v", page)
	}
}

func TestListPageResumeCoversEverythingOnce(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	for i := 0; i < 7; i++ {
		seed(b, fmt.Sprintf("p/obj-%02d", i))
	}
	seed(b, "p/dir-a/1", "p/dir-a/2", "p/dir-b/1", "p/zdir/1")

	ctx := context.Background()
	all, err := op.ListAll(ctx, "p")
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}

	var objects []string
	var prefixes []string
	token := ""
	pages := 0
	for {
		page, err := op.ListPage(ctx, "p", 2, token)
		if err != nil {
			t.Fatalf("ListPage: %v", err)
		}
		pages++
		if n := len(page.Objects) + len(page.Prefixes); n > 2 {
			t.Fatalf("page holds %d entries, limit 2", n)
		}
		if page.IsTruncated != (page.ContinuationToken != nil) {
			t.Fatalf("truncation flag and token disagree: %+v", page)
		}
		for _, o := range page.Objects {
			objects = append(objects, o.Key)
		}
		prefixes = append(prefixes, page.Prefixes...)
		if !page.IsTruncated {
			break
		}
		token = *page.ContinuationToken
	}
	if pages != 5 {
		t.Fatalf("pages=%d want 5", pages)
	}
	var allObjects []string
	for _, o := range all.Objects {
		allObjects = append(allObjects, o.Key)
	}
	if !reflect.DeepEqual(objects, allObjects) {
		t.Fatalf("paged objects %v\nall objects %v", objects, allObjects)
	}
	if !reflect.DeepEqual(prefixes, all.Prefixes) {
		t.Fatalf("paged prefixes %v\nall prefixes %v", prefixes, all.Prefixes)
	}
	if len(allObjects) != 7 || len(all.Prefixes) != 3 {
		t.Fatalf("ListAll objects=%d prefixes=%d", len(allObjects), len(all.Prefixes))
	}
}

func TestListPageLimitClamping(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	for i := 0; i < 1200; i++ {
		seed(b, fmt.Sprintf("k/%05d", i))
	}
	ctx := context.Background()

	cases := []struct {
		limit int
		want  int
	}{
		{0, DefaultPageLimit},
		{-3, DefaultPageLimit},
		{5000, MaxPageLimit},
		{1, 1},
	}
	for _, c := range cases {
		page, err := op.ListPage(ctx, "k", c.limit, "")
		if err != nil {
			t.Fatalf("limit %d: %v", c.limit, err)
		}
		if len(page.Objects) != c.want || !page.IsTruncated {
			t.Fatalf("limit %d: got %d truncated=%v", c.limit, len(page.Objects), page.IsTruncated)
		}
	}
}

func TestListPageInvalidToken(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	for _, tok := range []string{"offset:10", "v1:!!!", "v1:"} {
		_, err := op.ListPage(context.Background(), "", 10, tok)
		if !errs.Is(err, errs.KindBackend) {
			t.Fatalf("token %q: err=%v", tok, err)
		}
	}
}

func TestListPageBackendFailure(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	seed(b, "a")
	b.ListErr = errors.New("connection reset by peer")

	if _, err := op.ListPage(context.Background(), "", 10, ""); !errs.Is(err, errs.KindBackend) {
		t.Fatalf("ListPage err=%v", err)
	}
	if _, err := op.ListAll(context.Background(), ""); !errs.Is(err, errs.KindBackend) {
		t.Fatalf("ListAll err=%v", err)
	}
}

func TestListPageCanceledContext(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	seed(b, "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := op.ListPage(ctx, "", 10, ""); !errs.Is(err, errs.KindBackend) {
		t.Fatalf("err=%v", err)
	}
}

func TestToEntry(t *testing.T) {
	e := toEntry(minio.ObjectInfo{Key: "a.txt", Size: 4})
	if e.LastModified != 0 || e.ETag != nil || e.ContentType != nil || e.IsDirectory {
		t.Fatalf("entry=%+v", e)
	}
	ts := time.Unix(1700000000, 0)
	e = toEntry(minio.ObjectInfo{Key: "d/", LastModified: ts, ETag: "abc", ContentType: "text/plain"})
	if e.LastModified != 1700000000 || *e.ETag != "abc" || *e.ContentType != "text/plain" || !e.IsDirectory {
		t.Fatalf("entry=%+v", e)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	for _, key := range []string{"a.txt", "dir/", "ünïcode/ключ"} {
		got, err := decodeToken(encodeToken(key))
		if err != nil {
			t.Fatalf("decode %q: %v", key, err)
		}
		want := key
		if key == "dir/" {
			want = "dir/" + maxRune
		}
		if got != want {
			t.Fatalf("decode(encode(%q))=%q", key, got)
		}
	}
}
