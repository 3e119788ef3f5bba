package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/s3/s3test"
)

func TestWriteReadRoundTrip(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("minio"))
	ctx := context.Background()

	if err := op.Write(ctx, "notes/a.txt", []byte("first")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := op.Write(ctx, "notes/a.txt", []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err := op.Read(ctx, "notes/a.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("Read=%q", data)
	}

	if _, err := op.Read(ctx, "missing"); !errs.Is(err, errs.KindBackend) {
		t.Fatalf("read missing err=%v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	ctx := context.Background()
	seed(b, "a")
	if err := op.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := op.Delete(ctx, "a"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, ok := b.Object("data", "a"); ok {
		t.Fatal("object still present")
	}
}

func TestStat(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	b.PutObjectWithMeta("data", "img.png", []byte("12345"), "image/png", nil)

	e, err := op.Stat(context.Background(), "img.png")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if e.Key != "img.png" || e.Size != 5 || e.IsDirectory || e.ContentType == nil || *e.ContentType != "image/png" {
		t.Fatalf("entry=%+v", e)
	}
	if e.LastModified == 0 {
		t.Fatal("last modified not set")
	}
}

func TestCreateFolder(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	ctx := context.Background()
	for _, p := range []string{"photos", "music/"} {
		if err := op.CreateFolder(ctx, p); err != nil {
			t.Fatalf("CreateFolder(%q): %v", p, err)
		}
	}
	for _, k := range []string{"photos/", "music/"} {
		data, ok := b.Object("data", k)
		if !ok || len(data) != 0 {
			t.Fatalf("marker %q ok=%v len=%d", k, ok, len(data))
		}
	}
}

func TestReadText(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("aws"))
	ctx := context.Background()
	b.PutObject("data", "hello.txt", []byte("héllo"))
	b.PutObject("data", "bin", []byte{0xff, 0xfe, 0x00})
	b.PutObject("data", "big.log", make([]byte, 2048))

	s, err := op.ReadText(ctx, "hello.txt", 0)
	if err != nil || s != "héllo" {
		t.Fatalf("ReadText=%q,%v", s, err)
	}

	if _, err := op.ReadText(ctx, "bin", 0); !errs.Is(err, errs.KindEncoding) {
		t.Fatalf("binary err=%v", err)
	}

	gets := b.Calls("Get")
	_, err = op.ReadText(ctx, "big.log", 1024)
	if !errs.Is(err, errs.KindSizeLimitExceeded) {
		t.Fatalf("oversize err=%v", err)
	}
	if b.Calls("Get") != gets {
		t.Fatal("oversize object body was fetched")
	}
	want := "Size limit exceeded: file too large for text preview: 2048 bytes (max: 1024 bytes)"
	if err.Error() != want {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestDeleteManyChunksByProfile(t *testing.T) {
	keys := make([]string, 1500)
	for i := range keys {
		keys[i] = fmt.Sprintf("k/%04d", i)
	}
	cases := []struct {
		profile Profile
		sizes   []int
	}{
		{ProfileFor("cloudflare_r2"), []int{700, 700, 100}},
		{ProfileFor("aws"), []int{1500}},
	}
	for _, c := range cases {
		b := s3test.New()
		op := newTestOperator(b, c.profile)
		seed(b, keys...)
		if err := op.DeleteMany(context.Background(), keys); err != nil {
			t.Fatalf("%s DeleteMany: %v", c.profile.Provider, err)
		}
		batches := b.Batches()
		if len(batches) != len(c.sizes) {
			t.Fatalf("%s batches=%d want %d", c.profile.Provider, len(batches), len(c.sizes))
		}
		for i, bt := range batches {
			if len(bt) != c.sizes[i] {
				t.Fatalf("%s batch %d size=%d want %d", c.profile.Provider, i, len(bt), c.sizes[i])
			}
		}
		if page, _ := op.ListAll(context.Background(), "k"); len(page.Objects) != 0 {
			t.Fatalf("%s left %d objects", c.profile.Provider, len(page.Objects))
		}
	}
}

func TestDeleteManyStopsOnFailure(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("cloudflare_r2"))
	keys := make([]string, 800)
	for i := range keys {
		keys[i] = fmt.Sprintf("k/%04d", i)
	}
	b.RemoveErr = errors.New("AccessDenied")
	err := op.DeleteMany(context.Background(), keys)
	if !errs.Is(err, errs.KindBackend) {
		t.Fatalf("err=%v", err)
	}
	if n := len(b.Batches()); n != 1 {
		t.Fatalf("batches sent=%d want 1", n)
	}
}

func TestDeleteManyEmpty(t *testing.T) {
	b := s3test.New()
	op := newTestOperator(b, ProfileFor("cloudflare_r2"))
	if err := op.DeleteMany(context.Background(), nil); err != nil {
		t.Fatalf("err=%v", err)
	}
	if b.Calls("RemoveBatch") != 0 {
		t.Fatal("empty key list should send nothing")
	}
}
