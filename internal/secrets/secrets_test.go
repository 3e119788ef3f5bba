package secrets

import (
	"errors"
	"testing"

	"github.com/arencloud/strata/internal/errs"

	"github.com/zalando/go-keyring"
)

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()
	k := NewKeyring("dev.arencloud.strata.test")

	if _, err := k.Get("c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing secret err=%v", err)
	}
	if err := k.Set("c1", "s3cr3t"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := k.Get("c1")
	if err != nil || got != "s3cr3t" {
		t.Fatalf("Get=%q,%v", got, err)
	}
	if err := k.Delete("c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := k.Delete("c1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := k.Get("c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err=%v", err)
	}
}

func TestKeyringFailureIsCredentialStoreError(t *testing.T) {
	keyring.MockInitWithError(errors.New("keyring locked"))
	t.Cleanup(keyring.MockInit)
	k := NewKeyring("dev.arencloud.strata.test")

	if err := k.Set("c1", "x"); !errs.Is(err, errs.KindCredentialStore) {
		t.Fatalf("Set err=%v", err)
	}
	if _, err := k.Get("c1"); !errs.Is(err, errs.KindCredentialStore) {
		t.Fatalf("Get err=%v", err)
	}
}
