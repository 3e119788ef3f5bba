// Package secrets keeps connection secret keys outside the connection
// records, in the operating system keyring.
package secrets

import (
	"errors"

	"github.com/arencloud/strata/internal/errs"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned by Get when no secret is stored for the id.
var ErrNotFound = errors.New("secret not found")

type Store interface {
	Get(id string) (string, error)
	Set(id, secret string) error
	Delete(id string) error
}

// Keyring stores one secret per connection id under a fixed service name.
type Keyring struct {
	service string
}

func NewKeyring(service string) *Keyring {
	return &Keyring{service: service}
}

func (k *Keyring) Get(id string) (string, error) {
	s, err := keyring.Get(k.service, id)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errs.CredentialStore("read secret for "+id+": "+err.Error(), err)
	}
	return s, nil
}

func (k *Keyring) Set(id, secret string) error {
	if err := keyring.Set(k.service, id, secret); err != nil {
		return errs.CredentialStore("store secret for "+id+": "+err.Error(), err)
	}
	return nil
}

// Delete removes the secret; a missing secret is not an error.
func (k *Keyring) Delete(id string) error {
	err := keyring.Delete(k.service, id)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return errs.CredentialStore("delete secret for "+id+": "+err.Error(), err)
}
