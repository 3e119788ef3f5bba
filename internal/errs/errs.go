// Package errs defines the error taxonomy shared by every strata package.
//
// Backend failures from either storage client are normalized into an *Error
// before they leave the core; supporting packages (config, secrets, db) use the
// same kinds so the dispatch boundary can map them without string matching.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindConnectionNotFound
	KindBackend
	KindConfig
	KindCredentialStore
	KindSerialization
	KindIO
	KindSizeLimitExceeded
	KindEncoding
	KindValidation
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindConnectionNotFound: "connection_not_found",
	KindBackend:            "backend",
	KindConfig:             "config",
	KindCredentialStore:    "credential_store",
	KindSerialization:      "serialization",
	KindIO:                 "io",
	KindSizeLimitExceeded:  "size_limit_exceeded",
	KindEncoding:           "encoding",
	KindValidation:         "validation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// prefixes mirror the user-facing wording clients already rely on.
var kindPrefixes = map[Kind]string{
	KindConnectionNotFound: "Connection not found",
	KindBackend:            "S3 operation failed",
	KindConfig:             "Configuration error",
	KindCredentialStore:    "Keyring error",
	KindSerialization:      "Serialization error",
	KindIO:                 "IO error",
	KindSizeLimitExceeded:  "Size limit exceeded",
	KindEncoding:           "Encoding error",
	KindValidation:         "Invalid request",
}

// Error is a classified failure. Message is kept verbatim from its source.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	p := kindPrefixes[e.Kind]
	if p == "" {
		return e.Message
	}
	return p + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, errs.Backend(""))
// style checks work without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newErr(k Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), Err: err}
}

func ConnectionNotFound(id string) *Error {
	return &Error{Kind: KindConnectionNotFound, Message: id}
}

// Backend wraps a storage-client failure; msg is the backend's own description.
func Backend(msg string, cause error) *Error {
	return &Error{Kind: KindBackend, Message: msg, Err: cause}
}

func Backendf(format string, args ...any) *Error {
	return newErr(KindBackend, nil, format, args...)
}

func Config(msg string, cause error) *Error {
	return &Error{Kind: KindConfig, Message: msg, Err: cause}
}

func CredentialStore(msg string, cause error) *Error {
	return &Error{Kind: KindCredentialStore, Message: msg, Err: cause}
}

func Serialization(cause error) *Error {
	return &Error{Kind: KindSerialization, Message: cause.Error(), Err: cause}
}

func IO(cause error) *Error {
	return &Error{Kind: KindIO, Message: cause.Error(), Err: cause}
}

func SizeLimitExceeded(size, max int64) *Error {
	return newErr(KindSizeLimitExceeded, nil, "file too large for text preview: %d bytes (max: %d bytes)", size, max)
}

// TooLarge reports a payload over a configured limit other than the text
// preview one.
func TooLarge(what string, size, max int64) *Error {
	return newErr(KindSizeLimitExceeded, nil, "%s too large: %d bytes (max: %d bytes)", what, size, max)
}

func Encoding(cause error) *Error {
	return &Error{Kind: KindEncoding, Message: "not a valid UTF-8 text file", Err: cause}
}

func Validation(msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
