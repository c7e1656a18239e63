package usecase

import (
	"errors"
	"time"

	"marketplace-api/pkg/utils"

	"github.com/samber/oops"
)

var (
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountLocked         = errors.New("account temporarily locked due to too many failed login attempts")
	ErrInvalidOrExpiredToken = errors.New("token is invalid or has expired")
	ErrInvalidSession        = errors.New("session is invalid or has expired")
	ErrStoreUnavailable      = errors.New("record store unavailable")
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("resource not found")
	ErrForbidden             = errors.New("not allowed to modify this resource")
	ErrUploadsDisabled       = errors.New("image uploads are not configured")
)

// ValidationError carries per-field messages. errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + utils.FormatValidationErrors(e.Fields)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationErr(fields map[string]string) error {
	return oops.Code("VALIDATION_FAILED").Wrap(&ValidationError{Fields: fields})
}

func fieldErr(field, msg string) error {
	return validationErr(map[string]string{field: msg})
}

// storeErr wraps a driver failure. The cause stays reachable for logs, the
// caller only learns the store is unavailable.
func storeErr(op string, err error) error {
	return oops.Code("STORE_UNAVAILABLE").
		With("operation", op).
		Wrap(errors.Join(ErrStoreUnavailable, err))
}

func lockedErr(until *time.Time) error {
	b := oops.Code("AUTH_ACCOUNT_LOCKED")
	if until != nil {
		b = b.With("locked_until", until.UTC().Format(time.RFC3339))
	}
	return b.Wrap(ErrAccountLocked)
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}

func invalidToken() error {
	return oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrInvalidOrExpiredToken)
}

func invalidSession() error {
	return oops.Code("AUTH_INVALID_SESSION").Wrap(ErrInvalidSession)
}

func duplicateEmail() error {
	return oops.Code("AUTH_DUPLICATE_EMAIL").Wrap(ErrDuplicateEmail)
}

// LockedUntil extracts the lock expiry attached to an AccountLocked error.
func LockedUntil(err error) (time.Time, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return time.Time{}, false
	}
	raw, ok := oopsErr.Context()["locked_until"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, err == nil
}
