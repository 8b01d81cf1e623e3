package chat

import (
	"errors"
	"strings"
)

// Domain errors. Each carries a stable code so it survives the trip
// through the service container, where only strings travel.
var (
	ErrMissingName   = errors.New("missing_name")
	ErrAlreadyMember = errors.New("already_member")
	ErrRoomNotFound  = errors.New("room_not_found")
	ErrForbidden     = errors.New("forbidden")
	ErrNotMember     = errors.New("not_member")
	ErrStoreFailure  = errors.New("store_failure")
)

var knownErrors = []error{
	ErrMissingName,
	ErrAlreadyMember,
	ErrRoomNotFound,
	ErrForbidden,
	ErrNotMember,
	ErrStoreFailure,
}

// Code returns the wire code of err, or "" for nil.
// Unknown errors are reported as store failures.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrStoreFailure.Error()
}

// FromCode maps a wire code back to its sentinel error.
// The empty code maps to nil.
func FromCode(code string) error {
	if code == "" {
		return nil
	}
	for _, known := range knownErrors {
		if known.Error() == code {
			return known
		}
	}
	return ErrStoreFailure
}

// NormalizeName trims surrounding whitespace from a display name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
