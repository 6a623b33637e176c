package remote

import (
	"errors"
	"fmt"
)

// Kind classifies a remote failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetworkUnavailable
	KindPermissionDenied
	KindFailedPrecondition
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetworkUnavailable:
		return "network_unavailable"
	case KindPermissionDenied:
		return "permission_denied"
	case KindFailedPrecondition:
		return "failed_precondition"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is returned by every Store implementation.
type Error struct {
	Kind       Kind
	Op         string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("remote %s (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("remote %s %s (%s): %v", e.Op, e.Collection, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind. A nil err yields a generic message.
func NewError(kind Kind, op, collection string, err error) *Error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Collection: collection, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Kind
	}
	return KindUnknown
}

// Deferrable reports whether err means the write should be queued and
// retried later instead of surfaced to the user.
func Deferrable(err error) bool {
	switch KindOf(err) {
	case KindNetworkUnavailable, KindPermissionDenied, KindFailedPrecondition:
		return true
	default:
		return false
	}
}
