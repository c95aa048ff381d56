package errors

import "fmt"

// Kind classifies where in the sync pipeline an error originated.
type Kind string

const (
	// KindValidation: rejected before any optimistic mutation or gateway call.
	KindValidation Kind = "validation"
	// KindGateway: the remote authority rejected the call or was unreachable.
	KindGateway Kind = "gateway"
	// KindFeed: a change-feed frame could not be decoded or attributed.
	KindFeed Kind = "feed"
	// KindTimeout: an initial load exceeded its bounded window.
	KindTimeout Kind = "timeout"
)

// SyncError is the error type surfaced by the stores and the feed.
type SyncError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a SyncError of the given kind.
func IsKind(err error, kind Kind) bool {
	se, ok := err.(*SyncError)
	return ok && se.Kind == kind
}

// Helper constructors per kind
func Validation(msg string) *SyncError {
	return &SyncError{Kind: KindValidation, Message: msg}
}

func Gateway(msg string, cause error) *SyncError {
	return &SyncError{Kind: KindGateway, Message: msg, Cause: cause}
}

func Feed(msg string, cause error) *SyncError {
	return &SyncError{Kind: KindFeed, Message: msg, Cause: cause}
}

func Timeout(msg string) *SyncError {
	return &SyncError{Kind: KindTimeout, Message: msg}
}
