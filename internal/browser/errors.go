package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies browser failures so callers can branch without matching message text
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindNotFound
	KindNotInteractable
	KindStale
	KindDriverFault
	KindExtractionEmpty
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not found"
	case KindNotInteractable:
		return "not interactable"
	case KindStale:
		return "stale element"
	case KindDriverFault:
		return "driver fault"
	case KindExtractionEmpty:
		return "extraction empty"
	case KindInvalid:
		return "invalid argument"
	default:
		return "unknown"
	}
}

// Error is a classified browser failure
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error
func NewError(kind Kind, op, detail string, err error) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}

// Errorf creates a classified error with a formatted detail message
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err. Unclassified errors are driver faults,
// except for context deadlines which count as timeouts.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindDriverFault
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var (
	staleMarkers = []string{
		"no node with given id",
		"could not find node with given id",
		"node with given id does not belong to the document",
		"node is detached",
		"cannot find context with specified id",
	}
	notInteractableMarkers = []string{
		"could not compute box model",
		"could not compute content quads",
		"not visible",
		"not interactable",
		"intercept",
	}
)

// Classify wraps a raw driver error into an *Error. Errors that are already
// classified pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return &Error{Kind: KindStale, Op: op, Err: err}
		}
	}
	for _, m := range notInteractableMarkers {
		if strings.Contains(msg, m) {
			return &Error{Kind: KindNotInteractable, Op: op, Err: err}
		}
	}
	return &Error{Kind: KindDriverFault, Op: op, Err: err}
}
