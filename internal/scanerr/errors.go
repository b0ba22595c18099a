// Package scanerr is the Engine's typed error system (§7). Every
// failure the Engine can produce carries one of six kinds; callers use
// the kind, not string matching, to decide whether a failure is
// recoverable (append to ScanReport.Warnings and continue) or fatal
// (abort the scan).
package scanerr

import "fmt"

// Kind is one of the Engine's six error categories.
type Kind string

const (
	// KindInput covers malformed CLI arguments, an unreadable repository
	// root, or a scan target outside the FEL extension set.
	KindInput Kind = "input"
	// KindParse covers a tree-sitter parse failure for a single file.
	// Always recoverable: the file is skipped and the scan continues.
	KindParse Kind = "parse"
	// KindHistory covers a git blame/log call that failed or returned
	// data the Evidence component couldn't interpret.
	KindHistory Kind = "history"
	// KindCache covers a cache read/write failure. Always recoverable:
	// the cache is read-through, so a miss just costs recomputation.
	KindCache Kind = "cache"
	// KindInternal covers a bug or invariant violation inside the
	// Engine itself. Never recoverable.
	KindInternal Kind = "internal"
	// KindDeadline covers a scan that exceeded its hard time budget
	// (§5: 20 minutes full, 60 seconds incremental). Never recoverable.
	KindDeadline Kind = "deadline"
)

// defaultRecoverable is the recoverability a Kind has unless the
// constructor is told otherwise.
func defaultRecoverable(kind Kind) bool {
	switch kind {
	case KindParse, KindCache, KindHistory:
		return true
	case KindInput, KindInternal, KindDeadline:
		return false
	default:
		return false
	}
}

// Error is the Engine's error type: it carries a Kind, a human-readable
// message, whether the failure is recoverable, and an optional wrapped
// cause.
type Error struct {
	Kind        Kind
	Message     string
	Recoverable bool
	Path        string // file or repository path the error concerns, if any
	cause       error
}

// New builds an Error of kind with the default recoverability for that kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Recoverable: defaultRecoverable(kind)}
}

// Wrap builds an Error of kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Recoverable: defaultRecoverable(kind), cause: cause}
}

// WithPath attaches the file or repository path the error concerns.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Kind)
	if e.Path != "" {
		prefix = fmt.Sprintf("%s %s:", prefix, e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// IsFatal reports whether err should abort the scan rather than being
// recorded as a warning. A non-*Error is treated as fatal, since the
// Engine cannot classify it.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	se, ok := err.(*Error)
	if !ok {
		return true
	}
	return !se.Recoverable
}

// KindOf extracts the Kind from err, or KindInternal if err isn't a
// *Error (an unclassified failure is treated as an Engine bug).
func KindOf(err error) Kind {
	if se, ok := err.(*Error); ok {
		return se.Kind
	}
	return KindInternal
}
