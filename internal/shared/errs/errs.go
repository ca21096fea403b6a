// Package errs defines the error taxonomy surfaced by file operations.
//
// Every failure that crosses a package boundary is an *Error carrying a Kind,
// the operation that failed, the path involved and the underlying cause.
// The dispatcher converts these into response envelopes; nothing else needs
// to know how the message was built.
//
// Kinds:
//   - NotFound: source or destination missing
//   - NotADirectory / NotAFile: type mismatch against expectation
//   - AlreadyExists: collision where no auto-rename applies
//   - Cancelled: user-initiated abort
//   - ArchiveCorrupt: entry or archive unreadable
//   - CrossDeviceFallback: rename crossed volumes (internal signal only)
//   - ReadOnly: mutation of a read-only archive format
//   - InvalidArgument: missing or ill-typed request field
//   - Unknown: wrapped OS error with its message preserved
package errs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Kind classifies an error
type Kind string

const (
	NotFound            Kind = "not_found"
	NotADirectory       Kind = "not_a_directory"
	NotAFile            Kind = "not_a_file"
	AlreadyExists       Kind = "already_exists"
	Cancelled           Kind = "cancelled"
	ArchiveCorrupt      Kind = "archive_corrupt"
	CrossDeviceFallback Kind = "cross_device_fallback"
	ReadOnly            Kind = "read_only"
	InvalidArgument     Kind = "invalid_argument"
	Unknown             Kind = "unknown"
)

// Error is a classified failure
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	switch e.Kind {
	case NotFound:
		msg = "not found"
	case NotADirectory:
		msg = "not a directory"
	case NotAFile:
		msg = "not a file"
	case AlreadyExists:
		msg = "already exists"
	case Cancelled:
		msg = "cancelled by user"
	case ArchiveCorrupt:
		msg = "archive read failed"
	case CrossDeviceFallback:
		msg = "cross-device rename"
	case ReadOnly:
		msg = "read-only archive format"
	case InvalidArgument:
		msg = "invalid argument"
	case Unknown:
		msg = "operation failed"
	}

	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Newf creates a classified error with a formatted cause
func Newf(kind Kind, op, path, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. An existing *Error keeps its kind; well-known causes
// (missing files, collisions, cancellation, cross-device renames) are mapped
// onto their kinds and everything else becomes Unknown.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	return New(classify(err), op, path, err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Cancelled
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrExist):
		return AlreadyExists
	case errors.Is(err, syscall.EXDEV):
		return CrossDeviceFallback
	case errors.Is(err, syscall.ENOTDIR):
		return NotADirectory
	case errors.Is(err, syscall.EISDIR):
		return NotAFile
	default:
		return Unknown
	}
}

// KindOf returns the kind of err, or Unknown for unclassified errors
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
