package pmemfile

import (
	"errors"
	"fmt"

	"github.com/hupe1980/pmemfile/resource"
)

var (
	// ErrInvalidArgument is returned for an empty path or a non-positive size.
	ErrInvalidArgument = errors.New("pmemfile: invalid argument")

	// ErrEmptyMapping is returned when the platform reports success but yields no mapped bytes.
	ErrEmptyMapping = errors.New("pmemfile: platform returned an empty mapping")

	// ErrOutOfRange is matched by every *RangeError.
	ErrOutOfRange = errors.New("pmemfile: range exceeds mapped length")

	// ErrClosed is returned by operations on a closed or released handle.
	ErrClosed = errors.New("pmemfile: file is closed")

	// ErrMappedLimitExceeded is returned (wrapped in a *MappingError) when the
	// resource controller has no room for another mapping.
	ErrMappedLimitExceeded = resource.ErrMappedLimitExceeded
)

// MappingError reports a failure to establish or release a mapping.
//
// The original underlying error can be accessed via errors.Unwrap; typical
// causes are fs.ErrExist, fs.ErrNotExist, syscall.ENOSPC, syscall.EACCES,
// ErrInvalidArgument and ErrMappedLimitExceeded.
type MappingError struct {
	Op    string // "create", "open" or "close"
	Path  string
	cause error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("pmemfile: %s %s: %v", e.Op, e.Path, e.cause)
}

func (e *MappingError) Unwrap() error { return e.cause }

// CopyError reports a failed copy or durability step on a single call.
// The handle remains usable.
type CopyError struct {
	Op     string // "read", "write", "persist" or "sync"
	Offset int64
	Length int
	cause  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("pmemfile: %s of %d bytes at offset %d: %v", e.Op, e.Length, e.Offset, e.cause)
}

func (e *CopyError) Unwrap() error { return e.cause }

// RangeError reports a read or write outside [0, Size).
// It is returned before any platform call is made.
type RangeError struct {
	Offset int64
	Length int
	Size   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("pmemfile: range [%d, %d) exceeds mapped length %d", e.Offset, e.Offset+int64(e.Length), e.Size)
}

// Is reports whether target is ErrOutOfRange.
func (e *RangeError) Is(target error) bool { return target == ErrOutOfRange }
