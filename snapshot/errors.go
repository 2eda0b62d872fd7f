package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSnapshot is returned when no snapshot has been committed under a name.
	ErrNoSnapshot = errors.New("snapshot: no snapshot")

	// ErrIncompatibleVersion is returned when a manifest was written in an unknown format.
	ErrIncompatibleVersion = errors.New("snapshot: incompatible manifest version")

	// ErrChecksumMismatch is returned when a restored chunk does not match its checksum.
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")

	// ErrConcurrentBackup is returned when another writer committed the same
	// snapshot version first.
	ErrConcurrentBackup = errors.New("snapshot: concurrent backup")

	// ErrInvalidName is returned for an empty snapshot name or one containing
	// the reserved path elements.
	ErrInvalidName = errors.New("snapshot: invalid name")
)

// ChunkError reports which chunk of which snapshot version failed.
type ChunkError struct {
	Name    string
	Version uint64
	Index   int
	cause   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("snapshot %s@%d: chunk %d: %v", e.Name, e.Version, e.Index, e.cause)
}

func (e *ChunkError) Unwrap() error {
	return e.cause
}
