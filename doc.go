// Package pmemfile maps a file into memory and gives byte-addressed reads and
// writes with a durability guarantee on every write.
//
// When the file lives on a DAX filesystem backed by persistent memory, the
// mapping is established with MAP_SYNC and a write is made durable by flushing
// the written range from CPU caches. On any other filesystem the same API works
// over an ordinary shared mapping and a write is made durable by synchronizing
// the written range to the backing media.
//
// # Quick Start
//
//	f, err := pmemfile.Create("/mnt/pmem/data", 4096)
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//
//	if _, err := f.WriteAt([]byte("hello world"), 0); err != nil {
//		return err
//	}
//
//	buf := make([]byte, 11)
//	if _, err := f.ReadAt(buf, 0); err != nil {
//		return err
//	}
//
// # Lifetime
//
// Close unmaps the file for the handle and every clone made from it. Clone and
// Release provide shared ownership instead: the mapping stays alive until the
// last handle is released. A mapping that is never closed is unmapped by the
// garbage collector and a warning is logged.
//
// # Errors
//
// Failures to create or open a mapping are reported as *MappingError, failed
// copies and durability steps as *CopyError, and out-of-range accesses as
// *RangeError. Use errors.Is with the package sentinels (ErrClosed,
// ErrOutOfRange, ErrMappedLimitExceeded) or with fs.ErrExist and fs.ErrNotExist.
//
// # Snapshots
//
// With WithDirtyTracking enabled, the snapshot package copies a file to a blob
// store (local directory, S3 or MinIO) and restores it, transferring only the
// pages written since the previous backup.
package pmemfile
