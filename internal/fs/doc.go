// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: An open file that can be mapped (Fd) and preallocated (Allocate)
//   - [FileSystem]: Abstracts filesystem operations (open, remove, rename, etc.)
//
// # Implementations
//
//   - [LocalFS]: Production implementation using the os package. Allocate uses
//     fallocate(2) on Linux and falls back to ftruncate elsewhere.
//   - [FaultyFS]: Test utility for fault injection (simulate ENOSPC, EACCES, ...)
//
// # Usage
//
// Production code should use fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
//
// Tests can inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("pool", fs.Fault{FailOnAllocate: true, Err: syscall.ENOSPC})
//	// inject ffs into mmap.NewPlatform(ffs)
//
// # Design Notes
//
// This package intentionally does NOT include context.Context parameters.
// Filesystem operations are non-interruptible at the syscall level.
package fs
