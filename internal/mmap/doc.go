// Package mmap provides the memory-mapping layer persistent-memory files are built on.
//
// # Platform
//
// [Platform] is the set of native capabilities a pmem file needs: map a file
// read-write, copy bytes in and out of the mapping, make a written range
// durable, and unmap. Three implementations are provided:
//
//   - [NewPlatform]: native mappings. On Linux (amd64, arm64) it first requests
//     MAP_SHARED_VALIDATE|MAP_SYNC, which the kernel only grants on DAX
//     filesystems backed by persistent memory, and records the result in
//     [Region.IsPmem]. Other filesystems get a regular MAP_SHARED mapping.
//   - [NewMemoryPlatform]: process memory; volatile, used by tests.
//   - [NewFaultyPlatform]: records calls and injects errors around another Platform.
//
// Durability is msync(2) over the page-aligned written range. On a MAP_SYNC
// mapping the kernel only has to write back CPU caches for that range, since
// file metadata is already durable; on a regular mapping it writes the dirty
// pages back to the file. On Windows, FlushViewOfFile is followed by
// FlushFileBuffers.
//
// Copies run with runtime/debug.SetPanicOnFault so that a SIGBUS on mapped
// memory (truncated file, media error) becomes [ErrFault].
//
// # Read-only mappings
//
//	m, err := mmap.Open(nil, "chunk.bin")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	m.Advise(mmap.AccessSequential)
//
// # Thread Safety
//
// Platforms are safe for concurrent use. Callers must not call Unmap while
// other calls on the same Region are in flight, and must not touch
// Region.Data afterwards. Mapping.Close is idempotent, but callers must ensure
// no goroutines access Bytes() after Close() returns.
package mmap
