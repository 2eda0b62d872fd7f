//go:build linux && (amd64 || arm64)

package mmap

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// osMapShared maps the file read-write. It first asks for a synchronous DAX
// mapping (MAP_SYNC), which only succeeds on persistent memory, and falls back
// to a regular shared mapping.
func osMapShared(fd uintptr, size int) ([]byte, bool, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE

	data, err := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED_VALIDATE|unix.MAP_SYNC)
	if err == nil {
		return data, true, nil
	}
	// EOPNOTSUPP: not DAX. EINVAL: kernel predates MAP_SHARED_VALIDATE.
	if !errors.Is(err, unix.EOPNOTSUPP) && !errors.Is(err, unix.EINVAL) {
		return nil, false, os.NewSyscallError("mmap", err)
	}

	data, err = unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, false, os.NewSyscallError("mmap", err)
	}
	return data, false, nil
}
