//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// msync already writes the range back to the file on unix.
const syncFileAfterFlush = false

func osMap(fd uintptr, size int) ([]byte, error) {
	data, err := unix.Mmap(int(fd), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, os.NewSyscallError("mmap", err)
	}
	return data, nil
}

func osUnmap(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return os.NewSyscallError("munmap", err)
	}
	return nil
}

// osFlush synchronously flushes data[off:off+n]. msync requires a page-aligned
// start address; mappings are page-aligned, so rounding off down is enough.
func osFlush(data []byte, off, n int) error {
	if n == 0 {
		return nil
	}
	start := off &^ (os.Getpagesize() - 1)
	if err := unix.Msync(data[start:off+n], unix.MS_SYNC); err != nil {
		return os.NewSyscallError("msync", err)
	}
	return nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if len(data) == 0 {
		return nil
	}

	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontNeed:
		advice = unix.MADV_DONTNEED
	default:
		advice = unix.MADV_NORMAL
	}

	// The hint is advisory; an alignment complaint is not worth surfacing.
	err := unix.Madvise(data, advice)
	if err == unix.EINVAL {
		return nil
	}
	return err
}
