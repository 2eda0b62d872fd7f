//go:build unix && !(linux && (amd64 || arm64))

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func osMapShared(fd uintptr, size int) ([]byte, bool, error) {
	data, err := unix.Mmap(int(fd), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, false, os.NewSyscallError("mmap", err)
	}
	return data, false, nil
}
