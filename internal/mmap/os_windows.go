//go:build windows

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// FlushViewOfFile only starts the writeback; FlushFileBuffers waits for it.
const syncFileAfterFlush = true

func osMap(fd uintptr, size int) ([]byte, error) {
	return mapView(fd, size, windows.PAGE_READONLY, windows.FILE_MAP_READ)
}

func osMapShared(fd uintptr, size int) ([]byte, bool, error) {
	data, err := mapView(fd, size, windows.PAGE_READWRITE, windows.FILE_MAP_WRITE)
	return data, false, err
}

func mapView(fd uintptr, size int, prot, access uint32) ([]byte, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}

	sz := uint64(size)
	h, err := windows.CreateFileMapping(windows.Handle(fd), nil, prot, uint32(sz>>32), uint32(sz), nil)
	if err != nil {
		return nil, os.NewSyscallError("CreateFileMapping", err)
	}
	// The view keeps its own reference to the mapping object.
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, access, 0, 0, uintptr(size))
	if err != nil {
		return nil, os.NewSyscallError("MapViewOfFile", err)
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func osUnmap(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return os.NewSyscallError("UnmapViewOfFile", err)
	}
	return nil
}

func osFlush(data []byte, off, n int) error {
	if n == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&data[off]))
	if err := windows.FlushViewOfFile(addr, uintptr(n)); err != nil {
		return os.NewSyscallError("FlushViewOfFile", err)
	}
	return nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	// No madvise equivalent; PrefetchVirtualMemory needs Windows 8+ and is not wired.
	_ = data
	_ = pattern
	return nil
}
