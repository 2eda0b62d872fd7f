package mmap

import (
	"io/fs"
	"os"
	"sync"
)

// MemoryPlatform is a Platform backed by process memory. Files survive Unmap
// and can be mapped again until Remove, so it behaves like a volatile
// filesystem. It is used in tests and where durability is not required.
type MemoryPlatform struct {
	mu     sync.Mutex
	files  map[string][]byte
	isPmem bool
}

// NewMemoryPlatform creates an empty in-memory platform. isPmem selects the
// durability path reported for its regions.
func NewMemoryPlatform(isPmem bool) *MemoryPlatform {
	return &MemoryPlatform{
		files:  make(map[string][]byte),
		isPmem: isPmem,
	}
}

func (m *MemoryPlatform) Map(path string, length int64, flags MapFlag, _ os.FileMode) (*Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, exists := m.files[path]
	switch {
	case flags&FlagCreate == 0:
		if !exists {
			return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
		}
		if length != 0 {
			return nil, ErrInvalidSize
		}
	case exists && flags&FlagExclusive != 0:
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrExist}
	case !exists:
		if length <= 0 {
			return nil, ErrInvalidSize
		}
		data = make([]byte, length)
		m.files[path] = data
	}

	if len(data) == 0 {
		return nil, ErrInvalidSize
	}
	return &Region{Data: data, IsPmem: m.isPmem}, nil
}

func (m *MemoryPlatform) Copy(dst, src []byte) error {
	return safeCopy(dst, src)
}

func (m *MemoryPlatform) Persist(r *Region, off, n int) error {
	return checkRange(r, off, n)
}

func (m *MemoryPlatform) Sync(r *Region, off, n int) error {
	return checkRange(r, off, n)
}

func (m *MemoryPlatform) Unmap(r *Region) error {
	if r == nil || r.Data == nil {
		return ErrNotMapped
	}
	r.Data = nil
	return nil
}

// Remove deletes the file at path.
func (m *MemoryPlatform) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(m.files, path)
	return nil
}
