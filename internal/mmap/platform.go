package mmap

import (
	"os"

	"github.com/hupe1980/pmemfile/internal/fs"
)

// Region is a read-write mapping of a whole file.
//
// Data is stable for the lifetime of the mapping; Unmap sets it to nil.
type Region struct {
	Data []byte
	// IsPmem reports whether stores become durable by flushing CPU caches
	// (a MAP_SYNC mapping on a DAX filesystem) instead of page writeback.
	IsPmem bool

	file fs.File
}

// Len returns the mapped length in bytes.
func (r *Region) Len() int {
	return len(r.Data)
}

// Platform is the set of native capabilities a persistent-memory file is built on.
//
// Implementations must be safe for concurrent use. Copy, Persist and Sync may run
// concurrently on the same region; Unmap is never called concurrently with them.
type Platform interface {
	// Map creates or opens the file at path and maps it read-write.
	// A length of 0 maps the whole existing file.
	Map(path string, length int64, flags MapFlag, perm os.FileMode) (*Region, error)
	// Copy copies src into dst. len(dst) must equal len(src).
	Copy(dst, src []byte) error
	// Persist makes r.Data[off:off+n] durable on a true persistent-memory region.
	Persist(r *Region, off, n int) error
	// Sync synchronizes r.Data[off:off+n] to the backing media.
	Sync(r *Region, off, n int) error
	// Unmap releases the region.
	Unmap(r *Region) error
	// Remove deletes the file at path. The file must not be mapped.
	Remove(path string) error
}

// Default is the native platform on the local file system.
var Default Platform = NewPlatform(nil)

type nativePlatform struct {
	fs fs.FileSystem
}

// NewPlatform returns the native platform. Files are opened through fsys
// (fs.Default if nil).
func NewPlatform(fsys fs.FileSystem) Platform {
	if fsys == nil {
		fsys = fs.Default
	}
	return &nativePlatform{fs: fsys}
}

func (p *nativePlatform) Map(path string, length int64, flags MapFlag, perm os.FileMode) (*Region, error) {
	create := flags&FlagCreate != 0
	if create && length <= 0 {
		return nil, ErrInvalidSize
	}
	if !create && length != 0 {
		return nil, ErrInvalidSize
	}

	oflag := os.O_RDWR
	if create {
		oflag |= os.O_CREATE
		if flags&FlagExclusive != 0 {
			oflag |= os.O_EXCL
		}
	}

	f, err := p.fs.OpenFile(path, oflag, perm)
	if err != nil {
		return nil, err
	}

	r, err := p.mapFile(f, length, create)
	if err != nil {
		_ = f.Close()
		// With O_EXCL the file is known to be ours.
		if create && flags&FlagExclusive != 0 {
			_ = p.fs.Remove(path)
		}
		return nil, err
	}
	return r, nil
}

func (p *nativePlatform) mapFile(f fs.File, length int64, create bool) (*Region, error) {
	if create {
		if err := f.Allocate(length); err != nil {
			return nil, err
		}
	} else {
		fi, err := f.Stat()
		if err != nil {
			return nil, err
		}
		length = fi.Size()
	}

	if length <= 0 || int64(int(length)) != length {
		return nil, ErrInvalidSize
	}

	data, isPmem, err := osMapShared(f.Fd(), int(length))
	if err != nil {
		return nil, err
	}

	return &Region{Data: data, IsPmem: isPmem, file: f}, nil
}

func (p *nativePlatform) Copy(dst, src []byte) error {
	return safeCopy(dst, src)
}

// Persist flushes the range with msync. On a MAP_SYNC region the file
// metadata is already durable and the kernel only writes back the CPU cache
// lines of the range; there is no cache-line flush instruction reachable from
// Go without assembly. On unix this makes Persist and Sync the same call;
// Sync differs only where the file must be synced after the flush.
func (p *nativePlatform) Persist(r *Region, off, n int) error {
	if err := checkRange(r, off, n); err != nil {
		return err
	}
	return osFlush(r.Data, off, n)
}

func (p *nativePlatform) Sync(r *Region, off, n int) error {
	if err := checkRange(r, off, n); err != nil {
		return err
	}
	if err := osFlush(r.Data, off, n); err != nil {
		return err
	}
	if syncFileAfterFlush {
		return r.file.Sync()
	}
	return nil
}

func (p *nativePlatform) Unmap(r *Region) error {
	if r == nil || r.Data == nil {
		return ErrNotMapped
	}
	err := osUnmap(r.Data)
	r.Data = nil
	if r.file != nil {
		if cerr := r.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		r.file = nil
	}
	return err
}

func (p *nativePlatform) Remove(path string) error {
	return p.fs.Remove(path)
}

func checkRange(r *Region, off, n int) error {
	if r == nil || r.Data == nil {
		return ErrNotMapped
	}
	if off < 0 {
		return ErrInvalidOffset
	}
	if n < 0 || off+n > len(r.Data) {
		return ErrOutOfBounds
	}
	return nil
}
