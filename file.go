package pmemfile

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/pmemfile/internal/mmap"
	"github.com/hupe1980/pmemfile/resource"
)

// File is a handle to a file mapped into memory.
//
// Every successful WriteAt is durable when it returns: on a persistent-memory
// mapping the written range is persisted from CPU caches, otherwise it is
// synchronized to the backing media.
//
// A File is safe for concurrent use. Concurrent writes to overlapping ranges
// are not ordered against each other; callers coordinate those themselves.
type File struct {
	m        *mapping
	released atomic.Bool
}

// mapping is shared by a File and all of its clones.
type mapping struct {
	path       string
	size       int64
	platform   mmap.Platform
	logger     *Logger
	metrics    MetricsCollector
	dirty      *dirtyPages
	res        *mappedRegion
	cleanup    runtime.Cleanup
	references atomic.Int64

	// mu guards closed. ReadAt and WriteAt hold it shared for the duration of
	// the copy so an unmap can never run under them.
	mu     sync.RWMutex
	closed bool
}

// mappedRegion is what must be released exactly once. It is kept apart from
// mapping so the garbage collector cleanup can reach it without keeping the
// mapping alive.
type mappedRegion struct {
	once       sync.Once
	platform   mmap.Platform
	region     *mmap.Region
	controller *resource.Controller
	reserved   int64
	done       atomic.Bool
	err        error
}

func (r *mappedRegion) release() error {
	r.once.Do(func() {
		r.err = r.platform.Unmap(r.region)
		r.controller.ReleaseMapping(r.reserved)
		r.done.Store(true)
	})
	return r.err
}

// Create makes a new file of exactly size bytes at path and maps it.
// The file must not already exist. On failure no file is left behind.
func Create(path string, size int64, optFns ...Option) (*File, error) {
	o := applyOptions(optFns)
	if path == "" || size <= 0 {
		return nil, failMap(o, "create", path, ErrInvalidArgument)
	}
	return newFile(o, "create", path, size, mmap.FlagCreate|mmap.FlagExclusive)
}

// Open maps an existing file in its entirety.
func Open(path string, optFns ...Option) (*File, error) {
	o := applyOptions(optFns)
	if path == "" {
		return nil, failMap(o, "open", path, ErrInvalidArgument)
	}
	return newFile(o, "open", path, 0, 0)
}

// Remove deletes the file at path through the configured platform.
// No handle may still map it.
func Remove(path string, optFns ...Option) error {
	o := applyOptions(optFns)
	if path == "" {
		return ErrInvalidArgument
	}
	return o.platform.Remove(path)
}

func failMap(o options, op, path string, cause error) error {
	err := &MappingError{Op: op, Path: path, cause: cause}
	o.metricsCollector.RecordMap(0, false, 0, err)
	o.logger.WithPath(path).LogMap(op, 0, false, err)
	return err
}

func newFile(o options, op, path string, size int64, flags mmap.MapFlag) (*File, error) {
	start := time.Now()
	logger := o.logger.WithPath(path)

	res, err := mapRegion(o, path, size, flags)
	if err != nil {
		err = &MappingError{Op: op, Path: path, cause: err}
		o.metricsCollector.RecordMap(0, false, time.Since(start), err)
		logger.LogMap(op, 0, false, err)
		return nil, err
	}

	m := &mapping{
		path:     path,
		size:     int64(res.region.Len()),
		platform: o.platform,
		logger:   logger,
		metrics:  o.metricsCollector,
		dirty:    newDirtyPages(o.dirtyPageSize, int64(res.region.Len())),
		res:      res,
	}
	m.references.Store(1)

	size = m.size
	m.cleanup = runtime.AddCleanup(m, func(r *mappedRegion) {
		if r.done.Load() {
			return
		}
		logger.LogLeak(size)
		_ = r.release()
	}, res)

	pmem := res.region.IsPmem
	o.metricsCollector.RecordMap(m.size, pmem, time.Since(start), nil)
	logger.LogMap(op, m.size, pmem, nil)

	return &File{m: m}, nil
}

func mapRegion(o options, path string, size int64, flags mmap.MapFlag) (*mappedRegion, error) {
	// Create knows its size up front; Open reserves after learning it.
	if err := o.controller.AcquireMapping(size); err != nil {
		return nil, err
	}

	region, err := o.platform.Map(path, size, flags, o.perm)
	if err != nil {
		o.controller.ReleaseMapping(size)
		return nil, err
	}
	if region == nil || region.Len() == 0 {
		o.controller.ReleaseMapping(size)
		return nil, ErrEmptyMapping
	}

	mapped := int64(region.Len())
	if delta := mapped - size; delta > 0 {
		if err := o.controller.AcquireMapping(delta); err != nil {
			_ = o.platform.Unmap(region)
			o.controller.ReleaseMapping(size)
			return nil, err
		}
	} else if delta < 0 {
		o.controller.ReleaseMapping(-delta)
	}

	return &mappedRegion{
		platform:   o.platform,
		region:     region,
		controller: o.controller,
		reserved:   mapped,
	}, nil
}

// Path returns the path the file was created or opened with.
func (f *File) Path() string {
	return f.m.path
}

// Size returns the mapped length in bytes. It never changes.
func (f *File) Size() int64 {
	return f.m.size
}

// IsPmem reports whether the mapping is backed by true persistent memory.
func (f *File) IsPmem() bool {
	return f.m.res.region.IsPmem
}

// ReadAt copies len(p) bytes starting at off into p.
//
// It implements io.ReaderAt, except that a range past the end is rejected
// with a *RangeError instead of a short read.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	m := f.m
	start := time.Now()
	defer func() {
		m.metrics.RecordRead(n, time.Since(start), err)
	}()

	if err := f.acquire(); err != nil {
		return 0, err
	}
	defer m.mu.RUnlock()

	if err := m.checkRange(off, len(p)); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	src := m.res.region.Data[off : off+int64(len(p))]
	if err := m.platform.Copy(p, src); err != nil {
		m.logger.LogCopyFailure("read", off, len(p), err)
		return 0, &CopyError{Op: "read", Offset: off, Length: len(p), cause: err}
	}

	return len(p), nil
}

// WriteAt copies p into the file at off and makes it durable before returning.
//
// A write outside [0, Size) is rejected with a *RangeError and nothing is written.
// If the durability step fails the bytes may already be visible to readers
// but are not guaranteed durable.
func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	m := f.m
	start := time.Now()
	defer func() {
		m.metrics.RecordWrite(n, time.Since(start), err)
	}()

	if err := f.acquire(); err != nil {
		return 0, err
	}
	defer m.mu.RUnlock()

	if err := m.checkRange(off, len(p)); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	region := m.res.region
	dst := region.Data[off : off+int64(len(p))]
	if err := m.platform.Copy(dst, p); err != nil {
		m.logger.LogCopyFailure("write", off, len(p), err)
		return 0, &CopyError{Op: "write", Offset: off, Length: len(p), cause: err}
	}
	m.dirty.mark(off, len(p))

	op, durable := "sync", m.platform.Sync
	if region.IsPmem {
		op, durable = "persist", m.platform.Persist
	}
	if err := durable(region, int(off), len(p)); err != nil {
		m.logger.LogCopyFailure(op, off, len(p), err)
		return 0, &CopyError{Op: op, Offset: off, Length: len(p), cause: err}
	}

	return len(p), nil
}

// Close unmaps the file for this handle and all of its clones.
// Further operations on any of them fail with ErrClosed, including a second Close.
func (f *File) Close() error {
	if f.released.Swap(true) {
		return ErrClosed
	}
	return f.m.close()
}

// Clone returns a new handle sharing the same mapping.
// The mapping is unmapped once every handle has been released, or on the first Close.
func (f *File) Clone() (*File, error) {
	if err := f.acquire(); err != nil {
		return nil, err
	}
	defer f.m.mu.RUnlock()

	f.m.references.Add(1)
	return &File{m: f.m}, nil
}

// Release gives up this handle. The last Release unmaps the file.
// Releasing a handle whose mapping was already closed is not an error.
func (f *File) Release() error {
	if f.released.Swap(true) {
		return ErrClosed
	}
	if f.m.references.Add(-1) > 0 {
		return nil
	}
	if err := f.m.close(); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

// acquire takes the shared lock if the handle and mapping are open.
// The caller must RUnlock on success.
func (f *File) acquire() error {
	if f.released.Load() {
		return ErrClosed
	}
	f.m.mu.RLock()
	if f.m.closed {
		f.m.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

func (m *mapping) checkRange(off int64, n int) error {
	if off < 0 || n < 0 || off > m.size || int64(n) > m.size-off {
		return &RangeError{Offset: off, Length: n, Size: m.size}
	}
	return nil
}

func (m *mapping) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true

	start := time.Now()
	err := m.res.release()
	m.cleanup.Stop()

	m.metrics.RecordUnmap(time.Since(start), err)
	m.logger.LogUnmap(m.size, err)

	if err != nil {
		return &MappingError{Op: "close", Path: m.path, cause: err}
	}
	return nil
}
