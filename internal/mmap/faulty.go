package mmap

import (
	"os"
	"sync"
)

// Op names a Platform capability.
type Op string

const (
	OpMap     Op = "map"
	OpCopy    Op = "copy"
	OpPersist Op = "persist"
	OpSync    Op = "sync"
	OpUnmap   Op = "unmap"
	OpRemove  Op = "remove"
)

// Call is one recorded Platform call.
type Call struct {
	Op   Op
	Path string // OpMap and OpRemove only
	Off  int    // OpPersist and OpSync only
	N    int
}

// FaultyPlatform is a Platform wrapper that records every call and can inject errors.
// A failing call is recorded but not delegated.
type FaultyPlatform struct {
	Platform Platform

	mu     sync.Mutex
	faults map[Op]error
	calls  []Call
}

// NewFaultyPlatform wraps p (or a volatile MemoryPlatform if nil).
func NewFaultyPlatform(p Platform) *FaultyPlatform {
	if p == nil {
		p = NewMemoryPlatform(false)
	}
	return &FaultyPlatform{
		Platform: p,
		faults:   make(map[Op]error),
	}
}

// Fail makes every following call of op return err. A nil err clears the fault.
func (f *FaultyPlatform) Fail(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.faults, op)
		return
	}
	f.faults[op] = err
}

// Calls returns a copy of the recorded calls in order.
func (f *FaultyPlatform) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Ops returns the recorded operations in order.
func (f *FaultyPlatform) Ops() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Op, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Op
	}
	return out
}

// Reset forgets recorded calls. Faults stay in place.
func (f *FaultyPlatform) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FaultyPlatform) record(c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.faults[c.Op]
}

func (f *FaultyPlatform) Map(path string, length int64, flags MapFlag, perm os.FileMode) (*Region, error) {
	if err := f.record(Call{Op: OpMap, Path: path, N: int(length)}); err != nil {
		return nil, err
	}
	return f.Platform.Map(path, length, flags, perm)
}

func (f *FaultyPlatform) Copy(dst, src []byte) error {
	if err := f.record(Call{Op: OpCopy, N: len(src)}); err != nil {
		return err
	}
	return f.Platform.Copy(dst, src)
}

func (f *FaultyPlatform) Persist(r *Region, off, n int) error {
	if err := f.record(Call{Op: OpPersist, Off: off, N: n}); err != nil {
		return err
	}
	return f.Platform.Persist(r, off, n)
}

func (f *FaultyPlatform) Sync(r *Region, off, n int) error {
	if err := f.record(Call{Op: OpSync, Off: off, N: n}); err != nil {
		return err
	}
	return f.Platform.Sync(r, off, n)
}

func (f *FaultyPlatform) Unmap(r *Region) error {
	if err := f.record(Call{Op: OpUnmap}); err != nil {
		return err
	}
	return f.Platform.Unmap(r)
}

func (f *FaultyPlatform) Remove(path string) error {
	if err := f.record(Call{Op: OpRemove, Path: path}); err != nil {
		return err
	}
	return f.Platform.Remove(path)
}
