package pmemfile

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/pmemfile/internal/conv"
)

// dirtyPages is the set of page indexes written since the last take.
// A nil *dirtyPages means tracking is disabled.
type dirtyPages struct {
	mu       sync.Mutex
	pageSize uint64
	pages    *roaring.Bitmap
	// gen counts takes. It only goes back when the latest take is returned.
	gen uint64
}

// newDirtyPages returns nil if tracking is disabled or the page indexes of a
// file of size bytes would not fit the bitmap.
func newDirtyPages(pageSize int, size int64) *dirtyPages {
	if pageSize <= 0 {
		return nil
	}
	if _, err := conv.ToUint32((size - 1) / int64(pageSize)); err != nil {
		return nil
	}
	return &dirtyPages{
		pageSize: uint64(pageSize),
		pages:    roaring.New(),
	}
}

func (d *dirtyPages) mark(off int64, n int) {
	if d == nil || n <= 0 {
		return
	}
	first := uint64(off) / d.pageSize
	last := (uint64(off) + uint64(n) - 1) / d.pageSize

	d.mu.Lock()
	d.pages.AddRange(first, last+1)
	d.mu.Unlock()
}

func (d *dirtyPages) take() (*roaring.Bitmap, uint64) {
	if d == nil {
		return roaring.New(), 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.pages
	d.pages = roaring.New()
	d.gen++
	return b, d.gen
}

// undo merges b back and, if gen is still the latest take, rewinds the
// generation as if that take never happened.
func (d *dirtyPages) undo(b *roaring.Bitmap, gen uint64) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if b != nil {
		d.pages.Or(b)
	}
	if gen != 0 && d.gen == gen {
		d.gen--
	}
}

func (d *dirtyPages) merge(b *roaring.Bitmap) {
	if d == nil || b == nil {
		return
	}
	d.mu.Lock()
	d.pages.Or(b)
	d.mu.Unlock()
}

func (d *dirtyPages) size() int {
	if d == nil {
		return 0
	}
	return int(d.pageSize)
}

// DirtyPageSize returns the dirty tracking granularity, or 0 if tracking is disabled.
func (f *File) DirtyPageSize() int {
	return f.m.dirty.size()
}

// TakeDirtyPages returns the indexes of pages written since the previous call
// and resets the set. The result is empty if tracking is disabled.
//
// The set is shared by all clones of a File, so every consumer sees only the
// pages written since any consumer last took them.
func (f *File) TakeDirtyPages() *roaring.Bitmap {
	b, _ := f.m.dirty.take()
	return b
}

// TakeDirtyPagesWithGeneration is TakeDirtyPages that also returns the
// generation of this take. Generations start at 1 and grow by one per take,
// so a consumer that remembers the generation of its own last take knows
// another consumer took pages in between when the new generation is not the
// next one. The generation is 0 if tracking is disabled.
func (f *File) TakeDirtyPagesWithGeneration() (*roaring.Bitmap, uint64) {
	return f.m.dirty.take()
}

// ReturnDirtyPages gives back pages taken by TakeDirtyPagesWithGeneration
// that the consumer failed to process. If no take happened after gen, the
// take is undone entirely; otherwise the pages are merged as with
// MarkDirtyPages.
func (f *File) ReturnDirtyPages(b *roaring.Bitmap, gen uint64) {
	f.m.dirty.undo(b, gen)
}

// MarkDirtyPages adds page indexes back to the dirty set, typically after a
// consumer of TakeDirtyPages failed to process them.
func (f *File) MarkDirtyPages(b *roaring.Bitmap) {
	f.m.dirty.merge(b)
}
