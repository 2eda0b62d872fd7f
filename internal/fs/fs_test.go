package fs

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	// Test MkdirAll
	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0o755))

	// Test OpenFile (Create)
	fpath := filepath.Join(dir, "pool.bin")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0o644)
	require.NoError(t, err)
	assert.NotZero(t, f.Fd())

	// Allocate
	require.NoError(t, f.Allocate(8192))
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(8192), info.Size())

	// Write + Sync
	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())
	assert.NoError(t, f.Close())

	// Exclusive create of an existing file fails
	_, err = lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0o644)
	assert.ErrorIs(t, err, os.ErrExist)

	// ReadDir
	entries, err := lfs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	// Rename
	newPath := filepath.Join(dir, "renamed.bin")
	assert.NoError(t, lfs.Rename(fpath, newPath))

	// Remove
	assert.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS_WriteLimit(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("faulty", Fault{FailAfterBytes: 5})

	fpath := filepath.Join(tmp, "faulty.txt")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	// Write 5 bytes - OK
	n, err := f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	// Write 1 byte - Fail
	n, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)

	assert.Equal(t, int64(5), ffs.Written())
}

func TestFaultyFS_Allocate(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("full", Fault{FailAfterBytes: -1, FailOnAllocate: true, Err: syscall.ENOSPC})

	f, err := ffs.OpenFile(filepath.Join(tmp, "full.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()
	assert.ErrorIs(t, f.Allocate(4096), syscall.ENOSPC)

	// Files not matching the rule are unaffected
	g, err := ffs.OpenFile(filepath.Join(tmp, "ok.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer g.Close()
	assert.NoError(t, g.Allocate(4096))
}

func TestFaultyFS_OpenSyncClose(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)

	ffs.AddRule("denied", Fault{FailAfterBytes: -1, FailOnOpen: true, Err: syscall.EACCES})
	_, err := ffs.OpenFile(filepath.Join(tmp, "denied.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	assert.ErrorIs(t, err, syscall.EACCES)
	var pe *os.PathError
	assert.ErrorAs(t, err, &pe)

	ffs.ClearRules()
	ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnClose: true})
	f, err := ffs.OpenFile(filepath.Join(tmp, "sync.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), ErrInjected)
	assert.ErrorIs(t, f.Close(), ErrInjected)
}

func TestFaultyFS_Delegation(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, ffs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.NoError(t, ffs.Rename(fpath, fpath+".renamed"))
	_, err = ffs.Stat(fpath + ".renamed")
	assert.NoError(t, err)

	entries, err := ffs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.NoError(t, ffs.Remove(fpath+".renamed"))
}
