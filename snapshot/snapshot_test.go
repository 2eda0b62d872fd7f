package snapshot

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pmemfile"
	"github.com/hupe1980/pmemfile/blobstore"
	"github.com/hupe1980/pmemfile/codec"
	"github.com/hupe1980/pmemfile/internal/mmap"
	"github.com/hupe1980/pmemfile/resource"
)

const testChunk = 4096

func testData(size int) []byte {
	data := make([]byte, size)
	// Half random, half repetitive so both stored forms occur.
	_, _ = rand.Read(data[:size/2])
	for i := size / 2; i < size; i++ {
		data[i] = byte(i % 16)
	}
	return data
}

func newTestFile(t *testing.T, platform mmap.Platform, path string, data []byte, opts ...pmemfile.Option) *pmemfile.File {
	t.Helper()
	opts = append([]pmemfile.Option{pmemfile.WithPlatform(platform)}, opts...)
	f, err := pmemfile.Create(path, int64(len(data)), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	_, err = f.WriteAt(data, 0)
	require.NoError(t, err)
	return f
}

func contents(t *testing.T, f *pmemfile.File) []byte {
	t.Helper()
	buf := make([]byte, f.Size())
	_, err := f.ReadAt(buf, 0)
	require.NoError(t, err)
	return buf
}

func withChunkSize(o *Options) {
	o.ChunkSize = testChunk
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	store := blobstore.NewMemoryStore()

	var logs bytes.Buffer
	snaps := New(store, withChunkSize, func(o *Options) {
		o.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	})

	data := testData(3*testChunk + 100)
	f := newTestFile(t, platform, "src", data)

	m, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Version)
	assert.Equal(t, uint64(0), m.Parent)
	assert.Equal(t, int64(len(data)), m.Size)
	require.Len(t, m.Chunks, 4)
	assert.Len(t, m.Uploaded(), 4)
	assert.Equal(t, 100, m.Chunks[3].Length)
	assert.Equal(t, CompressionNone, m.Chunks[0].Compression, "random data is stored raw")
	assert.Equal(t, CompressionZSTD, m.Chunks[3].Compression)
	assert.Less(t, m.StoredSize(), m.Size)

	names, err := store.List(ctx, "db/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"db/CURRENT",
		"db/MANIFEST-000001",
		"db/chunks/000001-000000",
		"db/chunks/000001-000001",
		"db/chunks/000001-000002",
		"db/chunks/000001-000003",
	}, names)

	latest, err := snaps.Latest(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, m.Chunks, latest.Chunks)

	restored, err := snaps.Restore(ctx, "db", "dst", pmemfile.WithPlatform(platform))
	require.NoError(t, err)
	defer restored.Close()

	assert.Equal(t, data, contents(t, restored))
	assert.Contains(t, logs.String(), "snapshot committed")
	assert.Contains(t, logs.String(), "snapshot restored")
}

func TestBackup_Incremental(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	snaps := New(blobstore.NewMemoryStore(), withChunkSize)

	data := testData(4 * testChunk)
	f := newTestFile(t, platform, "src", data, pmemfile.WithDirtyTracking(1024))

	_, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)

	// One write inside chunk 1, one spanning chunks 2 and 3.
	_, err = f.WriteAt([]byte("0123456789"), 5000)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("abcd"), 3*testChunk-2)
	require.NoError(t, err)

	m, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), m.Version)
	assert.Equal(t, uint64(1), m.Parent)

	uploaded := m.Uploaded()
	require.Len(t, uploaded, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{uploaded[0].Index, uploaded[1].Index, uploaded[2].Index})
	assert.Equal(t, "db/chunks/000001-000000", m.Chunks[0].Blob)

	// Nothing written since: every chunk is carried over.
	m, err = snaps.Backup(ctx, f, "db")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), m.Version)
	assert.Empty(t, m.Uploaded())

	restored, err := snaps.Restore(ctx, "db", "dst", pmemfile.WithPlatform(platform))
	require.NoError(t, err)
	defer restored.Close()
	assert.Equal(t, contents(t, f), contents(t, restored))
}

func TestBackup_FullWhenBaseUnknown(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	snaps := New(blobstore.NewMemoryStore(), withChunkSize)

	f := newTestFile(t, platform, "src", testData(2*testChunk))
	_, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)

	t.Run("other handle", func(t *testing.T) {
		clone, err := f.Clone()
		require.NoError(t, err)
		defer clone.Release()

		m, err := snaps.Backup(ctx, clone, "db")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), m.Parent)
		assert.Len(t, m.Uploaded(), 2)
	})

	t.Run("other snapshotter", func(t *testing.T) {
		other := New(snaps.store, withChunkSize)
		m, err := other.Backup(ctx, f, "db")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), m.Parent)
	})

	t.Run("tracking disabled", func(t *testing.T) {
		g := newTestFile(t, platform, "untracked", testData(2*testChunk), pmemfile.WithDirtyTracking(0))
		_, err := snaps.Backup(ctx, g, "untracked")
		require.NoError(t, err)
		m, err := snaps.Backup(ctx, g, "untracked")
		require.NoError(t, err)
		assert.Len(t, m.Uploaded(), 2)
	})
}

var errInjected = errors.New("injected")

type failingStore struct {
	*blobstore.MemoryStore
	failChunks atomic.Bool
	// failCurrent fails the next CURRENT update; landCurrent writes it first.
	failCurrent atomic.Bool
	landCurrent bool
	// claimManifest makes another writer take the next manifest key first.
	claimManifest atomic.Bool
}

func (s *failingStore) Put(ctx context.Context, name string, data []byte) error {
	if strings.HasSuffix(name, "/CURRENT") && s.failCurrent.CompareAndSwap(true, false) {
		if s.landCurrent {
			if err := s.MemoryStore.Put(ctx, name, data); err != nil {
				return err
			}
		}
		return errInjected
	}
	return s.MemoryStore.Put(ctx, name, data)
}

func (s *failingStore) PutIfNotExists(ctx context.Context, name string, data []byte) error {
	if s.claimManifest.CompareAndSwap(true, false) {
		if err := s.MemoryStore.Put(ctx, name, []byte("{}")); err != nil {
			return err
		}
	}
	return s.MemoryStore.PutIfNotExists(ctx, name, data)
}

func (s *failingStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if s.failChunks.Load() && strings.Contains(name, "/chunks/") {
		return nil, errInjected
	}
	return s.MemoryStore.Create(ctx, name)
}

func TestBackup_FailureKeepsPagesDirty(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	store := &failingStore{MemoryStore: blobstore.NewMemoryStore()}
	snaps := New(store, withChunkSize)

	f := newTestFile(t, platform, "src", testData(4*testChunk), pmemfile.WithDirtyTracking(1024))
	_, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)

	_, err = f.WriteAt([]byte("x"), 2*testChunk)
	require.NoError(t, err)

	store.failChunks.Store(true)
	_, err = snaps.Backup(ctx, f, "db")
	require.ErrorIs(t, err, errInjected)

	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, 2, chunkErr.Index)
	assert.Equal(t, uint64(2), chunkErr.Version)

	latest, err := snaps.Latest(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest.Version)

	store.failChunks.Store(false)
	m, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)
	require.Len(t, m.Uploaded(), 1)
	assert.Equal(t, 2, m.Uploaded()[0].Index)
}

func TestBackup_ConcurrentBackup(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: blobstore.NewMemoryStore()}
	snaps := New(store, withChunkSize)

	f := newTestFile(t, mmap.NewMemoryPlatform(false), "src", testData(2*testChunk), pmemfile.WithDirtyTracking(1024))
	_, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)

	_, err = f.WriteAt([]byte("x"), testChunk)
	require.NoError(t, err)

	// Another writer claims version 2 between listing and committing.
	store.claimManifest.Store(true)
	_, err = snaps.Backup(ctx, f, "db")
	require.ErrorIs(t, err, ErrConcurrentBackup)

	latest, err := snaps.Latest(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest.Version)

	// The next backup moves past the foreign manifest and still knows chunk 1 is dirty.
	m, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), m.Version)
	assert.Equal(t, uint64(1), m.Parent)
	require.Len(t, m.Uploaded(), 1)
	assert.Equal(t, 1, m.Uploaded()[0].Index)
}

func TestBackup_CurrentUpdateFails(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	store := &failingStore{MemoryStore: blobstore.NewMemoryStore()}
	snaps := New(store, withChunkSize)

	f := newTestFile(t, platform, "src", testData(4*testChunk), pmemfile.WithDirtyTracking(1024))
	_, err := snaps.Backup(ctx, f, "x")
	require.NoError(t, err)

	_, err = f.WriteAt([]byte("NEW"), 0)
	require.NoError(t, err)

	store.failCurrent.Store(true)
	_, err = snaps.Backup(ctx, f, "x")
	require.ErrorIs(t, err, errInjected)

	// The uncommitted manifest is gone, so retries are not taken for a race.
	versions, err := snaps.Versions(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, versions)

	for want := uint64(2); want <= 4; want++ {
		m, err := snaps.Backup(ctx, f, "x")
		require.NoError(t, err)
		assert.Equal(t, want, m.Version)
	}

	latest, err := snaps.Latest(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), latest.Version)

	restored, err := snaps.Restore(ctx, "x", "dst", pmemfile.WithPlatform(platform))
	require.NoError(t, err)
	defer restored.Close()
	assert.Equal(t, contents(t, f), contents(t, restored))
}

func TestBackup_CurrentUpdateLandedDespiteError(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: blobstore.NewMemoryStore(), landCurrent: true}
	snaps := New(store, withChunkSize)

	f := newTestFile(t, mmap.NewMemoryPlatform(false), "src", testData(2*testChunk))
	_, err := snaps.Backup(ctx, f, "x")
	require.NoError(t, err)

	store.failCurrent.Store(true)
	m, err := snaps.Backup(ctx, f, "x")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), m.Version)

	latest, err := snaps.Latest(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Version)
}

func TestBackup_OrphanedManifest(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	snaps := New(store, withChunkSize)

	f := newTestFile(t, mmap.NewMemoryPlatform(false), "src", testData(testChunk))
	_, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)

	// A backup that died between its manifest and CURRENT.
	require.NoError(t, store.Put(ctx, "db/MANIFEST-000002", []byte("{}")))
	require.NoError(t, store.Put(ctx, "db/chunks/000002-000000", []byte("partial")))

	_, err = f.WriteAt([]byte("z"), 0)
	require.NoError(t, err)

	m, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), m.Version)

	deleted, err := snaps.Prune(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, 4, deleted)

	names, err := store.List(ctx, "db/")
	require.NoError(t, err)
	assert.Equal(t, []string{"db/CURRENT", "db/MANIFEST-000003", "db/chunks/000003-000000"}, names)
}

func TestBackup_SharedDirtyPages(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	snaps := New(blobstore.NewMemoryStore(), withChunkSize)

	f := newTestFile(t, platform, "src", make([]byte, 2*testChunk), pmemfile.WithDirtyTracking(1024))
	_, err := snaps.Backup(ctx, f, "a")
	require.NoError(t, err)
	_, err = snaps.Backup(ctx, f, "b")
	require.NoError(t, err)

	_, err = f.WriteAt([]byte("NEW"), 0)
	require.NoError(t, err)

	// "a" takes the pages first; "b" must not mistake the empty set for no changes.
	ma, err := snaps.Backup(ctx, f, "a")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ma.Parent)
	mb, err := snaps.Backup(ctx, f, "b")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), mb.Parent)
	assert.Len(t, mb.Uploaded(), 2)

	for _, name := range []string{"a", "b"} {
		restored, err := snaps.Restore(ctx, name, "dst-"+name, pmemfile.WithPlatform(platform))
		require.NoError(t, err)
		got := make([]byte, 3)
		_, err = restored.ReadAt(got, 0)
		require.NoError(t, err)
		assert.Equal(t, "NEW", string(got), name)
		require.NoError(t, restored.Close())
	}

	t.Run("another snapshotter", func(t *testing.T) {
		other := New(snaps.store, withChunkSize)
		_, err := other.Backup(ctx, f, "c")
		require.NoError(t, err)

		_, err = f.WriteAt([]byte("NEWER"), testChunk)
		require.NoError(t, err)
		_, err = other.Backup(ctx, f, "c")
		require.NoError(t, err)

		// The backups of "c" took pages since "b" was last backed up.
		m, err := snaps.Backup(ctx, f, "b")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), m.Parent)
		assert.Len(t, m.Uploaded(), 2)
	})
}

func TestRestore_Corruption(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		corrupt func(t *testing.T, store *blobstore.MemoryStore, c Chunk)
	}{
		{
			name: "flipped byte",
			corrupt: func(t *testing.T, store *blobstore.MemoryStore, c Chunk) {
				data := make([]byte, c.StoredSize)
				data[0] = 1
				require.NoError(t, store.Put(ctx, c.Blob, data))
			},
		},
		{
			name: "truncated",
			corrupt: func(t *testing.T, store *blobstore.MemoryStore, c Chunk) {
				require.NoError(t, store.Put(ctx, c.Blob, make([]byte, c.StoredSize-1)))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := mmap.NewMemoryPlatform(false)
			store := blobstore.NewMemoryStore()
			snaps := New(store, withChunkSize, func(o *Options) {
				o.Compression = CompressionNone
			})

			f := newTestFile(t, platform, "src", testData(2*testChunk))
			m, err := snaps.Backup(ctx, f, "db")
			require.NoError(t, err)

			tt.corrupt(t, store, m.Chunks[1])

			_, err = snaps.Restore(ctx, "db", "dst", pmemfile.WithPlatform(platform))
			require.ErrorIs(t, err, ErrChecksumMismatch)

			_, err = pmemfile.Open("dst", pmemfile.WithPlatform(platform))
			assert.ErrorIs(t, err, fs.ErrNotExist, "partial restore must be removed")
		})
	}
}

func TestRestore_ExistingPath(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	snaps := New(blobstore.NewMemoryStore(), withChunkSize)

	f := newTestFile(t, platform, "src", testData(testChunk))
	_, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)

	_, err = snaps.Restore(ctx, "db", "src", pmemfile.WithPlatform(platform))
	require.ErrorIs(t, err, fs.ErrExist)
	assert.Equal(t, int64(testChunk), f.Size(), "existing file is untouched")
}

func TestRestore_RestoredFileIsBase(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	snaps := New(blobstore.NewMemoryStore(), withChunkSize)

	f := newTestFile(t, platform, "src", testData(4*testChunk), pmemfile.WithDirtyTracking(1024))
	_, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)

	restored, err := snaps.Restore(ctx, "db", "dst", pmemfile.WithPlatform(platform), pmemfile.WithDirtyTracking(1024))
	require.NoError(t, err)
	defer restored.Close()

	_, err = restored.WriteAt([]byte("y"), testChunk)
	require.NoError(t, err)

	m, err := snaps.Backup(ctx, restored, "db")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Parent)
	require.Len(t, m.Uploaded(), 1)
	assert.Equal(t, 1, m.Uploaded()[0].Index)
}

func TestLatest_NoSnapshot(t *testing.T) {
	snaps := New(blobstore.NewMemoryStore())

	_, err := snaps.Latest(context.Background(), "db")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = snaps.Restore(context.Background(), "db", "dst")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = snaps.Manifest(context.Background(), "db", 7)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = snaps.Prune(context.Background(), "db")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLatest_IncompatibleVersion(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	snaps := New(store)

	require.NoError(t, store.Put(ctx, "db/MANIFEST-000001", []byte(`{"format_version":99,"name":"db","version":1}`)))
	require.NoError(t, store.Put(ctx, "db/CURRENT", []byte("db/MANIFEST-000001")))

	_, err := snaps.Latest(ctx, "db")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)

	require.NoError(t, store.Put(ctx, "db/CURRENT", []byte("elsewhere")))
	_, err = snaps.Latest(ctx, "db")
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	store := blobstore.NewMemoryStore()
	snaps := New(store, withChunkSize)

	f := newTestFile(t, platform, "src", testData(2*testChunk), pmemfile.WithDirtyTracking(1024))
	for range 2 {
		_, err := snaps.Backup(ctx, f, "db")
		require.NoError(t, err)
		_, err = f.WriteAt([]byte("z"), 0)
		require.NoError(t, err)
	}
	m, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)
	require.Equal(t, uint64(3), m.Version)

	// A nested snapshot and a backup in progress must survive.
	g := newTestFile(t, platform, "nested", testData(testChunk))
	_, err = snaps.Backup(ctx, g, "db/nested")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "db/chunks/000004-000000", []byte("pending")))

	versions, err := snaps.Versions(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, versions)

	// Version 1 chunk 1 is still referenced; manifests 1 and 2 and the two
	// rewritten chunk-0 blobs are not.
	deleted, err := snaps.Prune(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, 4, deleted)

	names, err := store.List(ctx, "db/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"db/CURRENT",
		"db/MANIFEST-000003",
		"db/chunks/000001-000001",
		"db/chunks/000003-000000",
		"db/chunks/000004-000000",
		"db/nested/CURRENT",
		"db/nested/MANIFEST-000001",
		"db/nested/chunks/000001-000000",
	}, names)

	restored, err := snaps.Restore(ctx, "db", "dst", pmemfile.WithPlatform(platform))
	require.NoError(t, err)
	defer restored.Close()
	assert.Equal(t, contents(t, f), contents(t, restored))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	platform := mmap.NewMemoryPlatform(false)
	store := blobstore.NewMemoryStore()
	snaps := New(store, withChunkSize)

	f := newTestFile(t, platform, "src", testData(2*testChunk))
	_, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)

	deleted, err := snaps.Delete(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	_, err = snaps.Latest(ctx, "db")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	m, err := snaps.Backup(ctx, f, "db")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Version)
}

func TestLocalStoreWithController(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	rc := resource.NewController(resource.Config{
		MaxBackgroundWorkers: 4,
		IOLimitBytesPerSec:   64 << 20,
	})
	snaps := New(blobstore.NewLocalStore(filepath.Join(dir, "backups")), withChunkSize, func(o *Options) {
		o.Controller = rc
		o.Compression = CompressionLZ4
		o.Codec = codec.JSON{}
	})

	data := testData(8*testChunk + 7)
	f, err := pmemfile.Create(filepath.Join(dir, "src"), int64(len(data)))
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteAt(data, 0)
	require.NoError(t, err)

	m, err := snaps.Backup(ctx, f, "regions/r0")
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4, m.Chunks[5].Compression)

	restored, err := snaps.Restore(ctx, "regions/r0", filepath.Join(dir, "dst"))
	require.NoError(t, err)
	defer restored.Close()
	assert.Equal(t, data, contents(t, restored))
}

func TestInvalidName(t *testing.T) {
	snaps := New(blobstore.NewMemoryStore())
	f := newTestFile(t, mmap.NewMemoryPlatform(false), "src", testData(64))

	for _, name := range []string{"", ".", "/db", "db/", "db/../x", "../db", "db//x", "db/CURRENT", "chunks", "db/MANIFEST-1"} {
		t.Run(name, func(t *testing.T) {
			_, err := snaps.Backup(context.Background(), f, name)
			assert.ErrorIs(t, err, ErrInvalidName)
			_, err = snaps.Latest(context.Background(), name)
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestKeyVersion(t *testing.T) {
	tests := []struct {
		key     string
		version uint64
		ok      bool
	}{
		{"db/MANIFEST-000012", 12, true},
		{"db/chunks/000003-000001", 3, true},
		{"db/CURRENT", 0, false},
		{"db/nested/MANIFEST-000001", 0, false},
		{"db/chunks/000003", 0, false},
		{"db/chunks/000003-1/x", 0, false},
		{"db/MANIFEST-x", 0, false},
		{"other/MANIFEST-000001", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v, ok := keyVersion("db", tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.version, v)
		})
	}
}
