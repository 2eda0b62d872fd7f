package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
	"weak"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/pmemfile"
	"github.com/hupe1980/pmemfile/blobstore"
	"github.com/hupe1980/pmemfile/internal/conv"
	"github.com/hupe1980/pmemfile/internal/hash"
	"github.com/hupe1980/pmemfile/resource"
)

// Snapshotter copies persistent-memory files to a blob store and back.
//
// Backups of the same Snapshotter are serialized. Backups of one name from
// several processes are detected through conditional manifest writes where
// the store supports them, but are not otherwise coordinated.
type Snapshotter struct {
	store blobstore.BlobStore
	opts  Options

	// opMu serializes Backup, Prune and Delete.
	opMu sync.Mutex

	trackMu sync.Mutex
	tracked map[string]base
}

// base is the handle, version and dirty-page generation a name's next
// incremental backup is relative to.
type base struct {
	file    weak.Pointer[pmemfile.File]
	version uint64
	gen     uint64
}

// New creates a Snapshotter on store.
func New(store blobstore.BlobStore, optFns ...func(o *Options)) *Snapshotter {
	return &Snapshotter{
		store:   store,
		opts:    applyOptions(optFns),
		tracked: make(map[string]base),
	}
}

// Backup stores the contents of f as the next snapshot version of name.
//
// The first backup of a name through a handle copies every chunk. Later
// backups through the same handle upload only chunks containing pages
// written since the previous backup and refer to the earlier blobs for the
// rest. Any other consumer of the file's dirty pages in between, such as a
// backup under another name or by another Snapshotter, makes the next backup
// full. If the backup fails, the pages it took are returned to the file.
func (s *Snapshotter) Backup(ctx context.Context, f *pmemfile.File, name string) (*Manifest, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	start := time.Now()
	logger := s.opts.Logger.With("name", name, "path", f.Path())

	dirty, gen := f.TakeDirtyPagesWithGeneration()
	m, err := s.backup(ctx, f, name, dirty, gen)
	if err != nil {
		f.ReturnDirtyPages(dirty, gen)
		logger.Error("snapshot backup failed", "error", err)
		return nil, err
	}

	logger.Info("snapshot committed",
		"version", m.Version,
		"parent", m.Parent,
		"chunks", len(m.Chunks),
		"uploaded", len(m.Uploaded()),
		"stored_bytes", m.StoredSize(),
		"duration", time.Since(start),
	)
	return m, nil
}

func (s *Snapshotter) backup(ctx context.Context, f *pmemfile.File, name string, dirty *roaring.Bitmap, gen uint64) (*Manifest, error) {
	prev, err := s.Latest(ctx, name)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return nil, err
	}

	// Manifests above CURRENT are left by backups that died before updating
	// it; the new version goes past them.
	versions, err := s.Versions(ctx, name)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		FormatVersion: FormatVersion,
		Name:          name,
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		Size:          f.Size(),
		ChunkSize:     s.opts.ChunkSize,
	}

	if n := len(versions); n > 0 {
		m.Version = versions[n-1] + 1
	}

	incremental := false
	if prev != nil {
		m.Version = max(m.Version, prev.Version+1)
		incremental = prev.Size == m.Size && prev.ChunkSize == m.ChunkSize && s.isBase(name, f, prev.Version, gen)
	}
	if incremental {
		m.Parent = prev.Version
	}

	if _, err := conv.ToInt(m.ChunkSize); err != nil {
		return nil, fmt.Errorf("chunk size: %w", err)
	}
	count := int((m.Size + m.ChunkSize - 1) / m.ChunkSize)
	m.Chunks = make([]Chunk, count)
	pageSize := int64(f.DirtyPageSize())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Controller.Workers())

	for i := range m.Chunks {
		off := int64(i) * m.ChunkSize
		length := int(min(m.ChunkSize, m.Size-off))

		if incremental && !isDirty(dirty, pageSize, off, length) {
			m.Chunks[i] = prev.Chunks[i]
			continue
		}

		c := &m.Chunks[i]
		*c = Chunk{Index: i, Offset: off, Length: length, Blob: chunkKey(name, m.Version, i)}
		g.Go(func() error {
			if err := s.uploadChunk(gctx, f, c); err != nil {
				return &ChunkError{Name: name, Version: m.Version, Index: i, cause: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.commit(ctx, m); err != nil {
		return nil, err
	}
	s.setBase(name, f, m.Version, gen)
	return m, nil
}

// isDirty reports whether any page overlapping [off, off+length) is set.
// Without page tracking every range is dirty.
func isDirty(dirty *roaring.Bitmap, pageSize, off int64, length int) bool {
	if pageSize <= 0 {
		return true
	}
	first, err := conv.ToUint32(off / pageSize)
	if err != nil {
		return true
	}
	last, err := conv.ToUint32((off + int64(length) - 1) / pageSize)
	if err != nil {
		return true
	}

	n := dirty.Rank(last)
	if first > 0 {
		n -= dirty.Rank(first - 1)
	}
	return n > 0
}

func (s *Snapshotter) uploadChunk(ctx context.Context, f *pmemfile.File, c *Chunk) error {
	rc := s.opts.Controller
	if err := rc.AcquireBackground(ctx); err != nil {
		return err
	}
	defer rc.ReleaseBackground()

	buf := make([]byte, c.Length)
	if _, err := f.ReadAt(buf, c.Offset); err != nil {
		return err
	}
	c.Checksum = hash.CRC32C(buf)

	data, comp, err := compressChunk(buf, s.opts.Compression)
	if err != nil {
		return err
	}
	c.Compression = comp
	c.StoredSize = int64(len(data))

	w, err := s.store.Create(ctx, c.Blob)
	if err != nil {
		return err
	}
	if _, err := resource.NewRateLimitedWriter(ctx, w, rc).Write(data); err != nil {
		_ = blobstore.Abort(w)
		return err
	}
	return w.Close()
}

// commit writes the manifest and then points CURRENT at it.
func (s *Snapshotter) commit(ctx context.Context, m *Manifest) error {
	data, err := s.opts.Codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	key := manifestKey(m.Name, m.Version)
	if cp, ok := s.store.(blobstore.ConditionalPutter); ok {
		err = cp.PutIfNotExists(ctx, key, data)
	} else {
		err = s.store.Put(ctx, key, data)
	}
	if err != nil {
		if errors.Is(err, blobstore.ErrExist) {
			return fmt.Errorf("%w: %s@%d", ErrConcurrentBackup, m.Name, m.Version)
		}
		return fmt.Errorf("write manifest %s: %w", key, err)
	}

	if err := s.store.Put(ctx, currentKey(m.Name), []byte(key)); err != nil {
		err = fmt.Errorf("update %s: %w", currentKey(m.Name), err)

		// The write may have landed even though it reported an error.
		cleanupCtx := context.WithoutCancel(ctx)
		if cur, cerr := s.current(cleanupCtx, m.Name); cerr == nil && cur == key {
			return nil
		}
		if derr := s.store.Delete(cleanupCtx, key); derr != nil {
			s.opts.Logger.Warn("remove uncommitted manifest", "key", key, "error", derr)
		}
		return err
	}
	return nil
}

// current returns the manifest key CURRENT of name points at.
func (s *Snapshotter) current(ctx context.Context, name string) (string, error) {
	b, err := s.store.Open(ctx, currentKey(name))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNoSnapshot, name)
		}
		return "", err
	}
	data, err := blobstore.ReadAll(ctx, b)
	_ = b.Close()
	if err != nil {
		return "", err
	}

	key := strings.TrimSpace(string(data))
	if _, ok := keyVersion(name, key); !ok || !strings.HasPrefix(key, name+"/"+manifestPrefix) {
		return "", fmt.Errorf("snapshot %s: %s points at %q", name, currentName, key)
	}
	return key, nil
}

// Latest returns the manifest CURRENT points at.
func (s *Snapshotter) Latest(ctx context.Context, name string) (*Manifest, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	key, err := s.current(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, name, key)
}

// Manifest returns a specific snapshot version of name.
func (s *Snapshotter) Manifest(ctx context.Context, name string, version uint64) (*Manifest, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	m, err := s.load(ctx, name, manifestKey(name, version))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s@%d", ErrNoSnapshot, name, version)
	}
	return m, err
}

// Versions returns the versions of name that have a manifest, oldest first.
func (s *Snapshotter) Versions(ctx context.Context, name string) ([]uint64, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	keys, err := s.store.List(ctx, name+"/"+manifestPrefix)
	if err != nil {
		return nil, err
	}

	var versions []uint64
	for _, key := range keys {
		if v, ok := keyVersion(name, key); ok {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

func (s *Snapshotter) load(ctx context.Context, name, key string) (*Manifest, error) {
	b, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", key, err)
	}
	data, err := blobstore.ReadAll(ctx, b)
	_ = b.Close()
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", key, err)
	}

	var m Manifest
	if err := s.opts.Codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", key, err)
	}
	if m.Name != name {
		return nil, fmt.Errorf("manifest %s belongs to %q", key, m.Name)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Restore creates a new file at path holding the latest snapshot of name.
// opts configure the new file as for pmemfile.Create. On failure the
// partially restored file is removed.
func (s *Snapshotter) Restore(ctx context.Context, name, path string, opts ...pmemfile.Option) (*pmemfile.File, error) {
	m, err := s.Latest(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.RestoreManifest(ctx, m, path, opts...)
}

// RestoreManifest creates a new file at path holding the snapshot m describes.
func (s *Snapshotter) RestoreManifest(ctx context.Context, m *Manifest, path string, opts ...pmemfile.Option) (*pmemfile.File, error) {
	start := time.Now()
	logger := s.opts.Logger.With("name", m.Name, "version", m.Version, "path", path)

	f, err := pmemfile.Create(path, m.Size, opts...)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Controller.Workers())

	for _, c := range m.Chunks {
		g.Go(func() error {
			if err := s.restoreChunk(gctx, f, c); err != nil {
				return &ChunkError{Name: m.Name, Version: m.Version, Index: c.Index, cause: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = f.Close()
		if rerr := pmemfile.Remove(path, opts...); rerr != nil {
			logger.Warn("remove partially restored file", "error", rerr)
		}
		logger.Error("snapshot restore failed", "error", err)
		return nil, err
	}

	// The file now matches version m.Version; later writes are relative to it.
	_, gen := f.TakeDirtyPagesWithGeneration()
	s.setBase(m.Name, f, m.Version, gen)

	logger.Info("snapshot restored", "size", m.Size, "chunks", len(m.Chunks), "duration", time.Since(start))
	return f, nil
}

func (s *Snapshotter) restoreChunk(ctx context.Context, f *pmemfile.File, c Chunk) error {
	rc := s.opts.Controller
	if err := rc.AcquireBackground(ctx); err != nil {
		return err
	}
	defer rc.ReleaseBackground()

	b, err := s.store.Open(ctx, c.Blob)
	if err != nil {
		return err
	}
	defer b.Close()

	if b.Size() != c.StoredSize {
		return fmt.Errorf("%w: blob %s has %d bytes, want %d", ErrChecksumMismatch, c.Blob, b.Size(), c.StoredSize)
	}

	stored, err := s.readBlob(ctx, b)
	if err != nil {
		return err
	}

	data, err := decompressChunk(stored, c.Compression, c.Length)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChecksumMismatch, err)
	}
	if sum := hash.CRC32C(data); sum != c.Checksum {
		return fmt.Errorf("%w: blob %s crc32c %08x, want %08x", ErrChecksumMismatch, c.Blob, sum, c.Checksum)
	}

	_, err = f.WriteAt(data, c.Offset)
	return err
}

// readBlob returns the whole blob. Mapped blobs are returned without a copy
// and are only valid until b is closed.
func (s *Snapshotter) readBlob(ctx context.Context, b blobstore.Blob) ([]byte, error) {
	rc := s.opts.Controller

	if mb, ok := b.(blobstore.Mappable); ok {
		if data, err := mb.Bytes(); err == nil {
			if err := rc.AcquireIO(ctx, len(data)); err != nil {
				return nil, err
			}
			return data, nil
		}
	}

	r, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := make([]byte, b.Size())
	if _, err := io.ReadFull(resource.NewRateLimitedReader(ctx, r, rc), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Prune deletes manifests and chunks of name that the latest snapshot does
// not reference. Versions newer than the latest, which may belong to a
// backup in progress elsewhere, are kept. It returns the number of blobs deleted.
func (s *Snapshotter) Prune(ctx context.Context, name string) (int, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	m, err := s.Latest(ctx, name)
	if err != nil {
		return 0, err
	}

	keep := map[string]struct{}{manifestKey(name, m.Version): {}}
	for _, c := range m.Chunks {
		keep[c.Blob] = struct{}{}
	}

	keys, err := s.store.List(ctx, name+"/")
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range keys {
		v, ok := keyVersion(name, key)
		if !ok || v > m.Version {
			continue
		}
		if _, ok := keep[key]; ok {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", key, err)
		}
		deleted++
	}

	s.opts.Logger.Info("snapshot pruned", "name", name, "version", m.Version, "deleted", deleted)
	return deleted, nil
}

// Delete removes every snapshot of name, CURRENT first. It returns the number
// of manifest and chunk blobs deleted.
func (s *Snapshotter) Delete(ctx context.Context, name string) (int, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.store.Delete(ctx, currentKey(name)); err != nil {
		return 0, fmt.Errorf("delete %s: %w", currentKey(name), err)
	}
	s.trackMu.Lock()
	delete(s.tracked, name)
	s.trackMu.Unlock()

	keys, err := s.store.List(ctx, name+"/")
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range keys {
		if _, ok := keyVersion(name, key); !ok {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", key, err)
		}
		deleted++
	}

	s.opts.Logger.Info("snapshot deleted", "name", name, "deleted", deleted)
	return deleted, nil
}

// isBase reports whether the pages of take gen are exactly those written
// since name was last backed up to or restored from version through f.
func (s *Snapshotter) isBase(name string, f *pmemfile.File, version, gen uint64) bool {
	if f.DirtyPageSize() == 0 || gen == 0 {
		return false
	}
	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	b, ok := s.tracked[name]
	return ok && b.version == version && b.gen+1 == gen && b.file.Value() == f
}

func (s *Snapshotter) setBase(name string, f *pmemfile.File, version, gen uint64) {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	s.tracked[name] = base{file: weak.Make(f), version: version, gen: gen}
}
