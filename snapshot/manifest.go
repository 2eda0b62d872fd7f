package snapshot

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	// FormatVersion is the manifest format written by this package.
	FormatVersion = 1

	currentName    = "CURRENT"
	manifestPrefix = "MANIFEST-"
	chunksDir      = "chunks"
)

// Manifest describes one committed snapshot of a file.
type Manifest struct {
	FormatVersion int       `json:"format_version"`
	Name          string    `json:"name"`
	Version       uint64    `json:"version"`
	Parent        uint64    `json:"parent,omitempty"` // 0 for a full snapshot
	CreatedAt     time.Time `json:"created_at"`
	Size          int64     `json:"size"`
	ChunkSize     int64     `json:"chunk_size"`
	Chunks        []Chunk   `json:"chunks"`
}

// Chunk is a contiguous range of the file stored as one blob.
// Chunks of an incremental snapshot may point at blobs of earlier versions.
type Chunk struct {
	Index       int         `json:"index"`
	Offset      int64       `json:"offset"`
	Length      int         `json:"length"`
	Blob        string      `json:"blob"`
	StoredSize  int64       `json:"stored_size"`
	Compression Compression `json:"compression"`
	Checksum    uint32      `json:"crc32c"`
}

// StoredSize returns the total number of bytes the chunks occupy in the store.
func (m *Manifest) StoredSize() int64 {
	var n int64
	for _, c := range m.Chunks {
		n += c.StoredSize
	}
	return n
}

// Uploaded returns the chunks written by this version, as opposed to
// those carried over from its parent.
func (m *Manifest) Uploaded() []Chunk {
	var out []Chunk
	for _, c := range m.Chunks {
		if v, ok := keyVersion(m.Name, c.Blob); ok && v == m.Version {
			out = append(out, c)
		}
	}
	return out
}

func (m *Manifest) validate() error {
	if m.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: %d", ErrIncompatibleVersion, m.FormatVersion)
	}

	var off int64
	for i, c := range m.Chunks {
		if c.Index != i || c.Offset != off || c.Length <= 0 {
			return fmt.Errorf("snapshot %s@%d: malformed chunk %d", m.Name, m.Version, i)
		}
		off += int64(c.Length)
	}
	if off != m.Size {
		return fmt.Errorf("snapshot %s@%d: chunks cover %d of %d bytes", m.Name, m.Version, off, m.Size)
	}
	return nil
}

func currentKey(name string) string {
	return name + "/" + currentName
}

func manifestKey(name string, version uint64) string {
	return fmt.Sprintf("%s/%s%06d", name, manifestPrefix, version)
}

func chunkKey(name string, version uint64, index int) string {
	return fmt.Sprintf("%s/%s/%06d-%06d", name, chunksDir, version, index)
}

// keyVersion returns the version encoded in a manifest or chunk key of name.
// Keys of nested snapshots and CURRENT are not matched.
func keyVersion(name, key string) (uint64, bool) {
	rest, ok := strings.CutPrefix(key, name+"/")
	if !ok {
		return 0, false
	}

	var digits string
	switch {
	case strings.HasPrefix(rest, manifestPrefix):
		digits = rest[len(manifestPrefix):]
	case strings.HasPrefix(rest, chunksDir+"/"):
		rest = rest[len(chunksDir)+1:]
		digits, _, ok = strings.Cut(rest, "-")
		if !ok || strings.Contains(rest, "/") {
			return 0, false
		}
	default:
		return 0, false
	}

	if strings.Contains(digits, "/") {
		return 0, false
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func validateName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || path.Clean(name) != name || name == "." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, elem := range strings.Split(name, "/") {
		if elem == ".." || elem == currentName || elem == chunksDir || strings.HasPrefix(elem, manifestPrefix) {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
