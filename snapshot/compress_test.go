package snapshot

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pmemfile/codec"
)

func TestCompressChunk(t *testing.T) {
	compressible := bytes.Repeat([]byte("persistent memory "), 512)
	random := make([]byte, 8192)
	_, _ = rand.Read(random)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			stored, used, err := compressChunk(compressible, c)
			require.NoError(t, err)
			assert.Equal(t, c, used)
			if c != CompressionNone {
				assert.Less(t, len(stored), len(compressible))
			}

			out, err := decompressChunk(stored, used, len(compressible))
			require.NoError(t, err)
			assert.Equal(t, compressible, out)

			stored, used, err = compressChunk(random, c)
			require.NoError(t, err)
			assert.Equal(t, CompressionNone, used, "incompressible data is stored raw")
			assert.Equal(t, random, stored)
		})
	}
}

func TestDecompressChunk_Errors(t *testing.T) {
	_, err := decompressChunk([]byte("abc"), CompressionNone, 4)
	assert.Error(t, err)

	_, err = decompressChunk([]byte("not zstd"), CompressionZSTD, 8)
	assert.Error(t, err)

	stored, _, err := compressChunk(bytes.Repeat([]byte("a"), 1024), CompressionLZ4)
	require.NoError(t, err)
	_, err = decompressChunk(stored, CompressionLZ4, 512)
	assert.Error(t, err)

	_, err = decompressChunk(nil, Compression(9), 0)
	assert.ErrorIs(t, err, errUnknownCompression)

	_, _, err = compressChunk([]byte("x"), Compression(9))
	assert.ErrorIs(t, err, errUnknownCompression)
}

func TestCompression_Text(t *testing.T) {
	type wrapper struct {
		C Compression `json:"c"`
	}

	for _, cd := range []codec.Codec{codec.GoJSON{}, codec.JSON{}} {
		t.Run(cd.Name(), func(t *testing.T) {
			data, err := cd.Marshal(wrapper{C: CompressionLZ4})
			require.NoError(t, err)
			assert.JSONEq(t, `{"c":"lz4"}`, string(data))

			var w wrapper
			require.NoError(t, cd.Unmarshal([]byte(`{"c":"zstd"}`), &w))
			assert.Equal(t, CompressionZSTD, w.C)

			assert.Error(t, cd.Unmarshal([]byte(`{"c":"snappy"}`), &w))
		})
	}

	_, err := Compression(7).MarshalText()
	assert.ErrorIs(t, err, errUnknownCompression)
	assert.Equal(t, "compression(7)", Compression(7).String())
}
