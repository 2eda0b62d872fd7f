// Package hash provides checksums for snapshot chunk integrity.
//
// # CRC32-Castagnoli (CRC32C)
//
// Snapshot chunks are checksummed with CRC32-Castagnoli, computed over the raw
// (uncompressed) bytes read from the pmem file and verified after
// decompression on restore. The same polynomial is what S3 uses for its
// CRC32C object checksums, so blob uploads can reuse it.
//
// The implementation is github.com/klauspost/crc32, a drop-in replacement of
// hash/crc32 with faster hardware paths (SSE4.2/AVX512 on x86, CRC on ARM).
//
// # Usage
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
