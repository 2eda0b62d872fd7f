// Package snapshot backs up persistent-memory files to a blob store and
// restores them.
//
// A file is split into fixed-size chunks. Each chunk is checksummed with
// CRC32C, compressed (zstd by default, or LZ4) and stored as its own blob.
// A manifest lists the chunks of one version, and a CURRENT blob names the
// latest manifest:
//
//	<name>/CURRENT
//	<name>/MANIFEST-000002
//	<name>/chunks/000001-000000
//	<name>/chunks/000002-000003
//
// # Incremental backups
//
// A pmemfile.File records which pages were written. Backing up the same
// handle again uploads only the chunks that overlap written pages; the
// manifest refers to blobs of earlier versions for the rest. Restoring a
// file makes it the base of the next incremental backup. The written pages
// are shared by all consumers of a file, so backing one file up under
// several names, or through several Snapshotters, makes each of those
// backups full.
//
//	snaps := snapshot.New(blobstore.NewLocalStore("/backups"))
//	m, err := snaps.Backup(ctx, f, "region0")
//	...
//	f2, err := snaps.Restore(ctx, "region0", "/mnt/pmem0/region0")
//
// Prune removes blobs the latest manifest no longer references.
//
// # Resource limits
//
// With Options.Controller set, chunk transfers run on at most
// MaxBackgroundWorkers goroutines and their bytes are charged against the
// controller's IO rate.
//
// # Consistency
//
// A backup reads the file while writers may still be active. Pages written
// during a backup stay dirty and are included in the next one.
package snapshot
