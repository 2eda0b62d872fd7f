// Package minio provides a BlobStore implementation using the MinIO client.
//
// MinIO is an S3-compatible object storage system. This package uses the
// MinIO Go client directly, so it also works against Ceph, SeaweedFS and
// Garage without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minioblob.NewStoreFromEndpoint("localhost:9000", "minioadmin", "minioadmin", false, "backups", "pmem/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	snaps := snapshot.New(store)
//	info, err := snaps.Backup(ctx, "region0", f)
//
// Uploads started with Create stream through an io.Pipe and can be
// cancelled with Abort. Conditional writes are not supported; use the s3
// package when manifests must be written exactly once.
package minio
