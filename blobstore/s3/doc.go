// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.NewStoreFromConfig(ctx, "my-bucket", "snapshots/",
//	    config.WithRegion("us-east-1"),
//	)
//
//	snap := snapshot.New(store)
//	manifest, err := snap.Backup(ctx, f, "orders")
//
// For multiple concurrent writers, wrap the store in a DDBCommitStore so that
// CURRENT pointers are committed with DynamoDB conditional writes.
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large chunks
//   - CRC32C checksums on uploads
//   - Conditional writes (PutIfNotExists)
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
