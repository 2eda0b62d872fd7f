// Package resource implements the Controller for process-wide limits.
//
// The Controller manages three resource types:
//
//   - Mapped address space: budget for bytes mapped by open pmem files (fail-fast)
//   - Concurrency: limit for background workers (snapshot chunk transfers)
//   - IO: rate limit for background IO so snapshots do not starve foreground writes
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Mapped Limit   │  Background     │  IO Rate Limiter        │
//	│  (fail-fast)    │  Workers (sem)  │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMapping │  AcquireBack-   │  AcquireIO              │
//	│  ReleaseMapping │  ground         │  TryAcquireIO           │
//	│  MappedUsage    │  TryAcquire     │                         │
//	│                 │  Release        │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Mapped Address Space
//
// Create and Open reserve the mapped length before mapping and release it on
// unmap. AcquireMapping is non-blocking and returns ErrMappedLimitExceeded
// immediately:
//
//	rc := resource.NewController(resource.Config{
//	    MappedLimitBytes: 64 << 30, // 64GB of mappings
//	})
//
//	if err := rc.AcquireMapping(size); err != nil {
//	    // ErrMappedLimitExceeded - caller decides retry/backoff
//	}
//	defer rc.ReleaseMapping(size)
//
// # Background Worker Limits
//
//	rc := resource.NewController(resource.Config{
//	    MaxBackgroundWorkers: 4,
//	})
//
//	if err := rc.AcquireBackground(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackground()
//
// # IO Rate Limiting
//
// Token bucket limiter; requests larger than one second of budget are split:
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 * 1024 * 1024, // 100MB/s
//	})
//
//	if err := rc.AcquireIO(ctx, len(chunk)); err != nil {
//	    return err
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
