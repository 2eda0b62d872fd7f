package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMappedLimitExceeded is returned when a mapping would exceed the mapped-bytes limit.
var ErrMappedLimitExceeded = errors.New("mapped bytes limit exceeded")

// Config holds resource limits.
type Config struct {
	// MappedLimitBytes is the hard limit for bytes mapped at the same time.
	// If 0, no hard limit is enforced (only tracking).
	MappedLimitBytes int64

	// MaxBackgroundWorkers is the maximum number of concurrent background jobs
	// (snapshot chunk transfers).
	// If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec is the maximum IO throughput for background tasks.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages process-wide resources (mapped address space, concurrency, IO).
type Controller struct {
	cfg Config

	// Mapped address space
	mapSem  *semaphore.Weighted // nil if unlimited
	mapUsed atomic.Int64

	// Concurrency
	bgSem *semaphore.Weighted

	// IO
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.MappedLimitBytes > 0 {
		c.mapSem = semaphore.NewWeighted(cfg.MappedLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireMapping reserves bytes of mapped address space.
// Returns ErrMappedLimitExceeded if the limit would be exceeded.
// Non-blocking - callers control retry/backoff policy.
func (c *Controller) AcquireMapping(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.mapSem != nil {
		if !c.mapSem.TryAcquire(bytes) {
			return ErrMappedLimitExceeded
		}
	}

	c.mapUsed.Add(bytes)
	return nil
}

// ReleaseMapping returns bytes reserved by AcquireMapping.
func (c *Controller) ReleaseMapping(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.mapSem != nil {
		c.mapSem.Release(bytes)
	}
	c.mapUsed.Add(-bytes)
}

// MappedUsage returns the number of bytes currently mapped.
func (c *Controller) MappedUsage() int64 {
	if c == nil {
		return 0
	}
	return c.mapUsed.Load()
}

// MappedLimit returns the configured mapped-bytes limit (0 if unlimited).
func (c *Controller) MappedLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MappedLimitBytes
}

// Workers returns the number of background worker slots.
func (c *Controller) Workers() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxBackgroundWorkers)
}

// AcquireBackground reserves a background worker slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireBackground attempts to reserve a background worker slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil {
		return true
	}
	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground releases a background worker slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than the burst are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// TryAcquireIO attempts to acquire IO tokens without blocking.
// Returns true if tokens were acquired, false otherwise.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.ioLimiter == nil {
		return true
	}
	return c.ioLimiter.AllowN(time.Now(), bytes)
}
