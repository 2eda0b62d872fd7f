package pmemfile

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordMap is called after each Create or Open.
	// size is the mapped length (0 on failure), pmem reports a true pmem mapping.
	RecordMap(size int64, pmem bool, duration time.Duration, err error)

	// RecordRead is called after each ReadAt.
	RecordRead(n int, duration time.Duration, err error)

	// RecordWrite is called after each WriteAt; duration includes the durability step.
	RecordWrite(n int, duration time.Duration, err error)

	// RecordUnmap is called when a mapping is released.
	RecordUnmap(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordMap(int64, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordRead(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordWrite(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordUnmap(time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	MapCount        atomic.Int64
	MapErrors       atomic.Int64
	PmemMaps        atomic.Int64
	MappedBytes     atomic.Int64
	ReadCount       atomic.Int64
	ReadErrors      atomic.Int64
	ReadBytes       atomic.Int64
	ReadTotalNanos  atomic.Int64
	WriteCount      atomic.Int64
	WriteErrors     atomic.Int64
	WriteBytes      atomic.Int64
	WriteTotalNanos atomic.Int64
	UnmapCount      atomic.Int64
	UnmapErrors     atomic.Int64
}

// RecordMap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMap(size int64, pmem bool, _ time.Duration, err error) {
	b.MapCount.Add(1)
	if err != nil {
		b.MapErrors.Add(1)
		return
	}
	b.MappedBytes.Add(size)
	if pmem {
		b.PmemMaps.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(n int, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadBytes.Add(int64(n))
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(n int, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteBytes.Add(int64(n))
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
	}
}

// RecordUnmap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnmap(_ time.Duration, err error) {
	b.UnmapCount.Add(1)
	if err != nil {
		b.UnmapErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		MapCount:      b.MapCount.Load(),
		MapErrors:     b.MapErrors.Load(),
		PmemMaps:      b.PmemMaps.Load(),
		MappedBytes:   b.MappedBytes.Load(),
		ReadCount:     b.ReadCount.Load(),
		ReadErrors:    b.ReadErrors.Load(),
		ReadBytes:     b.ReadBytes.Load(),
		ReadAvgNanos:  avg(b.ReadTotalNanos.Load(), b.ReadCount.Load()),
		WriteCount:    b.WriteCount.Load(),
		WriteErrors:   b.WriteErrors.Load(),
		WriteBytes:    b.WriteBytes.Load(),
		WriteAvgNanos: avg(b.WriteTotalNanos.Load(), b.WriteCount.Load()),
		UnmapCount:    b.UnmapCount.Load(),
		UnmapErrors:   b.UnmapErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	MapCount      int64
	MapErrors     int64
	PmemMaps      int64
	MappedBytes   int64
	ReadCount     int64
	ReadErrors    int64
	ReadBytes     int64
	ReadAvgNanos  int64
	WriteCount    int64
	WriteErrors   int64
	WriteBytes    int64
	WriteAvgNanos int64
	UnmapCount    int64
	UnmapErrors   int64
}
