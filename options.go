package pmemfile

import (
	"log/slog"
	"os"

	"github.com/hupe1980/pmemfile/internal/fs"
	"github.com/hupe1980/pmemfile/internal/mmap"
	"github.com/hupe1980/pmemfile/resource"
)

const (
	// DefaultPerm is the permission used for files made by Create (before umask).
	DefaultPerm os.FileMode = 0o666
)

type options struct {
	platform         mmap.Platform
	fileSystem       fs.FileSystem
	controller       *resource.Controller
	logger           *Logger
	metricsCollector MetricsCollector
	perm             os.FileMode
	dirtyPageSize    int
}

// Option configures Create and Open.
type Option func(*options)

// WithPlatform sets the native capabilities the file is built on.
// It takes precedence over WithFileSystem.
//
// If nil is passed, the native platform is used.
func WithPlatform(p mmap.Platform) Option {
	return func(o *options) {
		o.platform = p
	}
}

// WithFileSystem routes the native platform's file operations through fsys.
// Useful for fault injection with fs.FaultyFS.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fileSystem = fsys
	}
}

// WithResourceController shares a mapped-bytes budget across files.
// Each mapping reserves its length until it is closed.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithMappedLimit bounds the bytes this file may map with a private controller.
// Use WithResourceController to share a limit between files.
func WithMappedLimit(bytes int64) Option {
	return func(o *options) {
		o.controller = resource.NewController(resource.Config{
			MappedLimitBytes: bytes,
		})
	}
}

// WithLogger sets a custom logger for the file.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel enables text logging to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets a custom metrics collector.
//
// If nil is passed, metrics are disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithPerm sets the permission bits for a newly created file.
func WithPerm(perm os.FileMode) Option {
	return func(o *options) {
		o.perm = perm
	}
}

// WithDirtyTracking sets the granularity at which successful writes are
// recorded as dirty pages. The default is the OS page size; a pageSize <= 0
// disables tracking.
func WithDirtyTracking(pageSize int) Option {
	return func(o *options) {
		o.dirtyPageSize = pageSize
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		perm:             DefaultPerm,
		dirtyPageSize:    os.Getpagesize(),
	}

	for _, fn := range optFns {
		fn(&o)
	}

	if o.platform == nil {
		if o.fileSystem != nil {
			o.platform = mmap.NewPlatform(o.fileSystem)
		} else {
			o.platform = mmap.Default
		}
	}

	return o
}
