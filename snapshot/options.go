package snapshot

import (
	"log/slog"

	"github.com/hupe1980/pmemfile/codec"
	"github.com/hupe1980/pmemfile/resource"
)

// Options configures a Snapshotter.
type Options struct {
	// ChunkSize is the number of file bytes stored per chunk blob.
	// Smaller chunks make incremental backups finer grained at the cost of more blobs.
	ChunkSize int64

	// Compression is the preferred chunk compression. Chunks that do not
	// compress well are stored raw regardless.
	Compression Compression

	// Codec encodes manifests.
	Codec codec.Codec

	// Controller bounds concurrent chunk transfers (MaxBackgroundWorkers) and
	// throttles their IO (IOLimitBytesPerSec). nil means one worker, unthrottled.
	Controller *resource.Controller

	// Logger receives backup, restore and prune events.
	Logger *slog.Logger
}

// DefaultOptions are the options New starts from.
var DefaultOptions = Options{
	ChunkSize:   1 << 20, // 1 MiB
	Compression: CompressionZSTD,
	Codec:       codec.Default,
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions.ChunkSize
	}
	if opts.Codec == nil {
		opts.Codec = DefaultOptions.Codec
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return opts
}
