package simplefs

import (
	"github.com/block-fs/simplefs/disk"
	"github.com/block-fs/simplefs/errors"
	"github.com/block-fs/simplefs/layout"
)

// defaultDirectoryFanout is used by NewConfig when no WithDirectoryFanout
// option is given: 0 means "accept whatever the block size yields".
const defaultDirectoryFanout = 0

// Config collects the parameters a caller needs to open or create a
// SimpleFS disk image: the backing path and the on-disk geometry. It is
// built with NewConfig and a chain of Option values rather than a struct
// literal so that callers only ever spell out the fields they care about,
// the way a disk.Init or fs.Format call site would.
type Config struct {
	Path            string
	BlockSize       int
	NumBlocks       int
	DirectoryFanout int
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithPath sets the backing file path.
func WithPath(path string) Option {
	return func(cfg *Config) { cfg.Path = path }
}

// WithBlockSize sets the block payload size in bytes.
func WithBlockSize(n int) Option {
	return func(cfg *Config) { cfg.BlockSize = n }
}

// WithNumBlocks sets the number of blocks in the data area.
func WithNumBlocks(n int) Option {
	return func(cfg *Config) { cfg.NumBlocks = n }
}

// WithDirectoryFanout constrains the minimum number of directory-entry
// slots a first directory block must provide for the given block size, as
// a sanity check against the geometry actually yielding what the caller
// expects. Leaving it unset (or zero) skips the check.
func WithDirectoryFanout(n int) Option {
	return func(cfg *Config) { cfg.DirectoryFanout = n }
}

// NewConfig applies opts over a Config with SimpleFS's small-profile
// defaults and returns the result. It performs no I/O and cannot fail;
// OpenDriver is where geometry gets validated.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		BlockSize:       512,
		NumBlocks:       2048,
		DirectoryFanout: defaultDirectoryFanout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// OpenDriver validates the configured geometry and opens (creating if
// necessary) the disk driver backing it, the way disk.Init does, but with
// the directory fan-out sanity check layered on top.
func (cfg Config) OpenDriver() (*disk.Driver, error) {
	l, err := layout.New(cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	if cfg.DirectoryFanout > 0 && l.FirstDirectoryEntryCount() < cfg.DirectoryFanout {
		return nil, errors.ErrInvalidArgs.WithMessage(
			"block size too small for the requested directory fan-out")
	}
	if cfg.Path == "" {
		return nil, errors.ErrInvalidArgs.WithMessage("missing backing path")
	}

	return disk.Init(cfg.Path, cfg.NumBlocks, cfg.BlockSize)
}

// Open opens this Config's driver and binds a filesystem to it, formatting
// it first if it is unformatted. It is the Config-driven equivalent of
// calling disk.Init followed by simplefs.Init.
func (cfg Config) Open() (*FS, *DirectoryHandle, error) {
	d, err := cfg.OpenDriver()
	if err != nil {
		return nil, nil, err
	}
	return Init(d)
}
