package app

import (
	"github.com/go-faster/errors"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/cfg"
	"github.com/Blackdeer1524/HeapDB/src/heapfile"
	"github.com/Blackdeer1524/HeapDB/src/storage"
	"github.com/Blackdeer1524/HeapDB/src/storage/disk"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

// Engine is the storage stack behind heap files: disk manager, buffer pool
// and the volume table that ties them together.
type Engine struct {
	Config cfg.Config
	Log    src.Logger

	Disk    *disk.Manager[*page.SlottedPage]
	Pool    *bufferpool.Manager[*page.SlottedPage]
	Volumes *storage.Volumes
	Files   *heapfile.Manager
}

func NewEngine(config cfg.Config, fs afero.Fs, log src.Logger) (*Engine, error) {
	diskManager := disk.New(config.DataDir, page.NewSlottedPage, fs)

	pool, err := bufferpool.New[*page.SlottedPage](
		config.PoolSize,
		bufferpool.NewLRUReplacer(),
		diskManager,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create buffer pool")
	}

	volumes := storage.NewVolumes(diskManager, pool)

	return &Engine{
		Config:  config,
		Log:     log,
		Disk:    diskManager,
		Pool:    pool,
		Volumes: volumes,
		Files:   heapfile.NewManager(volumes, pool, log),
	}, nil
}

// Close writes back pages still cached for open volumes. Heap files must be
// closed before.
func (e *Engine) Close() error {
	var err error

	if pinned := e.Pool.PinnedPages(); pinned > 0 {
		e.Log.Warnw("closing engine with pinned pages", "pinned", pinned)
	}

	if flushErr := e.Pool.FlushAllPages(); flushErr != nil {
		e.Log.Errorw("failed to flush buffer pool", "error", flushErr)
		err = multierr.Append(err, flushErr)
	}

	return err
}

func NewLogger(env cfg.Environment) (src.Logger, error) {
	var (
		log *zap.Logger
		err error
	)

	if env == cfg.EnvDev {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}

	return log.Sugar(), nil
}
