package storage

import (
	"sync"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/disk"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

var ErrUnknownVolume = errors.New("storage: unknown volume handle")

// Volume is an open handle to a named page container.
type Volume interface {
	ID() common.FileID
	Name() string
	FirstPage() (common.PageID, error)
}

type volume struct {
	file *disk.File
	disk *disk.Manager[*page.SlottedPage]
}

var (
	_ Volume = &volume{}
)

func (v *volume) ID() common.FileID {
	return v.file.ID()
}

func (v *volume) Name() string {
	return v.file.Name()
}

func (v *volume) FirstPage() (common.PageID, error) {
	return v.disk.FirstPage(v.file.ID())
}

// Volumes opens and closes volumes on disk and keeps the buffer pool
// consistent with them: a file's cached pages are written back and dropped
// before its OS file is closed.
type Volumes struct {
	mu   sync.Mutex
	disk *disk.Manager[*page.SlottedPage]
	pool *bufferpool.Manager[*page.SlottedPage]
}

func NewVolumes(
	diskManager *disk.Manager[*page.SlottedPage],
	pool *bufferpool.Manager[*page.SlottedPage],
) *Volumes {
	return &Volumes{
		disk: diskManager,
		pool: pool,
	}
}

func (v *Volumes) CreateFile(name string) error {
	return v.disk.CreateFile(name)
}

func (v *Volumes) OpenFile(name string) (Volume, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	f, err := v.disk.OpenFile(name)
	if err != nil {
		return nil, err
	}

	return &volume{file: f, disk: v.disk}, nil
}

// CloseFile releases one opener of the volume. If the flush of the last
// opener fails, the volume stays open so that no dirty page outlives its
// file.
func (v *Volumes) CloseFile(vol Volume) error {
	h, ok := vol.(*volume)
	if !ok || h.disk != v.disk {
		return ErrUnknownVolume
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.disk.RefCount(h.ID()) == 1 {
		if err := v.pool.FlushFile(h.ID()); err != nil {
			return errors.Wrapf(err, "flush %q", h.Name())
		}
	}

	return v.disk.CloseFile(h.file)
}

func (v *Volumes) DestroyFile(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.disk.DestroyFile(name)
}
