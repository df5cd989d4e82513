package storage

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/disk"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

func setupVolumes(t *testing.T, poolSize uint64) (*Volumes, *bufferpool.Manager[*page.SlottedPage]) {
	t.Helper()

	dm := disk.New("/data", page.NewSlottedPage, afero.NewMemMapFs())

	pool, err := bufferpool.New[*page.SlottedPage](poolSize, bufferpool.NewLRUReplacer(), dm)
	require.NoError(t, err)

	return NewVolumes(dm, pool), pool
}

func TestVolumes_OpenSharesFileID(t *testing.T) {
	vols, _ := setupVolumes(t, 4)

	require.NoError(t, vols.CreateFile("a"))

	v1, err := vols.OpenFile("a")
	require.NoError(t, err)
	v2, err := vols.OpenFile("a")
	require.NoError(t, err)

	assert.Equal(t, v1.ID(), v2.ID())
	assert.Equal(t, "a", v1.Name())

	_, err = v1.FirstPage()
	require.ErrorIs(t, err, disk.ErrNoPages)

	require.NoError(t, vols.CloseFile(v1))
	require.NoError(t, vols.CloseFile(v2))
}

func TestVolumes_LastCloseFlushesPages(t *testing.T) {
	vols, pool := setupVolumes(t, 4)

	require.NoError(t, vols.CreateFile("a"))

	v, err := vols.OpenFile("a")
	require.NoError(t, err)

	ident, p, err := pool.AllocPage(v.ID())
	require.NoError(t, err)
	p.Init(ident.PageID)
	_, err = p.InsertRecord([]byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(ident, true))

	first, err := v.FirstPage()
	require.NoError(t, err)
	assert.Equal(t, ident.PageID, first)

	require.NoError(t, vols.CloseFile(v))

	_, resident := pool.PinCount(ident)
	assert.False(t, resident)

	v, err = vols.OpenFile("a")
	require.NoError(t, err)

	reopened := common.PageIdentity{FileID: v.ID(), PageID: first}
	p, err = pool.GetPage(reopened)
	require.NoError(t, err)

	rec, err := p.GetRecord(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), rec)

	require.NoError(t, pool.Unpin(reopened, false))
	require.NoError(t, vols.CloseFile(v))
}

func TestVolumes_CloseWithPinnedPageKeepsFileOpen(t *testing.T) {
	vols, pool := setupVolumes(t, 4)

	require.NoError(t, vols.CreateFile("a"))

	v, err := vols.OpenFile("a")
	require.NoError(t, err)

	ident, _, err := pool.AllocPage(v.ID())
	require.NoError(t, err)

	err = vols.CloseFile(v)
	require.ErrorIs(t, err, bufferpool.ErrPagePinned)

	err = vols.DestroyFile("a")
	require.ErrorIs(t, err, disk.ErrFileOpen)

	require.NoError(t, pool.Unpin(ident, false))
	require.NoError(t, vols.CloseFile(v))
	require.NoError(t, vols.DestroyFile("a"))

	_, err = vols.OpenFile("a")
	require.ErrorIs(t, err, disk.ErrFileNotFound)
}

type foreignVolume struct{}

func (foreignVolume) ID() common.FileID                 { return 1 }
func (foreignVolume) Name() string                      { return "foreign" }
func (foreignVolume) FirstPage() (common.PageID, error) { return common.NilPageID, nil }

func TestVolumes_CloseForeignHandle(t *testing.T) {
	vols, _ := setupVolumes(t, 1)

	err := vols.CloseFile(foreignVolume{})
	require.ErrorIs(t, err, ErrUnknownVolume)
}
