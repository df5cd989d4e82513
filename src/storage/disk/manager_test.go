package disk

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

func newTestManager(t *testing.T) (*Manager[*page.SlottedPage], afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	return New("/data", page.NewSlottedPage, fs), fs
}

func TestCreateOpenClose(t *testing.T) {
	m, fs := newTestManager(t)

	require.NoError(t, m.CreateFile("rel"))

	exists, err := afero.Exists(fs, "/data/rel")
	require.NoError(t, err)
	assert.True(t, exists)

	err = m.CreateFile("rel")
	require.ErrorIs(t, err, ErrFileExists)

	f, err := m.OpenFile("rel")
	require.NoError(t, err)
	assert.Equal(t, "rel", f.Name())
	assert.Equal(t, 1, m.RefCount(f.ID()))

	count, err := m.PageCount(f.ID())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	_, err = m.FirstPage(f.ID())
	require.ErrorIs(t, err, ErrNoPages)

	require.NoError(t, m.CloseFile(f))
	assert.Equal(t, 0, m.RefCount(f.ID()))

	err = m.CloseFile(f)
	require.ErrorIs(t, err, ErrFileNotOpen)
}

func TestOpenSharesHandle(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.CreateFile("rel"))

	f1, err := m.OpenFile("rel")
	require.NoError(t, err)
	f2, err := m.OpenFile("rel")
	require.NoError(t, err)

	require.Same(t, f1, f2)
	assert.Equal(t, 2, m.RefCount(f1.ID()))

	require.NoError(t, m.CloseFile(f1))
	assert.Equal(t, 1, m.RefCount(f1.ID()))

	err = m.DestroyFile("rel")
	require.ErrorIs(t, err, ErrFileOpen)

	require.NoError(t, m.CloseFile(f2))
	require.NoError(t, m.DestroyFile("rel"))
}

func TestOpenMissing(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.OpenFile("missing")
	require.ErrorIs(t, err, ErrFileNotFound)

	err = m.DestroyFile("missing")
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestOpenNotAVolume(t *testing.T) {
	m, fs := newTestManager(t)
	require.NoError(t, afero.WriteFile(fs, "/data/junk", []byte("hello"), 0o600))

	_, err := m.OpenFile("junk")
	require.ErrorIs(t, err, ErrNotVolume)
}

func TestInvalidNames(t *testing.T) {
	m, _ := newTestManager(t)

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		require.ErrorIs(t, m.CreateFile(name), ErrInvalidFileName, name)
	}
}

func TestAllocateReadWrite(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.CreateFile("rel"))

	f, err := m.OpenFile("rel")
	require.NoError(t, err)

	first, err := m.AllocatePage(f.ID())
	require.NoError(t, err)
	assert.Equal(t, common.PageID(1), first)

	second, err := m.AllocatePage(f.ID())
	require.NoError(t, err)
	assert.Equal(t, common.PageID(2), second)

	firstPage, err := m.FirstPage(f.ID())
	require.NoError(t, err)
	assert.Equal(t, first, firstPage)

	ident := common.PageIdentity{FileID: f.ID(), PageID: second}

	p := page.NewSlottedPage()
	p.Init(second)
	_, err = p.InsertRecord([]byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, m.WritePage(p, ident))

	got, err := m.ReadPage(ident)
	require.NoError(t, err)
	rec, err := got.GetRecord(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), rec)

	_, err = m.ReadPage(common.PageIdentity{FileID: f.ID(), PageID: 0})
	require.ErrorIs(t, err, ErrPageNotFound)

	_, err = m.ReadPage(common.PageIdentity{FileID: f.ID(), PageID: 3})
	require.ErrorIs(t, err, ErrPageNotFound)

	require.NoError(t, m.CloseFile(f))

	_, err = m.ReadPage(ident)
	require.ErrorIs(t, err, ErrFileNotOpen)
}

func TestSuperblockSurvivesReopen(t *testing.T) {
	m, fs := newTestManager(t)
	require.NoError(t, m.CreateFile("rel"))

	f, err := m.OpenFile("rel")
	require.NoError(t, err)
	for k := 0; k < 3; k++ {
		_, err := m.AllocatePage(f.ID())
		require.NoError(t, err)
	}
	require.NoError(t, m.CloseFile(f))

	reopened := New("/data", page.NewSlottedPage, fs)
	f, err = reopened.OpenFile("rel")
	require.NoError(t, err)

	count, err := reopened.PageCount(f.ID())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)

	first, err := reopened.FirstPage(f.ID())
	require.NoError(t, err)
	assert.Equal(t, common.PageID(1), first)
}

func TestFileIDsAreNotReused(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.CreateFile("rel"))

	f1, err := m.OpenFile("rel")
	require.NoError(t, err)
	require.NoError(t, m.CloseFile(f1))

	f2, err := m.OpenFile("rel")
	require.NoError(t, err)
	assert.NotEqual(t, f1.ID(), f2.ID())
}

func BenchmarkDiskManager(b *testing.B) {
	fs := afero.NewMemMapFs()
	m := New("/bench", page.NewSlottedPage, fs)
	require.NoError(b, m.CreateFile("rel"))

	f, err := m.OpenFile("rel")
	require.NoError(b, err)

	pageID, err := m.AllocatePage(f.ID())
	require.NoError(b, err)

	p := page.NewSlottedPage()
	p.Init(pageID)
	ident := common.PageIdentity{FileID: f.ID(), PageID: pageID}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		require.NoError(b, m.WritePage(p, ident))
	}
}
