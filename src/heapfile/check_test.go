package heapfile

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

func TestCheck_Healthy(t *testing.T) {
	e := setup(t, 4)
	e.create(t, "f")
	insertAll(t, e, "f", fixedRecords(250, 40))

	report, err := e.mgr.Check("f")
	require.NoError(t, err)

	assert.True(t, report.OK(), report.Problems)
	assert.Equal(t, "f", report.Name)
	assert.Equal(t, 250, report.LiveRecords)
	assert.Equal(t, 250, report.HeaderRecords)
	assert.Equal(t, report.HeaderLastPage, report.LastPage)
	assert.Equal(t, 0, e.pool.PinnedPages())
}

func TestCheck_DetectsHeaderMismatch(t *testing.T) {
	e := setup(t, 4)
	e.create(t, "f")
	insertAll(t, e, "f", fixedRecords(10, 40))

	f, err := e.mgr.Open("f")
	require.NoError(t, err)

	h := f.header()
	h.setRecordCount(99)
	h.setPageCount(5)
	f.markHeaderDirty()
	require.NoError(t, f.Close())

	report, err := e.mgr.Check("f")
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Len(t, report.Problems, 2)
	assert.Equal(t, 10, report.LiveRecords)
	assert.Equal(t, 1, report.PagesVisited)
}

func TestCheck_DetectsCycle(t *testing.T) {
	e := setup(t, 4)
	e.create(t, "f")

	f, err := e.mgr.Open("f")
	require.NoError(t, err)

	first := f.FirstPage()
	f.cur.page.SetNextPage(first)
	f.cur.dirty = true
	require.NoError(t, f.Close())

	report, err := e.mgr.Check("f")
	require.NoError(t, err)
	require.NotEmpty(t, report.Problems)
	assert.Contains(t, report.Problems[0], "loops back")
}

func TestCheck_Missing(t *testing.T) {
	e := setup(t, 4)

	_, err := e.mgr.Check("nope")
	require.Error(t, err)
}

var errUnpinRefused = errors.New("unpin refused")

// failingStore refuses to unpin one page.
type failingStore struct {
	PageStore
	broken common.PageID
}

func (s *failingStore) Unpin(pIdent common.PageIdentity, dirty bool) error {
	if pIdent.PageID == s.broken {
		return errUnpinRefused
	}

	return s.PageStore.Unpin(pIdent, dirty)
}

func TestClose_BestEffortTeardown(t *testing.T) {
	e := setup(t, 4)
	e.create(t, "f")

	core, logs := observer.New(zapcore.ErrorLevel)

	probe, err := e.mgr.Open("f")
	require.NoError(t, err)
	dataPage := probe.FirstPage()
	require.NoError(t, probe.Close())

	store := &failingStore{PageStore: e.pool, broken: dataPage}
	mgr := NewManager(e.volumes, store, zap.New(core).Sugar())

	f, err := mgr.Open("f")
	require.NoError(t, err)

	err = f.Close()
	require.Error(t, err)

	// the header is still unpinned even though the data page was not
	hdrPins, resident := e.pool.PinCount(f.hdr.ident)
	require.True(t, resident)
	assert.Equal(t, 0, hdrPins)

	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, "unpin data page", logs.All()[0].ContextMap()["step"])
	assert.Equal(t, "close volume", logs.All()[1].ContextMap()["step"])

	require.NoError(t, f.Close())
}

func TestInsert_FailedOverflowLeavesHeaderBehind(t *testing.T) {
	e := setup(t, 4)
	e.create(t, "f")

	f, err := e.mgr.Open("f")
	require.NoError(t, err)
	fullPage := f.FirstPage()
	require.NoError(t, f.Close())

	store := &failingStore{PageStore: e.pool, broken: fullPage}
	mgr := NewManager(e.volumes, store, zap.NewNop().Sugar())

	in, err := mgr.OpenInserter("f")
	require.NoError(t, err)

	inserted := 0
	for _, rec := range fixedRecords(1000, 40) {
		if _, err = in.InsertRecord(rec); err != nil {
			break
		}
		inserted++
	}
	require.ErrorIs(t, err, errUnpinRefused)
	require.Positive(t, inserted)

	assert.Equal(t, fullPage, in.LastPage())
	assert.Equal(t, 1, in.PageCount())
	assert.Equal(t, inserted, in.RecordCount())

	// the refused pin keeps the volume open, so the linked page stays cached
	require.Error(t, in.Close())

	report, err := e.mgr.Check("f")
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, 2, report.PagesVisited)
	assert.Equal(t, 1, report.HeaderPages)
	assert.Equal(t, fullPage, report.HeaderLastPage)
	assert.NotEqual(t, fullPage, report.LastPage)
	assert.Equal(t, inserted, report.LiveRecords)
	assert.Len(t, report.Problems, 2)
}
