package heapfile

import (
	"github.com/go-faster/errors"
	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
)

// HeapFile is an open heap file. It holds one pin on the header page for
// its whole lifetime and at most one pin on a data page at a time.
//
// A HeapFile is not safe for concurrent use.
type HeapFile struct {
	pages   PageStore
	volumes Volumes
	log     src.Logger

	vol Volume
	hdr *pinnedPage
	cur *pinnedPage

	cursor optional.Optional[common.RecordID]
	closed bool
}

// Close unpins the current data page and the header page and closes the
// volume. Every step runs even if an earlier one fails.
func (f *HeapFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	var err error

	if f.cur != nil {
		err = multierr.Append(err, f.teardownStep("unpin data page", f.cur.release()))
		f.cur = nil
	}

	err = multierr.Append(err, f.teardownStep("unpin header page", f.hdr.release()))
	err = multierr.Append(err, f.teardownStep("close volume", f.volumes.CloseFile(f.vol)))

	f.cursor.Clear()

	f.log.Debugw("heap file closed", "name", f.vol.Name(), "file_id", f.vol.ID())

	return err
}

func (f *HeapFile) teardownStep(step string, err error) error {
	if err != nil {
		f.log.Errorw("heap file teardown failed", "name", f.vol.Name(), "step", step, "error", err)
	}

	return err
}

func (f *HeapFile) header() header {
	assert.Assert(!f.closed, "heap file %q is closed", f.vol.Name())
	return headerOf(f.hdr.page)
}

func (f *HeapFile) Name() string {
	return f.header().name()
}

// RecordCount returns the number of live records in the file.
func (f *HeapFile) RecordCount() int {
	return int(f.header().recordCount()) //nolint:gosec
}

// PageCount returns the number of data pages in the chain.
func (f *HeapFile) PageCount() int {
	return int(f.header().pageCount()) //nolint:gosec
}

func (f *HeapFile) FirstPage() common.PageID {
	return f.header().firstPage()
}

func (f *HeapFile) LastPage() common.PageID {
	return f.header().lastPage()
}

// GetRecord returns the record with the given identifier and makes it the
// current record. The page holding it stays pinned until another page is
// needed; the returned slice is valid until then.
//
// Only rid.PageID and rid.SlotNum are consulted.
func (f *HeapFile) GetRecord(rid common.RecordID) ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}

	if err := f.repin(rid.PageID); err != nil {
		return nil, err
	}

	rec, err := f.cur.page.GetRecord(rid.SlotNum)
	if err != nil {
		return nil, errors.Wrapf(err, "get record %v", rid)
	}

	f.cursor.Emplace(f.recordID(rid.PageID, rid.SlotNum))

	return rec, nil
}

// repin makes pageID the current data page. Nothing happens if it already
// is; otherwise the old page is released with its dirty flag first.
func (f *HeapFile) repin(pageID common.PageID) error {
	if f.cur != nil && f.cur.pageID() == pageID {
		return nil
	}

	if err := f.unpinCurrent(); err != nil {
		return err
	}

	cur, err := pin(f.pages, f.ident(pageID))
	if err != nil {
		return err
	}
	f.cur = cur

	return nil
}

func (f *HeapFile) unpinCurrent() error {
	if f.cur == nil {
		return nil
	}

	cur := f.cur
	f.cur = nil

	return cur.release()
}

func (f *HeapFile) markHeaderDirty() {
	f.hdr.dirty = true
}

func (f *HeapFile) ident(pageID common.PageID) common.PageIdentity {
	return common.PageIdentity{FileID: f.vol.ID(), PageID: pageID}
}

func (f *HeapFile) recordID(pageID common.PageID, slot uint16) common.RecordID {
	return common.RecordID{FileID: f.vol.ID(), PageID: pageID, SlotNum: slot}
}
