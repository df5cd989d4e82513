package heapfile

import (
	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

// Inserter appends records to the last page of a heap file and grows the
// page chain when that page is full.
type Inserter struct {
	*HeapFile
}

func (in *Inserter) InsertRecord(rec []byte) (common.RecordID, error) {
	if in.closed {
		return common.RecordID{}, ErrClosed
	}

	if len(rec) > page.MaxRecordSize {
		return common.RecordID{}, errors.Wrapf(
			ErrInvalidRecordLength,
			"record is %d bytes, at most %d fit a page", len(rec), page.MaxRecordSize,
		)
	}

	if err := in.repin(in.LastPage()); err != nil {
		return common.RecordID{}, err
	}

	slot, err := in.cur.page.InsertRecord(rec)
	if errors.Is(err, page.ErrNoSpace) {
		slot, err = in.insertIntoNewPage(rec)
	}
	if err != nil {
		return common.RecordID{}, errors.Wrapf(err, "insert into page %d", in.cur.pageID())
	}

	in.cur.dirty = true

	h := in.header()
	h.setRecordCount(h.recordCount() + 1)
	in.markHeaderDirty()

	rid := in.recordID(in.cur.pageID(), slot)
	in.cursor.Emplace(rid)

	return rid, nil
}

// insertIntoNewPage links a fresh page after the full current page and
// inserts rec there. The header learns about the new page only once the
// insert succeeded.
func (in *Inserter) insertIntoNewPage(rec []byte) (uint16, error) {
	next, err := pinNew(in.pages, in.vol.ID())
	if err != nil {
		return 0, err
	}

	next.page.Init(next.pageID())
	next.dirty = true

	in.cur.page.SetNextPage(next.pageID())
	in.cur.dirty = true

	err = in.unpinCurrent()
	in.cur = next
	if err != nil {
		return 0, err
	}

	slot, err := next.page.InsertRecord(rec)
	if err != nil {
		return 0, err
	}

	h := in.header()
	h.setLastPage(next.pageID())
	h.setPageCount(h.pageCount() + 1)
	in.markHeaderDirty()

	in.log.Debugw(
		"heap file grew",
		"name", in.vol.Name(),
		"page", next.pageID(),
		"pages", h.pageCount(),
	)

	return slot, nil
}

// Close releases the current page as dirty.
func (in *Inserter) Close() error {
	if in.cur != nil {
		in.cur.dirty = true
	}

	return in.HeapFile.Close()
}
