package heapfile

import (
	"bytes"

	"github.com/go-faster/errors"
	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

type scanMark struct {
	pageID common.PageID
	cursor optional.Optional[common.RecordID]
}

// Scan iterates over the records of a heap file in page chain order,
// optionally keeping only the records accepted by a Filter.
type Scan struct {
	*HeapFile

	filter optional.Optional[Filter]
	mark   optional.Optional[scanMark]
}

// StartScan sets the filter of the scan. A nil pattern removes the filter.
// On a bad parameter the previous filter is kept.
func (s *Scan) StartScan(
	offset, length int,
	typ Datatype,
	pattern []byte,
	op Operator,
) error {
	if pattern == nil {
		s.filter.Clear()
		return nil
	}

	f := Filter{
		Offset:  offset,
		Length:  length,
		Type:    typ,
		Pattern: pattern,
		Op:      op,
	}
	if err := f.validate(); err != nil {
		return err
	}

	f.Pattern = bytes.Clone(pattern)
	s.filter = optional.Some(f)

	return nil
}

func (s *Scan) SetFilter(f Filter) error {
	return s.StartScan(f.Offset, f.Length, f.Type, f.Pattern, f.Op)
}

func (s *Scan) matches(rec []byte) bool {
	if s.filter.IsNone() {
		return true
	}

	return s.filter.Unwrap().match(rec)
}

// ScanNext moves the cursor to the next matching record and returns its
// identifier. At the end of the chain it returns ErrEndOfFile and keeps
// returning it on later calls; the last page stays pinned until EndScan or
// Close.
func (s *Scan) ScanNext() (common.RecordID, error) {
	if s.closed {
		return common.RecordID{}, ErrClosed
	}

	if s.cur == nil {
		if err := s.repin(s.currentPageID()); err != nil {
			return common.RecordID{}, err
		}
	}

	var (
		slot uint16
		err  error
	)

	if rid, ok := s.cursor.Get(); ok && rid.PageID == s.cur.pageID() {
		slot, err = s.cur.page.NextRecord(rid.SlotNum)
	} else {
		slot, err = s.cur.page.FirstRecord()
	}

	for {
		if err == nil {
			rec, getErr := s.cur.page.GetRecord(slot)
			if getErr != nil {
				return common.RecordID{}, errors.Wrapf(
					getErr,
					"read slot %d of page %d", slot, s.cur.pageID(),
				)
			}

			if s.matches(rec) {
				rid := s.recordID(s.cur.pageID(), slot)
				s.cursor.Emplace(rid)

				return rid, nil
			}

			slot, err = s.cur.page.NextRecord(slot)
			continue
		}

		if !errors.Is(err, page.ErrEndOfPage) && !errors.Is(err, page.ErrNoRecords) {
			return common.RecordID{}, errors.Wrapf(err, "advance on page %d", s.cur.pageID())
		}

		next := s.cur.page.NextPage()
		if next.IsNil() {
			return common.RecordID{}, ErrEndOfFile
		}

		if err := s.repin(next); err != nil {
			return common.RecordID{}, err
		}

		slot, err = s.cur.page.FirstRecord()
	}
}

// currentPageID is the page the cursor is on, even if it is not pinned.
func (s *Scan) currentPageID() common.PageID {
	if s.cur != nil {
		return s.cur.pageID()
	}

	if rid, ok := s.cursor.Get(); ok {
		return rid.PageID
	}

	return s.FirstPage()
}

// Cursor returns the identifier of the current record.
func (s *Scan) Cursor() (common.RecordID, bool) {
	return s.cursor.Get()
}

// MarkScan remembers the scan position. ResetScan returns to it.
func (s *Scan) MarkScan() {
	s.mark = optional.Some(scanMark{
		pageID: s.currentPageID(),
		cursor: s.cursor,
	})
}

// ResetScan returns to the position saved by MarkScan, or to the start of
// the file if nothing was marked.
func (s *Scan) ResetScan() error {
	if s.closed {
		return ErrClosed
	}

	m, ok := s.mark.Get()
	if !ok {
		m = scanMark{pageID: s.FirstPage()}
	}

	if err := s.repin(m.pageID); err != nil {
		return err
	}

	s.cursor = m.cursor

	return nil
}

func (s *Scan) current() (common.RecordID, error) {
	if !s.cursor.IsSome() || s.cur == nil {
		return common.RecordID{}, ErrNoCurrentRecord
	}

	rid := s.cursor.Unwrap()
	if s.cur.pageID() != rid.PageID {
		return common.RecordID{}, ErrNoCurrentRecord
	}

	return rid, nil
}

// CurrentRecord returns the record under the cursor. The slice aliases the
// pinned page; call MarkDirty after changing it in place.
func (s *Scan) CurrentRecord() ([]byte, error) {
	rid, err := s.current()
	if err != nil {
		return nil, err
	}

	rec, err := s.cur.page.GetRecord(rid.SlotNum)
	if err != nil {
		return nil, errors.Wrapf(err, "get record %v", rid)
	}

	return rec, nil
}

// DeleteRecord deletes the record under the cursor. The cursor is left in
// place; the next ScanNext moves past the hole.
func (s *Scan) DeleteRecord() error {
	rid, err := s.current()
	if err != nil {
		return err
	}

	if err := s.cur.page.DeleteRecord(rid.SlotNum); err != nil {
		return errors.Wrapf(err, "delete record %v", rid)
	}
	s.cur.dirty = true

	h := s.header()
	assert.Assert(h.recordCount() > 0, "record count of %q underflows", s.vol.Name())
	h.setRecordCount(h.recordCount() - 1)
	s.markHeaderDirty()

	return nil
}

func (s *Scan) MarkDirty() error {
	if s.cur == nil {
		return ErrNoCurrentRecord
	}

	s.cur.dirty = true

	return nil
}

// EndScan releases the current page. Calling it again is a no-op.
func (s *Scan) EndScan() error {
	err := s.unpinCurrent()
	s.cursor.Clear()

	return err
}

func (s *Scan) Close() error {
	if s.closed {
		return nil
	}

	err := s.teardownStep("end scan", s.EndScan())

	return multierr.Append(err, s.HeapFile.Close())
}
