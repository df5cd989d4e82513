package page

import (
	"encoding/binary"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

// Layout of a data page (little-endian):
//
//	+--------------------------+ 0
//	| pageID (8) | next (8)    |
//	| slots (2) | freeEnd (2)  |
//	| reserved (4)             |
//	+--------------------------+ HeaderSize
//	| slot[0] slot[1] ...      | grows down the page
//	+--------------------------+
//	|        free space        |
//	+--------------------------+ freeEnd
//	| ... record[1] record[0]  | grows up the page
//	+--------------------------+ Size
const (
	Size       = 4096
	HeaderSize = 24
	SlotSize   = 4

	// MaxRecordSize is the largest record an empty page can hold.
	MaxRecordSize = Size - HeaderSize - SlotSize

	offPageID    = 0
	offNextPage  = 8
	offSlotCount = 16
	offFreeEnd   = 18

	slotOffsetSize        = 13
	slotOffsetMask uint16 = (1 << slotOffsetSize) - 1
)

var (
	ErrNoSpace       = errors.New("page: not enough free space")
	ErrInvalidSlot   = errors.New("page: invalid slot")
	ErrNoRecords     = errors.New("page: no records")
	ErrEndOfPage     = errors.New("page: end of page")
	ErrUninitialized = errors.New("page: page is not initialized")
)

type slotStatus uint16

const (
	slotStatusUnused slotStatus = iota
	SlotStatusInserted
	SlotStatusDeleted
)

type slotPointer uint16

func newSlotPtr(status slotStatus, recordOffset uint16) slotPointer {
	assert.Assert(recordOffset <= slotOffsetMask, "the offset is too big")
	return slotPointer((uint16(status) << slotOffsetSize) | recordOffset)
}

func (s slotPointer) RecordOffset() uint16 {
	return uint16(s) & slotOffsetMask
}

func (s slotPointer) Status() slotStatus {
	return slotStatus(uint16(s) >> slotOffsetSize)
}

type SlottedPage struct {
	data  []byte
	dirty bool
}

// NewSlottedPage returns a zeroed, uninitialized page. Call Init before
// inserting records.
func NewSlottedPage() *SlottedPage {
	return &SlottedPage{
		data: make([]byte, Size),
	}
}

// Init formats the page as an empty data page with no successor.
func (p *SlottedPage) Init(pageID common.PageID) {
	clear(p.data)
	binary.LittleEndian.PutUint64(p.data[offPageID:], uint64(pageID))
	p.SetNextPage(common.NilPageID)
	p.setSlotCount(0)
	p.setFreeEnd(Size)
}

func (p *SlottedPage) IsInitialized() bool {
	return p.freeEnd() != 0
}

func (p *SlottedPage) PageID() common.PageID {
	return common.PageID(binary.LittleEndian.Uint64(p.data[offPageID:]))
}

func (p *SlottedPage) NextPage() common.PageID {
	return common.PageID(binary.LittleEndian.Uint64(p.data[offNextPage:]))
}

func (p *SlottedPage) SetNextPage(next common.PageID) {
	binary.LittleEndian.PutUint64(p.data[offNextPage:], uint64(next))
}

func (p *SlottedPage) NumSlots() uint16 {
	return binary.LittleEndian.Uint16(p.data[offSlotCount:])
}

func (p *SlottedPage) setSlotCount(n uint16) {
	binary.LittleEndian.PutUint16(p.data[offSlotCount:], n)
}

func (p *SlottedPage) freeEnd() uint16 {
	return binary.LittleEndian.Uint16(p.data[offFreeEnd:])
}

func (p *SlottedPage) setFreeEnd(v uint16) {
	binary.LittleEndian.PutUint16(p.data[offFreeEnd:], v)
}

func (p *SlottedPage) freeStart() int {
	return HeaderSize + int(p.NumSlots())*SlotSize
}

// FreeSpace is the number of bytes left for a record and its slot.
func (p *SlottedPage) FreeSpace() int {
	return int(p.freeEnd()) - p.freeStart()
}

func (p *SlottedPage) getSlot(slotNum uint16) (slotPointer, uint16) {
	base := HeaderSize + int(slotNum)*SlotSize
	ptr := slotPointer(binary.LittleEndian.Uint16(p.data[base:]))
	length := binary.LittleEndian.Uint16(p.data[base+2:])
	return ptr, length
}

func (p *SlottedPage) setSlot(slotNum uint16, ptr slotPointer, length uint16) {
	base := HeaderSize + int(slotNum)*SlotSize
	binary.LittleEndian.PutUint16(p.data[base:], uint16(ptr))
	binary.LittleEndian.PutUint16(p.data[base+2:], length)
}

func (p *SlottedPage) isLive(slotNum uint16) bool {
	if slotNum >= p.NumSlots() {
		return false
	}
	ptr, _ := p.getSlot(slotNum)
	return ptr.Status() == SlotStatusInserted
}

// InsertRecord copies rec into the page and returns its slot number.
// Slot numbers are never reused, even after a delete.
func (p *SlottedPage) InsertRecord(rec []byte) (uint16, error) {
	if !p.IsInitialized() {
		return 0, ErrUninitialized
	}

	if p.FreeSpace() < len(rec)+SlotSize {
		return 0, ErrNoSpace
	}

	pos := p.freeEnd() - uint16(len(rec)) //nolint:gosec
	copy(p.data[pos:], rec)

	slotNum := p.NumSlots()
	p.setSlot(slotNum, newSlotPtr(SlotStatusInserted, pos), uint16(len(rec))) //nolint:gosec
	p.setSlotCount(slotNum + 1)
	p.setFreeEnd(pos)

	return slotNum, nil
}

// GetRecord returns the record bytes. The slice aliases the page buffer:
// writes through it modify the page.
func (p *SlottedPage) GetRecord(slotNum uint16) ([]byte, error) {
	if !p.isLive(slotNum) {
		return nil, errors.Wrapf(ErrInvalidSlot, "slot %d", slotNum)
	}

	ptr, length := p.getSlot(slotNum)
	start := int(ptr.RecordOffset())
	end := start + int(length)
	assert.Assert(end <= Size, "record of slot %d overruns the page", slotNum)

	return p.data[start:end:end], nil
}

func (p *SlottedPage) DeleteRecord(slotNum uint16) error {
	if !p.isLive(slotNum) {
		return errors.Wrapf(ErrInvalidSlot, "slot %d", slotNum)
	}

	ptr, length := p.getSlot(slotNum)
	p.setSlot(slotNum, newSlotPtr(SlotStatusDeleted, ptr.RecordOffset()), length)

	return nil
}

// FirstRecord returns the first live slot of the page.
func (p *SlottedPage) FirstRecord() (uint16, error) {
	for i, numSlots := uint16(0), p.NumSlots(); i < numSlots; i++ {
		if p.isLive(i) {
			return i, nil
		}
	}

	return 0, ErrNoRecords
}

// NextRecord returns the first live slot after slotNum. slotNum itself
// does not have to be live.
func (p *SlottedPage) NextRecord(slotNum uint16) (uint16, error) {
	for i := int(slotNum) + 1; i < int(p.NumSlots()); i++ {
		if p.isLive(uint16(i)) { //nolint:gosec
			return uint16(i), nil //nolint:gosec
		}
	}

	return 0, ErrEndOfPage
}

// LiveRecords counts slots holding a record.
func (p *SlottedPage) LiveRecords() int {
	n := 0
	for i, numSlots := uint16(0), p.NumSlots(); i < numSlots; i++ {
		if p.isLive(i) {
			n++
		}
	}

	return n
}

func (p *SlottedPage) SetDirtiness(val bool) {
	p.dirty = val
}

func (p *SlottedPage) IsDirty() bool {
	return p.dirty
}

func (p *SlottedPage) GetData() []byte {
	return p.data
}

func (p *SlottedPage) SetData(data []byte) {
	copy(p.data, data)
}
