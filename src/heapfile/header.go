package heapfile

import (
	"bytes"
	"encoding/binary"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

// Layout of the header page (little-endian):
//
//	magic (4) | reserved (4)
//	name (MaxNameSize, NUL padded)
//	first data page (8)
//	last data page (8)
//	data page count (8)
//	live record count (8)
//
// Tools that inspect heap files on disk depend on this layout.
const (
	MaxNameSize = 64

	headerMagic = uint32(0x46504548) // "HEPF"

	offHdrMagic       = 0
	offHdrName        = 8
	offHdrFirstPage   = offHdrName + MaxNameSize
	offHdrLastPage    = offHdrFirstPage + 8
	offHdrPageCount   = offHdrLastPage + 8
	offHdrRecordCount = offHdrPageCount + 8
	headerSize        = offHdrRecordCount + 8
)

var _ = [page.Size - headerSize]struct{}{}

// header is a view over the bytes of a pinned header page.
type header struct {
	data []byte
}

func headerOf(p *page.SlottedPage) header {
	return header{data: p.GetData()}
}

func (h header) init(name string, dataPage common.PageID) {
	clear(h.data)
	binary.LittleEndian.PutUint32(h.data[offHdrMagic:], headerMagic)
	copy(h.data[offHdrName:offHdrName+MaxNameSize], name)
	h.setFirstPage(dataPage)
	h.setLastPage(dataPage)
	h.setPageCount(1)
	h.setRecordCount(0)
}

func (h header) valid() bool {
	return binary.LittleEndian.Uint32(h.data[offHdrMagic:]) == headerMagic
}

func (h header) name() string {
	raw := h.data[offHdrName : offHdrName+MaxNameSize]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}

	return string(raw)
}

func (h header) firstPage() common.PageID {
	return common.PageID(binary.LittleEndian.Uint64(h.data[offHdrFirstPage:]))
}

func (h header) setFirstPage(id common.PageID) {
	binary.LittleEndian.PutUint64(h.data[offHdrFirstPage:], uint64(id))
}

func (h header) lastPage() common.PageID {
	return common.PageID(binary.LittleEndian.Uint64(h.data[offHdrLastPage:]))
}

func (h header) setLastPage(id common.PageID) {
	binary.LittleEndian.PutUint64(h.data[offHdrLastPage:], uint64(id))
}

func (h header) pageCount() uint64 {
	return binary.LittleEndian.Uint64(h.data[offHdrPageCount:])
}

func (h header) setPageCount(n uint64) {
	binary.LittleEndian.PutUint64(h.data[offHdrPageCount:], n)
}

func (h header) recordCount() uint64 {
	return binary.LittleEndian.Uint64(h.data[offHdrRecordCount:])
}

func (h header) setRecordCount(n uint64) {
	binary.LittleEndian.PutUint64(h.data[offHdrRecordCount:], n)
}
