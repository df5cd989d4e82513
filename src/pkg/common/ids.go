package common

import "fmt"

type (
	FileID uint64
	PageID uint64
)

// NilPageID terminates page chains and marks "no page".
const NilPageID = PageID(^uint64(0))

func (p PageID) IsNil() bool {
	return p == NilPageID
}

type PageIdentity struct {
	FileID FileID
	PageID PageID
}

func (p PageIdentity) String() string {
	return fmt.Sprintf("%d:%d", p.FileID, p.PageID)
}

type RecordID struct {
	FileID  FileID
	PageID  PageID
	SlotNum uint16
}

func (r RecordID) PageIdentity() PageIdentity {
	return PageIdentity{
		FileID: r.FileID,
		PageID: r.PageID,
	}
}

func (r RecordID) String() string {
	return fmt.Sprintf("(%d, %d)", r.PageID, r.SlotNum)
}
