package heapfile

import (
	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

// PageStore pins pages of open volumes. Every AllocPage and GetPage must be
// paired with exactly one Unpin.
type PageStore interface {
	AllocPage(fileID common.FileID) (common.PageIdentity, *page.SlottedPage, error)
	GetPage(pIdent common.PageIdentity) (*page.SlottedPage, error)
	Unpin(pIdent common.PageIdentity, dirty bool) error
}

type Volume = storage.Volume

type Volumes interface {
	CreateFile(name string) error
	OpenFile(name string) (Volume, error)
	CloseFile(v Volume) error
	DestroyFile(name string) error
}

var (
	_ PageStore = &bufferpool.Manager[*page.SlottedPage]{}
	_ Volumes   = &storage.Volumes{}
)
