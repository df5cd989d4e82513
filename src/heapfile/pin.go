package heapfile

import (
	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

// pinnedPage owns exactly one pin of a page. The pin is dropped by release,
// which reports the accumulated dirty flag to the store.
type pinnedPage struct {
	store PageStore
	ident common.PageIdentity
	page  *page.SlottedPage
	dirty bool
}

func pin(store PageStore, ident common.PageIdentity) (*pinnedPage, error) {
	p, err := store.GetPage(ident)
	if err != nil {
		return nil, errors.Wrapf(err, "pin page %v", ident)
	}

	return &pinnedPage{store: store, ident: ident, page: p}, nil
}

func pinNew(store PageStore, fileID common.FileID) (*pinnedPage, error) {
	ident, p, err := store.AllocPage(fileID)
	if err != nil {
		return nil, errors.Wrap(err, "allocate page")
	}

	return &pinnedPage{store: store, ident: ident, page: p}, nil
}

func (p *pinnedPage) pageID() common.PageID {
	return p.ident.PageID
}

// release is safe to call more than once; only the first call unpins.
func (p *pinnedPage) release() error {
	if p.page == nil {
		return nil
	}

	p.page = nil

	if err := p.store.Unpin(p.ident, p.dirty); err != nil {
		return errors.Wrapf(err, "unpin page %v", p.ident)
	}

	return nil
}
