package heapfile

import (
	"github.com/go-faster/errors"
	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

// Manager creates, destroys and opens heap files stored in volumes.
type Manager struct {
	volumes Volumes
	pages   PageStore
	log     src.Logger
}

func NewManager(volumes Volumes, pages PageStore, log src.Logger) *Manager {
	return &Manager{
		volumes: volumes,
		pages:   pages,
		log:     log,
	}
}

// CreateFile creates a volume holding a header page and one empty data
// page. A failure part way leaves the partial volume behind; DestroyFile
// removes it.
func (m *Manager) CreateFile(name string) (err error) {
	if len(name) > MaxNameSize {
		return errors.Wrapf(ErrNameTooLong, "%q", name)
	}

	if vol, openErr := m.volumes.OpenFile(name); openErr == nil {
		if closeErr := m.volumes.CloseFile(vol); closeErr != nil {
			m.log.Errorw("failed to close probed volume", "name", name, "error", closeErr)
		}

		return errors.Wrapf(ErrFileExists, "%q", name)
	}

	if err := m.volumes.CreateFile(name); err != nil {
		return errors.Wrapf(err, "create volume %q", name)
	}

	vol, err := m.volumes.OpenFile(name)
	if err != nil {
		return errors.Wrapf(err, "open volume %q", name)
	}
	defer func() {
		err = multierr.Append(err, m.volumes.CloseFile(vol))
	}()

	hdr, err := pinNew(m.pages, vol.ID())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, hdr.release())
	}()

	data, err := pinNew(m.pages, vol.ID())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, data.release())
	}()

	data.page.Init(data.pageID())
	data.dirty = true

	headerOf(hdr.page).init(name, data.pageID())
	hdr.dirty = true

	m.log.Debugw(
		"heap file created",
		"name", name,
		"header_page", hdr.pageID(),
		"first_page", data.pageID(),
	)

	return nil
}

func (m *Manager) DestroyFile(name string) error {
	if err := m.volumes.DestroyFile(name); err != nil {
		return errors.Wrapf(err, "destroy volume %q", name)
	}

	return nil
}

// Open opens a heap file for record lookups by identifier.
func (m *Manager) Open(name string) (*HeapFile, error) {
	return m.open(name)
}

func (m *Manager) OpenScan(name string) (*Scan, error) {
	f, err := m.open(name)
	if err != nil {
		return nil, err
	}

	return &Scan{HeapFile: f}, nil
}

func (m *Manager) OpenInserter(name string) (*Inserter, error) {
	f, err := m.open(name)
	if err != nil {
		return nil, err
	}

	return &Inserter{HeapFile: f}, nil
}

func (m *Manager) open(name string) (_ *HeapFile, err error) {
	vol, err := m.volumes.OpenFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open volume %q", name)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, m.volumes.CloseFile(vol))
		}
	}()

	hdrPageID, err := vol.FirstPage()
	if err != nil {
		return nil, errors.Wrapf(err, "header page of %q", name)
	}

	hdr, err := pin(m.pages, m.ident(vol, hdrPageID))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, hdr.release())
		}
	}()

	h := headerOf(hdr.page)
	if !h.valid() {
		return nil, errors.Wrapf(ErrNotHeapFile, "%q", name)
	}

	cur, err := pin(m.pages, m.ident(vol, h.firstPage()))
	if err != nil {
		return nil, err
	}

	m.log.Debugw("heap file opened", "name", name, "file_id", vol.ID())

	return &HeapFile{
		pages:   m.pages,
		volumes: m.volumes,
		log:     m.log,
		vol:     vol,
		hdr:     hdr,
		cur:     cur,
	}, nil
}

func (m *Manager) ident(vol Volume, pageID common.PageID) common.PageIdentity {
	return common.PageIdentity{FileID: vol.ID(), PageID: pageID}
}
