package bufferpool

import (
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

var (
	ErrNoSuchPage    = errors.New("bufferpool: no such page")
	ErrPageNotPinned = errors.New("bufferpool: page is not pinned")
	ErrPagePinned    = errors.New("bufferpool: page is pinned")
	ErrNoFreeFrame   = errors.New("bufferpool: no free frame available (all pinned)")
)

type Page interface {
	GetData() []byte
	SetData(d []byte)

	SetDirtiness(val bool)
	IsDirty() bool
}

var (
	_ Page = &page.SlottedPage{}
)

// Replacer manages what frame is next for eviction from RAM to disk.
type Replacer interface {
	Pin(frameID uint64)
	Unpin(frameID uint64)
	ChooseVictim() (uint64, error)
	GetSize() uint64
}

type DiskManager[T Page] interface {
	ReadPage(pageIdent common.PageIdentity) (T, error)
	WritePage(page T, pageIdent common.PageIdentity) error
	AllocatePage(fileID common.FileID) (common.PageID, error)
}

type frame[T Page] struct {
	Page      T
	PinCount  int
	PageIdent common.PageIdentity
}

type BufferPool[T Page] interface {
	AllocPage(fileID common.FileID) (common.PageIdentity, T, error)
	GetPage(pIdent common.PageIdentity) (T, error)
	Unpin(pIdent common.PageIdentity, dirty bool) error
	FlushPage(pIdent common.PageIdentity) error
	FlushFile(fileID common.FileID) error
}

// Manager is a fixed-size page cache. Every GetPage/AllocPage pins the page
// and must be paired with exactly one Unpin.
type Manager[T Page] struct {
	poolSize    uint64
	pageToFrame map[common.PageIdentity]uint64
	frames      []frame[T]
	emptyFrames []uint64

	replacer    Replacer
	diskManager DiskManager[T]
	metrics     poolMetrics

	mu sync.Mutex
}

var (
	_ BufferPool[*page.SlottedPage] = &Manager[*page.SlottedPage]{}
)

// New creates buffer pool (or page cache) object with specified poolSize.
// poolSize is a count of pages, that can be stored in physical memory (RAM)
// at the same time
func New[T Page](
	poolSize uint64,
	replacer Replacer,
	diskManager DiskManager[T],
) (*Manager[T], error) {
	if poolSize == 0 {
		return nil, errors.New("bufferpool: pool size must be greater than zero")
	}

	emptyFrames := make([]uint64, poolSize)
	for i := uint64(0); i < poolSize; i++ {
		emptyFrames[i] = i
	}

	return &Manager[T]{
		poolSize:    poolSize,
		pageToFrame: make(map[common.PageIdentity]uint64),
		frames:      make([]frame[T], poolSize),
		emptyFrames: emptyFrames,
		replacer:    replacer,
		diskManager: diskManager,
		metrics:     newPoolMetrics(),
	}, nil
}

func (m *Manager[T]) GetPage(pIdent common.PageIdentity) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.getPageLocked(pIdent)
}

// AllocPage extends the file by one page and returns it pinned.
func (m *Manager[T]) AllocPage(fileID common.FileID) (common.PageIdentity, T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T

	pageID, err := m.diskManager.AllocatePage(fileID)
	if err != nil {
		return common.PageIdentity{}, zero, errors.Wrap(err, "allocate page")
	}

	pIdent := common.PageIdentity{FileID: fileID, PageID: pageID}

	p, err := m.getPageLocked(pIdent)
	if err != nil {
		return common.PageIdentity{}, zero, err
	}

	return pIdent, p, nil
}

func (m *Manager[T]) getPageLocked(pIdent common.PageIdentity) (T, error) {
	var zero T

	if frameID, ok := m.pageToFrame[pIdent]; ok {
		m.pin(frameID)
		m.metrics.hit()

		return m.frames[frameID].Page, nil
	}

	m.metrics.miss()

	frameID, err := m.reserveFrame()
	if err != nil {
		return zero, err
	}

	p, err := m.diskManager.ReadPage(pIdent)
	if err != nil {
		m.emptyFrames = append(m.emptyFrames, frameID)
		return zero, err
	}

	m.frames[frameID] = frame[T]{
		Page:      p,
		PinCount:  1,
		PageIdent: pIdent,
	}
	m.pageToFrame[pIdent] = frameID
	m.replacer.Pin(frameID)

	return p, nil
}

// reserveFrame returns a frame that holds no page: an empty one if there
// is one, otherwise an evicted victim.
func (m *Manager[T]) reserveFrame() (uint64, error) {
	if len(m.emptyFrames) > 0 {
		id := m.emptyFrames[len(m.emptyFrames)-1]
		m.emptyFrames = m.emptyFrames[:len(m.emptyFrames)-1]

		return id, nil
	}

	victimFrameID, err := m.replacer.ChooseVictim()
	if err != nil {
		return 0, errors.Wrap(ErrNoFreeFrame, err.Error())
	}

	victim := &m.frames[victimFrameID]
	assert.Assert(victim.PinCount == 0, "victim %v is pinned", victim.PageIdent)

	if victim.Page.IsDirty() {
		err = m.diskManager.WritePage(victim.Page, victim.PageIdent)
		if err != nil {
			m.replacer.Unpin(victimFrameID)
			return 0, errors.Wrapf(err, "write back victim %v", victim.PageIdent)
		}

		victim.Page.SetDirtiness(false)
		m.metrics.flush()
	}

	delete(m.pageToFrame, victim.PageIdent)
	m.frames[victimFrameID] = frame[T]{}
	m.metrics.evict()

	return victimFrameID, nil
}

func (m *Manager[T]) pin(frameID uint64) {
	m.frames[frameID].PinCount++
	m.replacer.Pin(frameID)
}

// Unpin releases one pin of the page. dirty=true marks the page as modified;
// dirty=false never clears an earlier mark.
func (m *Manager[T]) Unpin(pIdent common.PageIdentity, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageToFrame[pIdent]
	if !ok {
		return errors.Wrapf(ErrNoSuchPage, "page %v", pIdent)
	}

	frame := &m.frames[frameID]
	if frame.PinCount <= 0 {
		return errors.Wrapf(ErrPageNotPinned, "page %v", pIdent)
	}

	if dirty {
		frame.Page.SetDirtiness(true)
	}

	frame.PinCount--
	if frame.PinCount == 0 {
		m.replacer.Unpin(frameID)
	}

	return nil
}

// PinCount reports the pin count of a resident page.
func (m *Manager[T]) PinCount(pIdent common.PageIdentity) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageToFrame[pIdent]
	if !ok {
		return 0, false
	}

	return m.frames[frameID].PinCount, true
}

// PinnedPages counts resident pages with a non-zero pin count.
func (m *Manager[T]) PinnedPages() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, frameID := range m.pageToFrame {
		if m.frames[frameID].PinCount > 0 {
			n++
		}
	}

	return n
}

func (m *Manager[T]) FlushPage(pIdent common.PageIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageToFrame[pIdent]
	if !ok {
		return errors.Wrapf(ErrNoSuchPage, "page %v", pIdent)
	}

	return m.flushFrame(frameID)
}

func (m *Manager[T]) flushFrame(frameID uint64) error {
	frame := &m.frames[frameID]
	if !frame.Page.IsDirty() {
		return nil
	}

	err := m.diskManager.WritePage(frame.Page, frame.PageIdent)
	if err != nil {
		return errors.Wrapf(err, "write page %v", frame.PageIdent)
	}

	frame.Page.SetDirtiness(false)
	m.metrics.flush()

	return nil
}

// FlushFile writes back every dirty page of the file and drops all of its
// pages from the pool. It fails with ErrPagePinned if any of them is pinned.
func (m *Manager[T]) FlushFile(fileID common.FileID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var owned []uint64
	for pIdent, frameID := range m.pageToFrame {
		if pIdent.FileID != fileID {
			continue
		}

		if m.frames[frameID].PinCount != 0 {
			return errors.Wrapf(ErrPagePinned, "page %v", pIdent)
		}

		owned = append(owned, frameID)
	}

	for _, frameID := range owned {
		if err := m.flushFrame(frameID); err != nil {
			return err
		}

		// pinning takes the frame out of the replacer for good
		m.replacer.Pin(frameID)
		delete(m.pageToFrame, m.frames[frameID].PageIdent)
		m.frames[frameID] = frame[T]{}
		m.emptyFrames = append(m.emptyFrames, frameID)
	}

	return nil
}

func (m *Manager[T]) FlushAllPages() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, frameID := range m.pageToFrame {
		err = multierr.Append(err, m.flushFrame(frameID))
	}

	return err
}
