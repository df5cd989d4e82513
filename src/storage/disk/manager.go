package disk

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/spf13/afero"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

const (
	PageSize = page.Size

	// Page 0 of every volume is its superblock; data pages start at 1.
	superblockPageID = common.PageID(0)
	volumeMagic      = uint32(0x31565048) // "HPV1"

	offMagic     = 0
	offPageCount = 8
	offFirstPage = 16
)

var (
	ErrFileExists      = errors.New("disk: file already exists")
	ErrFileNotFound    = errors.New("disk: file not found")
	ErrFileOpen        = errors.New("disk: file is open")
	ErrFileNotOpen     = errors.New("disk: file is not open")
	ErrPageNotFound    = errors.New("disk: page not found")
	ErrNoPages         = errors.New("disk: file has no pages")
	ErrInvalidFileName = errors.New("disk: invalid file name")
	ErrNotVolume       = errors.New("disk: not a volume file")
)

type Page interface {
	GetData() []byte
	SetData(d []byte)
}

// File is an open volume. One File is shared by every opener of the same
// name; it is closed when the last opener closes it.
type File struct {
	id   common.FileID
	name string
	fd   afero.File

	refs      int
	pageCount uint64
	firstPage common.PageID
}

func (f *File) ID() common.FileID {
	return f.id
}

func (f *File) Name() string {
	return f.name
}

type Manager[T Page] struct {
	fs          afero.Fs
	basePath    string
	newPageFunc func() T

	mu         sync.RWMutex
	byName     map[string]*File
	byID       map[common.FileID]*File
	nextFileID common.FileID
}

func New[T Page](
	basePath string,
	newPageFunc func() T,
	fs afero.Fs,
) *Manager[T] {
	return &Manager[T]{
		fs:          fs,
		basePath:    basePath,
		newPageFunc: newPageFunc,
		byName:      make(map[string]*File),
		byID:        make(map[common.FileID]*File),
		nextFileID:  1,
	}
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Wrapf(ErrInvalidFileName, "%q", name)
	}

	return nil
}

func (m *Manager[T]) path(name string) string {
	return filepath.Join(m.basePath, name)
}

func (m *Manager[T]) CreateFile(name string) (err error) {
	if err := validateName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.path(name)

	exists, err := afero.Exists(m.fs, path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	if exists {
		return errors.Wrapf(ErrFileExists, "%q", name)
	}

	if err := m.fs.MkdirAll(m.basePath, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", m.basePath)
	}

	fd, err := m.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := fd.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	f := &File{name: name, fd: fd, pageCount: 1, firstPage: common.NilPageID}
	if err := writeSuperblock(f); err != nil {
		return err
	}

	if err := fd.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", path)
	}

	return nil
}

func (m *Manager[T]) OpenFile(name string) (*File, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.byName[name]; ok {
		f.refs++
		return f, nil
	}

	path := m.path(name)

	fd, err := m.fs.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrFileNotFound, "%q", name)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}

	f := &File{name: name, fd: fd, refs: 1}
	if err := readSuperblock(f); err != nil {
		_ = fd.Close()
		return nil, err
	}

	f.id = m.nextFileID
	m.nextFileID++

	m.byName[name] = f
	m.byID[f.id] = f

	return f, nil
}

// CloseFile drops one reference to f and closes the OS file on the last one.
func (m *Manager[T]) CloseFile(f *File) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	opened, ok := m.byID[f.id]
	if !ok || opened != f {
		return errors.Wrapf(ErrFileNotOpen, "%q", f.name)
	}

	assert.Assert(f.refs > 0, "invalid ref count of %q", f.name)

	f.refs--
	if f.refs > 0 {
		return nil
	}

	delete(m.byID, f.id)
	delete(m.byName, f.name)

	if err := f.fd.Close(); err != nil {
		return errors.Wrapf(err, "close %q", f.name)
	}

	return nil
}

// RefCount reports how many openers hold fileID.
func (m *Manager[T]) RefCount(fileID common.FileID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if f, ok := m.byID[fileID]; ok {
		return f.refs
	}

	return 0
}

func (m *Manager[T]) DestroyFile(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[name]; ok {
		return errors.Wrapf(ErrFileOpen, "%q", name)
	}

	path := m.path(name)

	exists, err := afero.Exists(m.fs, path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	if !exists {
		return errors.Wrapf(ErrFileNotFound, "%q", name)
	}

	if err := m.fs.Remove(path); err != nil {
		return errors.Wrapf(err, "remove %s", path)
	}

	return nil
}

// FirstPage returns the first page ever allocated in the file.
func (m *Manager[T]) FirstPage(fileID common.FileID) (common.PageID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := m.lookup(fileID)
	if err != nil {
		return common.NilPageID, err
	}

	if f.firstPage.IsNil() {
		return common.NilPageID, errors.Wrapf(ErrNoPages, "%q", f.name)
	}

	return f.firstPage, nil
}

// PageCount includes the superblock page.
func (m *Manager[T]) PageCount(fileID common.FileID) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := m.lookup(fileID)
	if err != nil {
		return 0, err
	}

	return f.pageCount, nil
}

// AllocatePage appends a zeroed page to the file.
func (m *Manager[T]) AllocatePage(fileID common.FileID) (common.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.lookup(fileID)
	if err != nil {
		return common.NilPageID, err
	}

	pageID := common.PageID(f.pageCount)

	zero := make([]byte, PageSize)
	if _, err := f.fd.WriteAt(zero, offsetOf(pageID)); err != nil {
		return common.NilPageID, errors.Wrapf(err, "extend %q", f.name)
	}

	f.pageCount++
	if f.firstPage.IsNil() {
		f.firstPage = pageID
	}

	if err := writeSuperblock(f); err != nil {
		return common.NilPageID, err
	}

	return pageID, nil
}

func (m *Manager[T]) ReadPage(pageIdent common.PageIdentity) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var zeroVal T

	f, err := m.lookupPage(pageIdent)
	if err != nil {
		return zeroVal, err
	}

	data := make([]byte, PageSize)

	n, err := f.fd.ReadAt(data, offsetOf(pageIdent.PageID))
	if err != nil && !(errors.Is(err, io.EOF) && n == PageSize) {
		return zeroVal, errors.Wrapf(err, "read page %v", pageIdent)
	}

	page := m.newPageFunc()
	page.SetData(data)

	return page, nil
}

func (m *Manager[T]) WritePage(page T, pageIdent common.PageIdentity) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := m.lookupPage(pageIdent)
	if err != nil {
		return err
	}

	data := page.GetData()
	if len(data) != PageSize {
		return errors.Errorf("page data is %d bytes, expected %d", len(data), PageSize)
	}

	if _, err := f.fd.WriteAt(data, offsetOf(pageIdent.PageID)); err != nil {
		return errors.Wrapf(err, "write page %v", pageIdent)
	}

	return nil
}

func (m *Manager[T]) lookup(fileID common.FileID) (*File, error) {
	f, ok := m.byID[fileID]
	if !ok {
		return nil, errors.Wrapf(ErrFileNotOpen, "fileID %d", fileID)
	}

	return f, nil
}

func (m *Manager[T]) lookupPage(pageIdent common.PageIdentity) (*File, error) {
	f, err := m.lookup(pageIdent.FileID)
	if err != nil {
		return nil, err
	}

	if pageIdent.PageID == superblockPageID || uint64(pageIdent.PageID) >= f.pageCount {
		return nil, errors.Wrapf(ErrPageNotFound, "page %v", pageIdent)
	}

	return f, nil
}

func offsetOf(pageID common.PageID) int64 {
	return int64(pageID) * PageSize //nolint:gosec
}

func writeSuperblock(f *File) error {
	data := make([]byte, PageSize)
	binary.LittleEndian.PutUint32(data[offMagic:], volumeMagic)
	binary.LittleEndian.PutUint64(data[offPageCount:], f.pageCount)
	binary.LittleEndian.PutUint64(data[offFirstPage:], uint64(f.firstPage))

	if _, err := f.fd.WriteAt(data, offsetOf(superblockPageID)); err != nil {
		return errors.Wrapf(err, "write superblock of %q", f.name)
	}

	return nil
}

func readSuperblock(f *File) error {
	data := make([]byte, PageSize)

	n, err := f.fd.ReadAt(data, offsetOf(superblockPageID))
	if err != nil && !(errors.Is(err, io.EOF) && n == PageSize) {
		if errors.Is(err, io.EOF) {
			return errors.Wrapf(ErrNotVolume, "%q is too short", f.name)
		}
		return errors.Wrapf(err, "read superblock of %q", f.name)
	}

	if binary.LittleEndian.Uint32(data[offMagic:]) != volumeMagic {
		return errors.Wrapf(ErrNotVolume, "%q", f.name)
	}

	f.pageCount = binary.LittleEndian.Uint64(data[offPageCount:])
	f.firstPage = common.PageID(binary.LittleEndian.Uint64(data[offFirstPage:]))

	return nil
}
