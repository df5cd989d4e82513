package bufferpool

import (
	"github.com/stretchr/testify/mock"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

type MockDiskManager struct {
	mock.Mock
}

var (
	_ DiskManager[*page.SlottedPage] = &MockDiskManager{}
)

func (m *MockDiskManager) ReadPage(
	pageIdent common.PageIdentity,
) (*page.SlottedPage, error) {
	args := m.Called(pageIdent)
	p, _ := args.Get(0).(*page.SlottedPage)
	return p, args.Error(1)
}

func (m *MockDiskManager) WritePage(
	page *page.SlottedPage,
	pageIdent common.PageIdentity,
) error {
	args := m.Called(page, pageIdent)
	return args.Error(0)
}

func (m *MockDiskManager) AllocatePage(fileID common.FileID) (common.PageID, error) {
	args := m.Called(fileID)
	return args.Get(0).(common.PageID), args.Error(1) //nolint:forcetypeassert
}
