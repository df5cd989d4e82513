package heapfile

import "github.com/go-faster/errors"

var (
	ErrFileExists          = errors.New("heapfile: file already exists")
	ErrNotHeapFile         = errors.New("heapfile: not a heap file")
	ErrNameTooLong         = errors.New("heapfile: file name is too long")
	ErrBadScanParameter    = errors.New("heapfile: bad scan parameter")
	ErrInvalidRecordLength = errors.New("heapfile: invalid record length")
	ErrEndOfFile           = errors.New("heapfile: end of file")
	ErrNoCurrentRecord     = errors.New("heapfile: no current record")
	ErrClosed              = errors.New("heapfile: file is closed")
)
