package heapfile

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

// Report is the outcome of an integrity check of one heap file.
type Report struct {
	Name string

	HeaderPages    int
	HeaderRecords  int
	HeaderFirst    common.PageID
	HeaderLastPage common.PageID

	PagesVisited int
	LiveRecords  int
	LastPage     common.PageID

	Problems []string
}

func (r Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) problemf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Check walks the page chain of the named file and compares what it finds
// with the header. Only one data page is pinned at a time.
func (m *Manager) Check(name string) (_ Report, err error) {
	f, err := m.Open(name)
	if err != nil {
		return Report{Name: name}, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	report := Report{
		Name:           f.Name(),
		HeaderPages:    f.PageCount(),
		HeaderRecords:  f.RecordCount(),
		HeaderFirst:    f.FirstPage(),
		HeaderLastPage: f.LastPage(),
		LastPage:       common.NilPageID,
	}

	seen := make(map[common.PageID]struct{}, report.HeaderPages)
	for pageID := report.HeaderFirst; !pageID.IsNil(); pageID = f.cur.page.NextPage() {
		if _, ok := seen[pageID]; ok {
			report.problemf("page chain loops back to page %d", pageID)
			break
		}
		seen[pageID] = struct{}{}

		if err := f.repin(pageID); err != nil {
			return report, err
		}

		if !f.cur.page.IsInitialized() {
			report.problemf("page %d is not initialized", pageID)
			break
		}

		report.PagesVisited++
		report.LiveRecords += f.cur.page.LiveRecords()
		report.LastPage = pageID
	}

	if report.PagesVisited != report.HeaderPages {
		report.problemf(
			"header counts %d pages, chain has %d",
			report.HeaderPages, report.PagesVisited,
		)
	}

	if report.LastPage != report.HeaderLastPage {
		report.problemf(
			"header last page is %d, chain ends at %d",
			report.HeaderLastPage, report.LastPage,
		)
	}

	if report.LiveRecords != report.HeaderRecords {
		report.problemf(
			"header counts %d records, pages hold %d",
			report.HeaderRecords, report.LiveRecords,
		)
	}

	if len(report.Problems) > 0 {
		m.log.Warnw("heap file check found problems", "name", name, "problems", report.Problems)
	}

	return report, nil
}
