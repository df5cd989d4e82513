package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/panjf2000/ants"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	heapdb "github.com/Blackdeer1524/HeapDB/src/app"
	"github.com/Blackdeer1524/HeapDB/src/heapfile"
)

var errCheckFailed = errors.New("integrity check failed")

type fileStat struct {
	Name      string
	Pages     int
	Records   int
	FirstPage uint64
	LastPage  uint64
}

func (s fileStat) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("pages")
	e.Int(s.Pages)
	e.FieldStart("records")
	e.Int(s.Records)
	e.FieldStart("first_page")
	e.UInt64(s.FirstPage)
	e.FieldStart("last_page")
	e.UInt64(s.LastPage)
	e.ObjEnd()
}

func (c *commands) initStat() {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stat NAME",
		Short: "Prints the header of a heap file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(_ context.Context, cmd *cobra.Command, e *heapdb.Engine) (err error) {
				f, err := e.Files.Open(args[0])
				if err != nil {
					return err
				}
				defer closeWith(&err, f)

				st := fileStat{
					Name:      f.Name(),
					Pages:     f.PageCount(),
					Records:   f.RecordCount(),
					FirstPage: uint64(f.FirstPage()),
					LastPage:  uint64(f.LastPage()),
				}

				out := cmd.OutOrStdout()
				if asJSON {
					var enc jx.Encoder
					st.encode(&enc)
					_, _ = fmt.Fprintln(out, enc.String())

					return nil
				}

				_, _ = fmt.Fprintf(out, "name:       %s\n", st.Name)
				_, _ = fmt.Fprintf(out, "pages:      %d\n", st.Pages)
				_, _ = fmt.Fprintf(out, "records:    %d\n", st.Records)
				_, _ = fmt.Fprintf(out, "first page: %d\n", st.FirstPage)
				_, _ = fmt.Fprintf(out, "last page:  %d\n", st.LastPage)

				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	c.root.AddCommand(cmd)
}

type checkResult struct {
	report heapfile.Report
	err    error
}

// checkFiles checks every file on a pool of workers. Results keep the
// order of names.
func checkFiles(e *heapdb.Engine, names []string, workers int) ([]checkResult, error) {
	pool, err := ants.NewPool(max(workers, 1))
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	results := make([]checkResult, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		i, name := i, name
		wg.Add(1)

		err := pool.Submit(func() {
			defer wg.Done()

			report, err := e.Files.Check(name)
			results[i] = checkResult{report: report, err: err}
		})
		if err != nil {
			wg.Done()
			results[i] = checkResult{report: heapfile.Report{Name: name}, err: err}
		}
	}
	wg.Wait()

	return results, nil
}

func listFiles(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

func (c *commands) initCheck() {
	var workers int

	cmd := &cobra.Command{
		Use:   "check [NAME...]",
		Short: "Checks heap files against their headers (all files if none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(_ context.Context, cmd *cobra.Command, e *heapdb.Engine) error {
				names := args
				if len(names) == 0 {
					var err error
					names, err = listFiles(c.fs, e.Config.DataDir)
					if err != nil {
						return err
					}
				}

				results, err := checkFiles(e, names, workers)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				failed := 0
				for _, res := range results {
					switch {
					case res.err != nil:
						failed++
						_, _ = fmt.Fprintf(out, "%s: error: %v\n", res.report.Name, res.err)
					case !res.report.OK():
						failed++
						for _, p := range res.report.Problems {
							_, _ = fmt.Fprintf(out, "%s: %s\n", res.report.Name, p)
						}
					default:
						_, _ = fmt.Fprintf(
							out, "%s: ok (%d pages, %d records)\n",
							res.report.Name, res.report.PagesVisited, res.report.LiveRecords,
						)
					}
				}

				if failed > 0 {
					return errors.Wrapf(errCheckFailed, "%d of %d files", failed, len(results))
				}

				return nil
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "Files checked in parallel")

	c.root.AddCommand(cmd)
}
