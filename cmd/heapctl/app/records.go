package app

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	heapdb "github.com/Blackdeer1524/HeapDB/src/app"
	"github.com/Blackdeer1524/HeapDB/src/heapfile"
	"github.com/Blackdeer1524/HeapDB/src/pkg/utils"
)

func closeWith(err *error, c io.Closer) {
	*err = multierr.Append(*err, c.Close())
}

func decodeRecord(s string, isHex bool) ([]byte, error) {
	if !isHex {
		return []byte(s), nil
	}

	rec, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %q", s)
	}

	return rec, nil
}

func formatRecord(rec []byte, isHex bool) string {
	if isHex {
		return hex.EncodeToString(rec)
	}

	return strconv.Quote(string(rec))
}

func (c *commands) initInsert() {
	var isHex bool

	cmd := &cobra.Command{
		Use:   "insert NAME RECORD...",
		Short: "Appends records and prints their identifiers",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(_ context.Context, cmd *cobra.Command, e *heapdb.Engine) (err error) {
				in, err := e.Files.OpenInserter(args[0])
				if err != nil {
					return err
				}
				defer closeWith(&err, in)

				for _, arg := range args[1:] {
					rec, err := decodeRecord(arg, isHex)
					if err != nil {
						return err
					}

					rid, err := in.InsertRecord(rec)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), rid)
				}

				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&isHex, "hex", false, "Records are hex encoded")

	c.root.AddCommand(cmd)
}

func (c *commands) initLoad() {
	var (
		isHex  bool
		buffer int
	)

	cmd := &cobra.Command{
		Use:   "load NAME [FILE]",
		Short: "Appends one record per line of FILE (stdin if absent or -)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, cmd *cobra.Command, e *heapdb.Engine) (err error) {
				input := cmd.InOrStdin()
				if len(args) == 2 && args[1] != "-" {
					var f afero.File
					f, err = c.fs.Open(args[1])
					if err != nil {
						return errors.Wrap(err, "open input")
					}
					defer closeWith(&err, f)
					input = f
				}

				n, err := load(ctx, e, args[0], input, isHex, buffer)
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d records into %s\n", n, args[0])

				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&isHex, "hex", false, "Lines are hex encoded")
	cmd.Flags().IntVar(&buffer, "buffer", 128, "Records read ahead of the inserter")

	c.root.AddCommand(cmd)
}

// load reads records in one goroutine and inserts them in another.
func load(
	ctx context.Context,
	e *heapdb.Engine,
	name string,
	src io.Reader,
	isHex bool,
	buffer int,
) (int, error) {
	in, err := e.Files.OpenInserter(name)
	if err != nil {
		return 0, err
	}

	records := make(chan []byte, max(buffer, 1))
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(records)

		scanner := bufio.NewScanner(src)
		for scanner.Scan() {
			rec, err := decodeRecord(scanner.Text(), isHex)
			if err != nil {
				return err
			}

			select {
			case records <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := scanner.Err(); err != nil {
			return errors.Wrap(err, "read input")
		}

		return nil
	})

	inserted := 0
	eg.Go(func() error {
		for rec := range records {
			if _, err := in.InsertRecord(rec); err != nil {
				return err
			}
			inserted++
		}

		return nil
	})

	err = eg.Wait()
	err = multierr.Append(err, in.Close())

	e.Log.Infow("load finished", "name", name, "inserted", inserted)

	return inserted, err
}

type filterFlags struct {
	offset int
	length int
	typ    string
	op     string
	value  string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.offset, "offset", 0, "Byte offset of the compared attribute")
	cmd.Flags().IntVar(&f.length, "length", 0, "Byte length of the attribute (default: type size or value length)")
	cmd.Flags().StringVar(&f.typ, "type", "string", "Attribute type: string, integer or float")
	cmd.Flags().StringVar(&f.op, "op", "=", "Comparison: <, <=, =, >=, >, !=")
	cmd.Flags().StringVar(&f.value, "value", "", "Value to compare with; no filter if unset")
}

// filter returns nil when no --value was given.
func (f *filterFlags) filter(cmd *cobra.Command) (*heapfile.Filter, error) {
	if !cmd.Flags().Changed("value") {
		return nil, nil //nolint:nilnil
	}

	typ, err := heapfile.ParseDatatype(f.typ)
	if err != nil {
		return nil, err
	}

	op, err := heapfile.ParseOperator(f.op)
	if err != nil {
		return nil, err
	}

	var pattern []byte
	switch typ {
	case heapfile.Integer:
		v, err := strconv.ParseInt(f.value, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "integer value %q", f.value)
		}
		pattern = utils.Int32ToBytes(int32(v))
	case heapfile.Float:
		v, err := strconv.ParseFloat(f.value, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "float value %q", f.value)
		}
		pattern = utils.Float32ToBytes(float32(v))
	default:
		pattern = []byte(f.value)
	}

	length := f.length
	if length == 0 {
		length = len(pattern)
	}

	return &heapfile.Filter{
		Offset:  f.offset,
		Length:  length,
		Type:    typ,
		Pattern: pattern,
		Op:      op,
	}, nil
}

// forEachMatch scans name and calls fn with every record the filter
// accepts.
func forEachMatch(
	ctx context.Context,
	e *heapdb.Engine,
	name string,
	filter *heapfile.Filter,
	fn func(s *heapfile.Scan) error,
) (err error) {
	s, err := e.Files.OpenScan(name)
	if err != nil {
		return err
	}
	defer closeWith(&err, s)

	if filter != nil {
		if err := s.SetFilter(*filter); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := s.ScanNext()
		if errors.Is(err, heapfile.ErrEndOfFile) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := fn(s); err != nil {
			return err
		}
	}
}

func (c *commands) initScan() {
	var (
		flags filterFlags
		isHex bool
	)

	cmd := &cobra.Command{
		Use:   "scan NAME",
		Short: "Prints the records of a heap file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter(cmd)
			if err != nil {
				return err
			}

			return c.run(cmd, func(ctx context.Context, cmd *cobra.Command, e *heapdb.Engine) error {
				return forEachMatch(ctx, e, args[0], filter, func(s *heapfile.Scan) error {
					rec, err := s.CurrentRecord()
					if err != nil {
						return err
					}

					rid, _ := s.Cursor()
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rid, formatRecord(rec, isHex))

					return nil
				})
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&isHex, "hex", false, "Print records hex encoded")

	c.root.AddCommand(cmd)
}

func (c *commands) initDelete() {
	var (
		flags filterFlags
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Deletes the records matching a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter(cmd)
			if err != nil {
				return err
			}
			if filter == nil && !all {
				return errors.New("refusing to delete every record without --all")
			}

			return c.run(cmd, func(ctx context.Context, cmd *cobra.Command, e *heapdb.Engine) error {
				deleted := 0
				err := forEachMatch(ctx, e, args[0], filter, func(s *heapfile.Scan) error {
					deleted++
					return s.DeleteRecord()
				})
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", deleted)

				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "Delete every record when no filter is given")

	c.root.AddCommand(cmd)
}
