package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	heapdb "github.com/Blackdeer1524/HeapDB/src/app"
)

func (c *commands) initCreate() {
	c.root.AddCommand(&cobra.Command{
		Use:   "create NAME...",
		Short: "Creates empty heap files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(_ context.Context, cmd *cobra.Command, e *heapdb.Engine) error {
				for _, name := range args {
					if err := e.Files.CreateFile(name); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
				}

				return nil
			})
		},
	})
}

func (c *commands) initDestroy() {
	c.root.AddCommand(&cobra.Command{
		Use:   "destroy NAME...",
		Short: "Removes heap files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(_ context.Context, cmd *cobra.Command, e *heapdb.Engine) error {
				for _, name := range args {
					if err := e.Files.DestroyFile(name); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "destroyed %s\n", name)
				}

				return nil
			})
		},
	})
}

func (c *commands) initCount() {
	c.root.AddCommand(&cobra.Command{
		Use:   "count NAME",
		Short: "Prints the number of live records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(_ context.Context, cmd *cobra.Command, e *heapdb.Engine) (err error) {
				f, err := e.Files.Open(args[0])
				if err != nil {
					return err
				}
				defer closeWith(&err, f)

				_, _ = fmt.Fprintln(cmd.OutOrStdout(), f.RecordCount())

				return nil
			})
		},
	})
}
