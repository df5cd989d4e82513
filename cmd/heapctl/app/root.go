package app

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	heapdb "github.com/Blackdeer1524/HeapDB/src/app"
	"github.com/Blackdeer1524/HeapDB/src/cli"
)

type action func(ctx context.Context, cmd *cobra.Command, e *heapdb.Engine) error

type commands struct {
	root *cli.RootCommand
	fs   afero.Fs
}

func newRootCommand(fs afero.Fs) *cli.RootCommand {
	c := &commands{
		root: cli.Init("heapctl", "Create, fill, scan and check heap files"),
		fs:   fs,
	}

	c.initCreate()
	c.initDestroy()
	c.initInsert()
	c.initLoad()
	c.initScan()
	c.initDelete()
	c.initCount()
	c.initStat()
	c.initCheck()

	return c.root
}

func MustExecute(ctx context.Context) {
	newRootCommand(afero.NewOsFs()).MustExecute(ctx)
}

// run executes fn against an engine configured from the root flags.
func (c *commands) run(cmd *cobra.Command, fn action) error {
	return heapdb.Run(cmd.Context(), &heapdb.CommandEntrypoint{
		Name:       cmd.Name(),
		ConfigPath: c.root.Options.ConfigPath,
		DataDir:    c.root.Options.DataDir,
		Fs:         c.fs,
		Action: func(ctx context.Context, e *heapdb.Engine) error {
			return fn(ctx, cmd, e)
		},
	})
}
