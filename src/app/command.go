package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/cfg"
)

const tracerName = "github.com/Blackdeer1524/HeapDB/src/app"

// CommandEntrypoint runs one CLI command against a freshly built engine.
type CommandEntrypoint struct {
	Name       string
	ConfigPath string
	DataDir    string
	Fs         afero.Fs

	Action func(ctx context.Context, e *Engine) error

	engine *Engine
	log    src.Logger
}

var (
	_ Entrypoint = &CommandEntrypoint{}
)

func (c *CommandEntrypoint) Init(_ context.Context) error {
	config, err := cfg.LoadConfig(c.ConfigPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if c.DataDir != "" {
		config.DataDir = c.DataDir
	}

	log, err := NewLogger(config.Environment)
	if err != nil {
		return err
	}
	c.log = log

	fs := c.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	c.engine, err = NewEngine(config, fs, log)
	if err != nil {
		return err
	}

	return nil
}

func (c *CommandEntrypoint) Run(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(
		ctx,
		"heapctl."+c.Name,
		trace.WithAttributes(attribute.String("heapdb.data_dir", c.engine.Config.DataDir)),
	)
	defer span.End()

	err := c.Action(ctx, c.engine)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (c *CommandEntrypoint) Close() error {
	var err error

	if c.engine != nil {
		err = c.engine.Close()
	}

	if c.log != nil {
		if err != nil {
			c.log.Errorw("failed to close engine", "command", c.Name, "error", err)
		}

		// syncing stderr fails on some terminals
		_ = c.log.Sync()
	}

	return err
}
