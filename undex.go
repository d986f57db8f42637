// Package undex decompiles Dalvik bytecode into Java-like source.
//
// A Decompiler turns input classes into a Batch. Running the batch pushes
// every method through six stages on one goroutine: decoding, CFG
// construction, exception regions, type inference, structuring and code
// generation. Classes run in parallel on a bounded worker pool. A method that
// fails any stage is still rendered, as its listing and a throwing body.
package undex

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"undex/internal/dex"
)

var (
	// ErrNoLoader is returned by Run when Config.Sources is set but no
	// Loader was supplied.
	ErrNoLoader = errors.New("undex: sources configured without a loader")

	// ErrStarted is returned when a batch is run twice.
	ErrStarted = errors.New("undex: batch already run")
)

// Loader opens one configured source path. Container parsing lives outside
// this package.
type Loader func(path string) (dex.Source, error)

// Decompiler holds the configuration shared by its batches.
type Decompiler struct {
	cfg    Config
	log    *zap.Logger
	loader Loader
}

// Option configures a Decompiler.
type Option func(*Decompiler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decompiler) {
		if l != nil {
			d.log = l
		}
	}
}

// WithLoader sets the function Run uses to open Config.Sources.
func WithLoader(l Loader) Option {
	return func(d *Decompiler) { d.loader = l }
}

// New returns a Decompiler for cfg.
func New(cfg Config, opts ...Option) (*Decompiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Decompiler{cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Config returns the decompiler's configuration.
func (d *Decompiler) Config() Config { return d.cfg }

// NewBatch collects the classes of srcs into a batch ready to run.
func (d *Decompiler) NewBatch(srcs ...dex.Source) (*Batch, error) {
	var classes []*dex.Class
	for i, s := range srcs {
		cs, err := s.Classes()
		if err != nil {
			return nil, fmt.Errorf("undex: source %d: %w", i, err)
		}
		classes = append(classes, cs...)
	}
	return newBatch(d, classes), nil
}

// Run opens Config.Sources with the loader and decompiles them.
// Cancellation is checked before each class starts; a cancelled run
// returns the partial batch with the context's error.
func (d *Decompiler) Run(ctx context.Context) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.cfg.Sources) > 0 && d.loader == nil {
		return nil, ErrNoLoader
	}
	srcs := make([]dex.Source, 0, len(d.cfg.Sources))
	for _, path := range d.cfg.Sources {
		s, err := d.loader(path)
		if err != nil {
			return nil, fmt.Errorf("undex: load %s: %w", path, err)
		}
		srcs = append(srcs, s)
	}
	b, err := d.NewBatch(srcs...)
	if err != nil {
		return nil, err
	}
	return b, b.Run(ctx)
}
