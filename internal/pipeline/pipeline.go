// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a Word document through fetch, conversion, image
// relocation and Markdown rewriting, and reports the first failure tagged
// with the stage it happened in.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/word2md/internal/convert"
	"github.com/pdiddy/word2md/internal/fetch"
	"github.com/pdiddy/word2md/internal/relocate"
	"github.com/pdiddy/word2md/internal/rewrite"
	"github.com/pdiddy/word2md/internal/storage"
	"github.com/pdiddy/word2md/pkg/types"
)

// workspacePattern names the per-run temporary directory.
const workspacePattern = "word2md-*"

// Fetcher resolves a source document to bytes.
type Fetcher interface {
	Fetch(ctx context.Context, src types.SourceDocument) ([]byte, error)
}

// Recorder stores a summary of every run.
type Recorder interface {
	Record(ctx context.Context, rec types.RunRecord) error
}

// StageObserver is called on every state transition of a run.
type StageObserver func(src types.SourceDocument, stage types.Stage)

// Pipeline converts Word documents to Markdown. It holds only configuration
// and clients, so one Pipeline may serve concurrent runs.
type Pipeline struct {
	cfg       types.Config
	fetcher   Fetcher
	converter convert.Converter
	store     storage.ObjectStore
	recorder  Recorder
	observer  StageObserver
	now       func() time.Time
	newID     func() string
	log       zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFetcher replaces the default HTTP/file fetcher.
func WithFetcher(f Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithConverter sets the conversion engine.
func WithConverter(c convert.Converter) Option {
	return func(p *Pipeline) { p.converter = c }
}

// WithStore sets the object store images are uploaded to.
func WithStore(s storage.ObjectStore) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithRecorder records every run, successful or not.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithObserver registers a callback for stage transitions.
func WithObserver(o StageObserver) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDFunc replaces the generator used for run IDs and object keys.
func WithIDFunc(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// New creates a Pipeline from cfg. Without WithFetcher, documents are
// fetched with the settings in cfg.Fetch.
func New(cfg types.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = fetch.New(nil, cfg.Fetch, p.log)
	}
	return p
}

// ConvertURL downloads and converts the document at url.
func (p *Pipeline) ConvertURL(ctx context.Context, url string) (*types.Result, error) {
	return p.Run(ctx, types.FromURL(url))
}

// ConvertFile converts the local document at path.
func (p *Pipeline) ConvertFile(ctx context.Context, path string) (*types.Result, error) {
	return p.Run(ctx, types.FromPath(path))
}

// ConvertBytes converts a document already held in memory.
func (p *Pipeline) ConvertBytes(ctx context.Context, name string, data []byte) (*types.Result, error) {
	return p.Run(ctx, types.FromBytes(name, data))
}

// run carries the state of a single Run call.
type run struct {
	id     string
	src    types.SourceDocument
	start  time.Time
	stage  types.Stage
	urls   types.ImageURLMap
	failed []types.ImageFailure
	out    rewrite.Output
	log    zerolog.Logger
}

// Run executes the pipeline for src. On failure it returns a
// *types.StageError naming the stage; the stage's sentinel error stays
// reachable through errors.Is.
func (p *Pipeline) Run(ctx context.Context, src types.SourceDocument) (*types.Result, error) {
	r := &run{
		id:    p.newID(),
		src:   src,
		start: p.now(),
	}
	r.log = p.log.With().Str("run", r.id).Str("source", src.String()).Logger()

	res, err := p.execute(ctx, r)
	if err != nil {
		stageErr := &types.StageError{Stage: r.stage, Source: src.String(), Err: err}
		p.transition(r, types.StageFailed)
		r.log.Error().Err(err).Str("stage", string(stageErr.Stage)).Msg("conversion failed")
		p.record(ctx, r, stageErr)
		return nil, stageErr
	}

	p.transition(r, types.StageDone)
	r.log.Info().
		Int("rewritten", res.Rewritten).
		Int("unresolved", res.Unresolved).
		Dur("duration", res.Duration).
		Msg("conversion finished")
	p.record(ctx, r, nil)
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, r *run) (*types.Result, error) {
	p.transition(r, types.StageFetching)
	data, err := p.fetcher.Fetch(ctx, r.src)
	if err != nil {
		return nil, ensure(types.ErrFetch, err)
	}
	r.log.Debug().Int("bytes", len(data)).Msg("document fetched")

	p.transition(r, types.StageConverting)
	err = p.withWorkspace(func(dir string) error {
		return p.convertIn(ctx, r, data, dir)
	})
	if err != nil {
		return nil, err
	}

	markdown := r.out.Markdown
	if p.cfg.Pipeline.Frontmatter {
		fm := rewrite.NewFrontmatter(r.src.String(), r.start, r.urls, r.failed)
		markdown, err = rewrite.AddFrontmatter(fm, markdown)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrRewrite, err)
		}
	}

	return &types.Result{
		Markdown:   markdown,
		Images:     r.urls,
		Failures:   r.failed,
		Rewritten:  r.out.Rewritten,
		Unresolved: r.out.Unresolved,
		Duration:   p.now().Sub(r.start),
	}, nil
}

// convertIn runs the stages that need the workspace: conversion,
// relocation and rewriting all read the engine output inside dir.
func (p *Pipeline) convertIn(ctx context.Context, r *run, data []byte, dir string) error {
	if p.converter == nil {
		return fmt.Errorf("%w: no conversion engine configured", types.ErrConversion)
	}
	res, err := convert.NewInvoker(p.converter, r.log).Invoke(ctx, data, dir)
	if err != nil {
		return ensure(types.ErrConversion, err)
	}

	p.transition(r, types.StageRelocating)
	r.urls = types.ImageURLMap{}
	if len(res.Images) > 0 {
		if p.store == nil {
			return fmt.Errorf("%w: no object store configured", types.ErrUpload)
		}
		rel := relocate.New(p.store, r.log,
			relocate.WithStrict(p.cfg.Pipeline.Strict),
			relocate.WithKeyPrefix(p.cfg.Storage.KeyPrefix),
			relocate.WithIDFunc(p.newID),
		)
		urls, failed, err := rel.Relocate(ctx, res.Images)
		if err != nil {
			return ensure(types.ErrUpload, err)
		}
		r.urls, r.failed = urls, failed
	}

	p.transition(r, types.StageRewriting)
	out, err := rewrite.New(r.log).Rewrite(res, r.urls)
	if err != nil {
		return ensure(types.ErrRewrite, err)
	}
	r.out = out
	return nil
}

// withWorkspace creates a scoped temporary directory for fn and removes
// it when fn returns or panics.
func (p *Pipeline) withWorkspace(fn func(dir string) error) error {
	dir, err := os.MkdirTemp(p.cfg.Pipeline.WorkDir, workspacePattern)
	if err != nil {
		return fmt.Errorf("%w: creating workspace: %w", types.ErrConversion, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			p.log.Warn().Err(err).Str("dir", dir).Msg("could not remove workspace")
		}
	}()
	return fn(dir)
}

func (p *Pipeline) transition(r *run, stage types.Stage) {
	if stage != types.StageFailed && stage != types.StageDone {
		r.stage = stage
	}
	r.log.Debug().Str("stage", string(stage)).Msg("stage")
	if p.observer != nil {
		p.observer(r.src, stage)
	}
}

func (p *Pipeline) record(ctx context.Context, r *run, stageErr *types.StageError) {
	if p.recorder == nil {
		return
	}
	rec := types.RunRecord{
		ID:        r.id,
		Source:    r.src.String(),
		Stage:     types.StageDone,
		StartedAt: r.start,
		Duration:  p.now().Sub(r.start),
		Images:    r.urls,
	}
	if stageErr != nil {
		rec.Stage = stageErr.Stage
		rec.Error = stageErr.Error()
	} else {
		rec.Rewritten = r.out.Rewritten
		rec.Unresolved = r.out.Unresolved
	}
	for _, f := range r.failed {
		rec.Failed = append(rec.Failed, f.ID)
	}

	// A cancelled run is still worth recording.
	if err := p.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		r.log.Warn().Err(err).Msg("could not record run")
	}
}

// ensure wraps err with sentinel unless it already carries it.
func ensure(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
