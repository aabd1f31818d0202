// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/word2md/internal/container"
	"github.com/pdiddy/word2md/internal/convert"
	"github.com/pdiddy/word2md/internal/ledger"
	"github.com/pdiddy/word2md/internal/pipeline"
	"github.com/pdiddy/word2md/internal/storage"
	"github.com/pdiddy/word2md/pkg/types"
)

// buildPipeline wires the production components: the docling engine, the
// MinIO store and, when configured, the run ledger. The engine runtime is
// detected on the first conversion, so a fetch failure is reported before
// a missing engine. The returned cleanup func must be called when the
// pipeline is no longer used.
func buildPipeline(ctx context.Context, cfg types.Config, log zerolog.Logger) (*pipeline.Pipeline, func(), error) {
	cleanup := func() {}

	conv := convert.Lazy(func() (convert.Converter, error) {
		rt, err := container.DetectRuntime(cfg.Engine.Runtime, cfg.Engine.Binary)
		if err != nil {
			return nil, err
		}
		c, err := convert.NewDoclingConverter(rt, cfg.Engine, log)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("runtime", rt.Name()).Str("image", cfg.Engine.Image).Msg("conversion engine ready")
		return c, nil
	})

	store, err := storage.NewMinIOStore(cfg.Storage)
	if err != nil {
		return nil, cleanup, fmt.Errorf("%w: %w", types.ErrUpload, err)
	}
	if cfg.Storage.CreateBucket {
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("%w: %w", types.ErrUpload, err)
		}
	}

	opts := []pipeline.Option{
		pipeline.WithConverter(conv),
		pipeline.WithStore(store),
		pipeline.WithLogger(log),
	}

	if cfg.Ledger.Path != "" {
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { l.Close() }
		opts = append(opts, pipeline.WithRecorder(l))
	}

	return pipeline.New(cfg, opts...), cleanup, nil
}
