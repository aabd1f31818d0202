// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relocate uploads the images a conversion extracted and maps each
// image ID to its storage URL.
package relocate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/word2md/internal/storage"
	"github.com/pdiddy/word2md/pkg/types"
)

// Relocator uploads images one at a time. By default an upload failure is
// logged and the image skipped; in strict mode it aborts the run.
type Relocator struct {
	store  storage.ObjectStore
	prefix string
	strict bool
	newID  func() string
	log    zerolog.Logger
}

// Option configures a Relocator.
type Option func(*Relocator)

// WithStrict makes the first upload failure fatal.
func WithStrict(strict bool) Option {
	return func(r *Relocator) { r.strict = strict }
}

// WithKeyPrefix prepends prefix to every object key.
func WithKeyPrefix(prefix string) Option {
	return func(r *Relocator) { r.prefix = prefix }
}

// WithIDFunc replaces the random key component generator.
func WithIDFunc(fn func() string) Option {
	return func(r *Relocator) { r.newID = fn }
}

// New creates a Relocator that uploads to store.
func New(store storage.ObjectStore, log zerolog.Logger, opts ...Option) *Relocator {
	r := &Relocator{
		store: store,
		newID: uuid.NewString,
		log:   log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Relocate uploads every image and returns the ID→URL map together with the
// images that were skipped. The returned error is non-nil only in strict
// mode or when ctx is done; it wraps types.ErrUpload.
func (r *Relocator) Relocate(ctx context.Context, images []types.ImageReference) (types.ImageURLMap, []types.ImageFailure, error) {
	urls := make(types.ImageURLMap, len(images))
	var failures []types.ImageFailure

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return urls, failures, fmt.Errorf("%w: %w", types.ErrUpload, err)
		}

		url, err := r.upload(ctx, img)
		if err != nil {
			err = fmt.Errorf("%w: image %s: %w", types.ErrUpload, img.ID, err)
			if r.strict {
				return urls, failures, err
			}
			r.log.Warn().Err(err).Str("image", img.ID).Msg("image upload failed, leaving reference unresolved")
			failures = append(failures, types.ImageFailure{ID: img.ID, Err: err})
			continue
		}

		urls[img.ID] = url
		r.log.Info().Str("image", img.ID).Str("url", url).Msg("image uploaded")
	}

	return urls, failures, nil
}

// Key derives a fresh object key for img: prefix, random ID, and the
// original file name.
func (r *Relocator) Key(img types.ImageReference) string {
	return r.prefix + r.newID() + "_" + filepath.Base(img.ID)
}

func (r *Relocator) upload(ctx context.Context, img types.ImageReference) (string, error) {
	f, err := os.Open(img.Path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", img.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", img.Path, err)
	}

	contentType := img.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return r.store.Put(ctx, r.Key(img), f, info.Size(), contentType)
}
