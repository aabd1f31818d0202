// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch resolves a source document to raw bytes, either by
// downloading it over HTTP or by reading a local file.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/pdiddy/word2md/internal/httputil"
	"github.com/pdiddy/word2md/pkg/types"
)

// acceptWord asks servers for OOXML Word documents but accepts anything.
const acceptWord = "application/vnd.openxmlformats-officedocument.wordprocessingml.document, application/octet-stream;q=0.9, */*;q=0.8"

// Fetcher downloads or reads Word documents. A zero Fetcher is not usable;
// construct one with New.
type Fetcher struct {
	client *http.Client
	cfg    types.FetchConfig
	log    zerolog.Logger
}

// New creates a Fetcher. When client is nil, one is built with the
// configured timeout.
func New(client *http.Client, cfg types.FetchConfig, log zerolog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{client: client, cfg: cfg, log: log}
}

// Fetch returns the bytes of src. Every failure wraps types.ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, src types.SourceDocument) ([]byte, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrFetch, err)
	}
	switch {
	case src.URL != "":
		return f.FetchURL(ctx, src.URL)
	case src.Path != "":
		return f.ReadFile(src.Path)
	default:
		return src.Data, nil
	}
}

// FetchURL downloads url. Non-2xx responses, transport errors, timeouts,
// and bodies over the size limit fail. Retries only happen for HTTP 429
// and only when MaxRetries is set.
func (f *Fetcher) FetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", types.ErrFetch, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	req.Header.Set("Accept", acceptWord)

	f.log.Debug().Str("url", req.URL.Redacted()).Msg("downloading document")

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: HTTP request: %w", types.ErrFetch, err)
	}

	data, err := httputil.ReadBody(resp, f.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrFetch, err)
	}

	f.log.Debug().Int("bytes", len(data)).Msg("document downloaded")
	return data, nil
}

// ReadFile reads a local document.
func (f *Fetcher) ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrFetch, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", types.ErrFetch, path)
	}
	if f.cfg.MaxBytes > 0 && info.Size() > f.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %s: %w (%d bytes)", types.ErrFetch, path, httputil.ErrTooLarge, f.cfg.MaxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", types.ErrFetch, path, err)
	}
	return data, nil
}
