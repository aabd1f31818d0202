// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/word2md/internal/container"
	"github.com/pdiddy/word2md/pkg/types"
)

const (
	mountIn  = "/work/in"
	mountOut = "/work/out"
	// stderrTail bounds how much engine output ends up in an error.
	stderrTail = 2048
)

// DoclingConverter converts documents with the docling CLI. It depends on a
// container.Runtime (docker, podman or local) injected at construction time.
// Pictures are always exported in referenced mode so each one lands in its
// own file at a stable position in the Markdown.
type DoclingConverter struct {
	runtime container.Runtime
	cfg     types.EngineConfig
	log     zerolog.Logger
}

// NewDoclingConverter creates a converter that uses the given runtime. It
// verifies that the engine image (or binary, for the local runtime) exists
// before returning.
func NewDoclingConverter(rt container.Runtime, cfg types.EngineConfig, log zerolog.Logger) (*DoclingConverter, error) {
	if cfg.Binary == "" {
		cfg.Binary = "docling"
	}
	if err := rt.ImageExists(cfg.Image); err != nil {
		return nil, fmt.Errorf("docling not available in %s: %w", rt.Name(), err)
	}
	return &DoclingConverter{runtime: rt, cfg: cfg, log: log}, nil
}

// Convert runs docling on docPath, writing Markdown, JSON and the picture
// artifacts into outDir.
func (d *DoclingConverter) Convert(ctx context.Context, docPath, outDir string) (*types.ConversionResult, error) {
	in := container.Mount{Host: filepath.Dir(docPath), Container: mountIn}
	out := container.Mount{Host: outDir, Container: mountOut}

	var stdout, stderr bytes.Buffer
	spec := container.RunSpec{
		Image:   d.cfg.Image,
		Command: d.command(filepath.Join(d.runtime.Path(in), filepath.Base(docPath)), d.runtime.Path(out)),
		Mounts:  []container.Mount{in, out},
		User:    hostUser(),
		Stdout:  &stdout,
		Stderr:  &stderr,
	}

	d.log.Debug().Str("runtime", d.runtime.Name()).Strs("command", spec.Command).Msg("running docling")

	if err := d.runtime.Run(ctx, spec); err != nil {
		return nil, fmt.Errorf("%w: docling rejected %s: %w%s",
			types.ErrConversion, filepath.Base(docPath), err, tail(stderr.String()))
	}

	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	return ParseOutput(outDir, stem, d.log)
}

// command builds the docling invocation. The image export mode is fixed to
// referenced.
func (d *DoclingConverter) command(input, output string) []string {
	return []string{
		d.cfg.Binary,
		"--from", "docx",
		"--to", "md",
		"--to", "json",
		"--image-export-mode", string(types.ImageModeReferenced),
		"--output", output,
		input,
	}
}

// hostUser returns uid:gid so container output stays removable by the
// caller. Empty on platforms without numeric ids.
func hostUser() string {
	uid, gid := os.Getuid(), os.Getgid()
	if uid < 0 || gid < 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", uid, gid)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return ": " + s
}
