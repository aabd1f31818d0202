// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert hands Word documents to the external conversion engine
// and turns its output into a types.ConversionResult.
package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pdiddy/word2md/pkg/types"
)

const (
	// inputDir and outputDir are created inside the run workspace.
	inputDir  = "input"
	outputDir = "output"
	// docStem names the document written for the engine; the engine
	// derives its output file names from it.
	docStem = "document"
	docExt  = ".docx"
)

// wordMainPart is the main document part every WordprocessingML package has.
const wordMainPart = "word/document.xml"

// Converter transforms a Word document into the engine's structured output.
// Different engine deployments (container image, local binary, test fakes)
// implement this interface.
type Converter interface {
	// Convert reads the document at docPath, writes the engine output into
	// outDir and returns the parsed result.
	Convert(ctx context.Context, docPath, outDir string) (*types.ConversionResult, error)
}

// Invoker prepares the workspace and calls a Converter.
type Invoker struct {
	conv Converter
	log  zerolog.Logger
}

// NewInvoker creates an Invoker around conv.
func NewInvoker(conv Converter, log zerolog.Logger) *Invoker {
	return &Invoker{conv: conv, log: log}
}

// Invoke writes data into workspace, checks that it is a Word document and
// converts it. All failures wrap types.ErrConversion.
func (i *Invoker) Invoke(ctx context.Context, data []byte, workspace string) (*types.ConversionResult, error) {
	if err := ValidateDocx(data); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrConversion, err)
	}

	inDir := filepath.Join(workspace, inputDir)
	outDir := filepath.Join(workspace, outputDir)
	for _, dir := range []string{inDir, outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating directory %s: %w", types.ErrConversion, dir, err)
		}
	}

	docPath := filepath.Join(inDir, docStem+docExt)
	if err := os.WriteFile(docPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: writing document: %w", types.ErrConversion, err)
	}

	i.log.Debug().Str("path", docPath).Int("bytes", len(data)).Msg("invoking conversion engine")

	res, err := i.conv.Convert(ctx, docPath, outDir)
	if err != nil {
		if errors.Is(err, types.ErrConversion) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", types.ErrConversion, err)
	}

	i.log.Debug().
		Int("texts", res.Texts).
		Int("tables", res.Tables).
		Int("images", len(res.Images)).
		Msg("conversion finished")
	return res, nil
}

// ValidateDocx reports whether data is a WordprocessingML package: a zip
// archive that contains word/document.xml.
func ValidateDocx(data []byte) error {
	if len(data) == 0 {
		return errors.New("document is empty")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("not a Word document: %w", err)
	}
	for _, f := range zr.File {
		if f.Name == wordMainPart {
			return nil
		}
	}
	return fmt.Errorf("not a Word document: missing %s", wordMainPart)
}
