// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/word2md/pkg/types"
)

// fakeConverter implements Converter for testing. It records the paths it
// was given and returns a canned result or an error.
type fakeConverter struct {
	result  *types.ConversionResult
	err     error
	calls   int
	docPath string
	outDir  string
	docData []byte
}

func (f *fakeConverter) Convert(_ context.Context, docPath, outDir string) (*types.ConversionResult, error) {
	f.calls++
	f.docPath, f.outDir = docPath, outDir
	f.docData, _ = os.ReadFile(docPath)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// makeZip builds an in-memory zip archive with the named parts.
func makeZip(t *testing.T, parts ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<xml/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func makeDocx(t *testing.T) []byte {
	return makeZip(t, "[Content_Types].xml", "word/document.xml")
}

func TestValidateDocx(t *testing.T) {
	tests := []struct {
		name    string
		data    func(t *testing.T) []byte
		wantErr string
	}{
		{
			name: "valid docx",
			data: makeDocx,
		},
		{
			name:    "empty",
			data:    func(*testing.T) []byte { return nil },
			wantErr: "empty",
		},
		{
			name:    "not a zip",
			data:    func(*testing.T) []byte { return []byte("%PDF-1.7 not a word file") },
			wantErr: "not a Word document",
		},
		{
			name:    "zip without main document part",
			data:    func(t *testing.T) []byte { return makeZip(t, "xl/workbook.xml") },
			wantErr: "missing word/document.xml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocx(tt.data(t))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInvoker_Invoke(t *testing.T) {
	want := &types.ConversionResult{Name: "document", Texts: 3}
	conv := &fakeConverter{result: want}
	ws := t.TempDir()
	doc := makeDocx(t)

	got, err := NewInvoker(conv, zerolog.Nop()).Invoke(context.Background(), doc, ws)
	require.NoError(t, err)

	assert.Same(t, want, got)
	assert.Equal(t, 1, conv.calls)
	assert.Equal(t, filepath.Join(ws, "input", "document.docx"), conv.docPath)
	assert.Equal(t, filepath.Join(ws, "output"), conv.outDir)
	assert.Equal(t, doc, conv.docData)
	assert.DirExists(t, conv.outDir)
}

func TestInvoker_RejectsCorruptDocument(t *testing.T) {
	conv := &fakeConverter{}
	_, err := NewInvoker(conv, zerolog.Nop()).Invoke(context.Background(), []byte("garbage"), t.TempDir())

	assert.ErrorIs(t, err, types.ErrConversion)
	assert.Equal(t, 0, conv.calls, "engine must not run on invalid input")
}

func TestInvoker_WrapsEngineError(t *testing.T) {
	conv := &fakeConverter{err: errors.New("engine crashed")}
	_, err := NewInvoker(conv, zerolog.Nop()).Invoke(context.Background(), makeDocx(t), t.TempDir())

	assert.ErrorIs(t, err, types.ErrConversion)
	assert.Contains(t, err.Error(), "engine crashed")
}
