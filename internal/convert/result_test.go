// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/word2md/pkg/types"
)

// writeOutput lays out engine output for stem "document" in a temp dir.
// files maps paths relative to the output directory to their contents.
func writeOutput(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

const docJSON = `{
  "schema_name": "DoclingDocument",
  "name": "quarterly-report",
  "texts": [{"self_ref": "#/texts/0"}, {"self_ref": "#/texts/1"}],
  "tables": [{"self_ref": "#/tables/0"}],
  "pictures": [
    {"self_ref": "#/pictures/0", "image": {"mimetype": "image/png", "uri": "document_artifacts/img0.png"}},
    {"self_ref": "#/pictures/1", "image": {"mimetype": "image/jpeg", "uri": "/work/out/document_artifacts/img1.jpg"}},
    {"self_ref": "#/pictures/2", "image": {"mimetype": "image/png", "uri": "data:image/png;base64,AAAA"}},
    {"self_ref": "#/pictures/3"},
    {"self_ref": "#/pictures/4", "image": {"mimetype": "image/png", "uri": "document_artifacts/missing.png"}},
    {"self_ref": "#/pictures/5", "image": {"mimetype": "image/png", "uri": "document_artifacts/img0.png"}},
    {"self_ref": "#/pictures/6", "image": {"uri": "../escape.png"}}
  ]
}`

func TestParseOutput_JSON(t *testing.T) {
	dir := writeOutput(t, map[string]string{
		"document.md":                 "# Report\n",
		"document.json":               docJSON,
		"document_artifacts/img0.png": "png",
		"document_artifacts/img1.jpg": "jpg",
	})
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "escape.png"), []byte("x"), 0o644))

	res, err := ParseOutput(dir, "document", zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "quarterly-report", res.Name)
	assert.Equal(t, filepath.Join(dir, "document.md"), res.MarkdownPath)
	assert.Equal(t, filepath.Join(dir, "document_artifacts"), res.ArtifactsDir)
	assert.Equal(t, 2, res.Texts)
	assert.Equal(t, 1, res.Tables)
	assert.Equal(t, 7, res.Pictures)

	require.Len(t, res.Images, 2)
	assert.Equal(t, types.ImageReference{
		ID:       "img0.png",
		Ref:      "#/pictures/0",
		Path:     filepath.Join(dir, "document_artifacts", "img0.png"),
		MIMEType: "image/png",
		Index:    0,
	}, res.Images[0])
	assert.Equal(t, "img1.jpg", res.Images[1].ID)
	assert.Equal(t, "image/jpeg", res.Images[1].MIMEType)
	assert.Equal(t, 1, res.Images[1].Index)
}

func TestParseOutput_ListsArtifactsWithoutJSON(t *testing.T) {
	dir := writeOutput(t, map[string]string{
		"document.md":                  "text",
		"document_artifacts/i1.png":    "b",
		"document_artifacts/i0.png":    "a",
		"document_artifacts/notes.txt": "ignored",
	})

	res, err := ParseOutput(dir, "document", zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, res.Images, 2)
	assert.Equal(t, "i0.png", res.Images[0].ID)
	assert.Equal(t, "i1.png", res.Images[1].ID)
	assert.Equal(t, "image/png", res.Images[0].MIMEType)
	assert.Equal(t, 2, res.Pictures)
}

func TestParseOutput_NoPictures(t *testing.T) {
	dir := writeOutput(t, map[string]string{"document.md": "plain"})

	res, err := ParseOutput(dir, "document", zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, res.Images)
}

func TestParseOutput_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name:  "missing markdown export",
			files: map[string]string{"document.json": "{}"},
		},
		{
			name: "malformed JSON export",
			files: map[string]string{
				"document.md":   "x",
				"document.json": "{not json",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOutput(writeOutput(t, tt.files), "document", zerolog.Nop())
			assert.ErrorIs(t, err, types.ErrConversion)
		})
	}
}

func TestMimeFor(t *testing.T) {
	assert.Equal(t, "image/webp", mimeFor("image/webp", "x.png"))
	assert.Equal(t, "image/png", mimeFor("", "x.PNG"))
	assert.Equal(t, "application/octet-stream", mimeFor("", "x.unknownext"))
}
