// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/word2md/pkg/types"
)

// artifactsSuffix is appended to the document stem for the picture folder.
const artifactsSuffix = "_artifacts"

// imageExts lists the artifact extensions picked up when the engine did not
// produce a JSON export.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".emf":  true,
	".wmf":  true,
}

// doclingDocument is the subset of the engine's JSON export read here.
type doclingDocument struct {
	Name     string            `json:"name"`
	Texts    []json.RawMessage `json:"texts"`
	Tables   []json.RawMessage `json:"tables"`
	Pictures []doclingPicture  `json:"pictures"`
}

type doclingPicture struct {
	SelfRef string        `json:"self_ref"`
	Image   *doclingImage `json:"image"`
}

type doclingImage struct {
	MIMEType string `json:"mimetype"`
	URI      string `json:"uri"`
}

// ParseOutput reads the engine output for stem in outDir. The Markdown
// export is required. Pictures come from the JSON export when present, and
// from the artifacts directory listing otherwise.
func ParseOutput(outDir, stem string, log zerolog.Logger) (*types.ConversionResult, error) {
	mdPath := filepath.Join(outDir, stem+".md")
	if info, err := os.Stat(mdPath); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: engine produced no Markdown export for %s", types.ErrConversion, stem)
	}

	res := &types.ConversionResult{
		Name:         stem,
		MarkdownPath: mdPath,
		ArtifactsDir: filepath.Join(outDir, stem+artifactsSuffix),
	}

	jsonPath := filepath.Join(outDir, stem+".json")
	data, err := os.ReadFile(jsonPath)
	switch {
	case err == nil:
		if err := parseDocument(data, outDir, res, log); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Msg("no JSON export, listing artifacts directory")
		images, err := listArtifacts(res.ArtifactsDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrConversion, err)
		}
		res.Images = images
		res.Pictures = len(images)
	default:
		return nil, fmt.Errorf("%w: reading JSON export: %w", types.ErrConversion, err)
	}

	return res, nil
}

func parseDocument(data []byte, outDir string, res *types.ConversionResult, log zerolog.Logger) error {
	var doc doclingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: parsing JSON export: %w", types.ErrConversion, err)
	}
	if doc.Name != "" {
		res.Name = doc.Name
	}
	res.Texts = len(doc.Texts)
	res.Tables = len(doc.Tables)
	res.Pictures = len(doc.Pictures)

	seen := make(map[string]bool)
	for _, pic := range doc.Pictures {
		if pic.Image == nil || pic.Image.URI == "" || strings.HasPrefix(pic.Image.URI, "data:") {
			continue
		}
		p, ok := resolveArtifact(pic.Image.URI, outDir, res.ArtifactsDir)
		if !ok {
			log.Warn().Str("uri", pic.Image.URI).Str("ref", pic.SelfRef).Msg("picture file not found in engine output")
			continue
		}
		id := filepath.Base(p)
		if seen[id] {
			continue
		}
		seen[id] = true
		res.Images = append(res.Images, types.ImageReference{
			ID:       id,
			Ref:      pic.SelfRef,
			Path:     p,
			MIMEType: mimeFor(pic.Image.MIMEType, id),
			Index:    len(res.Images),
		})
	}
	return nil
}

// resolveArtifact maps a picture URI to a file inside outDir. The engine may
// report the URI relative to the export, or as an absolute path in its own
// filesystem (container runtimes), so the artifacts directory is tried by
// file name first. URIs that resolve outside outDir are rejected.
func resolveArtifact(uri, outDir, artifactsDir string) (string, bool) {
	uri = strings.TrimPrefix(uri, "file://")
	byName := filepath.Join(artifactsDir, path.Base(uri))
	if isFile(byName) {
		return byName, true
	}
	if path.IsAbs(uri) {
		return "", false
	}
	rel := filepath.Join(outDir, filepath.FromSlash(uri))
	within, err := filepath.Rel(outDir, rel)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", false
	}
	if isFile(rel) {
		return rel, true
	}
	return "", false
}

// listArtifacts returns image files in dir sorted by name. A missing
// directory means the document has no pictures.
func listArtifacts(dir string) ([]types.ImageReference, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading artifacts directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	images := make([]types.ImageReference, 0, len(names))
	for i, name := range names {
		images = append(images, types.ImageReference{
			ID:       name,
			Path:     filepath.Join(dir, name),
			MIMEType: mimeFor("", name),
			Index:    i,
		})
	}
	return images, nil
}

// mimeFor prefers the engine's MIME type and falls back to the extension.
func mimeFor(reported, name string) string {
	if reported != "" {
		return reported
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
