// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/word2md/pkg/types"
)

// Frontmatter describes a conversion run in the YAML header.
type Frontmatter struct {
	Source      string             `yaml:"source"`
	ConvertedAt time.Time          `yaml:"converted_at"`
	Images      []FrontmatterImage `yaml:"images,omitempty"`
	Unresolved  []string           `yaml:"unresolved_images,omitempty"`
}

// FrontmatterImage records one relocated image.
type FrontmatterImage struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// NewFrontmatter builds the header for a run. Images are sorted by ID so
// the header is stable across runs.
func NewFrontmatter(source string, at time.Time, urls types.ImageURLMap, failures []types.ImageFailure) Frontmatter {
	fm := Frontmatter{Source: source, ConvertedAt: at.UTC()}

	ids := make([]string, 0, len(urls))
	for id := range urls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fm.Images = append(fm.Images, FrontmatterImage{ID: id, URL: urls[id]})
	}
	for _, f := range failures {
		fm.Unresolved = append(fm.Unresolved, f.ID)
	}
	return fm
}

// AddFrontmatter prepends fm as a YAML frontmatter block to body.
func AddFrontmatter(fm Frontmatter, body string) (string, error) {
	data, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String(), nil
}
