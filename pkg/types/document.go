// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// SourceDocument identifies the Word document to convert. Exactly one of
// URL, Path, or Data is set.
type SourceDocument struct {
	// URL is fetched over HTTP(S).
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Path is read from the local filesystem.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Data holds the raw document bytes supplied by the caller.
	Data []byte `json:"-" yaml:"-"`

	// Name is a display name used in logs and frontmatter.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// FromURL returns a SourceDocument that downloads url.
func FromURL(url string) SourceDocument { return SourceDocument{URL: url, Name: url} }

// FromPath returns a SourceDocument that reads a local file.
func FromPath(path string) SourceDocument { return SourceDocument{Path: path, Name: path} }

// FromBytes returns a SourceDocument wrapping raw bytes.
func FromBytes(name string, data []byte) SourceDocument {
	return SourceDocument{Data: data, Name: name}
}

// Validate reports whether exactly one input is populated.
func (s SourceDocument) Validate() error {
	n := 0
	if s.URL != "" {
		n++
	}
	if s.Path != "" {
		n++
	}
	if s.Data != nil {
		n++
	}
	switch n {
	case 0:
		return fmt.Errorf("%w: no URL, path, or data", ErrInvalidSource)
	case 1:
		return nil
	default:
		return fmt.Errorf("%w: set only one of URL, path, or data", ErrInvalidSource)
	}
}

// String returns a short description for logs.
func (s SourceDocument) String() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.URL != "":
		return s.URL
	case s.Path != "":
		return s.Path
	default:
		return "<bytes>"
	}
}

// ImageReference is one picture the engine extracted to its own file.
type ImageReference struct {
	// ID is the artifact file name. It is unique within a ConversionResult
	// and is the token that appears in the Markdown image link.
	ID string `json:"id" yaml:"id"`

	// Ref is the engine's self-reference (e.g. "#/pictures/0"), if known.
	Ref string `json:"ref,omitempty" yaml:"ref,omitempty"`

	// Path is the absolute location of the extracted file.
	Path string `json:"path" yaml:"path"`

	// MIMEType is reported by the engine or derived from the extension.
	MIMEType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`

	// Index is the picture's position in document order.
	Index int `json:"index" yaml:"index"`
}

// ConversionResult is the engine output for a single run.
type ConversionResult struct {
	// Name is the document name reported by the engine.
	Name string `json:"name" yaml:"name"`

	// MarkdownPath is the engine's Markdown export.
	MarkdownPath string `json:"markdown_path" yaml:"markdown_path"`

	// ArtifactsDir holds the referenced picture files.
	ArtifactsDir string `json:"artifacts_dir" yaml:"artifacts_dir"`

	Texts    int `json:"texts" yaml:"texts"`
	Tables   int `json:"tables" yaml:"tables"`
	Pictures int `json:"pictures" yaml:"pictures"`

	// Images lists the referenced pictures in document order.
	Images []ImageReference `json:"images" yaml:"images"`
}

// ImageURLMap maps ImageReference.ID to the uploaded object URL.
type ImageURLMap map[string]string

// ImageFailure records an image whose upload was skipped.
type ImageFailure struct {
	ID  string
	Err error
}

// Result is the outcome of a successful pipeline run.
type Result struct {
	// Markdown is the rewritten document text.
	Markdown string

	// Images maps every uploaded image ID to its URL.
	Images ImageURLMap

	// Failures lists images left unresolved after an upload error.
	Failures []ImageFailure

	// Rewritten counts image links that now point at storage URLs.
	Rewritten int

	// Unresolved counts image links left unchanged.
	Unresolved int

	Duration time.Duration
}
