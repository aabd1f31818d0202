// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rewrite reads the engine's Markdown export and points its image
// links at the uploaded objects.
package rewrite

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/pdiddy/word2md/pkg/types"
)

// imageLink matches inline image syntax: alt text, destination (optionally
// in angle brackets, with one level of balanced parentheses) and an
// optional title.
var imageLink = regexp.MustCompile(`!\[((?:[^\[\]\\]|\\.)*)\]\(\s*(<[^>\n]*>|(?:\\.|[^\s()\\]|\([^\s()]*\))+)((?:\s+(?:"[^"\n]*"|'[^'\n]*'|\([^)\n]*\)))?)\s*\)`)

// Output is the rewritten Markdown and its link counts.
type Output struct {
	Markdown   string
	Rewritten  int
	Unresolved int
}

// Rewriter substitutes image destinations. It is safe for concurrent use.
type Rewriter struct {
	md  goldmark.Markdown
	log zerolog.Logger
}

// New creates a Rewriter. Tables are enabled in the parser so pipe tables
// emitted by the engine are not mistaken for paragraphs.
func New(log zerolog.Logger) *Rewriter {
	return &Rewriter{
		md:  goldmark.New(goldmark.WithExtensions(extension.Table)),
		log: log,
	}
}

// Rewrite exports res to Markdown and substitutes every mapped image link.
func (r *Rewriter) Rewrite(res *types.ConversionResult, urls types.ImageURLMap) (Output, error) {
	src, err := Export(res)
	if err != nil {
		return Output{}, err
	}
	return r.Substitute(src, urls), nil
}

// Export returns the engine's Markdown export for res. A missing result,
// an unreadable export, or invalid UTF-8 wraps types.ErrRewrite.
func Export(res *types.ConversionResult) (string, error) {
	if res == nil || res.MarkdownPath == "" {
		return "", fmt.Errorf("%w: conversion result has no Markdown export", types.ErrRewrite)
	}
	data, err := os.ReadFile(res.MarkdownPath)
	if err != nil {
		return "", fmt.Errorf("%w: reading Markdown export: %w", types.ErrRewrite, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: Markdown export is not valid UTF-8", types.ErrRewrite)
	}
	return string(data), nil
}

// Substitute replaces the destination of each image link whose file name is
// a key of urls. Unmapped links are left as they are. Image syntax inside
// code spans, code blocks or raw HTML is not touched. Every image goldmark
// parses counts as either rewritten or unresolved.
func (r *Rewriter) Substitute(src string, urls types.ImageURLMap) Output {
	doc := r.parse([]byte(src))
	if len(doc.images) == 0 {
		return Output{Markdown: src}
	}

	var (
		b    strings.Builder
		out  Output
		last int
		next int
	)
	for _, m := range imageLink.FindAllStringSubmatchIndex(src, -1) {
		if next >= len(doc.images) {
			break
		}
		if doc.literal(m[0]) || escaped(src, m[0]) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(src[m[4]:m[5]], "<"), ">")
		k := matchFrom(raw, doc.images, next)
		if k < 0 {
			// Image syntax that goldmark did not parse as an image.
			continue
		}
		next = k + 1

		u, ok := lookup(doc.images[k], urls)
		if !ok {
			r.log.Debug().Str("destination", doc.images[k]).Msg("no uploaded URL, leaving image link unchanged")
			continue
		}
		b.WriteString(src[last:m[4]])
		b.WriteString(u)
		last = m[5]
		out.Rewritten++
	}
	b.WriteString(src[last:])

	out.Markdown = b.String()
	out.Unresolved = len(doc.images) - out.Rewritten
	return out
}

// imageDoc is what Substitute needs from the goldmark AST.
type imageDoc struct {
	// images holds the raw destination of every image node in document
	// order.
	images []string
	// spans are the byte ranges whose content is literal text: code spans,
	// code blocks and raw HTML.
	spans []text.Segment
}

func (r *Rewriter) parse(src []byte) imageDoc {
	doc := r.md.Parser().Parse(text.NewReader(src))
	var p imageDoc
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Image:
			p.images = append(p.images, string(n.Destination))
		case *ast.CodeSpan:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					p.spans = append(p.spans, t.Segment)
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			p.spans = appendSegments(p.spans, n.Segments)
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			p.spans = appendSegments(p.spans, n.Lines())
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return p
}

// literal reports whether offset falls inside a literal span.
func (p imageDoc) literal(offset int) bool {
	for _, s := range p.spans {
		if offset >= s.Start && offset < s.Stop {
			return true
		}
	}
	return false
}

func appendSegments(dst []text.Segment, segs *text.Segments) []text.Segment {
	if segs == nil {
		return dst
	}
	for i := 0; i < segs.Len(); i++ {
		dst = append(dst, segs.At(i))
	}
	return dst
}

// escaped reports whether the byte at i is preceded by an odd number of
// backslashes.
func escaped(src string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && src[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// matchFrom returns the index of the first parsed destination at or after
// start equal to raw, or -1.
func matchFrom(raw string, parsed []string, start int) int {
	for i := start; i < len(parsed); i++ {
		if parsed[i] == raw {
			return i
		}
	}
	return -1
}

// lookup finds the URL for a parsed destination by its last path segment,
// which is the image ID the engine assigned. Backslash escapes are removed
// first.
func lookup(dest string, urls types.ImageURLMap) (string, bool) {
	dest = string(util.UnescapePunctuations([]byte(dest)))
	if i := strings.IndexAny(dest, "?#"); i >= 0 {
		dest = dest[:i]
	}
	name := path.Base(strings.ReplaceAll(dest, `\`, "/"))
	if u, ok := urls[name]; ok {
		return u, true
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		if u, ok := urls[unescaped]; ok {
			return u, true
		}
	}
	return "", false
}
