// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/word2md/pkg/types"
)

// stdinArg selects standard input as the document source.
const stdinArg = "-"

var convertCmd = &cobra.Command{
	Use:   "convert <url|path|->",
	Short: "Convert a Word document to Markdown",
	Long: `Convert fetches a Word document, converts it to Markdown with docling,
uploads the extracted images to object storage and rewrites the image links.

The argument is an http(s) URL, a local file path, or "-" to read the
document from standard input. The Markdown is written to standard output
unless --output is given.

Images that fail to upload keep their original link and are reported as
unresolved; use --strict to fail the run instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", "write Markdown to this file instead of stdout")
	convertCmd.Flags().Bool("strict", false, "fail when any image upload fails")
	convertCmd.Flags().Bool("frontmatter", false, "prepend a YAML header describing the run")

	viper.BindPFlag("pipeline.strict", convertCmd.Flags().Lookup("strict"))
	viper.BindPFlag("pipeline.frontmatter", convertCmd.Flags().Lookup("frontmatter"))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := sourceFromArg(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(ctx, appConfig, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, src)
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("output")
	if err := writeOutput(cmd.OutOrStdout(), outPath, res.Markdown); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "converted %s: %d image(s) uploaded, %d link(s) rewritten, %d unresolved (%s)\n",
		src, len(res.Images), res.Rewritten, res.Unresolved, res.Duration.Round(time.Millisecond))
	for _, f := range res.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "  unresolved %s: %v\n", f.ID, f.Err)
	}
	return nil
}

// sourceFromArg interprets the convert argument.
func sourceFromArg(arg string, stdin io.Reader) (types.SourceDocument, error) {
	switch {
	case arg == stdinArg:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return types.SourceDocument{}, fmt.Errorf("%w: reading stdin: %w", types.ErrFetch, err)
		}
		return types.FromBytes("stdin", data), nil
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return types.FromURL(arg), nil
	case arg == "":
		return types.SourceDocument{}, fmt.Errorf("%w: empty document argument", types.ErrFetch)
	default:
		return types.FromPath(arg), nil
	}
}

// writeOutput writes markdown to path, or to w when path is empty.
func writeOutput(w io.Writer, path, markdown string) error {
	if path == "" {
		_, err := io.WriteString(w, markdown)
		return err
	}
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
