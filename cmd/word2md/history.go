// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/word2md/internal/ledger"
	"github.com/pdiddy/word2md/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversion runs",
	Long: `History lists the most recent conversion runs from the run ledger,
newest first. The ledger is enabled by setting ledger.path in the config
file or WORD2MD_LEDGER_PATH.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if appConfig.Ledger.Path == "" {
		return errors.New("run ledger is disabled: set ledger.path")
	}

	store, err := ledger.Open(appConfig.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistory(cmd.OutOrStdout(), runs, jsonOutput)
}

func formatHistory(w io.Writer, runs []types.RunRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-20s  %-18s  %-40s  %6s  %6s  %s\n",
		"Started", "Stage", "Source", "Images", "Unres.", "Duration")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range runs {
		source := r.Source
		if len(source) > 40 {
			source = "..." + source[len(source)-37:]
		}
		fmt.Fprintf(w, "%-20s  %-18s  %-40s  %6d  %6d  %s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Stage, source,
			len(r.Images), r.Unresolved, r.Duration.Round(time.Millisecond))
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
	}

	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}
