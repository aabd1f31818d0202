// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/word2md/internal/container"
	"github.com/pdiddy/word2md/internal/storage"
	"github.com/pdiddy/word2md/pkg/types"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the conversion engine and object storage",
	Long: `Doctor reports which runtime would run docling, whether the docling image
(or binary) is present, and whether the storage bucket is reachable. It
never creates buckets or uploads anything.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// check is one doctor result line.
type check struct {
	name   string
	ok     bool
	detail string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	checks := append(engineChecks(appConfig.Engine), storageChecks(cmd.Context(), appConfig.Storage)...)

	failed := printChecks(cmd.OutOrStdout(), checks)
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func engineChecks(cfg types.EngineConfig) []check {
	rt, err := container.DetectRuntime(cfg.Runtime, cfg.Binary)
	if err != nil {
		return []check{{name: "engine runtime", detail: err.Error()}}
	}
	checks := []check{{name: "engine runtime", ok: true, detail: rt.Name()}}

	if err := rt.ImageExists(cfg.Image); err != nil {
		return append(checks, check{name: "docling", detail: err.Error()})
	}
	detail := cfg.Image
	if rt.Name() == "local" {
		detail = cfg.Binary
	}
	return append(checks, check{name: "docling", ok: true, detail: detail})
}

func storageChecks(ctx context.Context, cfg types.StorageConfig) []check {
	store, err := storage.NewMinIOStore(cfg)
	if err != nil {
		return []check{{name: "storage", detail: err.Error()}}
	}
	checks := []check{{name: "storage", ok: true, detail: cfg.Endpoint}}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		checks = append(checks, check{name: "credentials", detail: "access or secret key missing"})
	}

	exists, err := store.BucketExists(ctx)
	switch {
	case err != nil:
		checks = append(checks, check{name: "bucket", detail: err.Error()})
	case !exists && cfg.CreateBucket:
		checks = append(checks, check{name: "bucket", ok: true, detail: store.Bucket() + " (will be created)"})
	case !exists:
		checks = append(checks, check{name: "bucket", detail: store.Bucket() + " does not exist"})
	default:
		checks = append(checks, check{name: "bucket", ok: true, detail: store.Bucket()})
	}
	return checks
}

// printChecks writes one line per check and returns the number of failures.
func printChecks(w io.Writer, checks []check) int {
	failed := 0
	for _, c := range checks {
		status := "ok"
		if !c.ok {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(w, "%-4s  %-15s  %s\n", status, c.name, c.detail)
	}
	return failed
}
