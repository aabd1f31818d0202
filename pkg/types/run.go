// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunRecord summarises one pipeline run for the history ledger.
type RunRecord struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`

	// Stage is StageDone on success, or the stage that failed.
	Stage Stage  `json:"stage" yaml:"stage"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	Rewritten  int `json:"rewritten" yaml:"rewritten"`
	Unresolved int `json:"unresolved" yaml:"unresolved"`

	// Images maps image IDs to uploaded URLs.
	Images ImageURLMap `json:"images,omitempty" yaml:"images,omitempty"`

	// Failed lists image IDs whose upload was skipped.
	Failed []string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Succeeded reports whether the run reached StageDone.
func (r RunRecord) Succeeded() bool { return r.Stage == StageDone }
