// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Sentinel errors for each pipeline stage.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrConversion = errors.New("conversion failed")
	ErrUpload     = errors.New("upload failed")
	ErrRewrite    = errors.New("rewrite failed")
)

// ErrInvalidSource reports a SourceDocument with no input or more than one.
var ErrInvalidSource = errors.New("invalid source document")

// Stage names a pipeline state.
type Stage string

const (
	StageFetching   Stage = "fetching"
	StageConverting Stage = "converting"
	StageRelocating Stage = "relocating_images"
	StageRewriting  Stage = "rewriting"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// StageError is the single failure a pipeline run reports. It names the
// stage that failed and wraps the underlying cause.
type StageError struct {
	Stage  Stage
	Source string
	Err    error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }
