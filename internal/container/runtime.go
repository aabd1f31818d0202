// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container implements runtime detection and execution for the
// external conversion engine: docker, podman, or a binary on PATH.
package container

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/pdiddy/word2md/pkg/types"
)

const (
	binDocker = "docker"
	binPodman = "podman"
	nameLocal = "local"
)

// Mount binds a host directory into the container.
type Mount struct {
	Host      string
	Container string
}

// RunSpec describes one engine invocation. Command holds the executable
// and its arguments; paths in it must come from Runtime.Path.
type RunSpec struct {
	Image   string
	Command []string
	Mounts  []Mount
	// User is passed as --user to container runtimes (e.g. "1000:1000").
	User   string
	Stdout io.Writer
	Stderr io.Writer
}

// Runtime provides engine operations: checking availability, verifying
// images, and running the engine.
type Runtime interface {
	// Name returns the runtime name ("docker", "podman" or "local").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	// Returns nil when the image is found, or an error describing the failure.
	ImageExists(image string) error

	// Path returns how the engine process sees a mounted directory.
	Path(m Mount) string

	// Run executes the engine and waits for it to exit.
	Run(ctx context.Context, spec RunSpec) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunCommand(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) RunCommand(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// runtime implements Runtime for a specific container binary. Both Docker
// and Podman share the same logic; they differ only in binary name and the
// subcommand used to check image existence.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Path(m Mount) string { return m.Container }

func (r *runtime) Run(ctx context.Context, spec RunSpec) error {
	if len(spec.Command) == 0 {
		return fmt.Errorf("running %s container %s: empty command", r.bin, spec.Image)
	}
	args := []string{"run", "--rm", "--network", "none"}
	if spec.User != "" {
		args = append(args, "--user", spec.User)
	}
	for _, m := range spec.Mounts {
		args = append(args, "-v", m.Host+":"+m.Container)
	}
	args = append(args, spec.Image)
	args = append(args, spec.Command...)

	if err := r.exec.RunCommand(ctx, r.bin, args, spec.Stdout, spec.Stderr); err != nil {
		return fmt.Errorf("running %s container %s: %w", r.bin, spec.Image, err)
	}
	return nil
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

// localRuntime runs the engine binary directly on the host.
type localRuntime struct {
	bin  string
	exec executor
}

func (l *localRuntime) Name() string { return nameLocal }

func (l *localRuntime) Available() bool {
	_, err := l.exec.LookPath(l.bin)
	return err == nil
}

// ImageExists ignores the image and checks the engine binary instead.
func (l *localRuntime) ImageExists(string) error {
	if _, err := l.exec.LookPath(l.bin); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", l.bin, err)
	}
	return nil
}

func (l *localRuntime) Path(m Mount) string { return m.Host }

func (l *localRuntime) Run(ctx context.Context, spec RunSpec) error {
	if len(spec.Command) == 0 {
		return fmt.Errorf("running %s: empty command", l.bin)
	}
	if err := l.exec.RunCommand(ctx, spec.Command[0], spec.Command[1:], spec.Stdout, spec.Stderr); err != nil {
		return fmt.Errorf("running %s: %w", spec.Command[0], err)
	}
	return nil
}

func newLocalRuntime(bin string, exec executor) *localRuntime {
	return &localRuntime{bin: bin, exec: exec}
}

var defaultExec = &osExecutor{}

// DetectRuntime returns the runtime selected by kind. RuntimeAuto tries
// docker first, then podman, then the engine binary on PATH. Returns an
// error if the selected runtime is not available.
func DetectRuntime(kind types.RuntimeKind, binary string) (Runtime, error) {
	return detectRuntime(defaultExec, kind, binary)
}

func detectRuntime(exec executor, kind types.RuntimeKind, binary string) (Runtime, error) {
	var candidates []Runtime
	switch kind {
	case types.RuntimeDocker:
		candidates = []Runtime{newDockerRuntime(exec)}
	case types.RuntimePodman:
		candidates = []Runtime{newPodmanRuntime(exec)}
	case types.RuntimeLocal:
		candidates = []Runtime{newLocalRuntime(binary, exec)}
	case types.RuntimeAuto, "":
		candidates = []Runtime{
			newDockerRuntime(exec),
			newPodmanRuntime(exec),
			newLocalRuntime(binary, exec),
		}
	default:
		return nil, fmt.Errorf("unknown engine runtime %q", kind)
	}

	names := make([]string, 0, len(candidates))
	for _, rt := range candidates {
		if rt.Available() {
			return rt, nil
		}
		names = append(names, rt.Name())
	}

	return nil, fmt.Errorf(
		"no container runtime available: %s not found or operational",
		strings.Join(names, ", "),
	)
}
