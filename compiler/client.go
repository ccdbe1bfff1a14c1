package compiler

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/grenlsp/gren-lsp"
)

// ProjectType is gren.json's declared package type, which determines
// whether `gren make` needs an --output flag to suppress producing an
// application bundle (spec.md §6, grounded on the original's
// detect_project_type).
type ProjectType string

const (
	ProjectTypeApplication ProjectType = "application"
	ProjectTypePackage     ProjectType = "package"
)

// Client shells out to the configured gren compiler binary to produce
// diagnostics for a single module. It holds no per-document state; every
// call is independent and safe to run concurrently for different URIs
// (spec.md §5, §9).
type Client struct {
	binary  string
	timeout time.Duration
}

// New creates a Client from the resolved server configuration.
func New(cfg gren.ServerConfig) *Client {
	timeout := time.Duration(cfg.CompilerTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = gren.DefaultCompilerTimeoutSeconds * time.Second
	}

	return &Client{binary: cfg.CompilerBinary, timeout: timeout}
}

// Probe checks that the configured compiler binary exists and responds,
// returning a *gren.CompilerMissingError when it doesn't. Diagnostics are
// disabled rather than fatal when this fails (spec.md §7).
func (c *Client) Probe(ctx context.Context) error {
	if c.binary == "" {
		return &gren.CompilerMissingError{}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, c.binary, "--help")
	if err := cmd.Run(); err != nil {
		return &gren.CompilerMissingError{Path: c.binary}
	}

	return nil
}

// Compile runs `gren make` against modulePath (a filesystem path, the
// decoded form of a file:// URI) rooted at projectDir, returning the
// decoded report. A context deadline exceeded or a killed subprocess
// yields a *gren.CompilerTimeoutError; any other spawn failure yields a
// *gren.CompilerMissingError so callers degrade diagnostics uniformly
// (spec.md §6, §7).
func (c *Client) Compile(ctx context.Context, uri gren.URI, projectDir, modulePath string) (Report, error) {
	if c.binary == "" {
		return Report{}, &gren.CompilerMissingError{}
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{"make", modulePath, "--report=json"}
	if detectProjectType(projectDir) == ProjectTypeApplication {
		args = append(args, "--output=/dev/null")
	}

	cmd := exec.CommandContext(runCtx, c.binary, args...)
	cmd.Dir = projectDir

	var stderr strings.Builder
	cmd.Stderr = &stderr

	// `gren make --report=json` writes its JSON report to stderr on
	// failure and nothing on success; stdout carries build progress we
	// don't care about.
	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return Report{}, &gren.CompilerTimeoutError{URI: uri}
	}

	if err == nil {
		return Report{}, nil
	}

	if _, ok := err.(*exec.ExitError); !ok {
		return Report{}, &gren.CompilerMissingError{Path: c.binary}
	}

	return ParseReport(stderr.String())
}

// detectProjectType reads gren.json's "type" field, defaulting to
// application on any read or parse failure, mirroring the original's
// fail-open behavior (original_source/gren-lsp-core/src/compiler.rs).
func detectProjectType(projectDir string) ProjectType {
	data, err := os.ReadFile(filepath.Join(projectDir, "gren.json"))
	if err != nil {
		return ProjectTypeApplication
	}

	var manifest struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ProjectTypeApplication
	}

	if ProjectType(manifest.Type) == ProjectTypePackage {
		return ProjectTypePackage
	}

	return ProjectTypeApplication
}

// PathForURI converts a file:// URI to a filesystem path. Non-file-scheme
// URIs are returned unchanged since the compiler only ever deals with
// local files.
func PathForURI(uri gren.URI) string {
	const prefix = "file://"

	s := string(uri)
	if !strings.HasPrefix(s, prefix) {
		return s
	}

	return filepath.FromSlash(strings.TrimPrefix(s, prefix))
}
