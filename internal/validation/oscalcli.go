// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validation runs the external NIST oscal-cli schema validator
// over emitted artifacts. The engine's own structural checks happen
// upstream; this is the authoritative target-schema pass.
// See docs/ARCHITECTURE § Validation.
package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

const defaultBin = "oscal-cli"

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Result is the outcome of validating one artifact file.
type Result struct {
	File string

	// Valid reports whether the validator accepted the file.
	Valid bool

	// Issues are the validator's error lines for an invalid file.
	Issues []string
}

// Validator wraps the oscal-cli binary.
type Validator struct {
	bin     string
	exec    executor
	version string
}

// NewValidator locates the validator binary and captures its version. An
// empty bin selects the default name on PATH.
func NewValidator(bin string) (*Validator, error) {
	return newValidator(bin, &osExecutor{})
}

func newValidator(bin string, ex executor) (*Validator, error) {
	if bin == "" {
		bin = defaultBin
	}
	if _, err := ex.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%s not found on PATH: %w", bin, err)
	}

	out, err := ex.Output(context.Background(), bin, "--version")
	if err != nil {
		return nil, fmt.Errorf("checking %s version: %w", bin, err)
	}
	version := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])

	return &Validator{bin: bin, exec: ex, version: version}, nil
}

// Version returns the validator's version line.
func (v *Validator) Version() string { return v.version }

// ValidateFile runs the validator against one artifact. A non-zero exit
// with parseable output is an invalid file, not an error; errors are
// reserved for the validator itself failing to run.
func (v *Validator) ValidateFile(ctx context.Context, path string) (Result, error) {
	if _, err := os.Stat(path); err != nil {
		return Result{}, fmt.Errorf("validating %s: %w", path, err)
	}

	out, err := v.exec.Output(ctx, v.bin, "validate", path)
	if err == nil {
		return Result{File: path, Valid: true}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Result{}, fmt.Errorf("running %s on %s: %w", v.bin, path, err)
	}

	return Result{File: path, Valid: false, Issues: issueLines(out)}, nil
}

// Summary holds counts from a directory validation run.
type Summary struct {
	Valid   int
	Invalid int
	Failed  int
}

// Total returns the number of files processed.
func (s Summary) Total() int { return s.Valid + s.Invalid + s.Failed }

// HasFailures reports whether any file was invalid or unprocessable.
func (s Summary) HasFailures() bool { return s.Invalid > 0 || s.Failed > 0 }

// ValidateDir validates every JSON artifact in dir, writing per-file
// status lines to w.
func (v *Validator) ValidateDir(ctx context.Context, dir string, w io.Writer) (Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("reading %s: %w", dir, err)
	}

	var summary Summary

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		path := filepath.Join(dir, name)
		result, err := v.ValidateFile(ctx, path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if result.Valid {
			fmt.Fprintf(w, "valid   %s\n", name)
			summary.Valid++
		} else {
			fmt.Fprintf(w, "invalid %s (%d issues)\n", name, len(result.Issues))
			for _, issue := range result.Issues {
				fmt.Fprintf(w, "        %s\n", issue)
			}
			summary.Invalid++
		}
	}

	fmt.Fprintf(w, "\nvalid: %d, invalid: %d, failed: %d\n",
		summary.Valid, summary.Invalid, summary.Failed)
	return summary, nil
}

// issueLines extracts the error lines from validator output.
func issueLines(out []byte) []string {
	var issues []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "ERROR") || strings.Contains(upper, "INVALID") {
			issues = append(issues, line)
		}
	}
	if len(issues) == 0 {
		issues = append(issues, "validator rejected the file without detail")
	}
	return issues
}
