package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
)

// Exec delegates analysis to an external command. The command receives the
// job as flags and must print a JSON array of file records on stdout.
//
//	<cmd> --source <dir> --output <dir> --title <title> --exclude <regex> --eslintrc <path>
type Exec struct {
	Command []string
}

var _ contract.Analyzer = &Exec{} // Compile-time check

// NewExec creates an exec analyzer from a whitespace separated command line.
func NewExec(commandLine string) (*Exec, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: analyzer command is empty", contract.ErrMissingFlag)
	}
	return &Exec{Command: fields}, nil
}

// Analyze runs the external analyzer for one job.
func (e *Exec) Analyze(ctx context.Context, job schema.Job) (schema.Report, error) {
	args := append(slices.Clone(e.Command[1:]),
		"--source", job.SourceDir,
		"--output", job.OutputDir,
		"--title", job.Title,
	)
	if job.Exclude != nil {
		args = append(args, "--exclude", job.Exclude.String())
	}
	if job.ESLintRC != "" {
		args = append(args, "--eslintrc", job.ESLintRC)
	}

	if job.OutputDir != "" {
		if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("analyzer exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to run analyzer: %w", err)
	}

	var report schema.Report
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("analyzer returned unusable output: %w", err)
	}
	return report, nil
}

// Overview implements contract.Analyzer.
func (e *Exec) Overview(records schema.Report) schema.Summary {
	return Overview(records)
}
