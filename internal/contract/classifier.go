package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/huangsam/monoscope/schema"
)

// ExecClassifier implements the OwnerClassifier interface by executing an
// external owners script with the module path as its only argument.
type ExecClassifier struct {
	Script      string
	ErrorMarker string
}

var _ OwnerClassifier = &ExecClassifier{} // Compile-time check

// NewExecClassifier creates a classifier backed by the given script.
func NewExecClassifier(script, errorMarker string) *ExecClassifier {
	return &ExecClassifier{Script: script, ErrorMarker: errorMarker}
}

// Classify runs the script and returns its trimmed stdout as the owner label.
// A non-zero exit, empty output, or output containing the error marker is a failure.
func (c *ExecClassifier) Classify(ctx context.Context, modulePath string) (string, error) {
	cmd := exec.CommandContext(ctx, c.Script, modulePath)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return "", &ClassifyError{Module: modulePath, Output: stderr, Err: fmt.Errorf("owners script exited with status %d", exitErr.ExitCode())}
	} else if err != nil {
		return "", &ClassifyError{Module: modulePath, Err: fmt.Errorf("owners script failed: %w. Ensure %q exists and is executable", err, c.Script)}
	}

	owner := strings.TrimSpace(string(out))
	if owner == "" {
		return "", &ClassifyError{Module: modulePath, Err: errors.New("owners script printed nothing")}
	}
	if c.ErrorMarker != "" && strings.Contains(owner, c.ErrorMarker) {
		return "", &ClassifyError{Module: modulePath, Output: owner, Err: fmt.Errorf("owners script reported %q", c.ErrorMarker)}
	}
	return owner, nil
}

// StaticClassifier assigns every module to the same owner.
type StaticClassifier struct {
	Owner string
}

var _ OwnerClassifier = StaticClassifier{} // Compile-time check

// Classify implements the OwnerClassifier interface.
func (c StaticClassifier) Classify(_ context.Context, _ string) (string, error) {
	return c.Owner, nil
}

// NewClassifier returns the classifier configured by cfg: the owners script
// when one is set, otherwise a static classifier for the default owner.
func NewClassifier(cfg *Config) OwnerClassifier {
	if cfg.OwnersScript == "" {
		return StaticClassifier{Owner: schema.DefaultOwner}
	}
	return NewExecClassifier(cfg.OwnersScript, cfg.OwnersErrorMarker)
}
