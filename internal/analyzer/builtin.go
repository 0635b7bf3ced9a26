package analyzer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
	"go.uber.org/zap"
)

// sourceExtensions are the file types the built-in analyzer parses.
var sourceExtensions = []string{".js", ".mjs", ".cjs"}

// Builtin analyzes JavaScript sources in-process with tree-sitter.
type Builtin struct {
	RC       *ESLintRC
	Excludes []string
	rules    lintRules
}

var _ contract.Analyzer = &Builtin{} // Compile-time check

// NewBuiltin creates a built-in analyzer using the given lint configuration.
func NewBuiltin(rc *ESLintRC, excludes []string) *Builtin {
	return &Builtin{RC: rc, Excludes: excludes, rules: rc.lintRules()}
}

// Analyze walks the job's source directory and measures every source file
// not filtered out by the job, the eslintrc ignore patterns or the global excludes.
// Record paths are relative to the source directory. Records are sorted by path.
func (b *Builtin) Analyze(ctx context.Context, job schema.Job) (schema.Report, error) {
	files, err := b.collect(job)
	if err != nil {
		return nil, err
	}

	report := make(schema.Report, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := os.ReadFile(filepath.Join(job.SourceDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		record, err := measure(ctx, rel, src, b.rules)
		if err != nil {
			return nil, err
		}
		report = append(report, record)
	}

	contract.Logger().Debug("Analyzed job",
		zap.String("title", job.Title),
		zap.String("source", job.SourceDir),
		zap.Int("files", len(report)))
	return report, nil
}

// Overview implements contract.Analyzer.
func (b *Builtin) Overview(records schema.Report) schema.Summary {
	return Overview(records)
}

// collect returns the slash-separated relative paths of every file to analyze.
func (b *Builtin) collect(job schema.Job) ([]string, error) {
	var files []string
	err := filepath.WalkDir(job.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(job.SourceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			dir := rel + "/"
			if contract.ShouldIgnore(dir, b.Excludes) || job.Excludes(rel) || job.Excludes(dir) || b.RC.Ignored(dir) {
				return filepath.SkipDir
			}
			return nil
		}

		if !slices.Contains(sourceExtensions, strings.ToLower(filepath.Ext(rel))) {
			return nil
		}
		if job.Excludes(rel) || b.RC.Ignored(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", job.SourceDir, err)
	}
	slices.Sort(files)
	return files, nil
}
