// Package schema holds the plain data types shared across monoscope packages.
package schema

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Module is one independently-versioned unit of the codebase, identified by its manifest.
type Module struct {
	ManifestPath string   `json:"manifest_path"`
	Dir          string   `json:"dir"`
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	HasTests     bool     `json:"has_tests"`
	Segment      string   `json:"segment,omitempty"` // report directory name, unique within a run
}

// titleReplacer turns scoped package names into directory-safe titles.
var titleReplacer = strings.NewReplacer("@", "", "/", "-", "\\", "-", " ", "-")

// segmentReplacer keeps labels usable as a single path segment.
var segmentReplacer = strings.NewReplacer("/", "-", "\\", "-", "..", "-")

// PathSegment converts a label such as an owner or module name into a single directory name.
func PathSegment(label string) string {
	s := strings.TrimSpace(segmentReplacer.Replace(label))
	if s == "" || s == "." {
		return "_"
	}
	return s
}

// Title returns a filesystem-safe display name for the module.
func (m Module) Title() string {
	name := m.Name
	if name == "" {
		name = filepath.Base(m.Dir)
	}
	return PathSegment(titleReplacer.Replace(name))
}

// Ref returns the identity of the module inside the aggregation tree.
func (m Module) Ref() ModuleRef {
	return ModuleRef{Dir: m.Dir, Title: m.Title(), Segment: m.Segment}
}

// ModuleRef identifies a module leaf. Dir is the unique key; Title is used for display.
type ModuleRef struct {
	Dir     string `json:"dir"`
	Title   string `json:"title"`
	Segment string `json:"segment,omitempty"`
}

// PathName returns the directory name holding the module's reports.
func (r ModuleRef) PathName() string {
	if r.Segment != "" {
		return r.Segment
	}
	return PathSegment(r.Title)
}

// UniqueSegments maps each module Dir to a report directory name. Names that
// collide, ignoring case, get a short hash of the Dir appended.
func UniqueSegments(refs []ModuleRef) map[string]string {
	dirsByName := make(map[string][]string)
	for _, r := range refs {
		key := strings.ToLower(r.PathName())
		if !slices.Contains(dirsByName[key], r.Dir) {
			dirsByName[key] = append(dirsByName[key], r.Dir)
		}
	}

	out := make(map[string]string, len(refs))
	for _, r := range refs {
		name := r.PathName()
		if len(dirsByName[strings.ToLower(name)]) > 1 {
			sum := sha256.Sum256([]byte(r.Dir))
			name = fmt.Sprintf("%s-%x", name, sum[:4])
		}
		out[r.Dir] = name
	}
	return out
}

// Job is one unit of analysis work: a source directory with an exclusion pattern.
type Job struct {
	Owner     string
	Category  Category
	Module    ModuleRef
	SourceDir string
	OutputDir string
	Title     string
	Exclude   *regexp.Regexp // matched against slash-separated paths relative to SourceDir
	ESLintRC  string
}

// Excludes reports whether the relative path is filtered out of this job.
func (j Job) Excludes(rel string) bool {
	if j.Exclude == nil {
		return false
	}
	return j.Exclude.MatchString(filepath.ToSlash(rel))
}

// FileRecord holds the analyzer output for a single source file.
type FileRecord struct {
	File            string  `json:"file"`
	SLOC            int     `json:"sloc"`
	Functions       int     `json:"functions"`
	Cyclomatic      int     `json:"cyclomatic"`
	HalsteadVolume  float64 `json:"halstead_volume"`
	Maintainability float64 `json:"maintainability"`
	LintMessages    int     `json:"lint_messages"`
}

// Report is the raw analyzer output for one job. Reports can be appended and concatenated.
type Report []FileRecord

// Concat returns a new report holding the records of r followed by the records of others.
func (r Report) Concat(others ...Report) Report {
	n := len(r)
	for _, o := range others {
		n += len(o)
	}
	out := make(Report, 0, n)
	out = append(out, r...)
	for _, o := range others {
		out = append(out, o...)
	}
	return out
}

// Summary is the overview reduction of a set of file records.
type Summary struct {
	Files                  int     `json:"files"`
	TotalSLOC              int     `json:"total_sloc"`
	AverageSLOC            float64 `json:"average_sloc"`
	AverageMaintainability float64 `json:"average_maintainability"`
	AverageCyclomatic      float64 `json:"average_cyclomatic"`
	MaxCyclomatic          int     `json:"max_cyclomatic"`
	TotalLintMessages      int     `json:"total_lint_messages"`
}

// TreeView is a read-only snapshot of the aggregation tree after summaries are computed.
type TreeView struct {
	Summary Summary     `json:"summary"`
	Owners  []OwnerView `json:"owners"`
}

// OwnerView is the per-owner slice of a TreeView.
type OwnerView struct {
	Owner      string         `json:"owner"`
	Summary    Summary        `json:"summary"`
	Categories []CategoryView `json:"categories"`
}

// CategoryView is the per-category slice of an OwnerView.
type CategoryView struct {
	Category Category     `json:"category"`
	Summary  Summary      `json:"summary"`
	Modules  []ModuleView `json:"modules"`
}

// ModuleView is a single leaf of the tree.
type ModuleView struct {
	Module  ModuleRef `json:"module"`
	Summary Summary   `json:"summary"`
	Report  Report    `json:"report,omitempty"`
	Failed  bool      `json:"failed"`
	Error   string    `json:"error,omitempty"`
}

// AllRecords concatenates every successful leaf report of the owner in sorted order.
func (o OwnerView) AllRecords() Report {
	var out Report
	for _, c := range o.Categories {
		for _, m := range c.Modules {
			out = append(out, m.Report...)
		}
	}
	return out
}

// RunResult holds the user-visible counts of a finished run.
type RunResult struct {
	RunID         int64         `json:"run_id,omitempty"`
	Modules       int           `json:"modules"`
	Addons        int           `json:"addons"`
	Engines       int           `json:"engines"`
	Owners        int           `json:"owners"`
	Jobs          int           `json:"jobs"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	FailedModules int           `json:"failed_modules"`
	Cancelled     int           `json:"cancelled"`
	EmitErrors    int           `json:"emit_errors"`
	Duration      time.Duration `json:"duration"`
}
