package core

import (
	"path/filepath"
	"regexp"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
)

// bodyExclude keeps the tests subtree out of the body job. It is matched
// against slash-separated paths relative to the module directory.
var bodyExclude = regexp.MustCompile(`^tests(/|$)`)

// AssignSegments gives every module a report directory name that is unique
// across the run, so modules sharing a package name never share an output directory.
func AssignSegments(modules []schema.Module) {
	refs := make([]schema.ModuleRef, len(modules))
	for i, m := range modules {
		refs[i] = m.Ref()
	}
	segments := schema.UniqueSegments(refs)
	for i := range modules {
		modules[i].Segment = segments[modules[i].Dir]
	}
}

// BuildJobs returns the body job of a module and, when it has a tests
// directory, its tests job. Output directories follow
// <output>/<owner>/<category>/<module-segment>.
//
// The tests job is rooted at <module>/tests, which leaves the entry point
// and the shipped addon code outside of it.
func BuildJobs(module schema.Module, owner string, cfg *contract.Config) []schema.Job {
	ref := module.Ref()
	ownerDir := contract.PathSegment(owner)

	jobs := []schema.Job{{
		Owner:     owner,
		Category:  module.Category,
		Module:    ref,
		SourceDir: module.Dir,
		OutputDir: filepath.Join(cfg.OutputDir, ownerDir, string(module.Category), ref.PathName()),
		Title:     ref.Title,
		Exclude:   bodyExclude,
		ESLintRC:  cfg.ESLintRC,
	}}

	if module.HasTests {
		jobs = append(jobs, schema.Job{
			Owner:     owner,
			Category:  schema.TestsCategory,
			Module:    ref,
			SourceDir: filepath.Join(module.Dir, "tests"),
			OutputDir: filepath.Join(cfg.OutputDir, ownerDir, string(schema.TestsCategory), ref.PathName()),
			Title:     ref.Title + " tests",
			ESLintRC:  cfg.ESLintRC,
		})
	}
	return jobs
}
