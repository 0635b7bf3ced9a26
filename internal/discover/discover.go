// Package discover finds addon modules by expanding glob patterns and reading their manifests.
package discover

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
	"go.uber.org/zap"
)

// Discoverer turns glob patterns into a filtered list of modules.
type Discoverer struct {
	ManifestName  string
	AddonKeyword  string
	EngineKeyword string
	Excludes      []string
}

// New creates a Discoverer from the validated config.
func New(cfg *contract.Config) *Discoverer {
	return &Discoverer{
		ManifestName:  cfg.ManifestName,
		AddonKeyword:  cfg.AddonKeyword,
		EngineKeyword: cfg.EngineKeyword,
		Excludes:      cfg.Excludes,
	}
}

// Discover expands the patterns, keeps manifest files and loads the ones
// tagged with the addon keyword. An expansion that matches nothing at all
// is a configuration error and returns contract.ErrNoFiles.
func (d *Discoverer) Discover(patterns []string) ([]schema.Module, error) {
	files, err := Expand(patterns, d.Excludes)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %v", contract.ErrNoFiles, patterns)
	}

	manifests := FilterManifests(files, d.ManifestName)
	contract.Logger().Debug("Expanded globs",
		zap.Int("files", len(files)),
		zap.Int("manifests", len(manifests)))

	return d.LoadModules(manifests), nil
}

// Expand expands each doublestar pattern and returns the sorted, deduplicated
// set of matching files. Exclusions are applied to the part of each match
// below the pattern's static base directory.
func Expand(patterns []string, excludes []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	for _, pattern := range patterns {
		slashed := filepath.ToSlash(pattern)
		if !doublestar.ValidatePattern(slashed) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}

		base, rest := doublestar.SplitPattern(slashed)
		matches, err := doublestar.Glob(os.DirFS(filepath.FromSlash(base)), rest, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q: %w", pattern, err)
		}

		for _, m := range matches {
			if contract.ShouldIgnore(m, excludes) {
				continue
			}
			full := filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m))
			if _, dup := seen[full]; dup {
				continue
			}
			seen[full] = struct{}{}
			out = append(out, full)
		}
	}

	slices.Sort(out)
	return out, nil
}

// FilterManifests keeps only paths whose base name equals manifestName.
func FilterManifests(paths []string, manifestName string) []string {
	var out []string
	for _, p := range paths {
		if filepath.Base(p) == manifestName {
			out = append(out, p)
		}
	}
	return out
}

// manifest is the subset of package.json that discovery needs.
type manifest struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// LoadModules reads each manifest and keeps those tagged with the addon keyword.
// Unreadable or malformed manifests are logged and skipped.
func (d *Discoverer) LoadModules(manifests []string) []schema.Module {
	var modules []schema.Module
	seenDirs := make(map[string]struct{})

	for _, path := range manifests {
		m, err := readManifest(path)
		if err != nil {
			contract.LogWarn("Skipping unreadable manifest "+path, err)
			continue
		}
		if !slices.Contains(m.Keywords, d.AddonKeyword) {
			contract.Logger().Debug("Skipping manifest without addon keyword", zap.String("manifest", path))
			continue
		}

		dir := filepath.Dir(path)
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if _, dup := seenDirs[dir]; dup {
			continue
		}
		seenDirs[dir] = struct{}{}

		category := schema.AddonCategory
		if d.EngineKeyword != "" && slices.Contains(m.Keywords, d.EngineKeyword) {
			category = schema.EngineCategory
		}

		modules = append(modules, schema.Module{
			ManifestPath: path,
			Dir:          dir,
			Name:         m.Name,
			Category:     category,
			HasTests:     isDir(filepath.Join(dir, "tests")),
		})
	}
	return modules
}

func readManifest(path string) (manifest, error) {
	var m manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("invalid JSON: %w", err)
	}
	return m, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
