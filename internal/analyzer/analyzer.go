// Package analyzer provides the Analyzer implementations used to measure a module directory.
package analyzer

import (
	"fmt"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
)

// New returns the analyzer selected by the config.
func New(cfg *contract.Config) (contract.Analyzer, error) {
	switch cfg.Analyzer {
	case schema.ExecAnalyzer:
		return NewExec(cfg.AnalyzerCmd)
	case schema.BuiltinAnalyzer, "":
		rc, err := LoadESLintRC(cfg.ESLintRC)
		if err != nil {
			return nil, err
		}
		return NewBuiltin(rc, cfg.Excludes), nil
	default:
		return nil, fmt.Errorf("unsupported analyzer: %s", cfg.Analyzer)
	}
}

// Overview reduces records to a summary. Floating point sums depend on
// order, so callers pass records in a stable order.
func Overview(records schema.Report) schema.Summary {
	s := schema.Summary{Files: len(records)}
	if s.Files == 0 {
		return s
	}

	var maintainability, cyclomatic float64
	for _, r := range records {
		s.TotalSLOC += r.SLOC
		s.TotalLintMessages += r.LintMessages
		s.MaxCyclomatic = max(s.MaxCyclomatic, r.Cyclomatic)
		maintainability += r.Maintainability
		cyclomatic += float64(r.Cyclomatic)
	}

	n := float64(s.Files)
	s.AverageSLOC = round2(float64(s.TotalSLOC) / n)
	s.AverageMaintainability = round2(maintainability / n)
	s.AverageCyclomatic = round2(cyclomatic / n)
	return s
}
