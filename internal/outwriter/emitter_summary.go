package outwriter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
)

// SummaryEmitter writes one row per module leaf as CSV or JSON.
type SummaryEmitter struct {
	Format schema.SummaryFormat
	Path   string
}

var _ contract.Emitter = &SummaryEmitter{} // Compile-time check

// NewSummaryEmitter creates a summary emitter. Without an explicit summary
// file the table lands next to the reports as summary.<format>.
func NewSummaryEmitter(cfg *contract.Config) *SummaryEmitter {
	format := cfg.SummaryFormat
	if format == "" {
		format = schema.CSVSummary
	}
	path := cfg.SummaryFile
	if path == "" {
		path = filepath.Join(cfg.OutputDir, "summary."+string(format))
	}
	return &SummaryEmitter{Format: format, Path: path}
}

// Name implements contract.Emitter.
func (e *SummaryEmitter) Name() string { return "summary-" + string(e.Format) }

// Emit implements contract.Emitter.
func (e *SummaryEmitter) Emit(_ context.Context, view schema.TreeView) error {
	rows := summaryRows(view)
	switch e.Format {
	case schema.JSONSummary:
		return writeWithFile(e.Path, func(w io.Writer) error {
			return writeJSON(w, rows)
		}, "Wrote JSON summary")
	case schema.CSVSummary:
		return writeWithFile(e.Path, func(w io.Writer) error {
			return writeSummaryCSV(w, rows)
		}, "Wrote CSV summary")
	default:
		return fmt.Errorf("unsupported summary format %q", e.Format)
	}
}

// summaryRow is the flat per-leaf record shared by the CSV and JSON forms.
type summaryRow struct {
	Owner    string          `json:"owner"`
	Category schema.Category `json:"category"`
	Module   string          `json:"module"`
	Dir      string          `json:"dir"`
	Failed   bool            `json:"failed"`
	Error    string          `json:"error,omitempty"`
	Label    string          `json:"label"`
	schema.Summary
}

func summaryRows(view schema.TreeView) []summaryRow {
	rows := []summaryRow{}
	for _, o := range view.Owners {
		for _, c := range o.Categories {
			for _, m := range c.Modules {
				row := summaryRow{
					Owner:    o.Owner,
					Category: c.Category,
					Module:   m.Module.Title,
					Dir:      m.Module.Dir,
					Failed:   m.Failed,
					Error:    m.Error,
					Summary:  m.Summary,
				}
				if !m.Failed {
					row.Label = contract.GetPlainLabel(m.Summary.AverageMaintainability)
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func writeSummaryCSV(w io.Writer, rows []summaryRow) error {
	fmtFloat, intFmt := createFormatters(2)
	header := []string{
		"owner",
		"category",
		"module",
		"dir",
		"failed",
		"files",
		"total_sloc",
		"average_sloc",
		"average_maintainability",
		"average_cyclomatic",
		"max_cyclomatic",
		"total_lint_messages",
		"label",
		"error",
	}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, r := range rows {
			rec := []string{
				r.Owner,
				string(r.Category),
				r.Module,
				r.Dir,
				strconv.FormatBool(r.Failed),
				fmt.Sprintf(intFmt, r.Files),
				fmt.Sprintf(intFmt, r.TotalSLOC),
				fmtFloat(r.AverageSLOC),
				fmtFloat(r.AverageMaintainability),
				fmtFloat(r.AverageCyclomatic),
				fmt.Sprintf(intFmt, r.MaxCyclomatic),
				fmt.Sprintf(intFmt, r.TotalLintMessages),
				r.Label,
				r.Error,
			}
			if err := csvWriter.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
