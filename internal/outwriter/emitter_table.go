package outwriter

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// TableEmitter prints the owner and category summaries as a terminal table.
type TableEmitter struct {
	Out io.Writer
	cfg *contract.Config
}

var _ contract.Emitter = &TableEmitter{} // Compile-time check

// NewTableEmitter creates a table emitter writing to out.
func NewTableEmitter(cfg *contract.Config, out io.Writer) *TableEmitter {
	return &TableEmitter{Out: out, cfg: cfg}
}

// Name implements contract.Emitter.
func (e *TableEmitter) Name() string { return "table" }

// Emit implements contract.Emitter.
func (e *TableEmitter) Emit(_ context.Context, view schema.TreeView) error {
	fmtFloat, _ := createFormatters(2)
	ownerWidth := getMaxOwnerWidth(e.cfg)

	table := tablewriter.NewWriter(e.Out)
	table.Header([]string{"Owner", "Category", "Modules", "Files", "SLOC", "Avg MI", "Avg CC", "Max CC", "Lint", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	var modules, failed int
	for _, o := range view.Owners {
		owner := contract.TruncatePath(o.Owner, ownerWidth)
		var ownerModules int
		for _, c := range o.Categories {
			n, f := countLeaves(c)
			ownerModules += n
			modules += n
			failed += f
			data = append(data, e.summaryRow(owner, string(c.Category), moduleCell(n, f), c.Summary, fmtFloat))
		}
		data = append(data, e.summaryRow(owner, "total", strconv.Itoa(ownerModules), o.Summary, fmtFloat))
	}
	data = append(data, e.summaryRow("ALL", "total", strconv.Itoa(modules), view.Summary, fmtFloat))

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(e.Out, "Summarized %d module reports across %d owners (%d failed)\n", modules, len(view.Owners), failed)
	return err
}

func (e *TableEmitter) summaryRow(owner, category, modules string, s schema.Summary, fmtFloat func(float64) string) []string {
	return []string{
		owner,
		category,
		modules,
		strconv.Itoa(s.Files),
		strconv.Itoa(s.TotalSLOC),
		fmtFloat(s.AverageMaintainability),
		fmtFloat(s.AverageCyclomatic),
		strconv.Itoa(s.MaxCyclomatic),
		strconv.Itoa(s.TotalLintMessages),
		e.label(s),
	}
}

// label is blank for empty summaries so they don't read as low risk.
func (e *TableEmitter) label(s schema.Summary) string {
	if s.Files == 0 {
		return "-"
	}
	if e.cfg.UseColors {
		return contract.GetColorLabel(s.AverageMaintainability)
	}
	return contract.GetPlainLabel(s.AverageMaintainability)
}

// countLeaves returns the number of leaves in a category and how many failed.
func countLeaves(c schema.CategoryView) (total, failed int) {
	for _, m := range c.Modules {
		if m.Failed {
			failed++
		}
	}
	return len(c.Modules), failed
}

func moduleCell(total, failed int) string {
	if failed == 0 {
		return strconv.Itoa(total)
	}
	return fmt.Sprintf("%d (%d failed)", total, failed)
}
