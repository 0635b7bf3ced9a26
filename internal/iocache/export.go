package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/internal/parquet"
)

// ExportFiles names the Parquet files written by ExportHistory.
type ExportFiles struct {
	Runs            string
	ModuleSummaries string
}

// ExportPaths derives the Parquet file names from an output prefix.
func ExportPaths(outputFile string) ExportFiles {
	return ExportFiles{
		Runs:            outputFile + ".runs.parquet",
		ModuleSummaries: outputFile + ".module_summaries.parquet",
	}
}

// ExportHistory writes every stored run and module summary to Parquet files.
func ExportHistory(w io.Writer, store contract.HistoryStore, outputFile string) (ExportFiles, error) {
	if outputFile == "" {
		return ExportFiles{}, errors.New("--output-file is required for export command")
	}
	if store == nil {
		return ExportFiles{}, errors.New("history store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return ExportFiles{}, fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return ExportFiles{}, errors.New("no run history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total module summaries: %d\n", status.TableSizes[moduleSummariesTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return ExportFiles{}, fmt.Errorf("failed to retrieve runs: %w", err)
	}
	summaries, err := store.GetAllModuleSummaries()
	if err != nil {
		return ExportFiles{}, fmt.Errorf("failed to retrieve module summaries: %w", err)
	}

	files := ExportPaths(outputFile)
	parquetRuns := parquet.ConvertRunRecords(runs)
	if err := parquet.WriteRunsParquet(parquetRuns, files.Runs); err != nil {
		return ExportFiles{}, fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), files.Runs)

	parquetSummaries := parquet.ConvertModuleSummaryRecords(summaries)
	if err := parquet.WriteModuleSummariesParquet(parquetSummaries, files.ModuleSummaries); err != nil {
		return ExportFiles{}, fmt.Errorf("failed to write module summaries: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d module summaries to: %s\n", len(parquetSummaries), files.ModuleSummaries)

	return files, nil
}
