// Package parquet provides data structures and functions for exporting monoscope
// run data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/monoscope/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single monoscope run with metadata.
// This struct maps to the monoscope_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalModules is the number of modules discovered in this run
	TotalModules int32 `parquet:"total_modules,snappy"`

	// FailedJobs is the number of jobs that failed permanently
	FailedJobs int32 `parquet:"failed_jobs,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// ModuleSummary is one module leaf of a run.
// This struct maps to the monoscope_module_summaries database table.
type ModuleSummary struct {
	RunID                  int64   `parquet:"run_id,snappy"`
	Owner                  string  `parquet:"owner,dict,snappy"`
	Category               string  `parquet:"category,dict,snappy"`
	ModuleDir              string  `parquet:"module_dir,snappy"`
	ModuleTitle            string  `parquet:"module_title,snappy"`
	Failed                 bool    `parquet:"failed,snappy"`
	Files                  int32   `parquet:"files,snappy"`
	TotalSLOC              int32   `parquet:"total_sloc,snappy"`
	AverageMaintainability float64 `parquet:"average_maintainability,snappy"`
	AverageCyclomatic      float64 `parquet:"average_cyclomatic,snappy"`
	MaxCyclomatic          int32   `parquet:"max_cyclomatic,snappy"`
	TotalLintMessages      int32   `parquet:"total_lint_messages,snappy"`
}

// FileRecord is one raw analyzer record, flattened with the leaf it belongs to.
type FileRecord struct {
	Owner           string  `parquet:"owner,dict,snappy"`
	Category        string  `parquet:"category,dict,snappy"`
	ModuleDir       string  `parquet:"module_dir,dict,snappy"`
	ModuleTitle     string  `parquet:"module_title,dict,snappy"`
	File            string  `parquet:"file,snappy"`
	SLOC            int32   `parquet:"sloc,snappy"`
	Functions       int32   `parquet:"functions,snappy"`
	Cyclomatic      int32   `parquet:"cyclomatic,snappy"`
	HalsteadVolume  float64 `parquet:"halstead_volume,snappy"`
	Maintainability float64 `parquet:"maintainability,snappy"`
	LintMessages    int32   `parquet:"lint_messages,snappy"`
}

// writeParquet writes rows of T to a new file at outputPath, deriving the
// schema from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	// Close flushes the footer, so its error matters
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteModuleSummariesParquet writes a slice of ModuleSummary structs to a Parquet file.
func WriteModuleSummariesParquet(data []ModuleSummary, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteFileRecordsParquet writes a slice of FileRecord structs to a Parquet file.
func WriteFileRecordsParquet(data []FileRecord, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ReadFileRecordsParquet reads back a file written by WriteFileRecordsParquet.
func ReadFileRecordsParquet(path string) ([]FileRecord, error) {
	records, err := parquet.ReadFile[FileRecord](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file records from %s: %w", path, err)
	}
	return records, nil
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalModules:  record.TotalModules,
			FailedJobs:    record.FailedJobs,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertModuleSummaryRecords converts schema.ModuleSummaryRecord to ModuleSummary for Parquet export.
func ConvertModuleSummaryRecords(records []schema.ModuleSummaryRecord) []ModuleSummary {
	result := make([]ModuleSummary, len(records))
	for i, record := range records {
		result[i] = ModuleSummary{
			RunID:                  record.RunID,
			Owner:                  record.Owner,
			Category:               record.Category,
			ModuleDir:              record.ModuleDir,
			ModuleTitle:            record.ModuleTitle,
			Failed:                 record.Failed,
			Files:                  record.Files,
			TotalSLOC:              record.TotalSLOC,
			AverageMaintainability: record.AverageMaintainability,
			AverageCyclomatic:      record.AverageCyclomatic,
			MaxCyclomatic:          record.MaxCyclomatic,
			TotalLintMessages:      record.TotalLintMessages,
		}
	}
	return result
}

// FileRecordsFromView flattens every leaf report of the tree, in tree order.
func FileRecordsFromView(view schema.TreeView) []FileRecord {
	var result []FileRecord
	for _, o := range view.Owners {
		for _, c := range o.Categories {
			for _, m := range c.Modules {
				for _, r := range m.Report {
					result = append(result, FileRecord{
						Owner:           o.Owner,
						Category:        string(c.Category),
						ModuleDir:       m.Module.Dir,
						ModuleTitle:     m.Module.Title,
						File:            r.File,
						SLOC:            int32(r.SLOC),
						Functions:       int32(r.Functions),
						Cyclomatic:      int32(r.Cyclomatic),
						HalsteadVolume:  r.HalsteadVolume,
						Maintainability: r.Maintainability,
						LintMessages:    int32(r.LintMessages),
					})
				}
			}
		}
	}
	return result
}
