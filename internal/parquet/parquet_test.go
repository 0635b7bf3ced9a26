package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/monoscope/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readAll reads every row of a parquet file back into T.
func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[T](file)
	defer reader.Close()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func sampleRuns() []Run {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	duration := int32(90_000)
	params := `{"workers":4}`
	return []Run{
		{RunID: 1, StartTime: start, EndTime: &end, RunDurationMs: &duration, TotalModules: 12, FailedJobs: 1, ConfigParams: &params},
		{RunID: 2, StartTime: start.Add(time.Hour), TotalModules: 3},
	}
}

func sampleView() schema.TreeView {
	return schema.TreeView{
		Owners: []schema.OwnerView{
			{
				Owner: "Team1",
				Categories: []schema.CategoryView{
					{
						Category: schema.AddonCategory,
						Modules: []schema.ModuleView{
							{
								Module: schema.ModuleRef{Dir: "/repo/a", Title: "a"},
								Report: schema.Report{
									{File: "addon/x.js", SLOC: 10, Functions: 2, Cyclomatic: 3, HalsteadVolume: 51.5, Maintainability: 71.2, LintMessages: 1},
									{File: "addon/y.js", SLOC: 5, Functions: 1, Cyclomatic: 1, Maintainability: 90},
								},
							},
							{Module: schema.ModuleRef{Dir: "/repo/b", Title: "b"}, Failed: true, Error: "boom"},
						},
					},
				},
			},
			{
				Owner: "Team2",
				Categories: []schema.CategoryView{
					{
						Category: schema.TestsCategory,
						Modules: []schema.ModuleView{
							{
								Module: schema.ModuleRef{Dir: "/repo/c", Title: "c"},
								Report: schema.Report{{File: "unit/c-test.js", SLOC: 7}},
							},
						},
					},
				},
			},
		},
	}
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{
			name:    "run",
			model:   new(Run),
			columns: []string{"run_id", "start_time", "end_time", "run_duration_ms", "total_modules", "failed_jobs", "config_params"},
		},
		{
			name:  "module summary",
			model: new(ModuleSummary),
			columns: []string{
				"run_id", "owner", "category", "module_dir", "module_title", "failed", "files",
				"total_sloc", "average_maintainability", "average_cyclomatic", "max_cyclomatic", "total_lint_messages",
			},
		},
		{
			name:  "file record",
			model: new(FileRecord),
			columns: []string{
				"owner", "category", "module_dir", "module_title", "file", "sloc", "functions",
				"cyclomatic", "halstead_volume", "maintainability", "lint_messages",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			require.NotNil(t, s)
			for _, col := range tt.columns {
				_, ok := s.Lookup(col)
				assert.True(t, ok, "column %s should exist", col)
			}
		})
	}
}

func TestWriteRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	data := sampleRuns()
	require.NoError(t, WriteRunsParquet(data, outputPath))

	got := readAll[Run](t, outputPath)
	require.Len(t, got, len(data))

	assert.Equal(t, int64(1), got[0].RunID)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, *data[0].EndTime, *got[0].EndTime, time.Nanosecond)
	require.NotNil(t, got[0].ConfigParams)
	assert.Equal(t, `{"workers":4}`, *got[0].ConfigParams)

	assert.Nil(t, got[1].EndTime, "unfinished run keeps a null end time")
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ConfigParams)
	assert.Equal(t, int32(3), got[1].TotalModules)
}

func TestWriteModuleSummariesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "modules.parquet")
	data := ConvertModuleSummaryRecords([]schema.ModuleSummaryRecord{
		{RunID: 1, Owner: "Team1", Category: "addon", ModuleDir: "/repo/a", ModuleTitle: "a", Files: 2, TotalSLOC: 15, AverageMaintainability: 80.6, MaxCyclomatic: 3},
		{RunID: 1, Owner: "Team1", Category: "addon", ModuleDir: "/repo/b", ModuleTitle: "b", Failed: true},
	})
	require.NoError(t, WriteModuleSummariesParquet(data, outputPath))

	got := readAll[ModuleSummary](t, outputPath)
	require.Len(t, got, 2)
	assert.Equal(t, data[0], got[0])
	assert.True(t, got[1].Failed)
}

func TestWriteFileRecordsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "files.parquet")
	data := FileRecordsFromView(sampleView())
	require.NoError(t, WriteFileRecordsParquet(data, outputPath))

	got := readAll[FileRecord](t, outputPath)
	require.Len(t, got, 3)
	assert.Equal(t, data, got)

	read, err := ReadFileRecordsParquet(outputPath)
	require.NoError(t, err)
	assert.Equal(t, data, read)

	_, err = ReadFileRecordsParquet(filepath.Join(t.TempDir(), "missing.parquet"))
	assert.ErrorContains(t, err, "failed to read file records")
}

func TestWriteParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteRunsParquet([]Run{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "file should contain the schema even if empty")
}

func TestWriteParquet_InvalidPath(t *testing.T) {
	err := WriteFileRecordsParquet(nil, "/nonexistent/directory/output.parquet")
	assert.ErrorContains(t, err, "failed to create output file")
}

func TestConvertRunRecords(t *testing.T) {
	end := time.Now()
	records := []schema.RunRecord{{RunID: 7, StartTime: end.Add(-time.Minute), EndTime: &end, TotalModules: 4, FailedJobs: 2}}

	got := ConvertRunRecords(records)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].RunID)
	assert.Equal(t, &end, got[0].EndTime)
	assert.Equal(t, int32(4), got[0].TotalModules)
	assert.Equal(t, int32(2), got[0].FailedJobs)
}

func TestFileRecordsFromView(t *testing.T) {
	got := FileRecordsFromView(sampleView())
	require.Len(t, got, 3, "failed leaves carry no records")

	assert.Equal(t, FileRecord{
		Owner: "Team1", Category: "addon", ModuleDir: "/repo/a", ModuleTitle: "a",
		File: "addon/x.js", SLOC: 10, Functions: 2, Cyclomatic: 3, HalsteadVolume: 51.5, Maintainability: 71.2, LintMessages: 1,
	}, got[0])
	assert.Equal(t, "Team2", got[2].Owner)
	assert.Equal(t, "tests", got[2].Category)

	assert.Empty(t, FileRecordsFromView(schema.TreeView{}))
}
