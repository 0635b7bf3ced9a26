package outwriter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/internal/parquet"
	"github.com/huangsam/monoscope/schema"
)

// ParquetEmitter writes every raw file record, tagged with its owner,
// category and module, to a single Parquet file.
type ParquetEmitter struct {
	Path string
}

var _ contract.Emitter = &ParquetEmitter{} // Compile-time check

// Name implements contract.Emitter.
func (e *ParquetEmitter) Name() string { return "parquet" }

// Emit implements contract.Emitter.
func (e *ParquetEmitter) Emit(_ context.Context, view schema.TreeView) error {
	if dir := filepath.Dir(e.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create parquet directory: %w", err)
		}
	}
	records := parquet.FileRecordsFromView(view)
	if err := parquet.WriteFileRecordsParquet(records, e.Path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote %d file records to %s\n", len(records), e.Path)
	return nil
}
