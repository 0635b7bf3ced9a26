// Package outwriter has the report emitters that render a summarized tree.
package outwriter

import (
	"io"

	"github.com/huangsam/monoscope/internal/contract"
)

// BuildEmitters returns the emitters configured for a run, in the order
// they should be invoked. A nil table writer disables the terminal table,
// which matters when stdout carries a protocol.
func BuildEmitters(cfg *contract.Config, table io.Writer) []contract.Emitter {
	emitters := []contract.Emitter{
		&FileEmitter{Root: cfg.OutputDir},
		NewSummaryEmitter(cfg),
	}
	if cfg.ParquetFile != "" {
		emitters = append(emitters, &ParquetEmitter{Path: cfg.ParquetFile})
	}
	if table != nil {
		emitters = append(emitters, NewTableEmitter(cfg, table))
	}
	return emitters
}
