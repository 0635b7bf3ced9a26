package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/monoscope/internal/contract"
)

// writeWithFile runs write against outputFile, or stdout when it is empty.
// A close failure is returned when write itself succeeded.
func writeWithFile(outputFile string, write func(io.Writer) error, successMsg string) (err error) {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	if file == os.Stdout {
		return write(file)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", outputFile, closeErr)
		}
	}()
	if err = write(file); err != nil {
		return err
	}
	if successMsg != "" {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON encodes data with two-space indentation.
func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes the header, lets writeRows add the records and
// flushes, surfacing any buffered write error.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(cw); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// createFormatters returns a float formatter with the given precision and the integer verb.
func createFormatters(precision int) (fmtFloat func(float64) string, intFmt string) {
	return func(v float64) string {
		return fmt.Sprintf("%.*f", precision, v)
	}, "%d"
}
