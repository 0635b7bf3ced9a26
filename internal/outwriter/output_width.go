package outwriter

import (
	"os"

	"github.com/huangsam/monoscope/internal/contract"
	"golang.org/x/term"
)

// Bounds for the owner column of the summary table.
const (
	minOwnerWidth = 10
	maxOwnerWidth = 40
)

// getMaxOwnerWidth calculates the maximum width for owner labels in table
// output based on the terminal width.
func getMaxOwnerWidth(cfg *contract.Config) int {
	termWidth := cfg.Width
	if termWidth <= 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Category + Modules + Files + SLOC + MI + CC + Max CC + Lint + Label
	baseWidth := 85

	// Reserve generous space for table borders, separators, and padding
	baseWidth += 20

	available := termWidth - baseWidth
	return min(maxOwnerWidth, max(minOwnerWidth, available))
}
