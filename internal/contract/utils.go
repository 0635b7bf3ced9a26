package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/monoscope/schema"
)

// DateTimeFormat is the layout for timestamps shown to users.
const DateTimeFormat = "2006-01-02 15:04:05"

// Risk label constants.
const (
	CriticalValue = "Critical"
	HighValue     = "High"
	ModerateValue = "Moderate"
	LowValue      = "Low"
)

// Color variables for console output.
var (
	CriticalColor = color.New(color.FgRed, color.Bold)
	HighColor     = color.New(color.FgMagenta, color.Bold)
	ModerateColor = color.New(color.FgYellow)
	LowColor      = color.New(color.FgCyan)
)

// RiskScore converts a maintainability index (0-100, higher is better)
// into a risk score (0-100, higher is worse).
func RiskScore(maintainability float64) float64 {
	return min(100, max(0, 100-maintainability))
}

// GetPlainLabel returns a plain text label for a maintainability index.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(maintainability float64) string {
	switch risk := RiskScore(maintainability); {
	case risk >= 80:
		return CriticalValue
	case risk >= 60:
		return HighValue
	case risk >= 40:
		return ModerateValue
	default:
		return LowValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(maintainability float64) string {
	text := GetPlainLabel(maintainability)

	switch text {
	case CriticalValue:
		return CriticalColor.Sprint(text)
	case HighValue:
		return HighColor.Sprint(text)
	case ModerateValue:
		return ModerateColor.Sprint(text)
	default:
		return LowColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output.
// An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(filePath)
}

// ShouldIgnore returns true if the given slash-separated path matches any of the exclude patterns.
// Patterns ending with '/' match a directory segment anywhere in the path.
// Patterns with glob characters are matched against the path and its base name.
// Patterns starting with '.' are treated as suffix (extension) matches.
func ShouldIgnore(path string, excludes []string) bool {
	path = filepath.ToSlash(path)
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		if strings.ContainsAny(ex, "*?[") {
			pat := strings.ReplaceAll(ex, "**", "*")
			if ok, err := filepath.Match(pat, path); err == nil && ok {
				return true
			}
			if ok, err := filepath.Match(pat, filepath.Base(path)); err == nil && ok {
				return true
			}
			continue
		}

		switch {
		case strings.HasSuffix(ex, "/"):
			if strings.HasPrefix(path, ex) || strings.Contains(path, "/"+ex) {
				return true
			}
		case strings.HasPrefix(ex, "."):
			if strings.HasSuffix(path, ex) {
				return true
			}
		case strings.Contains(path, ex):
			return true
		}
	}
	return false
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".monoscope_history.db"
	}
	return filepath.Join(homeDir, ".monoscope_history.db")
}

// TruncatePath truncates a path to a maximum width with an ellipsis prefix.
// Requires maxWidth > 3 so there is room for "..." and at least one character.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// PathSegment converts a label such as an owner name into a single directory name.
func PathSegment(label string) string {
	return schema.PathSegment(label)
}
