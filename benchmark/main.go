// Package main provides a performance benchmarking tool for the monoscope CLI.
// It measures how a full `monoscope run` scales with the worker count,
// running each configuration multiple times, treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - monoscope binary installed and available in PATH
// - A monorepo checkout with an .eslintrc and an owners script
//
// Usage: go run benchmark/main.go <repo-dir> <globs> <eslintrc> <owners-script>
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of one worker configuration (cold run and average of warm runs).
type BenchmarkResult struct {
	Workers  int
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoDir  string
	Globs    string
	Eslintrc string
	Owners   string
	Timeout  time.Duration
	Runs     int
	Workers  []int
}

func main() {
	if len(os.Args) != 5 {
		fmt.Printf("Usage: %s <repo-dir> <globs> <eslintrc> <owners-script>\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RepoDir:  os.Args[1],
		Globs:    os.Args[2],
		Eslintrc: os.Args[3],
		Owners:   os.Args[4],
		Timeout:  10 * time.Minute,
		Runs:     4,
		Workers:  []int{1, 2, 4, 8},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the monoscope binary and the inputs exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("monoscope"); err != nil {
		return fmt.Errorf("monoscope binary not found in PATH")
	}
	for _, path := range []string{config.RepoDir, config.Eslintrc, config.Owners} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("%s not found", path)
		}
	}
	return nil
}

// runBenchmarks executes the run once per worker configuration
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	fmt.Printf("Starting benchmark: %s, %v timeout, %d runs per configuration\n",
		config.RepoDir, config.Timeout, config.Runs)

	var results []BenchmarkResult
	for _, workers := range config.Workers {
		fmt.Printf("Benchmarking with %d workers\n", workers)
		cold, warm := runBenchmark(config, workers)

		result := BenchmarkResult{Workers: workers, ColdTime: "TIMEOUT", WarmTime: "TIMEOUT"}
		if cold > 0 {
			result.ColdTime = fmt.Sprintf("%.3fs", cold)
		}
		if len(warm) > 0 {
			var sum float64
			for _, t := range warm {
				sum += t
			}
			result.WarmTime = fmt.Sprintf("%.3fs", sum/float64(len(warm)))
		}
		fmt.Printf("  Cold time: %s, Warm average: %s\n", result.ColdTime, result.WarmTime)
		results = append(results, result)
	}
	return results
}

// runBenchmark runs monoscope numRuns times and returns the cold time and warm times
func runBenchmark(config BenchmarkConfig, workers int) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= config.Runs; run++ {
		output, err := os.MkdirTemp("", "monoscope-benchmark-*")
		if err != nil {
			fmt.Printf("Warning: failed to create output dir: %v\n", err)
			continue
		}

		args := []string{
			"run",
			"--globs", config.Globs,
			"--output", output,
			"--eslintrc", config.Eslintrc,
			"--owners", config.Owners,
			"--workers", strconv.Itoa(workers),
			"--history-backend", "none",
			"--color", "no",
		}

		start := time.Now()
		cmd := exec.Command("monoscope", args...)
		cmd.Dir = config.RepoDir

		done := make(chan bool)
		var out []byte
		var cmdErr error

		go func() {
			out, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(out) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			<-done
		}
		_ = os.RemoveAll(output)
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	return strings.Contains(string(output), "Processed") &&
		strings.Contains(string(output), "0 failed jobs")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("monoscope_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"workers", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{strconv.Itoa(result.Workers), result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %2d workers: Cold: %s, Warm: %s\n", result.Workers, result.ColdTime, result.WarmTime)
	}
}
