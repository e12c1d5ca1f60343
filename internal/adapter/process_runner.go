package adapter

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
)

// StepStats are the summary figures scraped from a subprocess's output.
type StepStats struct {
	FilesChanged int
	IssuesFound  int
}

// ProcessRunner executes a maintenance step as an isolated subprocess. Its
// stdout/stderr are forwarded live to the given writer and captured so
// summary statistics can be extracted afterwards.
type ProcessRunner interface {
	Run(ctx context.Context, dir string, stream io.Writer, name string, args ...string) (output string, stats StepStats, err error)
}

// LocalProcessRunner provides a concrete implementation using os/exec.
type LocalProcessRunner struct{}

// NewLocalProcessRunner constructs a LocalProcessRunner.
func NewLocalProcessRunner() *LocalProcessRunner {
	return &LocalProcessRunner{}
}

var (
	filesChangedPattern = regexp.MustCompile(`(?i)(\d+)\s+files?\s+(changed|moved|fixed|deleted)`)
	issuesFoundPattern  = regexp.MustCompile(`(?i)(\d+)\s+issues?\s+found`)
)

// Run starts the subprocess, teeing its combined output to stream while
// buffering it for stat extraction. A non-zero exit is returned as the error
// alongside whatever output was produced.
func (r *LocalProcessRunner) Run(ctx context.Context, dir string, stream io.Writer, name string, args ...string) (string, StepStats, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var captured bytes.Buffer

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", StepStats{}, fmt.Errorf("stdout pipe: %w", err)
	}

	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return "", StepStats{}, fmt.Errorf("start %s: %w", name, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		captured.WriteString(line)
		captured.WriteByte('\n')

		if stream != nil {
			fmt.Fprintln(stream, line)
		}
	}

	waitErr := cmd.Wait()
	output := captured.String()

	return output, ExtractStats(output), waitErr
}

// ExtractStats scrapes summary counters from human-readable step output.
// Scraping log lines is brittle; steps implemented in-process return typed
// results instead and never round-trip through this.
func ExtractStats(output string) StepStats {
	var stats StepStats

	if match := filesChangedPattern.FindStringSubmatch(output); match != nil {
		stats.FilesChanged, _ = strconv.Atoi(match[1])
	}

	if match := issuesFoundPattern.FindStringSubmatch(output); match != nil {
		stats.IssuesFound, _ = strconv.Atoi(match[1])
	}

	return stats
}
