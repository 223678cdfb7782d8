// Package shellcache rewrites shell-startup files, replacing command and
// fetch markers with their captured output so the generated files load
// without paying for the underlying commands on every shell start.
package shellcache

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/example/binutils/internal/config"
)

// Strategy selects what happens to the destination directory before the
// freshly generated tree is copied in.
type Strategy string

const (
	// StrategyClear removes the destination first; stale files disappear.
	StrategyClear Strategy = "clear"
	// StrategyMerge overwrites generated files but keeps everything else.
	StrategyMerge Strategy = "merge"
)

// ParseStrategy validates a --destination-strategy flag value.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyClear, StrategyMerge:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("invalid destination strategy %q (expected clear or merge)", s)
	}
}

// Options configures one cache run. Source and Destination accept a leading
// tilde.
type Options struct {
	Source      string
	Destination string
	Strategy    Strategy
}

type lineKind int

const (
	lineCommand lineKind = iota
	lineCommandSilent
	lineFetch
	lineOther
)

type lineAction struct {
	kind lineKind
	// command, URL, or the verbatim line depending on kind
	value string
}

// parseLine classifies one source line. Markers are recognized after
// left-trimming so indented markers still expand.
func parseLine(line string) lineAction {
	trimmed := strings.TrimLeft(line, " \t")

	if rest, ok := strings.CutPrefix(trimmed, "# CMD:"); ok {
		return lineAction{kind: lineCommand, value: strings.TrimSpace(rest)}
	}
	if rest, ok := strings.CutPrefix(trimmed, "# CMD_SILENT:"); ok {
		return lineAction{kind: lineCommandSilent, value: strings.TrimSpace(rest)}
	}
	if rest, ok := strings.CutPrefix(trimmed, "# FETCH:"); ok {
		return lineAction{kind: lineFetch, value: strings.TrimSpace(rest)}
	}
	return lineAction{kind: lineOther, value: line}
}

// expandCommand runs the command through sh and returns the replacement
// block. Non-silent commands keep their marker and wrap the output so a later
// run can regenerate the same region.
func expandCommand(command string, silent bool) ([]string, error) {
	var out []string
	if !silent {
		out = append(out, "# CMD: "+command)
	}

	cmd := exec.Command("sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("failed to run command (`%s`):\n%s", command, stderr.String())
		}
		return nil, fmt.Errorf("failed to execute command (`%s`): %w", command, err)
	}

	if silent {
		out = append(out, stdout.String())
	} else {
		out = append(out, fmt.Sprintf("# OUTPUT START: %s\n%s\n# OUTPUT END: %s",
			command, stdout.String(), command))
	}
	return out, nil
}

// expandFetch downloads the URL and returns the replacement block. Anything
// but a 200 is fatal and reports the response body.
func expandFetch(url string) ([]string, error) {
	out := []string{"# FETCH: " + url}

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response content: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL %q (status code: %d):\nerror body: %s",
			url, resp.StatusCode, body)
	}

	out = append(out, fmt.Sprintf("# FETCHED CONTENT START: %s\n%s\n# FETCHED CONTENT END: %s",
		url, body, url))
	return out, nil
}

// processFile expands one source file into destFile. The source is never
// modified.
func processFile(sourceFile, destFile string) error {
	f, err := os.Open(sourceFile)
	if err != nil {
		return fmt.Errorf("failed to open file for reading: %w", err)
	}
	defer f.Close()

	var content []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		action := parseLine(scanner.Text())
		switch action.kind {
		case lineCommand, lineCommandSilent:
			lines, err := expandCommand(action.value, action.kind == lineCommandSilent)
			if err != nil {
				return err
			}
			content = append(content, lines...)
		case lineFetch:
			lines, err := expandFetch(action.value)
			if err != nil {
				return err
			}
			content = append(content, lines...)
		default:
			content = append(content, action.value)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read line: %w", err)
	}

	if parent := filepath.Dir(destFile); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("failed to create directories for path %s: %w", parent, err)
		}
	}

	var buf bytes.Buffer
	for _, line := range content {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(destFile, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to open file for writing %s: %w", destFile, err)
	}
	return nil
}

// processDirectory expands every file under sourceDir into destDir,
// mirroring the tree. Entries under finalDest are skipped so a destination
// nested inside the source does not feed back into itself.
func processDirectory(sourceDir, destDir, finalDest string) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", sourceDir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(sourceDir, entry.Name())
		if within(path, finalDest) {
			continue
		}

		dest := filepath.Join(destDir, entry.Name())
		if entry.IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("failed to create destination directory: %w", err)
			}
			if err := processDirectory(path, dest, finalDest); err != nil {
				return fmt.Errorf("failed to process directory %s: %w", path, err)
			}
		} else {
			if err := processFile(path, dest); err != nil {
				return fmt.Errorf("failed to process file %s: %w", path, err)
			}
		}
	}
	return nil
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Run performs one full cache regeneration. The expanded tree is staged in a
// temp directory first so any failure leaves the destination exactly as it
// was.
func Run(opts Options) error {
	if opts.Source == "" {
		return fmt.Errorf("no source directory provided; use the --source flag or set shell_caching in the config file")
	}
	if opts.Destination == "" {
		return fmt.Errorf("no destination directory provided; use the --destination flag or set shell_caching in the config file")
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyClear
	}

	sourceDir := config.ExpandTilde(opts.Source)
	destDir := config.ExpandTilde(opts.Destination)

	staging, err := os.MkdirTemp("", "shellcache-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := processDirectory(sourceDir, staging, destDir); err != nil {
		return fmt.Errorf("failed to process directory: %w", err)
	}

	if strategy == StrategyClear {
		if err := os.RemoveAll(destDir); err != nil {
			return fmt.Errorf("failed to clear destination directory: %w", err)
		}
	}

	return copyTree(staging, destDir)
}

func copyTree(src, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())
		if entry.IsDir() {
			if err := copyTree(srcPath, destPath); err != nil {
				return err
			}
			continue
		}
		data, err := os.ReadFile(srcPath)
		if err != nil {
			return err
		}
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
