// Package latestbin rebuilds and re-execs the running binary when the source
// tree it was built from has changed since. It only kicks in for binaries
// that live under a module root, so installed copies are untouched.
package latestbin

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// skipEnvVar breaks the re-exec loop: the freshly built binary sees it and
// skips its own check.
const skipEnvVar = "SKIP_LATEST_BIN_CHECK"

// Ensure rebuilds and replaces the current process when the module sources
// are newer than the executable. It is a no-op when the skip variable is set
// or the executable does not live under a module root.
func Ensure() error {
	if os.Getenv(skipEnvVar) != "" {
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the current executable path: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("failed to canonicalize the executable path: %w", err)
	}

	root, ok := moduleRoot(canonical)
	if !ok {
		return nil
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return fmt.Errorf("failed to stat executable: %w", err)
	}

	updated, err := hasUpdatedFiles(root, info.ModTime(), filepath.Dir(canonical))
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}

	if err := runGoBuild(root); err != nil {
		return err
	}
	return execUpdatedBin()
}

// moduleRoot walks up from the given path looking for a go.mod marker.
func moduleRoot(path string) (string, bool) {
	dir := filepath.Dir(path)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// hasUpdatedFiles reports whether any source file under root is newer than
// the given time. The .git tree and the build-output directory holding the
// executable are skipped.
func hasUpdatedFiles(root string, since time.Time, exeDir string) (bool, error) {
	found := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || path == exeDir {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get metadata for %s: %w", path, err)
		}
		if info.ModTime().After(since) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func runGoBuild(root string) error {
	cmd := exec.Command("go", "build", "./...")
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build failed in %s:\n%s", root, out.String())
	}
	return nil
}

// execUpdatedBin replaces the process with the freshly built binary, keeping
// the original argv. The non-canonical executable path is used on purpose so
// the re-exec resolves the same way the original invocation did.
func execUpdatedBin() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the current executable path: %w", err)
	}

	env := append(os.Environ(), skipEnvVar+"=1")
	execErr := syscall.Exec(exe, os.Args, env)
	return fmt.Errorf("failed to exec updated binary: %v", execErr)
}
