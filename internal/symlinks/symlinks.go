// Package symlinks populates each workspace member's bin directory with
// links to the binaries the workspace-level build actually produced, so a
// member's target/debug can be put on PATH without building per member.
package symlinks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/binutils/internal/config"
	"github.com/example/binutils/internal/crates"
)

// WorkspacePaths resolves which workspace roots to process: explicit flag
// values win, then the configured crate locations, then the current
// directory.
func WorkspacePaths(flagPaths []string, cfg *config.Config) ([]string, error) {
	if len(flagPaths) > 0 {
		return flagPaths, nil
	}
	if len(cfg.CrateLocations) > 0 {
		paths := make([]string, 0, len(cfg.CrateLocations))
		for _, location := range cfg.CrateLocations {
			paths = append(paths, config.ExpandTilde(location))
		}
		return paths, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine current directory: %w", err)
	}
	return []string{cwd}, nil
}

// Run generates symlinks for every given workspace root. Roots without a
// Cargo.toml are skipped silently so stale config entries do not break the
// run.
func Run(paths []string) error {
	for _, root := range paths {
		if _, err := os.Stat(filepath.Join(root, "Cargo.toml")); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat manifest in %s: %w", root, err)
		}
		if err := generate(root); err != nil {
			return fmt.Errorf("failed to generate symlinks for %s: %w", root, err)
		}
	}
	return nil
}

func generate(root string) error {
	packages, err := crates.Packages(root)
	if err != nil {
		return err
	}

	workspaceBin := crates.BinDir(root)

	for _, pkg := range packages {
		bins, err := binTargets(pkg)
		if err != nil {
			return err
		}
		if len(bins) == 0 {
			continue
		}

		memberBin := crates.BinDir(pkg.Dir)
		if memberBin == workspaceBin {
			// The root package's binaries already live in the workspace
			// target dir.
			continue
		}
		if err := os.MkdirAll(memberBin, 0o755); err != nil {
			return fmt.Errorf("failed to create bin directory %s: %w", memberBin, err)
		}

		for _, bin := range bins {
			source := filepath.Join(workspaceBin, bin)
			link := filepath.Join(memberBin, bin)
			if err := ensureLink(source, link); err != nil {
				return err
			}
		}
	}
	return nil
}

// binTargets enumerates a package's binary names: every src/bin/*.rs file
// plus, when src/main.rs exists, a binary named after the package itself.
func binTargets(pkg crates.Package) ([]string, error) {
	var bins []string

	matches, err := filepath.Glob(filepath.Join(pkg.Dir, "src", "bin", "*.rs"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan bin targets for %s: %w", pkg.Name, err)
	}
	for _, match := range matches {
		bins = append(bins, strings.TrimSuffix(filepath.Base(match), ".rs"))
	}

	if _, err := os.Stat(filepath.Join(pkg.Dir, "src", "main.rs")); err == nil {
		bins = append(bins, pkg.Name)
	}

	return bins, nil
}

// ensureLink points link at source, replacing an existing symlink whatever
// it currently targets. A non-symlink already at the path is an error.
func ensureLink(source, link string) error {
	info, err := os.Lstat(link)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		current, readErr := os.Readlink(link)
		if readErr == nil && current == source {
			return nil
		}
		if err := os.Remove(link); err != nil {
			return fmt.Errorf("failed to remove stale symlink %s: %w", link, err)
		}
	case err == nil:
		return fmt.Errorf("refusing to replace non-symlink %s", link)
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to inspect %s: %w", link, err)
	}

	if err := os.Symlink(source, link); err != nil {
		return fmt.Errorf("failed to create symlink %s -> %s: %w", link, source, err)
	}
	return nil
}
