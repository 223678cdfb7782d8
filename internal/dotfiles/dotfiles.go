// Package dotfiles bootstraps a private local-dotfiles overlay: a scaffold
// directory tree, an optional git clone, and the symlinks that hook the
// overlay into the main dotfiles checkout.
package dotfiles

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/example/binutils/internal/config"
)

// Options configures one bootstrap run. Paths accept a leading tilde.
type Options struct {
	// Repo is an optional git URL; cloned when the dotfiles path is
	// missing, verified against origin when it already exists.
	Repo string

	// LocalDotfilesPath is where the overlay lives (or gets cloned).
	LocalDotfilesPath string

	// LocalCratesTargetPath is where the overlay's crates dir is linked to.
	LocalCratesTargetPath string

	// DryRun reports planned operations without touching the filesystem.
	DryRun bool

	// Log receives progress lines; nil discards them.
	Log func(format string, args ...any)
}

func (o Options) logf(format string, args ...any) {
	if o.Log != nil {
		o.Log(format, args...)
	}
}

// scaffold is the file tree every overlay starts from. Existing files are
// never overwritten.
var scaffold = map[string]string{
	"binutils-config/local.config.lua":          "return require('config')",
	"crates/.gitkeep":                           "",
	"nvim/lua/local_config/config/autocmds.lua": "",
	"nvim/lua/local_config/config/options.lua":  "",
	"nvim/lua/local_config/config/keymaps.lua":  "",
	"nvim/lua/local_config/plugins/.gitkeep":    "",
	"nvim/snippets/.gitkeep":                    "",
}

// Run performs the full bootstrap: clone or verify the repo, ensure the
// scaffold tree, then wire up the symlinks.
func Run(opts Options) error {
	if opts.LocalDotfilesPath == "" {
		return fmt.Errorf("local dotfiles path is required")
	}
	if opts.LocalCratesTargetPath == "" {
		return fmt.Errorf("local crates target path is required")
	}

	basePath := config.ExpandTilde(opts.LocalDotfilesPath)
	cratesTarget := config.ExpandTilde(opts.LocalCratesTargetPath)

	if opts.DryRun {
		opts.logf("running in dry-run mode, no changes will be made")
	}

	if opts.Repo != "" {
		if _, err := os.Stat(basePath); err == nil {
			if err := verifyRemoteMatches(basePath, opts.Repo); err != nil {
				return err
			}
		} else {
			if err := cloneRepo(opts.Repo, basePath, opts); err != nil {
				return err
			}
		}
	}

	if err := ensureDirectoryStructure(basePath, opts); err != nil {
		return err
	}
	if err := setupSymlinks(basePath, cratesTarget, opts); err != nil {
		return err
	}

	opts.logf("local dotfiles setup completed")
	opts.logf("created directory structure at: %s", basePath)
	opts.logf("symlinked crates directory to: %s", cratesTarget)
	return nil
}

// ensureDirectoryStructure creates the scaffold tree, leaving any existing
// file untouched.
func ensureDirectoryStructure(basePath string, opts Options) error {
	for relPath, contents := range scaffold {
		path := filepath.Join(basePath, filepath.FromSlash(relPath))
		if !opts.DryRun {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", relPath, err)
			}
		}

		if _, err := os.Lstat(path); err == nil {
			continue
		}
		opts.logf("creating file: %s", path)
		if opts.DryRun {
			continue
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
	}
	return nil
}

func remoteURL(repoPath string) (string, error) {
	cmd := exec.Command("git", "remote", "get-url", "origin")
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get remote URL for %s: %w", repoPath, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func verifyRemoteMatches(repoPath, expectedURL string) error {
	url, err := remoteURL(repoPath)
	if err != nil {
		return err
	}
	if url != expectedURL {
		return fmt.Errorf("repository remote URL %q does not match expected URL %q", url, expectedURL)
	}
	return nil
}

func cloneRepo(repoURL, targetPath string, opts Options) error {
	opts.logf("cloning repository %s to %s", repoURL, targetPath)
	if opts.DryRun {
		return nil
	}

	cmd := exec.Command("git", "clone", repoURL, targetPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to clone repository %s: %s", repoURL, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// setupSymlinks links the overlay into place: the crates dir, the nvim
// local_config dir, and the binutils local.config.lua. A correct existing
// symlink is replaced; anything else at a link path is an error.
func setupSymlinks(basePath, cratesTarget string, opts Options) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory: %w", err)
	}

	links := []struct {
		source string
		target string
	}{
		{filepath.Join(basePath, "crates"), cratesTarget},
		{filepath.Join(basePath, "nvim", "lua", "local_config"),
			filepath.Join(home, ".config", "nvim", "lua", "local_config")},
		{filepath.Join(basePath, "binutils-config", "local.config.lua"),
			filepath.Join(home, ".config", "binutils", "local.config.lua")},
	}

	for _, l := range links {
		if !opts.DryRun {
			if err := os.MkdirAll(filepath.Dir(l.target), 0o755); err != nil {
				return fmt.Errorf("failed to create parent directory for %s: %w", l.target, err)
			}
		}

		info, err := os.Lstat(l.target)
		switch {
		case err == nil && info.Mode()&os.ModeSymlink != 0:
			opts.logf("removing existing symlink: %s", l.target)
			if !opts.DryRun {
				if err := os.Remove(l.target); err != nil {
					return fmt.Errorf("failed to remove existing symlink %s: %w", l.target, err)
				}
			}
		case err == nil:
			return fmt.Errorf("target path exists but is not a symlink: %s", l.target)
		case !os.IsNotExist(err):
			return fmt.Errorf("failed to inspect %s: %w", l.target, err)
		}

		opts.logf("creating symlink: %s -> %s", l.source, l.target)
		if opts.DryRun {
			continue
		}
		if err := os.Symlink(l.source, l.target); err != nil {
			return fmt.Errorf("failed to create symlink %s -> %s: %w", l.target, l.source, err)
		}
	}
	return nil
}
