// Package config loads the Lua-scripted binutils configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Config is the top level configuration tree.
type Config struct {
	// CrateLocations lists workspace roots that are scanned when resolving
	// linked crates. Entries may start with `~`.
	CrateLocations []string

	// ShellCaching configures `binutils cache-shell`.
	ShellCaching *ShellCache

	// Tmux describes the sessions and windows `binutils startup` reconciles.
	Tmux *Tmux
}

// ShellCache holds source/destination directories for shell startup caching.
type ShellCache struct {
	Source      string
	Destination string
}

// Tmux holds the declarative tmux topology.
type Tmux struct {
	// Sessions in declaration order.
	Sessions []Session

	// DefaultSession is the session targeted by `tmux attach -t`.
	// Empty means attach without an explicit target.
	DefaultSession string
}

// Session is a named tmux session with an ordered window list.
type Session struct {
	Name    string
	Windows []Window
}

// Window describes a single tmux window.
type Window struct {
	Name string

	// Path is the working directory applied at window creation. Empty means
	// inherit tmux's default.
	Path string

	// Command holds the startup command lines typed into the window after
	// creation. The Lua config accepts either a single string or a list.
	Command []string

	// Env is applied at window creation via `-e KEY=VALUE` pairs. Keys are
	// sorted before command generation so output is reproducible.
	Env map[string]string

	// LinkedCrates names crates whose build-output directories are prepended
	// to PATH before Command runs.
	LinkedCrates []string
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Tmux: &Tmux{},
	}
}

// ExpandTilde replaces a leading `~` with the current home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// ContractTilde is the inverse of ExpandTilde, used for display output.
func ContractTilde(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+"/") {
		return "~" + path[len(home):]
	}
	return path
}

// DefaultPath returns the config file that would be loaded when none is
// specified: local.config.lua wins over config.lua.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	local := filepath.Join(home, ".config", "binutils", "local.config.lua")
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}
	return filepath.Join(home, ".config", "binutils", "config.lua"), nil
}
