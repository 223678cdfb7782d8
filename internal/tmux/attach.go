package tmux

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/example/binutils/internal/config"
)

// InTmux reports whether the current process is already running inside a
// tmux client session. An empty $TMUX counts as outside.
func InTmux() bool {
	return os.Getenv("TMUX") != ""
}

// maybeAttach decides whether to attach the invoking terminal. An explicit
// preference wins; otherwise attach only when not already inside tmux. A
// real attach replaces the current process and does not return; under
// dry-run or testing the would-be command is returned for inspection.
func (r *Reconciler) maybeAttach(cfg *config.Config) (*Command, error) {
	shouldAttach := !InTmux()
	if r.opts.Attach != nil {
		shouldAttach = *r.opts.Attach
	}
	if !shouldAttach {
		r.debugf("not attaching to tmux session")
		return nil, nil
	}

	cmd := Command{Program: "tmux", Args: []string{"attach"}}
	if cfg.Tmux != nil && cfg.Tmux.DefaultSession != "" {
		cmd.Args = append(cmd.Args, "-t", cfg.Tmux.DefaultSession)
	}

	if r.opts.DryRun || r.opts.Testing {
		r.debugf("not attaching (dry-run: %v, testing: %v)", r.opts.DryRun, r.opts.Testing)
		return &cmd, nil
	}

	return nil, execReplace(cmd)
}

// execReplace swaps the current process image for the given command. On
// success it never returns; if it does return, that is always an error.
func execReplace(cmd Command) error {
	path, err := exec.LookPath(cmd.Program)
	if err != nil {
		return fmt.Errorf("%s not found: %w", cmd.Program, err)
	}

	argv := append([]string{cmd.Program}, cmd.Args...)
	execErr := syscall.Exec(path, argv, os.Environ())
	return fmt.Errorf("failed to exec %s: %v", cmd, execErr)
}
