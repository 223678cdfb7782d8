package tmux

import (
	"fmt"
	"os"
	"sort"

	"github.com/example/binutils/internal/config"
)

// tmux windows are 1-indexed; index arithmetic must reproduce this exactly
// so missing windows land at their configuration-relative position.
const baseIndex = 1

// Reconciler drives the tmux server toward the configured topology. It is
// single-threaded and fully synchronous: every external query or mutation is
// a blocking subprocess call, and window ordering depends on strictly
// sequential processing.
type Reconciler struct {
	runner Runner
	opts   Options
}

// NewReconciler returns a reconciler using the given runner and options.
func NewReconciler(runner Runner, opts Options) *Reconciler {
	return &Reconciler{runner: runner, opts: opts}
}

// Startup reconciles every configured session and window in declaration
// order, then hands off to the attach controller. It returns the shell-line
// record of every external command attempted. Already-correct state issues
// no mutating commands, so running twice is safe.
func (r *Reconciler) Startup(cfg *config.Config, crates map[string]string) ([]string, error) {
	if cfg.Tmux == nil {
		r.debugf("no tmux configuration found, skipping tmux setup")
		return nil, nil
	}

	state, err := GatherState(r.runner, r.opts.Socket())
	if err != nil {
		return nil, err
	}

	var executed []string
	for _, session := range cfg.Tmux.Sessions {
		for index, window := range session.Windows {
			commands, err := r.ensureWindow(session.Name, window, index, crates, state)
			if err != nil {
				return nil, err
			}
			for _, cmd := range commands {
				executed = append(executed, cmd.String())
			}
		}
	}

	attachCmd, err := r.maybeAttach(cfg)
	if err != nil {
		return nil, err
	}
	if attachCmd != nil {
		// Only reached under --dry-run or testing; a real attach replaces
		// the process and never gets here.
		executed = append(executed, attachCmd.String())
	}

	return executed, nil
}

// ensureWindow brings one configured window into existence, mutating the
// locally tracked state to match. An already-present window is the
// idempotence path: no commands are issued and startup commands never re-run.
func (r *Reconciler) ensureWindow(sessionName string, window config.Window, index int, crates map[string]string, state State) ([]Command, error) {
	if err := r.checkState(state); err != nil {
		return nil, err
	}

	// Resolve the window's startup commands before any mutation so a bad
	// linked-crate reference aborts with the server untouched.
	planned, err := windowCommands(window, crates)
	if err != nil {
		return nil, err
	}

	var executed []Command

	windows, sessionExists := state[sessionName]
	switch {
	case sessionExists && containsWindow(windows, window.Name):
		r.debugf("window %s already exists in session %s, skipping creation",
			window.Name, sessionName)
		return nil, nil

	case sessionExists:
		targetIndex := baseIndex + index
		args := []string{
			"new-window",
			"-t", fmt.Sprintf("%s:%d", sessionName, targetIndex),
			"-n", window.Name,
			// insert *before* any existing window at the target index
			"-b",
		}
		args = appendWindowFlags(args, window)

		cmd, err := r.run(socketCommand(r.opts.Socket(), args...))
		if err != nil {
			return nil, err
		}
		executed = append(executed, cmd)

		// Track the new window at its configuration-relative position, not
		// the numeric tmux index, so the local model's ordering matches
		// declared order.
		position := min(index, len(windows))
		inserted := make([]string, 0, len(windows)+1)
		inserted = append(inserted, windows[:position]...)
		inserted = append(inserted, window.Name)
		inserted = append(inserted, windows[position:]...)
		state[sessionName] = inserted

	default:
		r.debugf("session %s does not exist, creating it and window %s",
			sessionName, window.Name)
		args := []string{"new-session", "-d", "-s", sessionName, "-n", window.Name}
		args = appendWindowFlags(args, window)

		cmd, err := r.run(socketCommand(r.opts.Socket(), args...))
		if err != nil {
			return nil, err
		}
		executed = append(executed, cmd)
		state[sessionName] = []string{window.Name}
	}

	sent, err := r.sendCommands(sessionName, window.Name, planned)
	if err != nil {
		return nil, err
	}
	executed = append(executed, sent...)

	if err := r.checkState(state); err != nil {
		return nil, err
	}

	return executed, nil
}

// sendCommands types each planned command into the window, one send-keys
// call per line.
func (r *Reconciler) sendCommands(sessionName, windowName string, commands []string) ([]Command, error) {
	var executed []Command
	for _, command := range commands {
		cmd, err := r.run(socketCommand(r.opts.Socket(),
			"send-keys", "-t", fmt.Sprintf("%s:%s", sessionName, windowName),
			command, "Enter"))
		if err != nil {
			return nil, err
		}
		executed = append(executed, cmd)
	}
	return executed, nil
}

// appendWindowFlags adds the working directory and environment flags shared
// by new-session and new-window. Env keys are sorted for reproducible output.
func appendWindowFlags(args []string, window config.Window) []string {
	if window.Path != "" {
		args = append(args, "-c", window.Path)
	}
	if len(window.Env) > 0 {
		keys := make([]string, 0, len(window.Env))
		for key := range window.Env {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			args = append(args, "-e", fmt.Sprintf("%s=%s", key, window.Env[key]))
		}
	}
	return args
}

// checkState re-queries actual state and compares it with the tracked copy.
// It is a detection mechanism, not a prevention mechanism: Fatal aborts,
// Warn logs, Off (and dry-run, where actual state cannot match) skips.
func (r *Reconciler) checkState(presumed State) error {
	level := r.opts.stateCheckLevel()
	if level == StateCheckOff || r.opts.DryRun {
		return nil
	}

	actual, err := GatherState(r.runner, r.opts.Socket())
	if err != nil {
		return err
	}
	if presumed.Equal(actual) {
		return nil
	}

	msg := fmt.Sprintf("state difference - presumed: %s, actual: %s", presumed, actual)
	if level == StateCheckFatal {
		return fmt.Errorf("%s", msg)
	}
	fmt.Fprintln(os.Stderr, "warning: "+msg)
	return nil
}

// run records and, unless dry-running, executes one external command.
func (r *Reconciler) run(cmd Command) (Command, error) {
	r.debugf("running: %s", cmd)
	if !r.opts.DryRun {
		if err := r.runner.Run(cmd); err != nil {
			return Command{}, err
		}
	}
	return cmd, nil
}

func (r *Reconciler) debugf(format string, args ...any) {
	if r.opts.Debug {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func containsWindow(windows []string, name string) bool {
	for _, window := range windows {
		if window == name {
			return true
		}
	}
	return false
}
