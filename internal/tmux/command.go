// Package tmux reconciles live tmux state against the declarative
// configuration: it reads the server's actual session/window topology,
// computes the minimal set of create operations, applies them with positional
// correctness, and optionally attaches the invoking terminal.
package tmux

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Command is one external tmux invocation: program plus argv. Its String
// form is the ExecutedCommand record used for diagnostics, dry-run output,
// and test verification.
type Command struct {
	Program string
	Args    []string
}

// socketCommand builds a tmux command scoped to the named server socket.
func socketCommand(socket string, args ...string) Command {
	return Command{Program: "tmux", Args: append([]string{"-L", socket}, args...)}
}

// String renders the command the way it would appear on a shell line. Args
// containing spaces or double quotes are single-quoted; args containing
// single quotes are double-quoted.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Program)
	for _, arg := range c.Args {
		b.WriteByte(' ')
		b.WriteString(quoteArg(arg))
	}
	return b.String()
}

func quoteArg(arg string) string {
	switch {
	case strings.ContainsAny(arg, " \""):
		var b strings.Builder
		b.WriteByte('\'')
		for _, r := range arg {
			if r == '\'' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('\'')
		return b.String()
	case strings.Contains(arg, "'"):
		var b strings.Builder
		b.WriteByte('"')
		for _, r := range arg {
			if r == '"' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
		return b.String()
	default:
		return arg
	}
}

// Runner executes external commands. The production implementation shells
// out; tests substitute a fake that simulates a tmux server.
type Runner interface {
	// Run executes a mutating command and waits for it. A non-zero exit is
	// an error carrying the command's captured stderr.
	Run(cmd Command) error

	// Output executes a query command and returns its stdout. ok is false
	// when the command exited non-zero (for list-sessions that means no
	// server is running); err is reserved for failures to execute at all.
	Output(cmd Command) (stdout string, ok bool, err error)
}

// ExecRunner runs commands as blocking subprocesses.
type ExecRunner struct{}

func (ExecRunner) Run(cmd Command) error {
	c := exec.Command(cmd.Program, cmd.Args...)
	var stderr bytes.Buffer
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("command execution failed (%s): %s",
				cmd, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("failed to execute %s: %w", cmd.Program, err)
	}
	return nil
}

func (ExecRunner) Output(cmd Command) (string, bool, error) {
	c := exec.Command(cmd.Program, cmd.Args...)
	var stdout bytes.Buffer
	c.Stdout = &stdout
	if err := c.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to execute %s: %w", cmd.Program, err)
	}
	return stdout.String(), true, nil
}
