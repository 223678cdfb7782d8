package tmux

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
)

// fakeServer simulates a tmux server: ordered windows per session, -b
// insert-before semantics, and list output matching the real -F formats.
type fakeServer struct {
	t        *testing.T
	sessions map[string][]string
	order    []string // session creation order
	sent     []string // send-keys records, "target text"
	runs     []string // every mutating command attempted
	failOn   string   // substring that makes Run fail, for error paths
	afterRun func(cmd Command)
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	return &fakeServer{t: t, sessions: map[string][]string{}}
}

func (f *fakeServer) seed(session string, windows ...string) {
	f.sessions[session] = windows
	f.order = append(f.order, session)
}

func (f *fakeServer) Run(cmd Command) error {
	f.runs = append(f.runs, cmd.String())
	if f.failOn != "" && strings.Contains(cmd.String(), f.failOn) {
		return fmt.Errorf("command execution failed (%s): boom", cmd)
	}

	args := cmd.Args
	if len(args) >= 2 && args[0] == "-L" {
		args = args[2:]
	}
	if len(args) == 0 {
		return fmt.Errorf("missing subcommand")
	}

	var err error
	switch args[0] {
	case "new-session":
		err = f.newSession(args[1:])
	case "new-window":
		err = f.newWindow(args[1:])
	case "send-keys":
		err = f.sendKeys(args[1:])
	default:
		err = fmt.Errorf("unsupported command: %s", args[0])
	}
	if err != nil {
		return err
	}
	if f.afterRun != nil {
		f.afterRun(cmd)
	}
	return nil
}

func (f *fakeServer) Output(cmd Command) (string, bool, error) {
	args := cmd.Args
	if len(args) >= 2 && args[0] == "-L" {
		args = args[2:]
	}
	if len(args) == 0 {
		return "", false, fmt.Errorf("missing subcommand")
	}

	switch args[0] {
	case "list-sessions":
		if len(f.order) == 0 {
			return "", false, nil // no server running
		}
		return strings.Join(f.order, "\n") + "\n", true, nil
	case "list-windows":
		session := flagValue(args[1:], "-t")
		windows, ok := f.sessions[session]
		if !ok {
			return "", false, nil
		}
		return strings.Join(windows, "\n") + "\n", true, nil
	default:
		return "", false, fmt.Errorf("unsupported query: %s", args[0])
	}
}

func (f *fakeServer) newSession(args []string) error {
	name := flagValue(args, "-s")
	window := flagValue(args, "-n")
	if name == "" || window == "" {
		return fmt.Errorf("new-session requires -s and -n")
	}
	if _, exists := f.sessions[name]; exists {
		return fmt.Errorf("duplicate session: %s", name)
	}
	f.seed(name, window)
	return nil
}

func (f *fakeServer) newWindow(args []string) error {
	target := flagValue(args, "-t")
	name := flagValue(args, "-n")
	if !hasFlag(args, "-b") {
		return fmt.Errorf("expected insert-before flag for new-window %s", target)
	}

	session, indexStr, ok := strings.Cut(target, ":")
	if !ok {
		return fmt.Errorf("malformed target: %s", target)
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		return fmt.Errorf("malformed window index in target %s", target)
	}

	windows, exists := f.sessions[session]
	if !exists {
		return fmt.Errorf("session not found: %s", session)
	}

	// -b inserts before the window currently at the 1-based index.
	position := index - baseIndex
	if position < 0 {
		position = 0
	}
	if position > len(windows) {
		position = len(windows)
	}
	inserted := make([]string, 0, len(windows)+1)
	inserted = append(inserted, windows[:position]...)
	inserted = append(inserted, name)
	inserted = append(inserted, windows[position:]...)
	f.sessions[session] = inserted
	return nil
}

func (f *fakeServer) sendKeys(args []string) error {
	target := flagValue(args, "-t")
	session, _, _ := strings.Cut(target, ":")
	if _, exists := f.sessions[session]; !exists {
		return fmt.Errorf("session not found: %s", session)
	}

	// args look like: -t <target> <text> Enter
	var rest []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-t" {
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	if len(rest) != 2 || rest[1] != "Enter" {
		return fmt.Errorf("unexpected send-keys args: %v", args)
	}
	f.sent = append(f.sent, target+" "+rest[0])
	return nil
}

func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}
