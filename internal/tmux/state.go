package tmux

import (
	"fmt"
	"sort"
	"strings"
)

// State maps session names to their window names in on-screen order. It is
// the ground truth model: queried fresh from the server, tracked locally as
// mutations are issued, and discarded at the end of the run.
type State map[string][]string

// GatherState queries the running server for its session/window topology.
// An absent server (list-sessions exiting non-zero) yields an empty state;
// a failing list-windows for a known session is fatal since the engine
// cannot safely guess state.
func GatherState(r Runner, socket string) (State, error) {
	state := State{}

	out, ok, err := r.Output(socketCommand(socket, "list-sessions", "-F", "#{session_name}"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if !ok {
		return state, nil
	}

	for _, session := range splitLines(out) {
		wout, wok, err := r.Output(socketCommand(socket,
			"list-windows", "-F", "#{window_name}", "-t", session))
		if err != nil {
			return nil, fmt.Errorf("failed to list windows for session %q: %w", session, err)
		}
		if !wok {
			return nil, fmt.Errorf("failed to list windows for session %q", session)
		}
		state[session] = splitLines(wout)
	}

	return state, nil
}

// Equal reports whether two states describe the same topology, including
// window order.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for session, windows := range s {
		otherWindows, ok := other[session]
		if !ok || len(windows) != len(otherWindows) {
			return false
		}
		for i := range windows {
			if windows[i] != otherWindows[i] {
				return false
			}
		}
	}
	return true
}

// String renders the state with sessions sorted, for diagnostics.
func (s State) String() string {
	sessions := make([]string, 0, len(s))
	for session := range s {
		sessions = append(sessions, session)
	}
	sort.Strings(sessions)

	var b strings.Builder
	b.WriteByte('{')
	for i, session := range sessions {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", session, s[session])
	}
	b.WriteByte('}')
	return b.String()
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
