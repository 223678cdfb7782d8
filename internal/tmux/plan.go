package tmux

import (
	"fmt"

	"github.com/example/binutils/internal/config"
)

// windowCommands produces the ordered shell commands to type into a freshly
// created window: one PATH prepend per linked crate in declared order, then
// the window's own command lines. A nil result means nothing to send.
func windowCommands(window config.Window, crates map[string]string) ([]string, error) {
	var commands []string

	for _, name := range window.LinkedCrates {
		dir, ok := crates[name]
		if !ok {
			return nil, fmt.Errorf("could not find crate: %s for linking into %s",
				name, window.Name)
		}
		commands = append(commands, fmt.Sprintf(`export PATH="%s:$PATH"`, dir))
	}

	commands = append(commands, window.Command...)

	return commands, nil
}
