package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/GianlucaP106/gotmux/gotmux"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/binutils/internal/config"
	"github.com/example/binutils/internal/crates"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var (
		quiet      bool
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the binutils environment",
		Long: `Environment health check for binutils.

Validates:
- Configuration file loads and parses
- tmux binary availability
- Running tmux sessions against the configured layout
- Crate locations resolve to workspaces

Examples:
  binutils doctor           # Run full health check
  binutils doctor --quiet   # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgResult := checkConfig(configFile)
			results := []CheckResult{cfgResult}
			results = append(results, checkTmuxBinary())
			if cfg != nil {
				results = append(results, checkTmuxSessions(cfg))
				results = append(results, checkCrateLocations(cfg))
			}

			hasErrors := false
			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
					break
				}
			}

			if !quiet {
				fmt.Println()
				fmt.Println("Check              Status")
				fmt.Println("─────────────────────────")
				for _, r := range results {
					fmt.Printf("%-18s %s\n", r.Name, statusColor(r.Status))
				}
				fmt.Println()

				hasDetails := false
				for _, r := range results {
					if r.Status != "✓" && r.Details != "" {
						if !hasDetails {
							fmt.Println("Details:")
							hasDetails = true
						}
						fmt.Printf("\n%s:\n%s\n", r.Name, r.Details)
					}
				}

				if hasErrors {
					fmt.Println("\n⚠ Issues found.")
				} else {
					fmt.Println("All checks passed.")
				}
			}

			if hasErrors {
				return fmt.Errorf("environment validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode - exit code only")
	cmd.Flags().StringVar(&configFile, "config-file", "", "Path to the configuration file")

	return cmd
}

func statusColor(status string) string {
	switch status {
	case "✓":
		return color.New(color.FgGreen).Sprint(status)
	case "⚠":
		return color.New(color.FgYellow).Sprint(status)
	default:
		return color.New(color.FgRed).Sprint(status)
	}
}

// checkConfig loads the configuration; the loaded config feeds the other
// checks when it parses.
func checkConfig(configFile string) (*config.Config, CheckResult) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, CheckResult{
			Name:    "Config",
			Status:  "✗",
			Details: "  " + err.Error(),
		}
	}
	if cfg.Tmux == nil {
		return cfg, CheckResult{
			Name:    "Config",
			Status:  "⚠",
			Details: "  No tmux section configured; 'binutils startup' will be a no-op",
		}
	}
	return cfg, CheckResult{Name: "Config", Status: "✓"}
}

func checkTmuxBinary() CheckResult {
	path, err := exec.LookPath("tmux")
	if err != nil {
		return CheckResult{
			Name:    "tmux Binary",
			Status:  "✗",
			Details: "  'tmux' not found in PATH",
		}
	}
	return CheckResult{Name: "tmux Binary", Status: "✓", Details: "  " + path}
}

// checkTmuxSessions compares the running server against the configured
// layout using the gotmux client. An unreachable server is a warning, not an
// error: startup will create everything.
func checkTmuxSessions(cfg *config.Config) CheckResult {
	if cfg.Tmux == nil || len(cfg.Tmux.Sessions) == 0 {
		return CheckResult{Name: "tmux Sessions", Status: "✓"}
	}

	client, err := gotmux.DefaultTmux()
	if err != nil {
		return CheckResult{
			Name:    "tmux Sessions",
			Status:  "⚠",
			Details: "  Cannot create tmux client: " + err.Error(),
		}
	}

	sessions, err := client.ListSessions()
	if err != nil {
		return CheckResult{
			Name:    "tmux Sessions",
			Status:  "⚠",
			Details: "  No tmux server running; 'binutils startup' will create the configured sessions",
		}
	}

	running := map[string]map[string]bool{}
	for _, session := range sessions {
		windows := map[string]bool{}
		ws, err := session.ListWindows()
		if err == nil {
			for _, w := range ws {
				windows[w.Name] = true
			}
		}
		running[session.Name] = windows
	}

	var missing []string
	for _, session := range cfg.Tmux.Sessions {
		windows, ok := running[session.Name]
		if !ok {
			missing = append(missing, session.Name)
			continue
		}
		for _, window := range session.Windows {
			if !windows[window.Name] {
				missing = append(missing, session.Name+":"+window.Name)
			}
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:    "tmux Sessions",
			Status:  "⚠",
			Details: "  Not running: " + strings.Join(missing, ", ") + "\n  Run: binutils startup",
		}
	}
	return CheckResult{Name: "tmux Sessions", Status: "✓"}
}

func checkCrateLocations(cfg *config.Config) CheckResult {
	if len(cfg.CrateLocations) == 0 {
		return CheckResult{Name: "Crate Locations", Status: "✓"}
	}

	var problems []string
	for _, location := range cfg.CrateLocations {
		root := config.ExpandTilde(location)
		if _, err := os.Stat(root); err != nil {
			problems = append(problems, location+": not found")
		}
	}

	found, err := crates.Locate(cfg)
	if err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return CheckResult{
			Name:    "Crate Locations",
			Status:  "✗",
			Details: "  " + strings.Join(problems, "\n  "),
		}
	}
	return CheckResult{
		Name:    "Crate Locations",
		Status:  "✓",
		Details: fmt.Sprintf("  %d crates resolved", len(found)),
	}
}
