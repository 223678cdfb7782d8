package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/binutils/internal/config"
	"github.com/example/binutils/internal/crates"
	"github.com/example/binutils/internal/tmux"
)

// StartupCmd returns the startup command
func StartupCmd() *cobra.Command {
	var (
		dryRun     bool
		debug      bool
		attach     bool
		socketName string
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "startup",
		Short: "Reconcile tmux sessions and windows with the configured layout",
		Long: `Reads the declarative tmux configuration and brings the running tmux
server in line with it: missing sessions and windows are created at their
configured positions, startup commands are sent to freshly created windows,
and existing windows are left untouched. Running it twice is safe.

By default the terminal attaches to tmux afterwards, unless it is already
inside a tmux client.

Examples:
  binutils startup
  binutils startup --dry-run
  binutils startup --attach=false --socket-name work`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			crateDirs, err := crates.Locate(cfg)
			if err != nil {
				return err
			}

			opts := tmux.Options{
				DryRun:     dryRun,
				Debug:      debug,
				SocketName: socketName,
				ConfigFile: configFile,
			}
			if cmd.Flags().Changed("attach") {
				opts.Attach = &attach
			}

			executed, err := tmux.NewReconciler(tmux.ExecRunner{}, opts).Startup(cfg, crateDirs)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Printf("%s the following commands would run:\n",
					color.New(color.FgYellow).Sprint("dry-run:"))
				for _, line := range executed {
					fmt.Printf("  %s\n", line)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the commands without running them")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print each command before running it")
	cmd.Flags().BoolVar(&attach, "attach", false, "Attach to tmux when done (default: attach unless already inside tmux)")
	cmd.Flags().StringVar(&socketName, "socket-name", "", "tmux server socket name (default \"default\")")
	cmd.Flags().StringVar(&configFile, "config-file", "", "Path to the configuration file")

	return cmd
}
