package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/binutils/internal/config"
	"github.com/example/binutils/internal/shellcache"
)

// CacheShellCmd returns the cache-shell command
func CacheShellCmd() *cobra.Command {
	var (
		source      string
		destination string
		strategy    string
		configFile  string
	)

	cmd := &cobra.Command{
		Use:   "cache-shell",
		Short: "Expand shell-startup markers into cached output files",
		Long: `Processes shell startup files, replacing # CMD:, # CMD_SILENT: and
# FETCH: markers with the output they produce. The expanded files load
instantly at shell startup instead of re-running expensive commands like
'brew shellenv' every time.

Source and destination default to the shell_caching section of the config
file. The destination is replaced atomically: a failed run leaves it as it
was.

Examples:
  binutils cache-shell
  binutils cache-shell --source ~/dotfiles/zsh --destination ~/dotfiles/zsh/dist
  binutils cache-shell --destination-strategy merge`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			opts := shellcache.Options{Source: source, Destination: destination}
			if cfg.ShellCaching != nil {
				if opts.Source == "" {
					opts.Source = cfg.ShellCaching.Source
				}
				if opts.Destination == "" {
					opts.Destination = cfg.ShellCaching.Destination
				}
			}
			opts.Strategy, err = shellcache.ParseStrategy(strategy)
			if err != nil {
				return err
			}

			return shellcache.Run(opts)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Directory to process")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Directory to emit the expanded output into")
	cmd.Flags().StringVar(&strategy, "destination-strategy", "clear", "What to do with the destination first (clear or merge)")
	cmd.Flags().StringVar(&configFile, "config-file", "", "Path to the configuration file")

	return cmd
}
