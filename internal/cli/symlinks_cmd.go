package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/binutils/internal/config"
	"github.com/example/binutils/internal/symlinks"
)

// SymlinksCmd returns the generate-symlinks command
func SymlinksCmd() *cobra.Command {
	var (
		workspacePaths []string
		configFile     string
	)

	cmd := &cobra.Command{
		Use:   "generate-symlinks",
		Short: "Symlink workspace build outputs into each member crate",
		Long: `Links the binaries a workspace-level build produced into each member
crate's own target/debug directory, so a single member directory can be put
on PATH. Workspace roots default to the crate_locations config entries, then
the current directory. Roots without a Cargo.toml are skipped.

Examples:
  binutils generate-symlinks
  binutils generate-symlinks --workspace-path ~/src/dotfiles/binutils`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			paths, err := symlinks.WorkspacePaths(workspacePaths, cfg)
			if err != nil {
				return err
			}
			return symlinks.Run(paths)
		},
	}

	cmd.Flags().StringArrayVarP(&workspacePaths, "workspace-path", "w", nil, "Workspace root to process (repeatable)")
	cmd.Flags().StringVar(&configFile, "config-file", "", "Path to the configuration file")

	return cmd
}
