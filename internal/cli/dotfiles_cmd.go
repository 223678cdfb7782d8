package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/binutils/internal/dotfiles"
)

// LocalDotfilesCmd returns the setup-local-dotfiles command
func LocalDotfilesCmd() *cobra.Command {
	var opts dotfiles.Options

	cmd := &cobra.Command{
		Use:   "setup-local-dotfiles",
		Short: "Bootstrap a private local-dotfiles overlay",
		Long: `Creates the local-dotfiles scaffold (crates dir, nvim local config,
snippets, a local binutils config) and symlinks it into place. With --repo
the overlay is cloned when missing, or its origin remote verified when it
already exists.

Examples:
  binutils setup-local-dotfiles \
    --local-dotfiles-path ~/src/workstuff/local-dotfiles \
    --local-crates-target-path ~/src/dotfiles/binutils/local-crates
  binutils setup-local-dotfiles --repo git@example.com:me/local-dotfiles.git \
    --local-dotfiles-path ~/src/workstuff/local-dotfiles \
    --local-crates-target-path ~/src/dotfiles/binutils/local-crates --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Log = func(format string, args ...any) {
				fmt.Printf(format+"\n", args...)
			}
			return dotfiles.Run(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Repo, "repo", "", "Git repository URL to clone or verify")
	cmd.Flags().StringVar(&opts.LocalDotfilesPath, "local-dotfiles-path", "", "Where the local-dotfiles overlay lives")
	cmd.Flags().StringVar(&opts.LocalCratesTargetPath, "local-crates-target-path", "", "Where the crates directory gets symlinked to")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would happen without making changes")
	_ = cmd.MarkFlagRequired("local-dotfiles-path")
	_ = cmd.MarkFlagRequired("local-crates-target-path")

	return cmd
}
