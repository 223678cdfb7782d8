package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/binutils/internal/cli"
	"github.com/example/binutils/internal/latestbin"
	"github.com/example/binutils/internal/version"
)

func main() {
	if err := latestbin.Ensure(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:     "binutils",
		Short:   "binutils - personal developer environment bootstrapper",
		Version: version.String(),
		Long: `binutils keeps a development environment in shape: it reconciles tmux
sessions against a declarative Lua configuration, caches expensive shell
startup commands, and maintains the symlinks and local-dotfiles overlay the
rest of the setup depends on.`,
	}

	rootCmd.AddCommand(cli.StartupCmd())
	rootCmd.AddCommand(cli.CacheShellCmd())
	rootCmd.AddCommand(cli.SymlinksCmd())
	rootCmd.AddCommand(cli.LocalDotfilesCmd())
	rootCmd.AddCommand(cli.DoctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
