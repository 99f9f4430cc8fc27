package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/steward/internal/app"
	"github.com/five82/steward/internal/config"
	"github.com/five82/steward/internal/logtail"
	"github.com/five82/steward/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "steward: %v\n", err)
		return 1
	}
	return 0
}

type globalFlags struct {
	configPath string
	prefsPath  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "steward",
		Short: "Owner tools for the chat bot",
		Long: `steward answers the bot owner's administrative commands: broadcasting,
database inspection, emoji usage rankings and the bot's own error log.

Run it as a Telegram bot with "steward run" or locally with "steward console".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/steward/config.toml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for commands on Telegram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: flags.configPath,
				Mode:       app.ModeBot,
				Verbose:    flags.verbose,
				LogOutput:  cmd.ErrOrStderr(),
			})
		},
	}

	consoleCmd := &cobra.Command{
		Use:   "console",
		Short: "Run commands from a local terminal console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: flags.configPath,
				PrefsPath:  flags.prefsPath,
				Mode:       app.ModeConsole,
				Verbose:    flags.verbose,
			})
		},
	}
	consoleCmd.Flags().StringVar(&flags.prefsPath, "prefs", "", "console preferences file (default ~/.config/steward/console.toml)")

	var lines int
	errorsCmd := &cobra.Command{
		Use:   "errors",
		Short: "Print the end of the error log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tail, err := logtail.Read(cfg.ErrorLogPath(), lines)
			if err != nil {
				return err
			}
			if len(tail) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No errors logged.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tail, "\n"))
			return nil
		},
	}
	errorsCmd.Flags().IntVarP(&lines, "lines", "n", logtail.DefaultWindowSize, "number of lines to show, 0 for all")

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the bot database into the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := store.Open(cmd.Context(), cfg.Store.Path, cfg.Store.Tables)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = db.Close() }()

			path, err := db.Backup(cmd.Context(), cfg.Store.BackupDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	root.AddCommand(runCmd, consoleCmd, errorsCmd, backupCmd)
	return root
}
