package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/lookout/internal/app"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lookout: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:   "lookout",
		Short: "Live dashboard for the media processing pipeline",
		Long: `lookout keeps a live view of processing sessions, their files and the
worker pool by following the pipeline's real-time stream, and refetches
everything over HTTP whenever the stream cannot be trusted.

Running lookout without a subcommand opens the dashboard.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/lookout/config.toml)")
	root.PersistentFlags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/lookout/prefs.toml)")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Open the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print applied stream events as plain lines",
		Long: `tail follows the stream without the dashboard and prints one line per
applied event plus connection changes. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Tail(cmd.Context(), opts, cmd.OutOrStdout())
		},
	})

	var (
		logLines int
		logLevel string
	)
	logs := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the lookout log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Logs(opts, cmd.OutOrStdout(), logLines, logLevel)
		},
	}
	logs.Flags().IntVarP(&logLines, "lines", "n", 200, "number of lines to print (0 prints all)")
	logs.Flags().StringVar(&logLevel, "level", "", "minimum level: debug, info, warn or error")
	root.AddCommand(logs)
	return root
}
