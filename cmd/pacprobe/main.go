package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/pacprobe/internal/config"
	"github.com/hazz-dev/pacprobe/internal/probe"
	"github.com/hazz-dev/pacprobe/internal/storage"
	"github.com/hazz-dev/pacprobe/internal/version"
)

type options struct {
	envPath  string
	dbPath   string
	record   bool
	settings string
	limit    int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the CLI and returns the process exit code.
func run(args []string, out io.Writer) int {
	root := rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	if err := root.Execute(); err != nil {
		// The report already explained a failed probe.
		if !errors.Is(err, errProbeFailed) {
			fmt.Fprintf(out, "❌ Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func rootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "pacprobe",
		Short:         "Verify PAC API credentials with a single authenticated request",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.envPath, "env", config.DefaultEnvPath, ".env file holding the PAC credentials")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "pacprobe.db", "probe history database path")
	root.Flags().BoolVar(&opts.record, "record", false, "append the probe result to the history database")

	root.AddCommand(versionCmd())
	root.AddCommand(historyCmd(opts))
	root.AddCommand(serveCmd(opts))

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pacprobe %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func runProbe(cmd *cobra.Command, opts *options) error {
	creds, err := config.LoadCredentials(opts.envPath)
	if err != nil {
		return err
	}

	var rec probeRecorder
	if opts.record {
		db, err := storage.Open(opts.dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		rec = db
	}

	return executeProbe(cmd.Context(), cmd.OutOrStdout(), creds, probe.New(creds, probe.DefaultTimeout), rec)
}

func historyCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded probe results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := storage.Open(opts.dbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			return executeHistory(cmd, db, opts.limit)
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "number of probes to show")
	return cmd
}
