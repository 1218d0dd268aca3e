package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/sessiontable/internal/cli"
	"github.com/aretw0/sessiontable/internal/config"
	"github.com/aretw0/sessiontable/internal/presentation/tui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app carries what PersistentPreRunE resolved for the running command.
type app struct {
	configPath string
	plain      bool

	cfg    config.Config
	logger *slog.Logger
	out    *tui.Printer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "sessiontable",
		Short: "Inspect and maintain a persistent web session table",
		Long: `sessiontable manages the session records written by a SQLite-backed session store:
read and write payloads, count and list sessions, and remove expired ones on demand or on a schedule.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file (default ./"+config.DefaultFile+" when present)")
	flags.BoolVar(&a.plain, "plain", false, "Disable colours and pretty printing")
	flags.String("driver", "", "Storage driver: sqlite, memory or redis")
	flags.String("path", "", "SQLite database file")
	flags.String("table", "", "Session table name")
	flags.Duration("default-ttl", 0, "Lifetime of sessions without a max-age hint")
	flags.String("redis-addr", "", "Redis address for the redis driver")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		newInitCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newRmCmd(a),
		newLsCmd(a),
		newCountCmd(a),
		newClearCmd(a),
		newTouchCmd(a),
		newCleanupCmd(a),
		newReapCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup resolves configuration with precedence defaults < file < env < flags.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("driver") {
		cfg.Driver, _ = f.GetString("driver")
	}
	if f.Changed("path") {
		cfg.Path, _ = f.GetString("path")
	}
	if f.Changed("table") {
		cfg.Table, _ = f.GetString("table")
	}
	if f.Changed("default-ttl") {
		cfg.DefaultTTL, _ = f.GetDuration("default-ttl")
	}
	if f.Changed("redis-addr") {
		cfg.Redis.Addr, _ = f.GetString("redis-addr")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Log.Format, _ = f.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cli.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.out = tui.NewPrinter(cmd.OutOrStdout(), a.plain)
	return nil
}

// open builds the configured store. reg enables metrics when non-nil.
func (a *app) open(cmd *cobra.Command, reg prometheus.Registerer) (*cli.OpenedStore, error) {
	return cli.OpenStore(cmd.Context(), a.cfg, cli.StoreOptions{
		Logger:     a.logger,
		Registerer: reg,
	})
}
