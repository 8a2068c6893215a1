// Package main provides the CLI entry point for jsonbbench, a tool that
// measures PostgreSQL storage growth when updating one field of a large
// versus a small JSONB document.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/weiihann/jsonbbench/config"
	"github.com/weiihann/jsonbbench/harness"
	"github.com/weiihann/jsonbbench/report"
	"github.com/weiihann/jsonbbench/store"
	"github.com/weiihann/jsonbbench/workload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	level := &slog.LevelVar{}
	logger := newLogger(os.Stderr, level)

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "jsonbbench: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	root := &cobra.Command{
		Use:   "jsonbbench",
		Short: "PostgreSQL JSONB update storage benchmark",
		Long: `Jsonbbench repeatedly updates a timestamp field inside a large and a
small JSONB document and records how total, main and TOAST storage of each
table grow over time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger, level))

	return root
}

func newRunCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var (
		configPath string
		flagCfg    = config.Default()
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the large and small document update benchmarks",
		Long: `Drop and recreate the benchmark tables, seed one row in each, run a
timed update loop against the large document and then the small one, and
write the sampled sizes into an HTML report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			applyFlags(cmd.Flags(), &cfg, flagCfg)

			if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
				return fmt.Errorf("log level: %w", err)
			}

			return runBenchmark(cmd.Context(), logger, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"Path to a YAML config file (flags override its values)")
	flags.StringVar(&flagCfg.DSN, "dsn", "",
		"PostgreSQL connection string (overrides host, port, database, user, password)")
	flags.StringVar(&flagCfg.Host, "host", flagCfg.Host,
		"PostgreSQL host")
	flags.IntVar(&flagCfg.Port, "port", flagCfg.Port,
		"PostgreSQL port")
	flags.StringVar(&flagCfg.Database, "database", flagCfg.Database,
		"PostgreSQL database name")
	flags.StringVar(&flagCfg.User, "user", flagCfg.User,
		"PostgreSQL user")
	flags.StringVar(&flagCfg.Password, "password", flagCfg.Password,
		"PostgreSQL password")
	flags.DurationVar(&flagCfg.Duration, "duration", flagCfg.Duration,
		"Wall-clock duration of each update loop")
	flags.IntVar(&flagCfg.SampleEvery, "sample-every", flagCfg.SampleEvery,
		"Sample table sizes every N updates")
	flags.IntVar(&flagCfg.Users, "users", flagCfg.Users,
		"Number of user records in the large document")
	flags.Int64Var(&flagCfg.Seed, "seed", flagCfg.Seed,
		"Random seed for document content (0 = use current time)")
	flags.StringVar(&flagCfg.Template, "template", flagCfg.Template,
		"HTML template containing "+report.Placeholder)
	flags.StringVar(&flagCfg.Output, "output", flagCfg.Output,
		"Path of the rendered HTML report")
	flags.BoolVar(&flagCfg.JSON, "json", flagCfg.JSON,
		"Print results as JSON instead of a table")
	flags.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel,
		"Log level (debug, info, warn, error)")

	return cmd
}

// applyFlags copies explicitly set flags from src into cfg.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config, src config.Config) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "dsn":
			cfg.DSN = src.DSN
		case "host":
			cfg.Host = src.Host
		case "port":
			cfg.Port = src.Port
		case "database":
			cfg.Database = src.Database
		case "user":
			cfg.User = src.User
		case "password":
			cfg.Password = src.Password
		case "duration":
			cfg.Duration = src.Duration
		case "sample-every":
			cfg.SampleEvery = src.SampleEvery
		case "users":
			cfg.Users = src.Users
		case "seed":
			cfg.Seed = src.Seed
		case "template":
			cfg.Template = src.Template
		case "output":
			cfg.Output = src.Output
		case "json":
			cfg.JSON = src.JSON
		case "log-level":
			cfg.LogLevel = src.LogLevel
		}
	})
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.Duration("duration", cfg.Duration),
		slog.Int("sample_every", cfg.SampleEvery),
		slog.Int("users", cfg.Users),
		slog.Int64("seed", seed),
	)

	// Step 1: Connect.
	connCfg, err := cfg.ConnConfig()
	if err != nil {
		return err
	}

	conn, err := store.Connect(ctx, connCfg)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	st := store.New(conn)

	// Step 2: Recreate the schema.
	if err := st.Reset(ctx); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}

	// Step 3: Seed one row per table.
	if err := seedTables(ctx, logger, st, workload.Config{Users: cfg.Users, Seed: seed}); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	// Step 4: Run the large loop, then the small one.
	runner := harness.NewRunner(st, logger)

	large, err := runner.Run(ctx, st.Updater(st.Large), harness.RunConfig{
		Description: "Large JSONB updates",
		Duration:    cfg.Duration,
		SampleEvery: cfg.SampleEvery,
	})
	if err != nil {
		return fmt.Errorf("large updates: %w", err)
	}

	small, err := runner.Run(ctx, st.Updater(st.Small), harness.RunConfig{
		Description: "Small JSONB updates",
		Duration:    cfg.Duration,
		SampleEvery: cfg.SampleEvery,
	})
	if err != nil {
		return fmt.Errorf("small updates: %w", err)
	}

	results := harness.Results{
		LargeUpdates: large,
		SmallUpdates: small,
	}

	// Step 5: Render the report.
	if err := report.WriteHTML(cfg.Template, cfg.Output, results); err != nil {
		return err
	}

	logger.InfoContext(ctx, "results written", slog.String("path", cfg.Output))

	if cfg.JSON {
		if err := report.GenerateJSON(os.Stdout, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(os.Stdout, results); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}

func seedTables(
	ctx context.Context,
	logger *slog.Logger,
	st *store.Store,
	wcfg workload.Config,
) error {
	gen := workload.NewGenerator(wcfg)

	large, err := gen.Large()
	if err != nil {
		return fmt.Errorf("generate large document: %w", err)
	}

	small, err := gen.Small()
	if err != nil {
		return fmt.Errorf("generate small document: %w", err)
	}

	if err := st.Seed(ctx, large, small); err != nil {
		return err
	}

	for _, table := range []string{st.Large, st.Small} {
		n, err := st.CountRows(ctx, table)
		if err != nil {
			return err
		}

		if n != 1 {
			return fmt.Errorf("table %s has %d rows after seeding, want 1", table, n)
		}

		logger.DebugContext(ctx, "table seeded", slog.String("table", table))
	}

	return nil
}
