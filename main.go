// Command qumi generates the NDC to QUMI code table, diffs two tables, or
// keeps the table fresh on a schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openqsrx/qumi-codes/config"
	"github.com/openqsrx/qumi-codes/data"
	"github.com/openqsrx/qumi-codes/formatter"
	"github.com/openqsrx/qumi-codes/health"
	"github.com/openqsrx/qumi-codes/logging"
	"github.com/openqsrx/qumi-codes/metrics"
	"github.com/openqsrx/qumi-codes/pipeline"
	"github.com/openqsrx/qumi-codes/scheduler"
	"github.com/openqsrx/qumi-codes/server"
	"github.com/openqsrx/qumi-codes/sources"
	"github.com/openqsrx/qumi-codes/units"
	"github.com/openqsrx/qumi-codes/validation"
)

var levels = []string{"debug", "info", "warning", "error", "critical"}

// app carries what every subcommand needs once the root command has run
type app struct {
	level string
	cfg   *config.Config
}

func (a *app) debug() bool {
	return a.level == "debug"
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "qumi",
		Short:         "Reconcile NDC packages into QUMI short codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
	}
	root.PersistentFlags().StringVar(&a.level, "level", "", "log level: "+strings.Join(levels, ", "))

	root.AddCommand(newGenerateCmd(a), newValidateCmd(a), newScheduleCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if a.level != "" && !validLevel(a.level) {
		return fmt.Errorf("invalid --level %q, must be one of: %s", a.level, strings.Join(levels, ", "))
	}

	if err := config.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.level == "" {
		a.level = strings.ToLower(cfg.LogLevel)
	}

	logging.InitLogger(logging.Options{
		LogDir:         cfg.LogDir,
		Env:            cfg.Env,
		Level:          a.level,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	logging.Debug("Configuration loaded", "env", cfg.Env.String(), "command", cmd.Name())
	return nil
}

func validLevel(level string) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

// newPipeline builds the loader and pipeline from the configuration
func (a *app) newPipeline() (*sources.Loader, *pipeline.Pipeline, error) {
	tables := units.DefaultTables()
	if a.cfg.CorrectionsFile != "" {
		loaded, err := units.LoadTables(a.cfg.Path(a.cfg.CorrectionsFile))
		if err != nil {
			return nil, nil, err
		}
		tables = loaded
	}

	loader := sources.NewLoader(sources.Paths{
		Package: a.cfg.Path(a.cfg.PackageFile),
		Product: a.cfg.Path(a.cfg.ProductFile),
		RxNorm:  a.cfg.Path(a.cfg.RxNormDB),
	})
	p := pipeline.New(pipeline.Options{
		Tables:          tables,
		AllowCollisions: a.cfg.AllowCodeCollisions,
		Debug:           a.debug(),
	})
	return loader, p, nil
}

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <file.csv|file.xlsx>",
		Short: "Run the pipeline and write the code table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, p, err := a.newPipeline()
			if err != nil {
				return err
			}

			result, _, err := p.Run(cmd.Context(), loader)
			if err != nil {
				return err
			}
			if err := formatter.Write(args[0], result.Rows, a.debug()); err != nil {
				return err
			}

			if a.cfg.MetricsTextfile != "" {
				if err := metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
					logging.Warn("Failed to export metrics", "error", err)
				}
			}
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	var reference string

	cmd := &cobra.Command{
		Use:   "validate <file.csv|file.xlsx>",
		Short: "Print the short codes that changed against a reference table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reference == "" {
				reference = a.cfg.ReferenceFile
			}

			current, err := formatter.ReadFile(args[0])
			if err != nil {
				return err
			}
			previous, err := formatter.ReadFile(reference)
			if err != nil {
				return err
			}

			changes, summary := validation.Compare(previous, current)
			if err := validation.PrintChanges(cmd.OutOrStdout(), changes); err != nil {
				return fmt.Errorf("failed to print changes: %w", err)
			}
			logging.Info("Comparison complete",
				"reference", reference,
				"changed", summary.Changed,
				"added", summary.Added,
				"removed", summary.Removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&reference, "reference", "", "reference table (default REFERENCE_FILE)")
	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Regenerate the table at SCHEDULE_TIMES and serve its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.schedule(cmd.Context())
		},
	}
}

func (a *app) schedule(ctx context.Context) error {
	loader, p, err := a.newPipeline()
	if err != nil {
		return err
	}

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(dataContainer, loader, p, scheduler.Options{
		ScheduleTimes:   a.cfg.ScheduleTimes,
		OutputFile:      a.cfg.OutputFile,
		ReferenceFile:   a.cfg.ReferenceFile,
		MetricsTextfile: a.cfg.MetricsTextfile,
		Debug:           a.debug(),
	})
	srv := server.NewServer(a.cfg, dataContainer, health.NewHealthChecker(dataContainer, a.cfg.ScheduleTimes))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	if err := sched.Start(); err != nil {
		runErr = err
	} else {
		select {
		case <-ctx.Done():
			logging.Info("Received shutdown signal")
		case err := <-serverErr:
			runErr = err
		}
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logging.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
