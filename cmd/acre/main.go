package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/acre/config"
	"github.com/Ramsey-B/acre/pkg/audit"
	"github.com/Ramsey-B/acre/pkg/countycode"
	"github.com/Ramsey-B/acre/pkg/ingest"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/pipeline"
	"github.com/Ramsey-B/acre/pkg/registry"
	"github.com/Ramsey-B/acre/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)
	initTracing(cfg)

	rootCmd := &cobra.Command{
		Use:   "acre",
		Short: "Parcel identity resolution engine",
		Long:  `Derives canonical parcel keys and reconciles transaction feeds against the parcel registry`,
	}

	rootCmd.AddCommand(createReconcileCmd(cfg, logger))
	rootCmd.AddCommand(createServeCmd(cfg, logger))
	rootCmd.AddCommand(createProduceCmd(cfg, logger))
	rootCmd.AddCommand(createConsumeCmd(cfg, logger))
	rootCmd.AddCommand(createMigrateCmd(cfg, logger))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func initTracing(cfg config.Config) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))
}

// createReconcileCmd creates the batch reconciliation command
func createReconcileCmd(cfg config.Config, logger ectologger.Logger) *cobra.Command {
	var dryRun bool
	var publishResolved bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over the configured feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			parcelPaths, err := globFeed(cfg.DataDir, cfg.ParcelFeedGlob)
			if err != nil {
				return err
			}
			eventPaths, err := globFeed(cfg.DataDir, cfg.EventFeedGlob)
			if err != nil {
				return err
			}
			logger.WithContext(ctx).WithFields(map[string]any{
				"parcel_feeds": len(parcelPaths),
				"event_feeds":  len(eventPaths),
			}).Info("Resolved feed paths")

			deps, err := buildRunDependencies(ctx, cfg, logger, dryRun)
			if err != nil {
				return err
			}
			defer deps.close()

			sinks := deps.auditSinks
			if cfg.OrphanReportPath != "" {
				csvSink, err := audit.NewCSVSink(cfg.OrphanReportPath)
				if err != nil {
					return fmt.Errorf("failed to open orphan report: %w", err)
				}
				defer csvSink.Close()
				sinks = append(sinks, audit.NewKindFilterSink(csvSink, models.AuditKindOrphan))
			}
			if cfg.ParcelReportPath != "" {
				csvSink, err := audit.NewCSVSink(cfg.ParcelReportPath)
				if err != nil {
					return fmt.Errorf("failed to open parcel report: %w", err)
				}
				defer csvSink.Close()
				sinks = append(sinks, audit.NewKindFilterSink(csvSink, models.AuditKindUnkeyable, models.AuditKindDuplicate))
			}

			var txnSource pipeline.TransactionSource = ingest.NewEventFeed(logger, cfg.CountyFilter, eventPaths...)
			if deps.stagedEvents != nil {
				txnSource = &combinedSource{sources: []pipeline.TransactionSource{txnSource, deps.stagedEvents}}
			}

			eventStore := deps.eventStore
			var captured *capturedEvents
			if publishResolved {
				captured = &capturedEvents{store: deps.eventStore}
				eventStore = captured
			}

			p := pipeline.New(
				logger,
				countycode.Wisconsin(),
				ingest.NewParcelFeed(logger, parcelPaths...),
				txnSource,
				deps.parcelStore,
				eventStore,
				pipeline.Config{
					ParcelNormalizePolicy: cfg.ParcelNormalizePolicy,
					EventNormalizePolicy:  cfg.EventNormalizePolicy,
					TieBreak:              registry.TieBreak(cfg.RegistryTieBreak),
					AddressThreshold:      cfg.AddressThreshold,
					ParcelIDThreshold:     cfg.ParcelIDThreshold,
					WorkerCount:           cfg.MatchWorkerCount,
				},
				sinks...,
			)

			summary, err := p.Run(ctx)
			if err != nil {
				return err
			}

			if captured != nil {
				producer := newProducer(cfg, logger)
				defer producer.Close()
				if err := producer.PublishResolvedEvents(ctx, captured.events); err != nil {
					return fmt.Errorf("failed to publish resolved events: %w", err)
				}
			}

			fmt.Printf("run %s: resolved=%d orphan=%d duplicate=%d unkeyable=%d\n",
				summary.RunID, summary.Resolved, summary.Orphan, summary.Duplicate, summary.Unkeyable)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and report without writing to the database")
	cmd.Flags().BoolVar(&publishResolved, "publish", false, "publish the resolved set to the event topic after emit")
	return cmd
}

// combinedSource concatenates transaction sources in order.
type combinedSource struct {
	sources []pipeline.TransactionSource
}

func (s *combinedSource) Transactions(ctx context.Context) ([]models.Transaction, error) {
	var all []models.Transaction
	for _, source := range s.sources {
		txns, err := source.Transactions(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, txns...)
	}
	return all, nil
}

// capturedEvents retains the emitted resolved set so it can be published
// after the stores commit. The wrapped store may be nil for dry runs.
type capturedEvents struct {
	store  pipeline.EventStore
	events []models.ResolvedTransaction
}

func (s *capturedEvents) Replace(ctx context.Context, events []models.ResolvedTransaction) error {
	s.events = events
	if s.store == nil {
		return nil
	}
	return s.store.Replace(ctx, events)
}

func globFeed(dir, pattern string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid feed glob %s: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no feed files match %s in %s", pattern, dir)
	}
	sort.Strings(paths)
	return paths, nil
}
