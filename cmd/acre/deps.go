package main

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/acre/config"
	auditrepo "github.com/Ramsey-B/acre/internal/repositories/audit"
	eventrepo "github.com/Ramsey-B/acre/internal/repositories/event"
	parcelrepo "github.com/Ramsey-B/acre/internal/repositories/parcel"
	stagedrepo "github.com/Ramsey-B/acre/internal/repositories/stagedevent"
	"github.com/Ramsey-B/acre/pkg/audit"
	"github.com/Ramsey-B/acre/pkg/database"
	"github.com/Ramsey-B/acre/pkg/ingest"
	"github.com/Ramsey-B/acre/pkg/kafka"
	"github.com/Ramsey-B/acre/pkg/pipeline"
)

// runDependencies is the wiring a reconciliation run needs. With no
// database configured (or in dry runs) the stores stay nil and the run is
// report-only.
type runDependencies struct {
	db           database.DB
	parcelStore  pipeline.ParcelStore
	eventStore   pipeline.EventStore
	stagedEvents *stagedrepo.Repository
	auditSinks   []audit.Sink
}

func (d *runDependencies) close() {
	if d.db != nil {
		_ = d.db.Close()
	}
}

func buildRunDependencies(ctx context.Context, cfg config.Config, logger ectologger.Logger, dryRun bool) (*runDependencies, error) {
	deps := &runDependencies{}
	if dryRun || cfg.DatabaseHost == "" {
		return deps, nil
	}

	db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	deps.db = db
	deps.parcelStore = parcelrepo.NewRepository(db, logger)
	deps.eventStore = eventrepo.NewRepository(db, logger)
	deps.stagedEvents = stagedrepo.NewRepository(db, logger)
	deps.auditSinks = []audit.Sink{auditrepo.NewRepository(db, logger)}
	return deps, nil
}

func newProducer(cfg config.Config, logger ectologger.Logger) *kafka.Producer {
	return kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaEventTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
}

func newEventFeed(cfg config.Config, logger ectologger.Logger, paths []string) *ingest.EventFeed {
	return ingest.NewEventFeed(logger, cfg.CountyFilter, paths...)
}

// connectSqlx opens a raw sqlx handle for callers that need the underlying
// *sql.DB (the migration driver).
func connectSqlx(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := "host=" + cfg.DatabaseHost +
		" port=" + cfg.DatabasePort +
		" user=" + cfg.DatabaseUserName +
		" password=" + cfg.DatabasePassword +
		" dbname=" + cfg.DatabaseName +
		" sslmode=" + cfg.DatabaseSSLMode
	return sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
}
