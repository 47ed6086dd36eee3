package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"ecosort/internal/codec"
	"ecosort/internal/config"
	"ecosort/internal/engine/auth"
	"ecosort/internal/events"
	"ecosort/internal/logging"
	"ecosort/internal/metrics"
	"ecosort/internal/repo"
)

// Engine hosts the ledger, audit and aggregation operations. It is a value
// type; all shared state lives in the database.
type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Auth    auth.Service
	Codec   codec.Decoder
	Config  *config.Config
	Metrics *metrics.Metrics
	Log     *logrus.Logger
	Now     func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		Events:  events.Writer{},
		Auth:    auth.Service{DB: db},
		Codec:   codec.Plain{},
		Config:  cfg,
		Metrics: metrics.New(),
		Log:     logging.Discard(),
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() *logrus.Logger {
	if e.Log == nil {
		return logging.Discard()
	}
	return e.Log
}

func (e Engine) location() *time.Location {
	return e.Config.Location()
}

// observe records metrics for one operation and logs aborted transactions.
func (e Engine) observe(operation string, start time.Time, err error) {
	e.Metrics.Observe(operation, start, err)
	if err != nil && metrics.Outcome(err) == "aborted" {
		e.logger().WithError(err).WithField("operation", operation).Warn("transaction aborted")
	}
}

// appendEvent writes an audit event through tx. The writer follows the
// engine clock unless it has its own.
func (e Engine) appendEvent(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload events.EventPayload) error {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w.Append(ctx, tx, evtType, entityKind, entityID, actorID, payload)
}
