package dal

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracmeta/metacore/internal/svcerr"
)

// tracer and meter are named after this package against the global
// (no-op until configured) OTel providers.
var tracer = otel.Tracer("github.com/tracmeta/metacore/internal/dal")

var dalMetrics struct {
	retryCount     metric.Int64Counter
	statementMs    metric.Float64Histogram
}

func init() {
	m := otel.Meter("github.com/tracmeta/metacore/internal/dal")
	dalMetrics.retryCount, _ = m.Int64Counter("metacore.dal.retry_count",
		metric.WithDescription("DAL operations retried due to transient storage errors"),
		metric.WithUnit("{retry}"),
	)
	dalMetrics.statementMs, _ = m.Float64Histogram("metacore.dal.statement_duration_ms",
		metric.WithDescription("Wall-clock duration of one DAL operation, including internal retries"),
		metric.WithUnit("ms"),
	)
}

// RetryCap bounds the number of internal retry attempts for transient
// storage failures (spec.md §4.3: "retried internally with capped
// exponential backoff (<= 3 attempts)").
const RetryCap = 3

// DB is the relational DAL: a connection pool bound to one Dialect, exposing
// the seven operations of spec.md §4.3's table. Every exported method opens
// exactly one transaction and runs it to completion — no method leaves a
// transaction open across a call boundary (spec.md §5).
type DB struct {
	dialect Dialect
	sqlDB   *sql.DB
	log     *slog.Logger
}

// Open opens a connection pool for dialect using cfg, returning a ready DB.
func Open(ctx context.Context, dialect Dialect, cfg Config, log *slog.Logger) (*DB, error) {
	sqlDB, err := dialect.Open(ctx, cfg)
	if err != nil {
		return nil, dialect.TranslateError("dal.Open", err)
	}
	if cfg.PoolSize > 0 {
		sqlDB.SetMaxOpenConns(cfg.PoolSize)
	}
	if log == nil {
		log = slog.Default()
	}
	return &DB{dialect: dialect, sqlDB: sqlDB, log: log}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error { return db.sqlDB.Close() }

// withTx runs fn inside one transaction, retrying the whole transaction on a
// TransientStorage classification up to RetryCap additional attempts, with
// capped exponential backoff. Whether an error is retried is decided by
// svcerr.IsRetryable, i.e. by the TransientStorage kind that the dialect's
// TranslateError assigns.
func (db *DB) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	ctx, span := tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", db.dialect.Name())))
	start := time.Now()
	defer func() {
		dalMetrics.statementMs.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("operation", op)))
		span.End()
	}()

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), RetryCap)
	attempts := 0

	err := backoff.Retry(func() error {
		attempts++
		if ctx.Err() != nil {
			return backoff.Permanent(svcerr.Wrap(svcerr.KindDeadlineExceeded, op, "request deadline expired", ctx.Err()))
		}

		tx, txErr := db.sqlDB.BeginTx(ctx, nil)
		if txErr != nil {
			return backoff.Permanent(db.dialect.TranslateError(op, txErr))
		}

		runErr := fn(tx)
		if runErr != nil {
			_ = tx.Rollback()
			if svcerr.IsRetryable(runErr) {
				db.log.Warn("dal: retrying after transient storage error", "op", op, "attempt", attempts)
				return runErr
			}
			return backoff.Permanent(runErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			translated := db.dialect.TranslateError(op, commitErr)
			if svcerr.IsRetryable(translated) {
				return translated
			}
			return backoff.Permanent(translated)
		}
		return nil
	}, backoff.WithContext(bo, ctx))

	if attempts > 1 {
		dalMetrics.retryCount.Add(ctx, int64(attempts-1), metric.WithAttributes(attribute.String("operation", op)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if attempts > RetryCap && svcerr.IsRetryable(err) {
			db.log.Error("dal: exhausted retry cap", "op", op, "attempts", attempts)
		}
		var svcErr *svcerr.Error
		if ok := asServiceError(err, &svcErr); ok {
			return svcErr
		}
		return db.dialect.TranslateError(op, err)
	}
	return nil
}

func asServiceError(err error, out **svcerr.Error) bool {
	if e, ok := err.(*svcerr.Error); ok {
		*out = e
		return true
	}
	return false
}
