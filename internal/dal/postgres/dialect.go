// Package postgres adapts internal/dal.Dialect to PostgreSQL via
// jackc/pgx/v5's database/sql driver, following the registration pattern
// used by Storj's metabase package (pgx + pgx/v5/stdlib blank imports; see
// DESIGN.md).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/svcerr"
)

const driverName = "pgx"

// Dialect implements dal.Dialect over PostgreSQL.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Open(ctx context.Context, cfg dal.Config) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (Dialect) BooleanColumnType() string { return "BOOLEAN" }

func (Dialect) SupportsGeneratedKeys() bool { return true }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// PostgreSQL SQLSTATE classes that indicate a transient, internally
// retryable failure (spec.md §4.3 "Failure semantics"): serialization
// failure and deadlock detected.
const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateUniqueViolation      = "23505"
)

func (d Dialect) TranslateError(op string, err error) *svcerr.Error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if pgErrAs(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateUniqueViolation:
			return svcerr.Wrap(svcerr.KindDuplicateItem, op, "unique constraint violated", err)
		case sqlstateSerializationFailure, sqlstateDeadlockDetected:
			return svcerr.Wrap(svcerr.KindTransientStorage, op, "transaction could not be serialized", err)
		}
	}
	if strings.Contains(err.Error(), "connection reset") || strings.Contains(err.Error(), "broken pipe") {
		return svcerr.Wrap(svcerr.KindTransientStorage, op, "connection to postgres was lost", err)
	}
	return svcerr.Wrap(svcerr.KindPermanentStorage, op, "storage operation failed", err)
}

func (Dialect) IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !pgErrAs(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlstateSerializationFailure || pgErr.Code == sqlstateDeadlockDetected
}

func pgErrAs(err error, out **pgconn.PgError) bool {
	type pgErrorWrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*pgconn.PgError); ok {
			*out = e
			return true
		}
		w, ok := err.(pgErrorWrapper)
		if !ok {
			return false
		}
		err = w.Unwrap()
	}
	return false
}

// OpenScratch uses an UNLOGGED per-session temp table; Postgres TEMP tables
// are already session-private and dropped at session end, matching the
// scratch table's transaction-scoped lifetime (spec.md §4.2/§4.9).
func (Dialect) OpenScratch(ctx context.Context, tx *sql.Tx) (dal.ScratchTable, error) {
	_, err := tx.ExecContext(ctx, `
		CREATE TEMP TABLE IF NOT EXISTS key_mapping (
			position    INTEGER PRIMARY KEY,
			object_type INTEGER NOT NULL,
			id_hi       BIGINT NOT NULL,
			id_lo       BIGINT NOT NULL,
			version     BIGINT,
			tag_version BIGINT
		) ON COMMIT DELETE ROWS`)
	if err != nil {
		return nil, fmt.Errorf("creating scratch table: %w", err)
	}
	return &scratchTable{tx: tx}, nil
}

type scratchTable struct{ tx *sql.Tx }

func (s *scratchTable) Clear(ctx context.Context) error {
	_, err := s.tx.ExecContext(ctx, "DELETE FROM key_mapping")
	return err
}

func (s *scratchTable) Insert(ctx context.Context, rows []dal.ScratchRow) error {
	stmt, err := s.tx.PrepareContext(ctx, `
		INSERT INTO key_mapping (position, object_type, id_hi, id_lo, version, tag_version)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Position, r.ObjectType, r.IDHi, r.IDLo, r.Version, r.TagVersion); err != nil {
			return err
		}
	}
	return nil
}
