// Package mysql adapts internal/dal.Dialect to MySQL/MariaDB (and
// Dolt running in MySQL-server mode) via go-sql-driver/mysql, which also
// dials a Dolt MySQL-protocol server with this same driver.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/svcerr"
)

const driverName = "mysql"

// Dialect implements dal.Dialect over MySQL-protocol servers.
type Dialect struct{}

func (Dialect) Name() string { return "mysql" }

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

func (Dialect) BooleanColumnType() string { return "TINYINT(1)" }

func (Dialect) SupportsGeneratedKeys() bool { return false }

func (Dialect) Placeholder(int) string { return "?" }

// MySQL error numbers that TranslateError classifies: deadlock found and
// lock wait timeout (transient, retried internally), and duplicate entry.
const (
	errDeadlockFound     = 1213
	errLockWaitTimeout   = 1205
	errDuplicateEntry    = 1062
)

func (d Dialect) TranslateError(op string, err error) *svcerr.Error {
	if err == nil {
		return nil
	}
	var mErr *mysqldriver.MySQLError
	if errors.As(err, &mErr) {
		switch mErr.Number {
		case errDuplicateEntry:
			return svcerr.Wrap(svcerr.KindDuplicateItem, op, "unique constraint violated", err)
		case errDeadlockFound, errLockWaitTimeout:
			return svcerr.Wrap(svcerr.KindTransientStorage, op, "transaction deadlocked or timed out waiting for a lock", err)
		}
	}
	if errors.Is(err, mysqldriver.ErrInvalidConn) {
		return svcerr.Wrap(svcerr.KindTransientStorage, op, "connection to the server was lost", err)
	}
	return svcerr.Wrap(svcerr.KindPermanentStorage, op, "storage operation failed", err)
}

func (Dialect) IsSerializationFailure(err error) bool {
	var mErr *mysqldriver.MySQLError
	if !errors.As(err, &mErr) {
		return false
	}
	return mErr.Number == errDeadlockFound || mErr.Number == errLockWaitTimeout
}

// OpenScratch creates (if absent) a session-private TEMPORARY table on the
// transaction's connection; Clear empties it between batches, like the
// other dialects' scratch tables (spec.md §4.2/§4.9).
func (Dialect) OpenScratch(ctx context.Context, tx *sql.Tx) (dal.ScratchTable, error) {
	_, err := tx.ExecContext(ctx, `
		CREATE TEMPORARY TABLE IF NOT EXISTS key_mapping (
			position    INT PRIMARY KEY,
			object_type INT NOT NULL,
			id_hi       BIGINT NOT NULL,
			id_lo       BIGINT NOT NULL,
			version     BIGINT NULL,
			tag_version BIGINT NULL
		)`)
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
		VALUES (?, ?, ?, ?, ?, ?)`)
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
