// Package sqlite adapts internal/dal.Dialect to modernc.org/sqlite, the
// CGO-free driver also used directly by SimonWaldherr-tinySQL. It stands in
// for spec.md's portable/embedded engine class (H2) and is the default
// dialect for unit tests: no external process, fast to open and tear down.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/svcerr"
)

const driverName = "sqlite"

// Dialect implements dal.Dialect over modernc.org/sqlite.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Open(ctx context.Context, cfg dal.Config) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	// sqlite allows exactly one writer; a pool wider than one connection
	// just serializes at the driver instead of the application, masking
	// real contention behind spurious "database is locked" errors.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (Dialect) BooleanColumnType() string { return "BOOLEAN" }

func (Dialect) SupportsGeneratedKeys() bool { return false }

func (Dialect) Placeholder(int) string { return "?" }

func (d Dialect) TranslateError(op string, err error) *svcerr.Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return svcerr.Wrap(svcerr.KindDuplicateItem, op, "unique constraint violated", err)
	case d.IsSerializationFailure(err):
		return svcerr.Wrap(svcerr.KindTransientStorage, op, "database is locked", err)
	default:
		return svcerr.Wrap(svcerr.KindPermanentStorage, op, "storage operation failed", err)
	}
}

func (Dialect) IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// OpenScratch creates (if absent) a per-connection temp table for key
// resolution and returns a handle scoped to tx. sqlite's TEMP tables are
// connection-private, which is exactly the transaction-scratch-table
// semantics spec.md §4.2/§4.9 requires since each withTx attempt binds one
// connection for its lifetime.
func (Dialect) OpenScratch(ctx context.Context, tx *sql.Tx) (dal.ScratchTable, error) {
	_, err := tx.ExecContext(ctx, `
		CREATE TEMP TABLE IF NOT EXISTS key_mapping (
			position    INTEGER PRIMARY KEY,
			object_type INTEGER NOT NULL,
			id_hi       INTEGER NOT NULL,
			id_lo       INTEGER NOT NULL,
			version     INTEGER,
			tag_version INTEGER
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
