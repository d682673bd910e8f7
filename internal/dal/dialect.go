// Package dal implements the relational DAL: all catalogue mutations and
// reads, transaction boundaries, and error translation. The dialect-specific
// pieces are isolated behind the Dialect interface, modeled on the
// per-backend Adapter pattern used by Storj's metabase package (see
// DESIGN.md).
package dal

import (
	"context"
	"database/sql"

	"github.com/tracmeta/metacore/internal/svcerr"
)

// Config carries the startup configuration the DAL needs to open a
// connection (spec.md §6 "Configuration"): connection string and pool size.
// No statement timeout is applied here. Dialect selection lives in
// internal/config and is threaded through separately; the DAL's retry cap
// is the RetryCap constant, not a config value.
type Config struct {
	ConnectionString string
	PoolSize         int
}

// ScratchTable is the per-transaction key-resolution scratch relation of
// spec.md §4.2/§4.9: populated with the caller's lookup tuples, joined
// against the catalogue, read back in the caller's order, then zeroed
// before the next batch in the same transaction. Implementations choose a
// dialect-appropriate mechanism (session-private temp table, or a shared
// table truncated between uses).
type ScratchTable interface {
	// Insert loads rows into the scratch table. Each row is
	// (position, object_type, id_hi, id_lo, version, tag_version); version
	// and tag_version are nil when not part of the lookup (e.g. object-key
	// resolution only uses position/type/id).
	Insert(ctx context.Context, rows []ScratchRow) error
	// Clear empties the scratch table so it can be reused within the same
	// transaction for a second batch.
	Clear(ctx context.Context) error
}

// ScratchRow is one input tuple loaded into the scratch table.
type ScratchRow struct {
	Position   int
	ObjectType int
	IDHi, IDLo int64
	Version    *int64 // nil => LATEST
	TagVersion *int64 // nil => LATEST, or not applicable
}

// Dialect abstracts the SQL-engine-specific pieces of the DAL: connection
// setup, error-code translation, the boolean column type, scratch-table
// lifecycle, and whether INSERT...RETURNING / generated keys are available
// (spec.md §4.3 "Dialect adapters").
type Dialect interface {
	// Name identifies the dialect for logging/tracing ("postgres", "mysql",
	// "sqlite").
	Name() string

	// Open establishes the pool. The driver is expected to already be
	// registered via the driver package's blank import in the adapter.
	Open(ctx context.Context, cfg Config) (*sql.DB, error)

	// TranslateError maps an engine-specific error (already known to be
	// non-nil) to the taxonomy of internal/svcerr. op is supplied by the
	// caller for message construction.
	TranslateError(op string, err error) *svcerr.Error

	// BooleanColumnType names the column type used for the tag_attr.v_bool
	// column in this dialect's DDL.
	BooleanColumnType() string

	// SupportsGeneratedKeys reports whether INSERT can return the generated
	// surrogate key directly (Postgres: RETURNING; others: a follow-up
	// query or LAST_INSERT_ID()).
	SupportsGeneratedKeys() bool

	// Placeholder renders the nth (1-based) bind parameter marker for this
	// dialect ("$1" for Postgres, "?" for MySQL/SQLite).
	Placeholder(n int) string

	// OpenScratch opens (creating if necessary) the transaction-scoped
	// scratch mapping table described by ScratchTable.
	OpenScratch(ctx context.Context, tx *sql.Tx) (ScratchTable, error)

	// IsSerializationFailure reports whether err is a deadlock or
	// serialization-failure SQLSTATE that should be retried internally
	// (spec.md §4.3 "Failure semantics").
	IsSerializationFailure(err error) bool
}
