package sqlite

import (
	"context"
	"database/sql"
)

// Schema is the logical catalogue DDL rendered for sqlite. Production
// deployment and migration are out of scope (spec.md §1 Non-goals); this
// exists so unit and table-driven tests have a real schema to run the DAL
// operations against.
const Schema = `
CREATE TABLE IF NOT EXISTS object (
	object_pk     INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_code   TEXT NOT NULL,
	object_type   INTEGER NOT NULL,
	object_id_hi  INTEGER NOT NULL,
	object_id_lo  INTEGER NOT NULL,
	create_time   TEXT NOT NULL,
	UNIQUE (tenant_code, object_id_hi, object_id_lo)
);

CREATE TABLE IF NOT EXISTS object_definition (
	version_pk         INTEGER PRIMARY KEY AUTOINCREMENT,
	object_pk          INTEGER NOT NULL REFERENCES object(object_pk),
	object_version     INTEGER NOT NULL,
	payload            BLOB NOT NULL,
	object_time        TEXT NOT NULL,
	object_time_offset INTEGER NOT NULL DEFAULT 0,
	UNIQUE (object_pk, object_version)
);

CREATE TABLE IF NOT EXISTS latest_version (
	object_pk  INTEGER PRIMARY KEY REFERENCES object(object_pk),
	version_pk INTEGER NOT NULL REFERENCES object_definition(version_pk)
);

CREATE TABLE IF NOT EXISTS tag (
	tag_pk          INTEGER PRIMARY KEY AUTOINCREMENT,
	version_pk      INTEGER NOT NULL REFERENCES object_definition(version_pk),
	tag_version     INTEGER NOT NULL,
	tag_time        TEXT NOT NULL,
	tag_time_offset INTEGER NOT NULL DEFAULT 0,
	UNIQUE (version_pk, tag_version)
);

CREATE TABLE IF NOT EXISTS latest_tag (
	version_pk INTEGER PRIMARY KEY REFERENCES object_definition(version_pk),
	tag_pk     INTEGER NOT NULL REFERENCES tag(tag_pk)
);

CREATE TABLE IF NOT EXISTS tag_attr (
	tag_pk      INTEGER NOT NULL REFERENCES tag(tag_pk),
	attr_name   TEXT NOT NULL,
	elem_index  INTEGER NOT NULL DEFAULT 0,
	is_array    BOOLEAN NOT NULL DEFAULT 0,
	attr_type   INTEGER NOT NULL,
	v_bool      BOOLEAN,
	v_int       INTEGER,
	v_float     REAL,
	v_decimal   TEXT,
	v_str       TEXT,
	v_date      TEXT,
	v_datetime  TEXT,
	PRIMARY KEY (tag_pk, attr_name, elem_index)
);

CREATE TABLE IF NOT EXISTS object_preallocation (
	object_pk   INTEGER PRIMARY KEY REFERENCES object(object_pk),
	tenant_code TEXT NOT NULL,
	object_type INTEGER NOT NULL,
	claimed     BOOLEAN NOT NULL DEFAULT 0
);
`

// MustApplySchema executes Schema against db, for use by tests that need a
// ready catalogue. It panics on failure since it is only ever called from
// test setup, never from production code paths.
func MustApplySchema(ctx context.Context, db *sql.DB) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		panic(err)
	}
}
