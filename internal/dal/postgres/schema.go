package postgres

import (
	"context"
	"database/sql"
)

// Schema is the logical catalogue DDL rendered for PostgreSQL. Production
// deployment and migration are out of scope (spec.md §1 Non-goals); this
// exists so integration tests have a real schema to run the DAL operations
// against, the same role sqlite.Schema plays for the fast, container-free
// test path.
const Schema = `
CREATE TABLE IF NOT EXISTS object (
	object_pk     BIGSERIAL PRIMARY KEY,
	tenant_code   TEXT NOT NULL,
	object_type   INTEGER NOT NULL,
	object_id_hi  BIGINT NOT NULL,
	object_id_lo  BIGINT NOT NULL,
	create_time   TIMESTAMPTZ NOT NULL,
	UNIQUE (tenant_code, object_id_hi, object_id_lo)
);

CREATE TABLE IF NOT EXISTS object_definition (
	version_pk         BIGSERIAL PRIMARY KEY,
	object_pk          BIGINT NOT NULL REFERENCES object(object_pk),
	object_version     BIGINT NOT NULL,
	payload            BYTEA NOT NULL,
	object_time        TIMESTAMP NOT NULL,
	object_time_offset INTEGER NOT NULL DEFAULT 0,
	UNIQUE (object_pk, object_version)
);

CREATE TABLE IF NOT EXISTS latest_version (
	object_pk  BIGINT PRIMARY KEY REFERENCES object(object_pk),
	version_pk BIGINT NOT NULL REFERENCES object_definition(version_pk)
);

CREATE TABLE IF NOT EXISTS tag (
	tag_pk          BIGSERIAL PRIMARY KEY,
	version_pk      BIGINT NOT NULL REFERENCES object_definition(version_pk),
	tag_version     BIGINT NOT NULL,
	tag_time        TIMESTAMP NOT NULL,
	tag_time_offset INTEGER NOT NULL DEFAULT 0,
	UNIQUE (version_pk, tag_version)
);

CREATE TABLE IF NOT EXISTS latest_tag (
	version_pk BIGINT PRIMARY KEY REFERENCES object_definition(version_pk),
	tag_pk     BIGINT NOT NULL REFERENCES tag(tag_pk)
);

CREATE TABLE IF NOT EXISTS tag_attr (
	tag_pk      BIGINT NOT NULL REFERENCES tag(tag_pk),
	attr_name   TEXT NOT NULL,
	elem_index  INTEGER NOT NULL DEFAULT 0,
	is_array    BOOLEAN NOT NULL DEFAULT FALSE,
	attr_type   INTEGER NOT NULL,
	v_bool      BOOLEAN,
	v_int       BIGINT,
	v_float     DOUBLE PRECISION,
	v_decimal   TEXT,
	v_str       TEXT,
	v_date      TEXT,
	v_datetime  TIMESTAMPTZ,
	PRIMARY KEY (tag_pk, attr_name, elem_index)
);

CREATE TABLE IF NOT EXISTS object_preallocation (
	object_pk   BIGINT PRIMARY KEY REFERENCES object(object_pk),
	tenant_code TEXT NOT NULL,
	object_type INTEGER NOT NULL,
	claimed     BOOLEAN NOT NULL DEFAULT FALSE
);
`

// MustApplySchema executes Schema against db, for use by integration tests
// that need a ready catalogue against a real Postgres server.
func MustApplySchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
