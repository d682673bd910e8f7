package mysql

import (
	"context"
	"database/sql"
)

// Schema is the logical catalogue DDL rendered for MySQL/MariaDB and
// MySQL-protocol targets such as Dolt (§4.3). Production deployment and
// migration are out of scope (spec.md §1 Non-goals); this exists so
// integration tests have a real schema to run the DAL operations against.
const Schema = `
CREATE TABLE IF NOT EXISTS object (
	object_pk     BIGINT AUTO_INCREMENT PRIMARY KEY,
	tenant_code   VARCHAR(255) NOT NULL,
	object_type   INT NOT NULL,
	object_id_hi  BIGINT NOT NULL,
	object_id_lo  BIGINT NOT NULL,
	create_time   DATETIME(6) NOT NULL,
	UNIQUE KEY uq_object_tenant_id (tenant_code, object_id_hi, object_id_lo)
);

CREATE TABLE IF NOT EXISTS object_definition (
	version_pk      BIGINT AUTO_INCREMENT PRIMARY KEY,
	object_pk       BIGINT NOT NULL,
	object_version  BIGINT NOT NULL,
	payload         LONGBLOB NOT NULL,
	object_time     DATETIME(6) NOT NULL,
	object_time_offset INT NOT NULL DEFAULT 0,
	UNIQUE KEY uq_version (object_pk, object_version),
	FOREIGN KEY (object_pk) REFERENCES object(object_pk)
);

CREATE TABLE IF NOT EXISTS latest_version (
	object_pk  BIGINT PRIMARY KEY,
	version_pk BIGINT NOT NULL,
	FOREIGN KEY (object_pk) REFERENCES object(object_pk),
	FOREIGN KEY (version_pk) REFERENCES object_definition(version_pk)
);

CREATE TABLE IF NOT EXISTS tag (
	tag_pk       BIGINT AUTO_INCREMENT PRIMARY KEY,
	version_pk   BIGINT NOT NULL,
	tag_version  BIGINT NOT NULL,
	tag_time     DATETIME(6) NOT NULL,
	tag_time_offset INT NOT NULL DEFAULT 0,
	UNIQUE KEY uq_tag (version_pk, tag_version),
	FOREIGN KEY (version_pk) REFERENCES object_definition(version_pk)
);

CREATE TABLE IF NOT EXISTS latest_tag (
	version_pk BIGINT PRIMARY KEY,
	tag_pk     BIGINT NOT NULL,
	FOREIGN KEY (version_pk) REFERENCES object_definition(version_pk),
	FOREIGN KEY (tag_pk) REFERENCES tag(tag_pk)
);

CREATE TABLE IF NOT EXISTS tag_attr (
	tag_pk      BIGINT NOT NULL,
	attr_name   VARCHAR(255) NOT NULL,
	elem_index  INT NOT NULL DEFAULT 0,
	is_array    BOOLEAN NOT NULL DEFAULT FALSE,
	attr_type   INT NOT NULL,
	v_bool      BOOLEAN,
	v_int       BIGINT,
	v_float     DOUBLE,
	v_decimal   VARCHAR(255),
	v_str       TEXT,
	v_date      VARCHAR(32),
	v_datetime  DATETIME(6),
	PRIMARY KEY (tag_pk, attr_name, elem_index),
	FOREIGN KEY (tag_pk) REFERENCES tag(tag_pk)
);

CREATE TABLE IF NOT EXISTS object_preallocation (
	object_pk   BIGINT PRIMARY KEY,
	tenant_code VARCHAR(255) NOT NULL,
	object_type INT NOT NULL,
	claimed     BOOLEAN NOT NULL DEFAULT FALSE,
	FOREIGN KEY (object_pk) REFERENCES object(object_pk)
);
`

// MustApplySchema executes Schema against db, for use by integration tests
// that need a ready catalogue against a real MySQL-protocol server.
func MustApplySchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
