package dal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/keys"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

// placeholders renders n comma-joined bind parameter markers for dialect,
// e.g. "$1, $2, $3" on Postgres or "?, ?, ?" on MySQL/SQLite — the VALUES
// list counterpart to the single-marker calls internal/keys and
// internal/dal/search.go already make against Dialect.Placeholder.
func placeholders(dialect Dialect, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = dialect.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

// insertReturningPK runs an INSERT and returns its generated surrogate key,
// gated on Dialect.SupportsGeneratedKeys (spec.md §4.3 "Dialect adapters"):
// Postgres appends RETURNING and scans the row it always returns; MySQL and
// sqlite fall back to LastInsertId, which pgx's database/sql driver does not
// implement.
func insertReturningPK(ctx context.Context, tx *sql.Tx, dialect Dialect, op, query, pkColumn string, args ...any) (int64, error) {
	if dialect.SupportsGeneratedKeys() {
		var pk int64
		if err := tx.QueryRowContext(ctx, query+" RETURNING "+pkColumn, args...).Scan(&pk); err != nil {
			return 0, dialect.TranslateError(op, err)
		}
		return pk, nil
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dialect.TranslateError(op, err)
	}
	pk, err := res.LastInsertId()
	if err != nil {
		return 0, svcerr.Wrap(svcerr.KindPermanentStorage, op, "reading generated key", err)
	}
	return pk, nil
}

// NewObjectRequest is one fully-prepared object to create: identity,
// initial version payload, and the initial tag's attribute set (already
// including controlled attributes — writesvc is responsible for injecting
// those before calling into the DAL; spec.md §4.5).
type NewObjectRequest struct {
	ID         wire.UUID
	Type       catalog.ObjectType
	Definition catalog.ObjectDefinition
	ObjectTime wire.Timestamp
	TagTime    wire.Timestamp
	Attrs      map[string]wire.Value
}

// SaveNewObjects creates len(reqs) brand-new objects (object_version=1,
// tag_version=1) in one transaction. A duplicate object_id within tenant is
// a DuplicateItem error that aborts the whole batch (spec.md §4.3
// "Batch operations are all-or-nothing").
func (db *DB) SaveNewObjects(ctx context.Context, tenant string, reqs []NewObjectRequest) ([]catalog.TagHeader, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	var out []catalog.TagHeader
	err := db.withTx(ctx, "dal.saveNewObjects", func(tx *sql.Tx) error {
		headers := make([]catalog.TagHeader, len(reqs))
		for i, r := range reqs {
			h, err := insertNewObject(ctx, tx, db.dialect, tenant, r)
			if err != nil {
				return err
			}
			headers[i] = h
		}
		out = headers
		return nil
	})
	return out, err
}

func insertNewObject(ctx context.Context, tx *sql.Tx, dialect Dialect, tenant string, r NewObjectRequest) (catalog.TagHeader, error) {
	hi, lo := wire.SplitUUIDColumns(r.ID)

	objectQuery := fmt.Sprintf(`
		INSERT INTO object (tenant_code, object_type, object_id_hi, object_id_lo, create_time)
		VALUES (%s)`, placeholders(dialect, 5))
	objectPK, err := insertReturningPK(ctx, tx, dialect, "dal.saveNewObjects", objectQuery, "object_pk",
		tenant, int(r.Type), hi, lo, r.ObjectTime.Format())
	if err != nil {
		return catalog.TagHeader{}, err
	}

	versionPK, err := insertVersionRow(ctx, tx, dialect, objectPK, 1, r.Definition, r.ObjectTime)
	if err != nil {
		return catalog.TagHeader{}, err
	}
	linkVersionQuery := fmt.Sprintf(`INSERT INTO latest_version (object_pk, version_pk) VALUES (%s)`, placeholders(dialect, 2))
	if _, err := tx.ExecContext(ctx, linkVersionQuery, objectPK, versionPK); err != nil {
		return catalog.TagHeader{}, dialect.TranslateError("dal.saveNewObjects", err)
	}

	tagPK, err := insertTagRow(ctx, tx, dialect, versionPK, 1, r.TagTime, r.Attrs)
	if err != nil {
		return catalog.TagHeader{}, err
	}
	linkTagQuery := fmt.Sprintf(`INSERT INTO latest_tag (version_pk, tag_pk) VALUES (%s)`, placeholders(dialect, 2))
	if _, err := tx.ExecContext(ctx, linkTagQuery, versionPK, tagPK); err != nil {
		return catalog.TagHeader{}, dialect.TranslateError("dal.saveNewObjects", err)
	}

	return catalog.TagHeader{
		Type: r.Type, ObjectID: r.ID,
		ObjectVersion: 1, ObjectTime: r.ObjectTime,
		TagVersion: 1, TagTime: r.TagTime,
	}, nil
}

func insertVersionRow(ctx context.Context, tx *sql.Tx, dialect Dialect, objectPK, version int64, def catalog.ObjectDefinition, objectTime wire.Timestamp) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO object_definition (object_pk, object_version, payload, object_time, object_time_offset)
		VALUES (%s)`, placeholders(dialect, 5))
	return insertReturningPK(ctx, tx, dialect, "dal.insertVersionRow", query, "version_pk",
		objectPK, version, def.Payload, objectTime.FormatUTC(), objectTime.OffsetSeconds)
}

func insertTagRow(ctx context.Context, tx *sql.Tx, dialect Dialect, versionPK, tagVersion int64, tagTime wire.Timestamp, attrs map[string]wire.Value) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO tag (version_pk, tag_version, tag_time, tag_time_offset) VALUES (%s)`, placeholders(dialect, 4))
	tagPK, err := insertReturningPK(ctx, tx, dialect, "dal.insertTagRow", query, "tag_pk",
		versionPK, tagVersion, tagTime.FormatUTC(), tagTime.OffsetSeconds)
	if err != nil {
		return 0, err
	}
	if err := writeAttrs(ctx, tx, dialect, tagPK, attrs); err != nil {
		return 0, dialect.TranslateError("dal.insertTagRow", err)
	}
	return tagPK, nil
}

// PreallocateObjectIDs reserves count object identities of objType within
// tenant, returning their generated IDs in allocation order, without
// creating any object/version/tag rows yet (spec.md §4.8
// "PREALLOCATE_ID").
func (db *DB) PreallocateObjectIDs(ctx context.Context, tenant string, objType catalog.ObjectType, count int) ([]wire.UUID, error) {
	if count <= 0 {
		return nil, svcerr.New(svcerr.KindInputValidation, "dal.preallocateObjectIds", "count must be positive")
	}
	ids := make([]wire.UUID, count)
	for i := range ids {
		ids[i] = wire.NewUUID()
	}

	err := db.withTx(ctx, "dal.preallocateObjectIds", func(tx *sql.Tx) error {
		dialect := db.dialect
		objectQuery := fmt.Sprintf(`
			INSERT INTO object (tenant_code, object_type, object_id_hi, object_id_lo, create_time)
			VALUES (%s)`, placeholders(dialect, 5))
		preallocQuery := fmt.Sprintf(`
			INSERT INTO object_preallocation (object_pk, tenant_code, object_type, claimed)
			VALUES (%s)`, placeholders(dialect, 4))

		for _, id := range ids {
			hi, lo := wire.SplitUUIDColumns(id)
			objectPK, err := insertReturningPK(ctx, tx, dialect, "dal.preallocateObjectIds", objectQuery, "object_pk",
				tenant, int(objType), hi, lo, "")
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, preallocQuery, objectPK, tenant, int(objType), false); err != nil {
				return dialect.TranslateError("dal.preallocateObjectIds", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SavePreallocatedObjects materializes the first version and tag of each
// object whose ID was returned by a prior PreallocateObjectIDs call. An ID
// with no matching preallocation row is a MissingItem error; one
// already claimed is a DuplicateItem error (spec.md §4.8
// "CREATE_PREALLOCATED_OBJECT").
func (db *DB) SavePreallocatedObjects(ctx context.Context, tenant string, reqs []NewObjectRequest) ([]catalog.TagHeader, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	var out []catalog.TagHeader
	err := db.withTx(ctx, "dal.savePreallocatedObjects", func(tx *sql.Tx) error {
		dialect := db.dialect
		headers := make([]catalog.TagHeader, len(reqs))
		for i, r := range reqs {
			hi, lo := wire.SplitUUIDColumns(r.ID)

			var objectPK int64
			var claimed bool
			selectQuery := fmt.Sprintf(`
				SELECT object_pk, claimed FROM object_preallocation
				WHERE tenant_code = %s AND object_type = %s AND object_pk = (
					SELECT object_pk FROM object WHERE tenant_code = %s AND object_id_hi = %s AND object_id_lo = %s
				)`, dialect.Placeholder(1), dialect.Placeholder(2), dialect.Placeholder(3), dialect.Placeholder(4), dialect.Placeholder(5))
			row := tx.QueryRowContext(ctx, selectQuery, tenant, int(r.Type), tenant, hi, lo)
			if err := row.Scan(&objectPK, &claimed); err != nil {
				if err == sql.ErrNoRows {
					return svcerr.New(svcerr.KindMissingItem, "dal.savePreallocatedObjects",
						fmt.Sprintf("object at position %d was not preallocated", i))
				}
				return dialect.TranslateError("dal.savePreallocatedObjects", err)
			}
			if claimed {
				return svcerr.New(svcerr.KindDuplicateItem, "dal.savePreallocatedObjects",
					fmt.Sprintf("object at position %d was already materialized", i))
			}

			claimQuery := fmt.Sprintf(`UPDATE object_preallocation SET claimed = %s WHERE object_pk = %s`,
				dialect.Placeholder(1), dialect.Placeholder(2))
			if _, err := tx.ExecContext(ctx, claimQuery, true, objectPK); err != nil {
				return dialect.TranslateError("dal.savePreallocatedObjects", err)
			}
			createTimeQuery := fmt.Sprintf(`UPDATE object SET create_time = %s WHERE object_pk = %s`,
				dialect.Placeholder(1), dialect.Placeholder(2))
			if _, err := tx.ExecContext(ctx, createTimeQuery, r.ObjectTime.Format(), objectPK); err != nil {
				return dialect.TranslateError("dal.savePreallocatedObjects", err)
			}

			versionPK, err := insertVersionRow(ctx, tx, dialect, objectPK, 1, r.Definition, r.ObjectTime)
			if err != nil {
				return err
			}
			linkVersionQuery := fmt.Sprintf(`INSERT INTO latest_version (object_pk, version_pk) VALUES (%s)`, placeholders(dialect, 2))
			if _, err := tx.ExecContext(ctx, linkVersionQuery, objectPK, versionPK); err != nil {
				return dialect.TranslateError("dal.savePreallocatedObjects", err)
			}
			tagPK, err := insertTagRow(ctx, tx, dialect, versionPK, 1, r.TagTime, r.Attrs)
			if err != nil {
				return err
			}
			linkTagQuery := fmt.Sprintf(`INSERT INTO latest_tag (version_pk, tag_pk) VALUES (%s)`, placeholders(dialect, 2))
			if _, err := tx.ExecContext(ctx, linkTagQuery, versionPK, tagPK); err != nil {
				return dialect.TranslateError("dal.savePreallocatedObjects", err)
			}

			headers[i] = catalog.TagHeader{
				Type: r.Type, ObjectID: r.ID,
				ObjectVersion: 1, ObjectTime: r.ObjectTime,
				TagVersion: 1, TagTime: r.TagTime,
			}
		}
		out = headers
		return nil
	})
	return out, err
}

// resolveObjectPKs is a small helper shared by versions.go/tags.go for
// resolving a batch of object identities to surrogate keys via the key
// mapper, surfaced here since both files need it but neither owns it.
func (db *DB) resolveObjectPKs(ctx context.Context, tx *sql.Tx, tenant string, lookups []keys.ObjectLookup) ([]keys.ResolvedKey, error) {
	mapper, err := db.newMapper(ctx, tx, tenant)
	if err != nil {
		return nil, err
	}
	return mapper.ResolveObjectKeys(ctx, lookups)
}
