package dal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/keys"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

// NewVersionRequest creates the next version of an existing object, with a
// fresh initial tag. PriorVersion must match the object's current latest
// version number, or the call fails with VersionConflict — the caller
// (writesvc) is expected to have read PriorVersion in the same logical
// operation that built Definition, per the optimistic-concurrency model of
// spec.md §5.
type NewVersionRequest struct {
	Type         catalog.ObjectType
	ID           wire.UUID
	PriorVersion int64
	Definition   catalog.ObjectDefinition
	ObjectTime   wire.Timestamp
	TagTime      wire.Timestamp
	Attrs        map[string]wire.Value
}

// SaveNewVersions appends a new version (and its initial tag) to each
// object named in reqs, within one transaction.
func (db *DB) SaveNewVersions(ctx context.Context, tenant string, reqs []NewVersionRequest) ([]catalog.TagHeader, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	var out []catalog.TagHeader
	err := db.withTx(ctx, "dal.saveNewVersions", func(tx *sql.Tx) error {
		dialect := db.dialect
		lookups := make([]keys.ObjectLookup, len(reqs))
		for i, r := range reqs {
			lookups[i] = keys.ObjectLookup{Type: r.Type, ID: r.ID}
		}
		resolved, err := db.resolveObjectPKs(ctx, tx, tenant, lookups)
		if err != nil {
			return err
		}

		headers := make([]catalog.TagHeader, len(reqs))
		for i, r := range reqs {
			objectPK := resolved[i].PK

			var currentVersion, currentVersionPK int64
			currentQuery := fmt.Sprintf(`
				SELECT od.object_version, lv.version_pk FROM latest_version lv
				JOIN object_definition od ON od.version_pk = lv.version_pk
				WHERE lv.object_pk = %s`, dialect.Placeholder(1))
			if err := tx.QueryRowContext(ctx, currentQuery, objectPK).Scan(&currentVersion, &currentVersionPK); err != nil {
				return dialect.TranslateError("dal.saveNewVersions", err)
			}
			if currentVersion != r.PriorVersion {
				return svcerr.New(svcerr.KindVersionConflict, "dal.saveNewVersions",
					fmt.Sprintf("object at position %d: expected prior version %d, current is %d", i, r.PriorVersion, currentVersion))
			}

			nextVersion := currentVersion + 1
			versionPK, err := insertVersionRow(ctx, tx, dialect, objectPK, nextVersion, r.Definition, r.ObjectTime)
			if err != nil {
				if svcerr.Of(err) == svcerr.KindDuplicateItem {
					return svcerr.New(svcerr.KindVersionConflict, "dal.saveNewVersions",
						fmt.Sprintf("object at position %d: lost the race to create version %d", i, nextVersion))
				}
				return err
			}

			// Conditioned on the version_pk already read above, so a
			// concurrent writer that advanced latest_version first leaves
			// this UPDATE matching zero rows instead of silently
			// clobbering the winner's marker (spec.md §4.3 "Concurrency
			// tie-breaks").
			advanceQuery := fmt.Sprintf(`
				UPDATE latest_version SET version_pk = %s
				WHERE object_pk = %s AND version_pk = %s`,
				dialect.Placeholder(1), dialect.Placeholder(2), dialect.Placeholder(3))
			res, err := tx.ExecContext(ctx, advanceQuery, versionPK, objectPK, currentVersionPK)
			if err != nil {
				return dialect.TranslateError("dal.saveNewVersions", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return svcerr.Wrap(svcerr.KindPermanentStorage, "dal.saveNewVersions", "reading rows affected", err)
			}
			if affected == 0 {
				return svcerr.New(svcerr.KindVersionConflict, "dal.saveNewVersions",
					fmt.Sprintf("object at position %d: concurrent writer advanced the latest version first", i))
			}

			tagPK, err := insertTagRow(ctx, tx, dialect, versionPK, 1, r.TagTime, r.Attrs)
			if err != nil {
				return err
			}
			linkTagQuery := fmt.Sprintf(`INSERT INTO latest_tag (version_pk, tag_pk) VALUES (%s)`, placeholders(dialect, 2))
			if _, err := tx.ExecContext(ctx, linkTagQuery, versionPK, tagPK); err != nil {
				return dialect.TranslateError("dal.saveNewVersions", err)
			}

			headers[i] = catalog.TagHeader{
				Type: r.Type, ObjectID: r.ID,
				ObjectVersion: nextVersion, ObjectTime: r.ObjectTime,
				TagVersion: 1, TagTime: r.TagTime,
			}
		}
		out = headers
		return nil
	})
	return out, err
}
