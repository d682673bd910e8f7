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

// NewTagRequest creates the next tag of an existing object version.
// PriorTagVersion must match that version's current latest tag number, or
// the call fails with VersionConflict (spec.md §4.5 "UPDATE_TAG").
type NewTagRequest struct {
	Type            catalog.ObjectType
	ID              wire.UUID
	Version         *int64 // nil selects the object's current latest version
	PriorTagVersion int64
	TagTime         wire.Timestamp
	Attrs           map[string]wire.Value
}

// SaveNewTags appends a new tag to each object version named in reqs,
// within one transaction.
func (db *DB) SaveNewTags(ctx context.Context, tenant string, reqs []NewTagRequest) ([]catalog.TagHeader, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	var out []catalog.TagHeader
	err := db.withTx(ctx, "dal.saveNewTags", func(tx *sql.Tx) error {
		dialect := db.dialect
		mapper, err := db.newMapper(ctx, tx, tenant)
		if err != nil {
			return err
		}
		lookups := make([]keys.VersionLookup, len(reqs))
		for i, r := range reqs {
			lookups[i] = keys.VersionLookup{Type: r.Type, ID: r.ID, Version: r.Version}
		}
		resolved, err := mapper.ResolveVersionKeys(ctx, lookups)
		if err != nil {
			return err
		}

		headers := make([]catalog.TagHeader, len(reqs))
		for i, r := range reqs {
			versionPK := resolved[i].PK

			var objectVersion int64
			var objectTimeStr string
			var objectTimeOffset int
			versionQuery := fmt.Sprintf(`
				SELECT object_version, object_time, object_time_offset FROM object_definition WHERE version_pk = %s`,
				dialect.Placeholder(1))
			if err := tx.QueryRowContext(ctx, versionQuery, versionPK).Scan(&objectVersion, &objectTimeStr, &objectTimeOffset); err != nil {
				return dialect.TranslateError("dal.saveNewTags", err)
			}

			var currentTagVersion, currentTagPK int64
			currentQuery := fmt.Sprintf(`
				SELECT t.tag_version, lt.tag_pk FROM latest_tag lt
				JOIN tag t ON t.tag_pk = lt.tag_pk
				WHERE lt.version_pk = %s`, dialect.Placeholder(1))
			if err := tx.QueryRowContext(ctx, currentQuery, versionPK).Scan(&currentTagVersion, &currentTagPK); err != nil {
				return dialect.TranslateError("dal.saveNewTags", err)
			}
			if currentTagVersion != r.PriorTagVersion {
				return svcerr.New(svcerr.KindVersionConflict, "dal.saveNewTags",
					fmt.Sprintf("object at position %d: expected prior tag version %d, current is %d", i, r.PriorTagVersion, currentTagVersion))
			}

			nextTagVersion := currentTagVersion + 1
			tagPK, err := insertTagRow(ctx, tx, dialect, versionPK, nextTagVersion, r.TagTime, r.Attrs)
			if err != nil {
				if svcerr.Of(err) == svcerr.KindDuplicateItem {
					return svcerr.New(svcerr.KindVersionConflict, "dal.saveNewTags",
						fmt.Sprintf("object at position %d: lost the race to create tag %d", i, nextTagVersion))
				}
				return err
			}

			// Conditioned on the tag_pk read above — see the analogous
			// guard in SaveNewVersions (spec.md §4.3 "Concurrency
			// tie-breaks").
			advanceQuery := fmt.Sprintf(`
				UPDATE latest_tag SET tag_pk = %s
				WHERE version_pk = %s AND tag_pk = %s`,
				dialect.Placeholder(1), dialect.Placeholder(2), dialect.Placeholder(3))
			res, err := tx.ExecContext(ctx, advanceQuery, tagPK, versionPK, currentTagPK)
			if err != nil {
				return dialect.TranslateError("dal.saveNewTags", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return svcerr.Wrap(svcerr.KindPermanentStorage, "dal.saveNewTags", "reading rows affected", err)
			}
			if affected == 0 {
				return svcerr.New(svcerr.KindVersionConflict, "dal.saveNewTags",
					fmt.Sprintf("object at position %d: concurrent writer advanced the latest tag first", i))
			}

			objTime, perr := wire.ParseTimestampUTC(objectTimeStr, objectTimeOffset)
			if perr != nil {
				return svcerr.Wrap(svcerr.KindDataCorruption, "dal.saveNewTags", "stored object_time is not parseable", perr)
			}

			headers[i] = catalog.TagHeader{
				Type: r.Type, ObjectID: r.ID,
				ObjectVersion: objectVersion, ObjectTime: objTime,
				TagVersion: nextTagVersion, TagTime: r.TagTime,
			}
		}
		out = headers
		return nil
	})
	return out, err
}

// LoadTags resolves each selector to a concrete tag, positionally aligned
// with the input (spec.md §4.6). Explicit and LATEST coordinates resolve in
// one round trip via the key mapper's scratch table; AS_OF coordinates take
// an individual query path per selector since temporal resolution depends
// on per-row comparisons the batched equi-join cannot express.
func (db *DB) LoadTags(ctx context.Context, tenant string, selectors []catalog.TagSelector) ([]catalog.Tag, error) {
	if len(selectors) == 0 {
		return nil, nil
	}
	var out []catalog.Tag
	err := db.withTx(ctx, "dal.loadTags", func(tx *sql.Tx) error {
		results := make([]catalog.Tag, len(selectors))

		var batchPositions []int
		var batchLookups []keys.TagLookup
		for i, sel := range selectors {
			if sel.Version.Kind == catalog.CoordAsOf || sel.Tag.Kind == catalog.CoordAsOf {
				continue
			}
			batchPositions = append(batchPositions, i)
			batchLookups = append(batchLookups, toTagLookup(sel))
		}

		if len(batchLookups) > 0 {
			mapper, err := db.newMapper(ctx, tx, tenant)
			if err != nil {
				return err
			}
			resolved, err := mapper.ResolveTagKeys(ctx, batchLookups)
			if err != nil {
				return err
			}
			for j, pos := range batchPositions {
				tag, err := fetchTagByPK(ctx, tx, db.dialect, resolved[j].PK, selectors[pos].Type, selectors[pos].ObjectID)
				if err != nil {
					return err
				}
				results[pos] = tag
			}
		}

		for i, sel := range selectors {
			if sel.Version.Kind != catalog.CoordAsOf && sel.Tag.Kind != catalog.CoordAsOf {
				continue
			}
			tag, err := loadTagAsOf(ctx, tx, db.dialect, tenant, sel)
			if err != nil {
				return err
			}
			results[i] = tag
		}

		out = results
		return nil
	})
	return out, err
}

func toTagLookup(sel catalog.TagSelector) keys.TagLookup {
	var version, tagVersion *int64
	if sel.Version.Kind == catalog.CoordExplicit {
		v := sel.Version.Explicit
		version = &v
	}
	if sel.Tag.Kind == catalog.CoordExplicit {
		v := sel.Tag.Explicit
		tagVersion = &v
	}
	return keys.TagLookup{Type: sel.Type, ID: sel.ObjectID, Version: version, TagVersion: tagVersion}
}

func fetchTagByPK(ctx context.Context, tx *sql.Tx, dialect Dialect, tagPK int64, objType catalog.ObjectType, objID wire.UUID) (catalog.Tag, error) {
	var objectVersion, tagVersion int64
	var objectTimeStr, tagTimeStr string
	var objectTimeOffset, tagTimeOffset int
	var payload []byte
	query := fmt.Sprintf(`
		SELECT od.object_version, od.object_time, od.object_time_offset, od.payload,
		       t.tag_version, t.tag_time, t.tag_time_offset
		FROM tag t
		JOIN object_definition od ON od.version_pk = t.version_pk
		WHERE t.tag_pk = %s`, dialect.Placeholder(1))
	row := tx.QueryRowContext(ctx, query, tagPK)
	if err := row.Scan(&objectVersion, &objectTimeStr, &objectTimeOffset, &payload, &tagVersion, &tagTimeStr, &tagTimeOffset); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Tag{}, svcerr.New(svcerr.KindMissingItem, "dal.fetchTagByPK", "resolved tag no longer exists")
		}
		return catalog.Tag{}, svcerr.Wrap(svcerr.KindPermanentStorage, "dal.fetchTagByPK", "fetching tag body", err)
	}

	objectTime, err := wire.ParseTimestampUTC(objectTimeStr, objectTimeOffset)
	if err != nil {
		return catalog.Tag{}, svcerr.Wrap(svcerr.KindDataCorruption, "dal.fetchTagByPK", "stored object_time is not parseable", err)
	}
	tagTime, err := wire.ParseTimestampUTC(tagTimeStr, tagTimeOffset)
	if err != nil {
		return catalog.Tag{}, svcerr.Wrap(svcerr.KindDataCorruption, "dal.fetchTagByPK", "stored tag_time is not parseable", err)
	}
	attrs, err := readAttrs(ctx, tx, dialect, tagPK)
	if err != nil {
		return catalog.Tag{}, svcerr.Wrap(svcerr.KindPermanentStorage, "dal.fetchTagByPK", "reading tag attributes", err)
	}

	return catalog.Tag{
		Header: catalog.TagHeader{
			Type: objType, ObjectID: objID,
			ObjectVersion: objectVersion, ObjectTime: objectTime,
			TagVersion: tagVersion, TagTime: tagTime,
		},
		Definition: catalog.ObjectDefinition{Type: objType, Payload: payload},
		Attrs:      attrs,
	}, nil
}

// loadTagAsOf resolves a single selector with an AS_OF coordinate on the
// version and/or tag axis: the latest version/tag whose timestamp is at or
// before the requested instant (spec.md §4.6, resolved Open Question:
// AS_OF applies on both axes, see DESIGN.md). Comparisons run against the
// normalized-UTC storage column (FormatUTC), not the offset-preserving wire
// form, so the comparison is chronological regardless of the original
// offset either side was recorded in.
func loadTagAsOf(ctx context.Context, tx *sql.Tx, dialect Dialect, tenant string, sel catalog.TagSelector) (catalog.Tag, error) {
	hi, lo := wire.SplitUUIDColumns(sel.ObjectID)

	var objectPK int64
	objectQuery := fmt.Sprintf(`
		SELECT object_pk FROM object WHERE tenant_code = %s AND object_type = %s AND object_id_hi = %s AND object_id_lo = %s`,
		dialect.Placeholder(1), dialect.Placeholder(2), dialect.Placeholder(3), dialect.Placeholder(4))
	if err := tx.QueryRowContext(ctx, objectQuery, tenant, int(sel.Type), hi, lo).Scan(&objectPK); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Tag{}, svcerr.New(svcerr.KindMissingItem, "dal.loadTagAsOf", "object was not found")
		}
		return catalog.Tag{}, dialect.TranslateError("dal.loadTagAsOf", err)
	}

	var versionPK int64
	switch sel.Version.Kind {
	case catalog.CoordExplicit:
		explicitVersionQuery := fmt.Sprintf(`
			SELECT version_pk FROM object_definition WHERE object_pk = %s AND object_version = %s`,
			dialect.Placeholder(1), dialect.Placeholder(2))
		if err := tx.QueryRowContext(ctx, explicitVersionQuery, objectPK, sel.Version.Explicit).Scan(&versionPK); err != nil {
			if err == sql.ErrNoRows {
				return catalog.Tag{}, svcerr.New(svcerr.KindMissingItem, "dal.loadTagAsOf", "object version was not found")
			}
			return catalog.Tag{}, dialect.TranslateError("dal.loadTagAsOf", err)
		}
	case catalog.CoordAsOf:
		asOfVersionQuery := fmt.Sprintf(`
			SELECT version_pk FROM object_definition
			WHERE object_pk = %s AND object_time <= %s
			ORDER BY object_version DESC LIMIT 1`,
			dialect.Placeholder(1), dialect.Placeholder(2))
		if err := tx.QueryRowContext(ctx, asOfVersionQuery, objectPK, sel.Version.AsOf.FormatUTC()).Scan(&versionPK); err != nil {
			if err == sql.ErrNoRows {
				return catalog.Tag{}, svcerr.New(svcerr.KindMissingItem, "dal.loadTagAsOf", "no object version exists at or before the requested instant")
			}
			return catalog.Tag{}, dialect.TranslateError("dal.loadTagAsOf", err)
		}
	default: // LATEST
		latestVersionQuery := fmt.Sprintf(`SELECT version_pk FROM latest_version WHERE object_pk = %s`, dialect.Placeholder(1))
		if err := tx.QueryRowContext(ctx, latestVersionQuery, objectPK).Scan(&versionPK); err != nil {
			return catalog.Tag{}, dialect.TranslateError("dal.loadTagAsOf", err)
		}
	}

	var tagPK int64
	switch sel.Tag.Kind {
	case catalog.CoordExplicit:
		explicitTagQuery := fmt.Sprintf(`
			SELECT tag_pk FROM tag WHERE version_pk = %s AND tag_version = %s`,
			dialect.Placeholder(1), dialect.Placeholder(2))
		if err := tx.QueryRowContext(ctx, explicitTagQuery, versionPK, sel.Tag.Explicit).Scan(&tagPK); err != nil {
			if err == sql.ErrNoRows {
				return catalog.Tag{}, svcerr.New(svcerr.KindMissingItem, "dal.loadTagAsOf", "tag version was not found")
			}
			return catalog.Tag{}, dialect.TranslateError("dal.loadTagAsOf", err)
		}
	case catalog.CoordAsOf:
		asOfTagQuery := fmt.Sprintf(`
			SELECT tag_pk FROM tag
			WHERE version_pk = %s AND tag_time <= %s
			ORDER BY tag_version DESC LIMIT 1`,
			dialect.Placeholder(1), dialect.Placeholder(2))
		if err := tx.QueryRowContext(ctx, asOfTagQuery, versionPK, sel.Tag.AsOf.FormatUTC()).Scan(&tagPK); err != nil {
			if err == sql.ErrNoRows {
				return catalog.Tag{}, svcerr.New(svcerr.KindMissingItem, "dal.loadTagAsOf", "no tag exists at or before the requested instant")
			}
			return catalog.Tag{}, dialect.TranslateError("dal.loadTagAsOf", err)
		}
	default: // LATEST
		latestTagQuery := fmt.Sprintf(`SELECT tag_pk FROM latest_tag WHERE version_pk = %s`, dialect.Placeholder(1))
		if err := tx.QueryRowContext(ctx, latestTagQuery, versionPK).Scan(&tagPK); err != nil {
			return catalog.Tag{}, dialect.TranslateError("dal.loadTagAsOf", err)
		}
	}

	return fetchTagByPK(ctx, tx, dialect, tagPK, sel.Type, sel.ObjectID)
}
