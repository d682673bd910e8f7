package dal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/search"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

// Search evaluates params against the catalogue and returns matching tags
// ordered newest-object-time-first, ties broken by object ID (spec.md
// §4.7). Version/tag temporal scope (ALL_VERSIONS/ALL_TAGS, AS_OF) is
// resolved per the decisions recorded in DESIGN.md. The scope predicates can
// admit several (version, tag) rows per object when PriorVersions/PriorTags
// is set; a ROW_NUMBER partition over object_pk reduces that back down to
// exactly the row with the highest (object_version, tag_version) per object,
// as spec.md §4.7 requires.
func (db *DB) Search(ctx context.Context, tenant string, params catalog.SearchParameters) ([]catalog.SearchResult, error) {
	var out []catalog.SearchResult
	err := db.withTx(ctx, "dal.search", func(tx *sql.Tx) error {
		args := []any{tenant, int(params.ObjectType)}

		versionScope, versionArgs := versionScopeSQL(params, db.dialect.Placeholder, len(args))
		args = append(args, versionArgs...)
		tagScope, tagArgs := tagScopeSQL(params, db.dialect.Placeholder, len(args))
		args = append(args, tagArgs...)

		pred, err := search.Compile(params.Expression, db.dialect.Placeholder, len(args))
		if err != nil {
			return err
		}
		args = append(args, pred.Args...)

		query := fmt.Sprintf(`
			SELECT tag_pk, object_type, object_id_hi, object_id_lo,
			       object_version, object_time, object_time_offset, payload,
			       tag_version, tag_time, tag_time_offset
			FROM (
				SELECT t.tag_pk AS tag_pk, o.object_type AS object_type,
				       o.object_id_hi AS object_id_hi, o.object_id_lo AS object_id_lo,
				       od.object_version AS object_version, od.object_time AS object_time,
				       od.object_time_offset AS object_time_offset, od.payload AS payload,
				       t.tag_version AS tag_version, t.tag_time AS tag_time,
				       t.tag_time_offset AS tag_time_offset,
				       ROW_NUMBER() OVER (
				           PARTITION BY o.object_pk
				           ORDER BY od.object_version DESC, t.tag_version DESC
				       ) AS rn
				FROM tag t
				JOIN object_definition od ON od.version_pk = t.version_pk
				JOIN object o ON o.object_pk = od.object_pk
				WHERE o.tenant_code = %s AND o.object_type = %s
				  AND %s
				  AND %s
				  AND %s
			) ranked
			WHERE rn = 1
			ORDER BY object_time DESC, object_id_hi ASC, object_id_lo ASC`,
			db.dialect.Placeholder(1), db.dialect.Placeholder(2), versionScope, tagScope, pred.SQL)

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return db.dialect.TranslateError("dal.search", err)
		}
		defer func() { _ = rows.Close() }()

		var results []catalog.SearchResult
		for rows.Next() {
			var tagPK int64
			var objType int
			var idHi, idLo int64
			var objectVersion, tagVersion int64
			var objectTimeStr, tagTimeStr string
			var objectTimeOffset, tagTimeOffset int
			var payload []byte
			if err := rows.Scan(&tagPK, &objType, &idHi, &idLo, &objectVersion, &objectTimeStr, &objectTimeOffset,
				&payload, &tagVersion, &tagTimeStr, &tagTimeOffset); err != nil {
				return db.dialect.TranslateError("dal.search", err)
			}
			objTime, err := wire.ParseTimestampUTC(objectTimeStr, objectTimeOffset)
			if err != nil {
				return svcerr.Wrap(svcerr.KindDataCorruption, "dal.search", "stored object_time is not parseable", err)
			}
			tagTime, err := wire.ParseTimestampUTC(tagTimeStr, tagTimeOffset)
			if err != nil {
				return svcerr.Wrap(svcerr.KindDataCorruption, "dal.search", "stored tag_time is not parseable", err)
			}
			attrs, err := readAttrs(ctx, tx, db.dialect, tagPK)
			if err != nil {
				return svcerr.Wrap(svcerr.KindPermanentStorage, "dal.search", "reading tag attributes", err)
			}
			objID := wire.JoinUUIDColumns(idHi, idLo)
			results = append(results, catalog.SearchResult{Tag: catalog.Tag{
				Header: catalog.TagHeader{
					Type: catalog.ObjectType(objType), ObjectID: objID,
					ObjectVersion: objectVersion, ObjectTime: objTime,
					TagVersion: tagVersion, TagTime: tagTime,
				},
				Definition: catalog.ObjectDefinition{Type: catalog.ObjectType(objType), Payload: payload},
				Attrs:      attrs,
			}})
		}
		if err := rows.Err(); err != nil {
			return db.dialect.TranslateError("dal.search", err)
		}
		out = results
		return nil
	})
	return out, err
}

func versionScopeSQL(p catalog.SearchParameters, ph func(int) string, argOffset int) (string, []any) {
	switch {
	case !p.PriorVersions && p.AsOf == nil:
		return `od.version_pk = (SELECT lv.version_pk FROM latest_version lv WHERE lv.object_pk = od.object_pk)`, nil
	case !p.PriorVersions && p.AsOf != nil:
		return fmt.Sprintf(`od.version_pk = (
			SELECT od2.version_pk FROM object_definition od2
			WHERE od2.object_pk = od.object_pk AND od2.object_time <= %s
			ORDER BY od2.object_version DESC LIMIT 1)`, ph(argOffset+1)), []any{p.AsOf.FormatUTC()}
	case p.PriorVersions && p.AsOf != nil:
		return fmt.Sprintf(`od.object_time <= %s`, ph(argOffset+1)), []any{p.AsOf.FormatUTC()}
	default: // PriorVersions && AsOf == nil
		return `1=1`, nil
	}
}

func tagScopeSQL(p catalog.SearchParameters, ph func(int) string, argOffset int) (string, []any) {
	switch {
	case !p.PriorTags && p.AsOf == nil:
		return `t.tag_pk = (SELECT lt.tag_pk FROM latest_tag lt WHERE lt.version_pk = od.version_pk)`, nil
	case !p.PriorTags && p.AsOf != nil:
		return fmt.Sprintf(`t.tag_pk = (
			SELECT t2.tag_pk FROM tag t2
			WHERE t2.version_pk = od.version_pk AND t2.tag_time <= %s
			ORDER BY t2.tag_version DESC LIMIT 1)`, ph(argOffset+1)), []any{p.AsOf.FormatUTC()}
	case p.PriorTags && p.AsOf != nil:
		return fmt.Sprintf(`t.tag_time <= %s`, ph(argOffset+1)), []any{p.AsOf.FormatUTC()}
	default: // PriorTags && AsOf == nil
		return `1=1`, nil
	}
}
