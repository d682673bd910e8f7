// Package keys implements the key mapper: resolving batches of
// (tenant_code, object_type, object_id, [version], [tag_version]) tuples to
// dense integer surrogate keys inside one transaction, in a single round
// trip per batch via a per-transaction scratch table (spec.md §4.2, §9).
package keys

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

const op = "keys.Resolve"

// ScratchTable is the subset of dal.ScratchTable the mapper needs, declared
// locally to avoid an import cycle between internal/dal and internal/keys
// (the DAL owns transaction lifecycle and calls into this package, not the
// reverse).
type ScratchTable interface {
	Insert(ctx context.Context, rows []ScratchRow) error
	Clear(ctx context.Context) error
}

// ScratchRow mirrors dal.ScratchRow; see that type for field semantics.
type ScratchRow struct {
	Position   int
	ObjectType int
	IDHi, IDLo int64
	Version    *int64
	TagVersion *int64
}

// ObjectLookup is one input tuple to ResolveObjectKeys.
type ObjectLookup struct {
	Type catalog.ObjectType
	ID   wire.UUID
}

// VersionLookup is one input tuple to ResolveVersionKeys. Version is nil to
// request LATEST.
type VersionLookup struct {
	Type    catalog.ObjectType
	ID      wire.UUID
	Version *int64
}

// TagLookup is one input tuple to ResolveTagKeys. Version/TagVersion are nil
// to request LATEST on that axis.
type TagLookup struct {
	Type       catalog.ObjectType
	ID         wire.UUID
	Version    *int64
	TagVersion *int64
}

// ResolvedKey is one output slot, positionally aligned with the caller's
// input slice (spec.md §4.2 "Ordering rule").
type ResolvedKey struct {
	ObjectType catalog.ObjectType
	PK         int64
}

// Mapper resolves lookup batches against the catalogue tables joined
// through Tx's scratch table, within Tenant's namespace. Placeholder
// renders the dialect's nth bind-parameter marker, so the same join SQL
// here is reusable across Postgres/MySQL/SQLite callers (internal/dal
// constructs one Mapper per transaction, supplying its own Dialect's
// Placeholder).
type Mapper struct {
	Tx          *sql.Tx
	Tenant      string
	Scratch     ScratchTable
	Placeholder func(n int) string
}

func (m *Mapper) ph(n int) string {
	if m.Placeholder != nil {
		return m.Placeholder(n)
	}
	return "?"
}

// ResolveObjectKeys resolves object identities to object_pk. Any position
// that does not join is a MissingItem error for the whole batch (spec.md
// §4.2 "Ordering rule": "aborts the batch").
func (m *Mapper) ResolveObjectKeys(ctx context.Context, lookups []ObjectLookup) ([]ResolvedKey, error) {
	if len(lookups) == 0 {
		return nil, nil
	}
	if err := m.Scratch.Clear(ctx); err != nil {
		return nil, svcerr.Wrap(svcerr.KindInternal, op, "failed to clear scratch table", err)
	}

	rows := make([]ScratchRow, len(lookups))
	for i, l := range lookups {
		hi, lo := wire.SplitUUIDColumns(l.ID)
		rows[i] = ScratchRow{Position: i, ObjectType: int(l.Type), IDHi: hi, IDLo: lo}
	}
	if err := m.Scratch.Insert(ctx, rows); err != nil {
		return nil, svcerr.Wrap(svcerr.KindInternal, op, "failed to populate scratch table", err)
	}

	query := fmt.Sprintf(`
		SELECT km.position, o.object_type, o.object_pk
		FROM key_mapping km
		JOIN object o
		  ON o.tenant_code = %s
		 AND o.object_id_hi = km.id_hi
		 AND o.object_id_lo = km.id_lo
		ORDER BY km.position`, m.ph(1))

	return m.runKeyQuery(ctx, query, []any{m.Tenant}, len(lookups), func(i int) catalog.ObjectType {
		return lookups[i].Type
	})
}

// ResolveVersionKeys resolves (type, id, version|LATEST) to version_pk,
// joining through latest_version when Version is nil.
func (m *Mapper) ResolveVersionKeys(ctx context.Context, lookups []VersionLookup) ([]ResolvedKey, error) {
	if len(lookups) == 0 {
		return nil, nil
	}
	if err := m.Scratch.Clear(ctx); err != nil {
		return nil, svcerr.Wrap(svcerr.KindInternal, op, "failed to clear scratch table", err)
	}

	rows := make([]ScratchRow, len(lookups))
	for i, l := range lookups {
		hi, lo := wire.SplitUUIDColumns(l.ID)
		rows[i] = ScratchRow{Position: i, ObjectType: int(l.Type), IDHi: hi, IDLo: lo, Version: l.Version}
	}
	if err := m.Scratch.Insert(ctx, rows); err != nil {
		return nil, svcerr.Wrap(svcerr.KindInternal, op, "failed to populate scratch table", err)
	}

	query := fmt.Sprintf(`
		SELECT km.position, o.object_type, od.version_pk
		FROM key_mapping km
		JOIN object o
		  ON o.tenant_code = %s
		 AND o.object_id_hi = km.id_hi AND o.object_id_lo = km.id_lo
		JOIN object_definition od
		  ON od.object_pk = o.object_pk
		 AND (
		       (km.version IS NOT NULL AND od.object_version = km.version)
		    OR (km.version IS NULL AND od.version_pk = (
		          SELECT lv.version_pk FROM latest_version lv WHERE lv.object_pk = o.object_pk))
		     )
		ORDER BY km.position`, m.ph(1))

	return m.runKeyQuery(ctx, query, []any{m.Tenant}, len(lookups), func(i int) catalog.ObjectType {
		return lookups[i].Type
	})
}

// ResolveTagKeys resolves (type, id, version|LATEST, tag_version|LATEST) to
// tag_pk, joining through latest_tag when TagVersion is nil (and
// latest_version when Version is nil).
func (m *Mapper) ResolveTagKeys(ctx context.Context, lookups []TagLookup) ([]ResolvedKey, error) {
	if len(lookups) == 0 {
		return nil, nil
	}
	if err := m.Scratch.Clear(ctx); err != nil {
		return nil, svcerr.Wrap(svcerr.KindInternal, op, "failed to clear scratch table", err)
	}

	rows := make([]ScratchRow, len(lookups))
	for i, l := range lookups {
		hi, lo := wire.SplitUUIDColumns(l.ID)
		rows[i] = ScratchRow{Position: i, ObjectType: int(l.Type), IDHi: hi, IDLo: lo, Version: l.Version, TagVersion: l.TagVersion}
	}
	if err := m.Scratch.Insert(ctx, rows); err != nil {
		return nil, svcerr.Wrap(svcerr.KindInternal, op, "failed to populate scratch table", err)
	}

	query := fmt.Sprintf(`
		SELECT km.position, o.object_type, t.tag_pk
		FROM key_mapping km
		JOIN object o
		  ON o.tenant_code = %s
		 AND o.object_id_hi = km.id_hi AND o.object_id_lo = km.id_lo
		JOIN object_definition od
		  ON od.object_pk = o.object_pk
		 AND (
		       (km.version IS NOT NULL AND od.object_version = km.version)
		    OR (km.version IS NULL AND od.version_pk = (
		          SELECT lv.version_pk FROM latest_version lv WHERE lv.object_pk = o.object_pk))
		     )
		JOIN tag t
		  ON t.version_pk = od.version_pk
		 AND (
		       (km.tag_version IS NOT NULL AND t.tag_version = km.tag_version)
		    OR (km.tag_version IS NULL AND t.tag_pk = (
		          SELECT lt.tag_pk FROM latest_tag lt WHERE lt.version_pk = od.version_pk))
		     )
		ORDER BY km.position`, m.ph(1))

	return m.runKeyQuery(ctx, query, []any{m.Tenant}, len(lookups), func(i int) catalog.ObjectType {
		return lookups[i].Type
	})
}

func (m *Mapper) runKeyQuery(ctx context.Context, query string, args []any, n int, wantType func(i int) catalog.ObjectType) ([]ResolvedKey, error) {
	rs, err := m.Tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, svcerr.Wrap(svcerr.KindPermanentStorage, op, "key resolution query failed", err)
	}
	defer func() { _ = rs.Close() }()

	found := make(map[int]ResolvedKey, n)
	for rs.Next() {
		var position int
		var objType int
		var pk int64
		if err := rs.Scan(&position, &objType, &pk); err != nil {
			return nil, svcerr.Wrap(svcerr.KindPermanentStorage, op, "scanning key row failed", err)
		}
		found[position] = ResolvedKey{ObjectType: catalog.ObjectType(objType), PK: pk}
	}
	if err := rs.Err(); err != nil {
		return nil, svcerr.Wrap(svcerr.KindPermanentStorage, op, "iterating key rows failed", err)
	}

	out := make([]ResolvedKey, n)
	for i := 0; i < n; i++ {
		rk, ok := found[i]
		if !ok {
			return nil, svcerr.New(svcerr.KindMissingItem, op, fmt.Sprintf("item at position %d was not found", i))
		}
		want := wantType(i)
		if rk.ObjectType != want {
			return nil, svcerr.New(svcerr.KindWrongItemType, op,
				fmt.Sprintf("item at position %d is type %s, not %s", i, rk.ObjectType, want))
		}
		out[i] = rk
	}
	return out, nil
}
