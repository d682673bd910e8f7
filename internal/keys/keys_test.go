package keys

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

// testSchema is a minimal stand-in for internal/dal/sqlite's Schema: just
// enough of the catalogue tables to exercise the mapper's joins. Kept local
// rather than imported from internal/dal/sqlite, which itself imports
// internal/dal, which imports this package — importing it here would be a
// test-induced cycle.
const testSchema = `
CREATE TABLE object (
	object_pk    INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_code  TEXT NOT NULL,
	object_type  INTEGER NOT NULL,
	object_id_hi INTEGER NOT NULL,
	object_id_lo INTEGER NOT NULL,
	UNIQUE (tenant_code, object_id_hi, object_id_lo)
);
CREATE TABLE object_definition (
	version_pk     INTEGER PRIMARY KEY AUTOINCREMENT,
	object_pk      INTEGER NOT NULL,
	object_version INTEGER NOT NULL,
	UNIQUE (object_pk, object_version)
);
CREATE TABLE latest_version (
	object_pk  INTEGER PRIMARY KEY,
	version_pk INTEGER NOT NULL
);
CREATE TABLE tag (
	tag_pk      INTEGER PRIMARY KEY AUTOINCREMENT,
	version_pk  INTEGER NOT NULL,
	tag_version INTEGER NOT NULL,
	UNIQUE (version_pk, tag_version)
);
CREATE TABLE latest_tag (
	version_pk INTEGER PRIMARY KEY,
	tag_pk     INTEGER NOT NULL
);
`

type testScratchTable struct{ tx *sql.Tx }

func (s *testScratchTable) Clear(ctx context.Context) error {
	_, err := s.tx.ExecContext(ctx, "DELETE FROM key_mapping")
	return err
}

func (s *testScratchTable) Insert(ctx context.Context, rows []ScratchRow) error {
	stmt, err := s.tx.PrepareContext(ctx,
		"INSERT INTO key_mapping (position, object_type, id_hi, id_lo, version, tag_version) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Position, r.ObjectType, r.IDHi, r.IDLo, r.Version, r.TagVersion); err != nil {
			return err
		}
	}
	return nil
}

func newTestMapper(t *testing.T) (*Mapper, *sql.Tx, func()) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:keys_test_"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, testSchema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TEMP TABLE key_mapping (
		position INTEGER, object_type INTEGER, id_hi INTEGER, id_lo INTEGER, version INTEGER, tag_version INTEGER)`); err != nil {
		t.Fatalf("creating scratch table: %v", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("beginning tx: %v", err)
	}
	m := &Mapper{Tx: tx, Tenant: "tenant-a", Scratch: &testScratchTable{tx: tx}}
	return m, tx, func() {
		_ = tx.Rollback()
		_ = db.Close()
	}
}

func seedObject(t *testing.T, tx *sql.Tx, tenant string, objType catalog.ObjectType, id wire.UUID) (objectPK, versionPK, tagPK int64) {
	t.Helper()
	hi, lo := wire.SplitUUIDColumns(id)
	res, err := tx.Exec("INSERT INTO object (tenant_code, object_type, object_id_hi, object_id_lo) VALUES (?, ?, ?, ?)",
		tenant, int(objType), hi, lo)
	if err != nil {
		t.Fatalf("seeding object: %v", err)
	}
	objectPK, _ = res.LastInsertId()

	res, err = tx.Exec("INSERT INTO object_definition (object_pk, object_version) VALUES (?, 1)", objectPK)
	if err != nil {
		t.Fatalf("seeding object_definition: %v", err)
	}
	versionPK, _ = res.LastInsertId()
	if _, err := tx.Exec("INSERT INTO latest_version (object_pk, version_pk) VALUES (?, ?)", objectPK, versionPK); err != nil {
		t.Fatalf("seeding latest_version: %v", err)
	}

	res, err = tx.Exec("INSERT INTO tag (version_pk, tag_version) VALUES (?, 1)", versionPK)
	if err != nil {
		t.Fatalf("seeding tag: %v", err)
	}
	tagPK, _ = res.LastInsertId()
	if _, err := tx.Exec("INSERT INTO latest_tag (version_pk, tag_pk) VALUES (?, ?)", versionPK, tagPK); err != nil {
		t.Fatalf("seeding latest_tag: %v", err)
	}
	return objectPK, versionPK, tagPK
}

func TestResolveObjectKeysOrderingAndType(t *testing.T) {
	m, tx, cleanup := newTestMapper(t)
	defer cleanup()

	idA, idB := wire.NewUUID(), wire.NewUUID()
	pkA, _, _ := seedObject(t, tx, m.Tenant, catalog.TypeData, idA)
	pkB, _, _ := seedObject(t, tx, m.Tenant, catalog.TypeModel, idB)

	got, err := m.ResolveObjectKeys(context.Background(), []ObjectLookup{
		{Type: catalog.TypeData, ID: idA},
		{Type: catalog.TypeModel, ID: idB},
	})
	if err != nil {
		t.Fatalf("ResolveObjectKeys: %v", err)
	}
	if got[0].PK != pkA || got[1].PK != pkB {
		t.Fatalf("unexpected resolution order: %+v", got)
	}
}

func TestResolveObjectKeysMissingAbortsBatch(t *testing.T) {
	m, tx, cleanup := newTestMapper(t)
	defer cleanup()

	idA := wire.NewUUID()
	seedObject(t, tx, m.Tenant, catalog.TypeData, idA)

	_, err := m.ResolveObjectKeys(context.Background(), []ObjectLookup{
		{Type: catalog.TypeData, ID: idA},
		{Type: catalog.TypeData, ID: wire.NewUUID()}, // never seeded
	})
	if svcerr.Of(err) != svcerr.KindMissingItem {
		t.Fatalf("expected MissingItem, got %v", err)
	}
}

func TestResolveObjectKeysWrongType(t *testing.T) {
	m, tx, cleanup := newTestMapper(t)
	defer cleanup()

	id := wire.NewUUID()
	seedObject(t, tx, m.Tenant, catalog.TypeData, id)

	_, err := m.ResolveObjectKeys(context.Background(), []ObjectLookup{
		{Type: catalog.TypeModel, ID: id}, // seeded as TypeData
	})
	if svcerr.Of(err) != svcerr.KindWrongItemType {
		t.Fatalf("expected WrongItemType, got %v", err)
	}
}

func TestResolveVersionKeysLatest(t *testing.T) {
	m, tx, cleanup := newTestMapper(t)
	defer cleanup()

	id := wire.NewUUID()
	_, versionPK, _ := seedObject(t, tx, m.Tenant, catalog.TypeFlow, id)

	got, err := m.ResolveVersionKeys(context.Background(), []VersionLookup{
		{Type: catalog.TypeFlow, ID: id}, // Version nil => LATEST
	})
	if err != nil {
		t.Fatalf("ResolveVersionKeys: %v", err)
	}
	if got[0].PK != versionPK {
		t.Fatalf("expected version_pk %d, got %d", versionPK, got[0].PK)
	}
}

func TestResolveTagKeysLatest(t *testing.T) {
	m, tx, cleanup := newTestMapper(t)
	defer cleanup()

	id := wire.NewUUID()
	_, _, tagPK := seedObject(t, tx, m.Tenant, catalog.TypeJob, id)

	got, err := m.ResolveTagKeys(context.Background(), []TagLookup{
		{Type: catalog.TypeJob, ID: id},
	})
	if err != nil {
		t.Fatalf("ResolveTagKeys: %v", err)
	}
	if got[0].PK != tagPK {
		t.Fatalf("expected tag_pk %d, got %d", tagPK, got[0].PK)
	}
}
