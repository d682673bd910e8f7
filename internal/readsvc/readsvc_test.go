package readsvc_test

import (
	"context"
	"testing"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/dal/sqlite"
	"github.com/tracmeta/metacore/internal/readsvc"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

func newTestDB(t *testing.T, dsn string) *dal.DB {
	t.Helper()
	ctx := context.Background()
	d := sqlite.Dialect{}
	raw, err := d.Open(ctx, dal.Config{ConnectionString: dsn})
	if err != nil {
		t.Fatalf("opening raw sqlite handle: %v", err)
	}
	t.Cleanup(func() { _ = raw.Close() })
	sqlite.MustApplySchema(ctx, raw)

	db, err := dal.Open(ctx, d, dal.Config{ConnectionString: dsn}, nil)
	if err != nil {
		t.Fatalf("dal.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestReadObjectResolvesLatest(t *testing.T) {
	db := newTestDB(t, "file:readsvc_read?mode=memory&cache=shared")
	id := wire.NewUUID()
	now := wire.Now()
	_, err := db.SaveNewObjects(context.Background(), "tenant-a", []dal.NewObjectRequest{{
		ID:         id,
		Type:       catalog.TypeData,
		Definition: catalog.ObjectDefinition{Type: catalog.TypeData, Payload: []byte(`{}`)},
		ObjectTime: now, TagTime: now,
		Attrs: map[string]wire.Value{"region": wire.NewString("EU")},
	}})
	if err != nil {
		t.Fatalf("seeding object: %v", err)
	}

	svc := &readsvc.Service{DB: db}
	tag, err := svc.ReadObject(context.Background(), "tenant-a", catalog.LatestTagSelector(catalog.TypeData, id))
	if err != nil {
		t.Fatalf("ReadObject: %v", err)
	}
	if !tag.Attrs["region"].Equal(wire.NewString("EU")) {
		t.Errorf("region = %+v, want EU", tag.Attrs["region"])
	}
}

func TestReadBatchRejectsEmptySelectorList(t *testing.T) {
	db := newTestDB(t, "file:readsvc_empty?mode=memory&cache=shared")
	svc := &readsvc.Service{DB: db}
	_, err := svc.ReadBatch(context.Background(), "tenant-a", nil)
	if svcerr.Of(err) != svcerr.KindInputValidation {
		t.Fatalf("expected InputValidation for an empty selector batch, got %v", err)
	}
}

func TestReadObjectMissingSelectorIsMissingItem(t *testing.T) {
	db := newTestDB(t, "file:readsvc_missing?mode=memory&cache=shared")
	svc := &readsvc.Service{DB: db}
	_, err := svc.ReadObject(context.Background(), "tenant-a", catalog.LatestTagSelector(catalog.TypeData, wire.NewUUID()))
	if svcerr.Of(err) != svcerr.KindMissingItem {
		t.Fatalf("expected MissingItem, got %v", err)
	}
}
