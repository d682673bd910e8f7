package dal_test

import (
	"context"
	"testing"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/dal/sqlite"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

func TestSaveAndLoadNewObject(t *testing.T) {
	ctx := context.Background()
	d := sqlite.Dialect{}
	raw, err := d.Open(ctx, dal.Config{ConnectionString: "file:dal_test_new_object?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("opening raw sqlite handle: %v", err)
	}
	defer func() { _ = raw.Close() }()
	sqlite.MustApplySchema(ctx, raw)

	db, err := dal.Open(ctx, d, dal.Config{ConnectionString: "file:dal_test_new_object?mode=memory&cache=shared"}, nil)
	if err != nil {
		t.Fatalf("dal.Open: %v", err)
	}
	defer func() { _ = db.Close() }()

	id := wire.NewUUID()
	now := wire.Now()
	headers, err := db.SaveNewObjects(ctx, "tenant-a", []dal.NewObjectRequest{
		{
			ID:         id,
			Type:       catalog.ObjectType(1),
			Definition: catalog.ObjectDefinition{Type: catalog.ObjectType(1), Payload: []byte(`{"k":"v"}`)},
			ObjectTime: now,
			TagTime:    now,
			Attrs:      map[string]wire.Value{"region": wire.NewString("EU")},
		},
	})
	if err != nil {
		t.Fatalf("SaveNewObjects: %v", err)
	}
	if len(headers) != 1 || headers[0].ObjectVersion != 1 || headers[0].TagVersion != 1 {
		t.Fatalf("unexpected headers: %+v", headers)
	}

	tags, err := db.LoadTags(ctx, "tenant-a", []catalog.TagSelector{
		catalog.LatestTagSelector(catalog.ObjectType(1), id),
	})
	if err != nil {
		t.Fatalf("LoadTags: %v", err)
	}
	if len(tags) != 1 {
		t.Fatalf("expected 1 tag, got %d", len(tags))
	}
	if !tags[0].Attrs["region"].Equal(wire.NewString("EU")) {
		t.Errorf("region = %+v, want EU", tags[0].Attrs["region"])
	}
}

func TestLoadTagsMissingObjectIsMissingItem(t *testing.T) {
	ctx := context.Background()
	d := sqlite.Dialect{}
	raw, err := d.Open(ctx, dal.Config{ConnectionString: "file:dal_test_missing?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("opening raw sqlite handle: %v", err)
	}
	defer func() { _ = raw.Close() }()
	sqlite.MustApplySchema(ctx, raw)

	db, err := dal.Open(ctx, d, dal.Config{ConnectionString: "file:dal_test_missing?mode=memory&cache=shared"}, nil)
	if err != nil {
		t.Fatalf("dal.Open: %v", err)
	}
	defer func() { _ = db.Close() }()

	_, err = db.LoadTags(ctx, "tenant-a", []catalog.TagSelector{
		catalog.LatestTagSelector(catalog.ObjectType(1), wire.NewUUID()),
	})
	if svcerr.Of(err) != svcerr.KindMissingItem {
		t.Fatalf("expected MissingItem for an unknown object, got %v", err)
	}
}
