package writesvc_test

import (
	"context"
	"testing"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/dal/sqlite"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
	"github.com/tracmeta/metacore/internal/writesvc"
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

func TestCreateObjectStampsControlledAttrs(t *testing.T) {
	db := newTestDB(t, "file:writesvc_create?mode=memory&cache=shared")
	svc := &writesvc.Service{DB: db}

	header, err := svc.CreateObject(context.Background(), "tenant-a", writesvc.CreateObjectRequest{
		Type:       catalog.TypeData,
		Definition: catalog.ObjectDefinition{Type: catalog.TypeData, Payload: []byte(`{}`)},
		Attrs:      map[string]wire.Value{"region": wire.NewString("EU")},
	})
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if header.ObjectVersion != 1 || header.TagVersion != 1 {
		t.Fatalf("unexpected header: %+v", header)
	}

	tag, err := svc.DB.LoadTags(context.Background(), "tenant-a", []catalog.TagSelector{
		catalog.LatestTagSelector(catalog.TypeData, header.ObjectID),
	})
	if err != nil {
		t.Fatalf("LoadTags: %v", err)
	}
	if _, ok := tag[0].Attrs[catalog.AttrCreateTime]; !ok {
		t.Error("expected trac_create_time to be stamped")
	}
	if _, ok := tag[0].Attrs[catalog.AttrUpdateTime]; !ok {
		t.Error("expected trac_update_time to be stamped")
	}
}

type rejectingValidator struct{}

func (rejectingValidator) ValidateVersionIncrement(prior, next catalog.ObjectDefinition) error {
	return svcerr.New(svcerr.KindVersionValidation, "test", "rejected")
}

func TestUpdateObjectsRunsValidator(t *testing.T) {
	db := newTestDB(t, "file:writesvc_validator?mode=memory&cache=shared")
	svc := &writesvc.Service{DB: db, Validator: rejectingValidator{}}

	header, err := svc.CreateObject(context.Background(), "tenant-a", writesvc.CreateObjectRequest{
		Type:       catalog.TypeData,
		Definition: catalog.ObjectDefinition{Type: catalog.TypeData, Payload: []byte(`{}`)},
	})
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}

	_, err = svc.UpdateObjects(context.Background(), "tenant-a", []writesvc.UpdateObjectRequest{{
		Type:         catalog.TypeData,
		ID:           header.ObjectID,
		PriorVersion: header.ObjectVersion,
		Definition:   catalog.ObjectDefinition{Type: catalog.TypeData, Payload: []byte(`{"v":2}`)},
	}})
	if svcerr.Of(err) != svcerr.KindVersionValidation {
		t.Fatalf("expected VersionValidation, got %v", err)
	}
}

func TestUpdateTagsAppliesUpdatesAndRejectsControlledAttr(t *testing.T) {
	db := newTestDB(t, "file:writesvc_updatetag?mode=memory&cache=shared")
	svc := &writesvc.Service{DB: db}

	header, err := svc.CreateObject(context.Background(), "tenant-a", writesvc.CreateObjectRequest{
		Type:       catalog.TypeData,
		Definition: catalog.ObjectDefinition{Type: catalog.TypeData, Payload: []byte(`{}`)},
	})
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}

	headers, err := svc.UpdateTags(context.Background(), "tenant-a", []writesvc.UpdateTagRequest{{
		Type:            catalog.TypeData,
		ID:              header.ObjectID,
		PriorTagVersion: header.TagVersion,
		Updates: []catalog.TagUpdate{
			{Op: catalog.CreateOrReplaceAttr, Name: "region", Value: wire.NewString("EU")},
		},
	}})
	if err != nil {
		t.Fatalf("UpdateTags: %v", err)
	}
	if headers[0].TagVersion != 2 {
		t.Fatalf("expected tag_version 2, got %d", headers[0].TagVersion)
	}

	_, err = svc.UpdateTags(context.Background(), "tenant-a", []writesvc.UpdateTagRequest{{
		Type:            catalog.TypeData,
		ID:              header.ObjectID,
		PriorTagVersion: headers[0].TagVersion,
		Updates: []catalog.TagUpdate{
			{Op: catalog.CreateOrReplaceAttr, Name: catalog.AttrCreateTime, Value: wire.NewString("nope")},
		},
	}})
	if err == nil {
		t.Fatal("expected an error updating a controlled attribute")
	}
}
