//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/dal/postgres"
	"github.com/tracmeta/metacore/internal/wire"
)

// TestPostgresDialectAgainstRealEngine exercises internal/dal/postgres
// against an actual Postgres server rather than a mock.
func TestPostgresDialectAgainstRealEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("metacore"),
		tcpostgres.WithUsername("metacore"),
		tcpostgres.WithPassword("metacore"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	d := postgres.Dialect{}
	raw, err := d.Open(ctx, dal.Config{ConnectionString: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	require.NoError(t, postgres.MustApplySchema(ctx, raw))

	db, err := dal.Open(ctx, d, dal.Config{ConnectionString: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	id := wire.NewUUID()
	now := wire.Now()
	headers, err := db.SaveNewObjects(ctx, "tenant-a", []dal.NewObjectRequest{{
		ID:         id,
		Type:       catalog.TypeData,
		Definition: catalog.ObjectDefinition{Type: catalog.TypeData, Payload: []byte(`{"k":"v"}`)},
		ObjectTime: now, TagTime: now,
		Attrs: map[string]wire.Value{"region": wire.NewString("EU")},
	}})
	require.NoError(t, err)
	require.Len(t, headers, 1)

	tags, err := db.LoadTags(ctx, "tenant-a", []catalog.TagSelector{
		catalog.LatestTagSelector(catalog.TypeData, id),
	})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	require.True(t, tags[0].Attrs["region"].Equal(wire.NewString("EU")))
}
