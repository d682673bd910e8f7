package dal

import (
	"context"
	"database/sql"

	"github.com/tracmeta/metacore/internal/keys"
)

// scratchAdapter bridges the Dialect-level ScratchTable (this package) to
// keys.ScratchTable, which is declared independently to avoid an import
// cycle between internal/dal and internal/keys.
type scratchAdapter struct{ s ScratchTable }

func (a *scratchAdapter) Clear(ctx context.Context) error { return a.s.Clear(ctx) }

func (a *scratchAdapter) Insert(ctx context.Context, rows []keys.ScratchRow) error {
	out := make([]ScratchRow, len(rows))
	for i, r := range rows {
		out[i] = ScratchRow{
			Position: r.Position, ObjectType: r.ObjectType,
			IDHi: r.IDHi, IDLo: r.IDLo, Version: r.Version, TagVersion: r.TagVersion,
		}
	}
	return a.s.Insert(ctx, out)
}

// newMapper opens a scratch table on tx and returns a keys.Mapper wired to
// this DB's dialect, scoped to tenant.
func (db *DB) newMapper(ctx context.Context, tx *sql.Tx, tenant string) (*keys.Mapper, error) {
	scratch, err := db.dialect.OpenScratch(ctx, tx)
	if err != nil {
		return nil, db.dialect.TranslateError("dal.newMapper", err)
	}
	return &keys.Mapper{
		Tx:          tx,
		Tenant:      tenant,
		Scratch:     &scratchAdapter{s: scratch},
		Placeholder: db.dialect.Placeholder,
	}, nil
}
