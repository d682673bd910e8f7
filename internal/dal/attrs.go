package dal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

// writeAttrs inserts one tag_attr row per scalar element of attrs, exploding
// arrays into consecutive elem_index rows (spec.md §4.1: arrays are stored
// as ordered element rows, never as a serialized blob, so SQL predicates can
// still address individual elements for EXISTS/IN search terms). is_array
// is stamped on every row of a given attribute so a single-element array
// still round-trips as an array rather than collapsing to a scalar.
func writeAttrs(ctx context.Context, tx *sql.Tx, dialect Dialect, tagPK int64, attrs map[string]wire.Value) error {
	query := fmt.Sprintf(`
		INSERT INTO tag_attr (tag_pk, attr_name, elem_index, is_array, attr_type, v_bool, v_int, v_float, v_decimal, v_str, v_date, v_datetime)
		VALUES (%s)`, placeholders(dialect, 12))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for name, v := range attrs {
		elems := []wire.Value{v}
		if v.Array {
			elems = v.Elements
		}
		for i, elem := range elems {
			cols, err := wire.ToColumns(elem)
			if err != nil {
				return svcerr.Wrap(svcerr.KindInternal, "dal.writeAttrs", "encoding attribute value", err)
			}
			if _, err := stmt.ExecContext(ctx, tagPK, name, i, v.Array, int(elem.Type),
				cols.Bool, cols.Int, cols.Float, cols.Decimal, cols.Str, cols.Date, cols.DateTime); err != nil {
				return err
			}
		}
	}
	return nil
}

// readAttrs reassembles the attribute map for tagPK, re-collapsing
// multi-row arrays back into a single wire.Value per attribute name.
func readAttrs(ctx context.Context, tx *sql.Tx, dialect Dialect, tagPK int64) (map[string]wire.Value, error) {
	query := fmt.Sprintf(`
		SELECT attr_name, elem_index, is_array, attr_type, v_bool, v_int, v_float, v_decimal, v_str, v_date, v_datetime
		FROM tag_attr WHERE tag_pk = %s
		ORDER BY attr_name, elem_index`, dialect.Placeholder(1))
	rows, err := tx.QueryContext(ctx, query, tagPK)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	type rawElem struct {
		val wire.Value
	}
	isArray := make(map[string]bool)
	byName := make(map[string][]rawElem)
	order := make([]string, 0)

	for rows.Next() {
		var name string
		var idx int
		var arrayFlag bool
		var attrType int
		var nBool sql.NullBool
		var nInt sql.NullInt64
		var nFloat sql.NullFloat64
		var nDecimal, nStr, nDate, nDateTime sql.NullString
		if err := rows.Scan(&name, &idx, &arrayFlag, &attrType, &nBool, &nInt, &nFloat, &nDecimal, &nStr, &nDate, &nDateTime); err != nil {
			return nil, err
		}
		cols := wire.Columns{}
		if nBool.Valid {
			cols.Bool = &nBool.Bool
		}
		if nInt.Valid {
			cols.Int = &nInt.Int64
		}
		if nFloat.Valid {
			cols.Float = &nFloat.Float64
		}
		if nDecimal.Valid {
			cols.Decimal = &nDecimal.String
		}
		if nStr.Valid {
			cols.Str = &nStr.String
		}
		if nDate.Valid {
			cols.Date = &nDate.String
		}
		if nDateTime.Valid {
			cols.DateTime = &nDateTime.String
		}
		v, err := wire.FromColumns(wire.AttrType(attrType), cols)
		if err != nil {
			return nil, err
		}
		if _, seen := byName[name]; !seen {
			order = append(order, name)
		}
		isArray[name] = arrayFlag
		byName[name] = append(byName[name], rawElem{val: v})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]wire.Value, len(order))
	for _, name := range order {
		elems := byName[name]
		if !isArray[name] {
			out[name] = elems[0].val
			continue
		}
		vals := make([]wire.Value, len(elems))
		for i, e := range elems {
			vals[i] = e.val
		}
		arr, err := wire.NewArray(vals[0].Type, vals)
		if err != nil {
			return nil, err
		}
		out[name] = arr
	}
	return out, nil
}
