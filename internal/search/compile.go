// Package search compiles a catalog.Expression into a parameterized SQL
// predicate over the tag_attr table and validates search requests. The
// temporal scope (prior versions / prior tags / as-of) is applied by the
// enclosing query in internal/dal.
package search

import (
	"fmt"
	"strings"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

const op = "search.Compile"

// Predicate is a compiled WHERE-clause fragment and its positional
// arguments, ready to be embedded in a larger query whose placeholder
// style the caller controls (see Compile's placeholder parameter).
type Predicate struct {
	SQL  string
	Args []any
}

// Compile translates expr into a boolean SQL predicate evaluated against
// `t.tag_pk` (the enclosing query must alias the tag table "t"). ph renders
// the dialect's nth bind-parameter marker; argOffset is the number of
// placeholders already consumed earlier in the enclosing query.
func Compile(expr *catalog.Expression, ph func(n int) string, argOffset int) (Predicate, error) {
	if expr == nil {
		return Predicate{SQL: "1=1"}, nil
	}
	var args []any
	sqlText, err := compile(expr, ph, argOffset, &args)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{SQL: sqlText, Args: args}, nil
}

func compile(expr *catalog.Expression, ph func(n int) string, argOffset int, args *[]any) (string, error) {
	switch {
	case expr.Term != nil:
		return compileTerm(expr.Term, ph, argOffset, args)
	case expr.Logical != nil:
		return compileLogical(expr.Logical, ph, argOffset, args)
	default:
		return "", svcerr.New(svcerr.KindInputValidation, op, "expression has neither a term nor a logical node")
	}
}

func compileLogical(l *catalog.Logical, ph func(n int) string, argOffset int, args *[]any) (string, error) {
	if l.Op == catalog.LogicalNOT {
		if len(l.Exprs) != 1 {
			return "", svcerr.New(svcerr.KindInputValidation, op, "NOT takes exactly one operand")
		}
		inner, err := compile(&l.Exprs[0], ph, argOffset, args)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT (%s)", inner), nil
	}

	if len(l.Exprs) == 0 {
		return "", svcerr.New(svcerr.KindInputValidation, op, "AND/OR require at least one operand")
	}
	joiner := " AND "
	if l.Op == catalog.LogicalOR {
		joiner = " OR "
	}
	parts := make([]string, len(l.Exprs))
	for i := range l.Exprs {
		part, err := compile(&l.Exprs[i], ph, argOffset, args)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + part + ")"
	}
	return strings.Join(parts, joiner), nil
}

func compileTerm(term *catalog.Term, ph func(n int) string, argOffset int, args *[]any) (string, error) {
	col, err := valueColumn(term.AttrType)
	if err != nil {
		return "", err
	}

	if term.Op == catalog.OpEXISTS {
		next := func() string { *args = append(*args, term.AttrName); return ph(argOffset + len(*args)) }
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM tag_attr ta WHERE ta.tag_pk = t.tag_pk AND ta.attr_name = %s)`, next()), nil
	}

	if term.Op == catalog.OpIN {
		if !term.Value.Array || len(term.Value.Elements) == 0 {
			return "", svcerr.New(svcerr.KindInputValidation, op, "IN requires a non-empty array value")
		}
		placeholders := make([]string, len(term.Value.Elements))
		*args = append(*args, term.AttrName)
		placeholders0 := ph(argOffset + len(*args))
		for i, e := range term.Value.Elements {
			v, err := columnLiteral(e)
			if err != nil {
				return "", err
			}
			*args = append(*args, v)
			placeholders[i] = ph(argOffset + len(*args))
		}
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM tag_attr ta WHERE ta.tag_pk = t.tag_pk AND ta.attr_name = %s AND ta.%s IN (%s))`,
			placeholders0, col, strings.Join(placeholders, ", ")), nil
	}

	sqlOp, err := comparisonOperator(term.Op, term.AttrType)
	if err != nil {
		return "", err
	}
	lit, err := columnLiteral(term.Value)
	if err != nil {
		return "", err
	}

	*args = append(*args, term.AttrName)
	namePh := ph(argOffset + len(*args))
	*args = append(*args, lit)
	valPh := ph(argOffset + len(*args))

	return fmt.Sprintf(`EXISTS (SELECT 1 FROM tag_attr ta WHERE ta.tag_pk = t.tag_pk AND ta.attr_name = %s AND ta.%s %s %s)`,
		namePh, col, sqlOp, valPh), nil
}

func comparisonOperator(op catalog.Op, attrType wire.AttrType) (string, error) {
	switch op {
	case catalog.OpEQ:
		return "=", nil
	case catalog.OpNE:
		return "<>", nil
	case catalog.OpLT, catalog.OpLE, catalog.OpGT, catalog.OpGE:
		if !attrType.Ordered() {
			return "", svcerr.New(svcerr.KindInputValidation, "search.Compile", "ordered comparison used on a non-ordered attribute type")
		}
		switch op {
		case catalog.OpLT:
			return "<", nil
		case catalog.OpLE:
			return "<=", nil
		case catalog.OpGT:
			return ">", nil
		default:
			return ">=", nil
		}
	default:
		return "", svcerr.New(svcerr.KindInputValidation, "search.Compile", "unsupported comparison operator")
	}
}

func valueColumn(t wire.AttrType) (string, error) {
	switch t {
	case wire.AttrBoolean:
		return "v_bool", nil
	case wire.AttrInteger:
		return "v_int", nil
	case wire.AttrFloat:
		return "v_float", nil
	case wire.AttrDecimal:
		return "v_decimal", nil
	case wire.AttrString:
		return "v_str", nil
	case wire.AttrDate:
		return "v_date", nil
	case wire.AttrDateTime:
		return "v_datetime", nil
	default:
		return "", svcerr.New(svcerr.KindInputValidation, "search.Compile", "search term has an unspecified attribute type")
	}
}

func columnLiteral(v wire.Value) (any, error) {
	cols, err := wire.ToColumns(v)
	if err != nil {
		return nil, err
	}
	switch v.Type {
	case wire.AttrBoolean:
		return *cols.Bool, nil
	case wire.AttrInteger:
		return *cols.Int, nil
	case wire.AttrFloat:
		return *cols.Float, nil
	case wire.AttrDecimal:
		return *cols.Decimal, nil
	case wire.AttrString:
		return *cols.Str, nil
	case wire.AttrDate:
		return *cols.Date, nil
	case wire.AttrDateTime:
		return *cols.DateTime, nil
	default:
		return nil, svcerr.New(svcerr.KindInputValidation, "search.Compile", "unspecified attribute type in search term value")
	}
}
