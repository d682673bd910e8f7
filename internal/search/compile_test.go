package search

import (
	"strconv"
	"strings"
	"testing"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

func qmark(int) string { return "?" }

func dollar(n int) string { return "$" + strconv.Itoa(n) }

func TestCompileNilExpressionMatchesEverything(t *testing.T) {
	pred, err := Compile(nil, qmark, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if pred.SQL != "1=1" || len(pred.Args) != 0 {
		t.Fatalf("unexpected predicate for nil expression: %+v", pred)
	}
}

func TestCompileEqualityTerm(t *testing.T) {
	expr := catalog.TermExpr(catalog.Term{
		AttrName: "region", AttrType: wire.AttrString, Op: catalog.OpEQ, Value: wire.NewString("EU"),
	})
	pred, err := Compile(&expr, qmark, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(pred.SQL, "ta.v_str = ?") {
		t.Fatalf("expected a v_str equality fragment, got %q", pred.SQL)
	}
	if len(pred.Args) != 2 || pred.Args[0] != "region" || pred.Args[1] != "EU" {
		t.Fatalf("unexpected args: %+v", pred.Args)
	}
}

func TestCompileOrderedComparisonRejectsNonOrderedType(t *testing.T) {
	expr := catalog.TermExpr(catalog.Term{
		AttrName: "label", AttrType: wire.AttrString, Op: catalog.OpLT, Value: wire.NewString("z"),
	})
	_, err := Compile(&expr, qmark, 0)
	if svcerr.Of(err) != svcerr.KindInputValidation {
		t.Fatalf("expected InputValidation for ordered comparison on a string, got %v", err)
	}
}

func TestCompileOrderedComparisonAllowsOrderedType(t *testing.T) {
	expr := catalog.TermExpr(catalog.Term{
		AttrName: "size", AttrType: wire.AttrInteger, Op: catalog.OpGE, Value: wire.NewInt(10),
	})
	pred, err := Compile(&expr, qmark, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(pred.SQL, ">=") {
		t.Fatalf("expected a >= fragment, got %q", pred.SQL)
	}
}

func TestCompileExists(t *testing.T) {
	expr := catalog.TermExpr(catalog.Term{AttrName: "owner", AttrType: wire.AttrString, Op: catalog.OpEXISTS})
	pred, err := Compile(&expr, qmark, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(pred.Args) != 1 || pred.Args[0] != "owner" {
		t.Fatalf("unexpected args for EXISTS: %+v", pred.Args)
	}
}

func TestCompileInRequiresNonEmptyArray(t *testing.T) {
	expr := catalog.TermExpr(catalog.Term{AttrName: "tier", AttrType: wire.AttrString, Op: catalog.OpIN, Value: wire.NewString("x")})
	_, err := Compile(&expr, qmark, 0)
	if svcerr.Of(err) != svcerr.KindInputValidation {
		t.Fatalf("expected InputValidation for IN with a non-array value, got %v", err)
	}
}

func TestCompileInArray(t *testing.T) {
	arr, err := wire.NewArray(wire.AttrString, []wire.Value{wire.NewString("a"), wire.NewString("b")})
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	expr := catalog.TermExpr(catalog.Term{AttrName: "tier", AttrType: wire.AttrString, Op: catalog.OpIN, Value: arr})
	pred, err := Compile(&expr, qmark, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(pred.Args) != 3 { // attr name + 2 elements
		t.Fatalf("expected 3 args, got %+v", pred.Args)
	}
}

func TestCompileLogicalAndOr(t *testing.T) {
	a := catalog.TermExpr(catalog.Term{AttrName: "a", AttrType: wire.AttrInteger, Op: catalog.OpEQ, Value: wire.NewInt(1)})
	b := catalog.TermExpr(catalog.Term{AttrName: "b", AttrType: wire.AttrInteger, Op: catalog.OpEQ, Value: wire.NewInt(2)})
	expr := catalog.AndExpr(a, b)
	pred, err := Compile(&expr, qmark, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(pred.SQL, " AND ") {
		t.Fatalf("expected an AND-joined predicate, got %q", pred.SQL)
	}
	if len(pred.Args) != 4 {
		t.Fatalf("expected 4 args (2 per term), got %+v", pred.Args)
	}
}

func TestCompileLogicalNotRequiresExactlyOneOperand(t *testing.T) {
	a := catalog.TermExpr(catalog.Term{AttrName: "a", AttrType: wire.AttrInteger, Op: catalog.OpEQ, Value: wire.NewInt(1)})
	b := catalog.TermExpr(catalog.Term{AttrName: "b", AttrType: wire.AttrInteger, Op: catalog.OpEQ, Value: wire.NewInt(2)})
	expr := catalog.Expression{Logical: &catalog.Logical{Op: catalog.LogicalNOT, Exprs: []catalog.Expression{a, b}}}
	_, err := Compile(&expr, qmark, 0)
	if svcerr.Of(err) != svcerr.KindInputValidation {
		t.Fatalf("expected InputValidation for NOT with two operands, got %v", err)
	}
}

func TestCompilePlaceholdersRespectArgOffsetAndDialect(t *testing.T) {
	expr := catalog.TermExpr(catalog.Term{AttrName: "a", AttrType: wire.AttrInteger, Op: catalog.OpEQ, Value: wire.NewInt(1)})
	pred, err := Compile(&expr, dollar, 2)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(pred.SQL, "$3") || !strings.Contains(pred.SQL, "$4") {
		t.Fatalf("expected placeholders offset past the first 2 args, got %q", pred.SQL)
	}
}
