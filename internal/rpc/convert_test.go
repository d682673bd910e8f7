package rpc

import (
	"testing"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/wire"
)

func TestValueRoundTripScalar(t *testing.T) {
	v := wire.NewString("EU")
	msg := valueToMsg(v)
	got, err := msgToValue(msg)
	if err != nil {
		t.Fatalf("msgToValue: %v", err)
	}
	if !got.Equal(v) {
		t.Fatalf("round trip changed value: got %+v, want %+v", got, v)
	}
}

func TestValueRoundTripArray(t *testing.T) {
	arr, err := wire.NewArray(wire.AttrInteger, []wire.Value{wire.NewInt(1), wire.NewInt(2)})
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	msg := valueToMsg(arr)
	if len(msg.Elements) != 2 {
		t.Fatalf("expected 2 elements in wire form, got %d", len(msg.Elements))
	}
	got, err := msgToValue(msg)
	if err != nil {
		t.Fatalf("msgToValue: %v", err)
	}
	if !got.Equal(arr) {
		t.Fatalf("round trip changed array value: got %+v, want %+v", got, arr)
	}
}

func TestMsgToValueRejectsUnrecognisedType(t *testing.T) {
	_, err := msgToValue(AttrValueMsg{Type: "NOT_A_TYPE"})
	if err == nil {
		t.Fatal("expected an error for an unrecognised attribute type")
	}
}

func TestCoordRoundTrip(t *testing.T) {
	cases := []catalog.Coord{
		catalog.LatestCoord(),
		catalog.ExplicitCoord(7),
		catalog.AsOfCoord(wire.Now()),
	}
	for _, c := range cases {
		msg := coordToMsg(c)
		got, err := msgToCoord(msg)
		if err != nil {
			t.Fatalf("msgToCoord(%+v): %v", msg, err)
		}
		if got.Kind != c.Kind {
			t.Fatalf("kind mismatch: got %v, want %v", got.Kind, c.Kind)
		}
	}
}

func TestMsgToSelectorRejectsMalformedObjectID(t *testing.T) {
	_, err := msgToSelector(TagSelectorMsg{Type: "DATA", ObjectID: "not-a-uuid"})
	if err == nil {
		t.Fatal("expected an error for a malformed object id")
	}
}

func TestMsgToExpressionTermRoundTrip(t *testing.T) {
	expr := catalog.TermExpr(catalog.Term{
		AttrName: "region",
		AttrType: wire.AttrString,
		Op:       catalog.OpEQ,
		Value:    wire.NewString("EU"),
	})
	msg := ExpressionMsg{Term: &TermMsg{
		AttrName: "region",
		AttrType: "STRING",
		Op:       "EQ",
		Value:    valueToMsg(wire.NewString("EU")),
	}}
	got, err := msgToExpression(&msg)
	if err != nil {
		t.Fatalf("msgToExpression: %v", err)
	}
	if got.Term == nil || got.Term.AttrName != expr.Term.AttrName || got.Term.Op != expr.Term.Op {
		t.Fatalf("unexpected expression: %+v", got)
	}
}

func TestMsgToExpressionRejectsEmptyNode(t *testing.T) {
	_, err := msgToExpression(&ExpressionMsg{})
	if err == nil {
		t.Fatal("expected an error for an expression with neither a term nor a logical node")
	}
}

func TestMsgToTagUpdateClearAllDoesNotRequireValue(t *testing.T) {
	u, err := msgToTagUpdate(TagUpdateMsg{Op: "CLEAR_ALL_ATTR"})
	if err != nil {
		t.Fatalf("msgToTagUpdate: %v", err)
	}
	if u.Op != catalog.ClearAllAttr {
		t.Fatalf("expected ClearAllAttr, got %v", u.Op)
	}
}
