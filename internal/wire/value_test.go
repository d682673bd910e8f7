package wire

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tracmeta/metacore/internal/svcerr"
)

func TestToFromColumnsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
	}{
		{"bool", NewBool(true)},
		{"int", NewInt(-42)},
		{"float", NewFloat(3.14159)},
		{"decimal", NewDecimal(decimal.RequireFromString("12345678901234567890.123456789"))},
		{"string", NewString("widget_orders")},
		{"datetime", NewDateTime(Now())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := ToColumns(tt.v)
			if err != nil {
				t.Fatalf("ToColumns: %v", err)
			}
			got, err := FromColumns(tt.v.Type, cols)
			if err != nil {
				t.Fatalf("FromColumns: %v", err)
			}
			if !got.Equal(tt.v) {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, tt.v)
			}
		})
	}
}

func TestFromColumnsRejectsTypeMismatch(t *testing.T) {
	strCols, err := ToColumns(NewString("hello"))
	if err != nil {
		t.Fatalf("ToColumns: %v", err)
	}

	_, err = FromColumns(AttrInteger, strCols)
	if !errors.Is(err, svcerr.ErrDataCorruption) {
		t.Fatalf("decoding a STRING column as INTEGER: got %v, want DataCorruption", err)
	}
}

func TestNewArrayRejectsEmpty(t *testing.T) {
	_, err := NewArray(AttrString, nil)
	if !errors.Is(err, svcerr.ErrInputValidation) {
		t.Fatalf("empty array: got %v, want InputValidation", err)
	}
}

func TestNewArrayRejectsMixedTypes(t *testing.T) {
	_, err := NewArray(AttrString, []Value{NewString("a"), NewInt(1)})
	if !errors.Is(err, svcerr.ErrInputValidation) {
		t.Fatalf("mixed-type array: got %v, want InputValidation", err)
	}
}

func TestUUIDColumnRoundTrip(t *testing.T) {
	id := NewUUID()
	hi, lo := SplitUUIDColumns(id)
	got := JoinUUIDColumns(hi, lo)
	if got != id {
		t.Errorf("uuid column round trip: got %s, want %s", got, id)
	}
}

func TestTimestampPreservesOffset(t *testing.T) {
	ts, err := ParseTimestamp("2024-03-15T09:30:00.123456-05:00")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.OffsetSeconds != -5*3600 {
		t.Errorf("offset = %d, want -18000", ts.OffsetSeconds)
	}
	formatted := ts.Format()
	reparsed, err := ParseTimestamp(formatted)
	if err != nil {
		t.Fatalf("reparse formatted timestamp: %v", err)
	}
	if !reparsed.UTC.Equal(ts.UTC) {
		t.Errorf("round trip UTC mismatch: got %s, want %s", reparsed.UTC, ts.UTC)
	}
}
