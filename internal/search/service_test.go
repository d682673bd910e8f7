package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

func TestValidateExpr(t *testing.T) {
	term := catalog.TermExpr(catalog.Term{AttrName: "region", AttrType: wire.AttrString, Op: catalog.OpEQ, Value: wire.NewString("EU")})
	blankTerm := catalog.TermExpr(catalog.Term{AttrType: wire.AttrString, Op: catalog.OpEQ, Value: wire.NewString("EU")})
	empty := catalog.Expression{}

	tests := []struct {
		name    string
		expr    *catalog.Expression
		wantErr bool
	}{
		{name: "nil expression matches everything", expr: nil, wantErr: false},
		{name: "valid term", expr: &term, wantErr: false},
		{name: "term missing attribute name", expr: &blankTerm, wantErr: true},
		{name: "neither term nor logical", expr: &empty, wantErr: true},
		{
			name:    "logical wraps an invalid term",
			expr:    &catalog.Expression{Logical: &catalog.Logical{Op: catalog.LogicalAND, Exprs: []catalog.Expression{blankTerm}}},
			wantErr: true,
		},
		{
			name:    "logical wraps two valid terms",
			expr:    &catalog.Expression{Logical: &catalog.Logical{Op: catalog.LogicalAND, Exprs: []catalog.Expression{term, term}}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateExpr(tt.expr)
			if tt.wantErr {
				assert.Equal(t, svcerr.KindInputValidation, svcerr.Of(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
