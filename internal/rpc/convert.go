package rpc

import (
	"github.com/shopspring/decimal"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

const convOp = "rpc.convert"

func valueToMsg(v wire.Value) AttrValueMsg {
	if v.Array {
		elems := make([]AttrValueMsg, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = valueToMsg(e)
		}
		return AttrValueMsg{Type: v.Type.String(), Elements: elems}
	}
	msg := AttrValueMsg{Type: v.Type.String()}
	switch v.Type {
	case wire.AttrBoolean:
		b := v.Bool
		msg.Bool = &b
	case wire.AttrInteger:
		i := v.Int
		msg.Int = &i
	case wire.AttrFloat:
		f := v.Float
		msg.Float = &f
	case wire.AttrDecimal:
		s := v.Decimal.String()
		msg.Decimal = &s
	case wire.AttrString:
		s := v.Str
		msg.Str = &s
	case wire.AttrDate:
		s := v.Date.Format()
		msg.Date = &s
	case wire.AttrDateTime:
		s := v.DateTime.Format()
		msg.DateTime = &s
	}
	return msg
}

func msgToValue(m AttrValueMsg) (wire.Value, error) {
	attrType, ok := parseAttrType(m.Type)
	if !ok {
		return wire.Value{}, svcerr.New(svcerr.KindInputValidation, convOp, "unrecognised attribute type "+m.Type)
	}
	if len(m.Elements) > 0 {
		elems := make([]wire.Value, len(m.Elements))
		for i, e := range m.Elements {
			v, err := msgToValue(e)
			if err != nil {
				return wire.Value{}, err
			}
			elems[i] = v
		}
		return wire.NewArray(attrType, elems)
	}
	switch attrType {
	case wire.AttrBoolean:
		if m.Bool == nil {
			return wire.Value{}, svcerr.New(svcerr.KindInputValidation, convOp, "missing bool value")
		}
		return wire.NewBool(*m.Bool), nil
	case wire.AttrInteger:
		if m.Int == nil {
			return wire.Value{}, svcerr.New(svcerr.KindInputValidation, convOp, "missing int value")
		}
		return wire.NewInt(*m.Int), nil
	case wire.AttrFloat:
		if m.Float == nil {
			return wire.Value{}, svcerr.New(svcerr.KindInputValidation, convOp, "missing float value")
		}
		return wire.NewFloat(*m.Float), nil
	case wire.AttrDecimal:
		if m.Decimal == nil {
			return wire.Value{}, svcerr.New(svcerr.KindInputValidation, convOp, "missing decimal value")
		}
		d, err := decimal.NewFromString(*m.Decimal)
		if err != nil {
			return wire.Value{}, svcerr.Wrap(svcerr.KindInputValidation, convOp, "malformed decimal value", err)
		}
		return wire.NewDecimal(d), nil
	case wire.AttrString:
		if m.Str == nil {
			return wire.Value{}, svcerr.New(svcerr.KindInputValidation, convOp, "missing string value")
		}
		return wire.NewString(*m.Str), nil
	case wire.AttrDate:
		if m.Date == nil {
			return wire.Value{}, svcerr.New(svcerr.KindInputValidation, convOp, "missing date value")
		}
		t, err := wire.ParseTimestamp(*m.Date)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.NewDate(t), nil
	case wire.AttrDateTime:
		if m.DateTime == nil {
			return wire.Value{}, svcerr.New(svcerr.KindInputValidation, convOp, "missing datetime value")
		}
		t, err := wire.ParseTimestamp(*m.DateTime)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.NewDateTime(t), nil
	default:
		return wire.Value{}, svcerr.New(svcerr.KindInputValidation, convOp, "unspecified attribute type")
	}
}

func parseAttrType(s string) (wire.AttrType, bool) {
	switch s {
	case "BOOLEAN":
		return wire.AttrBoolean, true
	case "INTEGER":
		return wire.AttrInteger, true
	case "FLOAT":
		return wire.AttrFloat, true
	case "DECIMAL":
		return wire.AttrDecimal, true
	case "STRING":
		return wire.AttrString, true
	case "DATE":
		return wire.AttrDate, true
	case "DATETIME":
		return wire.AttrDateTime, true
	default:
		return wire.AttrUnspecified, false
	}
}

func attrsToMsg(attrs map[string]wire.Value) map[string]AttrValueMsg {
	out := make(map[string]AttrValueMsg, len(attrs))
	for k, v := range attrs {
		out[k] = valueToMsg(v)
	}
	return out
}

func msgToAttrs(attrs map[string]AttrValueMsg) (map[string]wire.Value, error) {
	out := make(map[string]wire.Value, len(attrs))
	for k, m := range attrs {
		v, err := msgToValue(m)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func definitionToMsg(d catalog.ObjectDefinition) ObjectDefinitionMsg {
	return ObjectDefinitionMsg{Type: d.Type.String(), Payload: d.Payload}
}

func msgToDefinition(m ObjectDefinitionMsg) catalog.ObjectDefinition {
	return catalog.ObjectDefinition{Type: objectTypeOrUnspecified(m.Type), Payload: m.Payload}
}

func headerToMsg(h catalog.TagHeader) TagHeaderMsg {
	return TagHeaderMsg{
		Type:          h.Type.String(),
		ObjectID:      h.ObjectID.String(),
		ObjectVersion: h.ObjectVersion,
		ObjectTime:    h.ObjectTime.Format(),
		TagVersion:    h.TagVersion,
		TagTime:       h.TagTime.Format(),
	}
}

func tagToMsg(t catalog.Tag) TagMsg {
	return TagMsg{
		Header:     headerToMsg(t.Header),
		Definition: definitionToMsg(t.Definition),
		Attrs:      attrsToMsg(t.Attrs),
	}
}

func coordToMsg(c catalog.Coord) CoordMsg {
	switch c.Kind {
	case catalog.CoordExplicit:
		return CoordMsg{Kind: "EXPLICIT", Explicit: c.Explicit}
	case catalog.CoordAsOf:
		return CoordMsg{Kind: "AS_OF", AsOf: c.AsOf.Format()}
	default:
		return CoordMsg{Kind: "LATEST"}
	}
}

func msgToCoord(m CoordMsg) (catalog.Coord, error) {
	switch m.Kind {
	case "EXPLICIT":
		return catalog.ExplicitCoord(m.Explicit), nil
	case "AS_OF":
		t, err := wire.ParseTimestamp(m.AsOf)
		if err != nil {
			return catalog.Coord{}, err
		}
		return catalog.AsOfCoord(t), nil
	case "LATEST", "":
		return catalog.LatestCoord(), nil
	default:
		return catalog.Coord{}, svcerr.New(svcerr.KindInputValidation, convOp, "unrecognised coordinate kind "+m.Kind)
	}
}

func msgToSelector(m TagSelectorMsg) (catalog.TagSelector, error) {
	id, err := wire.ParseUUID(m.ObjectID)
	if err != nil {
		return catalog.TagSelector{}, err
	}
	version, err := msgToCoord(m.Version)
	if err != nil {
		return catalog.TagSelector{}, err
	}
	tag, err := msgToCoord(m.Tag)
	if err != nil {
		return catalog.TagSelector{}, err
	}
	return catalog.TagSelector{
		Type:     objectTypeOrUnspecified(m.Type),
		ObjectID: id,
		Version:  version,
		Tag:      tag,
	}, nil
}

func msgToExpression(m *ExpressionMsg) (*catalog.Expression, error) {
	if m == nil {
		return nil, nil
	}
	switch {
	case m.Term != nil:
		attrType, _ := parseAttrType(m.Term.AttrType)
		op, ok := parseOp(m.Term.Op)
		if !ok {
			return nil, svcerr.New(svcerr.KindInputValidation, convOp, "unrecognised search operator "+m.Term.Op)
		}
		val, err := msgToValue(m.Term.Value)
		if err != nil {
			return nil, err
		}
		expr := catalog.TermExpr(catalog.Term{
			AttrName: m.Term.AttrName,
			AttrType: attrType,
			Op:       op,
			Value:    val,
		})
		return &expr, nil
	case m.Logical != nil:
		logicalOp, ok := parseLogicalOp(m.Logical.Op)
		if !ok {
			return nil, svcerr.New(svcerr.KindInputValidation, convOp, "unrecognised logical operator "+m.Logical.Op)
		}
		exprs := make([]catalog.Expression, len(m.Logical.Exprs))
		for i := range m.Logical.Exprs {
			e, err := msgToExpression(&m.Logical.Exprs[i])
			if err != nil {
				return nil, err
			}
			exprs[i] = *e
		}
		expr := catalog.Expression{Logical: &catalog.Logical{Op: logicalOp, Exprs: exprs}}
		return &expr, nil
	default:
		return nil, svcerr.New(svcerr.KindInputValidation, convOp, "expression has neither a term nor a logical node")
	}
}

func parseOp(s string) (catalog.Op, bool) {
	switch s {
	case "EQ":
		return catalog.OpEQ, true
	case "NE":
		return catalog.OpNE, true
	case "LT":
		return catalog.OpLT, true
	case "LE":
		return catalog.OpLE, true
	case "GT":
		return catalog.OpGT, true
	case "GE":
		return catalog.OpGE, true
	case "IN":
		return catalog.OpIN, true
	case "EXISTS":
		return catalog.OpEXISTS, true
	default:
		return 0, false
	}
}

func parseLogicalOp(s string) (catalog.LogicalOp, bool) {
	switch s {
	case "AND":
		return catalog.LogicalAND, true
	case "OR":
		return catalog.LogicalOR, true
	case "NOT":
		return catalog.LogicalNOT, true
	default:
		return 0, false
	}
}

func msgToSearchParameters(m SearchParametersMsg) (catalog.SearchParameters, error) {
	expr, err := msgToExpression(m.Expression)
	if err != nil {
		return catalog.SearchParameters{}, err
	}
	params := catalog.SearchParameters{
		ObjectType:    objectTypeOrUnspecified(m.ObjectType),
		Expression:    expr,
		PriorVersions: m.PriorVersions,
		PriorTags:     m.PriorTags,
	}
	if m.AsOf != nil {
		t, err := wire.ParseTimestamp(*m.AsOf)
		if err != nil {
			return catalog.SearchParameters{}, err
		}
		params.AsOf = &t
	}
	return params, nil
}

func msgToTagUpdate(m TagUpdateMsg) (catalog.TagUpdate, error) {
	op, ok := parseUpdateOp(m.Op)
	if !ok {
		return catalog.TagUpdate{}, svcerr.New(svcerr.KindInputValidation, convOp, "unrecognised update op "+m.Op)
	}
	u := catalog.TagUpdate{Op: op, Name: m.Name}
	if op != catalog.ClearAllAttr {
		v, err := msgToValue(m.Value)
		if err != nil {
			return catalog.TagUpdate{}, err
		}
		u.Value = v
	}
	return u, nil
}

func parseUpdateOp(s string) (catalog.UpdateOp, bool) {
	switch s {
	case "CREATE_OR_REPLACE_ATTR":
		return catalog.CreateOrReplaceAttr, true
	case "CREATE_OR_APPEND_ATTR":
		return catalog.CreateOrAppendAttr, true
	case "CREATE_ATTR":
		return catalog.CreateAttr, true
	case "REPLACE_ATTR":
		return catalog.ReplaceAttr, true
	case "APPEND_ATTR":
		return catalog.AppendAttr, true
	case "DELETE_ATTR":
		return catalog.DeleteAttr, true
	case "CLEAR_ALL_ATTR":
		return catalog.ClearAllAttr, true
	default:
		return 0, false
	}
}
