package tagupdate

import (
	"errors"
	"testing"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

func baseTag() catalog.Tag {
	return catalog.Tag{
		Attrs: map[string]wire.Value{
			"region":              wire.NewString("EU"),
			catalog.AttrCreateTime: wire.NewDateTime(wire.Now()),
		},
	}
}

func TestApplyCreateOrReplace(t *testing.T) {
	tag := baseTag()
	out, err := Apply(tag, []catalog.TagUpdate{
		{Op: catalog.CreateOrReplaceAttr, Name: "region", Value: wire.NewString("US")},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !out.Attrs["region"].Equal(wire.NewString("US")) {
		t.Errorf("region = %+v, want US", out.Attrs["region"])
	}
	// original tag untouched
	if !tag.Attrs["region"].Equal(wire.NewString("EU")) {
		t.Errorf("input tag was mutated")
	}
}

func TestApplyCreateAttrFailsWhenExists(t *testing.T) {
	tag := baseTag()
	_, err := Apply(tag, []catalog.TagUpdate{
		{Op: catalog.CreateAttr, Name: "region", Value: wire.NewString("US")},
	})
	if !errors.Is(err, svcerr.ErrInputValidation) {
		t.Fatalf("got %v, want InputValidation", err)
	}
}

func TestApplyReplaceAttrRejectsTypeChange(t *testing.T) {
	tag := baseTag()
	_, err := Apply(tag, []catalog.TagUpdate{
		{Op: catalog.ReplaceAttr, Name: "region", Value: wire.NewInt(1)},
	})
	if !errors.Is(err, svcerr.ErrInputValidation) {
		t.Fatalf("got %v, want InputValidation", err)
	}
}

func TestApplyAppendPromotesToMultiValued(t *testing.T) {
	tag := baseTag()
	out, err := Apply(tag, []catalog.TagUpdate{
		{Op: catalog.AppendAttr, Name: "region", Value: wire.NewString("US")},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := out.Attrs["region"]
	if !got.Array || len(got.Elements) != 2 {
		t.Fatalf("region = %+v, want a 2-element array", got)
	}
}

func TestApplyDeleteAttrFailsWhenAbsent(t *testing.T) {
	tag := baseTag()
	_, err := Apply(tag, []catalog.TagUpdate{
		{Op: catalog.DeleteAttr, Name: "missing"},
	})
	if !errors.Is(err, svcerr.ErrInputValidation) {
		t.Fatalf("got %v, want InputValidation", err)
	}
}

func TestApplyClearAllAttrPreservesControlled(t *testing.T) {
	tag := baseTag()
	out, err := Apply(tag, []catalog.TagUpdate{{Op: catalog.ClearAllAttr}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok := out.Attrs["region"]; ok {
		t.Errorf("user attribute survived CLEAR_ALL_ATTR")
	}
	if _, ok := out.Attrs[catalog.AttrCreateTime]; !ok {
		t.Errorf("controlled attribute was cleared by CLEAR_ALL_ATTR")
	}
}

func TestApplyRejectsUserUpdateToControlledAttr(t *testing.T) {
	tag := baseTag()
	_, err := Apply(tag, []catalog.TagUpdate{
		{Op: catalog.CreateOrReplaceAttr, Name: catalog.AttrCreateTime, Value: wire.NewDateTime(wire.Now())},
	})
	if !errors.Is(err, svcerr.ErrInputValidation) {
		t.Fatalf("got %v, want InputValidation", err)
	}
}

// TestApplyIdempotence exercises the testable property in spec.md §8 item
// 6: CREATE_OR_REPLACE_ATTR is idempotent under identical operands; an
// append is not (checked here with CREATE_OR_APPEND_ATTR on an existing
// attribute, which takes the same append path as APPEND_ATTR).
func TestApplyIdempotence(t *testing.T) {
	tag := baseTag()
	update := catalog.TagUpdate{Op: catalog.CreateOrReplaceAttr, Name: "region", Value: wire.NewString("US")}

	once, err := Apply(tag, []catalog.TagUpdate{update})
	if err != nil {
		t.Fatalf("Apply once: %v", err)
	}
	twice, err := Apply(once, []catalog.TagUpdate{update})
	if err != nil {
		t.Fatalf("Apply twice: %v", err)
	}
	if !once.Attrs["region"].Equal(twice.Attrs["region"]) {
		t.Errorf("CREATE_OR_REPLACE_ATTR was not idempotent: %+v != %+v", once.Attrs["region"], twice.Attrs["region"])
	}

	appendUpdate := catalog.TagUpdate{Op: catalog.CreateOrAppendAttr, Name: "region", Value: wire.NewString("US")}
	appOnce, err := Apply(tag, []catalog.TagUpdate{appendUpdate})
	if err != nil {
		t.Fatalf("Apply append once: %v", err)
	}
	appTwice, err := Apply(appOnce, []catalog.TagUpdate{appendUpdate})
	if err != nil {
		t.Fatalf("Apply append twice: %v", err)
	}
	if appOnce.Attrs["region"].Equal(appTwice.Attrs["region"]) {
		t.Errorf("CREATE_OR_APPEND_ATTR should not be idempotent, but two applications produced the same value")
	}
}
