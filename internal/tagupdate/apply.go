// Package tagupdate implements the pure tag-update applier: a function
// of (Tag, []TagUpdate) -> Tag that never performs I/O.
package tagupdate

import (
	"fmt"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/wire"
)

const op = "tagupdate.Apply"

// Apply runs updates against tag in order and returns the resulting tag.
// tag itself is never mutated; the returned Tag has its own attribute map.
//
// Controlled (trac_-prefixed) attributes can never be targeted by a user
// TagUpdate — attempting to do so is an InputValidation error, since the
// write service is the only caller permitted to set them, and it does so
// after Apply runs (spec.md §4.5).
func Apply(tag catalog.Tag, updates []catalog.TagUpdate) (catalog.Tag, error) {
	result := tag.Clone()

	for _, u := range updates {
		if u.Op != catalog.ClearAllAttr && catalog.IsControlledAttr(u.Name) {
			return catalog.Tag{}, svcerr.New(svcerr.KindInputValidation, op,
				fmt.Sprintf("attribute %q is controlled and cannot be targeted by a user update", u.Name))
		}

		var err error
		switch u.Op {
		case catalog.CreateOrReplaceAttr:
			result.Attrs[u.Name] = u.Value

		case catalog.CreateOrAppendAttr:
			if existing, ok := result.Attrs[u.Name]; ok {
				result.Attrs[u.Name], err = appendValue(existing, u.Value)
			} else {
				result.Attrs[u.Name] = u.Value
			}

		case catalog.CreateAttr:
			if _, ok := result.Attrs[u.Name]; ok {
				err = svcerr.New(svcerr.KindInputValidation, op, fmt.Sprintf("attribute %q already exists", u.Name))
			} else {
				result.Attrs[u.Name] = u.Value
			}

		case catalog.ReplaceAttr:
			existing, ok := result.Attrs[u.Name]
			if !ok {
				err = svcerr.New(svcerr.KindInputValidation, op, fmt.Sprintf("attribute %q does not exist", u.Name))
			} else if basicType(existing) != basicType(u.Value) {
				err = svcerr.New(svcerr.KindInputValidation, op,
					fmt.Sprintf("attribute %q cannot change basic type on REPLACE_ATTR", u.Name))
			} else {
				result.Attrs[u.Name] = u.Value
			}

		case catalog.AppendAttr:
			existing, ok := result.Attrs[u.Name]
			if !ok {
				err = svcerr.New(svcerr.KindInputValidation, op, fmt.Sprintf("attribute %q does not exist", u.Name))
			} else {
				result.Attrs[u.Name], err = appendValue(existing, u.Value)
			}

		case catalog.DeleteAttr:
			if _, ok := result.Attrs[u.Name]; !ok {
				err = svcerr.New(svcerr.KindInputValidation, op, fmt.Sprintf("attribute %q does not exist", u.Name))
			} else {
				delete(result.Attrs, u.Name)
			}

		case catalog.ClearAllAttr:
			// Only non-controlled (user) attributes are cleared — resolved
			// Open Question, see DESIGN.md.
			for name := range result.Attrs {
				if !catalog.IsControlledAttr(name) {
					delete(result.Attrs, name)
				}
			}

		default:
			err = svcerr.New(svcerr.KindInputValidation, op, "unrecognised tag update operation")
		}

		if err != nil {
			return catalog.Tag{}, err
		}
	}

	return result, nil
}

// basicType returns the element type of v regardless of whether v is an
// array, for the purposes of REPLACE_ATTR's "basic type changes" check.
func basicType(v wire.Value) wire.AttrType { return v.Type }

// appendValue implements APPEND_ATTR / the append half of
// CREATE_OR_APPEND_ATTR: appending to a single-valued attribute promotes it
// to multi-valued ("single->multi allowed"); appending to a multi-valued
// attribute extends it. Element type must match the existing element type.
func appendValue(existing, addition wire.Value) (wire.Value, error) {
	elemType := basicType(existing)
	if addition.Type != elemType {
		return wire.Value{}, svcerr.New(svcerr.KindInputValidation, op,
			"APPEND_ATTR element type does not match the existing attribute's element type")
	}

	var existingElems []wire.Value
	if existing.Array {
		existingElems = existing.Elements
	} else {
		existingElems = []wire.Value{existing}
	}

	var newElems []wire.Value
	if addition.Array {
		newElems = addition.Elements
	} else {
		newElems = []wire.Value{addition}
	}

	return wire.NewArray(elemType, append(append([]wire.Value{}, existingElems...), newElems...))
}
