package catalog

import "github.com/tracmeta/metacore/internal/wire"

// UpdateOp enumerates the seven tag-update operations of spec.md §4.4.
type UpdateOp int

const (
	CreateOrReplaceAttr UpdateOp = iota
	CreateOrAppendAttr
	CreateAttr
	ReplaceAttr
	AppendAttr
	DeleteAttr
	ClearAllAttr
)

// TagUpdate is one mutation operation applied by internal/tagupdate to
// produce a new tag value (spec.md §4.4). Name and Value are unused for
// CLEAR_ALL_ATTR.
type TagUpdate struct {
	Op    UpdateOp
	Name  string
	Value wire.Value
}
