// Package catalog holds the domain types shared by the key mapper, DAL,
// write/read services, and search engine: the in-process representation of
// the wire messages in spec.md §6.
package catalog

import (
	"github.com/tracmeta/metacore/internal/wire"
)

// ObjectType enumerates the nine platform object kinds of spec.md §3.
type ObjectType int

const (
	TypeUnspecified ObjectType = iota
	TypeData
	TypeModel
	TypeFlow
	TypeJob
	TypeFile
	TypeSchema
	TypeStorage
	TypeCustom
	TypeResult
)

var objectTypeNames = map[ObjectType]string{
	TypeData:    "DATA",
	TypeModel:   "MODEL",
	TypeFlow:    "FLOW",
	TypeJob:     "JOB",
	TypeFile:    "FILE",
	TypeSchema:  "SCHEMA",
	TypeStorage: "STORAGE",
	TypeCustom:  "CUSTOM",
	TypeResult:  "RESULT",
}

func (t ObjectType) String() string {
	if n, ok := objectTypeNames[t]; ok {
		return n
	}
	return "UNSPECIFIED"
}

// ParseObjectType decodes the wire enum name into an ObjectType.
func ParseObjectType(s string) (ObjectType, bool) {
	for t, n := range objectTypeNames {
		if n == s {
			return t, true
		}
	}
	return TypeUnspecified, false
}

// ObjectDefinition is the immutable, typed payload attached to one object
// version (spec.md §4.8's "ObjectDefinition"). The concrete body is kept
// opaque at rest — the DAL never inspects it beyond the discriminating Type
// (spec.md §9: "Persist as an opaque serialised payload indexed only by
// object_type; do not expand the body into columns").
type ObjectDefinition struct {
	Type ObjectType
	// Payload is the serialised body (DataDefinition | ModelDefinition |
	// FlowDefinition | ... chosen by Type). Business-rule validation of its
	// contents is an external collaborator (spec.md §1); the core treats it
	// as an opaque blob.
	Payload []byte
}

// TagHeader identifies a single tag: the coordinate the rest of the system
// addresses (spec.md §6).
type TagHeader struct {
	Type           ObjectType
	ObjectID       wire.UUID
	ObjectVersion  int64
	ObjectTime     wire.Timestamp
	TagVersion     int64
	TagTime        wire.Timestamp
}

// Tag is one fully-resolved, immutable attribute map attached to a version
// (spec.md §3's "Tag").
type Tag struct {
	Header     TagHeader
	Definition ObjectDefinition
	Attrs      map[string]wire.Value
}

// Clone returns a deep copy of the tag's attribute map so callers (in
// particular internal/tagupdate, which must be pure) never mutate a shared
// map in place.
func (t Tag) Clone() Tag {
	attrs := make(map[string]wire.Value, len(t.Attrs))
	for k, v := range t.Attrs {
		attrs[k] = v
	}
	return Tag{Header: t.Header, Definition: t.Definition, Attrs: attrs}
}

// Reserved prefix for controlled attributes (spec.md Glossary: "Controlled
// attribute"). Produced by the write service; user TagUpdates may never
// target a name with this prefix.
const ControlledAttrPrefix = "trac_"

// IsControlledAttr reports whether name is a reserved, system-managed
// attribute name.
func IsControlledAttr(name string) bool {
	return len(name) >= len(ControlledAttrPrefix) && name[:len(ControlledAttrPrefix)] == ControlledAttrPrefix
}

// Controlled attribute names written by the write service (spec.md §4.5,
// §8 scenario 1).
const (
	AttrCreateTime     = ControlledAttrPrefix + "create_time"
	AttrCreateUserID   = ControlledAttrPrefix + "create_user_id"
	AttrCreateUserName = ControlledAttrPrefix + "create_user_name"
	AttrUpdateTime     = ControlledAttrPrefix + "update_time"
	AttrUpdateUserID   = ControlledAttrPrefix + "update_user_id"
	AttrUpdateUserName = ControlledAttrPrefix + "update_user_name"
)
