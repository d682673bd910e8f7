// Package rpc exposes internal/writesvc, internal/readsvc, and
// internal/search over google.golang.org/grpc, the way
// SimonWaldherr-tinySQL's cmd/server wires engine.Execute behind a manually
// registered grpc.ServiceDesc rather than protoc-gen-go stubs: the service
// contract is a .proto file (catalog.proto, alongside this package) kept in
// sync by hand with these Go message types, carried over the wire with a
// JSON codec instead of generated binary protobuf marshaling.
package rpc

import "github.com/tracmeta/metacore/internal/catalog"

// AttrValueMsg is the wire form of wire.Value: a tagged union flattened to
// JSON-friendly fields, with exactly one of the scalar fields (or Elements,
// for arrays) populated, selected by Type.
type AttrValueMsg struct {
	Type     string         `json:"type"`
	Bool     *bool          `json:"bool,omitempty"`
	Int      *int64         `json:"int,omitempty"`
	Float    *float64       `json:"float,omitempty"`
	Decimal  *string        `json:"decimal,omitempty"`
	Str      *string        `json:"str,omitempty"`
	Date     *string        `json:"date,omitempty"`
	DateTime *string        `json:"date_time,omitempty"`
	Elements []AttrValueMsg `json:"elements,omitempty"`
}

// ObjectDefinitionMsg is the wire form of catalog.ObjectDefinition.
type ObjectDefinitionMsg struct {
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
}

// TagHeaderMsg is the wire form of catalog.TagHeader.
type TagHeaderMsg struct {
	Type          string `json:"type"`
	ObjectID      string `json:"object_id"`
	ObjectVersion int64  `json:"object_version"`
	ObjectTime    string `json:"object_time"`
	TagVersion    int64  `json:"tag_version"`
	TagTime       string `json:"tag_time"`
}

// TagMsg is the wire form of catalog.Tag.
type TagMsg struct {
	Header     TagHeaderMsg            `json:"header"`
	Definition ObjectDefinitionMsg     `json:"definition"`
	Attrs      map[string]AttrValueMsg `json:"attrs"`
}

// CoordMsg is the wire form of catalog.Coord: exactly one of Explicit/AsOf
// is meaningful, selected by Kind ("EXPLICIT" | "LATEST" | "AS_OF").
type CoordMsg struct {
	Kind     string `json:"kind"`
	Explicit int64  `json:"explicit,omitempty"`
	AsOf     string `json:"as_of,omitempty"`
}

// TagSelectorMsg is the wire form of catalog.TagSelector.
type TagSelectorMsg struct {
	Type     string   `json:"type"`
	ObjectID string   `json:"object_id"`
	Version  CoordMsg `json:"version"`
	Tag      CoordMsg `json:"tag"`
}

// TermMsg is the wire form of catalog.Term.
type TermMsg struct {
	AttrName string       `json:"attr_name"`
	AttrType string       `json:"attr_type"`
	Op       string       `json:"op"`
	Value    AttrValueMsg `json:"value"`
}

// ExpressionMsg is the wire form of catalog.Expression: exactly one of Term
// or Logical is set.
type ExpressionMsg struct {
	Term    *TermMsg    `json:"term,omitempty"`
	Logical *LogicalMsg `json:"logical,omitempty"`
}

// LogicalMsg is the wire form of catalog.Logical.
type LogicalMsg struct {
	Op    string          `json:"op"`
	Exprs []ExpressionMsg `json:"exprs"`
}

// SearchParametersMsg is the wire form of catalog.SearchParameters.
type SearchParametersMsg struct {
	ObjectType    string         `json:"object_type"`
	Expression    *ExpressionMsg `json:"expression,omitempty"`
	AsOf          *string        `json:"as_of,omitempty"`
	PriorVersions bool           `json:"prior_versions"`
	PriorTags     bool           `json:"prior_tags"`
}

// TagUpdateMsg is the wire form of catalog.TagUpdate.
type TagUpdateMsg struct {
	Op    string       `json:"op"`
	Name  string       `json:"name,omitempty"`
	Value AttrValueMsg `json:"value"`
}

// --- request/response envelopes, one pair per RPC of spec.md §6 ---

type CreateObjectRequest struct {
	Tenant     string                  `json:"tenant"`
	ObjectID   string                  `json:"object_id,omitempty"`
	Type       string                  `json:"type"`
	Definition ObjectDefinitionMsg     `json:"definition"`
	Attrs      map[string]AttrValueMsg `json:"attrs"`
}

type CreateObjectResponse struct {
	Header TagHeaderMsg `json:"header"`
}

type PreallocateIDsRequest struct {
	Tenant string `json:"tenant"`
	Type   string `json:"type"`
	Count  int    `json:"count"`
}

type PreallocateIDsResponse struct {
	ObjectIDs []string `json:"object_ids"`
}

type UpdateObjectRequest struct {
	Tenant       string                  `json:"tenant"`
	ObjectID     string                  `json:"object_id"`
	Type         string                  `json:"type"`
	PriorVersion int64                   `json:"prior_version"`
	Definition   ObjectDefinitionMsg     `json:"definition"`
	Attrs        map[string]AttrValueMsg `json:"attrs"`
}

type UpdateObjectResponse struct {
	Header TagHeaderMsg `json:"header"`
}

type UpdateTagRequest struct {
	Tenant          string         `json:"tenant"`
	ObjectID        string         `json:"object_id"`
	Type            string         `json:"type"`
	Version         *int64         `json:"version,omitempty"`
	PriorTagVersion int64          `json:"prior_tag_version"`
	Updates         []TagUpdateMsg `json:"updates"`
}

type UpdateTagResponse struct {
	Header TagHeaderMsg `json:"header"`
}

type ReadObjectRequest struct {
	Tenant   string         `json:"tenant"`
	Selector TagSelectorMsg `json:"selector"`
}

type ReadObjectResponse struct {
	Tag TagMsg `json:"tag"`
}

type ReadBatchRequest struct {
	Tenant     string           `json:"tenant"`
	Selectors  []TagSelectorMsg `json:"selectors"`
}

type ReadBatchResponse struct {
	Tags []TagMsg `json:"tags"`
}

type SearchRequest struct {
	Tenant     string              `json:"tenant"`
	Parameters SearchParametersMsg `json:"parameters"`
}

type SearchResponse struct {
	Results []TagMsg `json:"results"`
}

// objectTypeOrUnspecified parses s, falling back to catalog.TypeUnspecified
// on an empty or unrecognised name rather than failing the whole request
// here; callers validate further down the stack.
func objectTypeOrUnspecified(s string) catalog.ObjectType {
	t, _ := catalog.ParseObjectType(s)
	return t
}
