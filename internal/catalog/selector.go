package catalog

import "github.com/tracmeta/metacore/internal/wire"

// CoordKind selects how one axis (version, or tag_version) of a TagSelector
// is resolved (spec.md §4.6).
type CoordKind int

const (
	// CoordExplicit: an exact integer version/tag_version.
	CoordExplicit CoordKind = iota
	// CoordLatest: the highest existing version/tag_version.
	CoordLatest
	// CoordAsOf: the highest version/tag_version whose timestamp <= AsOf.
	CoordAsOf
)

// Coord is one axis of a TagSelector.
type Coord struct {
	Kind    CoordKind
	Explicit int64
	AsOf    wire.Timestamp
}

// ExplicitCoord selects an exact version or tag_version.
func ExplicitCoord(n int64) Coord { return Coord{Kind: CoordExplicit, Explicit: n} }

// LatestCoord selects the highest existing version or tag_version.
func LatestCoord() Coord { return Coord{Kind: CoordLatest} }

// AsOfCoord selects the highest version or tag_version whose timestamp is
// at or before t.
func AsOfCoord(t wire.Timestamp) Coord { return Coord{Kind: CoordAsOf, AsOf: t} }

// TagSelector addresses a single tag of a single object: spec.md §4.6's
// "cartesian product" of version and tag_version coordinate shapes. Resolved
// per the Open Question in spec.md §9 (recorded in DESIGN.md): as_of is
// supported on both axes for reads, the same as for search.
type TagSelector struct {
	Type     ObjectType
	ObjectID wire.UUID
	Version  Coord
	Tag      Coord
}

// LatestTagSelector is the common case: latest version, latest tag.
func LatestTagSelector(t ObjectType, id wire.UUID) TagSelector {
	return TagSelector{Type: t, ObjectID: id, Version: LatestCoord(), Tag: LatestCoord()}
}
