package catalog

import "github.com/tracmeta/metacore/internal/wire"

// Op enumerates the comparison operators of the search expression grammar
// (spec.md §4.7).
type Op int

const (
	OpEQ Op = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpIN
	OpEXISTS
)

// LogicalOp enumerates the boolean combinators of the grammar.
type LogicalOp int

const (
	LogicalAND LogicalOp = iota
	LogicalOR
	LogicalNOT
)

// Expression is either a Term (a leaf predicate on one attribute) or a
// Logical combination of sub-expressions, per spec.md §4.7's grammar:
//
//	Expression  := Term | Logical
//	Term        := (attr_name, attr_type, op, value)
//	Logical     := (AND|OR, [Expression+]) | (NOT, [Expression])
type Expression struct {
	// Term is set when this node is a leaf predicate.
	Term *Term
	// Logical is set when this node combines sub-expressions.
	Logical *Logical
}

// Term is a leaf predicate against one named, typed attribute.
type Term struct {
	AttrName string
	AttrType wire.AttrType
	Op       Op
	// Value holds the comparison operand for EQ/NE/LT/LE/GT/GE; for IN it is
	// an array Value; for EXISTS it is unused.
	Value wire.Value
}

// Logical combines one or more sub-expressions with AND/OR, or negates the
// single sub-expression under NOT.
type Logical struct {
	Op    LogicalOp
	Exprs []Expression
}

// TermExpr wraps a Term as an Expression leaf.
func TermExpr(t Term) Expression { return Expression{Term: &t} }

// AndExpr, OrExpr, NotExpr build Logical Expression nodes.
func AndExpr(exprs ...Expression) Expression {
	return Expression{Logical: &Logical{Op: LogicalAND, Exprs: exprs}}
}

func OrExpr(exprs ...Expression) Expression {
	return Expression{Logical: &Logical{Op: LogicalOR, Exprs: exprs}}
}

func NotExpr(expr Expression) Expression {
	return Expression{Logical: &Logical{Op: LogicalNOT, Exprs: []Expression{expr}}}
}

// SearchParameters is the input to the search engine (spec.md §4.7).
type SearchParameters struct {
	ObjectType ObjectType
	Expression *Expression // nil matches every tag in scope

	// AsOf restricts consideration to rows with *_timestamp <= AsOf before
	// the PriorVersions/PriorTags flags are applied.
	AsOf *wire.Timestamp

	// PriorVersions, when true, considers every version of each object
	// instead of only the latest version.
	PriorVersions bool
	// PriorTags, when true, considers every tag of each included version
	// instead of only its latest tag.
	PriorTags bool
}

// SearchResult is one row of a search response: the chosen latest matching
// tag of one object (spec.md §4.7: "Exactly one row per object is
// returned").
type SearchResult struct {
	Tag Tag
}
