package compiler

import (
	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/runtime/expr"
	"github.com/opal-lang/sheetc/runtime/metadata"
	"github.com/opal-lang/sheetc/runtime/scope"
)

// Procedure is a compiled events sheet, ready for the executor.
type Procedure struct {
	Sheet        string
	Root         *Block
	Diagnostics  []Diagnostic
	SourceDigest string // digest of the sheet the procedure was compiled from
	Stats        Stats

	// Calls maps every known function call in the procedure to the function
	// it invokes. Calls missing from it evaluate to zero.
	Calls map[*expr.Call]*metadata.Function

	// ResetLocalsEachIteration gives loop locals their declared values again
	// at the start of every iteration instead of once per loop.
	ResetLocalsEachIteration bool
}

// Stats counts what the compiler produced.
type Stats struct {
	Events       int // executable events compiled, including linked ones
	Skipped      int // disabled, comment and unknown events dropped
	Instructions int
}

// HasErrors reports whether any diagnostic has error severity.
func (p *Procedure) HasErrors() bool {
	for _, d := range p.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Block is an ordered list of nodes forming one sibling list. Else chains
// never cross a block boundary.
type Block struct {
	Nodes []Node
}

// Node is a compiled event. The set of implementations is closed.
type Node interface {
	Head() *Header
	node()
}

// Header holds what every compiled event has.
type Header struct {
	Path  string // dotted position in its sheet, e.g. "0.6.1"
	Sheet string // sheet the event comes from; differs from the procedure's inside links
	ID    events.ID

	// Frame holds the event's locals. It is nil when the event has none,
	// and no runtime frame is pushed for it then.
	Frame *scope.Frame

	Conditions []*Instruction
	Actions    []*Instruction
	Sub        *Block
}

func (h *Header) Head() *Header { return h }

// StandardNode runs its actions and sub-events when its conditions hold, and
// starts a new Else chain. Else events that cannot attach to a chain are
// compiled to a StandardNode with DetachedElse set.
type StandardNode struct {
	Header
	DetachedElse bool
}

// ElseNode runs only when no earlier event of its chain matched.
type ElseNode struct {
	Header
	Anchor string // path of the event it attaches to
}

// RepeatNode evaluates Count once and runs its body that many times.
type RepeatNode struct {
	Header
	Count expr.Node
	Index *expr.VarRef // nil when no index variable is named
}

// WhileNode runs its body as long as While holds.
type WhileNode struct {
	Header
	While []*Instruction
	Index *expr.VarRef
}

// ForEachNode runs its body once per picked instance of Object, with only
// that instance picked.
type ForEachNode struct {
	Header
	Object string
	Index  *expr.VarRef
}

// ForEachChildNode runs its body once per child of Iterable.
type ForEachChildNode struct {
	Header
	Iterable *expr.VarRef
	Value    *expr.VarRef
	Key      *expr.VarRef
	Index    *expr.VarRef
}

// GroupNode runs its sub-events unconditionally.
type GroupNode struct {
	Header
	Name string
}

// LinkNode splices the events of another sheet. Sub holds them; it is empty
// when the link could not be resolved.
type LinkNode struct {
	Header
	Target string
}

func (*StandardNode) node()     {}
func (*ElseNode) node()         {}
func (*RepeatNode) node()       {}
func (*WhileNode) node()        {}
func (*ForEachNode) node()      {}
func (*ForEachChildNode) node() {}
func (*GroupNode) node()        {}
func (*LinkNode) node()         {}

// Param is a compiled instruction parameter.
type Param struct {
	Type metadata.ParamType
	Raw  string
	Expr expr.Node    // expression parameters
	Var  *expr.VarRef // variable parameters
}

// Instruction is a compiled condition or action.
type Instruction struct {
	Type     string
	Meta     *metadata.Instruction // nil for unknown instructions
	Inverted bool
	Params   []Param
	Sub      []*Instruction
}

// Known reports whether the instruction type was found in the registry.
func (in *Instruction) Known() bool { return in.Meta != nil }

// Object returns the object an object instruction applies to, or "".
func (in *Instruction) Object() string {
	if in.Meta == nil || !in.Meta.Object || len(in.Params) == 0 {
		return ""
	}
	return in.Params[0].Raw
}
