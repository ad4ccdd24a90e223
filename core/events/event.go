// Package events models event sheets: trees of conditions, actions and
// control-flow blocks, stored in an arena keyed by stable IDs.
package events

import (
	"github.com/google/uuid"

	"github.com/opal-lang/sheetc/core/variable"
)

// ID identifies an event for the lifetime of a sheet, across moves.
type ID = uuid.UUID

// RootID is the parent of top-level events.
var RootID = uuid.Nil

// Instruction is a condition or an action.
type Instruction struct {
	Type            string
	Inverted        bool
	Parameters      []string
	SubInstructions []Instruction
}

// Param returns parameter i, or "" when it is absent.
func (in Instruction) Param(i int) string {
	if i < 0 || i >= len(in.Parameters) {
		return ""
	}
	return in.Parameters[i]
}

// VariableDecl declares a variable with its initial value. Children are named
// for structures and positional for arrays.
type VariableDecl struct {
	Name     string
	Type     variable.Type
	Value    string
	Children []VariableDecl
}

// Build creates a fresh runtime variable holding the declared value.
func (d VariableDecl) Build() *variable.Variable {
	switch d.Type {
	case variable.String:
		return variable.NewString(d.Value)
	case variable.Boolean:
		return variable.NewBoolean(d.Value == "true" || d.Value == "1")
	case variable.Structure:
		v := variable.NewStructure()
		for _, c := range d.Children {
			v.SetChild(c.Name, c.Build())
		}
		return v
	case variable.Array:
		v := variable.NewArray()
		for i, c := range d.Children {
			*v.At(i) = *c.Build()
		}
		return v
	}
	return variable.NewNumber(variable.ParseNumber(d.Value))
}

// IncludeMode selects which part of a linked sheet a Link event splices in.
type IncludeMode int

const (
	IncludeAll IncludeMode = iota
	IncludeGroup
	IncludeRange
)

// LinkInclude configures a Link event. Start and End are inclusive top-level
// indices used by IncludeRange.
type LinkInclude struct {
	Mode  IncludeMode
	Group string
	Start int
	End   int
}

// Event is one node of a sheet. Sub-events are owned by the Sheet, not the
// Event. Which fields are meaningful depends on Kind.
type Event struct {
	ID       ID
	Kind     Kind
	RawType  string // serialized type, kept for unknown events
	Disabled bool
	Folded   bool

	Conditions []Instruction
	Actions    []Instruction
	Variables  []VariableDecl

	// Repeat
	RepeatExpression string

	// While
	WhileConditions     []Instruction
	InfiniteLoopWarning bool

	// ForEach
	Object string

	// ForEachChildVariable
	IterableVariableName      string
	ValueIteratorVariableName string
	KeyIteratorVariableName   string

	// Repeat, While, ForEach, ForEachChildVariable
	LoopIndexVariable string

	// Group
	Name   string
	Source string

	// Comment
	Comment string

	// Link
	Target  string
	Include LinkInclude
}

// Type returns the serialized type string.
func (e *Event) Type() string {
	if e.Kind == KindUnknown {
		return e.RawType
	}
	return e.Kind.WireType()
}

// IsExecutable reports whether the event takes part in execution and in Else
// chain adjacency.
func (e *Event) IsExecutable() bool {
	return !e.Disabled && e.Kind.IsExecutable()
}

// HasVariables reports whether the event declares locals it is allowed to have.
func (e *Event) HasVariables() bool {
	return e.Kind.CanHaveVariables() && len(e.Variables) > 0
}

// Clone returns a deep copy. The ID is kept.
func (e *Event) Clone() *Event {
	c := *e
	c.Conditions = cloneInstructions(e.Conditions)
	c.Actions = cloneInstructions(e.Actions)
	c.WhileConditions = cloneInstructions(e.WhileConditions)
	c.Variables = cloneDecls(e.Variables)
	return &c
}

func cloneInstructions(in []Instruction) []Instruction {
	if in == nil {
		return nil
	}
	out := make([]Instruction, len(in))
	for i, ins := range in {
		out[i] = Instruction{
			Type:            ins.Type,
			Inverted:        ins.Inverted,
			Parameters:      append([]string(nil), ins.Parameters...),
			SubInstructions: cloneInstructions(ins.SubInstructions),
		}
	}
	return out
}

func cloneDecls(in []VariableDecl) []VariableDecl {
	if in == nil {
		return nil
	}
	out := make([]VariableDecl, len(in))
	for i, d := range in {
		out[i] = d
		out[i].Children = cloneDecls(d.Children)
	}
	return out
}
