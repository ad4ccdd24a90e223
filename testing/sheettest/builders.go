// Package sheettest builds event sheets and scenes for tests, and runs them
// through the compiler and executor.
package sheettest

import (
	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/core/variable"
)

// Option configures an event being built.
type Option func(*events.Tree)

// If sets the conditions.
func If(in ...events.Instruction) Option {
	return func(t *events.Tree) { t.Event.Conditions = append(t.Event.Conditions, in...) }
}

// Do sets the actions.
func Do(in ...events.Instruction) Option {
	return func(t *events.Tree) { t.Event.Actions = append(t.Event.Actions, in...) }
}

// Locals declares local variables.
func Locals(d ...events.VariableDecl) Option {
	return func(t *events.Tree) { t.Event.Variables = append(t.Event.Variables, d...) }
}

// Sub adds sub-events.
func Sub(children ...events.Tree) Option {
	return func(t *events.Tree) { t.Events = append(t.Events, children...) }
}

// Index names the loop index variable.
func Index(name string) Option {
	return func(t *events.Tree) { t.Event.LoopIndexVariable = name }
}

// Disabled disables the event.
func Disabled() Option {
	return func(t *events.Tree) { t.Event.Disabled = true }
}

// IncludeGroup makes a link splice only the named top-level group.
func IncludeGroup(name string) Option {
	return func(t *events.Tree) { t.Event.Include = events.LinkInclude{Mode: events.IncludeGroup, Group: name} }
}

// IncludeRange makes a link splice top-level events start..end.
func IncludeRange(start, end int) Option {
	return func(t *events.Tree) {
		t.Event.Include = events.LinkInclude{Mode: events.IncludeRange, Start: start, End: end}
	}
}

func build(ev *events.Event, opts []Option) events.Tree {
	t := events.Tree{Event: ev}
	for _, o := range opts {
		o(&t)
	}
	return t
}

func Standard(opts ...Option) events.Tree {
	return build(&events.Event{Kind: events.KindStandard}, opts)
}

func Else(opts ...Option) events.Tree {
	return build(&events.Event{Kind: events.KindElse}, opts)
}

func Repeat(count string, opts ...Option) events.Tree {
	return build(&events.Event{Kind: events.KindRepeat, RepeatExpression: count}, opts)
}

// While builds a While event looping on cond.
func While(cond []events.Instruction, opts ...Option) events.Tree {
	return build(&events.Event{Kind: events.KindWhile, WhileConditions: cond}, opts)
}

func ForEach(object string, opts ...Option) events.Tree {
	return build(&events.Event{Kind: events.KindForEach, Object: object}, opts)
}

// ForEachChild builds a ForEachChildVariable event. Empty names are left
// unset.
func ForEachChild(iterable, value, key string, opts ...Option) events.Tree {
	return build(&events.Event{
		Kind:                      events.KindForEachChildVariable,
		IterableVariableName:      iterable,
		ValueIteratorVariableName: value,
		KeyIteratorVariableName:   key,
	}, opts)
}

func Group(name string, opts ...Option) events.Tree {
	return build(&events.Event{Kind: events.KindGroup, Name: name}, opts)
}

func Comment(text string) events.Tree {
	return build(&events.Event{Kind: events.KindComment, Comment: text}, nil)
}

func Link(target string, opts ...Option) events.Tree {
	return build(&events.Event{Kind: events.KindLink, Target: target}, opts)
}

// Unknown builds an event of a type the compiler does not support.
func Unknown(rawType string, opts ...Option) events.Tree {
	return build(&events.Event{Kind: events.KindUnknown, RawType: rawType}, opts)
}

// In builds an instruction.
func In(typ string, params ...string) events.Instruction {
	return events.Instruction{Type: typ, Parameters: params}
}

// Not builds an inverted instruction.
func Not(typ string, params ...string) events.Instruction {
	return events.Instruction{Type: typ, Inverted: true, Parameters: params}
}

// Combine builds a combinator condition such as And or Or.
func Combine(typ string, sub ...events.Instruction) events.Instruction {
	return events.Instruction{Type: typ, SubInstructions: sub}
}

func Number(name, value string) events.VariableDecl {
	return events.VariableDecl{Name: name, Type: variable.Number, Value: value}
}

func Text(name, value string) events.VariableDecl {
	return events.VariableDecl{Name: name, Type: variable.String, Value: value}
}

func Bool(name string, value bool) events.VariableDecl {
	v := "false"
	if value {
		v = "true"
	}
	return events.VariableDecl{Name: name, Type: variable.Boolean, Value: v}
}

func Struct(name string, children ...events.VariableDecl) events.VariableDecl {
	return events.VariableDecl{Name: name, Type: variable.Structure, Children: children}
}

// Array declares an array. Children names are ignored.
func Array(name string, children ...events.VariableDecl) events.VariableDecl {
	return events.VariableDecl{Name: name, Type: variable.Array, Children: children}
}
