// Package scope resolves variable names against the lexical nesting of
// events and holds the runtime frames that back local variables.
//
// Resolution is static: the compiler resolves every reference once, against
// the path of frames enclosing it, and stores the resulting Binding in the
// compiled procedure. At run time the executor pushes one Frame per frame
// the compiler saw, so a Binding's depth and slot address the same variable.
package scope

import (
	"fmt"

	"github.com/opal-lang/sheetc/core/events"
)

// Storage is where a bound variable lives.
type Storage int

const (
	StorageScene Storage = iota
	StorageProject
	StorageLocal
	StorageObject
)

func (s Storage) String() string {
	switch s {
	case StorageScene:
		return "scene"
	case StorageProject:
		return "project"
	case StorageLocal:
		return "local"
	case StorageObject:
		return "object"
	}
	return "unknown"
}

// Binding is the result of resolving a name.
type Binding struct {
	Storage Storage
	Depth   int    // frame index counted from the outermost frame (StorageLocal)
	Slot    int    // variable index inside the frame (StorageLocal)
	Object  string // object name (StorageObject)

	// Qualified is set for object references written Object.Variable: the
	// head names the object and the first accessor names the variable.
	Qualified bool

	// Implicit is set when nothing declared the name. The variable is a
	// scene variable created on first use.
	Implicit bool
}

func (b Binding) String() string {
	switch b.Storage {
	case StorageLocal:
		return fmt.Sprintf("local-at-depth-%d", b.Depth)
	case StorageObject:
		return "object:" + b.Object
	}
	return b.Storage.String()
}

// Frame is the static set of locals one event introduces: its declared
// variables followed by implicit loop variables nobody declared.
type Frame struct {
	Owner    string // dotted path of the declaring event
	Decls    []events.VariableDecl
	Implicit []string
}

// Len returns the number of slots in the frame.
func (f *Frame) Len() int { return len(f.Decls) + len(f.Implicit) }

// Slot returns the slot holding name, or -1. When a name is declared twice
// the first declaration wins.
func (f *Frame) Slot(name string) int {
	for i, d := range f.Decls {
		if d.Name == name {
			return i
		}
	}
	for i, n := range f.Implicit {
		if n == name {
			return len(f.Decls) + i
		}
	}
	return -1
}

// Globals exposes the names declared outside any event.
type Globals interface {
	HasSceneVariable(name string) bool
	HasProjectVariable(name string) bool
	HasObject(name string) bool
}

// Resolution is the outcome of Resolve: where the name is stored and, for
// locals, the declaration that introduced it.
type Resolution struct {
	Binding
	Decl *events.VariableDecl // nil for globals and implicit loop variables
}

// Resolve finds the declaration name refers to from inside path, where
// path[0] is the outermost frame. Locals win innermost first, then scene
// variables, then project variables. A name found nowhere is an implicit
// scene variable.
func Resolve(name string, path []*Frame, g Globals) Resolution {
	if r, ok := ResolveLocal(name, path); ok {
		return r
	}
	if g != nil {
		if g.HasSceneVariable(name) {
			return Resolution{Binding: Binding{Storage: StorageScene}}
		}
		if g.HasProjectVariable(name) {
			return Resolution{Binding: Binding{Storage: StorageProject}}
		}
	}
	return Resolution{Binding: Binding{Storage: StorageScene, Implicit: true}}
}

// ResolveLocal searches only the frames in path, innermost first.
func ResolveLocal(name string, path []*Frame) (Resolution, bool) {
	for depth := len(path) - 1; depth >= 0; depth-- {
		f := path[depth]
		slot := f.Slot(name)
		if slot < 0 {
			continue
		}
		r := Resolution{Binding: Binding{Storage: StorageLocal, Depth: depth, Slot: slot}}
		if slot < len(f.Decls) {
			r.Decl = &f.Decls[slot]
		}
		return r, true
	}
	return Resolution{}, false
}

// ResolveReference resolves the head of a reference such as
// "Enemy.Health" or "Score". When the reference has accessors and no local
// shadows the head, an object with that name takes precedence over scene
// and project variables: the first accessor then names an object variable.
func ResolveReference(name string, hasAccessors bool, path []*Frame, g Globals) Resolution {
	if r, ok := ResolveLocal(name, path); ok {
		return r
	}
	if hasAccessors && g != nil && g.HasObject(name) {
		return Resolution{Binding: Binding{Storage: StorageObject, Object: name, Qualified: true}}
	}
	return Resolve(name, path, g)
}

// ResolveSceneOnly binds name to the scene container regardless of locals,
// for parameters that address scene variables explicitly.
func ResolveSceneOnly(name string, g Globals) Resolution {
	implicit := g == nil || !g.HasSceneVariable(name)
	return Resolution{Binding: Binding{Storage: StorageScene, Implicit: implicit}}
}

// Names is a Globals backed by plain name sets.
type Names struct {
	Scene   map[string]bool
	Project map[string]bool
	Objects map[string]bool
}

func (n Names) HasSceneVariable(name string) bool   { return n.Scene[name] }
func (n Names) HasProjectVariable(name string) bool { return n.Project[name] }
func (n Names) HasObject(name string) bool          { return n.Objects[name] }
