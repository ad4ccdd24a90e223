// Package scene holds the state a compiled events sheet runs against: scene
// and project variables, objects and their instances.
package scene

import (
	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/core/invariant"
	"github.com/opal-lang/sheetc/core/variable"
)

// Instance is one live object instance.
type Instance struct {
	ID        int
	Object    string
	Variables *variable.Container
	Hidden    bool
	Animation float64
}

// Variable returns the named instance variable, creating it when missing.
func (i *Instance) Variable(name string) *variable.Variable {
	return i.Variables.Get(name)
}

type object struct {
	defaults  []events.VariableDecl
	instances []*Instance
}

// Scene is the mutable world events act on.
type Scene struct {
	Name      string
	Variables *variable.Container
	Project   *variable.Container

	objects map[string]*object
	order   []string
	nextID  int
}

// New returns an empty scene.
func New(name string) *Scene {
	return &Scene{
		Name:      name,
		Variables: variable.NewContainer(),
		Project:   variable.NewContainer(),
		objects:   make(map[string]*object),
	}
}

// FromDocument builds the initial scene a document describes.
func FromDocument(doc *events.Document) *Scene {
	invariant.NotNil(doc, "doc")
	name := ""
	if doc.Sheet != nil {
		name = doc.Sheet.Name
	}
	s := New(name)
	for _, d := range doc.SceneVariables {
		s.Variables.Insert(d.Name, d.Build())
	}
	for _, d := range doc.ProjectVariables {
		s.Project.Insert(d.Name, d.Build())
	}
	for _, o := range doc.Objects {
		s.DeclareObject(o.Name, o.Variables)
		for _, decl := range o.Instances {
			inst := s.CreateInstance(o.Name)
			for _, d := range decl.Variables {
				inst.Variables.Insert(d.Name, d.Build())
			}
			inst.Hidden = decl.Hidden
			inst.Animation = decl.Animation
		}
	}
	return s
}

// DeclareObject registers an object with the variables every new instance
// starts with. Declaring an existing object replaces its defaults.
func (s *Scene) DeclareObject(name string, defaults []events.VariableDecl) {
	if o, ok := s.objects[name]; ok {
		o.defaults = defaults
		return
	}
	s.objects[name] = &object{defaults: defaults}
	s.order = append(s.order, name)
}

// CreateInstance adds an instance of a declared object.
func (s *Scene) CreateInstance(objectName string) *Instance {
	o, ok := s.objects[objectName]
	invariant.Precondition(ok, "object %q is not declared", objectName)

	s.nextID++
	inst := &Instance{ID: s.nextID, Object: objectName, Variables: variable.NewContainer()}
	for _, d := range o.defaults {
		inst.Variables.Insert(d.Name, d.Build())
	}
	o.instances = append(o.instances, inst)
	return inst
}

// Instances returns the live instances of an object in creation order.
func (s *Scene) Instances(objectName string) []*Instance {
	o, ok := s.objects[objectName]
	if !ok {
		return nil
	}
	return append([]*Instance(nil), o.instances...)
}

// Objects returns declared object names in declaration order.
func (s *Scene) Objects() []string {
	return append([]string(nil), s.order...)
}

func (s *Scene) HasSceneVariable(name string) bool   { return s.Variables.Has(name) }
func (s *Scene) HasProjectVariable(name string) bool { return s.Project.Has(name) }

func (s *Scene) HasObject(name string) bool {
	_, ok := s.objects[name]
	return ok
}

// Snapshot returns the observable state as a structure:
// {"scene": {...}, "project": {...}, "objects": {"Name": [{...}, ...]}}.
func (s *Scene) Snapshot() *variable.Variable {
	root := variable.NewStructure()
	root.SetChild("scene", s.Variables.Structure())
	root.SetChild("project", s.Project.Structure())
	objects := root.Child("objects")
	objects.CastTo(variable.Structure)
	for _, name := range s.order {
		list := objects.Child(name)
		list.CastTo(variable.Array)
		for _, inst := range s.objects[name].instances {
			state := inst.Variables.Structure()
			state.SetChild("$hidden", variable.NewBoolean(inst.Hidden))
			state.SetChild("$animation", variable.NewNumber(inst.Animation))
			list.Push(state)
		}
	}
	return root
}
