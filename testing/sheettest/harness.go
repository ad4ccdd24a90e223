package sheettest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/core/variable"
	"github.com/opal-lang/sheetc/runtime/builtins"
	"github.com/opal-lang/sheetc/runtime/compiler"
	"github.com/opal-lang/sheetc/runtime/executor"
	"github.com/opal-lang/sheetc/runtime/scene"
)

// SheetName is the name given to sheets built by the harness.
const SheetName = "Test"

// Harness compiles and runs events against a scene with the builtin
// instructions.
type Harness struct {
	Scene *scene.Scene
	Links compiler.MapLinks

	ResetLocalsEachIteration bool
	Config                   executor.Config
}

// New returns a harness with an empty scene holding the given scene
// variables.
func New(sceneVars ...events.VariableDecl) *Harness {
	sc := scene.New(SheetName)
	for _, d := range sceneVars {
		sc.Variables.Insert(d.Name, d.Build())
	}
	return &Harness{Scene: sc, Links: compiler.MapLinks{}}
}

// Object declares an object and creates one instance per entry of
// instances, each overriding the defaults with its own variables.
func (h *Harness) Object(name string, instances ...[]events.VariableDecl) *Harness {
	h.Scene.DeclareObject(name, nil)
	for _, vars := range instances {
		inst := h.Scene.CreateInstance(name)
		for _, d := range vars {
			inst.Variables.Insert(d.Name, d.Build())
		}
	}
	return h
}

// AddLink makes trees available to Link events as target.
func (h *Harness) AddLink(target string, trees ...events.Tree) *Harness {
	h.Links[target] = events.FromTrees(target, trees)
	return h
}

// Compile compiles trees. It fails the test on compiler errors, not on
// diagnostics.
func (h *Harness) Compile(t testing.TB, trees ...events.Tree) *compiler.Procedure {
	t.Helper()
	return h.CompileSheet(t, events.FromTrees(SheetName, trees))
}

// CompileSheet compiles an already built sheet.
func (h *Harness) CompileSheet(t testing.TB, sheet *events.Sheet) *compiler.Procedure {
	t.Helper()
	proc, err := compiler.Compile(sheet, compiler.Options{
		Registry:                 builtins.NewRegistry(),
		Links:                    h.Links,
		Globals:                  h.Scene,
		ResetLocalsEachIteration: h.ResetLocalsEachIteration,
	})
	require.NoError(t, err)
	return proc
}

// Run compiles and executes trees once and requires both to succeed.
func (h *Harness) Run(t testing.TB, trees ...events.Tree) *executor.ExecutionResult {
	t.Helper()
	res, err := h.Execute(t, trees...)
	require.NoError(t, err)
	return res
}

// Execute compiles and executes trees once and returns the execution error.
func (h *Harness) Execute(t testing.TB, trees ...events.Tree) (*executor.ExecutionResult, error) {
	t.Helper()
	proc := h.Compile(t, trees...)
	return executor.Execute(context.Background(), proc, h.Scene, h.Config)
}

// RunSheet compiles and executes sheet once and requires both to succeed.
func (h *Harness) RunSheet(t testing.TB, sheet *events.Sheet) *executor.ExecutionResult {
	t.Helper()
	res, err := executor.Execute(context.Background(), h.CompileSheet(t, sheet), h.Scene, h.Config)
	require.NoError(t, err)
	return res
}

// Var returns a scene variable, creating it if needed.
func (h *Harness) Var(name string) *variable.Variable {
	return h.Scene.Variables.Get(name)
}

// HasVar reports whether the scene has a variable, without creating it.
func (h *Harness) HasVar(name string) bool {
	return h.Scene.Variables.Has(name)
}
