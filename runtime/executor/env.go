package executor

import (
	"maps"

	"github.com/opal-lang/sheetc/core/invariant"
	"github.com/opal-lang/sheetc/core/variable"
	"github.com/opal-lang/sheetc/runtime/compiler"
	"github.com/opal-lang/sheetc/runtime/expr"
	"github.com/opal-lang/sheetc/runtime/metadata"
	"github.com/opal-lang/sheetc/runtime/scene"
	"github.com/opal-lang/sheetc/runtime/scope"
)

// env is the context of one event: the executor plus the instances picked
// so far. An object missing from picked has all its instances picked.
type env struct {
	x      *executor
	picked map[string][]*scene.Instance
}

func newEnv(x *executor, picked map[string][]*scene.Instance) *env {
	return &env{x: x, picked: maps.Clone(picked)}
}

// clone returns an env with its own picking, starting from ev's. Picked
// slices are replaced, never modified, so they can be shared.
func (ev *env) clone() *env { return newEnv(ev.x, ev.picked) }

// only returns a copy of ev with just inst picked for its object.
func (ev *env) only(inst *scene.Instance) *env {
	c := ev.clone()
	if c.picked == nil {
		c.picked = make(map[string][]*scene.Instance)
	}
	c.picked[inst.Object] = []*scene.Instance{inst}
	return c
}

func (ev *env) pick(object string, list []*scene.Instance) {
	if ev.picked == nil {
		ev.picked = make(map[string][]*scene.Instance)
	}
	ev.picked[object] = list
}

func (ev *env) instances(object string) []*scene.Instance {
	if list, ok := ev.picked[object]; ok {
		return list
	}
	return ev.x.scene.Instances(object)
}

// first returns the first picked instance of object, or nil.
func (ev *env) first(object string) *scene.Instance {
	if list := ev.instances(object); len(list) > 0 {
		return list[0]
	}
	return nil
}

// Variable implements expr.Env. References to an object with no picked
// instance get a detached variable, so reads give zero and writes are lost.
func (ev *env) Variable(ref *expr.VarRef) *variable.Variable {
	invariant.Precondition(ref.Bound, "variable reference %q was not bound", ref.Name)
	b := ref.Binding

	var root *variable.Variable
	accessors := ref.Accessors
	switch b.Storage {
	case scope.StorageLocal:
		root = ev.x.stack.Slot(b.Depth, b.Slot)
	case scope.StorageScene:
		root = ev.x.scene.Variables.Get(ref.Name)
	case scope.StorageProject:
		root = ev.x.scene.Project.Get(ref.Name)
	case scope.StorageObject:
		inst := ev.first(b.Object)
		if inst == nil {
			return variable.New()
		}
		if !b.Qualified {
			root = inst.Variable(ref.Name)
			break
		}
		if len(accessors) == 0 {
			return variable.New()
		}
		root = inst.Variable(accessorKey(accessors[0], ev))
		accessors = accessors[1:]
	default:
		invariant.Invariant(false, "unknown storage: %s", b.Storage)
	}
	return expr.Walk(root, accessors, ev)
}

func accessorKey(a expr.Accessor, ev *env) string {
	if a.Index != nil {
		return expr.Key(a.Index, ev)
	}
	return a.Child
}

// Call implements expr.Env.
func (ev *env) Call(call *expr.Call, want expr.Kind) expr.Value {
	fn, ok := ev.x.proc.Calls[call]
	if !ok || fn.Eval == nil {
		return expr.Value{Kind: want}
	}
	return fn.Eval(&callArgs{env: ev, call: call})
}

// instructionArgs gives an instruction access to its parameters.
type instructionArgs struct {
	env  *env
	in   *compiler.Instruction
	inst *scene.Instance
}

var _ metadata.Args = (*instructionArgs)(nil)

func (a *instructionArgs) param(i int) (compiler.Param, bool) {
	if i < 0 || i >= len(a.in.Params) {
		return compiler.Param{}, false
	}
	return a.in.Params[i], true
}

func (a *instructionArgs) Number(i int) float64 {
	p, ok := a.param(i)
	if !ok {
		return 0
	}
	if p.Expr == nil {
		return variable.ParseNumber(p.Raw)
	}
	return expr.Eval(p.Expr, expr.KindNumber, a.env).Num
}

func (a *instructionArgs) String(i int) string {
	p, ok := a.param(i)
	if !ok {
		return ""
	}
	if p.Expr == nil {
		return p.Raw
	}
	return expr.Eval(p.Expr, expr.KindString, a.env).Str
}

func (a *instructionArgs) Raw(i int) string {
	p, _ := a.param(i)
	return p.Raw
}

func (a *instructionArgs) Variable(i int) *variable.Variable {
	p, ok := a.param(i)
	if !ok || p.Var == nil {
		return variable.New()
	}
	return a.env.Variable(p.Var)
}

func (a *instructionArgs) Instance() *scene.Instance            { return a.inst }
func (a *instructionArgs) Scene() *scene.Scene                  { return a.env.x.scene }
func (a *instructionArgs) Instances(o string) []*scene.Instance { return a.env.instances(o) }

// callArgs gives a function access to its arguments.
type callArgs struct {
	env  *env
	call *expr.Call
}

var _ metadata.Args = (*callArgs)(nil)

func (a *callArgs) arg(i int) expr.Node {
	if i < 0 || i >= len(a.call.Args) {
		return nil
	}
	return a.call.Args[i]
}

func (a *callArgs) Number(i int) float64 {
	n := a.arg(i)
	if n == nil {
		return 0
	}
	return expr.Eval(n, expr.KindNumber, a.env).Num
}

func (a *callArgs) String(i int) string {
	n := a.arg(i)
	if n == nil {
		return ""
	}
	return expr.Eval(n, expr.KindString, a.env).Str
}

// Raw returns a bare name as written, or the formatted argument.
func (a *callArgs) Raw(i int) string {
	n := a.arg(i)
	if n == nil {
		return ""
	}
	if ref, ok := n.(*expr.VarRef); ok && len(ref.Accessors) == 0 {
		return ref.Name
	}
	return expr.Format(n)
}

func (a *callArgs) Variable(i int) *variable.Variable {
	ref, ok := a.arg(i).(*expr.VarRef)
	if !ok || !ref.Bound {
		return variable.New()
	}
	return a.env.Variable(ref)
}

func (a *callArgs) Instance() *scene.Instance {
	if a.call.Object == "" {
		return nil
	}
	return a.env.first(a.call.Object)
}

func (a *callArgs) Scene() *scene.Scene                  { return a.env.x.scene }
func (a *callArgs) Instances(o string) []*scene.Instance { return a.env.instances(o) }
