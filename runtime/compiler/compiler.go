// Package compiler turns an events sheet into a Procedure: a tree of typed
// nodes with Else chains resolved, transparent events removed, parameters
// parsed and every variable reference bound to its storage.
//
// Compilation never fails on bad input. Unknown instructions, misplaced
// Else events, malformed expressions and unresolved links are reported as
// diagnostics and compiled to something harmless.
package compiler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/core/invariant"
	"github.com/opal-lang/sheetc/runtime/expr"
	"github.com/opal-lang/sheetc/runtime/metadata"
	"github.com/opal-lang/sheetc/runtime/scope"
)

// Logger receives compiler progress messages.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger is a Logger that discards all messages.
type noopLogger struct{}

func (noopLogger) Debug(msg string, keysAndValues ...any) {}
func (noopLogger) Info(msg string, keysAndValues ...any)  {}
func (noopLogger) Warn(msg string, keysAndValues ...any)  {}
func (noopLogger) Error(msg string, keysAndValues ...any) {}

// Options configures a compilation.
type Options struct {
	Registry *metadata.Registry // required
	Links    LinkResolver       // optional; links are unresolved without it
	Globals  scope.Globals      // scene, project and object names; optional

	ResetLocalsEachIteration bool
	Logger                   Logger
}

// ErrNoRegistry is returned when Options.Registry is nil.
var ErrNoRegistry = errors.New("no instruction registry configured")

// Compile compiles sheet.
func Compile(sheet *events.Sheet, opts Options) (*Procedure, error) {
	invariant.NotNil(sheet, "sheet")
	if opts.Registry == nil {
		return nil, ErrNoRegistry
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	digest, err := sheet.Digest()
	if err != nil {
		return nil, fmt.Errorf("failed to digest sheet %q: %w", sheet.Name, err)
	}

	c := &compiler{
		opts:     opts,
		linking:  []string{sheet.Name},
		implicit: make(map[string]bool),
		calls:    make(map[*expr.Call]*metadata.Function),
	}
	proc := &Procedure{
		Sheet:                    sheet.Name,
		SourceDigest:             digest,
		ResetLocalsEachIteration: opts.ResetLocalsEachIteration,
	}
	proc.Root = c.block(sheet, sheet.Children(events.RootID), nil)
	proc.Diagnostics = c.diags
	proc.Stats = c.stats
	proc.Calls = c.calls

	opts.Logger.Debug("compiled events sheet",
		"sheet", sheet.Name,
		"events", c.stats.Events,
		"skipped", c.stats.Skipped,
		"diagnostics", len(c.diags))
	return proc, nil
}

type compiler struct {
	opts     Options
	diags    []Diagnostic
	stats    Stats
	linking  []string // sheets being compiled, outermost first
	implicit map[string]bool
	calls    map[*expr.Call]*metadata.Function
}

// site locates an event for diagnostics.
type site struct {
	sheet string
	path  string
}

func (c *compiler) report(sev Severity, code Code, at site, suggestion, format string, args ...any) {
	d := Diagnostic{
		Severity:   sev,
		Code:       code,
		Sheet:      at.sheet,
		Path:       at.path,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	}
	c.diags = append(c.diags, d)
	if sev == SeverityInfo {
		c.opts.Logger.Debug("compile diagnostic", "diagnostic", d.String())
		return
	}
	c.opts.Logger.Warn("compile diagnostic", "diagnostic", d.String())
}

// withFrame returns path extended by f without aliasing path's array.
func withFrame(path []*scope.Frame, f *scope.Frame) []*scope.Frame {
	return append(path[:len(path):len(path)], f)
}

// block compiles one sibling list. Else chains are tracked here: anchor is
// the path of the last Standard or Else event, or "" after any other
// executable event.
func (c *compiler) block(sheet *events.Sheet, ids []events.ID, path []*scope.Frame) *Block {
	b := &Block{}
	anchor := ""
	for _, id := range ids {
		ev := sheet.Event(id)
		invariant.NotNil(ev, "event")
		at := site{sheet: sheet.Name, path: sheet.Path(id)}

		if !ev.IsExecutable() {
			c.stats.Skipped++
			if !ev.Disabled && ev.Kind == events.KindUnknown {
				c.report(SeverityWarning, CodeUnknownEvent, at, "",
					"event type %q is not supported and is ignored", ev.Type())
			}
			continue
		}
		c.stats.Events++

		var n Node
		switch ev.Kind {
		case events.KindStandard:
			n = &StandardNode{Header: c.header(sheet, id, ev, path, at)}
		case events.KindElse:
			if anchor == "" {
				c.report(SeverityWarning, CodeInvalidElse, at, "",
					"Else does not follow a Standard or Else event and runs on its own conditions")
				n = &StandardNode{Header: c.header(sheet, id, ev, path, at), DetachedElse: true}
			} else {
				n = &ElseNode{Header: c.header(sheet, id, ev, path, at), Anchor: anchor}
			}
		case events.KindRepeat:
			n = c.repeat(sheet, id, ev, path, at)
		case events.KindWhile:
			n = c.while(sheet, id, ev, path, at)
		case events.KindForEach:
			n = c.forEach(sheet, id, ev, path, at)
		case events.KindForEachChildVariable:
			n = c.forEachChild(sheet, id, ev, path, at)
		case events.KindGroup:
			n = &GroupNode{
				Header: Header{Path: at.path, Sheet: at.sheet, ID: id, Sub: c.block(sheet, sheet.Children(id), path)},
				Name:   ev.Name,
			}
		case events.KindLink:
			n = c.link(ev, id, path, at)
		default:
			invariant.Invariant(false, "unhandled executable event kind: %s", ev.Kind)
		}

		if ev.Kind == events.KindStandard || ev.Kind == events.KindElse {
			anchor = at.path
		} else {
			anchor = ""
		}
		b.Nodes = append(b.Nodes, n)
	}
	return b
}

// header compiles a Standard or Else event.
func (c *compiler) header(sheet *events.Sheet, id events.ID, ev *events.Event, path []*scope.Frame, at site) Header {
	h := Header{Path: at.path, Sheet: at.sheet, ID: id}
	inner := path
	if ev.HasVariables() {
		h.Frame = &scope.Frame{Owner: at.path, Decls: ev.Variables}
		inner = withFrame(path, h.Frame)
	}
	c.body(&h, sheet, id, ev, inner, at)
	return h
}

func (c *compiler) body(h *Header, sheet *events.Sheet, id events.ID, ev *events.Event, inner []*scope.Frame, at site) {
	h.Conditions = c.instructions(ev.Conditions, true, inner, at)
	h.Actions = c.instructions(ev.Actions, false, inner, at)
	h.Sub = c.block(sheet, sheet.Children(id), inner)
}

// loop prepares the frame of a loop event. Iterator variables are bound by
// iterator(): a name declared by the loop or an enclosing event, or an
// existing global, is written through; anything else becomes an implicit
// slot in the loop's own frame so it never leaks out of the loop.
type loop struct {
	c     *compiler
	path  []*scope.Frame
	frame *scope.Frame
}

func (c *compiler) newLoop(ev *events.Event, path []*scope.Frame, at site) *loop {
	return &loop{c: c, path: path, frame: &scope.Frame{Owner: at.path, Decls: ev.Variables}}
}

func (l *loop) iterator(name string) *expr.VarRef {
	if name == "" {
		return nil
	}
	ref := &expr.VarRef{Name: name, Bound: true}
	full := withFrame(l.path, l.frame)
	if r, ok := scope.ResolveLocal(name, full); ok {
		ref.Binding = r.Binding
		return ref
	}
	if g := l.c.opts.Globals; g != nil && (g.HasSceneVariable(name) || g.HasProjectVariable(name)) {
		ref.Binding = scope.Resolve(name, nil, g).Binding
		return ref
	}
	l.frame.Implicit = append(l.frame.Implicit, name)
	ref.Binding = scope.Binding{Storage: scope.StorageLocal, Depth: len(l.path), Slot: l.frame.Slot(name)}
	return ref
}

// finish returns the frame to store in the header and the path the loop's
// contents are compiled in.
func (l *loop) finish() (*scope.Frame, []*scope.Frame) {
	if l.frame.Len() == 0 {
		return nil, l.path
	}
	return l.frame, withFrame(l.path, l.frame)
}

func (c *compiler) repeat(sheet *events.Sheet, id events.ID, ev *events.Event, path []*scope.Frame, at site) *RepeatNode {
	l := c.newLoop(ev, path, at)
	n := &RepeatNode{Index: l.iterator(ev.LoopIndexVariable)}
	frame, inner := l.finish()
	n.Header = Header{Path: at.path, Sheet: at.sheet, ID: id, Frame: frame}
	n.Count = c.expression(ev.RepeatExpression, inner, at)
	c.body(&n.Header, sheet, id, ev, inner, at)
	return n
}

func (c *compiler) while(sheet *events.Sheet, id events.ID, ev *events.Event, path []*scope.Frame, at site) *WhileNode {
	l := c.newLoop(ev, path, at)
	n := &WhileNode{Index: l.iterator(ev.LoopIndexVariable)}
	frame, inner := l.finish()
	n.Header = Header{Path: at.path, Sheet: at.sheet, ID: id, Frame: frame}
	if len(ev.WhileConditions) == 0 {
		c.report(SeverityWarning, CodeWhileWithoutCondition, at, "",
			"While has no conditions and repeats until the iteration limit")
	}
	n.While = c.instructions(ev.WhileConditions, true, inner, at)
	c.body(&n.Header, sheet, id, ev, inner, at)
	return n
}

func (c *compiler) forEach(sheet *events.Sheet, id events.ID, ev *events.Event, path []*scope.Frame, at site) *ForEachNode {
	l := c.newLoop(ev, path, at)
	n := &ForEachNode{Object: ev.Object, Index: l.iterator(ev.LoopIndexVariable)}
	frame, inner := l.finish()
	n.Header = Header{Path: at.path, Sheet: at.sheet, ID: id, Frame: frame}
	c.body(&n.Header, sheet, id, ev, inner, at)
	return n
}

func (c *compiler) forEachChild(sheet *events.Sheet, id events.ID, ev *events.Event, path []*scope.Frame, at site) *ForEachChildNode {
	l := c.newLoop(ev, path, at)
	n := &ForEachChildNode{
		Value: l.iterator(ev.ValueIteratorVariableName),
		Key:   l.iterator(ev.KeyIteratorVariableName),
		Index: l.iterator(ev.LoopIndexVariable),
	}
	frame, inner := l.finish()
	n.Header = Header{Path: at.path, Sheet: at.sheet, ID: id, Frame: frame}
	if ev.IterableVariableName != "" {
		n.Iterable = c.variable(ev.IterableVariableName, metadata.ParamVariable, "", inner, at)
	}
	c.body(&n.Header, sheet, id, ev, inner, at)
	return n
}

// link splices the target sheet's events, compiled in the current lexical
// context.
func (c *compiler) link(ev *events.Event, id events.ID, path []*scope.Frame, at site) *LinkNode {
	n := &LinkNode{Header: Header{Path: at.path, Sheet: at.sheet, ID: id, Sub: &Block{}}, Target: ev.Target}

	if slices.Contains(c.linking, ev.Target) {
		c.report(SeverityError, CodeLinkCycle, at, "",
			"link to %q would include itself (%v)", ev.Target, append(slices.Clone(c.linking), ev.Target))
		return n
	}
	if c.opts.Links == nil {
		c.report(SeverityError, CodeUnresolvedLink, at, "", "no sheets available to resolve link to %q", ev.Target)
		return n
	}
	target, err := c.opts.Links.ResolveLink(ev.Target)
	if err != nil {
		c.report(SeverityError, CodeUnresolvedLink, at, "", "cannot resolve link: %v", err)
		return n
	}
	ids, ok := included(target, ev.Include)
	if !ok {
		c.report(SeverityError, CodeUnresolvedLink, at, "",
			"sheet %q has no group named %q", ev.Target, ev.Include.Group)
		return n
	}

	c.linking = append(c.linking, ev.Target)
	n.Sub = c.block(target, ids, path)
	c.linking = c.linking[:len(c.linking)-1]
	return n
}

// included selects the top-level events of target a link splices in.
func included(target *events.Sheet, inc events.LinkInclude) ([]events.ID, bool) {
	top := target.Children(events.RootID)
	switch inc.Mode {
	case events.IncludeGroup:
		for _, id := range top {
			ev := target.Event(id)
			if ev.Kind == events.KindGroup && ev.Name == inc.Group {
				return target.Children(id), true
			}
		}
		return nil, false
	case events.IncludeRange:
		start, end := max(inc.Start, 0), min(inc.End, len(top)-1)
		if start > end {
			return nil, true
		}
		return top[start : end+1], true
	}
	return top, true
}

// instructions compiles a condition or action list.
func (c *compiler) instructions(list []events.Instruction, isCondition bool, path []*scope.Frame, at site) []*Instruction {
	if len(list) == 0 {
		return nil
	}
	out := make([]*Instruction, 0, len(list))
	for _, src := range list {
		out = append(out, c.instruction(src, isCondition, path, at))
	}
	return out
}

func (c *compiler) instruction(src events.Instruction, isCondition bool, path []*scope.Frame, at site) *Instruction {
	c.stats.Instructions++
	in := &Instruction{Type: src.Type, Inverted: src.Inverted}

	meta, ok := c.opts.Registry.Instruction(src.Type, isCondition)
	if !ok {
		what := "action"
		if isCondition {
			what = "condition"
		}
		c.report(SeverityWarning, CodeUnknownInstruction, at, c.opts.Registry.Suggest(src.Type, isCondition),
			"unknown %s %q is skipped", what, src.Type)
		for _, raw := range src.Parameters {
			in.Params = append(in.Params, Param{Raw: raw})
		}
		return in
	}
	in.Meta = meta

	object := ""
	if meta.Object {
		object = src.Param(0)
	}
	for i, p := range meta.Params {
		raw := src.Param(i)
		param := Param{Type: p.Type, Raw: raw}
		switch {
		case p.Type.IsExpression():
			param.Expr = c.expression(raw, path, at)
		case p.Type.IsVariable():
			param.Var = c.variable(raw, p.Type, object, path, at)
		}
		in.Params = append(in.Params, param)
	}

	if meta.CanHaveSubInstructions() {
		in.Sub = c.instructions(src.SubInstructions, isCondition, path, at)
	}
	return in
}

// expression parses and binds an expression parameter. Malformed text is
// reported and compiles to a node that evaluates to zero.
func (c *compiler) expression(raw string, path []*scope.Frame, at site) expr.Node {
	n, err := expr.Parse(raw)
	if err != nil {
		c.report(SeverityError, CodeMalformedExpression, at, "", "%v", err)
		return n
	}
	c.bind(n, path, at)
	return n
}

// variable parses and binds a variable parameter.
func (c *compiler) variable(raw string, pt metadata.ParamType, object string, path []*scope.Frame, at site) *expr.VarRef {
	ref, err := expr.ParseVariable(raw)
	if err != nil {
		c.report(SeverityError, CodeMalformedExpression, at, "", "%v", err)
		// Keep a reference with the raw text as its name so the action
		// still has somewhere harmless to write.
		ref = &expr.VarRef{Name: raw}
		c.bindRef(ref, pt, object, path, at)
		return ref
	}
	c.bindRef(ref, pt, object, path, at)
	return ref
}

func (c *compiler) bindRef(ref *expr.VarRef, pt metadata.ParamType, object string, path []*scope.Frame, at site) {
	switch pt {
	case metadata.ParamSceneVariable:
		r := scope.ResolveSceneOnly(ref.Name, c.opts.Globals)
		ref.Binding = r.Binding
		if r.Implicit {
			c.noteImplicit(ref.Name, at)
		}
	case metadata.ParamObjectVariable:
		ref.Binding = scope.Binding{Storage: scope.StorageObject, Object: object}
	default:
		r := scope.ResolveReference(ref.Name, len(ref.Accessors) > 0, path, c.opts.Globals)
		ref.Binding = r.Binding
		if r.Implicit {
			c.noteImplicit(ref.Name, at)
		}
	}
	ref.Bound = true
	for _, a := range ref.Accessors {
		if a.Index != nil {
			c.bind(a.Index, path, at)
		}
	}
}

func (c *compiler) noteImplicit(name string, at site) {
	key := at.sheet + "\x00" + at.path + "\x00" + name
	if c.implicit[key] {
		return
	}
	c.implicit[key] = true
	c.report(SeverityInfo, CodeImplicitVariable, at, "",
		"variable %q is not declared; a scene variable is created on first use", name)
}

// bind resolves every variable reference in n. Function arguments are bound
// according to the parameter they fill.
func (c *compiler) bind(n expr.Node, path []*scope.Frame, at site) {
	switch n := n.(type) {
	case *expr.VarRef:
		c.bindRef(n, metadata.ParamVariable, "", path, at)
	case *expr.Call:
		c.bindCall(n, path, at)
	case *expr.Binary:
		c.bind(n.Left, path, at)
		c.bind(n.Right, path, at)
	case *expr.Unary:
		c.bind(n.Operand, path, at)
	}
}

func (c *compiler) bindCall(call *expr.Call, path []*scope.Frame, at site) {
	var fn *metadata.Function
	var ok bool
	if call.Object != "" {
		fn, ok = c.opts.Registry.ObjectFunction(call.Name)
	} else {
		fn, ok = c.opts.Registry.Function(call.Name)
	}
	if ok {
		c.calls[call] = fn
	} else {
		c.report(SeverityWarning, CodeUnknownFunction, at, "",
			"unknown function %q evaluates to zero", call.QualifiedName())
	}

	for i, arg := range call.Args {
		pt := metadata.ParamExpression
		if fn != nil && i < len(fn.Params) {
			pt = fn.Params[i].Type
		}
		ref, isRef := arg.(*expr.VarRef)
		switch {
		case pt == metadata.ParamObject && isRef && len(ref.Accessors) == 0:
			// An object name, read raw.
		case pt.IsVariable() && isRef:
			c.bindRef(ref, pt, call.Object, path, at)
		default:
			c.bind(arg, path, at)
		}
	}
}
