package executor

import (
	"context"
	"fmt"

	"github.com/opal-lang/sheetc/core/variable"
	"github.com/opal-lang/sheetc/runtime/compiler"
	"github.com/opal-lang/sheetc/runtime/expr"
	"github.com/opal-lang/sheetc/runtime/scene"
	"github.com/opal-lang/sheetc/runtime/scope"
)

// loopRun tracks one run of a loop event.
type loopRun struct {
	e    *executor
	h    *compiler.Header
	live *scope.Live
	n    int
}

func (e *executor) startLoop(h *compiler.Header) (*loopRun, func()) {
	live, leave := e.enter(h)
	return &loopRun{e: e, h: h, live: live}, leave
}

// next is called before each iteration. It enforces cancellation and the
// iteration limit, and resets locals when the procedure asks for it.
func (l *loopRun) next(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.n++
	if l.n > l.e.config.MaxLoopIterations {
		return fmt.Errorf("%s:%s: %w (%d)", l.h.Sheet, l.h.Path, ErrLoopLimit, l.e.config.MaxLoopIterations)
	}
	if l.e.telemetry != nil {
		l.e.telemetry.Iterations++
	}
	if l.e.config.Debug >= DebugDetailed {
		l.e.recordDebugEvent("iteration", l.h.Path, fmt.Sprintf("n=%d", l.n-1))
	}
	if l.live != nil && l.n > 1 && l.e.proc.ResetLocalsEachIteration {
		l.live.Reset()
	}
	return nil
}

// setIndex stores the 0-based iteration number in the index variable.
func setIndex(ev *env, ref *expr.VarRef, i int) {
	if ref != nil {
		ev.Variable(ref).SetNumber(float64(i))
	}
}

func (e *executor) repeat(ctx context.Context, n *compiler.RepeatNode, parent *env) error {
	l, leave := e.startLoop(&n.Header)
	defer leave()
	ev := parent.clone()

	count := expr.Eval(n.Count, expr.KindNumber, ev).Num
	for i := 0; float64(i) < count; i++ {
		if err := l.next(ctx); err != nil {
			return err
		}
		setIndex(ev, n.Index, i)
		if _, err := e.body(ctx, &n.Header, ev.clone()); err != nil {
			return err
		}
	}
	return nil
}

func (e *executor) while(ctx context.Context, n *compiler.WhileNode, parent *env) error {
	l, leave := e.startLoop(&n.Header)
	defer leave()
	ev := parent.clone()

	for i := 0; ; i++ {
		if err := l.next(ctx); err != nil {
			return err
		}
		setIndex(ev, n.Index, i)
		iter := ev.clone()
		if !e.conditions(iter, n.While) {
			return nil
		}
		if _, err := e.body(ctx, &n.Header, iter); err != nil {
			return err
		}
	}
}

// forEach runs the body once per instance picked when the loop starts, with
// only that instance picked.
func (e *executor) forEach(ctx context.Context, n *compiler.ForEachNode, parent *env) error {
	l, leave := e.startLoop(&n.Header)
	defer leave()
	ev := parent.clone()

	list := ev.instances(n.Object)
	for i, inst := range list {
		if err := l.next(ctx); err != nil {
			return err
		}
		setIndex(ev, n.Index, i)
		iter := ev.clone()
		iter.pick(n.Object, []*scene.Instance{inst})
		if _, err := e.body(ctx, &n.Header, iter); err != nil {
			return err
		}
	}
	return nil
}

// forEachChild iterates the keys the iterable has when the loop starts.
// Children removed by the body are skipped. The value iterator receives a
// copy of each child; the key iterator a string for structures and a
// number for arrays.
func (e *executor) forEachChild(ctx context.Context, n *compiler.ForEachChildNode, parent *env) error {
	if n.Iterable == nil {
		return nil
	}
	l, leave := e.startLoop(&n.Header)
	defer leave()
	ev := parent.clone()

	iterable := ev.Variable(n.Iterable)
	isArray := iterable.Type() == variable.Array
	for i, key := range iterable.Keys() {
		if !iterable.HasChild(key) {
			continue
		}
		if err := l.next(ctx); err != nil {
			return err
		}
		if n.Value != nil {
			ev.Variable(n.Value).Assign(iterable.Child(key))
		}
		if n.Key != nil {
			k := ev.Variable(n.Key)
			if isArray {
				k.SetNumber(float64(i))
			} else {
				k.SetString(key)
			}
		}
		setIndex(ev, n.Index, i)
		if _, err := e.body(ctx, &n.Header, ev.clone()); err != nil {
			return err
		}
	}
	return nil
}
