package executor

import (
	"slices"

	"github.com/opal-lang/sheetc/runtime/compiler"
	"github.com/opal-lang/sheetc/runtime/metadata"
	"github.com/opal-lang/sheetc/runtime/scene"
)

// conditions tests list in order and stops at the first false condition.
// Object conditions narrow the picking of ev.
func (e *executor) conditions(ev *env, list []*compiler.Instruction) bool {
	for _, in := range list {
		if !e.condition(ev, in) {
			return false
		}
	}
	return true
}

func (e *executor) condition(ev *env, in *compiler.Instruction) bool {
	if e.telemetry != nil {
		e.telemetry.ConditionsTested++
	}
	if !in.Known() {
		return true
	}

	switch in.Meta.Combinator {
	case metadata.CombineAnd:
		return e.conditions(ev, in.Sub) != in.Inverted
	case metadata.CombineOr:
		return e.or(ev, in.Sub) != in.Inverted
	case metadata.CombineNot:
		// Picking done by the inverted conditions is discarded.
		return !e.conditions(ev.clone(), in.Sub) != in.Inverted
	}

	if in.Meta.Object {
		return e.objectCondition(ev, in)
	}
	ok := in.Meta.Condition != nil && in.Meta.Condition(&instructionArgs{env: ev, in: in})
	return ok != in.Inverted
}

// objectCondition tests each picked instance and keeps those for which the
// condition, inverted if asked, holds.
func (e *executor) objectCondition(ev *env, in *compiler.Instruction) bool {
	object := in.Object()
	var kept []*scene.Instance
	for _, inst := range ev.instances(object) {
		ok := in.Meta.Condition != nil && in.Meta.Condition(&instructionArgs{env: ev.only(inst), in: in, inst: inst})
		if ok != in.Inverted {
			kept = append(kept, inst)
		}
	}
	ev.pick(object, kept)
	return len(kept) > 0
}

// or is true when any sub-condition is true. Each is tested from the same
// picking; the instances kept are those picked by any true branch among the
// branches that test the object.
func (e *executor) or(ev *env, list []*compiler.Instruction) bool {
	found := false
	union := make(map[string][]*scene.Instance)
	for _, in := range list {
		branch := ev.clone()
		if !e.condition(branch, in) {
			continue
		}
		found = true
		for _, object := range pickedObjects(in, nil) {
			for _, inst := range branch.instances(object) {
				if !slices.Contains(union[object], inst) {
					union[object] = append(union[object], inst)
				}
			}
		}
	}
	for object, picked := range union {
		// Keep the original order.
		var ordered []*scene.Instance
		for _, inst := range ev.instances(object) {
			if slices.Contains(picked, inst) {
				ordered = append(ordered, inst)
			}
		}
		ev.pick(object, ordered)
	}
	return found
}

// pickedObjects appends the objects whose picking in can narrow. Conditions
// under Not never narrow.
func pickedObjects(in *compiler.Instruction, out []string) []string {
	if !in.Known() {
		return out
	}
	switch in.Meta.Combinator {
	case metadata.CombineNot:
		return out
	case metadata.CombineAnd, metadata.CombineOr:
		for _, sub := range in.Sub {
			out = pickedObjects(sub, out)
		}
		return out
	}
	if in.Meta.Object && !slices.Contains(out, in.Object()) {
		out = append(out, in.Object())
	}
	return out
}

func (e *executor) actions(ev *env, list []*compiler.Instruction) {
	for _, in := range list {
		e.action(ev, in)
	}
}

// action runs in. Object actions run once per picked instance. Unknown
// actions do nothing.
func (e *executor) action(ev *env, in *compiler.Instruction) {
	if !in.Known() || in.Meta.Action == nil {
		return
	}
	if e.telemetry != nil {
		e.telemetry.ActionsRun++
	}
	if !in.Meta.Object {
		in.Meta.Action(&instructionArgs{env: ev, in: in})
		return
	}
	for _, inst := range ev.instances(in.Object()) {
		in.Meta.Action(&instructionArgs{env: ev.only(inst), in: in, inst: inst})
	}
}
