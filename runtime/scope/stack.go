package scope

import (
	"github.com/opal-lang/sheetc/core/invariant"
	"github.com/opal-lang/sheetc/core/variable"
)

// Live is the runtime instance of a Frame.
type Live struct {
	frame *Frame
	vars  []*variable.Variable
}

// Frame returns the static frame this instance was built from.
func (l *Live) Frame() *Frame { return l.frame }

// Reset gives every slot its declared initial value again. Implicit slots
// become fresh numbers.
func (l *Live) Reset() {
	for i, d := range l.frame.Decls {
		l.vars[i] = d.Build()
	}
	for i := range l.frame.Implicit {
		l.vars[len(l.frame.Decls)+i] = variable.New()
	}
}

// Stack holds the live frames of the events currently executing, outermost
// first. Depths in a Binding index into it.
type Stack struct {
	frames []*Live
}

// Push instantiates f with fresh copies of its declared values.
func (s *Stack) Push(f *Frame) *Live {
	invariant.NotNil(f, "frame")
	l := &Live{frame: f, vars: make([]*variable.Variable, f.Len())}
	l.Reset()
	s.frames = append(s.frames, l)
	return l
}

// Pop removes the innermost frame.
func (s *Stack) Pop() {
	invariant.Precondition(len(s.frames) > 0, "pop on empty scope stack")
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the number of live frames.
func (s *Stack) Depth() int { return len(s.frames) }

// At returns the live frame at depth.
func (s *Stack) At(depth int) *Live {
	invariant.InRange(depth, 0, len(s.frames)-1, "frame depth")
	return s.frames[depth]
}

// Slot returns the variable at the given frame depth and slot.
func (s *Stack) Slot(depth, slot int) *variable.Variable {
	invariant.InRange(depth, 0, len(s.frames)-1, "frame depth")
	l := s.frames[depth]
	invariant.InRange(slot, 0, len(l.vars)-1, "frame slot")
	return l.vars[slot]
}

// Lookup finds name in the live frames, innermost first. It is used by
// callers that resolve names at run time, such as variables named by
// string expressions.
func (s *Stack) Lookup(name string) (*variable.Variable, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		l := s.frames[i]
		if slot := l.frame.Slot(name); slot >= 0 {
			return l.vars[slot], true
		}
	}
	return nil, false
}
