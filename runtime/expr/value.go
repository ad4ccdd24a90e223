package expr

import (
	"github.com/opal-lang/sheetc/core/invariant"
	"github.com/opal-lang/sheetc/core/variable"
)

// Kind is the type an expression is evaluated as. The same text means
// different things in each: in string context "+" concatenates.
type Kind int

const (
	KindNumber Kind = iota
	KindString
)

func (k Kind) String() string {
	if k == KindString {
		return "string"
	}
	return "number"
}

// Value is the result of evaluating an expression.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

// AsNumber converts the value with parseFloat semantics.
func (v Value) AsNumber() float64 {
	if v.Kind == KindString {
		return variable.ParseNumber(v.Str)
	}
	return v.Num
}

func (v Value) AsString() string {
	if v.Kind == KindString {
		return v.Str
	}
	return variable.FormatNumber(v.Num)
}

// As converts v to kind k.
func (v Value) As(k Kind) Value {
	if k == KindString {
		return String(v.AsString())
	}
	return Number(v.AsNumber())
}

// Env supplies variables and functions during evaluation.
type Env interface {
	// Variable returns the variable ref designates, creating it if needed.
	Variable(ref *VarRef) *variable.Variable
	// Call evaluates a function call. want is the context the call
	// appears in.
	Call(call *Call, want Kind) Value
}

// Eval evaluates n in the context of kind want.
func Eval(n Node, want Kind, env Env) Value {
	switch n := n.(type) {
	case *NumberLit:
		return Number(n.Value).As(want)
	case *StringLit:
		return String(n.Value).As(want)
	case *VarRef:
		v := env.Variable(n)
		if want == KindString {
			return String(v.String())
		}
		return Number(v.Number())
	case *Call:
		return env.Call(n, want).As(want)
	case *Unary:
		return Number(-Eval(n.Operand, KindNumber, env).Num).As(want)
	case *Binary:
		if want == KindString && n.Op == PLUS {
			return String(Eval(n.Left, KindString, env).Str + Eval(n.Right, KindString, env).Str)
		}
		l := Eval(n.Left, KindNumber, env).Num
		r := Eval(n.Right, KindNumber, env).Num
		return Number(arith(n.Op, l, r)).As(want)
	case *Bad:
		return Value{Kind: want}
	}
	invariant.Invariant(false, "unknown expression node: %T", n)
	return Value{}
}

func arith(op TokenType, l, r float64) float64 {
	switch op {
	case PLUS:
		return l + r
	case MINUS:
		return l - r
	case MULTIPLY:
		return l * r
	case DIVIDE:
		return l / r
	}
	invariant.Invariant(false, "unknown operator: %s", op)
	return 0
}

// Key evaluates an index accessor to a child name. Variables and calls keep
// their own type. Other expressions are arithmetic unless a string literal
// is involved, so MyArray[1] and MyStructure["1"] address the same key.
func Key(n Node, env Env) string {
	switch n := n.(type) {
	case *StringLit:
		return n.Value
	case *VarRef:
		return env.Variable(n).String()
	case *Call:
		return env.Call(n, KindString).AsString()
	}
	if isText(n) {
		return Eval(n, KindString, env).Str
	}
	return variable.FormatNumber(Eval(n, KindNumber, env).Num)
}

func isText(n Node) bool {
	switch n := n.(type) {
	case *StringLit:
		return true
	case *Binary:
		return n.Op == PLUS && (isText(n.Left) || isText(n.Right))
	}
	return false
}

// Walk follows ref's accessors from root, creating children on the way.
func Walk(root *variable.Variable, accessors []Accessor, env Env) *variable.Variable {
	v := root
	for _, a := range accessors {
		if a.Index != nil {
			v = v.Child(Key(a.Index, env))
			continue
		}
		v = v.Child(a.Child)
	}
	return v
}
