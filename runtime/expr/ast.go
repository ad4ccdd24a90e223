// Package expr parses and evaluates the expressions carried by instruction
// parameters: arithmetic, string concatenation, variable references with
// child and index accessors, and function calls.
package expr

import (
	"strings"

	"github.com/opal-lang/sheetc/core/variable"
	"github.com/opal-lang/sheetc/runtime/scope"
)

// Node is an expression syntax tree node.
type Node interface {
	Pos() int
	node()
}

type NumberLit struct {
	Value    float64
	Text     string
	Position int
}

type StringLit struct {
	Value    string
	Position int
}

// Accessor is one step into a collection: ".name" sets Child, "[expr]" sets
// Index.
type Accessor struct {
	Child string
	Index Node
}

// VarRef is a reference to a variable such as Score, Player.Stats["hp"] or
// Enemy.Health. The compiler fills Binding; Bound is false until it does.
type VarRef struct {
	Name      string
	Accessors []Accessor
	Position  int

	Binding scope.Binding
	Bound   bool
}

// Call is a function call. Object is set for object functions written as
// Object.Function(args).
type Call struct {
	Object   string
	Name     string
	Args     []Node
	Position int
}

// QualifiedName returns "Object.Name" for object functions and Name
// otherwise.
func (c *Call) QualifiedName() string {
	if c.Object == "" {
		return c.Name
	}
	return c.Object + "." + c.Name
}

type Binary struct {
	Op       TokenType
	Left     Node
	Right    Node
	Position int
}

type Unary struct {
	Op       TokenType
	Operand  Node
	Position int
}

// Bad stands for input that failed to parse. It evaluates to 0 or "".
type Bad struct {
	Text     string
	Position int
}

func (n *NumberLit) Pos() int { return n.Position }
func (n *StringLit) Pos() int { return n.Position }
func (n *VarRef) Pos() int    { return n.Position }
func (n *Call) Pos() int      { return n.Position }
func (n *Binary) Pos() int    { return n.Position }
func (n *Unary) Pos() int     { return n.Position }
func (n *Bad) Pos() int       { return n.Position }

func (*NumberLit) node() {}
func (*StringLit) node() {}
func (*VarRef) node()    {}
func (*Call) node()      {}
func (*Binary) node()    {}
func (*Unary) node()     {}
func (*Bad) node()       {}

// Inspect walks n depth-first, calling fn for every node. Children are
// skipped when fn returns false.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *VarRef:
		for _, a := range n.Accessors {
			if a.Index != nil {
				Inspect(a.Index, fn)
			}
		}
	case *Call:
		for _, arg := range n.Args {
			Inspect(arg, fn)
		}
	case *Binary:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Unary:
		Inspect(n.Operand, fn)
	}
}

// Format renders n back to source form. Every binary operation is
// parenthesized.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n)
	return b.String()
}

func format(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *NumberLit:
		b.WriteString(variable.FormatNumber(n.Value))
	case *StringLit:
		variable.QuoteJSON(b, n.Value)
	case *VarRef:
		b.WriteString(n.Name)
		for _, a := range n.Accessors {
			if a.Index != nil {
				b.WriteByte('[')
				format(b, a.Index)
				b.WriteByte(']')
				continue
			}
			b.WriteByte('.')
			b.WriteString(a.Child)
		}
	case *Call:
		b.WriteString(n.QualifiedName())
		b.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, arg)
		}
		b.WriteByte(')')
	case *Binary:
		b.WriteByte('(')
		format(b, n.Left)
		b.WriteString(" " + opText(n.Op) + " ")
		format(b, n.Right)
		b.WriteByte(')')
	case *Unary:
		b.WriteString(opText(n.Op))
		format(b, n.Operand)
	case *Bad:
		b.WriteString("<bad:" + n.Text + ">")
	}
}

func opText(op TokenType) string {
	switch op {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case MULTIPLY:
		return "*"
	case DIVIDE:
		return "/"
	}
	return op.String()
}
