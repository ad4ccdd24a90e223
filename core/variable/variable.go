// Package variable implements the runtime values manipulated by events.
//
// A Variable is a number, string, boolean, structure or array. Structures keep
// their children in insertion order and arrays in index order, so iteration
// and JSON output are deterministic. Reading a child that does not exist
// creates it, the same way the game runtime does.
package variable

import (
	"strconv"
	"strings"
)

// Type is the dynamic type of a Variable.
type Type int

const (
	Number Type = iota
	String
	Boolean
	Structure
	Array
)

var typeNames = [...]string{
	Number:    "number",
	String:    "string",
	Boolean:   "boolean",
	Structure: "structure",
	Array:     "array",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// IsCollection reports whether values of this type have children.
func (t Type) IsCollection() bool {
	return t == Structure || t == Array
}

// ParseType maps a serialized type name to a Type.
// Matching is case-insensitive; "bool" is accepted for boolean.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(s) {
	case "number", "":
		return Number, true
	case "string":
		return String, true
	case "boolean", "bool":
		return Boolean, true
	case "structure":
		return Structure, true
	case "array":
		return Array, true
	}
	return Number, false
}

// Variable is a dynamically typed value with optional children.
type Variable struct {
	typ Type
	num float64
	str string
	b   bool

	keys     []string
	children map[string]*Variable
	items    []*Variable
}

// New returns a number variable holding 0.
func New() *Variable { return &Variable{} }

func NewNumber(f float64) *Variable { return &Variable{typ: Number, num: f} }

func NewString(s string) *Variable { return &Variable{typ: String, str: s} }

func NewBoolean(b bool) *Variable { return &Variable{typ: Boolean, b: b} }

func NewStructure() *Variable {
	return &Variable{typ: Structure, children: make(map[string]*Variable)}
}

func NewArray() *Variable { return &Variable{typ: Array} }

// Type returns the current dynamic type.
func (v *Variable) Type() Type { return v.typ }

// Number returns the value converted to a number.
// Strings are parsed with parseFloat semantics, collections read as 0.
func (v *Variable) Number() float64 {
	switch v.typ {
	case Number:
		return v.num
	case String:
		return ParseNumber(v.str)
	case Boolean:
		if v.b {
			return 1
		}
		return 0
	}
	return 0
}

// String returns the value converted to a string.
// Collections are converted to their JSON form.
func (v *Variable) String() string {
	switch v.typ {
	case Number:
		return FormatNumber(v.num)
	case String:
		return v.str
	case Boolean:
		if v.b {
			return "true"
		}
		return "false"
	}
	return v.JSON()
}

// Bool returns the value converted to a boolean.
func (v *Variable) Bool() bool {
	switch v.typ {
	case Number:
		return v.num != 0
	case String:
		return v.str != "" && v.str != "false" && v.str != "0"
	case Boolean:
		return v.b
	}
	return v.ChildCount() > 0
}

// SetNumber turns the variable into a number.
func (v *Variable) SetNumber(f float64) {
	v.reset(Number)
	v.num = f
}

// SetString turns the variable into a string.
func (v *Variable) SetString(s string) {
	v.reset(String)
	v.str = s
}

// SetBool turns the variable into a boolean.
func (v *Variable) SetBool(b bool) {
	v.reset(Boolean)
	v.b = b
}

func (v *Variable) reset(t Type) {
	v.typ = t
	v.num, v.str, v.b = 0, "", false
	v.keys, v.children, v.items = nil, nil, nil
	if t == Structure {
		v.children = make(map[string]*Variable)
	}
}

// CastTo converts the variable in place, keeping the primitive value where a
// conversion exists. Converting to a collection drops any primitive value.
func (v *Variable) CastTo(t Type) {
	if v.typ == t {
		return
	}
	switch t {
	case Number:
		f := v.Number()
		v.SetNumber(f)
	case String:
		s := v.String()
		v.SetString(s)
	case Boolean:
		b := v.Bool()
		v.SetBool(b)
	case Structure:
		if v.typ == Array {
			items := v.items
			v.reset(Structure)
			for i, item := range items {
				v.insert(strconv.Itoa(i), item)
			}
			return
		}
		v.reset(Structure)
	case Array:
		v.reset(Array)
	}
}

// HasChild reports whether a child exists without creating it.
func (v *Variable) HasChild(name string) bool {
	switch v.typ {
	case Structure:
		_, ok := v.children[name]
		return ok
	case Array:
		i, ok := arrayIndex(name)
		return ok && i < len(v.items)
	}
	return false
}

// Child returns the named child, creating it when missing. A primitive
// variable is turned into a structure first. On arrays the name is read as an
// index.
func (v *Variable) Child(name string) *Variable {
	if v.typ == Array {
		if i, ok := arrayIndex(name); ok {
			return v.At(i)
		}
		return New()
	}
	if v.typ != Structure {
		v.CastTo(Structure)
	}
	if c, ok := v.children[name]; ok {
		return c
	}
	c := New()
	v.insert(name, c)
	return c
}

// SetChild replaces or appends a named child.
func (v *Variable) SetChild(name string, child *Variable) {
	if v.typ == Array {
		if i, ok := arrayIndex(name); ok {
			v.At(i)
			v.items[i] = child
		}
		return
	}
	if v.typ != Structure {
		v.CastTo(Structure)
	}
	if _, ok := v.children[name]; ok {
		v.children[name] = child
		return
	}
	v.insert(name, child)
}

func (v *Variable) insert(name string, child *Variable) {
	v.keys = append(v.keys, name)
	v.children[name] = child
}

// At returns the array element at index i, growing the array with zero
// numbers if needed. A non-array variable is turned into an array first.
func (v *Variable) At(i int) *Variable {
	if v.typ != Array {
		v.CastTo(Array)
	}
	if i < 0 {
		return New()
	}
	for len(v.items) <= i {
		v.items = append(v.items, New())
	}
	return v.items[i]
}

// Push appends a copy of child to the array.
func (v *Variable) Push(child *Variable) {
	if v.typ != Array {
		v.CastTo(Array)
	}
	v.items = append(v.items, child.Clone())
}

// RemoveChild removes a structure child by name or an array element by index.
func (v *Variable) RemoveChild(name string) {
	switch v.typ {
	case Structure:
		if _, ok := v.children[name]; !ok {
			return
		}
		delete(v.children, name)
		for i, k := range v.keys {
			if k == name {
				v.keys = append(v.keys[:i], v.keys[i+1:]...)
				break
			}
		}
	case Array:
		if i, ok := arrayIndex(name); ok && i < len(v.items) {
			v.items = append(v.items[:i], v.items[i+1:]...)
		}
	}
}

// ClearChildren removes every child, keeping the collection type.
func (v *Variable) ClearChildren() {
	switch v.typ {
	case Structure:
		v.keys = nil
		v.children = make(map[string]*Variable)
	case Array:
		v.items = nil
	}
}

// ChildCount returns the number of children of a collection, 0 otherwise.
func (v *Variable) ChildCount() int {
	switch v.typ {
	case Structure:
		return len(v.keys)
	case Array:
		return len(v.items)
	}
	return 0
}

// Keys returns child names: insertion order for structures, "0".."n-1" for
// arrays. The returned slice is a copy.
func (v *Variable) Keys() []string {
	switch v.typ {
	case Structure:
		return append([]string(nil), v.keys...)
	case Array:
		keys := make([]string, len(v.items))
		for i := range v.items {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}

// Clone returns a deep copy.
func (v *Variable) Clone() *Variable {
	c := &Variable{typ: v.typ, num: v.num, str: v.str, b: v.b}
	switch v.typ {
	case Structure:
		c.children = make(map[string]*Variable, len(v.children))
		c.keys = make([]string, 0, len(v.keys))
		for _, k := range v.keys {
			c.insert(k, v.children[k].Clone())
		}
	case Array:
		c.items = make([]*Variable, len(v.items))
		for i, item := range v.items {
			c.items[i] = item.Clone()
		}
	}
	return c
}

// Assign replaces the contents of v with a deep copy of other.
// References to v stay valid.
func (v *Variable) Assign(other *Variable) {
	if v == other {
		return
	}
	c := other.Clone()
	*v = *c
}

// Equal reports deep equality, including child order.
func (v *Variable) Equal(other *Variable) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case Number:
		return v.num == other.num
	case String:
		return v.str == other.str
	case Boolean:
		return v.b == other.b
	case Structure:
		if len(v.keys) != len(other.keys) {
			return false
		}
		for i, k := range v.keys {
			if other.keys[i] != k || !v.children[k].Equal(other.children[k]) {
				return false
			}
		}
		return true
	case Array:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func arrayIndex(name string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(name), 64)
	if err != nil || f < 0 || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
