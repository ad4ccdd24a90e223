// Package metadata describes the instructions and expression functions the
// compiler knows about: their parameters, how they read in a sentence and
// how they execute.
//
// A Registry is built once and is read-only afterwards. The compiler and the
// executor both consult it: the compiler to type parameters and report
// unknown instructions, the executor to run the implementations.
package metadata

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/opal-lang/sheetc/core/variable"
	"github.com/opal-lang/sheetc/runtime/expr"
	"github.com/opal-lang/sheetc/runtime/scene"
)

// ParamType says how the compiler reads a parameter's text.
type ParamType int

const (
	ParamExpression         ParamType = iota // number expression
	ParamString                              // string expression
	ParamVariable                            // variable, resolved through locals first
	ParamSceneVariable                       // variable, always in the scene container
	ParamObject                              // object name
	ParamObjectVariable                      // variable of the current object instance
	ParamOperator                            // =, +, -, *, /
	ParamRelationalOperator                  // =, !=, <, <=, >, >=
	ParamTrueOrFalse                         // True, False or Toggle
	ParamYesNo                               // yes or no
	ParamBehavior                            // behavior name
	ParamCodeOnly                            // not shown, not evaluated
)

var paramTypeNames = [...]string{
	ParamExpression:         "expression",
	ParamString:             "string",
	ParamVariable:           "variable",
	ParamSceneVariable:      "scenevar",
	ParamObject:             "object",
	ParamObjectVariable:     "objectvar",
	ParamOperator:           "operator",
	ParamRelationalOperator: "relationalOperator",
	ParamTrueOrFalse:        "trueorfalse",
	ParamYesNo:              "yesorno",
	ParamBehavior:           "behavior",
	ParamCodeOnly:           "codeOnly",
}

func (p ParamType) String() string {
	if p < 0 || int(p) >= len(paramTypeNames) {
		return "unknown"
	}
	return paramTypeNames[p]
}

// IsExpression reports whether the parameter text is parsed as an expression.
func (p ParamType) IsExpression() bool {
	return p == ParamExpression || p == ParamString
}

// IsVariable reports whether the parameter names a variable.
func (p ParamType) IsVariable() bool {
	return p == ParamVariable || p == ParamSceneVariable || p == ParamObjectVariable
}

// Param describes one instruction or function parameter.
type Param struct {
	Type        ParamType
	Description string
}

// Args gives an implementation access to its evaluated parameters.
type Args interface {
	Number(i int) float64
	String(i int) string
	// Raw returns the parameter text unevaluated, as for operators.
	Raw(i int) string
	// Variable returns the variable a variable parameter designates.
	Variable(i int) *variable.Variable
	// Instance is the object instance an object instruction is applied to,
	// or nil.
	Instance() *scene.Instance
	Scene() *scene.Scene
	// Instances returns the picked instances of an object.
	Instances(object string) []*scene.Instance
}

// Combinator marks the condition types that combine sub-instructions.
type Combinator int

const (
	CombineNone Combinator = iota
	CombineAnd
	CombineOr
	CombineNot
)

// Instruction is the metadata of a condition or an action.
type Instruction struct {
	Type     string
	Sentence string // with _PARAM0_, _PARAM1_, ... placeholders
	Params   []Param

	// Object is set when parameter 0 names an object. Such conditions test
	// and such actions apply to each picked instance separately.
	Object bool

	Combinator Combinator

	// Exactly one of Condition or Action is set for instructions that can
	// run. Neither is set for instructions known only by name.
	Condition func(Args) bool
	Action    func(Args)
}

// CanHaveSubInstructions reports whether the instruction nests others.
func (in *Instruction) CanHaveSubInstructions() bool {
	return in.Combinator != CombineNone
}

// Function is the metadata of an expression function.
type Function struct {
	Name string
	// Object is set for functions called as Object.Name(args). The object
	// is not part of Params.
	Object  bool
	Params  []Param
	Returns expr.Kind
	Eval    func(Args) expr.Value
}

var ErrDuplicate = errors.New("already registered")

// Registry holds the known instructions and functions.
type Registry struct {
	conditions      map[string]*Instruction
	actions         map[string]*Instruction
	functions       map[string]*Function
	objectFunctions map[string]*Function
	translate       func(string) string
}

func NewRegistry() *Registry {
	return &Registry{
		conditions:      make(map[string]*Instruction),
		actions:         make(map[string]*Instruction),
		functions:       make(map[string]*Function),
		objectFunctions: make(map[string]*Function),
	}
}

func (r *Registry) AddCondition(in Instruction) error {
	return add(r.conditions, in, "condition")
}

func (r *Registry) AddAction(in Instruction) error {
	return add(r.actions, in, "action")
}

func add(m map[string]*Instruction, in Instruction, what string) error {
	if in.Type == "" {
		return fmt.Errorf("%s without a type", what)
	}
	if _, ok := m[in.Type]; ok {
		return fmt.Errorf("%s %q: %w", what, in.Type, ErrDuplicate)
	}
	m[in.Type] = &in
	return nil
}

func (r *Registry) AddFunction(fn Function) error {
	m := r.functions
	if fn.Object {
		m = r.objectFunctions
	}
	if _, ok := m[fn.Name]; ok {
		return fmt.Errorf("function %q: %w", fn.Name, ErrDuplicate)
	}
	m[fn.Name] = &fn
	return nil
}

// Condition looks up a condition by type.
func (r *Registry) Condition(typ string) (*Instruction, bool) {
	in, ok := r.conditions[typ]
	return in, ok
}

// Action looks up an action by type.
func (r *Registry) Action(typ string) (*Instruction, bool) {
	in, ok := r.actions[typ]
	return in, ok
}

// Instruction looks up a condition or an action.
func (r *Registry) Instruction(typ string, isCondition bool) (*Instruction, bool) {
	if isCondition {
		return r.Condition(typ)
	}
	return r.Action(typ)
}

// Function looks up a free function. Lookups are case-sensitive first, then
// case-insensitive, matching how names are written in expressions.
func (r *Registry) Function(name string) (*Function, bool) {
	return lookupFunction(r.functions, name)
}

// ObjectFunction looks up a function called on an object.
func (r *Registry) ObjectFunction(name string) (*Function, bool) {
	return lookupFunction(r.objectFunctions, name)
}

func lookupFunction(m map[string]*Function, name string) (*Function, bool) {
	if fn, ok := m[name]; ok {
		return fn, true
	}
	// Namespaced names such as MathematicalTools::abs resolve to abs.
	if i := strings.LastIndex(name, "::"); i >= 0 {
		if fn, ok := m[name[i+2:]]; ok {
			return fn, true
		}
	}
	for k, fn := range m {
		if strings.EqualFold(k, name) {
			return fn, true
		}
	}
	return nil, false
}

// Types returns the registered condition or action types, sorted.
func (r *Registry) Types(isCondition bool) []string {
	m := r.actions
	if isCondition {
		m = r.conditions
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Suggest returns the registered type closest to an unknown one, or "".
func (r *Registry) Suggest(typ string, isCondition bool) string {
	candidates := r.Types(isCondition)
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(typ, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	// Typos are not subsequences; fall back to edit distance.
	best, bestDist := "", len(typ)/3+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(typ), strings.ToLower(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// SetTranslator installs a function applied to sentences by Sentence.
func (r *Registry) SetTranslator(fn func(string) string) {
	r.translate = fn
}

// Sentence returns the sentence of in, translated when a translator is set.
func (r *Registry) Sentence(in *Instruction) string {
	if r.translate != nil {
		return r.translate(in.Sentence)
	}
	return in.Sentence
}

// FormatSentence replaces _PARAMn_ placeholders with parameter text. Missing
// parameters become empty.
func FormatSentence(sentence string, params []string) string {
	var b strings.Builder
	for {
		start := strings.Index(sentence, "_PARAM")
		if start < 0 {
			b.WriteString(sentence)
			return b.String()
		}
		rest := sentence[start+len("_PARAM"):]
		end := strings.IndexByte(rest, '_')
		n, err := strconv.Atoi(rest[:max(end, 0)])
		if end <= 0 || err != nil {
			b.WriteString(sentence[:start+len("_PARAM")])
			sentence = rest
			continue
		}
		b.WriteString(sentence[:start])
		if n < len(params) {
			b.WriteString(params[n])
		}
		sentence = rest[end+1:]
	}
}
