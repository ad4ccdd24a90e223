// Package builtins registers the standard conditions, actions and expression
// functions: variable manipulation, comparisons, condition combinators and
// the object instructions events commonly use.
package builtins

import (
	"strings"

	"github.com/opal-lang/sheetc/core/invariant"
	"github.com/opal-lang/sheetc/core/variable"
	"github.com/opal-lang/sheetc/runtime/metadata"
)

// Type names of the condition combinators.
const (
	TypeAnd = "BuiltinCommonInstructions::And"
	TypeOr  = "BuiltinCommonInstructions::Or"
	TypeNot = "BuiltinCommonInstructions::Not"
)

// shorthand for parameter lists
func params(types ...metadata.ParamType) []metadata.Param {
	out := make([]metadata.Param, len(types))
	for i, t := range types {
		out[i] = metadata.Param{Type: t}
	}
	return out
}

const (
	pExpr    = metadata.ParamExpression
	pString  = metadata.ParamString
	pVar     = metadata.ParamVariable
	pScene   = metadata.ParamSceneVariable
	pObject  = metadata.ParamObject
	pObjVar  = metadata.ParamObjectVariable
	pOp      = metadata.ParamOperator
	pRelOp   = metadata.ParamRelationalOperator
	pBool    = metadata.ParamTrueOrFalse
	pYesNo   = metadata.ParamYesNo
	pBehav   = metadata.ParamBehavior
	pCode    = metadata.ParamCodeOnly
)

var conditions = []metadata.Instruction{
	{
		Type:       TypeAnd,
		Sentence:   "If all of these conditions are true:",
		Combinator: metadata.CombineAnd,
	},
	{
		Type:       TypeOr,
		Sentence:   "If one of these conditions is true:",
		Combinator: metadata.CombineOr,
	},
	{
		Type:       TypeNot,
		Sentence:   "Invert the logical result of these conditions:",
		Combinator: metadata.CombineNot,
	},
	{
		Type:     "VarScene",
		Sentence: "The number of scene variable _PARAM0_ _PARAM1_ _PARAM2_",
		Params:   params(pScene, pRelOp, pExpr),
		Condition: func(a metadata.Args) bool {
			return compareNumbers(a.Variable(0).Number(), a.Raw(1), a.Number(2))
		},
	},
	{
		Type:     "VarSceneTxt",
		Sentence: "The text of scene variable _PARAM0_ _PARAM1_ _PARAM2_",
		Params:   params(pScene, pRelOp, pString),
		Condition: func(a metadata.Args) bool {
			return compareStrings(a.Variable(0).String(), a.Raw(1), a.String(2))
		},
	},
	{
		Type:     "NumberVariable",
		Sentence: "The variable _PARAM0_ _PARAM1_ _PARAM2_",
		Params:   params(pVar, pRelOp, pExpr),
		Condition: func(a metadata.Args) bool {
			return compareNumbers(a.Variable(0).Number(), a.Raw(1), a.Number(2))
		},
	},
	{
		Type:     "StringVariable",
		Sentence: "The text of variable _PARAM0_ _PARAM1_ _PARAM2_",
		Params:   params(pVar, pRelOp, pString),
		Condition: func(a metadata.Args) bool {
			return compareStrings(a.Variable(0).String(), a.Raw(1), a.String(2))
		},
	},
	{
		Type:     "BooleanVariable",
		Sentence: "The boolean value of variable _PARAM0_ is _PARAM1_",
		Params:   params(pVar, pBool, pYesNo),
		Condition: func(a metadata.Args) bool {
			return a.Variable(0).Bool() == parseTrueOrFalse(a.Raw(1))
		},
	},
	{
		Type:     "VariableChildExists2",
		Sentence: "Child _PARAM1_ exists in variable _PARAM0_",
		Params:   params(pVar, pString),
		Condition: func(a metadata.Args) bool {
			return a.Variable(0).HasChild(a.String(1))
		},
	},
	{
		Type:     "CompareNumbers",
		Sentence: "_PARAM0_ _PARAM1_ _PARAM2_",
		Params:   params(pExpr, pRelOp, pExpr),
		Condition: func(a metadata.Args) bool {
			return compareNumbers(a.Number(0), a.Raw(1), a.Number(2))
		},
	},
	{
		Type:     "CompareStrings",
		Sentence: "_PARAM0_ _PARAM1_ _PARAM2_",
		Params:   params(pString, pRelOp, pString),
		Condition: func(a metadata.Args) bool {
			return compareStrings(a.String(0), a.Raw(1), a.String(2))
		},
	},
	{
		Type:     "VarObjet",
		Sentence: "The variable _PARAM1_ of _PARAM0_ _PARAM2_ _PARAM3_",
		Params:   params(pObject, pObjVar, pRelOp, pExpr),
		Object:   true,
		Condition: func(a metadata.Args) bool {
			return compareNumbers(a.Variable(1).Number(), a.Raw(2), a.Number(3))
		},
	},
	{
		Type:     "VarObjetTxt",
		Sentence: "The text of variable _PARAM1_ of _PARAM0_ _PARAM2_ _PARAM3_",
		Params:   params(pObject, pObjVar, pRelOp, pString),
		Object:   true,
		Condition: func(a metadata.Args) bool {
			return compareStrings(a.Variable(1).String(), a.Raw(2), a.String(3))
		},
	},
	{
		Type:     "Visible",
		Sentence: "_PARAM0_ is visible",
		Params:   params(pObject),
		Object:   true,
		Condition: func(a metadata.Args) bool {
			return !a.Instance().Hidden
		},
	},
	{
		Type:     "Animation",
		Sentence: "The number of the animation of _PARAM0_ _PARAM1_ _PARAM2_",
		Params:   params(pObject, pRelOp, pExpr),
		Object:   true,
		Condition: func(a metadata.Args) bool {
			return compareNumbers(a.Instance().Animation, a.Raw(1), a.Number(2))
		},
	},
	{
		// Provided by an extension: known for display, never true here.
		Type:     "PlatformBehavior::IsFalling",
		Sentence: "_PARAM0_ is falling",
		Params:   params(pObject, pBehav),
		Object:   true,
	},
}

var actions = []metadata.Instruction{
	{
		Type:     "ModVarScene",
		Sentence: "Change the scene variable _PARAM0_: _PARAM1_ _PARAM2_",
		Params:   params(pScene, pOp, pExpr),
		Action: func(a metadata.Args) {
			v := a.Variable(0)
			v.SetNumber(applyNumber(v.Number(), a.Raw(1), a.Number(2)))
		},
	},
	{
		Type:     "ModVarSceneTxt",
		Sentence: "Change the text of scene variable _PARAM0_: _PARAM1_ _PARAM2_",
		Params:   params(pScene, pOp, pString),
		Action: func(a metadata.Args) {
			v := a.Variable(0)
			v.SetString(applyString(v.String(), a.Raw(1), a.String(2)))
		},
	},
	{
		Type:     "SetNumberVariable",
		Sentence: "Change the variable _PARAM0_: _PARAM1_ _PARAM2_",
		Params:   params(pVar, pOp, pExpr),
		Action: func(a metadata.Args) {
			v := a.Variable(0)
			v.SetNumber(applyNumber(v.Number(), a.Raw(1), a.Number(2)))
		},
	},
	{
		Type:     "SetStringVariable",
		Sentence: "Change the text of variable _PARAM0_: _PARAM1_ _PARAM2_",
		Params:   params(pVar, pOp, pString),
		Action: func(a metadata.Args) {
			v := a.Variable(0)
			v.SetString(applyString(v.String(), a.Raw(1), a.String(2)))
		},
	},
	{
		Type:     "SetBooleanVariable",
		Sentence: "Change the boolean value of variable _PARAM0_: _PARAM1_",
		Params:   params(pVar, pBool),
		Action: func(a metadata.Args) {
			v := a.Variable(0)
			if strings.EqualFold(strings.TrimSpace(a.Raw(1)), "toggle") {
				v.SetBool(!v.Bool())
				return
			}
			v.SetBool(parseTrueOrFalse(a.Raw(1)))
		},
	},
	{
		Type:     "PushNumber",
		Sentence: "Add value _PARAM1_ to array variable _PARAM0_",
		Params:   params(pVar, pExpr),
		Action: func(a metadata.Args) {
			a.Variable(0).Push(variable.NewNumber(a.Number(1)))
		},
	},
	{
		Type:     "PushString",
		Sentence: "Add text _PARAM1_ to array variable _PARAM0_",
		Params:   params(pVar, pString),
		Action: func(a metadata.Args) {
			a.Variable(0).Push(variable.NewString(a.String(1)))
		},
	},
	{
		Type:     "PushBoolean",
		Sentence: "Add _PARAM1_ to array variable _PARAM0_",
		Params:   params(pVar, pBool),
		Action: func(a metadata.Args) {
			a.Variable(0).Push(variable.NewBoolean(parseTrueOrFalse(a.Raw(1))))
		},
	},
	{
		Type:     "PushVariable",
		Sentence: "Add variable _PARAM1_ to array variable _PARAM0_",
		Params:   params(pVar, pVar),
		Action: func(a metadata.Args) {
			// Read the source first: it may be a child of the array.
			src := a.Variable(1).Clone()
			a.Variable(0).Push(src)
		},
	},
	{
		Type:     "RemoveVariableChild",
		Sentence: "Remove child _PARAM1_ from variable _PARAM0_",
		Params:   params(pVar, pString),
		Action: func(a metadata.Args) {
			a.Variable(0).RemoveChild(a.String(1))
		},
	},
	{
		Type:     "ClearVariableChildren",
		Sentence: "Clear children from variable _PARAM0_",
		Params:   params(pVar),
		Action: func(a metadata.Args) {
			a.Variable(0).ClearChildren()
		},
	},
	{
		Type:     "ModVarObjet",
		Sentence: "Change the variable _PARAM1_ of _PARAM0_: _PARAM2_ _PARAM3_",
		Params:   params(pObject, pObjVar, pOp, pExpr),
		Object:   true,
		Action: func(a metadata.Args) {
			v := a.Variable(1)
			v.SetNumber(applyNumber(v.Number(), a.Raw(2), a.Number(3)))
		},
	},
	{
		Type:     "ModVarObjetTxt",
		Sentence: "Change the text of variable _PARAM1_ of _PARAM0_: _PARAM2_ _PARAM3_",
		Params:   params(pObject, pObjVar, pOp, pString),
		Object:   true,
		Action: func(a metadata.Args) {
			v := a.Variable(1)
			v.SetString(applyString(v.String(), a.Raw(2), a.String(3)))
		},
	},
	{
		Type:     "Show",
		Sentence: "Show _PARAM0_",
		Params:   params(pObject, pCode),
		Object:   true,
		Action: func(a metadata.Args) {
			a.Instance().Hidden = false
		},
	},
	{
		Type:     "Cache",
		Sentence: "Hide _PARAM0_",
		Params:   params(pObject, pCode),
		Object:   true,
		Action: func(a metadata.Args) {
			a.Instance().Hidden = true
		},
	},
	{
		Type:     "ChangeAnimation",
		Sentence: "Change the number of the animation of _PARAM0_: _PARAM1_ _PARAM2_",
		Params:   params(pObject, pOp, pExpr),
		Object:   true,
		Action: func(a metadata.Args) {
			inst := a.Instance()
			inst.Animation = applyNumber(inst.Animation, a.Raw(1), a.Number(2))
		},
	},
}

// Register adds every builtin to r.
func Register(r *metadata.Registry) error {
	for _, in := range conditions {
		if err := r.AddCondition(in); err != nil {
			return err
		}
	}
	for _, in := range actions {
		if err := r.AddAction(in); err != nil {
			return err
		}
	}
	for _, fn := range functions {
		if err := r.AddFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the builtins.
func NewRegistry() *metadata.Registry {
	r := metadata.NewRegistry()
	invariant.ExpectNoError(Register(r), "registering builtins")
	return r
}
