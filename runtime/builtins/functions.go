package builtins

import (
	"math"
	"strings"
	"unicode/utf16"

	"github.com/opal-lang/sheetc/core/variable"
	"github.com/opal-lang/sheetc/runtime/expr"
	"github.com/opal-lang/sheetc/runtime/metadata"
)

func numberFn(name string, ps []metadata.Param, fn func(metadata.Args) float64) metadata.Function {
	return metadata.Function{
		Name:    name,
		Params:  ps,
		Returns: expr.KindNumber,
		Eval:    func(a metadata.Args) expr.Value { return expr.Number(fn(a)) },
	}
}

func stringFn(name string, ps []metadata.Param, fn func(metadata.Args) string) metadata.Function {
	return metadata.Function{
		Name:    name,
		Params:  ps,
		Returns: expr.KindString,
		Eval:    func(a metadata.Args) expr.Value { return expr.String(fn(a)) },
	}
}

func math1(name string, f func(float64) float64) metadata.Function {
	return numberFn(name, params(pExpr), func(a metadata.Args) float64 { return f(a.Number(0)) })
}

func math2(name string, f func(float64, float64) float64) metadata.Function {
	return numberFn(name, params(pExpr, pExpr), func(a metadata.Args) float64 { return f(a.Number(0), a.Number(1)) })
}

// round rounds half up, like Math.round.
func round(x float64) float64 { return math.Floor(x + 0.5) }

func objectFn(fn metadata.Function) metadata.Function {
	fn.Object = true
	return fn
}

var functions = []metadata.Function{
	numberFn("Variable", params(pVar), func(a metadata.Args) float64 {
		return a.Variable(0).Number()
	}),
	stringFn("VariableString", params(pVar), func(a metadata.Args) string {
		return a.Variable(0).String()
	}),
	numberFn("VariableChildCount", params(pVar), func(a metadata.Args) float64 {
		return float64(a.Variable(0).ChildCount())
	}),
	stringFn("ToJSON", params(pVar), func(a metadata.Args) string {
		return a.Variable(0).JSON()
	}),
	stringFn("ToString", params(pExpr), func(a metadata.Args) string {
		return variable.FormatNumber(a.Number(0))
	}),
	numberFn("ToNumber", params(pString), func(a metadata.Args) float64 {
		return variable.ParseNumber(a.String(0))
	}),
	numberFn("StrLength", params(pString), func(a metadata.Args) float64 {
		return float64(len(utf16.Encode([]rune(a.String(0)))))
	}),
	stringFn("UpperCase", params(pString), func(a metadata.Args) string {
		return strings.ToUpper(a.String(0))
	}),
	stringFn("LowerCase", params(pString), func(a metadata.Args) string {
		return strings.ToLower(a.String(0))
	}),
	numberFn("Count", params(pObject), func(a metadata.Args) float64 {
		return float64(len(a.Instances(a.Raw(0))))
	}),
	math1("abs", math.Abs),
	math1("floor", math.Floor),
	math1("ceil", math.Ceil),
	math1("round", round),
	math1("sqrt", math.Sqrt),
	math2("min", math.Min),
	math2("max", math.Max),
	math2("pow", math.Pow),
	math2("mod", math.Mod),

	objectFn(numberFn("Variable", params(pObjVar), func(a metadata.Args) float64 {
		return a.Variable(0).Number()
	})),
	objectFn(stringFn("VariableString", params(pObjVar), func(a metadata.Args) string {
		return a.Variable(0).String()
	})),
	objectFn(numberFn("VariableChildCount", params(pObjVar), func(a metadata.Args) float64 {
		return float64(a.Variable(0).ChildCount())
	})),
	objectFn(numberFn("Animation", nil, func(a metadata.Args) float64 {
		if inst := a.Instance(); inst != nil {
			return inst.Animation
		}
		return 0
	})),
}
