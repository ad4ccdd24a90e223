package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sheetc/runtime/expr"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, typ := range []string{"ModVarScene", "ModVarSceneTxt", "SetNumberVariable", "Show"} {
		require.NoError(t, r.AddAction(Instruction{Type: typ, Action: func(Args) {}}))
	}
	require.NoError(t, r.AddCondition(Instruction{
		Type:       "BuiltinCommonInstructions::And",
		Sentence:   "If all of these conditions are true:",
		Combinator: CombineAnd,
	}))
	require.NoError(t, r.AddFunction(Function{Name: "abs", Returns: expr.KindNumber}))
	require.NoError(t, r.AddFunction(Function{Name: "Variable", Object: true}))
	return r
}

func TestRegistryLookups(t *testing.T) {
	r := testRegistry(t)

	_, ok := r.Action("Show")
	assert.True(t, ok)
	_, ok = r.Condition("Show")
	assert.False(t, ok)

	and, ok := r.Instruction("BuiltinCommonInstructions::And", true)
	require.True(t, ok)
	assert.True(t, and.CanHaveSubInstructions())

	fn, ok := r.Function("MathematicalTools::abs")
	require.True(t, ok)
	assert.Equal(t, "abs", fn.Name)
	_, ok = r.Function("ABS")
	assert.True(t, ok)
	_, ok = r.Function("Variable")
	assert.False(t, ok)
	_, ok = r.ObjectFunction("Variable")
	assert.True(t, ok)

	assert.Equal(t, []string{"ModVarScene", "ModVarSceneTxt", "SetNumberVariable", "Show"}, r.Types(false))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := testRegistry(t)
	assert.ErrorIs(t, r.AddAction(Instruction{Type: "Show"}), ErrDuplicate)
	assert.ErrorIs(t, r.AddFunction(Function{Name: "abs"}), ErrDuplicate)
	assert.NoError(t, r.AddCondition(Instruction{Type: "Show"}))
	assert.Error(t, r.AddAction(Instruction{}))
}

func TestSuggest(t *testing.T) {
	r := testRegistry(t)
	tests := []struct {
		typ  string
		want string
	}{
		{"ModVarScen", "ModVarScene"},
		{"SetNumberVariabel", "SetNumberVariable"},
		{"Shw", "Show"},
		{"ThisActionDoesNotExist", ""},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Suggest(tt.typ, false))
		})
	}
	assert.Equal(t, "", NewRegistry().Suggest("Show", false))
}

func TestSentenceTranslation(t *testing.T) {
	r := testRegistry(t)
	in := &Instruction{Sentence: "Show _PARAM0_"}
	assert.Equal(t, "Show _PARAM0_", r.Sentence(in))

	r.SetTranslator(strings.ToUpper)
	assert.Equal(t, "SHOW _PARAM0_", r.Sentence(in))
}

func TestFormatSentence(t *testing.T) {
	tests := []struct {
		sentence string
		params   []string
		want     string
	}{
		{"Show _PARAM0_", []string{"Player", ""}, "Show Player"},
		{"Change _PARAM0_: _PARAM1_ _PARAM2_", []string{"A", "=", "1"}, "Change A: = 1"},
		{"_PARAM2_ then _PARAM0_", []string{"a"}, " then a"},
		{"_PARAM10_", []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "ten"}, "ten"},
		{"no params", nil, "no params"},
		{"broken _PARAMx_ stays", nil, "broken _PARAMx_ stays"},
	}
	for _, tt := range tests {
		t.Run(tt.sentence, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSentence(tt.sentence, tt.params))
		})
	}
}

func TestParamTypeClassification(t *testing.T) {
	assert.True(t, ParamString.IsExpression())
	assert.False(t, ParamOperator.IsExpression())
	assert.True(t, ParamSceneVariable.IsVariable())
	assert.True(t, ParamObjectVariable.IsVariable())
	assert.False(t, ParamObject.IsVariable())
	assert.Equal(t, "scenevar", ParamSceneVariable.String())
}
