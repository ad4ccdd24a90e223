package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opal-lang/sheetc/runtime/builtins"
	st "github.com/opal-lang/sheetc/testing/sheettest"
)

// hp returns the HP of every Enemy instance, in creation order.
func hp(h *st.Harness) []float64 {
	var out []float64
	for _, inst := range h.Scene.Instances("Enemy") {
		out = append(out, inst.Variable("HP").Number())
	}
	return out
}

func enemies(values ...int) *st.Harness {
	return st.New().Object("Enemy", instances("HP", values...)...)
}

func TestObjectConditionsPickInstances(t *testing.T) {
	tests := []struct {
		name      string
		op        string
		threshold string
		inv       bool
		want      []float64
	}{
		{name: "filter", op: ">", threshold: "2", want: []float64{1, 0, 0}},
		{name: "inverted per instance", op: ">", threshold: "2", inv: true, want: []float64{0, 5, 9}},
		{name: "nothing picked", op: "<", threshold: "0", want: []float64{1, 5, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := enemies(1, 5, 9)
			cond := st.In("VarObjet", "Enemy", "HP", tt.op, tt.threshold)
			cond.Inverted = tt.inv
			h.Run(t, st.Standard(st.If(cond), st.Do(st.In("ModVarObjet", "Enemy", "HP", "=", "0"))))
			assert.Equal(t, tt.want, hp(h))
		})
	}
}

func TestPickingIsInheritedBySubEvents(t *testing.T) {
	h := enemies(1, 5, 9)
	h.Run(t,
		st.Standard(
			st.If(st.In("VarObjet", "Enemy", "HP", ">", "2")),
			st.Sub(
				st.Standard(
					st.If(st.In("VarObjet", "Enemy", "HP", "<", "6")),
					st.Do(st.In("ModVarObjet", "Enemy", "HP", "+", "100")),
				),
				st.Standard(st.Do(st.In("ModVarObjet", "Enemy", "HP", "+", "1000"))),
			),
		),
		st.Standard(st.Do(set("Count", "Count(Enemy)"))),
	)
	assert.Equal(t, []float64{1, 1105, 1009}, hp(h))
	assert.Equal(t, float64(3), h.Var("Count").Number())
}

func TestConditionsNarrowInOrder(t *testing.T) {
	h := enemies(1, 5, 9)
	h.Run(t, st.Standard(
		st.If(
			st.In("VarObjet", "Enemy", "HP", ">", "2"),
			st.In("VarObjet", "Enemy", "HP", "<", "6"),
		),
		st.Do(
			st.In("ModVarObjet", "Enemy", "HP", "=", "0"),
			set("Count", "Count(Enemy)"),
		),
	))
	assert.Equal(t, []float64{1, 0, 9}, hp(h))
	assert.Equal(t, float64(1), h.Var("Count").Number())
}

func TestOrPicksUnionOfTrueBranches(t *testing.T) {
	h := enemies(1, 5, 9)
	h.Run(t, st.Standard(
		st.If(st.Combine(builtins.TypeOr,
			st.In("VarObjet", "Enemy", "HP", "<", "2"),
			st.In("VarObjet", "Enemy", "HP", ">", "100"),
			st.In("VarObjet", "Enemy", "HP", ">", "8"),
		)),
		st.Do(st.In("ModVarObjet", "Enemy", "HP", "=", "0")),
	))
	assert.Equal(t, []float64{0, 5, 0}, hp(h))
}

func TestOrKeepsBranchThatPicksEverything(t *testing.T) {
	h := enemies(1, 5, 9)
	h.Run(t, st.Standard(
		st.If(st.Combine(builtins.TypeOr,
			st.In("VarObjet", "Enemy", "HP", ">", "0"),
			st.In("VarObjet", "Enemy", "HP", ">", "8"),
		)),
		st.Do(st.In("ModVarObjet", "Enemy", "HP", "=", "0")),
	))
	assert.Equal(t, []float64{0, 0, 0}, hp(h))
}

func TestOrWithoutTrueBranch(t *testing.T) {
	h := enemies(1, 5)
	h.Run(t,
		st.Standard(
			st.If(st.Combine(builtins.TypeOr,
				st.In("VarObjet", "Enemy", "HP", ">", "100"),
				isFalse(),
			)),
			st.Do(add("Ran", "1")),
		),
		st.Else(st.Do(add("Else", "1"))),
	)
	assert.False(t, h.HasVar("Ran"))
	assert.Equal(t, float64(1), h.Var("Else").Number())
}

func TestNotDiscardsPicking(t *testing.T) {
	h := enemies(1, 2)
	h.Run(t, st.Standard(
		st.If(st.Combine(builtins.TypeNot, st.In("VarObjet", "Enemy", "HP", ">", "1"))),
		st.Do(add("Ran", "1")),
	))
	assert.False(t, h.HasVar("Ran"))

	h = enemies(1, 2)
	h.Run(t, st.Standard(
		st.If(st.Combine(builtins.TypeNot, st.In("VarObjet", "Enemy", "HP", ">", "5"))),
		st.Do(st.In("ModVarObjet", "Enemy", "HP", "=", "0")),
	))
	assert.Equal(t, []float64{0, 0}, hp(h))
}

func TestAndCombinator(t *testing.T) {
	h := enemies(1, 5, 9)
	h.Run(t, st.Standard(
		st.If(st.Combine(builtins.TypeAnd,
			st.In("VarObjet", "Enemy", "HP", ">", "2"),
			st.In("VarObjet", "Enemy", "HP", "<", "6"),
		)),
		st.Do(st.In("ModVarObjet", "Enemy", "HP", "=", "0")),
	))
	assert.Equal(t, []float64{1, 0, 9}, hp(h))
}

func TestConditionWithoutImplementationIsFalse(t *testing.T) {
	h := st.New().Object("Player", nil)
	h.Run(t,
		st.Standard(st.If(st.In("PlatformBehavior::IsFalling", "Player", "PlatformerObject")), st.Do(add("Falling", "1"))),
		st.Standard(st.If(st.Not("PlatformBehavior::IsFalling", "Player", "PlatformerObject")), st.Do(add("NotFalling", "1"))),
	)
	assert.False(t, h.HasVar("Falling"))
	assert.Equal(t, float64(1), h.Var("NotFalling").Number())
}

func TestUnknownConditionPasses(t *testing.T) {
	h := st.New()
	h.Run(t, st.Standard(
		st.If(st.In("MyExtension::IsReady", "Player")),
		st.Do(add("Ran", "1"), st.In("MyExtension::Launch")),
	))
	assert.Equal(t, float64(1), h.Var("Ran").Number())
}

func TestObjectActionsEvaluatePerInstance(t *testing.T) {
	h := enemies(1, 5, 9)
	h.Run(t, st.Standard(st.Do(
		st.In("ModVarObjet", "Enemy", "HP", "+", "Enemy.Variable(HP)"),
	)))
	assert.Equal(t, []float64{2, 10, 18}, hp(h))
}

func TestQualifiedReferenceReadsFirstPicked(t *testing.T) {
	h := enemies(1, 5, 9)
	h.Object("Ghost")
	h.Run(t,
		st.Standard(st.Do(set("First", "Enemy.HP"))),
		st.Standard(
			st.If(st.In("VarObjet", "Enemy", "HP", ">", "4")),
			st.Do(set("FirstPicked", "Enemy.HP")),
		),
		st.Standard(st.Do(set("GhostHP", "Ghost.HP + 1"))),
	)
	assert.Equal(t, float64(1), h.Var("First").Number())
	assert.Equal(t, float64(5), h.Var("FirstPicked").Number())
	assert.Equal(t, float64(1), h.Var("GhostHP").Number())
}

func TestVisibility(t *testing.T) {
	h := enemies(1, 5)
	h.Run(t,
		st.Standard(
			st.If(st.In("VarObjet", "Enemy", "HP", ">", "2")),
			st.Do(st.In("Cache", "Enemy")),
		),
		st.Standard(
			st.If(st.In("Visible", "Enemy")),
			st.Do(st.In("ModVarObjet", "Enemy", "HP", "=", "0")),
		),
	)
	list := h.Scene.Instances("Enemy")
	assert.False(t, list[0].Hidden)
	assert.True(t, list[1].Hidden)
	assert.Equal(t, []float64{0, 5}, hp(h))
}

func TestForEachPicksOneInstance(t *testing.T) {
	h := enemies(1, 5, 9)
	h.Run(t, st.Standard(
		st.If(st.In("VarObjet", "Enemy", "HP", ">", "2")),
		st.Sub(st.ForEach("Enemy",
			st.Do(
				add("Total", "Enemy.HP"),
				add("Counts", "Count(Enemy)"),
			),
		)),
	))
	assert.Equal(t, float64(14), h.Var("Total").Number())
	assert.Equal(t, float64(2), h.Var("Counts").Number())
}
