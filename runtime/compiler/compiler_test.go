package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/runtime/builtins"
	"github.com/opal-lang/sheetc/runtime/compiler"
	"github.com/opal-lang/sheetc/runtime/expr"
	"github.com/opal-lang/sheetc/runtime/scope"
	st "github.com/opal-lang/sheetc/testing/sheettest"
)

func codes(proc *compiler.Procedure) []compiler.Code {
	var out []compiler.Code
	for _, d := range proc.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func diagnostic(t *testing.T, proc *compiler.Procedure, code compiler.Code) compiler.Diagnostic {
	t.Helper()
	for _, d := range proc.Diagnostics {
		if d.Code == code {
			return d
		}
	}
	t.Fatalf("no %s diagnostic in %v", code, proc.Diagnostics)
	return compiler.Diagnostic{}
}

func TestCompileRequiresRegistry(t *testing.T) {
	_, err := compiler.Compile(events.FromTrees("S", nil), compiler.Options{})
	assert.ErrorIs(t, err, compiler.ErrNoRegistry)
}

func TestElseChains(t *testing.T) {
	tests := []struct {
		name    string
		trees   []events.Tree
		anchors map[int]string // node index -> Else anchor
		detach  []int          // node indexes compiled as detached Else
	}{
		{
			name:    "standard else else",
			trees:   []events.Tree{st.Standard(), st.Else(), st.Else()},
			anchors: map[int]string{1: "0", 2: "1"},
		},
		{
			name:    "comment is transparent",
			trees:   []events.Tree{st.Standard(), st.Comment("x"), st.Else()},
			anchors: map[int]string{1: "0"},
		},
		{
			name:    "disabled event is transparent",
			trees:   []events.Tree{st.Standard(), st.Standard(st.Disabled()), st.Else()},
			anchors: map[int]string{1: "0"},
		},
		{
			name:    "unknown event is transparent",
			trees:   []events.Tree{st.Standard(), st.Unknown("Ext::Thing"), st.Else()},
			anchors: map[int]string{1: "0"},
		},
		{
			name:   "else first",
			trees:  []events.Tree{st.Else()},
			detach: []int{0},
		},
		{
			name:    "group breaks chain",
			trees:   []events.Tree{st.Standard(), st.Group("G"), st.Else(), st.Else()},
			anchors: map[int]string{3: "2"},
			detach:  []int{2},
		},
		{
			name:   "loop breaks chain",
			trees:  []events.Tree{st.Standard(), st.Repeat("2"), st.Else()},
			detach: []int{2},
		},
		{
			name:   "link breaks chain",
			trees:  []events.Tree{st.Standard(), st.Link("Missing"), st.Else()},
			detach: []int{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := st.New().Compile(t, tt.trees...)
			for i, n := range proc.Root.Nodes {
				switch n := n.(type) {
				case *compiler.ElseNode:
					want, ok := tt.anchors[i]
					require.True(t, ok, "node %d unexpectedly attached to %s", i, n.Anchor)
					assert.Equal(t, want, n.Anchor)
				case *compiler.StandardNode:
					assert.Equal(t, contains(tt.detach, i), n.DetachedElse, "node %d", i)
				}
			}
			invalid := 0
			for _, d := range proc.Diagnostics {
				if d.Code == compiler.CodeInvalidElse {
					invalid++
				}
			}
			assert.Equal(t, len(tt.detach), invalid)
		})
	}
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func TestChainsDoNotCrossBlocks(t *testing.T) {
	proc := st.New().Compile(t,
		st.Standard(st.Sub(st.Else())),
		st.Else(),
	)
	std := proc.Root.Nodes[0].(*compiler.StandardNode)
	inner, ok := std.Sub.Nodes[0].(*compiler.StandardNode)
	require.True(t, ok)
	assert.True(t, inner.DetachedElse)

	outer, ok := proc.Root.Nodes[1].(*compiler.ElseNode)
	require.True(t, ok)
	assert.Equal(t, "0", outer.Anchor)
}

func TestTransparentEventsAreDropped(t *testing.T) {
	proc := st.New().Compile(t,
		st.Comment("note"),
		st.Standard(st.Disabled(), st.Sub(st.Standard())),
		st.Unknown("Ext::Thing"),
		st.Standard(),
	)
	require.Len(t, proc.Root.Nodes, 1)
	assert.Equal(t, "3", proc.Root.Nodes[0].Head().Path)
	assert.Equal(t, compiler.Stats{Events: 1, Skipped: 3}, proc.Stats)

	d := diagnostic(t, proc, compiler.CodeUnknownEvent)
	assert.Equal(t, "2", d.Path)
	assert.Equal(t, compiler.SeverityWarning, d.Severity)
}

func TestUnknownInstructionSuggestsAlternative(t *testing.T) {
	proc := st.New().Compile(t, st.Standard(
		st.Do(st.In("ModVarScen", "Score", "+", "1")),
	))

	d := diagnostic(t, proc, compiler.CodeUnknownInstruction)
	assert.Equal(t, "ModVarScene", d.Suggestion)
	assert.Equal(t, `Test:0: warning [unknown-instruction]: unknown action "ModVarScen" is skipped (did you mean "ModVarScene"?)`, d.String())

	in := proc.Root.Nodes[0].Head().Actions[0]
	assert.False(t, in.Known())
	require.Len(t, in.Params, 3)
	assert.Equal(t, "Score", in.Params[0].Raw)
	assert.False(t, proc.HasErrors())
}

func TestMalformedExpressionIsAnError(t *testing.T) {
	proc := st.New().Compile(t, st.Standard(
		st.Do(st.In("ModVarScene", "Score", "=", "1 +")),
	))
	assert.Contains(t, codes(proc), compiler.CodeMalformedExpression)
	assert.True(t, proc.HasErrors())

	p := proc.Root.Nodes[0].Head().Actions[0].Params[2]
	_, bad := p.Expr.(*expr.Bad)
	assert.True(t, bad)
}

func TestDeeplyNestedExpressionIsAnError(t *testing.T) {
	deep := strings.Repeat("(", 1_000_000) + "1" + strings.Repeat(")", 1_000_000)
	proc := st.New().Compile(t, st.Standard(
		st.Do(st.In("ModVarScene", "Score", "=", deep)),
	))
	assert.Contains(t, codes(proc), compiler.CodeMalformedExpression)
	assert.True(t, proc.HasErrors())
}

func TestBindingsFollowLexicalScope(t *testing.T) {
	h := st.New(st.Number("Score", "0"))
	h.Scene.Project.Insert("Lives", st.Number("Lives", "3").Build())

	proc := h.Compile(t,
		st.Standard(
			st.Locals(st.Number("A", "1"), st.Number("B", "2")),
			st.Sub(st.Standard(
				st.Locals(st.Number("B", "3")),
				st.Do(
					st.In("SetNumberVariable", "A", "=", "B + Score + Lives"),
					st.In("SetNumberVariable", "Fresh", "=", "1"),
					st.In("SetNumberVariable", "Fresh", "+", "1"),
				),
			)),
		),
	)

	outer := proc.Root.Nodes[0].Head()
	require.NotNil(t, outer.Frame)
	inner := outer.Sub.Nodes[0].Head()
	require.NotNil(t, inner.Frame)

	set := inner.Actions[0]
	assert.Equal(t, "local-at-depth-0", set.Params[0].Var.Binding.String())

	var got []string
	expr.Inspect(set.Params[2].Expr, func(n expr.Node) bool {
		if ref, ok := n.(*expr.VarRef); ok {
			got = append(got, ref.Name+"="+ref.Binding.String())
		}
		return true
	})
	assert.Equal(t, []string{"B=local-at-depth-1", "Score=scene", "Lives=project"}, got)

	fresh := inner.Actions[1].Params[0].Var.Binding
	assert.True(t, fresh.Implicit)
	assert.Equal(t, scope.StorageScene, fresh.Storage)

	implicit := 0
	for _, d := range proc.Diagnostics {
		if d.Code == compiler.CodeImplicitVariable {
			implicit++
			assert.Equal(t, compiler.SeverityInfo, d.Severity)
		}
	}
	assert.Equal(t, 1, implicit, "reported once per event and name")
}

func TestEventsWithoutLocalsHaveNoFrame(t *testing.T) {
	proc := st.New().Compile(t, st.Standard(), st.Group("G", st.Sub(st.Standard())))
	assert.Nil(t, proc.Root.Nodes[0].Head().Frame)
	assert.Nil(t, proc.Root.Nodes[1].Head().Frame)
}

func TestSceneVariableParametersIgnoreLocals(t *testing.T) {
	proc := st.New().Compile(t, st.Standard(
		st.Locals(st.Number("Score", "1")),
		st.Do(st.In("ModVarScene", "Score", "=", "Score")),
	))
	in := proc.Root.Nodes[0].Head().Actions[0]
	assert.Equal(t, scope.StorageScene, in.Params[0].Var.Binding.Storage)
	assert.Equal(t, scope.StorageLocal, in.Params[2].Expr.(*expr.VarRef).Binding.Storage)
}

func TestLoopIteratorBindings(t *testing.T) {
	t.Run("undeclared index gets a loop slot", func(t *testing.T) {
		proc := st.New().Compile(t, st.Repeat("3", st.Index("i")))
		n := proc.Root.Nodes[0].(*compiler.RepeatNode)
		require.NotNil(t, n.Frame)
		assert.Equal(t, []string{"i"}, n.Frame.Implicit)
		assert.Equal(t, "local-at-depth-0", n.Index.Binding.String())
		assert.NotContains(t, codes(proc), compiler.CodeImplicitVariable)
	})

	t.Run("scene variable is written through", func(t *testing.T) {
		proc := st.New(st.Number("i", "0")).Compile(t, st.Repeat("3", st.Index("i")))
		n := proc.Root.Nodes[0].(*compiler.RepeatNode)
		assert.Nil(t, n.Frame)
		assert.Equal(t, scope.StorageScene, n.Index.Binding.Storage)
	})

	t.Run("enclosing local is written through", func(t *testing.T) {
		proc := st.New().Compile(t, st.Standard(
			st.Locals(st.Number("i", "0")),
			st.Sub(st.Repeat("3", st.Index("i"))),
		))
		n := proc.Root.Nodes[0].Head().Sub.Nodes[0].(*compiler.RepeatNode)
		assert.Nil(t, n.Frame)
		assert.Equal(t, "local-at-depth-0", n.Index.Binding.String())
	})

	t.Run("loop local shadows", func(t *testing.T) {
		proc := st.New(st.Number("i", "0")).Compile(t, st.Repeat("3", st.Index("i"), st.Locals(st.Number("i", "5"))))
		n := proc.Root.Nodes[0].(*compiler.RepeatNode)
		require.NotNil(t, n.Frame)
		assert.Empty(t, n.Frame.Implicit)
		assert.Equal(t, scope.StorageLocal, n.Index.Binding.Storage)
	})

	t.Run("for each child shares one slot per name", func(t *testing.T) {
		proc := st.New().Compile(t, st.ForEachChild("List", "Item", "Item"))
		n := proc.Root.Nodes[0].(*compiler.ForEachChildNode)
		assert.Equal(t, []string{"Item"}, n.Frame.Implicit)
		assert.Equal(t, n.Value.Binding, n.Key.Binding)
		assert.Equal(t, scope.StorageScene, n.Iterable.Binding.Storage)
		assert.True(t, n.Iterable.Binding.Implicit)
	})
}

func TestObjectBindings(t *testing.T) {
	h := st.New(st.Number("Total", "0")).Object("Enemy")
	proc := h.Compile(t, st.Standard(
		st.If(st.In("VarObjet", "Enemy", "HP", ">", "Enemy.Armor + Enemy.Variable(Shield)")),
		st.Do(st.In("SetNumberVariable", "Total", "=", "Count(Enemy)")),
	))

	cond := proc.Root.Nodes[0].Head().Conditions[0]
	assert.Equal(t, "Enemy", cond.Object())
	hp := cond.Params[1].Var.Binding
	assert.Equal(t, scope.Binding{Storage: scope.StorageObject, Object: "Enemy"}, hp)

	sum := cond.Params[3].Expr.(*expr.Binary)
	armor := sum.Left.(*expr.VarRef).Binding
	assert.True(t, armor.Qualified)
	assert.Equal(t, "Enemy", armor.Object)

	call := sum.Right.(*expr.Call)
	shield := call.Args[0].(*expr.VarRef).Binding
	assert.Equal(t, scope.StorageObject, shield.Storage)
	assert.False(t, shield.Qualified)
	assert.Contains(t, proc.Calls, call)

	count := proc.Root.Nodes[0].Head().Actions[0].Params[2].Expr.(*expr.Call)
	assert.False(t, count.Args[0].(*expr.VarRef).Bound, "object names are not variables")
	assert.NotContains(t, codes(proc), compiler.CodeImplicitVariable)
}

func TestUnknownFunction(t *testing.T) {
	proc := st.New().Compile(t, st.Standard(
		st.Do(st.In("ModVarScene", "Score", "=", "Nope(1)")),
	))
	d := diagnostic(t, proc, compiler.CodeUnknownFunction)
	assert.Contains(t, d.Message, `"Nope"`)
	assert.Empty(t, proc.Calls)
}

func TestCombinatorsCompileSubInstructions(t *testing.T) {
	proc := st.New().Compile(t, st.Standard(
		st.If(st.Combine(builtins.TypeOr,
			st.In("VarScene", "A", "=", "1"),
			st.In("VarScene", "B", "=", "1"),
		)),
	))
	or := proc.Root.Nodes[0].Head().Conditions[0]
	require.Len(t, or.Sub, 2)
	assert.Equal(t, "VarScene", or.Sub[1].Type)
	assert.Equal(t, 3, proc.Stats.Instructions)
}

func TestWhileWithoutConditionsWarns(t *testing.T) {
	proc := st.New().Compile(t, st.While(nil))
	assert.Contains(t, codes(proc), compiler.CodeWhileWithoutCondition)
}

func TestLinks(t *testing.T) {
	body := []events.Tree{
		st.Standard(st.Do(st.In("ModVarScene", "A", "=", "1"))),
		st.Group("Extra", st.Sub(st.Standard(), st.Standard())),
		st.Standard(),
	}

	tests := []struct {
		name  string
		link  events.Tree
		paths []string
	}{
		{"all", st.Link("Lib"), []string{"0", "1", "2"}},
		{"group", st.Link("Lib", st.IncludeGroup("Extra")), []string{"1.0", "1.1"}},
		{"range", st.Link("Lib", st.IncludeRange(1, 9)), []string{"1", "2"}},
		{"empty range", st.Link("Lib", st.IncludeRange(2, 1)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := st.New(st.Number("A", "0")).AddLink("Lib", body...)
			proc := h.Compile(t, tt.link)
			require.Empty(t, proc.Diagnostics)

			link := proc.Root.Nodes[0].(*compiler.LinkNode)
			var got []string
			for _, n := range link.Sub.Nodes {
				assert.Equal(t, "Lib", n.Head().Sheet)
				got = append(got, n.Head().Path)
			}
			assert.Equal(t, tt.paths, got)
		})
	}
}

func TestLinkProblems(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		proc := st.New().Compile(t, st.Link("Nowhere"))
		d := diagnostic(t, proc, compiler.CodeUnresolvedLink)
		assert.Contains(t, d.Message, "Nowhere")
		assert.Empty(t, proc.Root.Nodes[0].Head().Sub.Nodes)
	})

	t.Run("missing group", func(t *testing.T) {
		h := st.New().AddLink("Lib", st.Standard())
		proc := h.Compile(t, st.Link("Lib", st.IncludeGroup("G")))
		assert.Contains(t, codes(proc), compiler.CodeUnresolvedLink)
	})

	t.Run("cycle", func(t *testing.T) {
		h := st.New().
			AddLink("A", st.Link("B")).
			AddLink("B", st.Link("A"))
		proc := h.Compile(t, st.Link("A"))
		d := diagnostic(t, proc, compiler.CodeLinkCycle)
		assert.Equal(t, "B", d.Sheet)
		assert.True(t, proc.HasErrors())
	})

	t.Run("self", func(t *testing.T) {
		h := st.New().AddLink(st.SheetName, st.Standard())
		proc := h.Compile(t, st.Link(st.SheetName))
		assert.Contains(t, codes(proc), compiler.CodeLinkCycle)
	})
}

func TestLinkedEventsSeeEnclosingLocals(t *testing.T) {
	h := st.New().AddLink("Lib", st.Standard(st.Do(st.In("SetNumberVariable", "L", "+", "1"))))
	proc := h.Compile(t, st.Standard(
		st.Locals(st.Number("L", "0")),
		st.Sub(st.Link("Lib")),
	))
	link := proc.Root.Nodes[0].Head().Sub.Nodes[0].(*compiler.LinkNode)
	ref := link.Sub.Nodes[0].Head().Actions[0].Params[0].Var
	assert.Equal(t, "local-at-depth-0", ref.Binding.String())
}

func TestSourceDigest(t *testing.T) {
	trees := []events.Tree{st.Standard(st.Do(st.In("ModVarScene", "A", "=", "1")))}
	a := st.New().Compile(t, trees...)
	b := st.New().Compile(t, trees...)
	assert.Equal(t, a.SourceDigest, b.SourceDigest)
	assert.Regexp(t, `^blake2b:[0-9a-f]+$`, a.SourceDigest)

	c := st.New().Compile(t, st.Standard(st.Do(st.In("ModVarScene", "A", "=", "2"))))
	assert.NotEqual(t, a.SourceDigest, c.SourceDigest)
}
