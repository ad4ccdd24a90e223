package formatter_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/runtime/builtins"
	"github.com/opal-lang/sheetc/runtime/formatter"
	st "github.com/opal-lang/sheetc/testing/sheettest"
)

const falling = `{"type": {"value": "PlatformBehavior::IsFalling"}, "parameters": ["GroupOfSpriteObjectsWithBehaviors", "PlatformerObject"]}`
const invertedFalling = `{"type": {"value": "PlatformBehavior::IsFalling", "inverted": true}, "parameters": ["GroupOfSpriteObjectsWithBehaviors", "PlatformerObject"]}`
const changeAnimation = `{"type": {"value": "ChangeAnimation"}, "parameters": ["MySpriteObject", "=", "1"]}`
const show = `{"type": {"value": "Show"}, "parameters": ["GroupOfObjects", ""]}`
const hide = `{"type": {"value": "Cache"}, "parameters": ["GroupOfObjects", ""]}`

var fixture = `[{
	"type": "BuiltinCommonInstructions::Standard",
	"conditions": [` + falling + `],
	"actions": [` + changeAnimation + `, ` + show + `],
	"events": [
		{"type": "BuiltinCommonInstructions::Else", "conditions": [], "actions": [` + show + `]},
		{"type": "BuiltinCommonInstructions::Repeat", "repeatExpression": "1", "conditions": [], "actions": []},
		{"type": "BuiltinCommonInstructions::Else", "conditions": [` + falling + `], "actions": [` + changeAnimation + `]},
		{
			"type": "BuiltinCommonInstructions::Standard",
			"variables": [
				{"name": "MyVariable", "type": "number", "value": "1"},
				{"name": "MyArray", "type": "array", "children": [
					{"type": "number", "value": "-0.1"},
					{"type": "number", "value": "2.3"},
					{"type": "string", "value": "three"}
				]},
				{"name": "MyStructure", "type": "structure", "children": [
					{"name": "MyChild", "type": "number", "value": "1"},
					{"name": "MyChild2", "type": "array", "children": [
						{"type": "number", "value": "1"},
						{"type": "number", "value": "2"},
						{"type": "string", "value": "three"},
						{"type": "boolean", "value": "true"}
					]}
				]}
			],
			"conditions": [
				{"type": {"value": "BuiltinCommonInstructions::And"}, "parameters": [], "subInstructions": [` + invertedFalling + `, ` + invertedFalling + `]},
				{"type": {"value": "BuiltinCommonInstructions::And"}, "parameters": [], "subInstructions": []}
			],
			"actions": [` + changeAnimation + `, ` + hide + `, {"type": {"value": "ThisActionDoesNotExist"}, "parameters": ["GroupOfObjects", ""]}],
			"events": []
		},
		{
			"type": "BuiltinCommonInstructions::While",
			"whileConditions": [` + falling + `],
			"conditions": [` + falling + `],
			"actions": [` + changeAnimation + `, ` + show + `]
		},
		{
			"type": "BuiltinCommonInstructions::Repeat",
			"repeatExpression": "3 + 4",
			"conditions": [` + falling + `],
			"actions": [` + changeAnimation + `, ` + show + `]
		},
		{
			"type": "BuiltinCommonInstructions::Group",
			"name": "My super group",
			"events": [
				{"type": "BuiltinCommonInstructions::Standard", "conditions": [` + falling + `], "actions": [` + changeAnimation + `, ` + show + `]},
				{"type": "BuiltinCommonInstructions::Standard", "conditions": [], "actions": []}
			]
		},
		{"type": "BuiltinCommonInstructions::Standard", "conditions": [` + falling + `], "actions": [` + changeAnimation + `]},
		{"type": "BuiltinCommonInstructions::Else", "conditions": [], "actions": [` + show + `]},
		{"type": "BuiltinCommonInstructions::Else", "conditions": [` + falling + `], "actions": [` + changeAnimation + `]},
		{
			"type": "BuiltinCommonInstructions::Else",
			"variables": [{"name": "MyElseVar", "type": "number", "value": "42"}],
			"conditions": [],
			"actions": [` + hide + `]
		}
	]
}]`

var fixtureText = strings.Join([]string{
	"<event-0>",
	" Conditions:",
	" - GroupOfSpriteObjectsWithBehaviors is falling",
	" Actions:",
	" - Change the number of the animation of MySpriteObject: = 1",
	" - Show GroupOfObjects",
	" Sub-events:",
	"  <event-0.0>",
	"   ~~Else~~ (Else is ignored because not following a standard event)",
	"",
	"   Conditions:",
	"   (no conditions)",
	"   Actions:",
	"   - Show GroupOfObjects",
	"  </event-0.0>",
	"  <event-0.1>",
	"   Repeat `1` times these:",
	"   Conditions:",
	"    (no conditions)",
	"   Actions:",
	"    (no actions)",
	"  </event-0.1>",
	"  <event-0.2>",
	"   ~~Else if~~ (Else is ignored because not following a standard event)",
	"",
	"   Conditions:",
	"   - GroupOfSpriteObjectsWithBehaviors is falling",
	"   Actions:",
	"   - Change the number of the animation of MySpriteObject: = 1",
	"  </event-0.2>",
	"  <event-0.3>",
	`   - Declare local variable "MyVariable" of type "number" with value ` + "`1`",
	`   - Declare local variable "MyArray" of type "array" with value ` + "`[-0.1,2.3,\"three\"]`",
	`   - Declare local variable "MyStructure" of type "structure" with value ` + "`{\"MyChild\":1,\"MyChild2\":[1,2,\"three\",true]}`",
	"",
	"   Conditions:",
	"   - If all of these conditions are true:",
	"     - (inverted) GroupOfSpriteObjectsWithBehaviors is falling",
	"     - (inverted) GroupOfSpriteObjectsWithBehaviors is falling",
	"   - If all of these conditions are true:",
	"     (no conditions)",
	"   Actions:",
	"   - Change the number of the animation of MySpriteObject: = 1",
	"   - Hide GroupOfObjects",
	"   - Unknown or unsupported instruction",
	"  </event-0.3>",
	"  <event-0.4>",
	"   While these conditions are true:",
	"    - GroupOfSpriteObjectsWithBehaviors is falling",
	"   Then do:",
	"   Conditions:",
	"    - GroupOfSpriteObjectsWithBehaviors is falling",
	"   Actions:",
	"    - Change the number of the animation of MySpriteObject: = 1",
	"    - Show GroupOfObjects",
	"  </event-0.4>",
	"  <event-0.5>",
	"   Repeat `3 + 4` times these:",
	"   Conditions:",
	"    - GroupOfSpriteObjectsWithBehaviors is falling",
	"   Actions:",
	"    - Change the number of the animation of MySpriteObject: = 1",
	"    - Show GroupOfObjects",
	"  </event-0.5>",
	"  <event-0.6>",
	`   Group called "My super group":`,
	"   Sub-events:",
	"    <event-0.6.0>",
	"     Conditions:",
	"     - GroupOfSpriteObjectsWithBehaviors is falling",
	"     Actions:",
	"     - Change the number of the animation of MySpriteObject: = 1",
	"     - Show GroupOfObjects",
	"    </event-0.6.0>",
	"    <event-0.6.1>",
	"     Conditions:",
	"     (no conditions)",
	"     Actions:",
	"     (no actions)",
	"    </event-0.6.1>",
	"  </event-0.6>",
	"  <event-0.7>",
	"   Conditions:",
	"   - GroupOfSpriteObjectsWithBehaviors is falling",
	"   Actions:",
	"   - Change the number of the animation of MySpriteObject: = 1",
	"  </event-0.7>",
	`  <event-0.8 else-of="event-0.7">`,
	"   Else",
	"",
	"   Conditions:",
	"   (no conditions)",
	"   Actions:",
	"   - Show GroupOfObjects",
	"  </event-0.8>",
	`  <event-0.9 else-of="event-0.8">`,
	"   Else if",
	"",
	"   Conditions:",
	"   - GroupOfSpriteObjectsWithBehaviors is falling",
	"   Actions:",
	"   - Change the number of the animation of MySpriteObject: = 1",
	"  </event-0.9>",
	`  <event-0.10 else-of="event-0.9">`,
	"   Else",
	`   - Declare local variable "MyElseVar" of type "number" with value ` + "`42`",
	"",
	"   Conditions:",
	"   (no conditions)",
	"   Actions:",
	"   - Hide GroupOfObjects",
	"  </event-0.10>",
	"</event-0>",
}, "\n")

func decode(t *testing.T, data string) *events.Sheet {
	t.Helper()
	sheet, err := events.DecodeEvents("Fixture", []byte(data))
	require.NoError(t, err)
	return sheet
}

func TestFormat(t *testing.T) {
	got := formatter.Format(decode(t, fixture), builtins.NewRegistry())
	if diff := cmp.Diff(strings.Split(fixtureText, "\n"), strings.Split(got, "\n")); diff != "" {
		t.Errorf("rendering mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	reg := builtins.NewRegistry()
	sheet := decode(t, fixture)
	first := formatter.Format(sheet, reg)
	for range 10 {
		assert.Equal(t, first, formatter.Format(sheet, reg))
		assert.Equal(t, first, formatter.Format(decode(t, fixture), reg))
	}
}

func TestDisabledEventIsOneLine(t *testing.T) {
	reg := builtins.NewRegistry()
	trees := []events.Tree{
		st.Standard(st.Disabled(), st.If(st.In("VarScene", "A", "=", "1")), st.Sub(st.Standard())),
		st.Else(st.Disabled(), st.Locals(st.Number("L", "1"))),
		st.Repeat("3", st.Disabled()),
		st.Group("G", st.Disabled(), st.Sub(st.Comment("x"))),
	}
	got := formatter.Format(events.FromTrees("Disabled", trees), reg)
	want := strings.Join([]string{
		"<event-0>", " (This event is disabled - ignored)", "</event-0>",
		"<event-1>", " (This event is disabled - ignored)", "</event-1>",
		"<event-2>", " (This event is disabled - ignored)", "</event-2>",
		"<event-3>", " (This event is disabled - ignored)", "</event-3>",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestDisabledEventsAreSkippedByElseValidity(t *testing.T) {
	reg := builtins.NewRegistry()
	sheet := events.FromTrees("Chain", []events.Tree{
		st.Standard(),
		st.Comment("between"),
		st.Standard(st.Disabled()),
		st.Else(),
	})
	got := formatter.Format(sheet, reg)
	assert.Contains(t, got, `<event-3 else-of="event-0">`)
	assert.Contains(t, got, "(comment - content is not displayed)")
	assert.NotContains(t, got, "~~Else~~")
}

func TestFormatOtherEvents(t *testing.T) {
	reg := builtins.NewRegistry()
	sheet := events.FromTrees("Other", []events.Tree{
		st.ForEach("Enemy", st.Index("I")),
		st.ForEachChild("Data", "Value", ""),
		st.ForEachChild("", "", ""),
		st.Link("Shared"),
		st.Unknown("MyExtension::Custom", st.Locals(st.Number("L", "1"))),
	})
	got := formatter.Format(sheet, reg)
	want := strings.Join([]string{
		"<event-0>",
		" Repeat these separately for each instance of Enemy:",
		" Conditions:",
		"  (no conditions)",
		" Actions:",
		"  (no actions)",
		"</event-0>",
		"<event-1>",
		" For each child in `Data`, store the child in variable `Value`, the child name in `(ignored)` and do:",
		" Conditions:",
		"  (no conditions)",
		" Actions:",
		"  (no actions)",
		"</event-1>",
		"<event-2>",
		" For each child in `(no variable chosen yet)`, store the child in variable `(ignored)`, the child name in `(ignored)` and do:",
		" Conditions:",
		"  (no conditions)",
		" Actions:",
		"  (no actions)",
		"</event-2>",
		"<event-3>",
		` (link to events in events sheet called "Shared")`,
		"</event-3>",
		"<event-4>",
		" (This event is unknown/unsupported - ignored)",
		"</event-4>",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatTranslated(t *testing.T) {
	reg := builtins.NewRegistry()
	reg.SetTranslator(strings.ToUpper)
	sheet := events.FromTrees("T", []events.Tree{st.Standard(st.Do(st.In("Show", "Player")))})

	assert.Contains(t, formatter.Format(sheet, reg), "- Show Player")
	assert.Contains(t, formatter.FormatWith(sheet, reg, formatter.Options{Translated: true}), "- SHOW Player")
}

func TestFormatEvent(t *testing.T) {
	reg := builtins.NewRegistry()
	sheet := decode(t, fixture)
	id, ok := sheet.ByPath("0.8")
	require.True(t, ok)
	got := formatter.FormatEvent(sheet, reg, id)
	assert.True(t, strings.HasPrefix(got, `<event-0.8 else-of="event-0.7">`+"\n Else\n"), got)
	assert.True(t, strings.HasSuffix(got, "</event-0.8>"), got)
}

func TestFormatFailure(t *testing.T) {
	assert.Equal(t, formatter.RenderFailed, formatter.Format(nil, builtins.NewRegistry()))

	sheet := events.FromTrees("T", []events.Tree{st.Standard()})
	id := sheet.Children(events.RootID)[0]
	assert.Equal(t, formatter.RenderFailed, formatter.FormatEvent(nil, builtins.NewRegistry(), id))
}
