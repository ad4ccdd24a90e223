package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/opal-lang/sheetc/core/variable"
)

// The wire format is the serialized events list written by the editor:
// instruction types are {"value", "inverted"} objects and sub-events live
// under "events".

type wireInstructionType struct {
	Value    string `json:"value"`
	Inverted bool   `json:"inverted,omitempty"`
}

type wireInstruction struct {
	Type            wireInstructionType `json:"type"`
	Parameters      []string            `json:"parameters"`
	SubInstructions []wireInstruction   `json:"subInstructions,omitempty"`
}

// wireValue accepts a JSON string, number or boolean and keeps its text.
type wireValue string

func (v *wireValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = wireValue(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	*v = wireValue(data)
	return nil
}

type wireVariable struct {
	Name     string         `json:"name,omitempty"`
	Type     string         `json:"type"`
	Value    any            `json:"value,omitempty"`
	Children []wireVariable `json:"children,omitempty"`
}

type wireVariableIn struct {
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	Value    *wireValue       `json:"value"`
	Children []wireVariableIn `json:"children"`
}

type wireInclude struct {
	IncludeConfig   int    `json:"includeConfig"`
	EventsGroupName string `json:"eventsGroupName,omitempty"`
	Start           int    `json:"start,omitempty"`
	End             int    `json:"end,omitempty"`
}

type wireEvent struct {
	Type     string `json:"type"`
	Disabled bool   `json:"disabled,omitempty"`
	Folded   bool   `json:"folded,omitempty"`

	InfiniteLoopWarning       bool   `json:"infiniteLoopWarning,omitempty"`
	RepeatExpression          string `json:"repeatExpression,omitempty"`
	Object                    string `json:"object,omitempty"`
	IterableVariableName      string `json:"iterableVariableName,omitempty"`
	ValueIteratorVariableName string `json:"valueIteratorVariableName,omitempty"`
	KeyIteratorVariableName   string `json:"keyIteratorVariableName,omitempty"`
	LoopIndexVariable         string `json:"loopIndexVariable,omitempty"`
	Name                      string `json:"name,omitempty"`
	Source                    string `json:"source,omitempty"`
	Comment                   string `json:"comment,omitempty"`
	Target                    string `json:"target,omitempty"`

	Include         *wireInclude      `json:"include,omitempty"`
	Variables       []json.RawMessage `json:"variables,omitempty"`
	WhileConditions []wireInstruction `json:"whileConditions,omitempty"`
	Conditions      []wireInstruction `json:"conditions,omitempty"`
	Actions         []wireInstruction `json:"actions,omitempty"`
	Events          []wireEvent       `json:"events,omitempty"`
}

// DecodeError reports a malformed events payload.
type DecodeError struct {
	Path    string // dotted event path, empty for document-level problems
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "decode events: " + e.Message
	}
	return fmt.Sprintf("decode events: event %s: %s", e.Path, e.Message)
}

// DecodeEvents parses a bare serialized events list into a sheet.
func DecodeEvents(name string, data []byte) (*Sheet, error) {
	var wire []wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	trees, err := treesFromWire(wire, "")
	if err != nil {
		return nil, err
	}
	return FromTrees(name, trees), nil
}

func treesFromWire(wire []wireEvent, parentPath string) ([]Tree, error) {
	trees := make([]Tree, 0, len(wire))
	for i, we := range wire {
		path := joinPath(parentPath, i)
		ev, err := eventFromWire(we, path)
		if err != nil {
			return nil, err
		}
		t := Tree{Event: ev}
		if ev.Kind.CanHaveSubEvents() {
			if t.Events, err = treesFromWire(we.Events, path); err != nil {
				return nil, err
			}
		}
		trees = append(trees, t)
	}
	return trees, nil
}

func eventFromWire(we wireEvent, path string) (*Event, error) {
	ev := &Event{
		Kind:                      KindOf(we.Type),
		RawType:                   we.Type,
		Disabled:                  we.Disabled,
		Folded:                    we.Folded,
		Conditions:                instructionsFromWire(we.Conditions),
		Actions:                   instructionsFromWire(we.Actions),
		WhileConditions:           instructionsFromWire(we.WhileConditions),
		RepeatExpression:          we.RepeatExpression,
		InfiniteLoopWarning:       we.InfiniteLoopWarning,
		Object:                    we.Object,
		IterableVariableName:      we.IterableVariableName,
		ValueIteratorVariableName: we.ValueIteratorVariableName,
		KeyIteratorVariableName:   we.KeyIteratorVariableName,
		LoopIndexVariable:         we.LoopIndexVariable,
		Name:                      we.Name,
		Source:                    we.Source,
		Comment:                   we.Comment,
		Target:                    we.Target,
	}
	if we.Include != nil {
		ev.Include = LinkInclude{
			Mode:  IncludeMode(we.Include.IncludeConfig),
			Group: we.Include.EventsGroupName,
			Start: we.Include.Start,
			End:   we.Include.End,
		}
	}
	for i, raw := range we.Variables {
		var wv wireVariableIn
		if err := json.Unmarshal(raw, &wv); err != nil {
			return nil, &DecodeError{Path: path, Message: fmt.Sprintf("variable %d: %v", i, err)}
		}
		decl, err := declFromWire(wv)
		if err != nil {
			return nil, &DecodeError{Path: path, Message: err.Error()}
		}
		ev.Variables = append(ev.Variables, decl)
	}
	return ev, nil
}

func instructionsFromWire(wire []wireInstruction) []Instruction {
	if len(wire) == 0 {
		return nil
	}
	out := make([]Instruction, len(wire))
	for i, w := range wire {
		out[i] = Instruction{
			Type:            w.Type.Value,
			Inverted:        w.Type.Inverted,
			Parameters:      w.Parameters,
			SubInstructions: instructionsFromWire(w.SubInstructions),
		}
	}
	return out
}

func declFromWire(w wireVariableIn) (VariableDecl, error) {
	typ, ok := variable.ParseType(w.Type)
	if !ok {
		return VariableDecl{}, fmt.Errorf("variable %q: unknown type %q", w.Name, w.Type)
	}
	d := VariableDecl{Name: w.Name, Type: typ}
	if w.Value != nil {
		d.Value = string(*w.Value)
	}
	for _, c := range w.Children {
		child, err := declFromWire(c)
		if err != nil {
			return VariableDecl{}, err
		}
		d.Children = append(d.Children, child)
	}
	return d, nil
}

// DecodeDecls parses a serialized variables list.
func DecodeDecls(data []byte) ([]VariableDecl, error) {
	var wire []wireVariableIn
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	return declsFromWire(wire)
}

func declsFromWire(wire []wireVariableIn) ([]VariableDecl, error) {
	var out []VariableDecl
	for _, w := range wire {
		d, err := declFromWire(w)
		if err != nil {
			return nil, &DecodeError{Message: err.Error()}
		}
		out = append(out, d)
	}
	return out, nil
}

// EncodeEvents writes the events under RootID back to the wire format.
func EncodeEvents(s *Sheet) ([]byte, error) {
	return json.Marshal(wireFromTrees(s.Trees(RootID)))
}

func wireFromTrees(trees []Tree) []wireEvent {
	out := make([]wireEvent, len(trees))
	for i, t := range trees {
		ev := t.Event
		we := wireEvent{
			Type:                      ev.Type(),
			Disabled:                  ev.Disabled,
			Folded:                    ev.Folded,
			InfiniteLoopWarning:       ev.InfiniteLoopWarning,
			RepeatExpression:          ev.RepeatExpression,
			Object:                    ev.Object,
			IterableVariableName:      ev.IterableVariableName,
			ValueIteratorVariableName: ev.ValueIteratorVariableName,
			KeyIteratorVariableName:   ev.KeyIteratorVariableName,
			LoopIndexVariable:         ev.LoopIndexVariable,
			Name:                      ev.Name,
			Source:                    ev.Source,
			Comment:                   ev.Comment,
			Target:                    ev.Target,
			WhileConditions:           wireFromInstructions(ev.WhileConditions),
			Conditions:                wireFromInstructions(ev.Conditions),
			Actions:                   wireFromInstructions(ev.Actions),
			Events:                    wireFromTrees(t.Events),
		}
		if ev.Kind == KindLink {
			we.Include = &wireInclude{
				IncludeConfig:   int(ev.Include.Mode),
				EventsGroupName: ev.Include.Group,
				Start:           ev.Include.Start,
				End:             ev.Include.End,
			}
		}
		for _, d := range ev.Variables {
			raw, _ := json.Marshal(wireFromDecl(d))
			we.Variables = append(we.Variables, raw)
		}
		out[i] = we
	}
	return out
}

func wireFromInstructions(in []Instruction) []wireInstruction {
	if len(in) == 0 {
		return nil
	}
	out := make([]wireInstruction, len(in))
	for i, ins := range in {
		params := ins.Parameters
		if params == nil {
			params = []string{}
		}
		out[i] = wireInstruction{
			Type:            wireInstructionType{Value: ins.Type, Inverted: ins.Inverted},
			Parameters:      params,
			SubInstructions: wireFromInstructions(ins.SubInstructions),
		}
	}
	return out
}

func wireFromDecl(d VariableDecl) wireVariable {
	w := wireVariable{Name: d.Name, Type: d.Type.String()}
	switch d.Type {
	case variable.Number:
		if f, err := strconv.ParseFloat(d.Value, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			w.Value = json.Number(variable.FormatNumber(f))
		} else {
			w.Value = 0
		}
	case variable.String:
		w.Value = d.Value
	case variable.Boolean:
		w.Value = d.Value == "true" || d.Value == "1"
	}
	for _, c := range d.Children {
		w.Children = append(w.Children, wireFromDecl(c))
	}
	return w
}
