package events

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// CanonicalSheet is the ID-free form of a sheet used for hashing. Two sheets
// with the same content produce identical bytes regardless of how their
// arenas were built or edited.
type CanonicalSheet struct {
	Name   string           `cbor:"1,keyasint"`
	Events []CanonicalEvent `cbor:"2,keyasint,omitempty"`
}

type CanonicalEvent struct {
	Type      string                 `cbor:"1,keyasint"`
	Disabled  bool                   `cbor:"2,keyasint,omitempty"`
	Cond      []CanonicalInstruction `cbor:"3,keyasint,omitempty"`
	Act       []CanonicalInstruction `cbor:"4,keyasint,omitempty"`
	While     []CanonicalInstruction `cbor:"5,keyasint,omitempty"`
	Variables []CanonicalVariable    `cbor:"6,keyasint,omitempty"`
	Fields    map[string]string      `cbor:"7,keyasint,omitempty"`
	Events    []CanonicalEvent       `cbor:"8,keyasint,omitempty"`
}

type CanonicalInstruction struct {
	Type     string                 `cbor:"1,keyasint"`
	Inverted bool                   `cbor:"2,keyasint,omitempty"`
	Params   []string               `cbor:"3,keyasint,omitempty"`
	Sub      []CanonicalInstruction `cbor:"4,keyasint,omitempty"`
}

type CanonicalVariable struct {
	Name     string              `cbor:"1,keyasint,omitempty"`
	Type     string              `cbor:"2,keyasint"`
	Value    string              `cbor:"3,keyasint,omitempty"`
	Children []CanonicalVariable `cbor:"4,keyasint,omitempty"`
}

// Canonicalize returns the canonical form of the sheet.
func (s *Sheet) Canonicalize() *CanonicalSheet {
	return &CanonicalSheet{Name: s.Name, Events: canonicalTrees(s.Trees(RootID))}
}

func canonicalTrees(trees []Tree) []CanonicalEvent {
	if len(trees) == 0 {
		return nil
	}
	out := make([]CanonicalEvent, len(trees))
	for i, t := range trees {
		ev := t.Event
		ce := CanonicalEvent{
			Type:     ev.Type(),
			Disabled: ev.Disabled,
			Cond:     canonicalInstructions(ev.Conditions),
			Act:      canonicalInstructions(ev.Actions),
			While:    canonicalInstructions(ev.WhileConditions),
			Events:   canonicalTrees(t.Events),
		}
		for _, d := range ev.Variables {
			ce.Variables = append(ce.Variables, canonicalDecl(d))
		}
		ce.Fields = canonicalFields(ev)
		out[i] = ce
	}
	return out
}

// canonicalFields keeps the kind-specific scalar fields that affect meaning.
// Display-only state such as Folded is left out.
func canonicalFields(ev *Event) map[string]string {
	fields := map[string]string{
		"repeatExpression":          ev.RepeatExpression,
		"object":                    ev.Object,
		"loopIndexVariable":         ev.LoopIndexVariable,
		"iterableVariableName":      ev.IterableVariableName,
		"valueIteratorVariableName": ev.ValueIteratorVariableName,
		"keyIteratorVariableName":   ev.KeyIteratorVariableName,
		"name":                      ev.Name,
		"target":                    ev.Target,
	}
	if ev.Kind == KindLink {
		fields["include"] = fmt.Sprintf("%d:%s:%d:%d", ev.Include.Mode, ev.Include.Group, ev.Include.Start, ev.Include.End)
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func canonicalInstructions(in []Instruction) []CanonicalInstruction {
	if len(in) == 0 {
		return nil
	}
	out := make([]CanonicalInstruction, len(in))
	for i, ins := range in {
		out[i] = CanonicalInstruction{
			Type:     ins.Type,
			Inverted: ins.Inverted,
			Params:   ins.Parameters,
			Sub:      canonicalInstructions(ins.SubInstructions),
		}
	}
	return out
}

func canonicalDecl(d VariableDecl) CanonicalVariable {
	cv := CanonicalVariable{Name: d.Name, Type: d.Type.String(), Value: d.Value}
	for _, c := range d.Children {
		cv.Children = append(cv.Children, canonicalDecl(c))
	}
	return cv
}

// MarshalBinary produces deterministic CBOR encoding of the canonical sheet.
func (cs *CanonicalSheet) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	// Alias avoids recursing into MarshalBinary.
	type canonicalSheetAlias CanonicalSheet
	data, err := encMode.Marshal((*canonicalSheetAlias)(cs))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Digest returns the BLAKE2b-256 hash of the canonical encoding, formatted
// as "blake2b:<hex>".
func (s *Sheet) Digest() (string, error) {
	data, err := s.Canonicalize().MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to encode sheet for digest: %w", err)
	}
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("blake2b:%x", sum), nil
}
