package events

import "strings"

// Kind is the closed set of event types.
type Kind int

const (
	KindUnknown Kind = iota
	KindStandard
	KindElse
	KindRepeat
	KindWhile
	KindForEach
	KindForEachChildVariable
	KindGroup
	KindComment
	KindLink
)

// TypePrefix namespaces the built-in event types on the wire.
const TypePrefix = "BuiltinCommonInstructions::"

var kindNames = map[Kind]string{
	KindStandard:             "Standard",
	KindElse:                 "Else",
	KindRepeat:               "Repeat",
	KindWhile:                "While",
	KindForEach:              "ForEach",
	KindForEachChildVariable: "ForEachChildVariable",
	KindGroup:                "Group",
	KindComment:              "Comment",
	KindLink:                 "Link",
}

var kindByType = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[TypePrefix+name] = k
	}
	return m
}()

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// WireType returns the serialized type string, or "" for KindUnknown.
func (k Kind) WireType() string {
	if name, ok := kindNames[k]; ok {
		return TypePrefix + name
	}
	return ""
}

// KindOf maps a serialized event type to its Kind. Anything outside the
// built-in set is KindUnknown.
func KindOf(wireType string) Kind {
	if k, ok := kindByType[wireType]; ok {
		return k
	}
	// Older files omit the namespace.
	if !strings.Contains(wireType, "::") {
		if k, ok := kindByType[TypePrefix+wireType]; ok {
			return k
		}
	}
	return KindUnknown
}

// CanHaveSubEvents reports whether events of this kind own a sub-event list.
func (k Kind) CanHaveSubEvents() bool {
	switch k {
	case KindStandard, KindElse, KindRepeat, KindWhile, KindForEach,
		KindForEachChildVariable, KindGroup:
		return true
	}
	return false
}

// CanHaveVariables reports whether events of this kind declare locals.
func (k Kind) CanHaveVariables() bool {
	switch k {
	case KindStandard, KindElse, KindRepeat, KindWhile, KindForEach,
		KindForEachChildVariable:
		return true
	}
	return false
}

// IsExecutable reports whether the kind takes part in execution. Comments and
// unknown events never run and are invisible to Else chains.
func (k Kind) IsExecutable() bool {
	return k != KindComment && k != KindUnknown
}

// IsLoop reports whether the kind repeats its body.
func (k Kind) IsLoop() bool {
	switch k {
	case KindRepeat, KindWhile, KindForEach, KindForEachChildVariable:
		return true
	}
	return false
}
