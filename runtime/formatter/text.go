// Package formatter renders event sheets and compiled procedures as text.
// This includes the plain-text sheet rendering, diffs between renderings,
// and tree displays of compiled procedures.
package formatter

import (
	"strconv"
	"strings"

	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/runtime/metadata"
)

// Fixed texts of the rendering.
const (
	DisabledLine = "(This event is disabled - ignored)"
	UnknownLine  = "(This event is unknown/unsupported - ignored)"
	UnknownInstr = "Unknown or unsupported instruction"
	RenderFailed = "Error while rendering events as text."
)

// Options control the rendering.
type Options struct {
	// Translated renders sentences through the registry translator. By
	// default sentences are rendered as registered.
	Translated bool
}

// Format returns the text rendering of every event of sheet. Used for
// review, diffing and as context for editing tools.
//
// Format:
//
//	<event-0>
//	 Conditions:
//	 - <sentence>
//	 Actions:
//	 (no actions)
//	 Sub-events:
//	  <event-0.0>
//	  ...
//	  </event-0.0>
//	</event-0>
func Format(sheet *events.Sheet, reg *metadata.Registry) string {
	return FormatWith(sheet, reg, Options{})
}

// FormatWith is Format with options. A sheet that cannot be rendered, such
// as one whose arena is inconsistent, gives RenderFailed.
func FormatWith(sheet *events.Sheet, reg *metadata.Registry, opts Options) (text string) {
	defer func() {
		if recover() != nil {
			text = RenderFailed
		}
	}()
	r := &renderer{sheet: sheet, reg: reg, opts: opts}
	return r.events(events.RootID, "", "")
}

// FormatEvent returns the rendering of a single event and its sub-events,
// wrapped in its tag. Failures give RenderFailed, as in FormatWith.
func FormatEvent(sheet *events.Sheet, reg *metadata.Registry, id events.ID) (text string) {
	defer func() {
		if recover() != nil {
			text = RenderFailed
		}
	}()
	r := &renderer{sheet: sheet, reg: reg}
	return r.tagged(id, sheet.Path(id), "")
}

type renderer struct {
	sheet *events.Sheet
	reg   *metadata.Registry
	opts  Options
}

func (r *renderer) events(parent events.ID, parentPath, padding string) string {
	ids := r.sheet.Children(parent)
	parts := make([]string, len(ids))
	for i, id := range ids {
		path := strconv.Itoa(i)
		if parentPath != "" {
			path = parentPath + "." + path
		}
		parts[i] = r.tagged(id, path, padding)
	}
	return strings.Join(parts, "\n")
}

func (r *renderer) tagged(id events.ID, path, padding string) string {
	open := "<event-" + path
	if !r.sheet.Event(id).Disabled {
		if anchor, ok := r.sheet.ElseAnchor(id); ok {
			open += ` else-of="event-` + siblingPath(path, r.sheet.Index(anchor)) + `"`
		}
	}
	return padding + open + ">\n" +
		r.event(id, path, padding+" ") + "\n" +
		padding + "</event-" + path + ">"
}

// siblingPath replaces the last index of path.
func siblingPath(path string, index int) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i+1] + strconv.Itoa(index)
	}
	return strconv.Itoa(index)
}

func (r *renderer) event(id events.ID, path, padding string) string {
	ev := r.sheet.Event(id)
	if ev.Disabled {
		return padding + DisabledLine
	}

	locals := ""
	if ev.Kind.CanHaveVariables() && ev.HasVariables() {
		locals = r.locals(ev.Variables, padding)
	}

	prefix, content, ok := r.content(id, ev, padding)
	if !ok {
		return padding + UnknownLine
	}
	text := joinNonEmpty("\n\n", joinNonEmpty("\n", prefix, locals), content)

	if ev.Kind.CanHaveSubEvents() {
		if sub := r.events(id, path, padding+" "); sub != "" {
			text += "\n" + padding + "Sub-events:\n" + sub
		}
	}
	return text
}

// content renders the body of ev. ok is false for kinds with no rendering.
func (r *renderer) content(id events.ID, ev *events.Event, padding string) (prefix, content string, ok bool) {
	inner := padding + " "
	switch ev.Kind {
	case events.KindStandard:
		return "", r.body(ev, padding, padding), true

	case events.KindElse:
		label := "Else"
		if len(ev.Conditions) > 0 {
			label = "Else if"
		}
		if _, valid := r.sheet.ElseAnchor(id); valid {
			prefix = padding + label
		} else {
			prefix = padding + "~~" + label + "~~ (Else is ignored because not following a standard event)"
		}
		return prefix, r.body(ev, padding, padding), true

	case events.KindComment:
		return "", padding + "(comment - content is not displayed)", true

	case events.KindWhile:
		return "", padding + "While these conditions are true:\n" +
			r.instructions(ev.WhileConditions, inner, true) + "\n" +
			padding + "Then do:\n" +
			r.body(ev, padding, inner), true

	case events.KindRepeat:
		return "", padding + "Repeat `" + ev.RepeatExpression + "` times these:\n" +
			r.body(ev, padding, inner), true

	case events.KindForEach:
		return "", padding + "Repeat these separately for each instance of " + ev.Object + ":\n" +
			r.body(ev, padding, inner), true

	case events.KindForEachChildVariable:
		return "", padding + "For each child in `" + orDefault(ev.IterableVariableName, "(no variable chosen yet)") +
			"`, store the child in variable `" + orDefault(ev.ValueIteratorVariableName, "(ignored)") +
			"`, the child name in `" + orDefault(ev.KeyIteratorVariableName, "(ignored)") +
			"` and do:\n" +
			r.body(ev, padding, inner), true

	case events.KindGroup:
		return "", padding + `Group called "` + ev.Name + `":`, true

	case events.KindLink:
		return "", padding + `(link to events in events sheet called "` + ev.Target + `")`, true
	}
	return "", "", false
}

// body renders the condition and action lists. Headings use padding, the
// instructions listPadding.
func (r *renderer) body(ev *events.Event, padding, listPadding string) string {
	return padding + "Conditions:\n" +
		r.instructions(ev.Conditions, listPadding, true) + "\n" +
		padding + "Actions:\n" +
		r.instructions(ev.Actions, listPadding, false)
}

func (r *renderer) instructions(list []events.Instruction, padding string, conditions bool) string {
	if len(list) == 0 {
		if conditions {
			return padding + "(no conditions)"
		}
		return padding + "(no actions)"
	}

	lines := make([]string, 0, len(list))
	for _, in := range list {
		meta, known := r.reg.Instruction(in.Type, conditions)

		line := padding + "- "
		if in.Inverted {
			line += "(inverted) "
		}
		if known {
			line += metadata.FormatSentence(r.sentence(meta), in.Parameters)
		} else {
			line += UnknownInstr
		}
		lines = append(lines, line)

		if known && meta.CanHaveSubInstructions() {
			lines = append(lines, r.instructions(in.SubInstructions, padding+"  ", conditions))
		}
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) sentence(in *metadata.Instruction) string {
	if r.opts.Translated {
		return r.reg.Sentence(in)
	}
	return in.Sentence
}

func (r *renderer) locals(decls []events.VariableDecl, padding string) string {
	lines := make([]string, len(decls))
	for i, d := range decls {
		v := d.Build()
		lines[i] = padding + `- Declare local variable "` + d.Name + `" of type "` + v.Type().String() +
			"\" with value `" + v.JSON() + "`"
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
