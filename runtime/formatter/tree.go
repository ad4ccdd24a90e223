package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/sheetc/runtime/compiler"
	"github.com/opal-lang/sheetc/runtime/expr"
	"github.com/opal-lang/sheetc/runtime/scope"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

// Colorize wraps text in ANSI color codes if color is enabled
func Colorize(text, color string, useColor bool) string {
	if !useColor {
		return text
	}
	return color + text + ColorReset
}

// FormatTree renders a compiled procedure as a tree structure to the given
// writer. Events dropped at compile time do not appear.
func FormatTree(w io.Writer, proc *compiler.Procedure, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s:\n", proc.Sheet)

	if proc.Root == nil || len(proc.Root.Nodes) == 0 {
		_, _ = fmt.Fprintf(w, "(no events)\n")
		return
	}
	renderBlock(w, proc.Root, "", proc.Sheet, useColor)
}

func renderBlock(w io.Writer, b *compiler.Block, indent, sheet string, useColor bool) {
	for i, n := range b.Nodes {
		prefix, childIndent := "├─ ", indent+"│  "
		if i == len(b.Nodes)-1 {
			prefix, childIndent = "└─ ", indent+"   "
		}
		_, _ = fmt.Fprintf(w, "%s%s%s\n", indent, prefix, renderNode(n, sheet, useColor))

		if h := n.Head(); h.Sub != nil && len(h.Sub.Nodes) > 0 {
			renderBlock(w, h.Sub, childIndent, sheet, useColor)
		}
	}
}

// renderNode renders one compiled event on a line. Events spliced in from
// another sheet name it.
func renderNode(n compiler.Node, sheet string, useColor bool) string {
	h := n.Head()
	var kind, detail string
	switch n := n.(type) {
	case *compiler.StandardNode:
		kind = "standard"
		if n.DetachedElse {
			kind = "else (detached)"
		}
	case *compiler.ElseNode:
		kind = "else"
		detail = "of " + n.Anchor
	case *compiler.RepeatNode:
		kind = "repeat"
		detail = expr.Format(n.Count) + " times" + renderIndex(n.Index)
	case *compiler.WhileNode:
		kind = "while"
		detail = countOf(len(n.While), "condition") + renderIndex(n.Index)
	case *compiler.ForEachNode:
		kind = "for each"
		detail = n.Object + renderIndex(n.Index)
	case *compiler.ForEachChildNode:
		kind = "for each child"
		detail = renderRef(n.Iterable)
		if n.Value != nil {
			detail += " value=" + renderRef(n.Value)
		}
		if n.Key != nil {
			detail += " key=" + renderRef(n.Key)
		}
		detail += renderIndex(n.Index)
	case *compiler.GroupNode:
		kind = "group"
		detail = fmt.Sprintf("%q", n.Name)
	case *compiler.LinkNode:
		kind = "link"
		detail = fmt.Sprintf("%q", n.Target)
	default:
		kind = fmt.Sprintf("(unknown node type: %T)", n)
	}

	parts := []string{Colorize(h.Path, ColorGray, useColor), Colorize(kind, ColorBlue, useColor)}
	if detail != "" {
		parts = append(parts, detail)
	}
	if len(h.Conditions) > 0 || len(h.Actions) > 0 {
		parts = append(parts, fmt.Sprintf("[%s, %s]", countOf(len(h.Conditions), "condition"), countOf(len(h.Actions), "action")))
	}
	if h.Frame != nil {
		parts = append(parts, Colorize("locals="+renderFrame(h.Frame), ColorCyan, useColor))
	}
	if h.Sheet != "" && h.Sheet != sheet {
		parts = append(parts, "from "+h.Sheet)
	}
	return strings.Join(parts, " ")
}

func renderIndex(ref *expr.VarRef) string {
	if ref == nil {
		return ""
	}
	return " index=" + renderRef(ref)
}

func renderRef(ref *expr.VarRef) string {
	if ref == nil {
		return "(none)"
	}
	return expr.Format(ref) + "@" + ref.Binding.String()
}

func renderFrame(f *scope.Frame) string {
	names := make([]string, 0, f.Len())
	for _, d := range f.Decls {
		names = append(names, d.Name)
	}
	for _, name := range f.Implicit {
		names = append(names, name+"*")
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func countOf(n int, what string) string {
	if n == 1 {
		return "1 " + what
	}
	return fmt.Sprintf("%d %ss", n, what)
}
