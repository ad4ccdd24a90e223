package events

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/opal-lang/sheetc/core/invariant"
)

var (
	// ErrNotFound is returned when an ID is not part of the sheet.
	ErrNotFound = errors.New("event not found")
	// ErrCycle is returned when a move would place an event under itself.
	ErrCycle = errors.New("event cannot be moved under itself")
	// ErrNoSubEvents is returned when the target parent cannot own sub-events.
	ErrNoSubEvents = errors.New("event kind cannot have sub-events")
)

// sheetNamespace seeds deterministic IDs for decoded sheets.
var sheetNamespace = uuid.MustParse("5b0f3e7c-2f5e-4d61-9a53-8d3c6f1e2a90")

type entry struct {
	event    *Event
	parent   ID
	children []ID
}

// Sheet is an arena of events. Parent and child relations are ID lists, so
// moving an event between lists never invalidates IDs held elsewhere.
type Sheet struct {
	Name    string
	entries map[ID]*entry
	roots   []ID
}

// NewSheet returns an empty sheet.
func NewSheet(name string) *Sheet {
	return &Sheet{Name: name, entries: make(map[ID]*entry)}
}

// Tree is a nested, ID-free description of events used to build sheets.
type Tree struct {
	Event  *Event
	Events []Tree
}

// FromTrees builds a sheet from nested trees. IDs are derived from the sheet
// name and tree path, so the same input always yields the same IDs.
func FromTrees(name string, trees []Tree) *Sheet {
	s := NewSheet(name)
	s.addTrees(RootID, "", trees)
	return s
}

func (s *Sheet) addTrees(parent ID, parentPath string, trees []Tree) {
	for i, t := range trees {
		path := joinPath(parentPath, i)
		ev := t.Event.Clone()
		ev.ID = uuid.NewSHA1(sheetNamespace, []byte(s.Name+"/"+path))
		s.link(parent, -1, ev)
		s.addTrees(ev.ID, path, t.Events)
	}
}

// Trees returns the nested view of the events under parent.
func (s *Sheet) Trees(parent ID) []Tree {
	ids := s.Children(parent)
	out := make([]Tree, len(ids))
	for i, id := range ids {
		out[i] = Tree{Event: s.entries[id].event, Events: s.Trees(id)}
	}
	return out
}

// Len returns the number of events in the sheet.
func (s *Sheet) Len() int { return len(s.entries) }

// Event returns the event with the given ID, or nil.
func (s *Sheet) Event(id ID) *Event {
	if e, ok := s.entries[id]; ok {
		return e.event
	}
	return nil
}

// Children returns the IDs of the events directly under parent. Use RootID
// for top-level events. The slice must not be modified. Later edits install
// a new list and leave slices already returned unchanged.
func (s *Sheet) Children(parent ID) []ID {
	if parent == RootID {
		return s.roots
	}
	if e, ok := s.entries[parent]; ok {
		return e.children
	}
	return nil
}

// Parent returns the parent of id, RootID for top-level events.
func (s *Sheet) Parent(id ID) (ID, bool) {
	e, ok := s.entries[id]
	if !ok {
		return RootID, false
	}
	return e.parent, true
}

// Index returns the position of id in its parent's list.
func (s *Sheet) Index(id ID) int {
	e, ok := s.entries[id]
	if !ok {
		return -1
	}
	for i, sib := range s.Children(e.parent) {
		if sib == id {
			return i
		}
	}
	return -1
}

// Insert adds ev under parent at index (-1 appends) and returns its ID. An
// event without an ID gets a random one.
func (s *Sheet) Insert(parent ID, index int, ev *Event) (ID, error) {
	invariant.NotNil(ev, "event")
	if parent != RootID {
		p, ok := s.entries[parent]
		if !ok {
			return RootID, fmt.Errorf("insert under %s: %w", parent, ErrNotFound)
		}
		if !p.event.Kind.CanHaveSubEvents() {
			return RootID, fmt.Errorf("insert under %s event: %w", p.event.Kind, ErrNoSubEvents)
		}
	}
	if ev.ID == RootID {
		ev.ID = uuid.New()
	}
	if _, exists := s.entries[ev.ID]; exists {
		return RootID, fmt.Errorf("event %s already in sheet", ev.ID)
	}
	s.link(parent, index, ev)
	return ev.ID, nil
}

func (s *Sheet) link(parent ID, index int, ev *Event) {
	s.entries[ev.ID] = &entry{event: ev, parent: parent}
	s.attach(parent, index, ev.ID)
}

func (s *Sheet) attach(parent ID, index int, id ID) {
	list := s.Children(parent)
	if index < 0 || index > len(list) {
		index = len(list)
	}
	out := make([]ID, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, id)
	out = append(out, list[index:]...)
	s.setChildren(parent, out)
	s.entries[id].parent = parent
}

func (s *Sheet) detach(id ID) {
	e := s.entries[id]
	list := s.Children(e.parent)
	for i, sib := range list {
		if sib == id {
			out := make([]ID, 0, len(list)-1)
			out = append(out, list[:i]...)
			out = append(out, list[i+1:]...)
			s.setChildren(e.parent, out)
			return
		}
	}
}

func (s *Sheet) setChildren(parent ID, list []ID) {
	if parent == RootID {
		s.roots = list
		return
	}
	s.entries[parent].children = list
}

// Remove deletes id and its whole subtree.
func (s *Sheet) Remove(id ID) error {
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	s.detach(id)
	s.drop(id)
	return nil
}

func (s *Sheet) drop(id ID) {
	for _, c := range s.entries[id].children {
		s.drop(c)
	}
	delete(s.entries, id)
}

// Move re-parents id under parent at index (-1 appends). The subtree moves
// with it and every ID stays valid.
func (s *Sheet) Move(id, parent ID, index int) error {
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("move %s: %w", id, ErrNotFound)
	}
	if parent != RootID {
		p, ok := s.entries[parent]
		if !ok {
			return fmt.Errorf("move under %s: %w", parent, ErrNotFound)
		}
		if !p.event.Kind.CanHaveSubEvents() {
			return fmt.Errorf("move under %s event: %w", p.event.Kind, ErrNoSubEvents)
		}
		for a := parent; a != RootID; a = s.entries[a].parent {
			if a == id {
				return ErrCycle
			}
		}
	}
	s.detach(id)
	s.attach(parent, index, id)
	return nil
}

// Path returns the dotted position of id, e.g. "0.6.1".
func (s *Sheet) Path(id ID) string {
	var parts []string
	for cur := id; cur != RootID; {
		e, ok := s.entries[cur]
		if !ok {
			return ""
		}
		parts = append(parts, strconv.Itoa(s.Index(cur)))
		cur = e.parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// ByPath resolves a dotted path to an ID.
func (s *Sheet) ByPath(path string) (ID, bool) {
	cur := RootID
	for _, part := range strings.Split(path, ".") {
		i, err := strconv.Atoi(part)
		list := s.Children(cur)
		if err != nil || i < 0 || i >= len(list) {
			return RootID, false
		}
		cur = list[i]
	}
	return cur, cur != RootID
}

// Walk visits every event depth-first in document order. Returning false
// from fn skips the event's sub-events.
func (s *Sheet) Walk(fn func(id ID, depth int) bool) {
	s.walk(RootID, 0, fn)
}

func (s *Sheet) walk(parent ID, depth int, fn func(ID, int) bool) {
	for _, id := range s.Children(parent) {
		if fn(id, depth) {
			s.walk(id, depth+1, fn)
		}
	}
}

func joinPath(parent string, i int) string {
	if parent == "" {
		return strconv.Itoa(i)
	}
	return parent + "." + strconv.Itoa(i)
}
