package events

// PreviousExecutable returns the nearest preceding sibling of id that is
// executable and not disabled. Comments, unknown events and disabled events
// are skipped.
func (s *Sheet) PreviousExecutable(id ID) (ID, bool) {
	parent, ok := s.Parent(id)
	if !ok {
		return RootID, false
	}
	siblings := s.Children(parent)
	idx := s.Index(id)
	for i := idx - 1; i >= 0; i-- {
		if s.entries[siblings[i]].event.IsExecutable() {
			return siblings[i], true
		}
	}
	return RootID, false
}

// ElseAnchor returns the event an Else attaches to. It is valid only when
// the nearest preceding executable sibling is a Standard or an Else event.
// The compiler and the text renderer both rely on this single definition.
func (s *Sheet) ElseAnchor(id ID) (ID, bool) {
	ev := s.Event(id)
	if ev == nil || ev.Kind != KindElse {
		return RootID, false
	}
	prev, ok := s.PreviousExecutable(id)
	if !ok {
		return RootID, false
	}
	switch s.entries[prev].event.Kind {
	case KindStandard, KindElse:
		return prev, true
	}
	return RootID, false
}
