package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opal-lang/sheetc/core/events"
)

// ErrLinkNotFound is returned by resolvers that do not know a target.
var ErrLinkNotFound = errors.New("linked events not found")

// LinkResolver supplies the sheets Link events refer to.
type LinkResolver interface {
	ResolveLink(target string) (*events.Sheet, error)
}

// MapLinks resolves targets from an in-memory set of sheets, such as the
// external events of a document.
type MapLinks map[string]*events.Sheet

func (m MapLinks) ResolveLink(target string) (*events.Sheet, error) {
	if s, ok := m[target]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%q: %w", target, ErrLinkNotFound)
}

// DirLinks resolves a target by reading <Dir>/<target>.json.
type DirLinks struct {
	Dir string
}

func (d DirLinks) ResolveLink(target string) (*events.Sheet, error) {
	if target == "" || filepath.Base(target) != target {
		return nil, fmt.Errorf("%q: invalid link target", target)
	}
	data, err := os.ReadFile(filepath.Join(d.Dir, target+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", target, ErrLinkNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read linked events %q: %w", target, err)
	}
	doc, err := events.Decode(target, data)
	if err != nil {
		return nil, fmt.Errorf("linked events %q: %w", target, err)
	}
	return doc.Sheet, nil
}

// Chain tries each resolver in order.
type Chain []LinkResolver

func (c Chain) ResolveLink(target string) (*events.Sheet, error) {
	for _, r := range c {
		s, err := r.ResolveLink(target)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrLinkNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%q: %w", target, ErrLinkNotFound)
}
