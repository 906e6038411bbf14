// Package classes maps class ids to names and summarizes how often each
// class occurs in a label directory.
package classes

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/dataset-tools/internal/labels"
)

var (
	// ErrUnknownClass indicates a name or id missing from the table.
	ErrUnknownClass = errors.New("unknown class")

	// ErrDuplicateClass indicates two names share an id or a name repeats.
	ErrDuplicateClass = errors.New("duplicate class")
)

// Table is a bidirectional ClassID <-> name mapping.
type Table struct {
	byName map[string]labels.ClassID
	byID   map[labels.ClassID]string
}

// NewTable builds a table from a name -> id mapping.
func NewTable(m map[string]int) (*Table, error) {
	t := &Table{
		byName: make(map[string]labels.ClassID, len(m)),
		byID:   make(map[labels.ClassID]string, len(m)),
	}
	// sorted for stable error messages
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := t.add(name, m[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// TableFromNames builds a table where each name's id is its index.
func TableFromNames(names []string) (*Table, error) {
	t := &Table{
		byName: make(map[string]labels.ClassID, len(names)),
		byID:   make(map[labels.ClassID]string, len(names)),
	}
	for i, name := range names {
		if err := t.add(name, i); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(name string, id int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("class id %d: empty name", id)
	}
	if id < 0 {
		return fmt.Errorf("class %q: negative id %d", name, id)
	}
	if _, ok := t.byName[name]; ok {
		return fmt.Errorf("%w: name %q", ErrDuplicateClass, name)
	}
	if other, ok := t.byID[labels.ClassID(id)]; ok {
		return fmt.Errorf("%w: id %d used by %q and %q", ErrDuplicateClass, id, other, name)
	}
	t.byName[name] = labels.ClassID(id)
	t.byID[labels.ClassID(id)] = name
	return nil
}

// Len returns the number of classes.
func (t *Table) Len() int { return len(t.byID) }

// ID returns the id of name.
func (t *Table) ID(name string) (labels.ClassID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the name of id.
func (t *Table) Name(id labels.ClassID) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// IDs returns all ids ascending.
func (t *Table) IDs() []labels.ClassID {
	ids := make([]labels.ClassID, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Names returns all names ordered by id.
func (t *Table) Names() []string {
	ids := t.IDs()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = t.byID[id]
	}
	return names
}

// Resolve turns class tokens, given as names or numeric ids, into ids known
// to the table. A nil table accepts any non-negative numeric id.
func (t *Table) Resolve(tokens []string) ([]labels.ClassID, error) {
	ids := make([]labels.ClassID, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if t != nil {
			if id, ok := t.byName[tok]; ok {
				ids = append(ids, id)
				continue
			}
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			if t == nil {
				return nil, fmt.Errorf("%w: %q (class names need a class table)", ErrUnknownClass, tok)
			}
			return nil, fmt.Errorf("%w: %q", ErrUnknownClass, tok)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownClass, n)
		}
		if t != nil {
			if _, ok := t.byID[labels.ClassID(n)]; !ok {
				return nil, fmt.Errorf("%w: id %d", ErrUnknownClass, n)
			}
		}
		ids = append(ids, labels.ClassID(n))
	}
	return ids, nil
}
