package inbox

import "github.com/nhle/lnemail-client/internal/model"

// CheckState is the state of the select-all control.
type CheckState int

const (
	Unchecked CheckState = iota
	Indeterminate
	Checked
)

// Selection is the set of email ids marked for batch delete. The zero
// value is not usable; call NewSelection.
type Selection struct {
	ids   map[string]struct{}
	order []string
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: map[string]struct{}{}}
}

// Len returns the number of selected ids.
func (s *Selection) Len() int { return len(s.ids) }

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Set selects or deselects id.
func (s *Selection) Set(id string, selected bool) {
	if selected {
		if _, ok := s.ids[id]; !ok {
			s.ids[id] = struct{}{}
			s.order = append(s.order, id)
		}
		return
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		s.compact()
	}
}

// Toggle flips id and returns its new state.
func (s *Selection) Toggle(id string) bool {
	selected := !s.Has(id)
	s.Set(id, selected)
	return selected
}

// SetVisible selects or deselects every id in visible. Ids outside the
// visible page are left untouched.
func (s *Selection) SetVisible(visible []string, selected bool) {
	for _, id := range visible {
		s.Set(id, selected)
	}
}

// VisibleState summarizes how much of the visible page is selected.
func (s *Selection) VisibleState(visible []string) CheckState {
	if len(visible) == 0 {
		return Unchecked
	}
	n := 0
	for _, id := range visible {
		if s.Has(id) {
			n++
		}
	}
	switch {
	case n == len(visible):
		return Checked
	case n > 0:
		return Indeterminate
	default:
		return Unchecked
	}
}

// Purge drops ids that are no longer present in emails.
func (s *Selection) Purge(emails []model.Email) {
	present := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		present[e.ID] = struct{}{}
	}
	changed := false
	for id := range s.ids {
		if _, ok := present[id]; !ok {
			delete(s.ids, id)
			changed = true
		}
	}
	if changed {
		s.compact()
	}
}

// Clear removes all ids.
func (s *Selection) Clear() {
	s.ids = map[string]struct{}{}
	s.order = nil
}

// IDs returns the selected ids in selection order.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Clone returns an independent copy.
func (s *Selection) Clone() *Selection {
	c := NewSelection()
	for _, id := range s.order {
		c.Set(id, true)
	}
	return c
}

func (s *Selection) compact() {
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.ids[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
}
