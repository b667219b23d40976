package compare

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxSelected is how many entities can be compared at once
const MaxSelected = 6

var (
	ErrSelectionFull   = errors.New("selection is full")
	ErrAlreadySelected = errors.New("already selected")
)

// Selected is an entity with the index it was given when selected
type Selected struct {
	EntityID int64
	Index    int
}

// Selection is an ordered set of selected entities. Each entity keeps the
// lowest index that was free when it was added, whatever happens to the others.
type Selection struct {
	limit int
	items []Selected
}

// NewSelection creates an empty selection holding at most limit entities
func NewSelection(limit int) *Selection {
	if limit <= 0 {
		limit = MaxSelected
	}
	return &Selection{limit: limit}
}

// SelectionOf selects ids in order; duplicates are skipped
func SelectionOf(limit int, ids []int64) (*Selection, error) {
	s := NewSelection(limit)
	for _, id := range ids {
		if _, err := s.Add(id); err != nil && !errors.Is(err, ErrAlreadySelected) {
			return nil, err
		}
	}
	return s, nil
}

// Add selects id and returns its index
func (s *Selection) Add(id int64) (Selected, error) {
	if idx, ok := s.Index(id); ok {
		return Selected{EntityID: id, Index: idx}, fmt.Errorf("keyword %d: %w", id, ErrAlreadySelected)
	}
	if len(s.items) >= s.limit {
		return Selected{}, fmt.Errorf("at most %d keywords: %w", s.limit, ErrSelectionFull)
	}

	item := Selected{EntityID: id, Index: s.lowestFree()}
	s.items = append(s.items, item)
	return item, nil
}

// Remove deselects id
func (s *Selection) Remove(id int64) bool {
	for i, item := range s.items {
		if item.EntityID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Index returns the index assigned to id
func (s *Selection) Index(id int64) (int, bool) {
	for _, item := range s.items {
		if item.EntityID == id {
			return item.Index, true
		}
	}
	return 0, false
}

// Items returns the selection in selection order
func (s *Selection) Items() []Selected {
	items := make([]Selected, len(s.items))
	copy(items, s.items)
	return items
}

// IDs returns the selected ids in selection order
func (s *Selection) IDs() []int64 {
	ids := make([]int64, len(s.items))
	for i, item := range s.items {
		ids[i] = item.EntityID
	}
	return ids
}

func (s *Selection) Len() int {
	return len(s.items)
}

// Ready reports whether there is enough to compare
func (s *Selection) Ready() bool {
	return len(s.items) >= 2
}

func (s *Selection) lowestFree() int {
	used := make(map[int]bool, len(s.items))
	for _, item := range s.items {
		used[item.Index] = true
	}
	for i := 0; ; i++ {
		if !used[i] {
			return i
		}
	}
}

// ParseIDs parses a comma-separated id list such as "1,2,3"
func ParseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid keyword id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FormatIDs is the inverse of ParseIDs
func FormatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
