// Package multikey implements a dict addressable by more than one key, the
// Go analogue of pyspades' MultikeyDict used to look a session up by either
// its player-id or its display name.
package multikey

// Index maps both an int player-id and a lowercased name to the same value.
// It exists instead of two parallel maps so the two keys can never drift
// out of sync with each other.
type Index[V any] struct {
	byID   map[int]V
	byName map[string]V
}

// New returns an empty Index.
func New[V any]() *Index[V] {
	return &Index[V]{
		byID:   make(map[int]V),
		byName: make(map[string]V),
	}
}

// Put registers v under both id and name (name already lowercased by the
// caller — this package does no case folding itself).
func (idx *Index[V]) Put(id int, name string, v V) {
	idx.byID[id] = v
	idx.byName[name] = v
}

// Delete removes the entry for id and the entry for name; the two are not
// checked against each other.
func (idx *Index[V]) Delete(id int, name string) {
	delete(idx.byID, id)
	delete(idx.byName, name)
}

// ByID looks up by player-id.
func (idx *Index[V]) ByID(id int) (V, bool) {
	v, ok := idx.byID[id]
	return v, ok
}

// ByName looks up by lowercased name.
func (idx *Index[V]) ByName(name string) (V, bool) {
	v, ok := idx.byName[name]
	return v, ok
}

// Len returns the number of entries (by id — the two maps are always the
// same size).
func (idx *Index[V]) Len() int {
	return len(idx.byID)
}

// Names returns a snapshot of all registered names, for uniqueness checks.
func (idx *Index[V]) Names() []string {
	out := make([]string, 0, len(idx.byName))
	for n := range idx.byName {
		out = append(out, n)
	}
	return out
}
