package models

import "github.com/google/uuid"

// InheritanceTree is an adjacency map from child metatype to parent. Roots
// have no entry; the external "Thing" root is never stored.
type InheritanceTree struct {
	parent map[uuid.UUID]uuid.UUID
}

// NewInheritanceTree builds a tree from child -> parent links.
func NewInheritanceTree(links map[uuid.UUID]uuid.UUID) *InheritanceTree {
	t := &InheritanceTree{parent: make(map[uuid.UUID]uuid.UUID, len(links))}
	for c, p := range links {
		t.parent[c] = p
	}
	return t
}

// TreeFromMetatypes builds a tree from the parent ids of loaded metatypes.
func TreeFromMetatypes(metatypes []Metatype) *InheritanceTree {
	t := &InheritanceTree{parent: make(map[uuid.UUID]uuid.UUID)}
	for _, m := range metatypes {
		if m.ParentID != nil {
			t.parent[m.ID] = *m.ParentID
		}
	}
	return t
}

func (t *InheritanceTree) Set(child, parent uuid.UUID) { t.parent[child] = parent }

func (t *InheritanceTree) Remove(child uuid.UUID) { delete(t.parent, child) }

// Parent returns the direct parent of id.
func (t *InheritanceTree) Parent(id uuid.UUID) (uuid.UUID, bool) {
	p, ok := t.parent[id]
	return p, ok
}

// Ancestors returns id's ancestors, nearest first. A cycle in the stored data
// ends the walk instead of looping.
func (t *InheritanceTree) Ancestors(id uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	seen := map[uuid.UUID]bool{id: true}
	for cur := id; ; {
		p, ok := t.parent[cur]
		if !ok || seen[p] {
			return out
		}
		seen[p] = true
		out = append(out, p)
		cur = p
	}
}

// WouldCycle reports whether making parent the parent of child closes a loop.
func (t *InheritanceTree) WouldCycle(child, parent uuid.UUID) bool {
	if child == parent {
		return true
	}
	for _, a := range t.Ancestors(parent) {
		if a == child {
			return true
		}
	}
	return false
}

// Descendants returns every id that has id among its ancestors.
func (t *InheritanceTree) Descendants(id uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for child := range t.parent {
		for _, a := range t.Ancestors(child) {
			if a == id {
				out = append(out, child)
				break
			}
		}
	}
	return out
}

// FlattenKeys returns the own keys of id followed by inherited keys. A key
// defined closer to id shadows an ancestor key with the same property name.
func (t *InheritanceTree) FlattenKeys(id uuid.UUID, own map[uuid.UUID][]MetatypeKey) []MetatypeKey {
	seen := map[string]bool{}
	var out []MetatypeKey
	for _, mid := range append([]uuid.UUID{id}, t.Ancestors(id)...) {
		for _, k := range own[mid] {
			if seen[k.PropertyName] {
				continue
			}
			seen[k.PropertyName] = true
			out = append(out, k)
		}
	}
	return out
}
