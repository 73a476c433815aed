package workspace

import (
	"slices"
	"time"
)

// MutationKind identifies a confirmed change to the remote collection.
type MutationKind int

const (
	// Replaced carries a full listing that supersedes the mirror.
	Replaced MutationKind = iota
	// Created carries the record the store returned from an insert.
	Created
	// Touched carries the id and time last_used was set to.
	Touched
	// Deleted carries the id that was removed.
	Deleted
)

// Mutation is a change the record store has already accepted.
type Mutation struct {
	Kind       MutationKind
	Workspace  Workspace
	Workspaces []Workspace
	ID         string
	At         time.Time
}

// Mirror is the in-memory copy of one user's workspace collection. It is not
// safe for concurrent use.
type Mirror struct {
	items []Workspace
}

// Apply folds a confirmed mutation into the mirror.
func (m *Mirror) Apply(mu Mutation) {
	switch mu.Kind {
	case Replaced:
		m.items = slices.Clone(mu.Workspaces)
	case Created:
		m.items = append([]Workspace{mu.Workspace}, m.items...)
	case Touched:
		for i := range m.items {
			if m.items[i].ID != mu.ID {
				continue
			}
			// last_used never moves backwards, even if the local clock does.
			if m.items[i].LastUsed == nil || mu.At.After(*m.items[i].LastUsed) {
				at := mu.At
				m.items[i].LastUsed = &at
			}
		}
	case Deleted:
		m.items = slices.DeleteFunc(m.items, func(w Workspace) bool {
			return w.ID == mu.ID
		})
	}
}

// Items returns a copy of the mirrored workspaces in mirror order.
func (m *Mirror) Items() []Workspace {
	out := make([]Workspace, len(m.items))
	for i, w := range m.items {
		w.LastUsed = copyTime(w.LastUsed)
		out[i] = w
	}
	return out
}

// Get returns the mirrored workspace with id.
func (m *Mirror) Get(id string) (Workspace, bool) {
	for _, w := range m.items {
		if w.ID == id {
			w.LastUsed = copyTime(w.LastUsed)
			return w, true
		}
	}
	return Workspace{}, false
}

// Len returns the number of mirrored workspaces.
func (m *Mirror) Len() int {
	return len(m.items)
}
