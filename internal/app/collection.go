package app

import "notesapp/api/internal/store"

// collection is the in-memory view of one owner's notes, newest first.
// Mutations happen only after the store confirms the write, so the view
// never carries optimistic state.
type collection struct {
	profile store.Profile
	notes   []store.Note
}

// replace swaps the whole view for a fresh store snapshot.
func (c *collection) replace(notes []store.Note) {
	c.notes = notes
}

// prepend puts a newly created note at the head of the view.
func (c *collection) prepend(note store.Note) {
	c.notes = append([]store.Note{note}, c.notes...)
}

// set replaces the note with the same id in place, preserving order.
// Returns false when the id is not in the view.
func (c *collection) set(note store.Note) bool {
	for i := range c.notes {
		if c.notes[i].ID == note.ID {
			c.notes[i] = note
			return true
		}
	}
	return false
}

func (c *collection) get(id string) (store.Note, bool) {
	for i := range c.notes {
		if c.notes[i].ID == id {
			return c.notes[i], true
		}
	}
	return store.Note{}, false
}

// snapshot returns a copy so callers never alias the live view.
func (c *collection) snapshot() []store.Note {
	out := make([]store.Note, len(c.notes))
	copy(out, c.notes)
	return out
}

func (c *collection) stats() (total, completed int) {
	total = len(c.notes)
	for i := range c.notes {
		if c.notes[i].Completed {
			completed++
		}
	}
	return total, completed
}
