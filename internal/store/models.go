package store

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the read-only projection of a user exposed to the rest of
// the application. It never carries credentials.
type Profile struct {
	ID    string
	Name  string
	Email string
}

// Note is a persisted note row. ID, CreatedAt and OwnerID are assigned at
// creation and never change; UpdatedAt is refreshed by the store on every
// mutation.
type Note struct {
	ID        string
	OwnerID   string
	Title     string
	Content   string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteDraft is the shape accepted for creation. It deliberately has no ID
// or timestamps - those belong to the store.
type NoteDraft struct {
	OwnerID string
	Title   string
	Content string
}

// NoteFieldUpdate is a partial update. Nil fields are left untouched.
type NoteFieldUpdate struct {
	Title     *string
	Content   *string
	Completed *bool
}
