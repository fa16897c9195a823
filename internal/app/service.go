package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"notesapp/api/internal/auth"
	"notesapp/api/internal/authpw"
	"notesapp/api/internal/config"
	"notesapp/api/internal/notify"
	"notesapp/api/internal/search"
	"notesapp/api/internal/store"
	"notesapp/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

type NoteInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteInput edits title and content only. The completed flag has no
// field here: ToggleCompletion is the single path that flips it, so every
// pending to completed transition goes through the notification dispatch.
type UpdateNoteInput struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Notification outcome for a completion toggle. A failed dispatch does not
// fail the toggle, the note stays completed and the caller sees "failed".
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
)

type ToggleResult struct {
	Note         store.Note
	Reopened     bool
	Notification string
}

type dataStore interface {
	ListNotesByOwner(ctx context.Context, ownerID string) ([]store.Note, error)
	InsertNote(ctx context.Context, draft store.NoteDraft) (store.Note, error)
	UpdateNoteFields(ctx context.Context, ownerID, noteID string, fields store.NoteFieldUpdate) (store.Note, error)
	GetProfile(ctx context.Context, userID string) (store.Profile, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	Ping(ctx context.Context) error
}

// sessionStore holds refresh sessions. Satisfied by both the Redis store
// and the Postgres store so deployments without Redis still work.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type completionNotifier interface {
	NotifyCompletion(ctx context.Context, event notify.CompletionEvent) error
}

type noteSearcher interface {
	Search(q search.Query) search.Response
	IndexNote(note search.NoteRecord)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	accounts *authpw.Service
	notifier completionNotifier
	search   noteSearcher

	mu    sync.Mutex
	views map[string]*collection
}

// New wires the service with Postgres-backed refresh sessions.
func New(cfg config.Config, dataStore *store.PostgresStore, accounts *authpw.Service, dispatcher *notify.Dispatcher, searcher *search.Service) *Service {
	return NewWithSessionStore(cfg, dataStore, dataStore, accounts, dispatcher, searcher)
}

// NewWithSessionStore wires the service with an external refresh session
// store, typically Redis.
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, accounts *authpw.Service, dispatcher *notify.Dispatcher, searcher *search.Service) *Service {
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		accounts: accounts,
		views:    make(map[string]*collection),
	}
	if dispatcher != nil {
		s.notifier = dispatcher
	}
	if searcher != nil {
		s.search = searcher
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	profile, err := s.accounts.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, store.User{ID: profile.ID, Name: profile.Name, Email: profile.Email})
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.accounts.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	found, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// The session store may return only the user id. Resolve the full
	// record before issuing fresh claims.
	user := found
	if user.Email == "" {
		user, err = s.store.GetUserByID(ctx, found.ID)
		if err != nil {
			return Session{}, err
		}
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		Email:     user.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// Logout revokes both tokens and drops the owner's in-memory view so the
// next sign-in starts from a fresh store snapshot.
func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	if session.UserID != "" {
		s.mu.Lock()
		delete(s.views, session.UserID)
		s.mu.Unlock()
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, session Session) (store.Profile, error) {
	profile, err := s.store.GetProfile(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Profile{}, notFoundError("profile not found")
		}
		return store.Profile{}, storeError("load profile", err)
	}
	return profile, nil
}

// lockedView returns the owner's view, loading it from the store on first
// access. Callers must hold s.mu.
func (s *Service) lockedView(ctx context.Context, ownerID string) (*collection, error) {
	if view, ok := s.views[ownerID]; ok {
		return view, nil
	}
	return s.lockedReload(ctx, ownerID)
}

// lockedReload replaces the owner's view with a fresh store snapshot.
// Callers must hold s.mu.
func (s *Service) lockedReload(ctx context.Context, ownerID string) (*collection, error) {
	notes, err := s.store.ListNotesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	view := &collection{profile: profile}
	view.replace(notes)
	s.views[ownerID] = view
	return view, nil
}

// ListNotes reads the owner's notes from the store, newest first, and
// replaces the in-memory view wholesale.
func (s *Service) ListNotes(ctx context.Context, session Session) ([]store.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, err := s.lockedReload(ctx, session.UserID)
	if err != nil {
		return nil, storeError("list notes", err)
	}
	return view.snapshot(), nil
}

func (s *Service) CreateNote(ctx context.Context, session Session, input NoteInput) (store.Note, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return store.Note{}, validationError("title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	view, err := s.lockedView(ctx, session.UserID)
	if err != nil {
		return store.Note{}, storeError("load notes", err)
	}

	note, err := s.store.InsertNote(ctx, store.NoteDraft{
		OwnerID: session.UserID,
		Title:   title,
		Content: input.Content,
	})
	if err != nil {
		return store.Note{}, storeError("create note", err)
	}

	view.prepend(note)
	s.indexNote(note)
	return note, nil
}

func (s *Service) UpdateNote(ctx context.Context, session Session, noteID string, input UpdateNoteInput) (store.Note, error) {
	if input.Title == nil && input.Content == nil {
		return store.Note{}, validationError("no fields to update")
	}
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		if trimmed == "" {
			return store.Note{}, validationError("title cannot be empty")
		}
		input.Title = &trimmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	view, err := s.lockedView(ctx, session.UserID)
	if err != nil {
		return store.Note{}, storeError("load notes", err)
	}

	note, err := s.store.UpdateNoteFields(ctx, session.UserID, noteID, store.NoteFieldUpdate{
		Title:   input.Title,
		Content: input.Content,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Note{}, notFoundError("note not found")
		}
		return store.Note{}, storeError("update note", err)
	}

	view.set(note)
	s.indexNote(note)
	return note, nil
}

// ToggleCompletion flips the completed flag of one note. Only the pending
// to completed transition dispatches a notification; reopening stays
// silent. The store write is confirmed before the view changes, and a
// notification failure never rolls the note back.
func (s *Service) ToggleCompletion(ctx context.Context, session Session, noteID string) (ToggleResult, error) {
	s.mu.Lock()
	view, err := s.lockedView(ctx, session.UserID)
	if err != nil {
		s.mu.Unlock()
		return ToggleResult{}, storeError("load notes", err)
	}
	current, ok := view.get(noteID)
	if !ok {
		s.mu.Unlock()
		return ToggleResult{}, notFoundError("note not found")
	}

	next := !current.Completed
	note, err := s.store.UpdateNoteFields(ctx, session.UserID, noteID, store.NoteFieldUpdate{Completed: &next})
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, sql.ErrNoRows) {
			return ToggleResult{}, notFoundError("note not found")
		}
		return ToggleResult{}, storeError("toggle note", err)
	}
	view.set(note)
	profile := view.profile
	s.mu.Unlock()

	result := ToggleResult{
		Note:         note,
		Reopened:     current.Completed,
		Notification: NotificationSkipped,
	}
	if !current.Completed && note.Completed {
		event := notify.CompletionEvent{
			TaskID:      note.ID,
			Title:       note.Title,
			Content:     note.Content,
			CompletedAt: note.UpdatedAt,
			UserID:      profile.ID,
			UserEmail:   profile.Email,
			UserName:    profile.Name,
		}
		if s.notifier == nil {
			result.Notification = NotificationSkipped
		} else if err := s.notifier.NotifyCompletion(ctx, event); err != nil {
			log.Printf("notify completion for note %s: %v", note.ID, err)
			result.Notification = NotificationFailed
		} else {
			result.Notification = NotificationSent
		}
	}

	s.indexNote(note)
	return result, nil
}

func (s *Service) Stats(ctx context.Context, session Session) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, err := s.lockedView(ctx, session.UserID)
	if err != nil {
		return nil, storeError("load notes", err)
	}
	total, completed := view.stats()
	return map[string]any{
		"total":     total,
		"completed": completed,
		"pending":   total - completed,
	}, nil
}

func (s *Service) SearchNotes(session Session, text string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(search.Query{
		Text:    text,
		OwnerID: session.UserID,
		Limit:   limit,
		Offset:  offset,
	})
}

func (s *Service) indexNote(note store.Note) {
	if s.search == nil {
		return
	}
	s.search.IndexNote(search.NoteRecord{
		ID:        note.ID,
		OwnerID:   note.OwnerID,
		Title:     note.Title,
		Content:   note.Content,
		Completed: note.Completed,
	})
}
