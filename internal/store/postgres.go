package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"notesapp/api/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash)
		VALUES ($1, $2, LOWER($3), $4)
	`, user.ID, user.Name, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var profile Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email FROM users WHERE id = $1
	`, userID).Scan(&profile.ID, &profile.Name, &profile.Email)
	if err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (s *PostgresStore) ListNotesByOwner(ctx context.Context, ownerID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, content, completed, created_at, updated_at
		FROM notes
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		var item Note
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Title, &item.Content, &item.Completed, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertNote(ctx context.Context, draft NoteDraft) (Note, error) {
	var item Note
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, completed)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, owner_id, title, content, completed, created_at, updated_at
	`, util.NewID("note"), draft.OwnerID, draft.Title, draft.Content).Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&item.Content,
		&item.Completed,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return Note{}, fmt.Errorf("insert note: %w", err)
	}
	return item, nil
}

// UpdateNoteFields applies a partial update to the owner's note and returns
// the resulting row. updated_at is always refreshed; id, owner_id and
// created_at are never touched. sql.ErrNoRows when the note does not exist
// for this owner.
func (s *PostgresStore) UpdateNoteFields(ctx context.Context, ownerID, noteID string, fields NoteFieldUpdate) (Note, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{ownerID, noteID}
	argN := 3
	if fields.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", argN))
		args = append(args, *fields.Title)
		argN++
	}
	if fields.Content != nil {
		sets = append(sets, fmt.Sprintf("content = $%d", argN))
		args = append(args, *fields.Content)
		argN++
	}
	if fields.Completed != nil {
		sets = append(sets, fmt.Sprintf("completed = $%d", argN))
		args = append(args, *fields.Completed)
	}

	query := fmt.Sprintf(`
		UPDATE notes
		SET %s
		WHERE owner_id = $1 AND id = $2
		RETURNING id, owner_id, title, content, completed, created_at, updated_at
	`, strings.Join(sets, ", "))

	var item Note
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&item.Content,
		&item.Completed,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return Note{}, err
	}
	return item, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
