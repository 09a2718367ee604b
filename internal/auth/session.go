package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrSessionNotFound = errors.New("session not found")

// Session связывает токен из cookie с пользователем.
type Session struct {
	Token     uuid.UUID `json:"token" db:"token"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// DB matches the methods from *pgxpool.Pool that the store uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store interface {
	GetByToken(ctx context.Context, token uuid.UUID) (*Session, error)
}

type postgresStore struct {
	db DB
}

func NewStore(db DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) GetByToken(ctx context.Context, token uuid.UUID) (*Session, error) {
	query := `
		SELECT token, user_id, expires_at
		FROM sessions
		WHERE token = $1
	`

	var session Session
	err := s.db.QueryRow(ctx, query, token).Scan(
		&session.Token,
		&session.UserID,
		&session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("store: failed to select session: %w", err)
	}

	return &session, nil
}
