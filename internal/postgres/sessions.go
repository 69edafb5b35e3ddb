package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/fusionx/internal/domain"
)

// SessionStore implements domain.SessionStore with the session body kept
// as JSONB.
type SessionStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ domain.SessionStore = (*SessionStore)(nil)

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool, now: time.Now}
}

// Load returns ErrSessionNotFound for unknown and expired sessions.
func (s *SessionStore) Load(ctx context.Context, id string) (*domain.SessionContext, error) {
	var (
		data      []byte
		expiresAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, expires_at FROM sessions WHERE id = $1 AND expires_at > $2`,
		id, s.now()).Scan(&data, &expiresAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.WithOp(domain.ErrSessionNotFound, "session.load")
		}
		return nil, domain.Internal(err, "session.load", "failed to load session")
	}

	var sess domain.SessionContext
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, domain.Internal(err, "session.load", "failed to decode session")
	}
	sess.ID = id
	sess.ExpiresAt = expiresAt
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.SessionContext) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return domain.Internal(err, "session.save", "failed to encode session")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, data, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		sess.ID, data, sess.ExpiresAt)
	if err != nil {
		return domain.Internal(err, "session.save", "failed to save session")
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return domain.Internal(err, "session.delete", "failed to delete session")
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, domain.Internal(err, "session.delete_expired", "failed to delete expired sessions")
	}
	return tag.RowsAffected(), nil
}
