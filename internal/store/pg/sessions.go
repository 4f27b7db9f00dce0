package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"iskolar.org/internal/auth"
	"iskolar.org/internal/ids"
)

type sessionStore struct{ db *sql.DB }

func (s *sessionStore) Create(ctx context.Context, sess *auth.Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into sessions (id, subject_id, remember, issued_at, expires_at)
		values ($1, $2, $3, $4, $5)
	`, sess.ID, sess.SubjectID, sess.Remember, sess.IssuedAt, sess.ExpiresAt)
	if err != nil {
		// The subject row can vanish between authenticate and issue.
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return auth.ErrAccountNotFound
		}
		return err
	}
	return nil
}

func (s *sessionStore) Find(ctx context.Context, id string) (*auth.Session, error) {
	var (
		sess      auth.Session
		revokedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, subject_id, remember, issued_at, expires_at, revoked_at
		from sessions
		where id = $1
	`, id).Scan(&sess.ID, &sess.SubjectID, &sess.Remember, &sess.IssuedAt, &sess.ExpiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		sess.RevokedAt = &t
	}
	return &sess, nil
}

func (s *sessionStore) Revoke(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update sessions
		set revoked_at = $2
		where id = $1 and revoked_at is null
	`, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either already revoked or never ours. Both are fine for Revoke;
		// distinguish only a true miss.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `select exists(select 1 from sessions where id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return auth.ErrSessionNotFound
		}
	}
	return nil
}

func (s *sessionStore) RevokeBySubject(ctx context.Context, subjectID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		update sessions
		set revoked_at = $2
		where subject_id = $1 and revoked_at is null
	`, subjectID, at)
	return err
}

func (s *sessionStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from sessions where expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
