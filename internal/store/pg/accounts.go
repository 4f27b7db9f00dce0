package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"iskolar.org/internal/auth"
	"iskolar.org/internal/ids"
)

type accountStore struct{ db *sql.DB }

func (s *accountStore) Create(ctx context.Context, a *auth.Account) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		insert into accounts (id, email, name, password_hash, role, barangay, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.Email, a.Name, a.PasswordHash, string(a.Role), nullIfEmpty(a.Barangay), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *accountStore) Find(ctx context.Context, id string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, email, name, password_hash, role, barangay, created_at, updated_at
		from accounts
		where id = $1
	`, id)
	return scanAccount(row)
}

// FindByEmail probes for up to two rows. A second row means the unique index
// was bypassed somewhere; that is an integrity fault, never a pick.
func (s *accountStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, email, name, password_hash, role, barangay, created_at, updated_at
		from accounts
		where email = $1
		limit 2
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*auth.Account
	for rows.Next() {
		a, err := scanAccountRows(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, auth.ErrAccountNotFound
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: ambiguous email match", auth.ErrStoreFault)
	}
}

func (s *accountStore) List(ctx context.Context) ([]*auth.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, email, name, password_hash, role, barangay, created_at, updated_at
		from accounts
		order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.Account
	for rows.Next() {
		a, err := scanAccountRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *accountStore) Update(ctx context.Context, a *auth.Account) error {
	res, err := s.db.ExecContext(ctx, `
		update accounts
		set email = $2, name = $3, password_hash = $4, role = $5, barangay = $6, updated_at = $7
		where id = $1
	`, a.ID, a.Email, a.Name, a.PasswordHash, string(a.Role), nullIfEmpty(a.Barangay), a.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrEmailTaken
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (s *accountStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row *sql.Row) (*auth.Account, error) {
	a, err := scanAccountRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrAccountNotFound
	}
	return a, err
}

func scanAccountRows(row rowScanner) (*auth.Account, error) {
	var (
		a        auth.Account
		role     string
		barangay sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &role, &barangay, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role = auth.Role(role)
	if barangay.Valid {
		a.Barangay = barangay.String
	}
	return &a, nil
}
