package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"iskolar.org/internal/ids"
	"iskolar.org/internal/student"
)

type studentStore struct{ db *sql.DB }

var _ student.Service = (*studentStore)(nil)

func (s *studentStore) Create(ctx context.Context, st *student.Student) error {
	st.Normalize()
	if err := st.Validate(); err != nil {
		return err
	}
	if st.ID == "" {
		st.ID = ids.New()
	}
	now := time.Now().UTC()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		insert into students (id, first_name, last_name, barangay, school, year_level, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, st.ID, st.FirstName, st.LastName, st.Barangay, st.School, st.YearLevel, st.Status, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrCheckViolation {
			return fmt.Errorf("%w: %s", student.ErrInvalidInput, pgErr.ConstraintName)
		}
		return err
	}
	return nil
}

func (s *studentStore) Get(ctx context.Context, id string) (*student.Student, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, first_name, last_name, barangay, school, year_level, status, created_at, updated_at
		from students
		where id = $1
	`, id)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, student.ErrNotFound
	}
	return st, err
}

func (s *studentStore) List(ctx context.Context, f student.Filter) ([]*student.Student, error) {
	f = f.Clamp()
	query := `
		select id, first_name, last_name, barangay, school, year_level, status, created_at, updated_at
		from students`
	var (
		conds []string
		args  []any
	)
	if f.Barangay != "" {
		args = append(args, f.Barangay)
		conds = append(conds, fmt.Sprintf("barangay = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += "\n\t\twhere " + c
		} else {
			query += " and " + c
		}
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf("\n\t\torder by last_name, first_name, id\n\t\tlimit $%d", len(args))
	args = append(args, f.Offset)
	query += fmt.Sprintf(" offset $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*student.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

func (s *studentStore) Update(ctx context.Context, st *student.Student) error {
	st.Normalize()
	if err := st.Validate(); err != nil {
		return err
	}
	st.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		update students
		set first_name = $2, last_name = $3, barangay = $4, school = $5, year_level = $6, status = $7, updated_at = $8
		where id = $1
	`, st.ID, st.FirstName, st.LastName, st.Barangay, st.School, st.YearLevel, st.Status, st.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (s *studentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from students where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func scanStudent(row rowScanner) (*student.Student, error) {
	var st student.Student
	if err := row.Scan(&st.ID, &st.FirstName, &st.LastName, &st.Barangay, &st.School, &st.YearLevel, &st.Status, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}
