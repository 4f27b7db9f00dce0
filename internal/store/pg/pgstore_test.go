package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"iskolar.org/internal/auth"
	"iskolar.org/internal/student"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func accountColumns() []string {
	return []string{"id", "email", "name", "password_hash", "role", "barangay", "created_at", "updated_at"}
}

func TestFindByEmailSingleMatch(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from accounts").
		WithArgs("admin@example.org").
		WillReturnRows(sqlmock.NewRows(accountColumns()).
			AddRow("id-1", "admin@example.org", "Field Officer", "$2a$04$hash", "admin", "San Isidro", now, now))

	account, err := store.Accounts().FindByEmail(context.Background(), "admin@example.org")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if account.Role != auth.RoleAdmin || account.Barangay != "San Isidro" {
		t.Fatalf("unexpected account %+v", account)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByEmailMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from accounts").
		WithArgs("ghost@example.org").
		WillReturnRows(sqlmock.NewRows(accountColumns()))

	_, err := store.Accounts().FindByEmail(context.Background(), "ghost@example.org")
	if !errors.Is(err, auth.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestFindByEmailAmbiguousIsFault(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from accounts").
		WithArgs("dup@example.org").
		WillReturnRows(sqlmock.NewRows(accountColumns()).
			AddRow("id-1", "dup@example.org", "A", "$2a$04$hash", "admin", "San Isidro", now, now).
			AddRow("id-2", "dup@example.org", "B", "$2a$04$hash", "admin", "Poblacion", now, now))

	_, err := store.Accounts().FindByEmail(context.Background(), "dup@example.org")
	if !errors.Is(err, auth.ErrStoreFault) {
		t.Fatalf("two matches must be a store fault, got %v", err)
	}
	if errors.Is(err, auth.ErrAccountNotFound) {
		t.Fatalf("ambiguity must not read as a miss: %v", err)
	}
}

func TestCreateAccountUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into accounts").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "accounts_email_key"})

	err := store.Accounts().Create(context.Background(), &auth.Account{
		Email:        "dup@example.org",
		PasswordHash: "$2a$04$hash",
		Role:         auth.RoleAdmin,
		Barangay:     "San Isidro",
	})
	if !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateAccountStoresNullBarangayForMaster(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into accounts").
		WithArgs(sqlmock.AnyArg(), "master@example.org", "Head Office", "$2a$04$hash", "master_admin", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Accounts().Create(context.Background(), &auth.Account{
		Email:        "master@example.org",
		Name:         "Head Office",
		PasswordHash: "$2a$04$hash",
		Role:         auth.RoleMasterAdmin,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateAccountMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Accounts().Update(context.Background(), &auth.Account{
		ID:    "missing",
		Email: "a@example.org",
		Role:  auth.RoleAdmin,
	})
	if !errors.Is(err, auth.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestDeleteAccountMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from accounts").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Accounts().Delete(context.Background(), "missing"); !errors.Is(err, auth.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func sessionColumns() []string {
	return []string{"id", "subject_id", "remember", "issued_at", "expires_at", "revoked_at"}
}

func TestSessionFindLive(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from sessions").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow("sess-1", "acct-1", false, now, now.Add(12*time.Hour), nil))

	sess, err := store.Sessions().Find(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if sess.Revoked() {
		t.Fatalf("live session read as revoked: %+v", sess)
	}
	if sess.SubjectID != "acct-1" {
		t.Fatalf("unexpected subject %q", sess.SubjectID)
	}
}

func TestSessionFindRevoked(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from sessions").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow("sess-1", "acct-1", false, now, now.Add(12*time.Hour), now))

	sess, err := store.Sessions().Find(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !sess.Revoked() {
		t.Fatal("revoked_at timestamp must mark the session revoked")
	}
}

func TestSessionFindMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from sessions").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sessionColumns()))

	if _, err := store.Sessions().Find(context.Background(), "missing"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRevokeAlreadyRevoked(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select exists").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if err := store.Sessions().Revoke(context.Background(), "sess-1", time.Now()); err != nil {
		t.Fatalf("revoking an already revoked session must be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRevokeMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select exists").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if err := store.Sessions().Revoke(context.Background(), "missing", time.Now()); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionPurgeExpired(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from sessions").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Sessions().PurgeExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 purged rows, got %d", n)
	}
}

func TestSessionCreateSubjectGone(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into sessions").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "sessions_subject_id_fkey"})

	err := store.Sessions().Create(context.Background(), &auth.Session{
		SubjectID: "gone",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(12 * time.Hour),
	})
	if !errors.Is(err, auth.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func studentColumns() []string {
	return []string{"id", "first_name", "last_name", "barangay", "school", "year_level", "status", "created_at", "updated_at"}
}

func TestStudentListScopesQuery(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from students").
		WithArgs("San Isidro", 100, 0).
		WillReturnRows(sqlmock.NewRows(studentColumns()).
			AddRow("st-1", "Juan", "Dela Cruz", "San Isidro", "INHS", "Grade 11", "active", now, now))

	list, err := store.Students().List(context.Background(), student.Filter{Barangay: "San Isidro"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Barangay != "San Isidro" {
		t.Fatalf("unexpected list %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStudentListWithStatusFilter(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from students").
		WithArgs("San Isidro", "graduated", 50, 10).
		WillReturnRows(sqlmock.NewRows(studentColumns()))

	_, err := store.Students().List(context.Background(), student.Filter{
		Barangay: "San Isidro",
		Status:   "graduated",
		Limit:    50,
		Offset:   10,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStudentUpdateMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update students").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Students().Update(context.Background(), &student.Student{
		ID:        "missing",
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Barangay:  "San Isidro",
	})
	if !errors.Is(err, student.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStudentCreateRejectsInvalidBeforeQuery(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.Students().Create(context.Background(), &student.Student{FirstName: "Juan"})
	if !errors.Is(err, student.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	// No expectations were registered; reaching the database would have
	// failed the test on its own.
}

func TestStudentCreateCheckViolationIsInvalidInput(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into students").
		WillReturnError(&pgconn.PgError{Code: pgErrCheckViolation, ConstraintName: "students_status_check"})

	err := store.Students().Create(context.Background(), &student.Student{
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Barangay:  "San Isidro",
	})
	if !errors.Is(err, student.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
