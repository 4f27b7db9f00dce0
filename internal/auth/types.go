package auth

import (
	"strings"
	"time"
)

// Role is the privilege level of a console account.
type Role string

const (
	// RoleMasterAdmin manages accounts and sees every barangay.
	RoleMasterAdmin Role = "master_admin"
	// RoleAdmin works student records inside one assigned barangay.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleMasterAdmin || r == RoleAdmin
}

// Account represents one console user: a stored credential plus the role and
// barangay scope that authorization decisions are made from.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Barangay     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// View returns the outward-facing representation of the account. The password
// hash never crosses this boundary.
func (a *Account) View() AccountView {
	return AccountView{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		Barangay:  a.Barangay,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountView is what login and account endpoints return to callers.
type AccountView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Barangay  string    `json:"barangay,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session binds an issued token to its subject account. The row is the
// server-side source of truth for expiry and revocation; the signed token
// carries the same horizon but cannot be recalled once handed out.
type Session struct {
	ID        string
	SubjectID string
	Remember  bool
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Expired reports whether the session horizon has passed at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Revoked reports whether the session was explicitly invalidated.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// Identity is the result of validating a session token. Role and Scope
// reflect the account as stored now, not as it was when the token was issued.
type Identity struct {
	AccountID string
	Email     string
	Role      Role
	Scope     Scope
}

// Scope bounds which barangay's records an identity may touch.
type Scope struct {
	All      bool
	Barangay string
}

// ScopeAll grants visibility over every barangay.
func ScopeAll() Scope { return Scope{All: true} }

// ScopeBarangay grants visibility over a single barangay.
func ScopeBarangay(name string) Scope { return Scope{Barangay: name} }

// Contains reports whether records from the given barangay fall inside the
// scope. An empty barangay is never contained in a single-barangay scope.
func (s Scope) Contains(barangay string) bool {
	if s.All {
		return true
	}
	return s.Barangay != "" && s.Barangay == barangay
}

// NormalizeEmail lowercases and trims an address so lookups and the unique
// index agree on a single canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
