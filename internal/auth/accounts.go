package auth

import (
	"context"
	"fmt"
	"strings"

	"iskolar.org/internal/ids"
)

// CreateAccountParams carries the fields needed to open a console account.
type CreateAccountParams struct {
	Email    string
	Name     string
	Password string
	Role     Role
	Barangay string
}

// UpdateAccountParams mutates only the fields that are set.
type UpdateAccountParams struct {
	Email    *string
	Name     *string
	Password *string
	Role     *Role
	Barangay *string
}

// CreateAccount validates, hashes and stores a new account. Uniqueness of the
// email rests on the store's index; a collision surfaces as ErrEmailTaken.
func (s *Service) CreateAccount(ctx context.Context, p CreateAccountParams) (*Account, error) {
	email := NormalizeEmail(p.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if !p.Role.Valid() {
		return nil, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, p.Role)
	}
	barangay := strings.TrimSpace(p.Barangay)
	if p.Role == RoleAdmin && barangay == "" {
		return nil, fmt.Errorf("%w: admin accounts need a barangay", ErrInvalidInput)
	}
	if p.Role == RoleMasterAdmin {
		// Masters see everything; a stored barangay would only mislead.
		barangay = ""
	}
	hash, err := HashPassword(p.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	account := &Account{
		ID:           ids.New(),
		Email:        email,
		Name:         strings.TrimSpace(p.Name),
		PasswordHash: hash,
		Role:         p.Role,
		Barangay:     barangay,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		return nil, storeErr(err)
	}
	return account, nil
}

// UpdateAccount applies the set fields to an existing account. A change to
// role, barangay or password revokes the subject's live sessions so stale
// privileges cannot outlive the edit.
func (s *Service) UpdateAccount(ctx context.Context, id string, p UpdateAccountParams) (*Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	account, err := s.store.Accounts().Find(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	revoke := false
	if p.Email != nil {
		email := NormalizeEmail(*p.Email)
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		account.Email = email
	}
	if p.Name != nil {
		account.Name = strings.TrimSpace(*p.Name)
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return nil, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, *p.Role)
		}
		if account.Role == RoleMasterAdmin && *p.Role != RoleMasterAdmin {
			return nil, ErrProtectedAccount
		}
		if account.Role != *p.Role {
			revoke = true
		}
		account.Role = *p.Role
	}
	if p.Barangay != nil {
		barangay := strings.TrimSpace(*p.Barangay)
		if account.Role == RoleMasterAdmin {
			barangay = ""
		}
		if account.Barangay != barangay {
			revoke = true
		}
		account.Barangay = barangay
	}
	if account.Role == RoleAdmin && account.Barangay == "" {
		return nil, fmt.Errorf("%w: admin accounts need a barangay", ErrInvalidInput)
	}
	if account.Role == RoleMasterAdmin {
		account.Barangay = ""
	}
	if p.Password != nil {
		if strings.TrimSpace(*p.Password) == "" {
			return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := HashPassword(*p.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = hash
		revoke = true
	}
	account.UpdatedAt = s.now().UTC()

	if err := s.store.Accounts().Update(ctx, account); err != nil {
		return nil, storeErr(err)
	}
	if revoke {
		if err := s.RevokeSubjectSessions(ctx, account.ID); err != nil {
			return nil, err
		}
	}
	return account, nil
}

// DeleteAccount removes an account and revokes its sessions. Master admin
// accounts are never deletable here, whoever asks; the policy layer enforces
// the same rule earlier, this is the final gate.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	account, err := s.store.Accounts().Find(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if account.Role == RoleMasterAdmin {
		return ErrProtectedAccount
	}
	if err := s.store.Accounts().Delete(ctx, id); err != nil {
		return storeErr(err)
	}
	return s.RevokeSubjectSessions(ctx, id)
}
