package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"iskolar.org/internal/ids"
)

// sessionClaims is the JWT payload for a console session. The jti names the
// persisted session row; sub names the account. Role is informational only,
// a snapshot at issuance. Validation re-reads the account.
type sessionClaims struct {
	Role Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IssueSession persists a session row for the account and signs a token
// bound to it. remember selects the extended lifetime.
func (s *Service) IssueSession(ctx context.Context, account *Account, remember bool) (Session, string, error) {
	if account == nil || account.ID == "" {
		return Session{}, "", fmt.Errorf("%w: account is required", ErrInvalidInput)
	}
	now := s.now().UTC()
	ttl := s.sessionTTL
	if remember {
		ttl = s.rememberTTL
	}
	sess := Session{
		ID:        ids.New(),
		SubjectID: account.ID,
		Remember:  remember,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.Sessions().Create(ctx, &sess); err != nil {
		return Session{}, "", storeErr(err)
	}
	claims := sessionClaims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   account.ID,
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, "", fmt.Errorf("sign session token: %w", err)
	}
	return sess, token, nil
}

// Validate checks a presented token and resolves it to a live identity.
// Rejections map to exactly one of ErrSessionMalformed, ErrSessionExpired or
// ErrSessionRevoked; infrastructure failures wrap ErrStoreFault. The account
// is re-read on every call so role and scope changes take effect on the next
// validation, not at the next login.
func (s *Service) Validate(ctx context.Context, token string) (Identity, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Identity{}, err
	}

	sess, err := s.store.Sessions().Find(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Identity{}, ErrSessionRevoked
		}
		return Identity{}, storeErr(err)
	}
	if sess.Revoked() {
		return Identity{}, ErrSessionRevoked
	}
	if sess.Expired(s.now().UTC()) {
		return Identity{}, ErrSessionExpired
	}
	if sess.SubjectID != claims.Subject {
		return Identity{}, ErrSessionMalformed
	}

	account, err := s.store.Accounts().Find(ctx, sess.SubjectID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Subject vanished after issuance. Treat like a revocation.
			return Identity{}, ErrSessionRevoked
		}
		return Identity{}, storeErr(err)
	}
	return identityFor(account)
}

// Logout revokes the session a token points at. Expired and foreign tokens
// are silently ignored; logout is idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, s.keyFor,
		jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		// Unsigned or foreign tokens name no session of ours.
		return nil
	}
	if claims.ID == "" {
		return nil
	}
	if err := s.store.Sessions().Revoke(ctx, claims.ID, s.now().UTC()); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return storeErr(err)
	}
	return nil
}

// RevokeSubjectSessions invalidates every live session of one account.
func (s *Service) RevokeSubjectSessions(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if err := s.store.Sessions().RevokeBySubject(ctx, accountID, s.now().UTC()); err != nil {
		return storeErr(err)
	}
	return nil
}

// PurgeExpiredSessions removes rows past their horizon. Intended for a
// periodic housekeeping loop; validation never depends on it.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.store.Sessions().PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

func (s *Service) parseToken(token string) (*sessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionMalformed
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.keyFor,
		jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionMalformed
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrSessionMalformed
	}
	return claims, nil
}

func (s *Service) keyFor(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return s.secret, nil
}

// identityFor derives the effective scope from the account as stored now.
// An admin with no barangay is a data integrity fault: it neither grants
// all-barangay access nor silently denies, it errors.
func identityFor(account *Account) (Identity, error) {
	identity := Identity{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	}
	switch account.Role {
	case RoleMasterAdmin:
		identity.Scope = ScopeAll()
	case RoleAdmin:
		if strings.TrimSpace(account.Barangay) == "" {
			return Identity{}, ErrScopeIntegrity
		}
		identity.Scope = ScopeBarangay(account.Barangay)
	default:
		return Identity{}, fmt.Errorf("%w: unknown role %q", ErrScopeIntegrity, account.Role)
	}
	return identity, nil
}
