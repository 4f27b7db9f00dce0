package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL  = 12 * time.Hour
	defaultRememberTTL = 30 * 24 * time.Hour
	defaultIssuer      = "iskolar"
)

// Service owns credential verification, session issuance and validation, and
// account management for the console.
type Service struct {
	store  Store
	now    func() time.Time
	secret []byte

	issuer      string
	sessionTTL  time.Duration
	rememberTTL time.Duration
	bcryptCost  int
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			s.issuer = issuer
		}
		return nil
	}
}

// WithSessionTTL configures the default session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
		return nil
	}
}

// WithRememberTTL configures the extended lifetime used when a login asks to
// be remembered.
func WithRememberTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.rememberTTL = ttl
		}
		return nil
	}
}

// WithBcryptCost configures the work factor for newly hashed passwords.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) error {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
		return nil
	}
}

// NewService constructs a Service around the given store and signing secret.
func NewService(store Store, secret []byte, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	svc := &Service{
		store:       store,
		now:         time.Now,
		secret:      secret,
		issuer:      defaultIssuer,
		sessionTTL:  defaultSessionTTL,
		rememberTTL: defaultRememberTTL,
		bcryptCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Authenticate verifies an email and password pair against the store.
// Empty inputs fail before any store access. The three failure classes stay
// distinct here; collapsing them into one caller-facing message is the HTTP
// layer's job.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	account, err := s.store.Accounts().FindByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(err, ErrStoreFault):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrStoreFault, err)
		}
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrBadPassword
		}
		return nil, fmt.Errorf("%w: stored hash unusable: %v", ErrStoreFault, err)
	}
	return account, nil
}

// LoginResult carries everything a successful login produces.
type LoginResult struct {
	Account AccountView
	Session Session
	Token   string
}

// Login authenticates the credentials and, on success, issues a session.
// remember selects the extended lifetime.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (LoginResult, error) {
	account, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}
	sess, token, err := s.IssueSession(ctx, account, remember)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Account: account.View(), Session: sess, Token: token}, nil
}

// GetAccount loads one account by ID.
func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	account, err := s.store.Accounts().Find(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return account, nil
}

// ListAccounts returns every account, newest first by ID order.
func (s *Service) ListAccounts(ctx context.Context) ([]*Account, error) {
	accounts, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return accounts, nil
}

// Bootstrap creates the first master admin when the store is empty. It is a
// no-op on a populated store so restarts never mint duplicate superusers.
func (s *Service) Bootstrap(ctx context.Context, email, password string) (*Account, error) {
	existing, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(existing) > 0 {
		return nil, nil
	}
	return s.CreateAccount(ctx, CreateAccountParams{
		Email:    email,
		Name:     "Master Admin",
		Password: password,
		Role:     RoleMasterAdmin,
	})
}

// storeErr passes domain sentinels through and wraps everything else as an
// infrastructure fault.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrStoreFault),
		errors.Is(err, ErrInvalidInput):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
}
