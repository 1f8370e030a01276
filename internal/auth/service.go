// Package auth implements the credential and token core: bcrypt password
// storage and verification, stateless JWT issuance and verification, and the
// account-facing operations built on them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kivu-labs/authd/internal/account"
)

var (
	// ErrEmailRequired is returned when a registration omits the email.
	ErrEmailRequired = errors.New("email is required")
	// ErrPasswordTooShort is returned before any hashing when the plaintext
	// is below the configured minimum length.
	ErrPasswordTooShort = errors.New("password below minimum length")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, tampered and expired tokens alike.
	ErrInvalidToken = errors.New("invalid token")
)

// Service owns all cryptographic operations around passwords and tokens. The
// signing secret is injected at construction and immutable for the process
// lifetime; verification never consults the account store.
type Service struct {
	repo           account.Repository
	secret         []byte
	tokenTTL       time.Duration
	minPasswordLen int
}

// NewService builds the credential and token service. An empty secret is a
// configuration fault and refuses construction.
func NewService(repo account.Repository, secret []byte, tokenTTL time.Duration, minPasswordLen int) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	if repo == nil {
		return nil, errors.New("auth: account repository is required")
	}
	return &Service{repo: repo, secret: secret, tokenTTL: tokenTTL, minPasswordLen: minPasswordLen}, nil
}

// HashPassword produces a salted bcrypt digest of the plaintext. Each call
// embeds a fresh salt, so two digests of the same password differ. Plaintexts
// below the minimum length are rejected before any hashing work.
func (s *Service) HashPassword(plaintext string) ([]byte, error) {
	if len(plaintext) < s.minPasswordLen {
		return nil, ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword reports whether the plaintext matches the stored digest.
// bcrypt's comparison is constant-time with respect to mismatch position.
func (s *Service) VerifyPassword(plaintext string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(plaintext)) == nil
}

// Register validates the input, hashes the password and persists a new
// account. A failed hash means no store write occurs; a duplicate email
// surfaces as account.ErrEmailTaken from the store's uniqueness constraint.
func (s *Service) Register(ctx context.Context, email, password string) (account.Account, error) {
	if email == "" {
		return account.Account{}, ErrEmailRequired
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return account.Account{}, err
	}

	acct := account.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		return account.Account{}, err
	}

	return acct, nil
}

// Authenticate verifies the credentials and issues a signed token. Unknown
// email and wrong password both yield ErrInvalidCredentials so callers cannot
// enumerate registered emails.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	acct, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find account: %w", err)
	}

	if !s.VerifyPassword(password, acct.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.IssueToken(acct)
}

// IssueToken mints a signed token asserting the account's identity, expiring
// a fixed window after issuance.
func (s *Service) IssueToken(acct account.Account) (string, error) {
	token, err := s.signToken(acct.ID, acct.Email, time.Now())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// VerifyToken checks the signature and expiry and returns the asserted
// identity. Verification is purely cryptographic: no store lookup happens
// here, so a token issued for a since-deleted account stays valid until it
// expires. That is the bearer-token trade-off, not a defect.
func (s *Service) VerifyToken(tokenString string) (Identity, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return Identity{}, err
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{AccountID: claims.Subject, Email: claims.Email}, nil
}

// Account fetches the stored account behind a verified identity.
func (s *Service) Account(ctx context.Context, id string) (account.Account, error) {
	return s.repo.FindByID(ctx, id)
}
