package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tripbook/internal/metrics"
	"github.com/iliyamo/tripbook/internal/model"
	"github.com/iliyamo/tripbook/internal/repository"
	"github.com/iliyamo/tripbook/internal/utils"
)

// UserStore is the credential store.  Insert must reject a taken email with
// repository.ErrEmailExists atomically; FindByEmail returns
// repository.ErrNotFound when nothing matches.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Insert(ctx context.Context, u *model.User) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

type TokenIssuer interface {
	Issue(subjectID, email string) (string, error)
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// AuthService implements registration and login.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	logger *slog.Logger
	now    func() time.Time
	// dummyHash is verified against when the email is unknown so both login
	// failures cost one bcrypt comparison.
	dummyHash string
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := hasher.Hash("tripbook-timing-equalizer")
	if err != nil {
		logger.Warn("could not prepare dummy hash", slog.Any("error", err))
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// NormalizeEmail is the single email policy: surrounding whitespace is
// dropped and the address is lower-cased before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and returns a token for it.  The insert is
// the only write and it happens last.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	switch {
	case name == "" || email == "" || password == "":
		metrics.ObserveAuth("register", "invalid")
		return nil, invalid("name, email and password are required")
	case !looksLikeEmail(email):
		metrics.ObserveAuth("register", "invalid")
		return nil, invalid("email is not valid")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		metrics.ObserveAuth("register", "invalid")
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return nil, invalid("password must be at most 72 bytes")
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(model.TimestampPrecision),
	}
	// Issue before inserting so a signing failure cannot leave an account
	// behind that the caller never learned about.
	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			metrics.ObserveAuth("register", "exists")
			return nil, ErrAlreadyExists
		}
		metrics.ObserveAuth("register", "store_error")
		s.logger.ErrorContext(ctx, "insert user failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	metrics.ObserveAuth("register", "ok")
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", u.ID))
	return &AuthResult{Token: token, User: u.Public()}, nil
}

// Login checks the credentials and issues a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.ObserveAuth("login", "invalid")
		return nil, invalid("email and password are required")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if s.dummyHash != "" {
				_ = s.hasher.Verify(s.dummyHash, password)
			}
			metrics.ObserveAuth("login", "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		metrics.ObserveAuth("login", "store_error")
		s.logger.ErrorContext(ctx, "find user failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		metrics.ObserveAuth("login", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	metrics.ObserveAuth("login", "ok")
	return &AuthResult{Token: token, User: u.Public()}, nil
}

func looksLikeEmail(s string) bool {
	at := strings.LastIndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\r\n")
}
