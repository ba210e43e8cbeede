package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// unknownAccountHash is compared against for emails that match no account.
var unknownAccountHash, _ = bcrypt.GenerateFromPassword([]byte("office-unknown-account"), bcrypt.DefaultCost)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger used for non-fatal bookkeeping failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used to stamp last_login.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a new Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate validates email/password credentials and stamps the account's last login.
// Unknown emails, wrong passwords and inactive accounts all report ErrInvalidCredentials;
// repository failures are returned as they are.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(unknownAccountHash, []byte(password))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: find account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, shared.ErrInvalidCredentials
	}

	at := s.now().UTC()
	if err := s.repo.RecordLogin(ctx, account.ID, at); err != nil {
		s.logger.WarnContext(ctx, "record last login", slog.Int64("account_id", account.ID), slog.Any("error", err))
	} else {
		account.LastLogin = &at
	}
	return account, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, accountID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, accountID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
