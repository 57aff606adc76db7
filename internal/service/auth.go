package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
	"time"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/events"
	"github.com/Skotchmaster/projects_api/internal/hash"
	"github.com/Skotchmaster/projects_api/internal/logging"
	"github.com/Skotchmaster/projects_api/internal/metrics"
	"github.com/Skotchmaster/projects_api/internal/models"
	"github.com/Skotchmaster/projects_api/internal/principal"
	"github.com/Skotchmaster/projects_api/internal/repo"
	"github.com/Skotchmaster/projects_api/internal/tokens"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	EmailExists(ctx context.Context, email string) (bool, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

type RefreshLedger interface {
	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	FindRefreshByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeAllRefreshTokens(ctx context.Context, userID uint, at time.Time) (int64, error)
	RotateRefreshToken(ctx context.Context, oldID uint, at time.Time, next *models.RefreshToken) error
}

// RevocationRegistry blacklists access tokens by jti. Revoke is idempotent.
type RevocationRegistry interface {
	Revoke(ctx context.Context, entry models.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresIn  int64
	RefreshToken     string
	RefreshExpiresIn int64
}

type AuthService struct {
	Users      UserStore
	Ledger     RefreshLedger
	Revoked    RevocationRegistry
	Hasher     hash.Hasher
	Issuer     *tokens.Issuer
	RefreshTTL time.Duration
	Events     events.Publisher
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

const (
	maxEmailLen = 320
	// bcrypt ignores or rejects input past 72 bytes
	maxPasswordBytes = 72
)

func validateCredentials(email, password string) map[string]string {
	fields := map[string]string{}
	switch {
	case email == "":
		fields["email"] = apperr.MsgEmailRequired
	case utf8.RuneCountInString(email) > maxEmailLen:
		fields["email"] = apperr.MsgEmailTooLong
	case !validEmail(email):
		fields["email"] = apperr.MsgEmailInvalid
	}
	switch {
	case strings.TrimSpace(password) == "":
		fields["password"] = apperr.MsgPasswordRequired
	case len(password) > maxPasswordBytes:
		fields["password"] = apperr.MsgPasswordTooLong
	}
	return fields
}

// validEmail accepts a bare addr-spec only, no display name or angle brackets.
func validEmail(email string) bool {
	parsed, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return parsed.Address == email
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email = NormalizeEmail(email)
	fields := validateCredentials(email, password)
	if len(fields) > 0 {
		s.Metrics.Register(metrics.ResultFailure)
		return nil, apperr.Validation(apperr.MsgValidation, fields)
	}

	exists, err := s.Users.EmailExists(ctx, email)
	if err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}
	if exists {
		l.Warn("register_failed", "status", 409, "reason", "user already exists")
		s.Metrics.Register(metrics.ResultFailure)
		return nil, apperr.Conflict(apperr.MsgUserExists)
	}

	digest, err := s.Hasher.Hash(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	now := s.now()
	user := &models.User{
		Email:        email,
		PasswordHash: digest,
		Role:         models.RoleUser,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserExists) {
			s.Metrics.Register(metrics.ResultFailure)
			return nil, apperr.Conflict(apperr.MsgUserExists)
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	s.Metrics.Register(metrics.ResultSuccess)
	s.publish(ctx, events.TypeUserRegistered, user)
	l.Info("user_registered", "user_id", user.ID)
	return user, nil
}

// Login answers "no such user" and "wrong password" identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Users.FindUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			s.Metrics.Login(metrics.ResultFailure)
			return nil, apperr.Unauthorized(apperr.MsgInvalidCreds)
		}
		l.Error("login_error", "status", 500, "error", err)
		s.Metrics.Login(metrics.ResultError)
		return nil, err
	}
	if !user.Enabled {
		l.Warn("login_failed", "status", 401, "reason", "user disabled", "user_id", user.ID)
		s.Metrics.Login(metrics.ResultFailure)
		return nil, apperr.Unauthorized(apperr.MsgUserDisabled)
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		s.Metrics.Login(metrics.ResultFailure)
		return nil, apperr.Unauthorized(apperr.MsgInvalidCreds)
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		s.Metrics.Login(metrics.ResultError)
		return nil, err
	}

	s.Metrics.Login(metrics.ResultSuccess)
	s.publish(ctx, events.TypeUserLoggedIn, user)
	return pair, nil
}

// Refresh rotates a refresh token. Expired, revoked, already rotated and
// unknown tokens are all rejected the same way.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")
	invalid := apperr.Unauthorized(apperr.MsgInvalidRefresh)

	rawRefresh = strings.TrimSpace(rawRefresh)
	if rawRefresh == "" {
		s.Metrics.Refresh(metrics.ResultFailure)
		return nil, invalid
	}

	existing, err := s.Ledger.FindRefreshByHash(ctx, tokens.Sha256Hex(rawRefresh))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "unknown token")
			s.Metrics.Refresh(metrics.ResultFailure)
			return nil, invalid
		}
		l.Error("refresh_error", "status", 500, "error", err)
		s.Metrics.Refresh(metrics.ResultError)
		return nil, err
	}

	now := s.now()
	if !existing.IsActive(now) {
		l.Warn("refresh_failed", "status", 401, "reason", "token inactive", "user_id", existing.UserID)
		s.Metrics.Refresh(metrics.ResultFailure)
		return nil, invalid
	}

	user := &existing.User
	if user.ID == 0 {
		if user, err = s.Users.FindUserByID(ctx, existing.UserID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				s.Metrics.Refresh(metrics.ResultFailure)
				return nil, invalid
			}
			return nil, err
		}
	}
	if !user.Enabled {
		l.Warn("refresh_failed", "status", 401, "reason", "user disabled", "user_id", user.ID)
		s.Metrics.Refresh(metrics.ResultFailure)
		return nil, apperr.Unauthorized(apperr.MsgUserDisabled)
	}

	access, err := s.Issuer.Issue(user.Email, user.ID, string(user.Role))
	if err != nil {
		s.Metrics.Refresh(metrics.ResultError)
		return nil, err
	}
	raw, next, err := s.newRefreshRecord(user.ID, now)
	if err != nil {
		s.Metrics.Refresh(metrics.ResultError)
		return nil, err
	}

	if err := s.Ledger.RotateRefreshToken(ctx, existing.ID, now, next); err != nil {
		if errors.Is(err, repo.ErrAlreadyRevoked) {
			l.Warn("refresh_failed", "status", 401, "reason", "lost rotation race", "user_id", user.ID)
			s.Metrics.Refresh(metrics.ResultFailure)
			return nil, invalid
		}
		l.Error("refresh_error", "status", 500, "error", err)
		s.Metrics.Refresh(metrics.ResultError)
		return nil, err
	}

	s.Metrics.Refresh(metrics.ResultSuccess)
	s.publish(ctx, events.TypeTokensRefreshed, user)
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresIn:  s.Issuer.ExpiresInSeconds(),
		RefreshToken:     raw,
		RefreshExpiresIn: s.refreshExpiresIn(),
	}, nil
}

// Logout revokes every refresh token of the user and blacklists the
// presented access token when its jti and expiry can be read.
func (s *AuthService) Logout(ctx context.Context, p *principal.Principal, presentedAccess string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if p == nil || strings.TrimSpace(p.Email) == "" {
		return apperr.Unauthorized(apperr.MsgUnauthorized)
	}
	user, err := s.Users.FindUserByEmail(ctx, p.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.Unauthorized(apperr.MsgUnauthorized)
		}
		return err
	}

	now := s.now()
	n, err := s.Ledger.RevokeAllRefreshTokens(ctx, user.ID, now)
	if err != nil {
		l.Error("logout_error", "status", 500, "error", err)
		return err
	}

	if entry, ok := s.revocationFor(presentedAccess, user.ID, now); ok {
		if err := s.Revoked.Revoke(ctx, entry); err != nil {
			l.Error("logout_error", "status", 500, "error", err)
			return err
		}
	}

	s.Metrics.Logout()
	s.publish(ctx, events.TypeUserLoggedOut, user)
	l.Info("user_logged_out", "user_id", user.ID, "refresh_revoked", n)
	return nil
}

func (s *AuthService) revocationFor(presented string, userID uint, now time.Time) (models.RevokedToken, bool) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return models.RevokedToken{}, false
	}
	claims, err := s.Issuer.Validate(presented)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return models.RevokedToken{}, false
	}
	return models.RevokedToken{
		JTI:       claims.ID,
		UserID:    userID,
		RevokedAt: now,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, true
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.Issuer.Issue(user.Email, user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	raw, expiresIn, err := s.issueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresIn:  s.Issuer.ExpiresInSeconds(),
		RefreshToken:     raw,
		RefreshExpiresIn: expiresIn,
	}, nil
}

// issueRefreshToken persists the digest and returns the raw token, which is
// never stored.
func (s *AuthService) issueRefreshToken(ctx context.Context, user *models.User) (string, int64, error) {
	raw, record, err := s.newRefreshRecord(user.ID, s.now())
	if err != nil {
		return "", 0, err
	}
	if err := s.Ledger.CreateRefreshToken(ctx, record); err != nil {
		return "", 0, err
	}
	return raw, s.refreshExpiresIn(), nil
}

func (s *AuthService) newRefreshRecord(userID uint, now time.Time) (string, *models.RefreshToken, error) {
	raw, err := tokens.NewOpaqueToken()
	if err != nil {
		return "", nil, err
	}
	return raw, &models.RefreshToken{
		UserID:    userID,
		TokenHash: tokens.Sha256Hex(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.RefreshTTL),
	}, nil
}

func (s *AuthService) refreshExpiresIn() int64 {
	return int64(s.RefreshTTL / time.Second)
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) publish(ctx context.Context, typ string, user *models.User) {
	if s.Events == nil {
		return
	}
	e := events.AuthEvent{Type: typ, UserID: user.ID, Email: user.Email, OccurredAt: s.now()}
	if err := s.Events.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", typ, "error", err)
	}
}

// EnsureAdmin creates or promotes the bootstrap administrator.
func (s *AuthService) EnsureAdmin(ctx context.Context, roles RoleSetter, email, password string) error {
	email = NormalizeEmail(email)
	user, err := s.Users.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		if user, err = s.Register(ctx, email, password); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
	case err != nil:
		return err
	}
	if user.Role == models.RoleAdmin {
		return nil
	}
	return roles.SetRole(ctx, user.ID, models.RoleAdmin, s.now())
}

type RoleSetter interface {
	SetRole(ctx context.Context, id uint, role models.Role, at time.Time) error
}
