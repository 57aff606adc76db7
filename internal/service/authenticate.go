package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/principal"
	"github.com/Skotchmaster/projects_api/internal/repo"
	"github.com/Skotchmaster/projects_api/internal/tokens"
)

// Authenticate turns a bearer token into a principal. Rejections are
// *apperr.Error values carrying one of the apperr.Code* codes; any other
// error is an infrastructure failure.
//
// The role comes from the credential store, not from the token, so a role
// change takes effect on the next request.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (principal.Principal, error) {
	claims, err := s.Issuer.Validate(bearer)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return principal.Principal{}, apperr.TokenRejected(apperr.CodeTokenExpired, apperr.MsgTokenExpired)
		}
		return principal.Principal{}, apperr.TokenRejected(apperr.CodeInvalidToken, apperr.MsgInvalidToken)
	}

	// without a jti the token could never be revoked
	if claims.ID == "" {
		return principal.Principal{}, apperr.TokenRejected(apperr.CodeInvalidToken, apperr.MsgInvalidToken)
	}
	revoked, err := s.Revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return principal.Principal{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return principal.Principal{}, apperr.TokenRejected(apperr.CodeTokenRevoked, apperr.MsgTokenRevoked)
	}

	email := strings.TrimSpace(claims.Subject)
	if email == "" {
		return principal.Principal{}, apperr.TokenRejected(apperr.CodeInvalidToken, apperr.MsgInvalidToken)
	}

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return principal.Principal{}, apperr.TokenRejected(apperr.CodeInvalidToken, apperr.MsgInvalidToken)
		}
		return principal.Principal{}, fmt.Errorf("load user: %w", err)
	}
	if !user.Enabled {
		return principal.Principal{}, apperr.TokenRejected(apperr.CodeInvalidToken, apperr.MsgInvalidToken)
	}

	return principal.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}
