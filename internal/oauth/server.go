package oauth

import (
	"context"
	"log/slog"
	"time"

	"github.com/huynle/brain/internal/errtypes"
)

// Server wires the store and token manager together for the HTTP handlers.
type Server struct {
	Store        *Store
	Tokens       *TokenManager
	Logger       *slog.Logger
	EnableAuth   bool
	cleanupEvery time.Duration
}

// NewServer constructs a Server.
func NewServer(store *Store, tokens *TokenManager, logger *slog.Logger, enableAuth bool) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Store: store, Tokens: tokens, Logger: logger, EnableAuth: enableAuth, cleanupEvery: 10 * time.Minute}
}

// RunCleanupLoop periodically sweeps expired codes and tokens until ctx is
// cancelled (spec §4.6 "Cleanup").
func (s *Server) RunCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Store.CleanupExpired(ctx); err != nil {
				s.Logger.Error("oauth cleanup sweep failed", "error", err)
			}
		}
	}
}

// issueTokenPair issues a fresh access+refresh token pair for subject under
// client, scoped to scope, storing the new refresh token's hash. Refresh
// tokens issued earlier are left in place.
func (s *Server) issueTokenPair(ctx context.Context, clientID, subject, scope string) (accessToken string, accessExpiry time.Time, refreshToken string, refreshExpiry time.Time, err error) {
	accessToken, accessExpiry, err = s.Tokens.IssueAccessToken(AccessClaims{Subject: subject, ClientID: clientID, Scope: scope})
	if err != nil {
		err = errtypes.NewOAuthError(errtypes.ErrServerError, err.Error())
		return
	}
	plain, id, hash, expiresAt, err := s.Tokens.GenerateRefreshToken()
	if err != nil {
		err = errtypes.NewOAuthError(errtypes.ErrServerError, err.Error())
		return
	}
	if err = s.Store.CreateRefreshToken(ctx, RefreshToken{ID: id, Hash: hash, ClientID: clientID, Subject: subject, Scope: scope, ExpiresAt: expiresAt}); err != nil {
		err = errtypes.NewOAuthError(errtypes.ErrServerError, err.Error())
		return
	}
	refreshToken, refreshExpiry = plain, expiresAt
	return
}
