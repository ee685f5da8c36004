package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/session"
	"github.com/launchkit/saas-starter-kit/internal/user"
)

type UserStore interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Create(ctx context.Context, dto user.CreateUserDTO) (*user.User, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

type SessionStore interface {
	Create(ctx context.Context, userID, tokenID string, expiresAt time.Time, meta internal.RequestMeta) (*session.Session, error)
	FindActiveByTokenID(ctx context.Context, tokenID string) (*session.Session, error)
	Consume(ctx context.Context, tokenID string) error
	Deactivate(ctx context.Context, tokenID string) error
}

type PasswordVerifier interface {
	Verify(plain, encoded string) (bool, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID, email string) (*IssuedToken, error)
	GenerateRefreshToken(userID, email string) (*IssuedToken, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type Denylist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	users    UserStore
	sessions SessionStore
	hasher   PasswordVerifier
	tokens   TokenGeneratorAPI
	limiter  AttemptLimiter
	denylist Denylist
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the auth flows. limiter and denylist may be nil when redis
// is not configured; login throttling and access token revocation are then off.
func NewService(users UserStore, sessions SessionStore, hasher PasswordVerifier, tokens TokenGeneratorAPI, limiter AttemptLimiter, denylist Denylist, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		limiter:  limiter,
		denylist: denylist,
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates an active account with the default role.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.users.Create(ctx, user.CreateUserDTO{
		Email:     dto.Email,
		Username:  dto.Username,
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Password:  dto.Password,
	})
}

// Login verifies credentials and opens a session keyed by the refresh token jti.
// Unknown users, inactive users and wrong passwords all fail the same way.
func (s *Service) Login(ctx context.Context, dto LoginDTO, meta internal.RequestMeta) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	email := user.NormalizeEmail(dto.Email)

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, email)
		if err != nil {
			s.logger.Error("login limiter unavailable", "error", err)
			return nil, internal.NewInternalError("login temporarily unavailable", err)
		}
		if !ok {
			s.logger.Warn("login attempts exceeded", "ip", meta.IPAddress)
			return nil, internal.ErrTooManyAttempts
		}
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive || u.Status != user.StatusActive || u.PasswordHash == "" {
		return nil, internal.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(dto.Password, u.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("stored password hash is unreadable", "user_id", u.ID, "error", err)
		}
		return nil, internal.ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn("failed to reset login attempts", "error", err)
		}
	}

	result, err := s.issue(ctx, u, meta)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.RecordLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("failed to record last login", "user_id", u.ID, "error", err)
	} else {
		result.User.LastLoginAt = &now
	}

	s.logger.Info("user logged in", "user_id", u.ID)
	return result, nil
}

// Refresh rotates the session behind a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta internal.RequestMeta) (*LoginResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	sess, err := s.sessions.FindActiveByTokenID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, internal.ErrSessionNotFound) {
			return nil, internal.ErrInvalidToken.WithCause(err)
		}
		return nil, err
	}
	if sess.UserID != claims.UserID {
		return nil, internal.ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidToken.WithCause(err)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, internal.ErrInvalidToken
	}

	if err := s.sessions.Consume(ctx, claims.ID); err != nil {
		if errors.Is(err, internal.ErrSessionNotFound) {
			return nil, internal.ErrInvalidToken.WithCause(err)
		}
		return nil, err
	}
	return s.issue(ctx, u, meta)
}

// Logout revokes the access token and closes the refresh session when one is given.
func (s *Service) Logout(ctx context.Context, access *Claims, refreshToken string) error {
	if access != nil && s.denylist != nil {
		if err := s.denylist.Revoke(ctx, access.ID, access.ExpiresAtTime()); err != nil {
			s.logger.Error("failed to revoke access token", "error", err)
			return internal.NewInternalError("failed to revoke token", err)
		}
	}

	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		// an unusable refresh token has nothing left to close
		return nil
	}
	if access != nil && claims.UserID != access.UserID {
		return nil
	}
	return s.sessions.Deactivate(ctx, claims.ID)
}

// Authenticate resolves an access token to an active user with roles and permissions.
// Every failure is ErrInvalidToken; the cause is kept for logging only.
func (s *Service) Authenticate(ctx context.Context, token string) (*user.User, *Claims, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, nil, internal.ErrInvalidToken.WithCause(err)
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Error("token denylist unavailable", "error", err)
			return nil, nil, internal.NewInternalError("failed to check token", err)
		}
		if revoked {
			return nil, nil, internal.ErrInvalidToken.WithCause(errors.New("token revoked"))
		}
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, nil, internal.ErrInvalidToken.WithCause(err)
		}
		return nil, nil, err
	}
	if !u.IsActive {
		return nil, nil, internal.ErrInvalidToken.WithCause(errors.New("user inactive"))
	}
	return u, claims, nil
}

func (s *Service) issue(ctx context.Context, u *user.User, meta internal.RequestMeta) (*LoginResult, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	if _, err := s.sessions.Create(ctx, u.ID, refresh.Claims.ID, refresh.Claims.ExpiresAtTime(), meta); err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         u,
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresAt:    access.Claims.ExpiresAtTime(),
	}, nil
}
