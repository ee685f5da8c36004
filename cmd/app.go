package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/audit"
	auditPostgres "github.com/launchkit/saas-starter-kit/internal/audit/postgres"
	"github.com/launchkit/saas-starter-kit/internal/auth"
	"github.com/launchkit/saas-starter-kit/internal/core/events"
	"github.com/launchkit/saas-starter-kit/internal/invitation"
	invitationPostgres "github.com/launchkit/saas-starter-kit/internal/invitation/postgres"
	"github.com/launchkit/saas-starter-kit/internal/mailer"
	"github.com/launchkit/saas-starter-kit/internal/permission"
	permissionPostgres "github.com/launchkit/saas-starter-kit/internal/permission/postgres"
	"github.com/launchkit/saas-starter-kit/internal/role"
	rolePostgres "github.com/launchkit/saas-starter-kit/internal/role/postgres"
	"github.com/launchkit/saas-starter-kit/internal/session"
	sessionPostgres "github.com/launchkit/saas-starter-kit/internal/session/postgres"
	"github.com/launchkit/saas-starter-kit/internal/user"
	userPostgres "github.com/launchkit/saas-starter-kit/internal/user/postgres"
	"github.com/launchkit/saas-starter-kit/pkg/password"
)

// Services holds the wired domain layer shared by the server and worker commands.
type Services struct {
	Config *internal.Config
	Logger *slog.Logger
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Redis  redis.UniversalClient
	Bus    *events.EventBus
	Mail   *mailer.Pool

	Permissions *permission.Service
	Roles       *role.Service
	Users       *user.Service
	Sessions    *session.Service
	Auth        *auth.Service
	Invitations *invitation.Service
	Audit       *audit.Service
}

func buildServices(cfg *internal.Config, lg *slog.Logger) (*Services, error) {
	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db, cfg.App.IsDevelopment())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := cfg.Security.Argon2
	hasher, err := password.NewArgon2(password.Params{
		MemoryKB:    a.MemoryKB,
		Iterations:  a.Iterations,
		Parallelism: a.Parallelism,
		SaltLength:  a.SaltLength,
		KeyLength:   a.KeyLength,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid argon2 config: %w", err)
	}

	bus := events.NewEventBus(lg)

	s := &Services{
		Config: cfg,
		Logger: lg,
		DB:     db,
		Gorm:   gdb,
		Redis:  initRedis(cfg.Redis),
		Bus:    bus,
	}

	s.Permissions = permission.NewService(permissionPostgres.NewPermissionRepository(gdb), lg)
	s.Roles = role.NewService(rolePostgres.NewRoleRepository(gdb), bus, lg)
	s.Sessions = session.NewService(sessionPostgres.NewSessionRepository(gdb), lg)
	s.Users = user.NewService(userPostgres.NewUserRepository(gdb), s.Roles, hasher, lg).
		WithSessionRevoker(s.Sessions).
		WithPublisher(bus)
	s.Invitations = invitation.NewService(invitationPostgres.NewInvitationRepository(gdb), s.Users, hasher, bus, lg)
	s.Audit = audit.NewService(auditPostgres.NewAuditRepository(gdb), lg)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	var (
		limiter  auth.AttemptLimiter
		denylist auth.Denylist
	)
	if s.Redis != nil {
		limiter = auth.NewLoginLimiter(s.Redis, cfg.Redis.LoginAttemptLimit, cfg.Redis.LoginAttemptWindow)
		denylist = auth.NewTokenDenylist(s.Redis)
	} else {
		lg.Warn("redis not configured, login throttling and token revocation disabled")
	}
	s.Auth = auth.NewService(s.Users, s.Sessions, hasher, tokens, limiter, denylist, lg)

	s.Audit.RegisterEventHandlers(bus)

	return s, nil
}

// StartMailer starts the outbound mail pool and subscribes it to invitation events.
func (s *Services) StartMailer() {
	sender := mailer.NewSender(s.Config.Email, s.Logger)
	s.Mail = mailer.NewPool(sender, s.Config.Email, s.Logger)
	mailer.NewInvitationNotifier(s.Mail, s.Config.App.Name, s.Config.App.FrontendURL, s.Logger).
		RegisterEventHandlers(s.Bus)
}

func (s *Services) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Services) Close() {
	if s.Mail != nil {
		s.Mail.Shutdown()
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.Logger.Error("redis close error", "error", err)
		}
	}
	if err := s.DB.Close(); err != nil {
		s.Logger.Error("database close error", "error", err)
	}
}
