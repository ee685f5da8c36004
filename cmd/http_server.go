package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/launchkit/saas-starter-kit/internal/audit"
	"github.com/launchkit/saas-starter-kit/internal/auth"
	"github.com/launchkit/saas-starter-kit/internal/invitation"
	"github.com/launchkit/saas-starter-kit/internal/permission"
	"github.com/launchkit/saas-starter-kit/internal/role"
	"github.com/launchkit/saas-starter-kit/internal/transport"
	"github.com/launchkit/saas-starter-kit/internal/transport/middleware"
	"github.com/launchkit/saas-starter-kit/internal/transport/rest"
	"github.com/launchkit/saas-starter-kit/internal/user"
	"github.com/launchkit/saas-starter-kit/pkg/logger"
)

var openAPIPath string

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg := mustLoadConfig()
	lg := logger.LoggerWrapper()

	svc, err := buildServices(cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	svc.StartMailer()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	router := chi.NewRouter()
	limiter := setupRoutes(router, svc)
	if limiter != nil {
		go limiter.Run(ctx)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lg.Info("Starting HTTP server", "address", addr, "env", cfg.App.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			lg.Error("Server failed to start", "error", err)
			svc.Close()
			os.Exit(1)
		}
	}

	stop()
	svc.Close()
	lg.Info("Server stopped")
}

func setupRoutes(router chi.Router, svc *Services) *middleware.IPRateLimiter {
	cfg := svc.Config
	lg := svc.Logger

	base := transport.NewBaseHandler(lg)
	base.ExposeErrors = cfg.App.IsDevelopment()

	checks := map[string]rest.Check{"postgres": svc.Ping}
	if svc.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return svc.Redis.Ping(ctx).Err() }
	}

	h := rest.Handlers{
		Health: rest.NewHealthHandler(checks),
		Auth: auth.NewHandler(base, svc.Auth, auth.CookieConfig{
			Secure: cfg.Security.CookieSecure,
			Domain: cfg.Security.CookieDomain,
			MaxAge: cfg.Security.AccessTokenDuration,
		}),
		RBAC:    auth.NewRBACAuthorization(base),
		Users:   user.NewHandler(base, svc.Users),
		Roles:   role.NewHandler(base, svc.Roles),
		Perms:   permission.NewHandler(base, svc.Permissions),
		Invites: invitation.NewHandler(base, svc.Invitations),
		Audit:   audit.NewHandler(base, svc.Audit),
		OpenAPI: openAPIPath,
		Origins: cfg.Server.AllowedOrigins,
	}

	if cfg.RateLimit.Enabled {
		h.AuthLimit = middleware.NewIPRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, base)
	}

	if cfg.Observability.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		h.Metrics = middleware.NewMetrics(reg)
		h.Gatherer = reg
		h.MetricPath = cfg.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(router, h, lg)
	return h.AuthLimit
}

func init() {
	httpServerCmd.Flags().StringVar(&openAPIPath, "openapi", "./api/openapi.yml", "path of the OpenAPI document served at /openapi.yml")
}
