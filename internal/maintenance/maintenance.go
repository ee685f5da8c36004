// Package maintenance runs the periodic housekeeping jobs: expiring overdue
// invitations, purging expired sessions and pruning old audit entries.
package maintenance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type InvitationExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, days int) (int64, error)
}

type Report struct {
	InvitationsExpired int64
	SessionsRemoved    int64
	AuditLogsRemoved   int64
}

type Runner struct {
	invitations   InvitationExpirer
	sessions      SessionCleaner
	audit         AuditPruner
	retentionDays int
	logger        *slog.Logger
}

func NewRunner(invitations InvitationExpirer, sessions SessionCleaner, audit AuditPruner, retentionDays int, logger *slog.Logger) *Runner {
	return &Runner{
		invitations:   invitations,
		sessions:      sessions,
		audit:         audit,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// RunOnce runs every job even when an earlier one fails and joins the errors.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	var (
		report Report
		errs   []error
		err    error
	)

	if report.InvitationsExpired, err = r.invitations.ExpireOverdue(ctx); err != nil {
		r.logger.Error("expire invitations failed", "error", err)
		errs = append(errs, err)
	}

	if report.SessionsRemoved, err = r.sessions.CleanupExpired(ctx); err != nil {
		r.logger.Error("session cleanup failed", "error", err)
		errs = append(errs, err)
	}

	if r.retentionDays > 0 {
		if report.AuditLogsRemoved, err = r.audit.CleanupOlderThan(ctx, r.retentionDays); err != nil {
			r.logger.Error("audit cleanup failed", "error", err)
			errs = append(errs, err)
		}
	}

	r.logger.Info("maintenance run complete",
		"invitations_expired", report.InvitationsExpired,
		"sessions_removed", report.SessionsRemoved,
		"audit_logs_removed", report.AuditLogsRemoved)

	return report, errors.Join(errs...)
}

// Schedule registers RunOnce on c. ctx bounds every run.
func (r *Runner) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		_, _ = r.RunOnce(ctx)
	})
}
