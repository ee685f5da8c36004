package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/launchkit/saas-starter-kit/internal/audit"
	auditDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/audit"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.RepositoryAPI {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, row *auditDatamodel.AuditLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *AuditRepository) List(ctx context.Context, f audit.Filter) ([]auditDatamodel.AuditLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&auditDatamodel.AuditLog{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Resource != "" {
		q = q.Where("resource = ?", f.Resource)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.StartDate != nil {
		q = q.Where("created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("created_at <= ?", *f.EndDate)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []auditDatamodel.AuditLog
	err := q.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *AuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&auditDatamodel.AuditLog{})
	return res.RowsAffected, res.Error
}
