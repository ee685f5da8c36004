package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/launchkit/saas-starter-kit/internal/core/common/dberrors"
	sessionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/session"
	"github.com/launchkit/saas-starter-kit/internal/session"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) session.RepositoryAPI {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *sessionDatamodel.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SessionRepository) FindActiveByTokenID(ctx context.Context, tokenID string, now time.Time) (*sessionDatamodel.Session, error) {
	var s sessionDatamodel.Session
	err := r.db.WithContext(ctx).
		Where("token_id = ? AND is_active = ? AND expires_at > ?", tokenID, true, now).
		First(&s).Error
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Consume closes an active, unexpired session in one conditional update.
func (r *SessionRepository) Consume(ctx context.Context, tokenID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionDatamodel.Session{}).
		Where("token_id = ? AND is_active = ? AND expires_at > ?", tokenID, true, at).
		Updates(map[string]interface{}{"is_active": false, "last_accessed_at": at})
	return res.RowsAffected, res.Error
}

func (r *SessionRepository) DeactivateByTokenID(ctx context.Context, tokenID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionDatamodel.Session{}).
		Where("token_id = ? AND is_active = ?", tokenID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *SessionRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionDatamodel.Session{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&sessionDatamodel.Session{})
	return res.RowsAffected, res.Error
}
