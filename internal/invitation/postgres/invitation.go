package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/dberrors"
	invitationDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/invitation"
	userDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/user"
	"github.com/launchkit/saas-starter-kit/internal/invitation"
	"github.com/launchkit/saas-starter-kit/internal/user"
)

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) invitation.RepositoryAPI {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) List(ctx context.Context) ([]invitationDatamodel.Invitation, error) {
	var rows []invitationDatamodel.Invitation
	err := r.db.WithContext(ctx).
		Where("status <> ?", string(invitation.StatusCancelled)).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*invitationDatamodel.Invitation, error) {
	return r.first(ctx, "token = ?", token)
}

func (r *InvitationRepository) FindPendingByEmail(ctx context.Context, email string) (*invitationDatamodel.Invitation, error) {
	return r.first(ctx, "email = ? AND status = ?", email, string(invitation.StatusPending))
}

func (r *InvitationRepository) Create(ctx context.Context, row *invitationDatamodel.Invitation) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *InvitationRepository) Accept(ctx context.Context, invitationID, userID, passwordHash string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the status guard makes a concurrent second accept affect zero rows
		res := tx.Model(&invitationDatamodel.Invitation{}).
			Where("id = ? AND status = ?", invitationID, string(invitation.StatusPending)).
			Update("status", string(invitation.StatusAccepted))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrInvitationUsed
		}

		res = tx.Model(&userDatamodel.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"password_hash": passwordHash,
				"status":        string(user.StatusActive),
				"is_active":     true,
				"is_verified":   true,
				"temp_password": false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrUserNotFound
		}
		return nil
	})
}

func (r *InvitationRepository) Transition(ctx context.Context, invitationID string, status invitation.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&invitationDatamodel.Invitation{}).
		Where("id = ? AND status = ?", invitationID, string(invitation.StatusPending)).
		Update("status", string(status))
	return res.RowsAffected > 0, res.Error
}

func (r *InvitationRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&invitationDatamodel.Invitation{}).
		Where("status = ? AND expires_at < ?", string(invitation.StatusPending), now).
		Update("status", string(invitation.StatusExpired))
	return res.RowsAffected, res.Error
}

func (r *InvitationRepository) first(ctx context.Context, query string, args ...interface{}) (*invitationDatamodel.Invitation, error) {
	var row invitationDatamodel.Invitation
	err := r.db.WithContext(ctx).Where(query, args...).Order("created_at DESC").First(&row).Error
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
