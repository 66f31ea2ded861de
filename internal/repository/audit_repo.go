package repository

import (
	"context"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	CountRecent(ctx context.Context, tenantID, userID uuid.UUID, actions []string, since time.Time) (int64, error)
	List(ctx context.Context, scope Scope, action string, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log appends an audit row. Inside a settlement transaction gorm runs the nested
// Transaction as a SAVEPOINT, so a failed insert leaves the outer transaction usable.
func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entry).Error
	})
}

func (r *auditRepository) CountRecent(ctx context.Context, tenantID, userID uuid.UUID, actions []string, since time.Time) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.AuditLog{}).
		Where("tenant_id = ? AND user_id = ? AND action IN ? AND created_at >= ?", tenantID, userID, actions, since).
		Count(&total).Error
	return total, err
}

func (r *auditRepository) List(ctx context.Context, scope Scope, action string, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.AuditLog{}).
		Where("tenant_id = ? AND branch_id = ?", scope.TenantID, scope.BranchID).
		Where("action IN ?", []string{model.ActionShiftCompleted, model.ActionRefunded, model.ActionVoided})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("User").Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
