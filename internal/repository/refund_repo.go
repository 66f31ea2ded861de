package repository

import (
	"context"
	"fmt"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RefundRepository interface {
	Create(ctx context.Context, refund *model.Refund) error
	NextRefundNo(ctx context.Context, tenantID uuid.UUID, at time.Time) (string, error)
}

type refundRepository struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) RefundRepository {
	return &refundRepository{db: db}
}

func (r *refundRepository) Create(ctx context.Context, refund *model.Refund) error {
	return GetDB(ctx, r.db).Create(refund).Error
}

// NextRefundNo allocates RF-YYYYMMDD-NNNNN. Must run inside RunInTx so the
// advisory lock is held until commit.
func (r *refundRepository) NextRefundNo(ctx context.Context, tenantID uuid.UUID, at time.Time) (string, error) {
	prefix := "RF-" + at.Format("20060102") + "-"
	db := GetDB(ctx, r.db)

	// Use advisory lock to prevent concurrent duplicate refund numbers
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", tenantID.String()+prefix).Error; err != nil {
		return "", fmt.Errorf("failed to lock refund sequence: %w", err)
	}

	var count int64
	if err := db.Model(&model.Refund{}).
		Where("tenant_id = ? AND refund_no LIKE ?", tenantID, prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
