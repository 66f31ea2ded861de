package repository

import (
	"context"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository exposes the staff lookups the approval gate needs
type UserRepository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.User, error)
	ListApprovers(ctx context.Context, tenantID uuid.UUID, roles []string) ([]model.User, error)
	UpdateManagerPIN(ctx context.Context, id uuid.UUID, pinHash string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Where("id = ? AND tenant_id = ? AND is_active = ?", id, tenantID, true).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListApprovers returns active users of the tenant holding one of roles and an approval PIN.
func (r *userRepository) ListApprovers(ctx context.Context, tenantID uuid.UUID, roles []string) ([]model.User, error) {
	var users []model.User
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND role IN ? AND is_active = ? AND manager_pin_hash IS NOT NULL", tenantID, roles, true).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateManagerPIN(ctx context.Context, id uuid.UUID, pinHash string) error {
	return GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"manager_pin_hash": pinHash,
		"updated_at":       time.Now(),
	}).Error
}
