package repository

import (
	"context"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettingsRepository interface {
	GetAll(ctx context.Context, tenantID uuid.UUID) (map[string]string, error)
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetAll(ctx context.Context, tenantID uuid.UUID) (map[string]string, error) {
	var rows []model.TenantSetting
	if err := GetDB(ctx, r.db).Where("tenant_id = ?", tenantID).Find(&rows).Error; err != nil {
		return nil, err
	}
	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Key] = row.Value
	}
	return settings, nil
}
