package database

import (
	"fmt"
	"time"

	"posbackend/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// schemaIndexes are applied in order after AutoMigrate. The first statement
// removes the earlier per-user open shift index.
var schemaIndexes = []string{
	`DROP INDEX IF EXISTS idx_shifts_one_open`,
	// At most one open shift per tenant and branch.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_one_open_per_branch
		ON shifts (tenant_id, branch_id) WHERE status = 'open'`,
}

func createIndexes(db *gorm.DB) error {
	for _, stmt := range schemaIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply schema index: %w", err)
		}
	}
	return nil
}

// Migrate creates the settlement tables and the indexes gorm tags cannot express.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.TenantSetting{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.Shift{},
		&model.CashSession{},
		&model.Refund{},
		&model.AuditLog{},
		&model.RestaurantTable{},
		&model.KitchenTicket{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return err
	}

	log.Info("database migrated", zap.Int("schema_version", model.CurrentSchemaVersion))
	return nil
}

// ResolveCapabilities inspects the connected schema once so services know which
// optional collaborator tables they may touch.
func ResolveCapabilities(db *gorm.DB) model.SchemaCapabilities {
	m := db.Migrator()

	caps := model.SchemaCapabilities{
		RestaurantTables: m.HasTable(&model.RestaurantTable{}),
		KitchenTickets:   m.HasTable(&model.KitchenTicket{}),
		CashSessions:     m.HasTable(&model.CashSession{}),
		ItemVoidColumns:  m.HasColumn(&model.OrderItem{}, "IsVoided") && m.HasColumn(&model.OrderItem{}, "VoidedBy"),
	}

	caps.Version = 1
	if caps.ItemVoidColumns {
		caps.Version = 2
	}
	if caps.RestaurantTables && caps.KitchenTickets && caps.CashSessions && caps.ItemVoidColumns {
		caps.Version = model.CurrentSchemaVersion
	}
	return caps
}
