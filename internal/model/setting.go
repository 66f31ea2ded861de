package model

import (
	"time"

	"github.com/google/uuid"
)

// Tenant setting keys read by the settlement services
const (
	SettingRequireManagerRefund    = "pos_require_manager_refund"
	SettingRequireManagerVoid      = "pos_require_manager_void"
	SettingAllowVoidPaidOrders     = "pos_allow_void_paid_orders"
	SettingRefundApprovalThreshold = "pos_refund_approval_threshold"
	SettingRefundPeriodDays        = "pos_refund_period_days"
	SettingVarianceThreshold       = "pos_variance_threshold"
)

// TenantSetting is one key/value policy row for a tenant.
type TenantSetting struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_settings_key" json:"tenant_id"`
	Key       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_tenant_settings_key" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SchemaCapabilities describes which optional collaborator tables the connected
// schema provides. It is resolved once at startup.
type SchemaCapabilities struct {
	Version          int  `json:"version"`
	RestaurantTables bool `json:"restaurant_tables"`
	KitchenTickets   bool `json:"kitchen_tickets"`
	CashSessions     bool `json:"cash_sessions"`
	ItemVoidColumns  bool `json:"item_void_columns"`
}

// FullCapabilities is the descriptor of a schema created by this service's migrations.
func FullCapabilities() SchemaCapabilities {
	return SchemaCapabilities{
		Version:          CurrentSchemaVersion,
		RestaurantTables: true,
		KitchenTickets:   true,
		CashSessions:     true,
		ItemVoidColumns:  true,
	}
}

const CurrentSchemaVersion = 3
