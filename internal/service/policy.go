package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Policy is the effective tenant settlement policy. Process-wide defaults come
// from configuration; tenant_settings rows override them.
type Policy struct {
	RequireManagerRefund    bool
	RequireManagerVoid      bool
	AllowVoidPaidOrders     bool
	RefundApprovalThreshold decimal.Decimal // zero disables the amount ceiling
	RefundPeriodDays        int
	VarianceThreshold       decimal.Decimal
}

// DefaultPolicy mirrors the documented defaults.
func DefaultPolicy() Policy {
	return Policy{
		RequireManagerRefund:    false,
		RequireManagerVoid:      true,
		AllowVoidPaidOrders:     false,
		RefundApprovalThreshold: decimal.Zero,
		RefundPeriodDays:        30,
		VarianceThreshold:       decimal.NewFromInt(10),
	}
}

// Merge applies tenant setting rows on top of p. Malformed values are reported
// rather than silently ignored.
func (p Policy) Merge(settings map[string]string) (Policy, error) {
	out := p
	for key, raw := range settings {
		value := strings.TrimSpace(raw)
		var err error
		switch key {
		case model.SettingRequireManagerRefund:
			out.RequireManagerRefund, err = parseBool(value)
		case model.SettingRequireManagerVoid:
			out.RequireManagerVoid, err = parseBool(value)
		case model.SettingAllowVoidPaidOrders:
			out.AllowVoidPaidOrders, err = parseBool(value)
		case model.SettingRefundApprovalThreshold:
			out.RefundApprovalThreshold, err = decimal.NewFromString(value)
		case model.SettingRefundPeriodDays:
			out.RefundPeriodDays, err = strconv.Atoi(value)
		case model.SettingVarianceThreshold:
			out.VarianceThreshold, err = decimal.NewFromString(value)
		}
		if err != nil {
			return p, fmt.Errorf("invalid tenant setting %s=%q: %w", key, raw, err)
		}
	}
	return out, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

// PolicyResolver loads the effective policy of a tenant.
type PolicyResolver struct {
	settingsRepo repository.SettingsRepository
	defaults     Policy
}

func NewPolicyResolver(settingsRepo repository.SettingsRepository, defaults Policy) *PolicyResolver {
	return &PolicyResolver{settingsRepo: settingsRepo, defaults: defaults}
}

func (r *PolicyResolver) Resolve(ctx context.Context, tenantID uuid.UUID) (Policy, error) {
	settings, err := r.settingsRepo.GetAll(ctx, tenantID)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to load tenant settings: %w", err)
	}
	return r.defaults.Merge(settings)
}
