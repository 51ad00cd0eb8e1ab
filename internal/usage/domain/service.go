// Package domain defines the monthly usage aggregation contract.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// TenantUsage is one tenant's aggregated fees for a billing month.
type TenantUsage struct {
	TenantID    snowflake.ID `json:"tenant_id"`
	UsageFee    int64        `json:"usage_fee"`
	ShippingFee int64        `json:"shipping_fee"`
	ItemCount   int          `json:"item_count"`
}

type Service interface {
	// Aggregate returns per-tenant fee totals for the given YYYY-MM period,
	// ordered by ascending tenant id. Tenants without activity in the period
	// are omitted.
	Aggregate(ctx context.Context, period string) ([]TenantUsage, error)
}

var (
	ErrInvalidPeriod = errors.New("invalid_period_format")
)
