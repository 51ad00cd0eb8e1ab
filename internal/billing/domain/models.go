// Package domain contains persistence models for billing records.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BillingStatus represents billing record lifecycle states.
//
// Transitions are monotonic: unpaid -> processing -> paid. A record never
// moves backwards and is terminal at paid.
type BillingStatus string

const (
	BillingStatusUnpaid     BillingStatus = "unpaid"
	BillingStatusProcessing BillingStatus = "processing"
	BillingStatusPaid       BillingStatus = "paid"
)

// BillingRecord is one tenant's financial obligation for one billing month.
// Records are append-only: created by invoice composition or a withdrawal,
// mutated only by status transitions, never deleted.
type BillingRecord struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID snowflake.ID `gorm:"not null;index" json:"tenant_id"`

	// BillingMonth is the calendar month being billed, formatted YYYY-MM.
	BillingMonth string `gorm:"type:text;not null;index;uniqueIndex:ux_billing_month_invoice_number,priority:1" json:"billing_month"`

	// InvoiceNumber is INV-{YYYYMM}-{seq:04d}, sequential and gap-free per
	// month. Nil for withdrawal ledger entries, which carry no invoice.
	InvoiceNumber *string `gorm:"type:text;uniqueIndex:ux_billing_month_invoice_number,priority:2" json:"invoice_number"`

	UsageFee    int64 `gorm:"not null;default:0" json:"usage_fee"`
	ShippingFee int64 `gorm:"not null;default:0" json:"shipping_fee"`
	TotalAmount int64 `gorm:"not null" json:"total_amount"`

	Status         BillingStatus `gorm:"type:text;not null;default:'unpaid';index" json:"status"`
	TransactionID  *string       `gorm:"type:text" json:"transaction_id"`
	WithdrawalDate *time.Time    `json:"withdrawal_date"`

	// BatchRef groups records settled by one bulk transfer call.
	BatchRef *string `gorm:"type:text;index" json:"batch_ref"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillingRecord) TableName() string { return "billing_records" }

var (
	ErrRecordNotFound = errors.New("billing_record_not_found")
)
