// Package domain contains persistence models for lending activity.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LendingStatus represents lending lifecycle states.
type LendingStatus string

const (
	LendingStatusActive   LendingStatus = "active"
	LendingStatusReturned LendingStatus = "returned"
	LendingStatusOverdue  LendingStatus = "overdue"
)

// LendingActivity is one book lent to one tenant. Billing reads it, never writes it.
type LendingActivity struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	BookID   snowflake.ID `gorm:"not null;index" json:"book_id"`
	TenantID snowflake.ID `gorm:"not null;index" json:"tenant_id"`

	// FeePerDay snapshots the book's lending conditions at lending time.
	FeePerDay int64 `gorm:"not null" json:"fee_per_day"`

	LendingDate      time.Time     `gorm:"not null;index" json:"lending_date"`
	ReturnDueDate    time.Time     `gorm:"not null" json:"return_due_date"`
	ActualReturnDate *time.Time    `json:"actual_return_date"`
	Status           LendingStatus `gorm:"type:text;not null;default:'active'" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LendingActivity) TableName() string { return "lending_activities" }
