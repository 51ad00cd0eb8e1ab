// Package domain contains persistence models for corporate tenants.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant represents a corporate customer of the lending platform.
type Tenant struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	ContactEmail string       `gorm:"type:text;not null" json:"contact_email"`

	BankName      string `gorm:"type:text" json:"bank_name"`
	BranchCode    string `gorm:"type:text" json:"branch_code"`
	AccountType   string `gorm:"type:text" json:"account_type"`
	AccountNumber string `gorm:"type:text" json:"account_number"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// BankAccount is the transfer destination snapshot used by settlement.
type BankAccount struct {
	BankName      string `json:"bank_name"`
	BranchCode    string `json:"branch_code"`
	AccountType   string `json:"account_type"`
	AccountNumber string `json:"account_number"`
}

// BankAccount returns the tenant's registered account.
func (t Tenant) BankAccount() BankAccount {
	return BankAccount{
		BankName:      t.BankName,
		BranchCode:    t.BranchCode,
		AccountType:   t.AccountType,
		AccountNumber: t.AccountNumber,
	}
}
