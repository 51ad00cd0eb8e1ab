package domain

import (
	"context"
	"errors"
)

type UpdateBankAccountRequest struct {
	BankName      string `json:"bankName"`
	BranchCode    string `json:"branchCode"`
	AccountType   string `json:"accountType"`
	AccountNumber string `json:"accountNumber"`
}

type Service interface {
	GetByID(ctx context.Context, id string) (Tenant, error)
	ListByIDs(ctx context.Context, ids []string) ([]Tenant, error)
	UpdateBankAccount(ctx context.Context, id string, req UpdateBankAccountRequest) (Tenant, error)
}

var (
	ErrNotFound          = errors.New("tenant_not_found")
	ErrInvalidTenantID   = errors.New("invalid_tenant_id")
	ErrInvalidBankFields = errors.New("invalid_bank_fields")
)
