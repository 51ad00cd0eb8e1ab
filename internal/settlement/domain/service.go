// Package domain defines the bulk settlement contract.
package domain

import (
	"context"
	"errors"
)

// MaxBatchSize bounds one settlement batch.
const MaxBatchSize = 100

// BankInfo is the transfer destination carried on a payment instruction.
type BankInfo struct {
	BankName      string `json:"bankName"`
	BranchCode    string `json:"branchCode"`
	AccountNumber string `json:"accountNumber"`
}

// PaymentInstruction targets one billing record. Instructions are
// request-scoped and never persisted.
type PaymentInstruction struct {
	ID       string   `json:"id"`
	TenantID string   `json:"companyId"`
	Amount   int64    `json:"amount"`
	BankInfo BankInfo `json:"bankInfo"`
}

type Service interface {
	// ProcessBatch validates the whole batch, executes one bulk transfer, and
	// transitions every referenced record to paid as a unit. A failure at any
	// point leaves every record in its prior status.
	ProcessBatch(ctx context.Context, instructions []PaymentInstruction) (int, error)
}

var (
	ErrEmptyBatch         = errors.New("payment_requests_required")
	ErrBatchTooLarge      = errors.New("batch_limit_exceeded")
	ErrInvalidAmount      = errors.New("invalid_payment_amount")
	ErrIncompleteBankInfo = errors.New("incomplete_bank_info")
	ErrAlreadyProcessed   = errors.New("already_processed")
)
