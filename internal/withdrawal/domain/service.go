// Package domain defines the single-tenant automatic withdrawal contract.
package domain

import (
	"context"
	"errors"
)

type WithdrawRequest struct {
	TenantID       string `json:"companyId"`
	Amount         int64  `json:"amount"`
	WithdrawalDate string `json:"withdrawalDate"`
}

type WithdrawResult struct {
	TransactionID string `json:"transactionId"`
	RecordID      string `json:"recordId"`
}

type Service interface {
	// Withdraw executes one withdrawal via the transfer service and records
	// its outcome as a completed billing record. A transfer failure leaves no
	// ledger entry behind.
	Withdraw(ctx context.Context, req WithdrawRequest) (WithdrawResult, error)
}

var (
	ErrMissingParams  = errors.New("missing_required_params")
	ErrInvalidAmount  = errors.New("invalid_withdrawal_amount")
	ErrInvalidDate    = errors.New("invalid_withdrawal_date")
	ErrRecordingFault = errors.New("withdrawal_recording_failed")
)
