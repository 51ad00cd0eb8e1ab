// Package bank wraps the external bank transfer service.
package bank

import (
	"context"
	"errors"
)

// TransferRequest is one transfer destination and amount.
type TransferRequest struct {
	RecipientName string `json:"recipientName"`
	BankName      string `json:"bankName"`
	BranchCode    string `json:"branchCode"`
	AccountType   string `json:"accountType,omitempty"`
	AccountNumber string `json:"accountNumber"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
}

// TransferResult is the service's acknowledgment of a single transfer.
type TransferResult struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

// BulkResult is the service's acknowledgment of a bulk transfer.
type BulkResult struct {
	BatchID string `json:"batchId"`
	Status  string `json:"status"`
}

type Provider interface {
	// Transfer executes one withdrawal. The idempotency key makes retries safe
	// on the service side.
	Transfer(ctx context.Context, req TransferRequest, idempotencyKey string) (TransferResult, error)
	// BulkTransfer executes all requests as a single batch; the service either
	// accepts or rejects the batch as a whole.
	BulkTransfer(ctx context.Context, reqs []TransferRequest, idempotencyKey string) (BulkResult, error)
}

var (
	ErrTransferFailed = errors.New("transfer_failed")
	ErrInvalidConfig  = errors.New("invalid_bank_config")
)
