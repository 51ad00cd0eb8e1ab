package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/liblend/internal/audit/domain"
	billingdomain "github.com/smallbiznis/liblend/internal/billing/domain"
	"github.com/smallbiznis/liblend/internal/metrics"
	"github.com/smallbiznis/liblend/internal/providers/bank"
	tenantdomain "github.com/smallbiznis/liblend/internal/tenant/domain"
	withdrawaldomain "github.com/smallbiznis/liblend/internal/withdrawal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Bank     bank.Provider
	Tenants  tenantdomain.Service
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	bank     bank.Provider
	tenants  tenantdomain.Service
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) withdrawaldomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("withdrawal.service"),
		genID:    p.GenID,
		bank:     p.Bank,
		tenants:  p.Tenants,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Withdraw(ctx context.Context, req withdrawaldomain.WithdrawRequest) (withdrawaldomain.WithdrawResult, error) {
	if strings.TrimSpace(req.TenantID) == "" || req.Amount == 0 || strings.TrimSpace(req.WithdrawalDate) == "" {
		return withdrawaldomain.WithdrawResult{}, withdrawaldomain.ErrMissingParams
	}
	if req.Amount < 0 {
		return withdrawaldomain.WithdrawResult{}, withdrawaldomain.ErrInvalidAmount
	}
	withdrawalDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.WithdrawalDate), time.UTC)
	if err != nil {
		return withdrawaldomain.WithdrawResult{}, withdrawaldomain.ErrInvalidDate
	}

	tenant, err := s.tenants.GetByID(ctx, req.TenantID)
	if err != nil {
		return withdrawaldomain.WithdrawResult{}, err
	}

	// The key is generated before the call and persisted with the outcome, so
	// a retry after a lost response can query the transfer service instead of
	// transferring twice.
	idempotencyKey := uuid.NewString()
	account := tenant.BankAccount()
	transfer, err := s.bank.Transfer(ctx, bank.TransferRequest{
		RecipientName: tenant.Name,
		BankName:      account.BankName,
		BranchCode:    account.BranchCode,
		AccountType:   account.AccountType,
		AccountNumber: account.AccountNumber,
		Amount:        req.Amount,
		Description:   fmt.Sprintf("Automatic withdrawal - %s", req.WithdrawalDate),
	}, idempotencyKey)
	if err != nil {
		s.log.Error("withdrawal transfer failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("idempotency_key", idempotencyKey),
			zap.Error(err),
		)
		return withdrawaldomain.WithdrawResult{}, err
	}

	now := time.Now().UTC()
	record := billingdomain.BillingRecord{
		ID:             s.genID.Generate(),
		TenantID:       tenant.ID,
		BillingMonth:   withdrawalDate.Format("2006-01"),
		TotalAmount:    req.Amount,
		Status:         billingdomain.BillingStatusPaid,
		TransactionID:  &transfer.TransactionID,
		WithdrawalDate: &withdrawalDate,
		Metadata: datatypes.JSONMap{
			"idempotency_key": idempotencyKey,
			"source":          "auto_withdrawal",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		// The transfer went through but is unrecorded. The idempotency key in
		// the log is the reconciliation handle against the transfer service.
		s.log.Error("transfer succeeded but ledger write failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("transaction_id", transfer.TransactionID),
			zap.String("idempotency_key", idempotencyKey),
			zap.Error(err),
		)
		return withdrawaldomain.WithdrawResult{}, fmt.Errorf("%w: %v", withdrawaldomain.ErrRecordingFault, err)
	}

	if s.metrics != nil {
		s.metrics.WithdrawalsExecuted.Inc()
	}
	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(ctx, "withdrawal.executed", "billing_record", record.ID.String(), map[string]any{
			"tenant_id":       tenant.ID.String(),
			"amount":          req.Amount,
			"transaction_id":  transfer.TransactionID,
			"withdrawal_date": req.WithdrawalDate,
		})
	}

	return withdrawaldomain.WithdrawResult{
		TransactionID: transfer.TransactionID,
		RecordID:      record.ID.String(),
	}, nil
}
