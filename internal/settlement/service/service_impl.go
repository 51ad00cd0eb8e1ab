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
	settlementdomain "github.com/smallbiznis/liblend/internal/settlement/domain"
	tenantdomain "github.com/smallbiznis/liblend/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Bank     bank.Provider
	Tenants  tenantdomain.Service
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	bank     bank.Provider
	tenants  tenantdomain.Service
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) settlementdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settlement.service"),
		bank:     p.Bank,
		tenants:  p.Tenants,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) ProcessBatch(ctx context.Context, instructions []settlementdomain.PaymentInstruction) (int, error) {
	recordIDs, err := validateBatch(instructions)
	if err != nil {
		return 0, err
	}

	// Durable intent: every record flips unpaid -> processing in one committed
	// transaction before any external call. A record already processing or
	// paid fails the whole batch with zero transfer calls.
	batchRef := uuid.NewString()
	if err := s.markProcessing(ctx, recordIDs, batchRef); err != nil {
		return 0, err
	}

	transfers, err := s.buildTransfers(ctx, instructions)
	if err != nil {
		s.revertToUnpaid(ctx, batchRef)
		return 0, err
	}

	result, err := s.bank.BulkTransfer(ctx, transfers, batchRef)
	if err != nil {
		s.log.Error("bulk transfer failed",
			zap.String("batch_ref", batchRef),
			zap.Int("batch_size", len(instructions)),
			zap.Error(err),
		)
		s.revertToUnpaid(ctx, batchRef)
		return 0, err
	}

	if err := s.markPaid(ctx, batchRef, result.BatchID); err != nil {
		// Transfer succeeded but the terminal flip failed. Records stay in
		// processing under this batch_ref; the idempotency guard keeps them
		// out of further batches until reconciled.
		s.log.Error("failed to mark settled records paid",
			zap.String("batch_ref", batchRef),
			zap.String("bank_batch_id", result.BatchID),
			zap.Error(err),
		)
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.SettlementsProcessed.Add(float64(len(instructions)))
	}
	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(ctx, "settlement.processed", "settlement_batch", batchRef, map[string]any{
			"bank_batch_id": result.BatchID,
			"count":         len(instructions),
		})
	}
	return len(instructions), nil
}

func validateBatch(instructions []settlementdomain.PaymentInstruction) ([]snowflake.ID, error) {
	if len(instructions) == 0 {
		return nil, settlementdomain.ErrEmptyBatch
	}
	if len(instructions) > settlementdomain.MaxBatchSize {
		return nil, settlementdomain.ErrBatchTooLarge
	}

	recordIDs := make([]snowflake.ID, 0, len(instructions))
	for _, instruction := range instructions {
		if instruction.Amount <= 0 {
			return nil, settlementdomain.ErrInvalidAmount
		}
		info := instruction.BankInfo
		if strings.TrimSpace(info.BankName) == "" ||
			strings.TrimSpace(info.BranchCode) == "" ||
			strings.TrimSpace(info.AccountNumber) == "" {
			return nil, settlementdomain.ErrIncompleteBankInfo
		}
		recordID, err := snowflake.ParseString(strings.TrimSpace(instruction.ID))
		if err != nil {
			return nil, billingdomain.ErrRecordNotFound
		}
		recordIDs = append(recordIDs, recordID)
	}
	return recordIDs, nil
}

type recordStatusRow struct {
	ID     snowflake.ID
	Status billingdomain.BillingStatus
}

func (s *Service) markProcessing(ctx context.Context, recordIDs []snowflake.ID, batchRef string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []recordStatusRow
		err := tx.WithContext(ctx).Raw(
			`SELECT id, status FROM billing_records WHERE id IN ?`,
			recordIDs,
		).Scan(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) != len(recordIDs) {
			return billingdomain.ErrRecordNotFound
		}
		for _, row := range rows {
			if row.Status != billingdomain.BillingStatusUnpaid {
				return settlementdomain.ErrAlreadyProcessed
			}
		}

		result := tx.WithContext(ctx).Exec(
			`UPDATE billing_records
			 SET status = ?, batch_ref = ?, updated_at = ?
			 WHERE id IN ? AND status = ?`,
			billingdomain.BillingStatusProcessing,
			batchRef,
			time.Now().UTC(),
			recordIDs,
			billingdomain.BillingStatusUnpaid,
		)
		if result.Error != nil {
			return result.Error
		}
		// A concurrent settlement that won a record between the read and the
		// update shows up as a short row count.
		if result.RowsAffected != int64(len(recordIDs)) {
			return settlementdomain.ErrAlreadyProcessed
		}
		return nil
	})
}

func (s *Service) buildTransfers(ctx context.Context, instructions []settlementdomain.PaymentInstruction) ([]bank.TransferRequest, error) {
	tenantIDs := make([]string, 0, len(instructions))
	for _, instruction := range instructions {
		tenantIDs = append(tenantIDs, instruction.TenantID)
	}
	tenants, err := s.tenants.ListByIDs(ctx, tenantIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(tenants))
	for _, tenant := range tenants {
		names[tenant.ID.String()] = tenant.Name
	}

	description := fmt.Sprintf("Usage fee settlement - %s", time.Now().UTC().Format("2006-01-02"))
	transfers := make([]bank.TransferRequest, 0, len(instructions))
	for _, instruction := range instructions {
		transfers = append(transfers, bank.TransferRequest{
			RecipientName: names[instruction.TenantID],
			BankName:      instruction.BankInfo.BankName,
			BranchCode:    instruction.BankInfo.BranchCode,
			AccountNumber: instruction.BankInfo.AccountNumber,
			Amount:        instruction.Amount,
			Description:   description,
		})
	}
	return transfers, nil
}

func (s *Service) revertToUnpaid(ctx context.Context, batchRef string) {
	err := s.db.WithContext(ctx).Exec(
		`UPDATE billing_records
		 SET status = ?, batch_ref = NULL, updated_at = ?
		 WHERE batch_ref = ? AND status = ?`,
		billingdomain.BillingStatusUnpaid,
		time.Now().UTC(),
		batchRef,
		billingdomain.BillingStatusProcessing,
	).Error
	if err != nil {
		s.log.Error("failed to revert settlement intent",
			zap.String("batch_ref", batchRef),
			zap.Error(err),
		)
	}
}

func (s *Service) markPaid(ctx context.Context, batchRef, bankBatchID string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Exec(
		`UPDATE billing_records
		 SET status = ?, transaction_id = ?, withdrawal_date = ?, updated_at = ?
		 WHERE batch_ref = ? AND status = ?`,
		billingdomain.BillingStatusPaid,
		bankBatchID,
		now,
		now,
		batchRef,
		billingdomain.BillingStatusProcessing,
	).Error
}
