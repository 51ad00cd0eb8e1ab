package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/smallbiznis/liblend/internal/billing/domain"
	"github.com/smallbiznis/liblend/internal/providers/bank"
	tenantdomain "github.com/smallbiznis/liblend/internal/tenant/domain"
	tenantservice "github.com/smallbiznis/liblend/internal/tenant/service"
	withdrawaldomain "github.com/smallbiznis/liblend/internal/withdrawal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type bankStub struct {
	calls   int
	lastReq bank.TransferRequest
	lastKey string
	err     error
}

func (b *bankStub) Transfer(ctx context.Context, req bank.TransferRequest, idempotencyKey string) (bank.TransferResult, error) {
	b.calls++
	b.lastReq = req
	b.lastKey = idempotencyKey
	if b.err != nil {
		return bank.TransferResult{}, b.err
	}
	return bank.TransferResult{TransactionID: "txn-12345", Status: "completed"}, nil
}

func (b *bankStub) BulkTransfer(ctx context.Context, reqs []bank.TransferRequest, idempotencyKey string) (bank.BulkResult, error) {
	return bank.BulkResult{}, errors.New("unexpected bulk transfer")
}

type auditStub struct {
	actions []string
}

func (a *auditStub) AuditLog(ctx context.Context, action, targetType, targetID string, metadata map[string]any) error {
	a.actions = append(a.actions, action)
	return nil
}

type fixture struct {
	svc  withdrawaldomain.Service
	db   *gorm.DB
	node *snowflake.Node
	bank *bankStub
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(&tenantdomain.Tenant{}, &billingdomain.BillingRecord{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	logger := zap.NewNop()
	f := &fixture{db: db, node: node, bank: &bankStub{}}
	f.svc = NewService(Params{
		DB:       db,
		Log:      logger,
		GenID:    node,
		Bank:     f.bank,
		Tenants:  tenantservice.NewService(tenantservice.Params{DB: db, Log: logger}),
		AuditSvc: &auditStub{},
	})
	return f
}

func (f *fixture) seedTenant(t *testing.T) tenantdomain.Tenant {
	t.Helper()
	tenant := tenantdomain.Tenant{
		ID:            f.node.Generate(),
		Name:          "Acme Corp",
		ContactEmail:  "billing@acme.example",
		BankName:      "Mizuho",
		BranchCode:    "001",
		AccountType:   "ordinary",
		AccountNumber: "1234567",
	}
	if err := f.db.Create(&tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenant
}

func (f *fixture) countRecords(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&billingdomain.BillingRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	return count
}

func TestWithdrawExecutesTransferAndRecords(t *testing.T) {
	f := setupFixture(t)
	tenant := f.seedTenant(t)

	result, err := f.svc.Withdraw(context.Background(), withdrawaldomain.WithdrawRequest{
		TenantID:       tenant.ID.String(),
		Amount:         50000,
		WithdrawalDate: "2024-02-27",
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if result.TransactionID != "txn-12345" {
		t.Fatalf("unexpected transaction id: %s", result.TransactionID)
	}
	if result.RecordID == "" {
		t.Fatal("expected record id")
	}
	if f.bank.calls != 1 {
		t.Fatalf("expected 1 transfer, got %d", f.bank.calls)
	}
	if f.bank.lastReq.RecipientName != "Acme Corp" || f.bank.lastReq.Amount != 50000 {
		t.Fatalf("unexpected transfer request: %+v", f.bank.lastReq)
	}
	if f.bank.lastReq.AccountNumber != "1234567" || f.bank.lastReq.BranchCode != "001" {
		t.Fatalf("unexpected destination account: %+v", f.bank.lastReq)
	}
	if f.bank.lastKey == "" {
		t.Fatal("expected idempotency key on transfer")
	}

	var record billingdomain.BillingRecord
	if err := f.db.First(&record, "id = ?", result.RecordID).Error; err != nil {
		t.Fatalf("read record: %v", err)
	}
	if record.Status != billingdomain.BillingStatusPaid {
		t.Fatalf("expected paid record, got %s", record.Status)
	}
	if record.BillingMonth != "2024-02" {
		t.Fatalf("unexpected billing month: %s", record.BillingMonth)
	}
	if record.TransactionID == nil || *record.TransactionID != "txn-12345" {
		t.Fatalf("unexpected recorded transaction id: %+v", record.TransactionID)
	}
	if record.Metadata["source"] != "auto_withdrawal" {
		t.Fatalf("unexpected metadata: %+v", record.Metadata)
	}
}

func TestWithdrawRejectsMissingParams(t *testing.T) {
	f := setupFixture(t)
	tenant := f.seedTenant(t)

	cases := []withdrawaldomain.WithdrawRequest{
		{Amount: 1000, WithdrawalDate: "2024-02-27"},
		{TenantID: tenant.ID.String(), WithdrawalDate: "2024-02-27"},
		{TenantID: tenant.ID.String(), Amount: 1000},
	}
	for _, req := range cases {
		_, err := f.svc.Withdraw(context.Background(), req)
		if !errors.Is(err, withdrawaldomain.ErrMissingParams) {
			t.Fatalf("request %+v: expected ErrMissingParams, got %v", req, err)
		}
	}
	if f.bank.calls != 0 {
		t.Fatalf("expected no transfers, got %d", f.bank.calls)
	}
}

func TestWithdrawRejectsNegativeAmount(t *testing.T) {
	f := setupFixture(t)
	tenant := f.seedTenant(t)

	_, err := f.svc.Withdraw(context.Background(), withdrawaldomain.WithdrawRequest{
		TenantID:       tenant.ID.String(),
		Amount:         -500,
		WithdrawalDate: "2024-02-27",
	})
	if !errors.Is(err, withdrawaldomain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if f.bank.calls != 0 {
		t.Fatalf("expected no transfers, got %d", f.bank.calls)
	}
}

func TestWithdrawRejectsMalformedDate(t *testing.T) {
	f := setupFixture(t)
	tenant := f.seedTenant(t)

	_, err := f.svc.Withdraw(context.Background(), withdrawaldomain.WithdrawRequest{
		TenantID:       tenant.ID.String(),
		Amount:         1000,
		WithdrawalDate: "27-02-2024",
	})
	if !errors.Is(err, withdrawaldomain.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if f.bank.calls != 0 {
		t.Fatalf("expected no transfers, got %d", f.bank.calls)
	}
}

func TestWithdrawUnknownTenant(t *testing.T) {
	f := setupFixture(t)

	_, err := f.svc.Withdraw(context.Background(), withdrawaldomain.WithdrawRequest{
		TenantID:       f.node.Generate().String(),
		Amount:         1000,
		WithdrawalDate: "2024-02-27",
	})
	if !errors.Is(err, tenantdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.bank.calls != 0 {
		t.Fatalf("expected no transfers, got %d", f.bank.calls)
	}
	if f.countRecords(t) != 0 {
		t.Fatal("expected no billing records")
	}
}

func TestWithdrawTransferFailureLeavesNoRecord(t *testing.T) {
	f := setupFixture(t)
	f.bank.err = bank.ErrTransferFailed
	tenant := f.seedTenant(t)

	_, err := f.svc.Withdraw(context.Background(), withdrawaldomain.WithdrawRequest{
		TenantID:       tenant.ID.String(),
		Amount:         1000,
		WithdrawalDate: "2024-02-27",
	})
	if !errors.Is(err, bank.ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	if f.countRecords(t) != 0 {
		t.Fatal("expected no billing records after failed transfer")
	}
}
