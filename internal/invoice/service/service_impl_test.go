package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/smallbiznis/liblend/internal/billing/domain"
	"github.com/smallbiznis/liblend/internal/config"
	invoicedomain "github.com/smallbiznis/liblend/internal/invoice/domain"
	lendingdomain "github.com/smallbiznis/liblend/internal/lending/domain"
	"github.com/smallbiznis/liblend/internal/providers/email"
	"github.com/smallbiznis/liblend/internal/providers/pdf"
	tenantdomain "github.com/smallbiznis/liblend/internal/tenant/domain"
	tenantservice "github.com/smallbiznis/liblend/internal/tenant/service"
	usageservice "github.com/smallbiznis/liblend/internal/usage/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type pdfStub struct {
	calls int
	err   error
}

func (p *pdfStub) GenerateInvoice(ctx context.Context, data pdf.InvoiceData) ([]byte, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-1.4 " + data.InvoiceNumber), nil
}

type sentMail struct {
	to       []string
	subject  string
	filename string
}

type mailerStub struct {
	sent []sentMail
	err  error
}

func (m *mailerStub) Send(ctx context.Context, to []string, subject string, body string) error {
	return m.err
}

func (m *mailerStub) SendWithAttachment(ctx context.Context, to []string, subject string, body string, attachment email.Attachment) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, filename: attachment.Filename})
	return nil
}

type auditStub struct {
	actions []string
}

func (a *auditStub) AuditLog(ctx context.Context, action, targetType, targetID string, metadata map[string]any) error {
	a.actions = append(a.actions, action)
	return nil
}

type fixture struct {
	svc    invoicedomain.Service
	db     *gorm.DB
	node   *snowflake.Node
	pdf    *pdfStub
	mailer *mailerStub
	audit  *auditStub
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&tenantdomain.Tenant{},
		&lendingdomain.LendingActivity{},
		&billingdomain.BillingRecord{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	cfg := config.Config{}
	cfg.Billing.ShippingFee = 500
	logger := zap.NewNop()

	f := &fixture{
		db:     db,
		node:   node,
		pdf:    &pdfStub{},
		mailer: &mailerStub{},
		audit:  &auditStub{},
	}
	f.svc = NewService(Params{
		DB:       db,
		Log:      logger,
		GenID:    node,
		UsageSvc: usageservice.NewService(usageservice.Params{DB: db, Log: logger, Cfg: cfg}),
		Tenants:  tenantservice.NewService(tenantservice.Params{DB: db, Log: logger}),
		PDF:      f.pdf,
		Mailer:   f.mailer,
		AuditSvc: f.audit,
	})
	return f
}

func (f *fixture) seedTenant(t *testing.T, name, contactEmail string) tenantdomain.Tenant {
	t.Helper()
	tenant := tenantdomain.Tenant{
		ID:            f.node.Generate(),
		Name:          name,
		ContactEmail:  contactEmail,
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

func (f *fixture) seedActivities(t *testing.T, tenantID snowflake.ID, count int, feePerDay int64, month time.Time) {
	t.Helper()
	for i := 0; i < count; i++ {
		activity := lendingdomain.LendingActivity{
			ID:            f.node.Generate(),
			BookID:        f.node.Generate(),
			TenantID:      tenantID,
			FeePerDay:     feePerDay,
			LendingDate:   month.AddDate(0, 0, i),
			ReturnDueDate: month.AddDate(0, 0, i+14),
			Status:        lendingdomain.LendingStatusReturned,
		}
		if err := f.db.Create(&activity).Error; err != nil {
			t.Fatalf("seed activity: %v", err)
		}
	}
}

func TestGenerateInvoicesIssuesPerTenant(t *testing.T) {
	f := setupFixture(t)
	january := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	first := f.seedTenant(t, "Acme Corp", "billing@acme.example")
	second := f.seedTenant(t, "Globex", "ap@globex.example")
	f.seedActivities(t, first.ID, 10, 4500, january)
	f.seedActivities(t, second.ID, 4, 7000, january)

	report, err := f.svc.GenerateInvoices(context.Background(), "2024-01")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(report.Invoices) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Invoices))
	}

	a := report.Invoices[0]
	if a.TenantID != first.ID.String() || a.InvoiceNumber != "INV-202401-0001" {
		t.Fatalf("unexpected first result: %+v", a)
	}
	if a.TotalAmount != 50000 || a.Details.UsageFee != 45000 || a.Details.ShippingFee != 5000 {
		t.Fatalf("unexpected first totals: %+v", a)
	}
	if a.Status != invoicedomain.ResultIssued {
		t.Fatalf("expected issued, got %s", a.Status)
	}

	b := report.Invoices[1]
	if b.TenantID != second.ID.String() || b.InvoiceNumber != "INV-202401-0002" {
		t.Fatalf("unexpected second result: %+v", b)
	}
	if b.TotalAmount != 30000 || b.Details.UsageFee != 28000 || b.Details.ShippingFee != 2000 {
		t.Fatalf("unexpected second totals: %+v", b)
	}

	var records []billingdomain.BillingRecord
	if err := f.db.Order("invoice_number").Find(&records).Error; err != nil {
		t.Fatalf("read records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 billing records, got %d", len(records))
	}
	for _, record := range records {
		if record.Status != billingdomain.BillingStatusUnpaid {
			t.Fatalf("expected unpaid record, got %s", record.Status)
		}
		if record.TotalAmount != record.UsageFee+record.ShippingFee {
			t.Fatalf("total does not match fee sum: %+v", record)
		}
	}

	if len(f.mailer.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(f.mailer.sent))
	}
	if f.mailer.sent[0].to[0] != "billing@acme.example" {
		t.Fatalf("unexpected recipient: %v", f.mailer.sent[0].to)
	}
	if f.mailer.sent[0].subject != "Invoice for 2024-01" {
		t.Fatalf("unexpected subject: %s", f.mailer.sent[0].subject)
	}
	if f.mailer.sent[0].filename != "invoice-INV-202401-0001.pdf" {
		t.Fatalf("unexpected attachment name: %s", f.mailer.sent[0].filename)
	}
	if len(f.audit.actions) != 2 || f.audit.actions[0] != "invoice.generated" {
		t.Fatalf("unexpected audit trail: %v", f.audit.actions)
	}
}

func TestGenerateInvoicesSequenceContinues(t *testing.T) {
	f := setupFixture(t)
	january := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	tenant := f.seedTenant(t, "Acme Corp", "billing@acme.example")
	f.seedActivities(t, tenant.ID, 2, 1000, january)

	for i := 1; i <= 3; i++ {
		report, err := f.svc.GenerateInvoices(context.Background(), "2024-01")
		if err != nil {
			t.Fatalf("generate run %d: %v", i, err)
		}
		want := fmt.Sprintf("INV-202401-%04d", i)
		if got := report.Invoices[0].InvoiceNumber; got != want {
			t.Fatalf("run %d: expected %s, got %s", i, want, got)
		}
	}

	var distinct int64
	err := f.db.Raw(`SELECT COUNT(DISTINCT invoice_number) FROM billing_records`).Scan(&distinct).Error
	if err != nil {
		t.Fatalf("count numbers: %v", err)
	}
	if distinct != 3 {
		t.Fatalf("expected 3 distinct invoice numbers, got %d", distinct)
	}
}

func TestGenerateInvoicesMonthsNumberIndependently(t *testing.T) {
	f := setupFixture(t)
	tenant := f.seedTenant(t, "Acme Corp", "billing@acme.example")
	f.seedActivities(t, tenant.ID, 1, 1000, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	f.seedActivities(t, tenant.ID, 1, 1000, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))

	january, err := f.svc.GenerateInvoices(context.Background(), "2024-01")
	if err != nil {
		t.Fatalf("generate january: %v", err)
	}
	february, err := f.svc.GenerateInvoices(context.Background(), "2024-02")
	if err != nil {
		t.Fatalf("generate february: %v", err)
	}

	if january.Invoices[0].InvoiceNumber != "INV-202401-0001" {
		t.Fatalf("unexpected january number: %s", january.Invoices[0].InvoiceNumber)
	}
	if february.Invoices[0].InvoiceNumber != "INV-202402-0001" {
		t.Fatalf("unexpected february number: %s", february.Invoices[0].InvoiceNumber)
	}
}

func TestGenerateInvoicesNotificationFailureKeepsInvoice(t *testing.T) {
	f := setupFixture(t)
	f.mailer.err = errors.New("smtp unavailable")

	tenant := f.seedTenant(t, "Acme Corp", "billing@acme.example")
	f.seedActivities(t, tenant.ID, 1, 1000, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	report, err := f.svc.GenerateInvoices(context.Background(), "2024-01")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	result := report.Invoices[0]
	if result.Status != invoicedomain.ResultNotifyFailed {
		t.Fatalf("expected notify failure status, got %s", result.Status)
	}
	if result.InvoiceNumber != "INV-202401-0001" {
		t.Fatalf("expected invoice number on notify failure, got %q", result.InvoiceNumber)
	}
	if issued := report.Issued(); len(issued) != 1 {
		t.Fatalf("expected result to count as issued, got %d", len(issued))
	}

	var count int64
	if err := f.db.Model(&billingdomain.BillingRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected persisted record on notify failure, got %d", count)
	}
}

func TestGenerateInvoicesEmptyMonth(t *testing.T) {
	f := setupFixture(t)

	report, err := f.svc.GenerateInvoices(context.Background(), "2024-06")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(report.Invoices) != 0 {
		t.Fatalf("expected empty report, got %d results", len(report.Invoices))
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(f.mailer.sent))
	}
}

func TestListFiltersByMonthAndStatus(t *testing.T) {
	f := setupFixture(t)
	tenant := f.seedTenant(t, "Acme Corp", "billing@acme.example")
	f.seedActivities(t, tenant.ID, 1, 1000, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	f.seedActivities(t, tenant.ID, 1, 1000, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))

	if _, err := f.svc.GenerateInvoices(context.Background(), "2024-01"); err != nil {
		t.Fatalf("generate january: %v", err)
	}
	if _, err := f.svc.GenerateInvoices(context.Background(), "2024-02"); err != nil {
		t.Fatalf("generate february: %v", err)
	}

	records, err := f.svc.List(context.Background(), invoicedomain.ListRequest{BillingMonth: "2024-01"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].BillingMonth != "2024-01" {
		t.Fatalf("unexpected month filter result: %+v", records)
	}

	records, err = f.svc.List(context.Background(), invoicedomain.ListRequest{Status: string(billingdomain.BillingStatusPaid)})
	if err != nil {
		t.Fatalf("list paid: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no paid records, got %d", len(records))
	}
}

func TestFormatInvoiceNumber(t *testing.T) {
	if got := FormatInvoiceNumber("2024-01", 1); got != "INV-202401-0001" {
		t.Fatalf("unexpected number: %s", got)
	}
	if got := FormatInvoiceNumber("2024-12", 42); got != "INV-202412-0042" {
		t.Fatalf("unexpected number: %s", got)
	}
}

func TestFormatYen(t *testing.T) {
	cases := map[int64]string{
		0:       "¥0",
		500:     "¥500",
		45000:   "¥45,000",
		1234567: "¥1,234,567",
	}
	for amount, want := range cases {
		if got := FormatYen(amount); got != want {
			t.Fatalf("amount %d: expected %s, got %s", amount, want, got)
		}
	}
}
