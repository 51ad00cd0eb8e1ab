package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/liblend/internal/audit/domain"
	billingdomain "github.com/smallbiznis/liblend/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/liblend/internal/invoice/domain"
	"github.com/smallbiznis/liblend/internal/metrics"
	"github.com/smallbiznis/liblend/internal/providers/email"
	"github.com/smallbiznis/liblend/internal/providers/pdf"
	tenantdomain "github.com/smallbiznis/liblend/internal/tenant/domain"
	usagedomain "github.com/smallbiznis/liblend/internal/usage/domain"
	pkgdb "github.com/smallbiznis/liblend/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const numberingRetries = 3

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	UsageSvc usagedomain.Service
	Tenants  tenantdomain.Service
	PDF      pdf.Provider
	Mailer   email.Provider
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	usageSvc usagedomain.Service
	tenants  tenantdomain.Service
	pdf      pdf.Provider
	mailer   email.Provider
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		usageSvc: p.UsageSvc,
		tenants:  p.Tenants,
		pdf:      p.PDF,
		mailer:   p.Mailer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) GenerateInvoices(ctx context.Context, billingMonth string) (invoicedomain.GenerateReport, error) {
	usages, err := s.usageSvc.Aggregate(ctx, billingMonth)
	if err != nil {
		return invoicedomain.GenerateReport{}, err
	}

	tenantIDs := make([]string, 0, len(usages))
	for _, usage := range usages {
		tenantIDs = append(tenantIDs, usage.TenantID.String())
	}
	tenants, err := s.tenants.ListByIDs(ctx, tenantIDs)
	if err != nil {
		return invoicedomain.GenerateReport{}, err
	}
	byID := make(map[snowflake.ID]tenantdomain.Tenant, len(tenants))
	for _, tenant := range tenants {
		byID[tenant.ID] = tenant
	}

	report := invoicedomain.GenerateReport{BillingMonth: billingMonth}
	for _, usage := range usages {
		result := s.issueInvoice(ctx, billingMonth, usage, byID)
		report.Invoices = append(report.Invoices, result)
	}
	return report, nil
}

func (s *Service) issueInvoice(
	ctx context.Context,
	billingMonth string,
	usage usagedomain.TenantUsage,
	tenants map[snowflake.ID]tenantdomain.Tenant,
) invoicedomain.InvoiceResult {
	total := usage.UsageFee + usage.ShippingFee
	result := invoicedomain.InvoiceResult{
		TenantID:     usage.TenantID.String(),
		BillingMonth: billingMonth,
		TotalAmount:  total,
		Details: invoicedomain.FeeDetails{
			UsageFee:    usage.UsageFee,
			ShippingFee: usage.ShippingFee,
		},
	}

	tenant, ok := tenants[usage.TenantID]
	if !ok {
		result.Status = invoicedomain.ResultFailed
		result.Reason = "unknown tenant"
		s.countFailure()
		return result
	}

	record, err := s.persistRecord(ctx, billingMonth, usage, total)
	if err != nil {
		s.log.Error("failed to persist billing record",
			zap.String("billing_month", billingMonth),
			zap.String("tenant_id", usage.TenantID.String()),
			zap.Error(err),
		)
		result.Status = invoicedomain.ResultFailed
		result.Reason = "persist failed"
		s.countFailure()
		return result
	}
	result.InvoiceNumber = *record.InvoiceNumber
	if s.metrics != nil {
		s.metrics.InvoicesGenerated.Inc()
	}
	s.emitAudit(ctx, record)

	if err := s.notify(ctx, tenant, record); err != nil {
		// The invoice stands once persisted; dispatch can be replayed.
		s.log.Warn("invoice notification failed",
			zap.String("invoice_number", *record.InvoiceNumber),
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
		result.Status = invoicedomain.ResultNotifyFailed
		result.Reason = "notification failed"
		return result
	}

	result.Status = invoicedomain.ResultIssued
	return result
}

// persistRecord assigns the next sequential invoice number and inserts the
// billing record in one transaction. The unique index on
// (billing_month, invoice_number) backs the sequence; a concurrent run that
// takes the same number loses the insert and retries with the next one.
func (s *Service) persistRecord(
	ctx context.Context,
	billingMonth string,
	usage usagedomain.TenantUsage,
	total int64,
) (*billingdomain.BillingRecord, error) {
	var record billingdomain.BillingRecord
	var lastErr error
	for attempt := 0; attempt < numberingRetries; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, err := s.nextInvoiceSeq(ctx, tx, billingMonth)
			if err != nil {
				return err
			}
			number := FormatInvoiceNumber(billingMonth, seq)
			now := time.Now().UTC()
			record = billingdomain.BillingRecord{
				ID:            s.genID.Generate(),
				TenantID:      usage.TenantID,
				BillingMonth:  billingMonth,
				InvoiceNumber: &number,
				UsageFee:      usage.UsageFee,
				ShippingFee:   usage.ShippingFee,
				TotalAmount:   total,
				Status:        billingdomain.BillingStatusUnpaid,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			return tx.WithContext(ctx).Create(&record).Error
		})
		if err == nil {
			return &record, nil
		}
		lastErr = err
		if !pkgdb.IsDuplicateKeyErr(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// nextInvoiceSeq relies on billing records being append-only: the count of
// numbered records for the month plus one is gap-free.
func (s *Service) nextInvoiceSeq(ctx context.Context, tx *gorm.DB, billingMonth string) (int, error) {
	var count int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM billing_records
		 WHERE billing_month = ? AND invoice_number IS NOT NULL`,
		billingMonth,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

func (s *Service) notify(ctx context.Context, tenant tenantdomain.Tenant, record *billingdomain.BillingRecord) error {
	document, err := s.pdf.GenerateInvoice(ctx, pdf.InvoiceData{
		InvoiceNumber: *record.InvoiceNumber,
		BillingMonth:  record.BillingMonth,
		TenantName:    tenant.Name,
		UsageFee:      FormatYen(record.UsageFee),
		ShippingFee:   FormatYen(record.ShippingFee),
		Total:         FormatYen(record.TotalAmount),
	})
	if err != nil {
		return fmt.Errorf("render invoice document: %w", err)
	}

	subject := fmt.Sprintf("Invoice for %s", record.BillingMonth)
	body := fmt.Sprintf("Invoice number: %s\nTotal amount: %s\n", *record.InvoiceNumber, FormatYen(record.TotalAmount))
	err = s.mailer.SendWithAttachment(ctx, []string{tenant.ContactEmail}, subject, body, email.Attachment{
		Filename:    fmt.Sprintf("invoice-%s.pdf", *record.InvoiceNumber),
		ContentType: "application/pdf",
		Content:     document,
	})
	if err != nil {
		return fmt.Errorf("dispatch invoice notification: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) ([]billingdomain.BillingRecord, error) {
	query := s.db.WithContext(ctx).Model(&billingdomain.BillingRecord{})
	if req.BillingMonth != "" {
		query = query.Where("billing_month = ?", req.BillingMonth)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var records []billingdomain.BillingRecord
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) emitAudit(ctx context.Context, record *billingdomain.BillingRecord) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, "invoice.generated", "billing_record", record.ID.String(), map[string]any{
		"invoice_number": *record.InvoiceNumber,
		"billing_month":  record.BillingMonth,
		"tenant_id":      record.TenantID.String(),
		"total_amount":   record.TotalAmount,
	})
}

func (s *Service) countFailure() {
	if s.metrics != nil {
		s.metrics.InvoiceFailures.Inc()
	}
}

// FormatInvoiceNumber renders INV-{YYYYMM}-{seq:04d}.
func FormatInvoiceNumber(billingMonth string, seq int) string {
	yyyymm := billingMonth[:4] + billingMonth[5:]
	return fmt.Sprintf("INV-%s-%04d", yyyymm, seq)
}

// FormatYen renders an amount with thousands separators, e.g. ¥45,000.
func FormatYen(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	negative := false
	if len(digits) > 0 && digits[0] == '-' {
		negative = true
		digits = digits[1:]
	}
	var grouped []byte
	for i, c := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, c)
	}
	if negative {
		return "-¥" + string(grouped)
	}
	return "¥" + string(grouped)
}
