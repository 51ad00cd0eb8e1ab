// Package scheduler triggers the monthly billing run.
package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/liblend/internal/config"
	invoicedomain "github.com/smallbiznis/liblend/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BillingRun is the lock row that keeps one instance per billing month.
type BillingRun struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	BillingMonth string       `gorm:"type:text;not null;uniqueIndex"`
	Status       string       `gorm:"type:text;not null"`
	StartedAt    time.Time    `gorm:"not null"`
	CompletedAt  *time.Time
}

// TableName sets the database table name.
func (BillingRun) TableName() string { return "billing_runs" }

const (
	runStatusRunning   = "running"
	runStatusCompleted = "completed"
	runStatusFailed    = "failed"
)

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	invoiceSvc invoicedomain.Service
	interval   time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func New(db *gorm.DB, log *zap.Logger, genID *snowflake.Node, invoiceSvc invoicedomain.Service, cfg config.Config) *Scheduler {
	return &Scheduler{
		db:         db,
		log:        log.Named("billing.scheduler"),
		genID:      genID,
		invoiceSvc: invoiceSvc,
		interval:   cfg.Scheduler.Interval,
	}
}

func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, time.Now().UTC())
		}
	}
}

// RunOnce bills the month before reference if no run claimed it yet.
func (s *Scheduler) RunOnce(ctx context.Context, reference time.Time) {
	month := reference.AddDate(0, -1, 0).Format("2006-01")

	claimed, runID, err := s.claimRun(ctx, month)
	if err != nil {
		s.log.Error("failed to claim billing run", zap.String("billing_month", month), zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	s.log.Info("starting monthly billing run", zap.String("billing_month", month))
	report, err := s.invoiceSvc.GenerateInvoices(ctx, month)
	status := runStatusCompleted
	if err != nil {
		status = runStatusFailed
		s.log.Error("monthly billing run failed", zap.String("billing_month", month), zap.Error(err))
	} else {
		s.log.Info("monthly billing run finished",
			zap.String("billing_month", month),
			zap.Int("invoices", len(report.Invoices)),
		)
	}

	if err := s.completeRun(ctx, runID, status); err != nil {
		s.log.Error("failed to finalize billing run", zap.String("billing_month", month), zap.Error(err))
	}
}

func (s *Scheduler) claimRun(ctx context.Context, month string) (bool, snowflake.ID, error) {
	runID := s.genID.Generate()
	result := s.db.WithContext(ctx).Exec(
		`INSERT INTO billing_runs (id, billing_month, status, started_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (billing_month) DO NOTHING`,
		runID,
		month,
		runStatusRunning,
		time.Now().UTC(),
	)
	if result.Error != nil {
		return false, 0, result.Error
	}
	return result.RowsAffected > 0, runID, nil
}

func (s *Scheduler) completeRun(ctx context.Context, runID snowflake.ID, status string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Exec(
		`UPDATE billing_runs SET status = ?, completed_at = ? WHERE id = ?`,
		status,
		now,
		runID,
	).Error
}
