package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/liblend/internal/config"
	usagedomain "github.com/smallbiznis/liblend/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	shippingFee int64
}

func NewService(p Params) usagedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("usage.service"),
		shippingFee: p.Cfg.Billing.ShippingFee,
	}
}

type activityRow struct {
	TenantID  snowflake.ID
	FeePerDay int64
}

func (s *Service) Aggregate(ctx context.Context, period string) ([]usagedomain.TenantUsage, error) {
	start, end, err := PeriodBounds(period)
	if err != nil {
		return nil, err
	}

	var rows []activityRow
	err = s.db.WithContext(ctx).Raw(
		`SELECT tenant_id, fee_per_day
		 FROM lending_activities
		 WHERE lending_date >= ? AND lending_date < ?`,
		start,
		end,
	).Scan(&rows).Error
	if err != nil {
		s.log.Error("failed to read lending activity", zap.String("period", period), zap.Error(err))
		return nil, err
	}

	totals := make(map[snowflake.ID]*usagedomain.TenantUsage)
	for _, row := range rows {
		usage, ok := totals[row.TenantID]
		if !ok {
			usage = &usagedomain.TenantUsage{TenantID: row.TenantID}
			totals[row.TenantID] = usage
		}
		usage.UsageFee += row.FeePerDay
		usage.ShippingFee += s.shippingFee
		usage.ItemCount++
	}

	result := make([]usagedomain.TenantUsage, 0, len(totals))
	for _, usage := range totals {
		result = append(result, *usage)
	}
	// Deterministic order keeps downstream invoice numbering reproducible.
	sort.Slice(result, func(i, j int) bool {
		return result[i].TenantID < result[j].TenantID
	})

	return result, nil
}

// PeriodBounds parses a strict YYYY-MM period into its calendar-month
// half-open interval [start, end).
func PeriodBounds(period string) (time.Time, time.Time, error) {
	period = strings.TrimSpace(period)
	parsed, err := time.ParseInLocation("2006-01", period, time.UTC)
	if err != nil || parsed.Format("2006-01") != period {
		return time.Time{}, time.Time{}, usagedomain.ErrInvalidPeriod
	}
	return parsed, parsed.AddDate(0, 1, 0), nil
}
