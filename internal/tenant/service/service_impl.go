package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/smallbiznis/liblend/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p Params) tenantdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("tenant.service"),
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (tenantdomain.Tenant, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return tenantdomain.Tenant{}, tenantdomain.ErrInvalidTenantID
	}

	var tenant tenantdomain.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tenantdomain.Tenant{}, tenantdomain.ErrNotFound
		}
		return tenantdomain.Tenant{}, err
	}
	return tenant, nil
}

func (s *Service) ListByIDs(ctx context.Context, ids []string) ([]tenantdomain.Tenant, error) {
	parsed := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		tenantID, err := snowflake.ParseString(strings.TrimSpace(id))
		if err != nil {
			return nil, tenantdomain.ErrInvalidTenantID
		}
		parsed = append(parsed, tenantID)
	}
	if len(parsed) == 0 {
		return nil, nil
	}

	var tenants []tenantdomain.Tenant
	if err := s.db.WithContext(ctx).Where("id IN ?", parsed).Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (s *Service) UpdateBankAccount(ctx context.Context, id string, req tenantdomain.UpdateBankAccountRequest) (tenantdomain.Tenant, error) {
	if strings.TrimSpace(req.BankName) == "" ||
		strings.TrimSpace(req.BranchCode) == "" ||
		strings.TrimSpace(req.AccountNumber) == "" {
		return tenantdomain.Tenant{}, tenantdomain.ErrInvalidBankFields
	}

	tenant, err := s.GetByID(ctx, id)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET bank_name = ?, branch_code = ?, account_type = ?, account_number = ?, updated_at = ?
		 WHERE id = ?`,
		strings.TrimSpace(req.BankName),
		strings.TrimSpace(req.BranchCode),
		strings.TrimSpace(req.AccountType),
		strings.TrimSpace(req.AccountNumber),
		now,
		tenant.ID,
	).Error
	if err != nil {
		return tenantdomain.Tenant{}, err
	}

	return s.GetByID(ctx, id)
}
