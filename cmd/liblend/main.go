package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/liblend/internal/audit"
	auditdomain "github.com/smallbiznis/liblend/internal/audit/domain"
	billingdomain "github.com/smallbiznis/liblend/internal/billing/domain"
	"github.com/smallbiznis/liblend/internal/config"
	"github.com/smallbiznis/liblend/internal/invoice"
	lendingdomain "github.com/smallbiznis/liblend/internal/lending/domain"
	"github.com/smallbiznis/liblend/internal/metrics"
	"github.com/smallbiznis/liblend/internal/providers/bank"
	"github.com/smallbiznis/liblend/internal/providers/email"
	"github.com/smallbiznis/liblend/internal/providers/pdf"
	"github.com/smallbiznis/liblend/internal/scheduler"
	"github.com/smallbiznis/liblend/internal/server"
	"github.com/smallbiznis/liblend/internal/settlement"
	"github.com/smallbiznis/liblend/internal/tenant"
	tenantdomain "github.com/smallbiznis/liblend/internal/tenant/domain"
	"github.com/smallbiznis/liblend/internal/usage"
	"github.com/smallbiznis/liblend/internal/withdrawal"
	"github.com/smallbiznis/liblend/pkg/db"
	"github.com/smallbiznis/liblend/pkg/log"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		db.Module,
		metrics.Module,
		fx.Provide(registerSnowflake),
		fx.Invoke(autoMigrate),

		// Providers
		bank.Module,
		email.Module,
		pdf.Module,

		// Billing & settlement engine
		audit.Module,
		tenant.Module,
		usage.Module,
		invoice.Module,
		settlement.Module,
		withdrawal.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func autoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&tenantdomain.Tenant{},
		&lendingdomain.LendingActivity{},
		&billingdomain.BillingRecord{},
		&auditdomain.AuditLog{},
		&scheduler.BillingRun{},
	)
}
