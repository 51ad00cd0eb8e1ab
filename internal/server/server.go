package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	invoicedomain "github.com/smallbiznis/liblend/internal/invoice/domain"
	settlementdomain "github.com/smallbiznis/liblend/internal/settlement/domain"
	tenantdomain "github.com/smallbiznis/liblend/internal/tenant/domain"
	withdrawaldomain "github.com/smallbiznis/liblend/internal/withdrawal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	logger := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type Server struct {
	engine        *gin.Engine
	invoiceSvc    invoicedomain.Service
	settlementSvc settlementdomain.Service
	withdrawalSvc withdrawaldomain.Service
	tenantSvc     tenantdomain.Service
}

type Params struct {
	fx.In

	Gin           *gin.Engine
	InvoiceSvc    invoicedomain.Service
	SettlementSvc settlementdomain.Service
	WithdrawalSvc withdrawaldomain.Service
	TenantSvc     tenantdomain.Service
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:        p.Gin,
		invoiceSvc:    p.InvoiceSvc,
		settlementSvc: p.SettlementSvc,
		withdrawalSvc: p.WithdrawalSvc,
		tenantSvc:     p.TenantSvc,
	}

	s.registerAPIRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Billing --------
	api.POST("/billing/invoices/generate", s.GenerateInvoices)
	api.GET("/billing/records", s.ListBillingRecords)
	api.POST("/billing/withdrawals", s.AutoWithdrawal)

	// -------- Payments --------
	api.POST("/payments/process", s.ProcessPayments)

	// -------- Tenants --------
	api.GET("/tenants/:id", s.GetTenant)
	api.PUT("/tenants/:id/bank-account", s.UpdateTenantBankAccount)
}

func run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: s.Engine(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
