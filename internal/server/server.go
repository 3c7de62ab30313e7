package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accesskeydomain "github.com/smallbiznis/milkseller/internal/accesskey/domain"
	"github.com/smallbiznis/milkseller/internal/authorization"
	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	"github.com/smallbiznis/milkseller/internal/clock"
	"github.com/smallbiznis/milkseller/internal/config"
	"github.com/smallbiznis/milkseller/internal/observability"
	obsmiddleware "github.com/smallbiznis/milkseller/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/milkseller/internal/observability/metrics"
	obstracing "github.com/smallbiznis/milkseller/internal/observability/tracing"
	pricingdomain "github.com/smallbiznis/milkseller/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/smallbiznis/milkseller/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	clock        clock.Clock
	rateSvc      ratedomain.Service
	billingSvc   billingdomain.Service
	pricingSvc   pricingdomain.Service
	accessKeySvc accesskeydomain.Service
	authzSvc     authorization.Service
	limiter      *ratelimit.UpstreamLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Clock        clock.Clock
	RateSvc      ratedomain.Service
	BillingSvc   billingdomain.Service
	PricingSvc   pricingdomain.Service
	AccessKeySvc accesskeydomain.Service
	AuthzSvc     authorization.Service
	Limiter      *ratelimit.UpstreamLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		clock:        p.Clock,
		rateSvc:      p.RateSvc,
		billingSvc:   p.BillingSvc,
		pricingSvc:   p.PricingSvc,
		accessKeySvc: p.AccessKeySvc,
		authzSvc:     p.AuthzSvc,
		limiter:      p.Limiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1", s.AccessKeyRequired())

	// -------- Rates --------
	api.POST("/rates/resolve", s.authorize(authorization.ObjectRates, authorization.ActionRatesResolve), s.ResolveRate)
	api.POST("/rates/current", s.authorize(authorization.ObjectRates, authorization.ActionRatesResolve), s.CurrentRate)

	// -------- Billing --------
	api.POST("/billing/breakdown", s.authorize(authorization.ObjectBilling, authorization.ActionBillingCompute), s.ComputeBreakdown)

	// -------- Customers (upstream-backed) --------
	customers := api.Group("/customers/:user_id", s.UpstreamRateLimit())
	{
		customers.GET("/billing", s.authorize(authorization.ObjectBilling, authorization.ActionBillingCustomer), s.CustomerBilling)
		customers.GET("/snapshots", s.authorize(authorization.ObjectSnapshot, authorization.ActionSnapshotView), s.ListSnapshots)
		customers.GET("/snapshots/latest", s.authorize(authorization.ObjectSnapshot, authorization.ActionSnapshotView), s.LatestSnapshot)
		customers.GET("/statement.pdf", s.authorize(authorization.ObjectStatement, authorization.ActionStatementRender), s.StatementPDF)
		customers.GET("/statement.xlsx", s.authorize(authorization.ObjectStatement, authorization.ActionStatementRender), s.StatementXLSX)
	}

	// -------- Prices --------
	api.GET("/prices", s.authorize(authorization.ObjectPrice, authorization.ActionPriceView), s.ListPrices)
	api.GET("/prices/at", s.authorize(authorization.ObjectPrice, authorization.ActionPriceView), s.PriceAt)
	api.POST("/prices", s.authorize(authorization.ObjectPrice, authorization.ActionPriceCreate), s.CreatePrice)

	// -------- Access keys --------
	api.GET("/access-keys", s.authorize(authorization.ObjectAccessKey, authorization.ActionAccessKeyView), s.ListAccessKeys)
	api.POST("/access-keys", s.authorize(authorization.ObjectAccessKey, authorization.ActionAccessKeyCreate), s.CreateAccessKey)
	api.POST("/access-keys/:key_id/revoke", s.authorize(authorization.ObjectAccessKey, authorization.ActionAccessKeyRevoke), s.RevokeAccessKey)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
