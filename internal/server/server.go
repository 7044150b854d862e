package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	auditdomain "github.com/smallbiznis/billable/internal/audit/domain"
	authdomain "github.com/smallbiznis/billable/internal/auth/domain"
	"github.com/smallbiznis/billable/internal/auth/session"
	"github.com/smallbiznis/billable/internal/authorization"
	clientdomain "github.com/smallbiznis/billable/internal/client/domain"
	"github.com/smallbiznis/billable/internal/config"
	dashdomain "github.com/smallbiznis/billable/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/billable/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/billable/internal/ledger/domain"
	"github.com/smallbiznis/billable/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/billable/internal/organization/domain"
	"github.com/smallbiznis/billable/internal/providers/pdf"
	quotedomain "github.com/smallbiznis/billable/internal/quote/domain"
	"github.com/smallbiznis/billable/internal/ratelimit"
	taxdomain "github.com/smallbiznis/billable/internal/tax/domain"
)

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Tracer   *sdktrace.TracerProvider
	Metrics  *metrics.HTTPMetrics
	Bucket   *ratelimit.TokenBucket `optional:"true"`
	Sessions *session.Manager
	Authz    *authorization.Authorizer

	Auth      authdomain.Service
	Orgs      orgdomain.Service
	Clients   clientdomain.Service
	Quotes    quotedomain.Service
	Invoices  invoicedomain.Service
	Tax       taxdomain.Service
	Ledger    ledgerdomain.Service
	Dashboard dashdomain.Service
	Audit     auditdomain.Recorder
	PDF       pdf.Renderer
}

type Server struct {
	cfg      config.Config
	log      *zap.Logger
	engine   *gin.Engine
	sessions *session.Manager

	auth      authdomain.Service
	orgs      orgdomain.Service
	clients   clientdomain.Service
	quotes    quotedomain.Service
	invoices  invoicedomain.Service
	tax       taxdomain.Service
	ledger    ledgerdomain.Service
	dashboard dashdomain.Service
	audit     auditdomain.Recorder
	pdf       pdf.Renderer
}

func New(p Params) *Server {
	if p.Cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       p.Cfg,
		log:       p.Log.Named("server"),
		sessions:  p.Sessions,
		auth:      p.Auth,
		orgs:      p.Orgs,
		clients:   p.Clients,
		quotes:    p.Quotes,
		invoices:  p.Invoices,
		tax:       p.Tax,
		ledger:    p.Ledger,
		dashboard: p.Dashboard,
		audit:     p.Audit,
		pdf:       p.PDF,
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		RequestLogger(s.log),
		Tracing(p.Cfg.AppName),
		p.Metrics.Middleware(),
		ErrorHandlingMiddleware(),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": p.Cfg.AppVersion})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1")
	v1.Use(RateLimit(p.Bucket, p.Sessions))

	v1.POST("/auth/signup", s.signup)
	v1.POST("/auth/signin", s.signin)
	v1.POST("/auth/signout", s.signout)

	authed := v1.Group("")
	authed.Use(Authenticate(p.Auth, p.Sessions))

	authed.GET("/auth/me", s.me)

	org := authed.Group("", Authorize(p.Authz, "organization"))
	org.GET("/organization", s.getOrganization)

	clients := authed.Group("", Authorize(p.Authz, "clients"))
	clients.POST("/clients", s.createClient)
	clients.GET("/clients", s.listClients)
	clients.GET("/clients/:id", s.getClient)
	clients.PUT("/clients/:id", s.updateClient)
	clients.DELETE("/clients/:id", s.deleteClient)

	quotes := authed.Group("", Authorize(p.Authz, "quotes"))
	quotes.POST("/quotes", s.createQuote)
	quotes.GET("/quotes", s.listQuotes)
	quotes.GET("/quotes/:id", s.getQuote)
	quotes.PUT("/quotes/:id", s.updateQuote)
	quotes.DELETE("/quotes/:id", s.deleteQuote)
	quotes.POST("/quotes/:id/send", s.sendQuote)
	quotes.POST("/quotes/:id/accept", s.acceptQuote)
	quotes.POST("/quotes/:id/reject", s.rejectQuote)
	quotes.GET("/quotes/:id/pdf", s.quotePDF)

	invoices := authed.Group("", Authorize(p.Authz, "invoices"))
	invoices.POST("/invoices", s.createInvoice)
	invoices.POST("/invoices/from-quote", s.createInvoiceFromQuote)
	invoices.GET("/invoices", s.listInvoices)
	invoices.GET("/invoices/:id", s.getInvoice)
	invoices.GET("/invoices/:id/pdf", s.invoicePDF)

	payments := authed.Group("", Authorize(p.Authz, "payments"))
	payments.POST("/invoices/:id/payments", s.recordPayment)
	payments.GET("/invoices/:id/payments", s.listPayments)
	payments.PUT("/payments/:id", s.editPayment)
	payments.DELETE("/payments/:id", s.cancelPayment)

	tax := authed.Group("", Authorize(p.Authz, "tax"))
	tax.GET("/tax", s.listTaxDefinitions)
	tax.PUT("/tax/default", s.setDefaultTax)

	ledger := authed.Group("", Authorize(p.Authz, "ledger"))
	ledger.GET("/ledger/entries", s.listLedgerEntries)
	ledger.GET("/ledger/trial-balance", s.trialBalance)

	dashboard := authed.Group("", Authorize(p.Authz, "dashboard"))
	dashboard.GET("/dashboard/summary", s.dashboardSummary)
	dashboard.GET("/dashboard/revenue", s.dashboardRevenue)

	audit := authed.Group("", Authorize(p.Authz, "audit"))
	audit.GET("/audit-logs", s.listAuditLogs)

	s.engine = engine
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func Start(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Provide(metrics.New),
	fx.Invoke(Start),
)
