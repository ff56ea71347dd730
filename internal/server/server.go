package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/doorcalc/internal/catalog"
	catalogdomain "github.com/smallbiznis/doorcalc/internal/catalog/domain"
	"github.com/smallbiznis/doorcalc/internal/config"
	"github.com/smallbiznis/doorcalc/internal/customer"
	customerdomain "github.com/smallbiznis/doorcalc/internal/customer/domain"
	"github.com/smallbiznis/doorcalc/internal/document"
	"github.com/smallbiznis/doorcalc/internal/observability"
	obslogger "github.com/smallbiznis/doorcalc/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/doorcalc/internal/observability/metrics"
	"github.com/smallbiznis/doorcalc/internal/observability/tracing"
	"github.com/smallbiznis/doorcalc/internal/order"
	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
	"github.com/smallbiznis/doorcalc/internal/rate"
	ratedomain "github.com/smallbiznis/doorcalc/internal/rate/domain"
	"github.com/smallbiznis/doorcalc/internal/ratelimit"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	rate.Module,
	catalog.Module,
	customer.Module,
	order.Module,
	document.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.Metrics, tp *sdktrace.TracerProvider) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug,
		ErrorClassifier: classifyErrorForLog,
	}))
	var tracerProvider trace.TracerProvider
	if tp != nil {
		tracerProvider = tp
	}
	r.Use(tracing.GinMiddleware(tracerProvider))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.Metrics, tp *sdktrace.TracerProvider) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, tp)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine      *gin.Engine
	cfg         config.Config
	rateSvc     ratedomain.Service
	catalogSvc  catalogdomain.Service
	customerSvc customerdomain.Service
	orderSvc    orderdomain.Service
	documentSvc document.Service
	docLimiter  ratelimit.Limiter
	limitStats  *obsmetrics.RateLimitMetrics
	log         *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	RateSvc     ratedomain.Service
	CatalogSvc  catalogdomain.Service
	CustomerSvc customerdomain.Service
	OrderSvc    orderdomain.Service
	DocumentSvc document.Service
	DocLimiter  *ratelimit.DocumentLimiter
	LimitStats  *obsmetrics.RateLimitMetrics
	Log         *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		rateSvc:     p.RateSvc,
		catalogSvc:  p.CatalogSvc,
		customerSvc: p.CustomerSvc,
		orderSvc:    p.OrderSvc,
		documentSvc: p.DocumentSvc,
		limitStats:  p.LimitStats,
		log:         p.Log.Named("http.server"),
	}
	if p.DocLimiter != nil {
		svc.docLimiter = p.DocLimiter
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/rate", s.GetRate)
	api.PUT("/rate", s.SetRate)
	api.GET("/rate/history", s.ListRateHistory)

	api.POST("/categories", s.CreateCategory)
	api.GET("/categories", s.ListCategories)

	api.POST("/products", s.CreateProduct)
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProductByID)

	api.POST("/additions", s.CreateAddition)
	api.GET("/additions", s.ListAdditions)

	api.POST("/coefficients", s.CreateCoefficient)
	api.GET("/coefficients", s.ListCoefficients)

	api.GET("/applicability", s.GetApplicability)

	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers", s.ListCustomers)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PUT("/customers/:id", s.UpdateCustomer)

	orders := api.Group("/orders")
	{
		orders.POST("", s.CreateOrder)
		orders.GET("", s.ListOrders)
		orders.GET("/:id", s.GetOrder)
		orders.DELETE("/:id", s.DeleteOrder)
		orders.PATCH("/:id/status", s.UpdateOrderStatus)
		orders.PATCH("/:id/completion", s.UpdateOrderCompletion)
		orders.GET("/:id/progress", s.ListOrderProgress)
		orders.PATCH("/:id/customer", s.AssignOrderCustomer)
		orders.PUT("/:id/markup", s.SetOrderMarkup)
		orders.POST("/:id/coefficients", s.BulkAssignCoefficients)
		orders.POST("/:id/recalculate", s.RecalculateOrder)

		orders.POST("/:id/items", s.AddOrderItem)
		orders.PUT("/:id/items/:item_id", s.UpdateOrderItem)
		orders.DELETE("/:id/items/:item_id", s.DeleteOrderItem)

		documents := orders.Group("/:id/documents", ratelimit.GinMiddleware(s.docLimiter, s.limitStats, s.log))
		documents.GET("/quote.pdf", s.GetQuotePDF)
		documents.GET("/detailed.pdf", s.GetDetailedQuotePDF)
		documents.GET("/worksheet.pdf", s.GetWorksheetPDF)
		documents.GET("/worksheet.xlsx", s.GetWorksheetXLSX)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/orders", s.GetOrdersReport)
		reports.GET("/orders.xlsx", ratelimit.GinMiddleware(s.docLimiter, s.limitStats, s.log), s.GetOrdersReportXLSX)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
