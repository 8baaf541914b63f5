package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/smallbiznis/berair/internal/auth/domain"
	"github.com/smallbiznis/berair/internal/authorization"
	billingdomain "github.com/smallbiznis/berair/internal/billing/domain"
	"github.com/smallbiznis/berair/internal/config"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"github.com/smallbiznis/berair/internal/observability"
	obslogger "github.com/smallbiznis/berair/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/berair/internal/observability/metrics"
	obstracing "github.com/smallbiznis/berair/internal/observability/tracing"
	"github.com/smallbiznis/berair/internal/providers/pdf"
	reportdomain "github.com/smallbiznis/berair/internal/report/domain"
	settingdomain "github.com/smallbiznis/berair/internal/setting/domain"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	authsvc    authdomain.Service
	authzSvc   authorization.Service
	userSvc    userdomain.Service
	meterSvc   meterdomain.Service
	billingSvc billingdomain.Service
	settingSvc settingdomain.Service
	reportSvc  reportdomain.Service
	pdf        pdf.Provider
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Authsvc    authdomain.Service
	AuthzSvc   authorization.Service
	UserSvc    userdomain.Service
	MeterSvc   meterdomain.Service
	BillingSvc billingdomain.Service
	SettingSvc settingdomain.Service
	ReportSvc  reportdomain.Service
	PDF        pdf.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		authsvc:    p.Authsvc,
		authzSvc:   p.AuthzSvc,
		userSvc:    p.UserSvc,
		meterSvc:   p.MeterSvc,
		billingSvc: p.BillingSvc,
		settingSvc: p.SettingSvc,
		reportSvc:  p.ReportSvc,
		pdf:        p.PDF,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.AuthRequired(), s.Logout)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Public lookup fed by the meter QR scanner.
	api.GET("/readings/check", s.CheckReadings)

	authed := api.Group("", s.AuthRequired())

	me := authed.Group("/me")
	{
		me.GET("", s.Me)
		me.GET("/bills", s.MyBills)
	}

	readings := authed.Group("/readings")
	{
		readings.GET("", s.authorize(authorization.ObjectReading, authorization.ActionReadingView), s.ListReadings)
		readings.POST("", s.authorize(authorization.ObjectReading, authorization.ActionReadingCreate), s.CreateReading)
		readings.PATCH("/:id", s.authorize(authorization.ObjectReading, authorization.ActionReadingCorrect), s.CorrectReading)
		readings.GET("/:id/bill", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetReadingBill)
		readings.GET("/:id/invoice.pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.DownloadInvoice)
	}

	payments := authed.Group("/payments")
	{
		payments.PUT("", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRecord), s.RecordPayment)
		payments.GET("/:id/receipt.pdf", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentReceipt), s.DownloadReceipt)
	}

	price := authed.Group("/water-price")
	{
		price.GET("", s.authorize(authorization.ObjectWaterPrice, authorization.ActionWaterPriceView), s.GetWaterPrice)
		price.PUT("", s.authorize(authorization.ObjectWaterPrice, authorization.ActionWaterPriceUpdate), s.UpdateWaterPrice)
	}

	users := authed.Group("/users")
	{
		users.GET("", s.authorize(authorization.ObjectUser, authorization.ActionUserView), s.ListUsers)
		users.POST("", s.authorize(authorization.ObjectUser, authorization.ActionUserCreate), s.CreateUser)
		users.GET("/search", s.authorize(authorization.ObjectUser, authorization.ActionUserSearch), s.SearchUsers)
	}

	reports := authed.Group("/reports")
	{
		reports.GET("", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.GetReport)
		reports.GET("/dashboard", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.GetDashboard)
		reports.GET("/summaries", s.authorize(authorization.ObjectReport, authorization.ActionReportSummary), s.ListSummaries)
	}
}
