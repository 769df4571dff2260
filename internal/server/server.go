package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/outreach/internal/config"
	creditdomain "github.com/smallbiznis/outreach/internal/credit/domain"
	forecastdomain "github.com/smallbiznis/outreach/internal/forecast/domain"
	notificationdomain "github.com/smallbiznis/outreach/internal/notification/domain"
	obslogger "github.com/smallbiznis/outreach/internal/observability/logger"
	obstracing "github.com/smallbiznis/outreach/internal/observability/tracing"
	outreachdomain "github.com/smallbiznis/outreach/internal/outreach/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	return NewEngine(cfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	OutreachSvc     outreachdomain.Service
	CreditSvc       creditdomain.Service
	ForecastSvc     forecastdomain.Service
	NotificationSvc notificationdomain.Service
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	outreachSvc     outreachdomain.Service
	creditSvc       creditdomain.Service
	forecastSvc     forecastdomain.Service
	notificationSvc notificationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		outreachSvc:     p.OutreachSvc,
		creditSvc:       p.CreditSvc,
		forecastSvc:     p.ForecastSvc,
		notificationSvc: p.NotificationSvc,
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

	// -------- Signups --------
	signups := api.Group("/signups")
	signups.POST("/send-invite", s.SendInvite)
	signups.POST("/send-followup", s.SendFollowUp)
	signups.POST("/preview-invite", s.PreviewInvite)
	signups.POST("/preview-followup", s.PreviewFollowUp)
	signups.GET("/credits", s.GetCredits)
	signups.GET("/analysis", s.GetAnalysis)

	// -------- Webhooks --------
	api.POST("/webhooks/new-signup", s.NewSignupWebhook)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
