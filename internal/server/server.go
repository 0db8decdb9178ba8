package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/TD-Producoes/revshare-sub001/internal/apikey/domain"
	attributiondomain "github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/config"
	webhookdomain "github.com/TD-Producoes/revshare-sub001/internal/webhook/domain"
)

type Params struct {
	fx.In

	Engine      *gin.Engine
	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	WebhookSvc  webhookdomain.Service
	Attribution attributiondomain.Service
	APIKeys     apikeydomain.Repository
}

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	webhookSvc  webhookdomain.Service
	attribution attributiondomain.Service
	apiKeys     apikeydomain.Repository
	claimLimit  *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		engine:      p.Engine,
		db:          p.DB,
		log:         p.Log.Named("server"),
		cfg:         p.Cfg,
		webhookSvc:  p.WebhookSvc,
		attribution: p.Attribution,
		apiKeys:     p.APIKeys,
		claimLimit:  newRateLimiter(p.Cfg.ClaimRateLimit, p.Cfg.ClaimRateWindow),
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)

	api := s.engine.Group("/api")
	api.POST("/coupons/claim", s.APIKeyRequired(), s.ClaimCoupon)
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
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
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterRoutes()
	}),
	fx.Invoke(RunHTTP),
)
