package httpapi

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Provider       string
	Model          string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Router struct {
	handler *Handler
	logger  *zap.Logger
	opts    Options
}

func NewRouter(gateway Gateway, logger *zap.Logger, opts Options) (*Router, error) {
	if gateway == nil {
		return nil, errors.New("httpapi: gateway must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		handler: &Handler{
			gateway:  gateway,
			logger:   logger,
			provider: opts.Provider,
			model:    opts.Model,
		},
		logger: logger,
		opts:   opts,
	}, nil
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(CorrelationID())
	router.Use(Logger(r.logger))
	router.Use(Recovery(r.logger))
	router.Use(CORS(r.opts.AllowedOrigins))
	router.Use(Timeout(r.opts.RequestTimeout))

	router.GET("/", r.handler.Root)
	router.GET("/health", r.handler.Health)
	router.POST("/chat", r.handler.Chat)
	router.POST("/analyze", r.handler.Analyze)
	router.POST("/generate-website", r.handler.GenerateWebsite)
	router.POST("/generate-app", r.handler.GenerateApp)

	return router
}
