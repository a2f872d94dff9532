package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prompt-gateway/handler"
	"prompt-gateway/internal/app"
	"prompt-gateway/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(gin.ReleaseMode)

	// ---- Gateway (credential resolved before the first invocation) ----
	gateway, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start gateway", zap.Error(err))
	}

	// ---- Handler ----
	h, err := handler.NewHandler(gateway.Router.SetupRoutes())
	if err != nil {
		logger.Fatal("failed to create handler", zap.Error(err))
	}

	lambda.Start(h.Handle)
}
