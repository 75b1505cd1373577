package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"concierge/config"
	"concierge/handlers"
	"concierge/middleware"
	"concierge/routes"
	"concierge/services/assistant"
	"concierge/services/booking"
	"concierge/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	utils.InitConversationCache()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RequestIDMiddleware())

	// Conversation store, external collaborators, controller.
	convStore := assistant.NewRedisConversationStore(
		utils.GetConversationCacheClient(),
		time.Duration(config.AppConfig.ConversationTTLMin)*time.Minute,
	)
	gateway := assistant.NewGatewayClient(config.AppConfig.AssistantGatewayURL)
	submitter := booking.NewLeadSubmitter(config.AppConfig.LeadEndpointURL)

	assistantService := assistant.NewService(
		convStore,
		gateway,
		submitter,
		config.AppConfig.LeadSourceTag,
		logger,
	)
	assistantHandler := handlers.NewAssistantHandler(assistantService)

	routes.RegisterRoutes(router, assistantHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
