package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"glowbook/config"
	"glowbook/cron"
	"glowbook/database"
	bookingRepo "glowbook/database/repository/booking"
	expertRepo "glowbook/database/repository/expert"
	"glowbook/handlers"
	"glowbook/routes"
	"glowbook/services/booking"
	"glowbook/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	loc, err := time.LoadLocation(config.AppConfig.BookingTimezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid booking timezone %q: %v", config.AppConfig.BookingTimezone, err)
	}

	// Repositories.
	db := database.DB()
	bkRepo := bookingRepo.NewMongoBookingRepo(db)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := bkRepo.EnsureIndexes(ctx); err != nil {
			cancel()
			logger.Sugar().Fatalf("main: failed to ensure booking indexes: %v", err)
		}
		cancel()
	}
	exRepo := expertRepo.NewMongoExpertRepo(db, utils.GetCacheClient())

	gateway := booking.NewStripeGateway(
		config.AppConfig.StripeKey,
		config.AppConfig.StripeSuccessURL,
		config.AppConfig.StripeCancelURL,
		config.AppConfig.Currency,
		time.Duration(config.AppConfig.GatewayTimeoutSec)*time.Second,
		logger,
	)

	reclaimer := cron.NewReclaimer(logger)

	bookingService := &booking.DefaultBookingService{
		Repo:        bkRepo,
		Experts:     exRepo,
		Gateway:     gateway,
		Holds:       reclaimer,
		Granularity: config.AppConfig.SlotGranularityMin,
		HoldTTL:     time.Duration(config.AppConfig.HoldTTLMin) * time.Minute,
		Horizon:     config.AppConfig.BookingHorizonDays,
		Loc:         loc,
		Logger:      logger,
	}

	reclaimer.Start(bookingService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(cors.New(routes.CORSConfig()))

	bookingHandler := handlers.NewBookingHandler(bookingService, config.AppConfig.StripeWebhookSecret, logger)
	routes.RegisterHealthRoute(router)
	routes.RegisterBookingRoutes(router, bookingHandler)

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
	reclaimer.Shutdown()
	if err := database.CloseDB(ctx); err != nil {
		logger.Sugar().Warnf("main: error closing database: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
