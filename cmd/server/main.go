package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldops-server/internal/config"
	"fieldops-server/internal/handler"
	"fieldops-server/internal/logging"
	"fieldops-server/internal/mail"
	"fieldops-server/internal/repository"
	"fieldops-server/internal/service"
	"fieldops-server/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	db, err := repository.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Fatal("Failed to get database handle")
	}

	userRepo, err := repository.NewGormUserRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init user repository")
	}
	catalogRepo, err := repository.NewGormCatalogRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init catalog repository")
	}
	dayRepo, err := repository.NewGormCalendarDayRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init calendar repository")
	}
	assignmentRepo, err := repository.NewGormAssignmentRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init assignment repository")
	}
	auditRepo, err := repository.NewGormAuditRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init audit repository")
	}
	historyRepo := repository.NewGormHistoryRepository(db)
	exportRepo := repository.NewSQLXExportRepository(sqlDB, "sqlite3")

	couch, err := kivik.New("couch", cfg.ObjectStore.URL())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to object store")
	}
	objectStore := repository.NewCouchObjectStore(couch, logger)

	mailer := mail.NewMailService(cfg.SMTP, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	wsManager := websocket.NewManager(cfg.WebSocket, logger)
	go wsManager.Run(ctx)

	realtime := service.NewRealtimeService(wsManager, logger)
	wsManager.SetMessageHandler(realtime)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration, logger)
	userService := service.NewUserService(userRepo, auditRepo, logger)
	catalogService := service.NewCatalogService(catalogRepo)
	calendarService := service.NewCalendarService(dayRepo, assignmentRepo, realtime, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, dayRepo, realtime, logger)
	historyService := service.NewHistoryService(historyRepo, dayRepo, assignmentRepo, auditRepo, realtime, logger)
	exportService := service.NewExportService(exportRepo)
	equipmentService := service.NewEquipmentService(objectStore, mailer, cfg.Alerts, logger)
	hotelService := service.NewHotelService(mailer, auditRepo, cfg.Hotel, logger)
	reportService := service.NewReportService(objectStore, cfg.Reports.Bucket, logger)

	if err := userService.EnsureAdmin(ctx, cfg.Seed.AdminUsername, cfg.Seed.AdminPassword); err != nil {
		logger.WithError(err).Fatal("Failed to seed admin user")
	}

	handlers := &handler.Handlers{
		Auth:       handler.NewAuthHandler(authService, logger),
		User:       handler.NewUserHandler(userService, logger),
		Catalog:    handler.NewCatalogHandler(catalogService, logger),
		Calendar:   handler.NewCalendarHandler(calendarService, logger),
		Assignment: handler.NewAssignmentHandler(assignmentService, logger),
		History:    handler.NewHistoryHandler(historyService, logger),
		Export:     handler.NewExportHandler(exportService, logger),
		Equipment:  handler.NewEquipmentHandler(equipmentService, logger),
		Hotel:      handler.NewHotelHandler(hotelService, logger),
		Report:     handler.NewReportHandler(reportService, logger),
		WebSocket:  handler.NewWebSocketHandler(wsManager, authService, cfg.WebSocket, cfg.CORS.AllowedOrigins, logger),
	}
	r := handler.NewRouter(handlers, authService, cfg, logger)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr": addr,
			"env":  cfg.Server.Env,
		}).Info("Starting fieldops server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	stop()

	if err := sqlDB.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close database")
	}

	logger.Info("Server stopped gracefully")
}
