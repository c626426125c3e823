package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"fieldops-server/internal/config"
	"fieldops-server/internal/domain"
	"fieldops-server/internal/logging"
	"fieldops-server/internal/repository"
	"fieldops-server/internal/service"

	"github.com/sirupsen/logrus"
)

// catalogFile is the seed file layout:
//
//	{"staff": ["ROSSI MARIO"], "activities": ["LETTURE"], "territories": ["VITERBO"]}
type catalogFile map[domain.CatalogKind][]string

func main() {
	catalogPath := flag.String("catalog", "", "JSON file with staff, activities and territories to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	ctx := context.Background()

	db, err := repository.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}

	userRepo, err := repository.NewGormUserRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init user repository")
	}
	auditRepo, err := repository.NewGormAuditRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init audit repository")
	}
	users := service.NewUserService(userRepo, auditRepo, logger)
	if err := users.EnsureAdmin(ctx, cfg.Seed.AdminUsername, cfg.Seed.AdminPassword); err != nil {
		logger.WithError(err).Fatal("Failed to seed admin user")
	}

	if *catalogPath == "" {
		return
	}

	raw, err := os.ReadFile(*catalogPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read catalog file")
	}
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		logger.WithError(err).Fatal("Invalid catalog file")
	}

	catalogRepo, err := repository.NewGormCatalogRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init catalog repository")
	}
	catalog := service.NewCatalogService(catalogRepo)

	for kind, names := range file {
		if _, err := service.ParseCatalogKind(string(kind)); err != nil {
			logger.WithField("kind", kind).Warn("Skipping unknown catalog")
			continue
		}
		created, err := catalog.Seed(ctx, kind, names)
		if err != nil {
			logger.WithError(err).WithField("kind", kind).Fatal("Failed to seed catalog")
		}
		logger.WithFields(logrus.Fields{"kind": kind, "created": created}).Info("Catalog seeded")
	}
}
