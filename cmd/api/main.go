package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/complykit/privacy-comply/internal/application"
	appagent "github.com/complykit/privacy-comply/internal/application/agent"
	appfindings "github.com/complykit/privacy-comply/internal/application/findings"
	apprisks "github.com/complykit/privacy-comply/internal/application/risks"
	appscans "github.com/complykit/privacy-comply/internal/application/scans"
	appusers "github.com/complykit/privacy-comply/internal/application/users"
	"github.com/complykit/privacy-comply/internal/config"
	"github.com/complykit/privacy-comply/internal/domain/connectors"
	aiopenai "github.com/complykit/privacy-comply/internal/infra/ai/openai"
	// register the built-in connectors
	_ "github.com/complykit/privacy-comply/internal/infra/connectors/all"
	mysqlp "github.com/complykit/privacy-comply/internal/infra/db/mysql"
	"github.com/complykit/privacy-comply/internal/infra/httpserver"
	minioStore "github.com/complykit/privacy-comply/internal/infra/storage"
	"github.com/complykit/privacy-comply/internal/middleware"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql connect error: %v", err)
	}
	defer db.Close()

	scanRepo := mysqlp.NewScanRepository(db)
	userRepo := mysqlp.NewUserRepository(db)
	riskRepo := mysqlp.NewRiskRepository(db)
	findingRepo := mysqlp.NewFindingRepository(db)
	alertRepo := mysqlp.NewAlertRepository(db)
	analysisRepo := mysqlp.NewAnalysisRepository(db)
	auditRepo := mysqlp.NewAuditRepository(db)

	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	profiles := make(map[string]appscans.ConnectorProfile, len(cfg.Connectors))
	for name, cc := range cfg.Connectors {
		profiles[name] = appscans.ConnectorProfile{
			Settings: connectors.Settings(cc.Settings),
			Credentials: connectors.Credentials{
				Endpoint:  cc.Credentials.Endpoint,
				AccessKey: cc.Credentials.AccessKey,
				SecretKey: cc.Credentials.SecretKey,
				Token:     cc.Credentials.Token,
				Region:    cc.Credentials.Region,
				UseSSL:    cc.Credentials.UseSSL,
			},
		}
	}

	clock := application.SystemClock{}

	scansSvc := &appscans.Service{
		Repo:      scanRepo,
		Registry:  connectors.Default(),
		Artifacts: store,
		Audit:     auditRepo,
		Profiles:  profiles,
		Clock:     clock,
	}
	usersSvc := &appusers.Service{Repo: userRepo, Audit: auditRepo, Clock: clock}
	risksSvc := &apprisks.Service{Repo: riskRepo, Audit: auditRepo, Clock: clock}
	findingsSvc := &appfindings.Service{
		Repo:   findingRepo,
		Alerts: alertRepo,
		Risks:  riskRepo,
		Audit:  auditRepo,
		Clock:  clock,
	}
	agentSvc := &appagent.Service{
		Client: aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		Repo:   analysisRepo,
		Scans:  scanRepo,
		Clock:  clock,
	}

	handler := httpserver.NewRouter(scansSvc, usersSvc, risksSvc, findingsSvc, agentSvc, httpserver.Options{
		APIKeys: cfg.Auth.APIKeys,
		HealthCheckers: map[string]middleware.HealthChecker{
			"database":     &middleware.DatabaseHealthChecker{DB: db},
			"object_store": &middleware.ObjectStoreHealthChecker{Client: store.Client(), Bucket: cfg.Minio.BucketName},
		},
		RateCapacity: cfg.RateLimit.Capacity,
		RateRefill:   cfg.RateLimit.RefillRate,
		Audit:        auditRepo,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
