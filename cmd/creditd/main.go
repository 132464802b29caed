// Command creditd runs the credit core as a standalone service: it owns no
// network API of its own (spec.md §1 Non-goals) but keeps the event store
// migrated, runs its background sweeps and projection jobs, and exposes
// Prometheus metrics for scraping. The stream subscribers in
// core/credit/jobs are not started here. Wiring order follows the
// teacher's services/otc-gateway and services/lendingd entrypoints: env +
// structured logging, config, telemetry, database, collaborators, service,
// jobs, signal-based graceful shutdown.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/HonestMajority/lana-bank/config"
	"github.com/HonestMajority/lana-bank/core/credit"
	"github.com/HonestMajority/lana-bank/core/credit/clients"
	"github.com/HonestMajority/lana-bank/core/credit/jobs"
	"github.com/HonestMajority/lana-bank/core/eventstore"
	"github.com/HonestMajority/lana-bank/core/obligation"
	"github.com/HonestMajority/lana-bank/core/projections"
	"github.com/HonestMajority/lana-bank/observability/logging"
	telemetry "github.com/HonestMajority/lana-bank/observability/otel"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config/creditd.yaml", "path to creditd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CREDITD_ENV"))
	logger := logging.Setup("creditd", env)

	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "creditd",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if err := migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	proposals := credit.NewProposalStore(db)
	pendingFacilities := credit.NewPendingFacilityStore(db)
	facilities := credit.NewFacilityStore(db)
	obligations := obligation.NewStore(db)

	priceFeed, err := clients.NewPriceFeedClient(clients.PriceFeedConfig{
		BaseURL: cfg.Clients.PriceFeed.BaseURL,
		APIKey:  cfg.Clients.PriceFeed.APIKey,
		Timeout: cfg.Clients.PriceFeed.Timeout,
	})
	if err != nil {
		log.Fatalf("configure price feed client: %v", err)
	}
	approvalProcess, err := clients.NewApprovalProcessClient(clients.ApprovalProcessConfig{
		BaseURL: cfg.Clients.ApprovalProcess.BaseURL,
		APIKey:  cfg.Clients.ApprovalProcess.APIKey,
		Timeout: cfg.Clients.ApprovalProcess.Timeout,
	})
	if err != nil {
		log.Fatalf("configure approval process client: %v", err)
	}
	ledger, err := clients.NewLedgerHTTPClient(clients.LedgerClientConfig{
		BaseURL: cfg.Clients.Ledger.BaseURL,
		APIKey:  cfg.Clients.Ledger.APIKey,
		Timeout: cfg.Clients.Ledger.Timeout,
	})
	if err != nil {
		log.Fatalf("configure ledger client: %v", err)
	}
	outbox, err := clients.NewOutboxPublisher(clients.OutboxPublisherConfig{
		Endpoint: cfg.Clients.Outbox.Endpoint,
		Secret:   []byte(cfg.Clients.Outbox.Secret),
	})
	if err != nil {
		log.Fatalf("configure outbox publisher: %v", err)
	}
	defer outbox.Close()

	svc := &credit.Service{
		Proposals:         proposals,
		PendingFacilities: pendingFacilities,
		Facilities:        facilities,
		Obligations:       obligations,
		Ledger:            ledger,
		Prices:            priceFeed,
		Approval:          approvalProcess,
		Publish:           outbox,
	}

	historyProjector := projections.NewHistoryProjector(eventstore.NewBlobStore(db, projections.HistoryProjectionName))
	repaymentPlanProjector := projections.NewRepaymentPlanProjector(eventstore.NewBlobStore(db, projections.RepaymentPlanProjectionName))

	priceLimiter := rate.NewLimiter(rate.Limit(5), 1)
	pendingPriceLimiter := rate.NewLimiter(rate.Limit(5), 1)

	runners := []*jobs.IntervalRunner{
		jobs.NewInterestAccrualCycleJob(svc, facilities, cfg.Credit.InterestAccrualCycleJobInterval, logger),
		jobs.NewFacilityMaturityJob(svc, facilities, cfg.Credit.FacilityMaturityJobInterval, logger),
		jobs.NewCollateralizationFromPriceJob(svc, facilities, cfg.Credit.CollateralizationFromPriceJobInterval, priceLimiter, logger),
		jobs.NewPendingCollateralizationFromPriceJob(svc, pendingFacilities, cfg.Credit.PendingCollateralizationFromPriceJobInterval, pendingPriceLimiter, logger),
		jobs.NewObligationScheduleJob(svc, obligations, cfg.Credit.ObligationScheduleJobInterval, logger),
		jobs.NewHistoryProjectionJob(facilities, facilities, obligations, historyProjector, cfg.Credit.HistoryProjectionJobInterval, logger),
		jobs.NewRepaymentPlanProjectionJob(facilities, facilities, obligations, repaymentPlanProjector, cfg.Credit.RepaymentPlanProjectionJobInterval, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, runner := range runners {
		wg.Add(1)
		go func(r *jobs.IntervalRunner) {
			defer wg.Done()
			r.Start(ctx)
		}(runner)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: cfg.ListenAddress, Handler: mux}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("creditd listening", "addr", cfg.ListenAddress)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	stop()
	wg.Wait()
}

func migrate(db *gorm.DB) error {
	if err := eventstore.AutoMigrate(db); err != nil {
		return err
	}
	if err := credit.AutoMigrateOpenFacilityIndex(db); err != nil {
		return err
	}
	if err := credit.AutoMigrateOpenPendingIndex(db); err != nil {
		return err
	}
	if err := obligation.AutoMigrateScheduleIndex(db); err != nil {
		return err
	}
	return nil
}
