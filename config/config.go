// Package config loads the creditd service's YAML configuration, in the
// Load/normalize/validate shape used by the teacher's lendingd config
// package.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the credit core's service
// process.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	LogLevel      string          `yaml:"log_level"`
	Database      DatabaseConfig  `yaml:"database"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
	Credit        CreditConfig    `yaml:"credit"`
	Clients       ClientsConfig   `yaml:"clients"`
}

// DatabaseConfig describes the postgres-backed event store connection.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
}

// TelemetryConfig mirrors observability/otel's Config.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	Metrics  bool   `yaml:"metrics"`
	Traces   bool   `yaml:"traces"`
}

// CreditConfig carries the credit module's own runtime knobs (spec.md §9
// Open Questions / SPEC_FULL.md — no runtime config is needed for the
// chart-of-accounts module, only for credit's background jobs).
type CreditConfig struct {
	CustomerActiveCheckEnabled                   bool          `yaml:"customer_active_check_enabled"`
	CollateralizationFromPriceJobInterval        time.Duration `yaml:"collateralization_from_price_job_interval"`
	PendingCollateralizationFromPriceJobInterval time.Duration `yaml:"pending_collateralization_from_price_job_interval"`
	CollateralizationBufferPoints                int64         `yaml:"collateralization_buffer_points"`
	InterestAccrualCycleJobInterval              time.Duration `yaml:"interest_accrual_cycle_job_interval"`
	FacilityMaturityJobInterval                  time.Duration `yaml:"facility_maturity_job_interval"`
	ObligationScheduleJobInterval                time.Duration `yaml:"obligation_schedule_job_interval"`
	HistoryProjectionJobInterval                 time.Duration `yaml:"history_projection_job_interval"`
	RepaymentPlanProjectionJobInterval           time.Duration `yaml:"repayment_plan_projection_job_interval"`
}

// ClientsConfig carries connection settings for the core's external
// collaborators — the price oracle, the governance approval process, the
// double-entry ledger, and the outbound event webhook (spec.md §6).
type ClientsConfig struct {
	PriceFeed       HTTPClientConfig `yaml:"price_feed"`
	ApprovalProcess HTTPClientConfig `yaml:"approval_process"`
	Ledger          HTTPClientConfig `yaml:"ledger"`
	Outbox          OutboxConfig     `yaml:"outbox"`
}

// HTTPClientConfig is the shared shape for the three request/response
// collaborator clients.
type HTTPClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// OutboxConfig configures the async HMAC-signed event webhook.
type OutboxConfig struct {
	Endpoint string `yaml:"endpoint"`
	Secret   string `yaml:"secret"`
}

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddress: ":9090",
		LogLevel:      "info",
		Credit: CreditConfig{
			CustomerActiveCheckEnabled:                    true,
			CollateralizationFromPriceJobInterval:         30 * time.Second,
			PendingCollateralizationFromPriceJobInterval:  30 * time.Second,
			CollateralizationBufferPoints:                 5,
			InterestAccrualCycleJobInterval:               time.Minute,
			FacilityMaturityJobInterval:                   time.Minute,
			ObligationScheduleJobInterval:                 time.Minute,
			HistoryProjectionJobInterval:                  5 * time.Minute,
			RepaymentPlanProjectionJobInterval:            5 * time.Minute,
		},
	}
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":9090"
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.Database.normalize()
	cfg.Credit.normalize()
	cfg.Clients.normalize()
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	if err := cfg.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := cfg.Credit.validate(); err != nil {
		return fmt.Errorf("credit: %w", err)
	}
	if err := cfg.Clients.validate(); err != nil {
		return fmt.Errorf("clients: %w", err)
	}
	return nil
}

func (cfg *DatabaseConfig) normalize() {
	if cfg == nil {
		return
	}
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
}

func (cfg DatabaseConfig) validate() error {
	if cfg.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	return nil
}

func (cfg *CreditConfig) normalize() {
	if cfg == nil {
		return
	}
	if cfg.CollateralizationFromPriceJobInterval <= 0 {
		cfg.CollateralizationFromPriceJobInterval = 30 * time.Second
	}
	if cfg.PendingCollateralizationFromPriceJobInterval <= 0 {
		cfg.PendingCollateralizationFromPriceJobInterval = 30 * time.Second
	}
	if cfg.CollateralizationBufferPoints <= 0 {
		cfg.CollateralizationBufferPoints = 5
	}
	if cfg.InterestAccrualCycleJobInterval <= 0 {
		cfg.InterestAccrualCycleJobInterval = time.Minute
	}
	if cfg.FacilityMaturityJobInterval <= 0 {
		cfg.FacilityMaturityJobInterval = time.Minute
	}
	if cfg.ObligationScheduleJobInterval <= 0 {
		cfg.ObligationScheduleJobInterval = time.Minute
	}
	if cfg.HistoryProjectionJobInterval <= 0 {
		cfg.HistoryProjectionJobInterval = 5 * time.Minute
	}
	if cfg.RepaymentPlanProjectionJobInterval <= 0 {
		cfg.RepaymentPlanProjectionJobInterval = 5 * time.Minute
	}
}

func (cfg CreditConfig) validate() error {
	if cfg.CollateralizationFromPriceJobInterval < time.Second {
		return fmt.Errorf("collateralization_from_price_job_interval must be at least 1s")
	}
	if cfg.PendingCollateralizationFromPriceJobInterval < time.Second {
		return fmt.Errorf("pending_collateralization_from_price_job_interval must be at least 1s")
	}
	if cfg.InterestAccrualCycleJobInterval < time.Second {
		return fmt.Errorf("interest_accrual_cycle_job_interval must be at least 1s")
	}
	if cfg.FacilityMaturityJobInterval < time.Second {
		return fmt.Errorf("facility_maturity_job_interval must be at least 1s")
	}
	if cfg.ObligationScheduleJobInterval < time.Second {
		return fmt.Errorf("obligation_schedule_job_interval must be at least 1s")
	}
	if cfg.HistoryProjectionJobInterval < time.Second {
		return fmt.Errorf("history_projection_job_interval must be at least 1s")
	}
	if cfg.RepaymentPlanProjectionJobInterval < time.Second {
		return fmt.Errorf("repayment_plan_projection_job_interval must be at least 1s")
	}
	return nil
}

func (cfg *HTTPClientConfig) normalize(defaultTimeout time.Duration) {
	if cfg == nil {
		return
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
}

func (cfg HTTPClientConfig) validate(name string) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("%s: base_url is required", name)
	}
	return nil
}

func (cfg *ClientsConfig) normalize() {
	if cfg == nil {
		return
	}
	cfg.PriceFeed.normalize(5 * time.Second)
	cfg.ApprovalProcess.normalize(10 * time.Second)
	cfg.Ledger.normalize(10 * time.Second)
	cfg.Outbox.Endpoint = strings.TrimSpace(cfg.Outbox.Endpoint)
}

func (cfg ClientsConfig) validate() error {
	if err := cfg.PriceFeed.validate("price_feed"); err != nil {
		return err
	}
	if err := cfg.ApprovalProcess.validate("approval_process"); err != nil {
		return err
	}
	if err := cfg.Ledger.validate("ledger"); err != nil {
		return err
	}
	if cfg.Outbox.Endpoint == "" {
		return fmt.Errorf("outbox: endpoint is required")
	}
	if cfg.Outbox.Secret == "" {
		return fmt.Errorf("outbox: secret is required")
	}
	return nil
}
