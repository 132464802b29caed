package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "creditd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalClients = "clients:\n" +
	"  price_feed:\n    base_url: http://price.internal\n" +
	"  approval_process:\n    base_url: http://approval.internal\n" +
	"  ledger:\n    base_url: http://ledger.internal\n" +
	"  outbox:\n    endpoint: http://outbox.internal/events\n    secret: shh\n"

func TestLoadAppliesDefaultIntervals(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: postgres://localhost/credit\n"+minimalClients)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Credit.InterestAccrualCycleJobInterval != time.Minute {
		t.Fatalf("expected default interest accrual interval of 1m, got %s", cfg.Credit.InterestAccrualCycleJobInterval)
	}
	if cfg.Credit.HistoryProjectionJobInterval != 5*time.Minute {
		t.Fatalf("expected default history projection interval of 5m, got %s", cfg.Credit.HistoryProjectionJobInterval)
	}
	if cfg.Credit.CollateralizationBufferPoints != 5 {
		t.Fatalf("expected default collateralization buffer of 5, got %d", cfg.Credit.CollateralizationBufferPoints)
	}
}

func TestLoadRequiresDatabaseDSN(t *testing.T) {
	path := writeConfig(t, minimalClients)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected load to fail without a database dsn")
	}
}

func TestLoadRequiresClientBaseURLs(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: postgres://localhost/credit\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected load to fail without client base urls")
	}
}

func TestLoadRequiresOutboxSecret(t *testing.T) {
	yaml := "database:\n  dsn: postgres://localhost/credit\n" +
		"clients:\n" +
		"  price_feed:\n    base_url: http://price.internal\n" +
		"  approval_process:\n    base_url: http://approval.internal\n" +
		"  ledger:\n    base_url: http://ledger.internal\n" +
		"  outbox:\n    endpoint: http://outbox.internal/events\n"
	path := writeConfig(t, yaml)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected load to fail without an outbox secret")
	}
}

func TestLoadRejectsSubSecondJobIntervals(t *testing.T) {
	yaml := "database:\n  dsn: postgres://localhost/credit\n" +
		"credit:\n  obligation_schedule_job_interval: 100ms\n" +
		minimalClients
	path := writeConfig(t, yaml)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected load to fail for a sub-second job interval")
	}
}

func TestLoadTrimsClientBaseURLs(t *testing.T) {
	yaml := "database:\n  dsn: postgres://localhost/credit\n" +
		"clients:\n" +
		"  price_feed:\n    base_url: \"  http://price.internal  \"\n" +
		"  approval_process:\n    base_url: http://approval.internal\n" +
		"  ledger:\n    base_url: http://ledger.internal\n" +
		"  outbox:\n    endpoint: http://outbox.internal/events\n    secret: shh\n"
	path := writeConfig(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Clients.PriceFeed.BaseURL != "http://price.internal" {
		t.Fatalf("expected trimmed base url, got %q", cfg.Clients.PriceFeed.BaseURL)
	}
}
