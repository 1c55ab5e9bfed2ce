package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ServiceName != "kansatsu" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "kansatsu")
	}
	if cfg.ServiceVersion != "1.0.0" {
		t.Errorf("ServiceVersion = %q, want %q", cfg.ServiceVersion, "1.0.0")
	}
	if cfg.DashboardURL != "http://127.0.0.1:8050/update" {
		t.Errorf("DashboardURL = %q", cfg.DashboardURL)
	}
	if cfg.DashboardTimeout != 500*time.Millisecond {
		t.Errorf("DashboardTimeout = %v, want 500ms", cfg.DashboardTimeout)
	}
	if cfg.NERServiceURL != "" {
		t.Errorf("NERServiceURL = %q, want empty", cfg.NERServiceURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KANSATSU_SERVICE_NAME", "physio-assistant")
	t.Setenv("KANSATSU_SERVICE_VERSION", "2.3.1")
	t.Setenv("KANSATSU_DASHBOARD_URL", "http://dash.internal:9000/update")
	t.Setenv("KANSATSU_DASHBOARD_TIMEOUT", "250ms")
	t.Setenv("KANSATSU_NER_URL", "http://localhost:8060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ServiceName != "physio-assistant" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "2.3.1" {
		t.Errorf("ServiceVersion = %q", cfg.ServiceVersion)
	}
	if cfg.DashboardURL != "http://dash.internal:9000/update" {
		t.Errorf("DashboardURL = %q", cfg.DashboardURL)
	}
	if cfg.DashboardTimeout != 250*time.Millisecond {
		t.Errorf("DashboardTimeout = %v", cfg.DashboardTimeout)
	}
	if cfg.NERServiceURL != "http://localhost:8060" {
		t.Errorf("NERServiceURL = %q", cfg.NERServiceURL)
	}
}

func TestLoadEmptyDashboardURLDisablesSink(t *testing.T) {
	// Explicitly set-but-empty means "no dashboard", not "use the default".
	t.Setenv("KANSATSU_DASHBOARD_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DashboardURL != "" {
		t.Errorf("DashboardURL = %q, want empty", cfg.DashboardURL)
	}
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	cfg := Config{ServiceName: "x", DashboardTimeout: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero DashboardTimeout")
	}
}
