package instrumentation

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServiceName != "scheduler" {
		t.Errorf("ServiceName = %q, want scheduler", cfg.ServiceName)
	}
	if !cfg.Enabled {
		t.Error("instrumentation should be enabled by default")
	}
	if cfg.MetricsExporter != ExporterPrometheus {
		t.Errorf("MetricsExporter = %q, want prometheus", cfg.MetricsExporter)
	}
	if cfg.TracingExporter != ExporterNone {
		t.Errorf("TracingExporter = %q, want none", cfg.TracingExporter)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "sampling rate above one",
			mutate:  func(c *Config) { c.TraceSamplingRate = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative sampling rate",
			mutate:  func(c *Config) { c.TraceSamplingRate = -0.1 },
			wantErr: true,
		},
		{
			name:    "unknown metrics exporter",
			mutate:  func(c *Config) { c.MetricsExporter = "statsd" },
			wantErr: true,
		},
		{
			name:    "otlp metrics without endpoint",
			mutate:  func(c *Config) { c.MetricsExporter = ExporterOTLP },
			wantErr: true,
		},
		{
			name: "otlp metrics with endpoint",
			mutate: func(c *Config) {
				c.MetricsExporter = ExporterOTLP
				c.OTLPEndpoint = "localhost:4318"
			},
		},
		{
			name:    "otlp tracing without endpoint",
			mutate:  func(c *Config) { c.TracingExporter = ExporterOTLP },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestDisabledProviderIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	provider, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if provider.Enabled() {
		t.Error("provider should report disabled")
	}

	// All recorders must be safe to call on the no-op metrics value.
	ctx := context.Background()
	m := provider.Metrics()
	m.RecordHTTPRequest(ctx, "GET", "/api/availability", 200, 10*time.Millisecond)
	m.AddActiveSessions(ctx, 1)
	m.RecordProviderOperation(ctx, "freebusy", nil, time.Second)
	m.RecordOAuthAttempt(ctx, nil)
	m.RecordBooking(ctx, nil)

	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown of disabled provider failed: %v", err)
	}
}
