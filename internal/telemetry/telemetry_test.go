package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, nil},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, ErrMissingServiceName},
		{"missing service version", func(c *Config) { c.ServiceVersion = "" }, ErrMissingServiceVersion},
		{"negative sample rate", func(c *Config) { c.SampleRate = -0.1 }, ErrInvalidSampleRate},
		{"sample rate above one", func(c *Config) { c.SampleRate = 1.1 }, ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v wrapped in ErrInvalidConfig, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestInitialize(t *testing.T) {
	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.ServiceName = ""

		if _, err := Initialize(context.Background(), cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("disabled signals install nothing", func(t *testing.T) {
		restoreGlobals(t)

		tel, err := Initialize(context.Background(), testConfig())
		if err != nil {
			t.Fatalf("initialize failed: %v", err)
		}

		if tel.TracerProvider() != nil || tel.MeterProvider() != nil {
			t.Error("expected no providers when signals are disabled")
		}
		if tel.Meter("test") == nil {
			t.Error("expected fallback meter")
		}
		if err := tel.Shutdown(context.Background()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("enabled signals install providers and shut down cleanly", func(t *testing.T) {
		restoreGlobals(t)
		cfg := testConfig()
		cfg.EnableTracing = true
		cfg.EnableMetrics = true

		tel, err := Initialize(context.Background(), cfg,
			WithTraceExporter(tracetest.NewNoopExporter()),
			WithMetricExporter(noopMetricExporter{}),
		)
		if err != nil {
			t.Fatalf("initialize failed: %v", err)
		}

		if tel.TracerProvider() == nil || tel.MeterProvider() == nil {
			t.Fatal("expected both providers")
		}
		if _, err := tel.Meter("bookstore").Int64Counter("probe"); err != nil {
			t.Errorf("expected meter to create instruments, got %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{0, "AlwaysOffSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		got := createSampler(tt.rate).Description()
		if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
			t.Errorf("rate %v: expected sampler %q, got %q", tt.rate, tt.want, got)
		}
	}
}
