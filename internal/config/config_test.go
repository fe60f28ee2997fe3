package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.IBIValidMinMS != 300 || cfg.IBIValidMaxMS != 2000 {
		t.Fatalf("unexpected IBI range defaults: %v-%v", cfg.IBIValidMinMS, cfg.IBIValidMaxMS)
	}
	if cfg.MinBeatsPerWindow != 10 {
		t.Fatalf("unexpected min beats default: %d", cfg.MinBeatsPerWindow)
	}
	if cfg.HRVHighFactor != 1.15 {
		t.Fatalf("unexpected hrv factor default: %v", cfg.HRVHighFactor)
	}
	if cfg.LivenessTimeout() <= 0 || cfg.LivenessCheckInterval() <= 0 {
		t.Fatalf("expected positive liveness durations")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("CALIBRATION_WINDOW_MS", "30000")
	t.Setenv("HRV_HIGH_FACTOR", "1.25")
	t.Setenv("LIVENESS_TIMEOUT_MS", "10000")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.CalibrationWindowMS != 30000 {
		t.Fatalf("expected override calibration window")
	}
	if cfg.HRVHighFactor != 1.25 {
		t.Fatalf("expected override hrv factor")
	}
	if cfg.LivenessTimeout().Milliseconds() != 10000 {
		t.Fatalf("expected override liveness timeout")
	}
}
