package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	envVars := []string{
		"STUDIO_ADDR", "STUDIO_WORKERS", "STUDIO_QUEUE_SIZE",
		"STUDIO_PROCESSING_TIMEOUT", "STUDIO_MAX_ASSET_BYTES",
		"STUDIO_BACKEND_URL", "STUDIO_BACKEND_FIELD", "STUDIO_BACKEND_TIMEOUT",
		"STUDIO_MASTERING_MODE", "STUDIO_SIMULATED_DELAY",
		"STUDIO_STORAGE_PATH", "STUDIO_MAX_UPLOAD_BYTES",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Processing.BackendURL != "http://127.0.0.1:8001/process_audio" {
		t.Errorf("Processing.BackendURL = %q, want default", cfg.Processing.BackendURL)
	}
	if cfg.Processing.BackendField != "target_file" {
		t.Errorf("Processing.BackendField = %q, want target_file", cfg.Processing.BackendField)
	}
	if cfg.Processing.MasteringMode != "remote" {
		t.Errorf("Processing.MasteringMode = %q, want remote", cfg.Processing.MasteringMode)
	}
	if cfg.Processing.SimulatedDelay != 3*time.Second {
		t.Errorf("Processing.SimulatedDelay = %v, want 3s", cfg.Processing.SimulatedDelay)
	}
	if cfg.Pipeline.QueueSize != 100 {
		t.Errorf("Pipeline.QueueSize = %d, want 100", cfg.Pipeline.QueueSize)
	}
	if cfg.StoragePath != "./data" {
		t.Errorf("StoragePath = %q, want ./data", cfg.StoragePath)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STUDIO_ADDR", ":9090")
	t.Setenv("STUDIO_BACKEND_URL", "http://backend:9000/master")
	t.Setenv("STUDIO_MASTERING_MODE", "simulated")
	t.Setenv("STUDIO_SIMULATED_DELAY", "250ms")
	t.Setenv("STUDIO_PROCESSING_TIMEOUT", "90")
	t.Setenv("STUDIO_WORKERS", "8")

	cfg := Load()

	if cfg.Server.Address != ":9090" {
		t.Errorf("Server.Address = %q, want :9090", cfg.Server.Address)
	}
	if cfg.Processing.BackendURL != "http://backend:9000/master" {
		t.Errorf("Processing.BackendURL = %q", cfg.Processing.BackendURL)
	}
	if cfg.Processing.MasteringMode != "simulated" {
		t.Errorf("Processing.MasteringMode = %q, want simulated", cfg.Processing.MasteringMode)
	}
	if cfg.Processing.SimulatedDelay != 250*time.Millisecond {
		t.Errorf("Processing.SimulatedDelay = %v, want 250ms", cfg.Processing.SimulatedDelay)
	}
	if cfg.Pipeline.ProcessingTimeout != 90*time.Second {
		t.Errorf("Pipeline.ProcessingTimeout = %v, want 90s", cfg.Pipeline.ProcessingTimeout)
	}
	if cfg.Pipeline.ProcessingWorkers != 8 {
		t.Errorf("Pipeline.ProcessingWorkers = %d, want 8", cfg.Pipeline.ProcessingWorkers)
	}
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("STUDIO_WORKERS", "many")
	t.Setenv("STUDIO_SIMULATED_DELAY", "soon")

	cfg := Load()

	if cfg.Pipeline.ProcessingWorkers != 4 {
		t.Errorf("Pipeline.ProcessingWorkers = %d, want fallback 4", cfg.Pipeline.ProcessingWorkers)
	}
	if cfg.Processing.SimulatedDelay != 3*time.Second {
		t.Errorf("Processing.SimulatedDelay = %v, want fallback 3s", cfg.Processing.SimulatedDelay)
	}
}
