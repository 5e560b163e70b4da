package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server         ServerConfig
	Pipeline       PipelineConfig
	Processing     ProcessingConfig
	StoragePath    string
	MaxUploadBytes int64
}

type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PipelineConfig struct {
	ValidationWorkers int
	ProcessingWorkers int
	ProbeWorkers      int
	StorageWorkers    int
	QueueSize         int
	ProcessingTimeout time.Duration
	MaxAssetBytes     int
}

// ProcessingConfig selects and parameterizes the processing backends.
type ProcessingConfig struct {
	BackendURL     string
	BackendField   string
	BackendTimeout time.Duration
	MasteringMode  string // "remote" or "simulated"
	SimulatedDelay time.Duration
}

// Load reads .env (if present) and the environment on top of defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Config: failed to read .env: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Address:      envStr("STUDIO_ADDR", ":8080"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			ValidationWorkers: 2,
			ProcessingWorkers: envInt("STUDIO_WORKERS", 4),
			ProbeWorkers:      2,
			StorageWorkers:    2,
			QueueSize:         envInt("STUDIO_QUEUE_SIZE", 100),
			ProcessingTimeout: envDuration("STUDIO_PROCESSING_TIMEOUT", 5*time.Minute),
			MaxAssetBytes:     envInt("STUDIO_MAX_ASSET_BYTES", 200<<20),
		},
		Processing: ProcessingConfig{
			BackendURL:     envStr("STUDIO_BACKEND_URL", "http://127.0.0.1:8001/process_audio"),
			BackendField:   envStr("STUDIO_BACKEND_FIELD", "target_file"),
			BackendTimeout: envDuration("STUDIO_BACKEND_TIMEOUT", 2*time.Minute),
			MasteringMode:  envStr("STUDIO_MASTERING_MODE", "remote"),
			SimulatedDelay: envDuration("STUDIO_SIMULATED_DELAY", 3*time.Second),
		},
		StoragePath:    envStr("STUDIO_STORAGE_PATH", "./data"),
		MaxUploadBytes: int64(envInt("STUDIO_MAX_UPLOAD_BYTES", 200<<20)),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("90s") or bare seconds ("90").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
