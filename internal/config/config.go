package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for secstore.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Ingest  IngestConfig
	Query   QueryConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   int // seconds
	WriteTimeout  int // seconds
	MaxUploadSize int64 // maximum upload body size in bytes
}

type StorageConfig struct {
	Backend   string // "local" or "s3"
	LocalPath string
	// S3/MinIO configuration
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // custom endpoint for MinIO (e.g. "http://localhost:9000")
	S3AccessKey string // or AWS_ACCESS_KEY_ID env var
	S3SecretKey string // or AWS_SECRET_ACCESS_KEY env var
	S3UseSSL    bool
	S3PathStyle bool // path-style addressing, required for MinIO
}

type IngestConfig struct {
	ChunkSize  int // rows per chunk file
	SampleSize int // bytes sniffed for format detection
}

type QueryConfig struct {
	MaxConcurrentChunkReads int // bounds parallel chunk fetches during a scan
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from defaults, an optional secstore.toml, and
// SECSTORE_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SECSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("secstore")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/secstore/")
	v.AddConfigPath("$HOME/.secstore/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine, defaults + env apply.
	}

	maxUploadSize, err := ParseSize(v.GetString("server.max_upload_size"))
	if err != nil {
		return nil, fmt.Errorf("invalid server.max_upload_size: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:          v.GetString("server.host"),
			Port:          v.GetInt("server.port"),
			ReadTimeout:   v.GetInt("server.read_timeout"),
			WriteTimeout:  v.GetInt("server.write_timeout"),
			MaxUploadSize: maxUploadSize,
		},
		Storage: StorageConfig{
			Backend:     v.GetString("storage.backend"),
			LocalPath:   v.GetString("storage.local_path"),
			S3Bucket:    v.GetString("storage.s3_bucket"),
			S3Region:    v.GetString("storage.s3_region"),
			S3Endpoint:  v.GetString("storage.s3_endpoint"),
			S3AccessKey: v.GetString("storage.s3_access_key"),
			S3SecretKey: v.GetString("storage.s3_secret_key"),
			S3UseSSL:    v.GetBool("storage.s3_use_ssl"),
			S3PathStyle: v.GetBool("storage.s3_path_style"),
		},
		Ingest: IngestConfig{
			ChunkSize:  v.GetInt("ingest.chunk_size"),
			SampleSize: v.GetInt("ingest.sample_size"),
		},
		Query: QueryConfig{
			MaxConcurrentChunkReads: v.GetInt("query.max_concurrent_chunk_reads"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.Ingest.ChunkSize <= 0 {
		return nil, fmt.Errorf("ingest.chunk_size must be positive, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.SampleSize <= 0 {
		return nil, fmt.Errorf("ingest.sample_size must be positive, got %d", cfg.Ingest.SampleSize)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 120)
	v.SetDefault("server.write_timeout", 120)
	// Session logs can be large; the whole upload is held in memory.
	v.SetDefault("server.max_upload_size", "1GB")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_path", "./data/sessions")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_use_ssl", true)
	v.SetDefault("storage.s3_path_style", false)

	v.SetDefault("ingest.chunk_size", 50000)
	v.SetDefault("ingest.sample_size", 512)

	v.SetDefault("query.max_concurrent_chunk_reads", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// ParseSize parses a human-readable size like "512MB" or "1GB" into bytes.
// A bare number is taken as bytes.
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(strings.ToUpper(sizeStr))
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	units := []struct {
		suffix     string
		multiplier int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, unit := range units {
		if strings.HasSuffix(sizeStr, unit.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(sizeStr, unit.suffix))
			num, err := strconv.ParseFloat(numStr, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size number %q: %w", numStr, err)
			}
			if num < 0 {
				return 0, fmt.Errorf("size must not be negative: %s", sizeStr)
			}
			return int64(num * float64(unit.multiplier)), nil
		}
	}

	num, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", sizeStr, err)
	}
	if num < 0 {
		return 0, fmt.Errorf("size must not be negative: %s", sizeStr)
	}
	return num, nil
}
