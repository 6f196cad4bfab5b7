package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	S3     S3Config
	Poe    PoeConfig
	Crop   CropConfig
	CORS   CORSConfig
	Log    LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds object storage settings for uploaded documents.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// PoeConfig holds AI provider client settings. The API key itself is
// per-field configuration supplied by the host, not a server setting.
type PoeConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	ListTimeout     time.Duration `mapstructure:"list_timeout"`
	ChatTimeout     time.Duration `mapstructure:"chat_timeout"`
	ModelCacheTTL   time.Duration `mapstructure:"model_cache_ttl"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	AutomapMaxToken int           `mapstructure:"automap_max_tokens"`
}

// CropConfig holds image preprocessing settings.
type CropConfig struct {
	Policy        string        `mapstructure:"policy"`
	ScriptPath    string        `mapstructure:"script_path"`
	PythonBin     string        `mapstructure:"python_bin"`
	ProbeTTL      time.Duration `mapstructure:"probe_ttl"`
	MaxPDFPages   int           `mapstructure:"max_pdf_pages"`
	PDFDPI        float64       `mapstructure:"pdf_dpi"`
	OptimizeEdge  int           `mapstructure:"optimize_edge"`
	OptimizeQual  int           `mapstructure:"optimize_quality"`
	FlattenQual   int           `mapstructure:"flatten_quality"`
	TrimThreshold float64       `mapstructure:"trim_threshold"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the GRX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GRX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "gravity")
	v.SetDefault("db.password", "gravity_secret")
	v.SetDefault("db.name", "gravity_extract")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "gravity-extract-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.max_file_size_mb", 10)
	v.SetDefault("s3.presign_expiry", 3600)

	// Poe defaults
	v.SetDefault("poe.base_url", "https://api.poe.com")
	v.SetDefault("poe.list_timeout", "30s")
	v.SetDefault("poe.chat_timeout", "90s")
	v.SetDefault("poe.model_cache_ttl", "1h")
	v.SetDefault("poe.temperature", 0.1)
	v.SetDefault("poe.max_tokens", 2000)
	v.SetDefault("poe.automap_max_tokens", 1000)

	// Crop defaults
	v.SetDefault("crop.policy", "auto")
	v.SetDefault("crop.script_path", "scripts/document_crop.py")
	v.SetDefault("crop.python_bin", "python3")
	v.SetDefault("crop.probe_ttl", "1h")
	v.SetDefault("crop.max_pdf_pages", 10)
	v.SetDefault("crop.pdf_dpi", 150)
	v.SetDefault("crop.optimize_edge", 1024)
	v.SetDefault("crop.optimize_quality", 60)
	v.SetDefault("crop.flatten_quality", 85)
	v.SetDefault("crop.trim_threshold", 0.5)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":            "GRX_SERVER_PORT",
		"server.read_timeout":    "GRX_SERVER_READ_TIMEOUT",
		"server.write_timeout":   "GRX_SERVER_WRITE_TIMEOUT",
		"server.environment":     "GRX_SERVER_ENVIRONMENT",
		"db.host":                "GRX_DB_HOST",
		"db.port":                "GRX_DB_PORT",
		"db.user":                "GRX_DB_USER",
		"db.password":            "GRX_DB_PASSWORD",
		"db.name":                "GRX_DB_NAME",
		"db.sslmode":             "GRX_DB_SSLMODE",
		"db.max_open":            "GRX_DB_MAX_OPEN",
		"db.max_idle":            "GRX_DB_MAX_IDLE",
		"s3.region":              "GRX_S3_REGION",
		"s3.bucket":              "GRX_S3_BUCKET",
		"s3.endpoint":            "GRX_S3_ENDPOINT",
		"s3.access_key":          "GRX_S3_ACCESS_KEY",
		"s3.secret_key":          "GRX_S3_SECRET_KEY",
		"s3.max_file_size_mb":    "GRX_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":      "GRX_S3_PRESIGN_EXPIRY",
		"poe.base_url":           "GRX_POE_BASE_URL",
		"poe.list_timeout":       "GRX_POE_LIST_TIMEOUT",
		"poe.chat_timeout":       "GRX_POE_CHAT_TIMEOUT",
		"poe.model_cache_ttl":    "GRX_POE_MODEL_CACHE_TTL",
		"poe.temperature":        "GRX_POE_TEMPERATURE",
		"poe.max_tokens":         "GRX_POE_MAX_TOKENS",
		"poe.automap_max_tokens": "GRX_POE_AUTOMAP_MAX_TOKENS",
		"crop.policy":            "GRX_CROP_POLICY",
		"crop.script_path":       "GRX_CROP_SCRIPT_PATH",
		"crop.python_bin":        "GRX_CROP_PYTHON_BIN",
		"crop.probe_ttl":         "GRX_CROP_PROBE_TTL",
		"crop.max_pdf_pages":     "GRX_CROP_MAX_PDF_PAGES",
		"crop.pdf_dpi":           "GRX_CROP_PDF_DPI",
		"crop.optimize_edge":     "GRX_CROP_OPTIMIZE_EDGE",
		"crop.optimize_quality":  "GRX_CROP_OPTIMIZE_QUALITY",
		"crop.flatten_quality":   "GRX_CROP_FLATTEN_QUALITY",
		"crop.trim_threshold":    "GRX_CROP_TRIM_THRESHOLD",
		"log.level":              "GRX_LOG_LEVEL",
		"log.format":             "GRX_LOG_FORMAT",
		"cors.allowed_origins":   "GRX_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	for section, target := range map[string]interface{}{
		"server": &cfg.Server,
		"db":     &cfg.DB,
		"s3":     &cfg.S3,
		"poe":    &cfg.Poe,
		"crop":   &cfg.Crop,
		"log":    &cfg.Log,
	} {
		if err := v.UnmarshalKey(section, target); err != nil {
			return nil, fmt.Errorf("unmarshaling %s config: %w", section, err)
		}
	}

	// Comma-separated origins from env need manual splitting
	origins := v.GetString("cors.allowed_origins")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Crop.Policy {
	case "auto", "gd_only", "opencv_only", "disabled":
	default:
		return fmt.Errorf("invalid crop policy %q (want auto|gd_only|opencv_only|disabled)", c.Crop.Policy)
	}
	if c.Crop.MaxPDFPages < 1 {
		return fmt.Errorf("crop.max_pdf_pages must be >= 1")
	}
	if c.S3.Endpoint == "" && os.Getenv("AWS_REGION") != "" {
		c.S3.Region = os.Getenv("AWS_REGION")
	}
	return nil
}
