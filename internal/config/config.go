package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the carbon-sink report service
type Config struct {
	// Server configuration
	Port        string   `env:"PORT,default=8981"`
	CORSOrigins []string `env:"CORS_ORIGINS,default=http://localhost:5173,http://127.0.0.1:5173"`

	// Monitoring backend
	APIBaseURL  string `env:"API_BASE_URL,default=http://localhost:8000/api"`
	APIToken    string `env:"API_TOKEN"`
	APIUsername string `env:"API_USERNAME"`
	APIPassword string `env:"API_PASSWORD"`

	// GCP configuration (optional for local runs)
	GCPProjectID string `env:"GCP_PROJECT_ID"`
	GCSBucket    string `env:"GCS_BUCKET"`

	// Local configuration
	LocalReportsDir string `env:"LOCAL_REPORTS_DIR,default=./reports"`
	WorkDir         string `env:"WORK_DIR"`
	MockupMode      bool   `env:"MOCKUP_MODE,default=false"`

	// Export pipeline timing
	RenderTimeout     time.Duration `env:"RENDER_TIMEOUT,default=1s"`
	ImageLoadTimeout  time.Duration `env:"IMAGE_LOAD_TIMEOUT,default=3s"`
	LayoutSettleDelay time.Duration `env:"LAYOUT_SETTLE_DELAY,default=500ms"`
	RevealSettleDelay time.Duration `env:"REVEAL_SETTLE_DELAY,default=300ms"`

	// PDFFontFile replaces the embedded DejaVu font, e.g. with a CJK-capable TTF
	PDFFontFile string `env:"PDF_FONT_FILE"`

	// Service configuration
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=auto"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	switch c.Environment {
	case "development", "local", "production":
	default:
		return fmt.Errorf("unsupported environment %q", c.Environment)
	}
	if c.Environment == "production" && c.GCSBucket == "" {
		return fmt.Errorf("GCS_BUCKET is required in production")
	}
	if c.APIUsername != "" && c.APIPassword == "" {
		return fmt.Errorf("API_PASSWORD is required when API_USERNAME is set")
	}
	if c.RenderTimeout <= 0 || c.ImageLoadTimeout <= 0 {
		return fmt.Errorf("render and image timeouts must be positive")
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	return nil
}

// UseGCS reports whether reports should be stored in Cloud Storage
func (c *Config) UseGCS() bool {
	return c.Environment == "production" && c.GCSBucket != ""
}
