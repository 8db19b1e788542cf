package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	// External services the department app proxies to.
	LabHost      string `mapstructure:"LAB_HOST"`
	ImagingHost  string `mapstructure:"IMAGING_HOST"`
	SharedAPIKey string `mapstructure:"SHARED_API_KEY"`

	// Local storage for downloaded artifacts and the order history ledger.
	DownloadDir string `mapstructure:"DOWNLOAD_DIR"`
	HistoryPath string `mapstructure:"HISTORY_PATH"`

	// Polling cadence for asynchronous external orders.
	PollInterval time.Duration `mapstructure:"POLL_INTERVAL"`
	PollTimeout  time.Duration `mapstructure:"POLL_TIMEOUT"`

	// DEPARTMENT_KEYS maps inbound API credentials to department names,
	// formatted as "key1=dept1,key2=dept2".
	DepartmentKeys string   `mapstructure:"DEPARTMENT_KEYS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("DOWNLOAD_DIR", "downloads")
	v.SetDefault("HISTORY_PATH", "downloads/order_history.json")
	v.SetDefault("POLL_INTERVAL", "3s")
	v.SetDefault("POLL_TIMEOUT", "5m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_TTL")
	v.BindEnv("LAB_HOST")
	v.BindEnv("IMAGING_HOST")
	v.BindEnv("SHARED_API_KEY")
	v.BindEnv("DOWNLOAD_DIR")
	v.BindEnv("HISTORY_PATH")
	v.BindEnv("POLL_INTERVAL")
	v.BindEnv("POLL_TIMEOUT")
	v.BindEnv("DEPARTMENT_KEYS")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: An empty JWT_SECRET falls back to a per-process random key.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// the JWT secret and both external service hosts must be configured.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV is not development")
	}
	if c.LabHost == "" {
		return fmt.Errorf("LAB_HOST is required")
	}
	if c.ImagingHost == "" {
		return fmt.Errorf("IMAGING_HOST is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.PollTimeout < c.PollInterval {
		return fmt.Errorf("POLL_TIMEOUT (%s) must not be shorter than POLL_INTERVAL (%s)", c.PollTimeout, c.PollInterval)
	}
	return nil
}

// DepartmentKeyMap parses DEPARTMENT_KEYS into a credential-to-department map.
// Malformed pairs are skipped.
func (c *Config) DepartmentKeyMap() map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(c.DepartmentKeys, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
