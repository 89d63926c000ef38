package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Client side.
	APIBaseURL         string
	HTTPTimeoutSec     int
	CachePath          string
	RefreshIntervalSec int

	// Dev backend server.
	ListenAddr        string
	DBDriver          string
	DBDSN             string
	DBPath            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	UploadsDir    string
	UploadBaseURL string

	CORSAllowedOrigins []string

	HTTPReadTimeoutSec  int
	HTTPWriteTimeoutSec int
	HTTPIdleTimeoutSec  int

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

func Load() (Config, error) {
	cfg := Config{
		APIBaseURL:             env("API_BASE_URL", "http://localhost:5000"),
		HTTPTimeoutSec:         envInt("HTTP_TIMEOUT_SEC", 15),
		CachePath:              env("CACHE_PATH", "./data/cache.db"),
		RefreshIntervalSec:     envInt("REFRESH_INTERVAL_SEC", 30),
		ListenAddr:             env("LISTEN_ADDR", ":5000"),
		DBDriver:               strings.ToLower(env("APP_DB_DRIVER", "sqlite")),
		DBDSN:                  env("APP_DB_DSN", ""),
		DBPath:                 env("APP_DB_PATH", "./data/internlink.db"),
		DBMaxOpenConns:         envInt("APP_DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:         envInt("APP_DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime:      time.Duration(envInt("APP_DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		UploadsDir:             env("UPLOADS_DIR", "./data/uploads"),
		UploadBaseURL:          env("UPLOAD_BASE_URL", ""),
		CORSAllowedOrigins:     envCSV("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeoutSec:     envInt("HTTP_READ_TIMEOUT_SEC", 10),
		HTTPWriteTimeoutSec:    envInt("HTTP_WRITE_TIMEOUT_SEC", 30),
		HTTPIdleTimeoutSec:     envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
		BootstrapAdminEmail:    env("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: env("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}

	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return Config{}, fmt.Errorf("API_BASE_URL must not be empty")
	}
	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return Config{}, fmt.Errorf("API_BASE_URL must be an http(s) URL")
	}
	if cfg.HTTPTimeoutSec <= 0 {
		return Config{}, fmt.Errorf("HTTP_TIMEOUT_SEC must be positive")
	}
	if cfg.RefreshIntervalSec <= 0 {
		return Config{}, fmt.Errorf("REFRESH_INTERVAL_SEC must be positive")
	}
	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("invalid DB pool config")
	}
	switch cfg.DBDriver {
	case "sqlite":
	case "postgres", "mysql":
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return Config{}, fmt.Errorf("APP_DB_DSN is required for driver %s", cfg.DBDriver)
		}
	default:
		return Config{}, fmt.Errorf("APP_DB_DRIVER must be one of: sqlite, postgres, mysql")
	}
	return cfg, nil
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
