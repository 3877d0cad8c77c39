// config.go - Environment-driven configuration.
//
// All settings come from environment variables, read once at startup and
// validated together so the process fails fast with every problem listed
// rather than dying on the first runtime lookup.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every process-wide setting. It is constructed in main and
// injected into the server; nothing reads the environment after startup.
type Config struct {
	Addr string // e.g. ":3000"
	Env  string // "production" in production

	DatabaseURL string
	Secret      string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string

	// MaxUploadBytes caps request bodies on POST /files. Zero means no
	// limit; no default limit is imposed.
	MaxUploadBytes int64
}

// ConfigValidationError is one startup validation failure.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// LoadConfig reads and validates the environment.
//
// Recognized variables: DB_URL (Postgres DSN), SECRET (cookie signing key),
// PORT (listen port, default 3000), APP_ENV ("production" suppresses
// env-file loading in main), S3_ENDPOINT / S3_ACCESS_KEY / S3_SECRET_KEY /
// S3_BUCKET (object store), MAX_UPLOAD_BYTES (optional upload cap).
func LoadConfig() (Config, error) {
	cfg := Config{
		Env:         os.Getenv("APP_ENV"),
		DatabaseURL: os.Getenv("DB_URL"),
		Secret:      os.Getenv("SECRET"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
	}

	var errs []ConfigValidationError
	addErr := func(field, message string) {
		errs = append(errs, ConfigValidationError{Field: field, Message: message})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		addErr("PORT", "must be a valid port number")
	}
	cfg.Addr = ":" + port

	if cfg.DatabaseURL == "" {
		addErr("DB_URL", "is required")
	}
	if cfg.Secret == "" {
		addErr("SECRET", "is required")
	}
	if cfg.S3Endpoint == "" {
		addErr("S3_ENDPOINT", "is required")
	}
	if cfg.S3AccessKey == "" {
		addErr("S3_ACCESS_KEY", "is required")
	}
	if cfg.S3SecretKey == "" {
		addErr("S3_SECRET_KEY", "is required")
	}
	if cfg.S3Bucket == "" {
		addErr("S3_BUCKET", "is required")
	}

	if raw := os.Getenv("MAX_UPLOAD_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			addErr("MAX_UPLOAD_BYTES", "must be a non-negative integer")
		} else {
			cfg.MaxUploadBytes = n
		}
	}

	if len(errs) > 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "configuration invalid with %d error(s):", len(errs))
		for _, e := range errs {
			sb.WriteString("\n  " + e.Error())
		}
		return Config{}, fmt.Errorf("%s", sb.String())
	}

	return cfg, nil
}
