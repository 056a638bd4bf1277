package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the config file location, overridable with CONFIG_PATH.
var ConfigPath = configPathFromEnv()

func configPathFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("CONFIG_PATH")); v != "" {
		return v
	}
	return "config.yaml"
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port               string   `yaml:"port"`
	LogLevel           string   `yaml:"logLevel"`
	DatabaseURL        string   `yaml:"databaseURL"`
	RedisAddr          string   `yaml:"redisAddr"`
	RedisPassword      string   `yaml:"redisPassword"`
	AccessTokenSecret  string   `yaml:"accessTokenSecret"`
	RefreshTokenSecret string   `yaml:"refreshTokenSecret"`
	AccessTokenTTL     string   `yaml:"accessTokenTTL"`
	RefreshTokenTTL    string   `yaml:"refreshTokenTTL"`
	JWTIssuer          string   `yaml:"jwtIssuer"`
	JWTAudience        string   `yaml:"jwtAudience"`
	JWTLeeway          string   `yaml:"jwtLeeway"`
	CookieSecure       bool     `yaml:"cookieSecure"`
	ResetTokenTTL      string   `yaml:"resetTokenTTL"`
	FrontendURL        string   `yaml:"frontendURL"`
	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`
	TrustedProxies     []string `yaml:"trustedProxies"`
	JobViewTTL         string   `yaml:"jobViewTTL"`

	MailDriver    string `yaml:"mailDriver"`
	SMTPHost      string `yaml:"smtpHost"`
	SMTPPort      int    `yaml:"smtpPort"`
	SMTPUsername  string `yaml:"smtpUsername"`
	SMTPPassword  string `yaml:"smtpPassword"`
	MailFrom      string `yaml:"mailFrom"`
	AMQPURL       string `yaml:"amqpURL"`
	AMQPMailQueue string `yaml:"amqpMailQueue"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`
	ResumeURLTTL   string `yaml:"resumeURLTTL"`

	ExpirySweepSchedule string `yaml:"expirySweepSchedule"`
}

// Durations are the parsed duration settings, with defaults applied.
type Durations struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	JWTLeeway       time.Duration
	ResetTokenTTL   time.Duration
	JobViewTTL      time.Duration
	ResumeURLTTL    time.Duration
}

// Load reads config from path (defaults to ConfigPath) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	str := map[string]*string{
		"PORT":                  &cfg.Port,
		"LOG_LEVEL":             &cfg.LogLevel,
		"DATABASE_URL":          &cfg.DatabaseURL,
		"REDIS_ADDR":            &cfg.RedisAddr,
		"REDIS_PASSWORD":        &cfg.RedisPassword,
		"ACCESS_TOKEN_SECRET":   &cfg.AccessTokenSecret,
		"REFRESH_TOKEN_SECRET":  &cfg.RefreshTokenSecret,
		"ACCESS_TOKEN_TTL":      &cfg.AccessTokenTTL,
		"REFRESH_TOKEN_TTL":     &cfg.RefreshTokenTTL,
		"JWT_ISSUER":            &cfg.JWTIssuer,
		"JWT_AUDIENCE":          &cfg.JWTAudience,
		"JWT_LEEWAY":            &cfg.JWTLeeway,
		"RESET_TOKEN_TTL":       &cfg.ResetTokenTTL,
		"FRONTEND_URL":          &cfg.FrontendURL,
		"JOB_VIEW_TTL":          &cfg.JobViewTTL,
		"MAIL_DRIVER":           &cfg.MailDriver,
		"SMTP_HOST":             &cfg.SMTPHost,
		"SMTP_USERNAME":         &cfg.SMTPUsername,
		"SMTP_PASSWORD":         &cfg.SMTPPassword,
		"MAIL_FROM":             &cfg.MailFrom,
		"AMQP_URL":              &cfg.AMQPURL,
		"AMQP_MAIL_QUEUE":       &cfg.AMQPMailQueue,
		"MINIO_ENDPOINT":        &cfg.MinioEndpoint,
		"MINIO_ACCESS_KEY":      &cfg.MinioAccessKey,
		"MINIO_SECRET_KEY":      &cfg.MinioSecretKey,
		"MINIO_BUCKET":          &cfg.MinioBucket,
		"RESUME_URL_TTL":        &cfg.ResumeURLTTL,
		"EXPIRY_SWEEP_SCHEDULE": &cfg.ExpirySweepSchedule,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.SMTPPort = n
		}
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.CookieSecure = b
		}
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AccessTokenTTL == "" {
		cfg.AccessTokenTTL = "15m"
	}
	if cfg.RefreshTokenTTL == "" {
		cfg.RefreshTokenTTL = "168h"
	}
	if cfg.ResetTokenTTL == "" {
		cfg.ResetTokenTTL = "15m"
	}
	if cfg.JobViewTTL == "" {
		cfg.JobViewTTL = "1h"
	}
	if cfg.ResumeURLTTL == "" {
		cfg.ResumeURLTTL = "15m"
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:5173"
	}
	if cfg.AMQPMailQueue == "" {
		cfg.AMQPMailQueue = "jobboard.mail"
	}
	if cfg.ExpirySweepSchedule == "" {
		cfg.ExpirySweepSchedule = "@every 10m"
	}
	cfg.MailDriver = strings.ToLower(strings.TrimSpace(cfg.MailDriver))
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for token revocation and view tracking")
	}
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return errors.New("config: accessTokenSecret and refreshTokenSecret are required")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return errors.New("config: accessTokenSecret and refreshTokenSecret must differ")
	}
	switch cfg.MailDriver {
	case "":
	case "smtp":
		if strings.TrimSpace(cfg.SMTPHost) == "" || strings.TrimSpace(cfg.MailFrom) == "" {
			return errors.New("config: smtpHost and mailFrom are required for mailDriver smtp")
		}
	case "amqp":
		if strings.TrimSpace(cfg.AMQPURL) == "" {
			return errors.New("config: amqpURL is required for mailDriver amqp")
		}
	default:
		return fmt.Errorf("config: unknown mailDriver %q (want smtp or amqp)", cfg.MailDriver)
	}
	if cfg.MinioEndpoint != "" && cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required when minioEndpoint is set")
	}
	if _, err := cfg.ParseDurations(); err != nil {
		return err
	}
	return nil
}

// ParseDurations parses every duration setting.
func (c FileConfig) ParseDurations() (Durations, error) {
	var (
		d   Durations
		err error
	)
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"accessTokenTTL", c.AccessTokenTTL, &d.AccessTokenTTL},
		{"refreshTokenTTL", c.RefreshTokenTTL, &d.RefreshTokenTTL},
		{"jwtLeeway", c.JWTLeeway, &d.JWTLeeway},
		{"resetTokenTTL", c.ResetTokenTTL, &d.ResetTokenTTL},
		{"jobViewTTL", c.JobViewTTL, &d.JobViewTTL},
		{"resumeURLTTL", c.ResumeURLTTL, &d.ResumeURLTTL},
	}
	for _, f := range fields {
		if *f.dst, err = ParseDuration(f.name, f.raw); err != nil {
			return Durations{}, err
		}
	}
	return d, nil
}

// ParseDuration parses an optional duration string. Empty means zero.
func ParseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s duration: %w", field, err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", field)
	}
	return dur, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
