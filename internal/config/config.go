package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN      string `yaml:"dsn"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"db"`
	Log    Log `yaml:"log"`
	Stripe struct {
		SecretKey     string `yaml:"secret_key"`
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"stripe"`
	Trigger struct {
		Token string `yaml:"token"`
	} `yaml:"trigger"`
	Checkout struct {
		Currency         string   `yaml:"currency"`
		SuccessURL       string   `yaml:"success_url"`
		CancelURL        string   `yaml:"cancel_url"`
		PortalReturnURL  string   `yaml:"portal_return_url"`
		AllowedCountries []string `yaml:"allowed_countries"`
	} `yaml:"checkout"`
	Orders struct {
		DecrementStock bool `yaml:"decrement_stock"`
	} `yaml:"orders"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled"`
		RPS     float64 `yaml:"rps"`
		Burst   int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Worker struct {
		IntervalSeconds int64 `yaml:"interval_seconds"`
		BatchSize       int   `yaml:"batch_size"`
		GraceSeconds    int64 `yaml:"grace_seconds"`
	} `yaml:"worker"`
}

type Log struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "production"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Output == "file" && cfg.Log.FilePath == "" {
		cfg.Log.FilePath = "logs/phonestore.log"
	}
	if cfg.Checkout.Currency == "" {
		cfg.Checkout.Currency = "eur"
	}
	if cfg.Checkout.PortalReturnURL == "" {
		cfg.Checkout.PortalReturnURL = "http://localhost:3000/account"
	}
	if len(cfg.Checkout.AllowedCountries) == 0 {
		cfg.Checkout.AllowedCountries = []string{"FR", "BE", "CH", "LU", "DE", "ES", "IT", "GB"}
	}
	if cfg.RateLimit.RPS <= 0 {
		cfg.RateLimit.RPS = 10
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.Worker.IntervalSeconds <= 0 {
		cfg.Worker.IntervalSeconds = 60
	}
	if cfg.Worker.BatchSize <= 0 {
		cfg.Worker.BatchSize = 50
	}
	if cfg.Worker.GraceSeconds <= 0 {
		cfg.Worker.GraceSeconds = 120
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		cfg.DB.MaxConns = int32(atoiOr(int(cfg.DB.MaxConns), v))
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		cfg.Log.Output = v
	}
	if v := os.Getenv("LOG_FILE_PATH"); v != "" {
		cfg.Log.FilePath = v
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.Stripe.SecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Stripe.WebhookSecret = v
	}
	if v := os.Getenv("TRIGGER_TOKEN"); v != "" {
		cfg.Trigger.Token = v
	}
	if v := os.Getenv("CHECKOUT_CURRENCY"); v != "" {
		cfg.Checkout.Currency = v
	}
	if v := os.Getenv("CHECKOUT_SUCCESS_URL"); v != "" {
		cfg.Checkout.SuccessURL = v
	}
	if v := os.Getenv("CHECKOUT_CANCEL_URL"); v != "" {
		cfg.Checkout.CancelURL = v
	}
	if v := os.Getenv("CHECKOUT_PORTAL_RETURN_URL"); v != "" {
		cfg.Checkout.PortalReturnURL = v
	}
	if v := os.Getenv("CHECKOUT_ALLOWED_COUNTRIES"); v != "" {
		cfg.Checkout.AllowedCountries = splitCommaList(v)
	}
	if v := os.Getenv("DECREMENT_STOCK"); v != "" {
		cfg.Orders.DecrementStock = boolOr(cfg.Orders.DecrementStock, v)
	}
	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		cfg.RateLimit.Enabled = boolOr(cfg.RateLimit.Enabled, v)
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		cfg.RateLimit.Burst = atoiOr(cfg.RateLimit.Burst, v)
	}
	if v := os.Getenv("WORKER_INTERVAL_SECONDS"); v != "" {
		cfg.Worker.IntervalSeconds = atoi64Or(cfg.Worker.IntervalSeconds, v)
	}
	if v := os.Getenv("WORKER_BATCH_SIZE"); v != "" {
		cfg.Worker.BatchSize = atoiOr(cfg.Worker.BatchSize, v)
	}
	if v := os.Getenv("WORKER_GRACE_SECONDS"); v != "" {
		cfg.Worker.GraceSeconds = atoi64Or(cfg.Worker.GraceSeconds, v)
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func boolOr(fallback bool, v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
