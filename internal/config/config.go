package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	applog "storefront/internal/log"
)

type Config struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	DBDSN          string        `envconfig:"DB_DSN" default:"storefront.db"`
	LogFile        string        `envconfig:"LOG_FILE" default:"./storefront.log"`
	TemplatesDir   string        `envconfig:"TEMPLATES_DIR" default:"./web/templates"`
	PostalBaseURL  string        `envconfig:"POSTAL_BASE_URL" default:"https://viacep.com.br"`
	PostalTimeout  time.Duration `envconfig:"POSTAL_TIMEOUT" default:"5s"`
	PostalCacheTTL time.Duration `envconfig:"POSTAL_CACHE_TTL" default:"24h"`
	SessionIdle    time.Duration `envconfig:"SESSION_IDLE" default:"30m"`
	MessageTTL     time.Duration `envconfig:"MESSAGE_TTL" default:"3s"`
	CookieSecure   bool          `envconfig:"COOKIE_SECURE" default:"false"`

	// Accounts created on start when missing. A blank email skips one.
	SeedAdminEmail string `envconfig:"SEED_ADMIN_EMAIL" default:"admin@storefront.test"`
	SeedClerkEmail string `envconfig:"SEED_CLERK_EMAIL" default:"clerk@storefront.test"`
	SeedPassword   string `envconfig:"SEED_PASSWORD" default:"Passw0rd!"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	applog.Event("config.load", map[string]any{
		"port":         cfg.Port,
		"db_dsn":       cfg.DBDSN,
		"log_file":     cfg.LogFile,
		"postal_url":   cfg.PostalBaseURL,
		"session_idle": cfg.SessionIdle.String(),
	})
	return cfg, nil
}
