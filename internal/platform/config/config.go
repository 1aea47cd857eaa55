package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/neiios/dam-project-server/internal/common/security"
)

type Config struct {
	APIPort  string `env:"API_PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTExp    time.Duration `env:"JWT_EXPIRATION" envDefault:"72h"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"conferences"`
	DBSslMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	GeocoderURL       string        `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org"`
	GeocoderUserAgent string        `env:"GEOCODER_USER_AGENT" envDefault:"dam-project-server/1.0"`
	GeocoderRPS       float64       `env:"GEOCODER_RPS" envDefault:"1"`
	GeocoderTimeout   time.Duration `env:"GEOCODER_TIMEOUT" envDefault:"5s"`
	GeocodeCacheTTL   time.Duration `env:"GEOCODE_CACHE_TTL" envDefault:"720h"`

	CityQueueName        string `env:"CITY_QUEUE_NAME" envDefault:"conference_city_backfill"`
	CityBackfillSchedule string `env:"CITY_BACKFILL_SCHEDULE" envDefault:"@every 15m"`
	OrphanSweepSchedule  string `env:"ORPHAN_SWEEP_SCHEDULE"` // empty disables the sweep

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrator"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, relying on environment variables")
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(cfg.JWTSecret) < security.MinSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes long, got %d bytes",
			security.MinSecretLength, len(cfg.JWTSecret))
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return cfg, nil
}

// DBConnStr is a postgres:// URL understood by pgx. Credentials and the
// database name are escaped, so any characters are allowed.
func (c Config) DBConnStr() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSslMode}}.Encode(),
	}
	return u.String()
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c Config) SeedAdmin() bool {
	return c.AdminEmail != ""
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
