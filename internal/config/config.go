package config // package config loads application configuration from environment variables

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all runtime configuration values. It is built once by Load at
// process start and handed to the components that need it; nothing mutates it
// afterwards.
type Config struct {
	Env        string `env:"APP_ENV" envDefault:"development"`               // development | production | test
	Port       string `env:"APP_PORT" envDefault:"5000"`                     // HTTP port to listen on
	TimeZone   string `env:"TIMEZONE" envDefault:"UTC"`                      // clock used for calendar buckets
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000"` // allowed browser origin
	BodyLimit  string `env:"BODY_LIMIT" envDefault:"10M"`                    // max request body (echo notation)

	DB        Database
	Auth      Auth
	Log       Log
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Activity  ActivityConfig
}

// Database describes how to reach MySQL. DSN wins when set; otherwise the
// individual parts are assembled.
type Database struct {
	DSN         string `env:"DB_DSN"`
	User        string `env:"DB_USER" envDefault:"root"`
	Pass        string `env:"DB_PASS"`
	Host        string `env:"DB_HOST" envDefault:"localhost"`
	Port        string `env:"DB_PORT" envDefault:"3306"`
	Name        string `env:"DB_NAME" envDefault:"admin_dashboard"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// Auth groups session signing settings.
type Auth struct {
	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	AccessTTL  time.Duration `env:"JWT_EXPIRE" envDefault:"168h"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"12"`
}

// Load reads an optional .env file, then parses the environment into a Config.
// Missing required variables and malformed values are reported as errors.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	switch cfg.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return cfg, fmt.Errorf("invalid APP_ENV %q", cfg.Env)
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return cfg, fmt.Errorf("invalid BCRYPT_COST %d", cfg.Auth.BcryptCost)
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return cfg, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.TimeZone, err)
	}
	cfg.RateLimit = cfg.RateLimit.normalize()
	return cfg, nil
}

// IsDevelopment reports whether raw error details may be exposed to clients.
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// Location returns the configured time zone. Parse has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clock returns the wall clock in the configured zone. Calendar buckets take
// their zone from the times it yields.
func (c Config) Clock() func() time.Time {
	loc := c.Location()
	return func() time.Time { return time.Now().In(loc) }
}

// MySQLDSN returns the data source name for go-sql-driver/mysql. A custom DSN
// keeps its own settings, but every DSN is forced onto UTC for both the
// driver (loc) and the MySQL session (time_zone), so CURRENT_TIMESTAMP
// defaults agree with the UTC bounds computed in Go.
func (d Database) MySQLDSN() string {
	cfg := mysql.NewConfig()
	if d.DSN != "" {
		parsed, err := mysql.ParseDSN(d.DSN)
		if err != nil {
			// sql.Open reports the malformed DSN
			return d.DSN
		}
		cfg = parsed
	} else {
		cfg.User = d.User
		cfg.Passwd = d.Pass
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, d.Port)
		cfg.DBName = d.Name
		_ = cfg.Apply(mysql.Charset("utf8mb4", ""))
		cfg.MultiStatements = true
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = make(map[string]string, 1)
	}
	cfg.Params["time_zone"] = "'+00:00'"
	return cfg.FormatDSN()
}
