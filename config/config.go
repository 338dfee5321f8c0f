package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"root"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"redbus_db"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	TableName        string `env:"TABLE_NAME" envDefault:"bus_routes"`

	EntryURL        string `env:"ENTRY_URL" envDefault:"https://www.redbus.in/"`
	ChromeBin       string `env:"CHROME_BIN"`
	Headless        bool   `env:"HEADLESS" envDefault:"true"`
	MaxAgencies     int    `env:"MAX_AGENCIES" envDefault:"10"`
	MaxScrollProbes int    `env:"MAX_SCROLL_PROBES" envDefault:"50"`

	WaitTimeout        time.Duration `env:"WAIT_TIMEOUT" envDefault:"10s"`
	ShortWaitTimeout   time.Duration `env:"SHORT_WAIT_TIMEOUT" envDefault:"5s"`
	AgencySettleDelay  time.Duration `env:"AGENCY_SETTLE_DELAY" envDefault:"2s"`
	RouteSettleDelay   time.Duration `env:"ROUTE_SETTLE_DELAY" envDefault:"10s"`
	ScrollStepDelay    time.Duration `env:"SCROLL_STEP_DELAY" envDefault:"1s"`
	NavigateIntervalMs int           `env:"NAVIGATE_INTERVAL_MS" envDefault:"1000"`

	// ReachingDateYear is applied to day-month arrival labels; 0 means the
	// year of the run.
	ReachingDateYear int `env:"REACHING_DATE_YEAR" envDefault:"0"`

	RawCSVPath string `env:"RAW_CSV_PATH" envDefault:"./output/raw_bus_listings.csv"`
	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// TargetYear resolves the year used for day-month arrival labels.
func (c *Config) TargetYear(now time.Time) int {
	if c.ReachingDateYear > 0 {
		return c.ReachingDateYear
	}
	return now.Year()
}
