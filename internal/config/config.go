package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-warehouse-api/internal/warehouse"
)

// DefaultTable is the forecast table read by GET /weather.
const DefaultTable = "TEST.PUBLIC.WeatherForecast_14Day"

type AppConfig struct {
	Port string `validate:"required,numeric"`

	// ConnectionName selects the profile in ConnectionsFile.
	ConnectionName  string `validate:"required"`
	ConnectionsFile string

	// ForecastTable is a <database>.<schema>.<table> reference.
	ForecastTable string `validate:"required,tableref"`

	QueryTimeout   time.Duration `validate:"gte=0"` // 0 = no timeout
	ConnectOnStart bool

	// Warehouse probe cadence and history retention.
	ProbeInterval   time.Duration `validate:"gte=0"` // 0 = disabled
	ProbeMaxHistory int           `validate:"gte=0"` // 0 = unlimited
	ProbeMaxAge     time.Duration `validate:"gte=0"` // 0 = unlimited

	LogLevel string `validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("tableref", func(fl validator.FieldLevel) bool {
		return warehouse.ValidTableRef(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.ConnectionName = getenvDefault("SNOWFLAKE_DEFAULT_CONNECTION_NAME", "default")
	cfg.ConnectionsFile = getenvDefault("SNOWFLAKE_CONNECTIONS_FILE", warehouse.DefaultConnectionsFile())
	cfg.ForecastTable = getenvDefault("WEATHER_TABLE", DefaultTable)

	var err error
	if cfg.QueryTimeout, err = getenvDuration("QUERY_TIMEOUT", "0"); err != nil {
		return nil, err
	}
	if cfg.ConnectOnStart, err = getenvBool("CONNECT_ON_START", true); err != nil {
		return nil, err
	}

	if cfg.ProbeInterval, err = getenvDuration("PROBE_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	cfg.ProbeMaxHistory = getenvInt("PROBE_MAX_HISTORY", 60)
	if cfg.ProbeMaxAge, err = getenvDuration("PROBE_MAX_AGE", "1h"); err != nil {
		return nil, err
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Table parses ForecastTable. Load has already validated it.
func (c *AppConfig) Table() (warehouse.TableRef, error) {
	return warehouse.ParseTableRef(c.ForecastTable)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
