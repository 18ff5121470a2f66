// Package ledgerconfig resolves the core's enumerated configuration options
// (§6.4), generalizing internal/config.GetDataStoreConfig's os.Getenv-driven
// Config struct to the fund's parameters, plus an optional YAML file overlay
// for pinning fee constants per deployment.
package ledgerconfig

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DataSource enumerates the supported store backends. Postgres is the only
// supported mode in production (§6.4); mock exists for local development
// and tests.
type DataSource string

const (
	DataSourcePostgres DataSource = "postgres"
	DataSourceMock     DataSource = "mock"
)

// Config is the resolved set of options the core consults.
type Config struct {
	Environment     string
	DataSource      DataSource
	ConnectionString string

	PostgresBootstrapFromCSV bool
	AutoBackupOnNewTransaction bool

	FeatureBackupRestore bool
	FeatureFeeSafety     bool

	FeeRate    decimal.Decimal
	HurdleRate decimal.Decimal
	SeedPrice  decimal.Decimal
	DustUnits  decimal.Decimal

	WriteLockTimeoutSeconds int
}

// Default returns the spec's documented defaults (§4.5, §5).
func Default() Config {
	return Config{
		Environment:             "development",
		DataSource:              DataSourcePostgres,
		ConnectionString:        "postgres://localhost:5432/fundledger?sslmode=disable",
		FeatureBackupRestore:    true,
		FeatureFeeSafety:        true,
		FeeRate:                 decimal.NewFromFloat(0.20),
		HurdleRate:              decimal.NewFromFloat(0.06),
		SeedPrice:               decimal.NewFromInt(10000),
		DustUnits:               decimal.New(1, -9),
		WriteLockTimeoutSeconds: 10,
	}
}

// yamlOverlay is the subset of Config a deployment may pin via file, the way
// an ops team would rather edit a checked-in YAML than export nine env vars.
type yamlOverlay struct {
	Environment                *string  `yaml:"environment"`
	DataSource                 *string  `yaml:"data_source"`
	PostgresBootstrapFromCSV   *bool    `yaml:"postgres_bootstrap_from_csv"`
	AutoBackupOnNewTransaction *bool    `yaml:"auto_backup_on_new_transaction"`
	FeatureBackupRestore       *bool    `yaml:"feature.backup_restore"`
	FeatureFeeSafety           *bool    `yaml:"feature.fee_safety"`
	FeeRate                    *float64 `yaml:"fee_rate"`
	HurdleRate                 *float64 `yaml:"hurdle_rate"`
	SeedPrice                  *float64 `yaml:"seed_price"`
	DustUnits                  *float64 `yaml:"dust_units"`
}

// LoadFile overlays cfg with the contents of a YAML file at path, if it
// exists. A missing file is not an error; this mirrors
// internal/mocks.JSONDataLoader's tolerance of optional fixture files.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if overlay.Environment != nil {
		cfg.Environment = *overlay.Environment
	}
	if overlay.DataSource != nil {
		cfg.DataSource = DataSource(*overlay.DataSource)
	}
	if overlay.PostgresBootstrapFromCSV != nil {
		cfg.PostgresBootstrapFromCSV = *overlay.PostgresBootstrapFromCSV
	}
	if overlay.AutoBackupOnNewTransaction != nil {
		cfg.AutoBackupOnNewTransaction = *overlay.AutoBackupOnNewTransaction
	}
	if overlay.FeatureBackupRestore != nil {
		cfg.FeatureBackupRestore = *overlay.FeatureBackupRestore
	}
	if overlay.FeatureFeeSafety != nil {
		cfg.FeatureFeeSafety = *overlay.FeatureFeeSafety
	}
	if overlay.FeeRate != nil {
		cfg.FeeRate = decimal.NewFromFloat(*overlay.FeeRate)
	}
	if overlay.HurdleRate != nil {
		cfg.HurdleRate = decimal.NewFromFloat(*overlay.HurdleRate)
	}
	if overlay.SeedPrice != nil {
		cfg.SeedPrice = decimal.NewFromFloat(*overlay.SeedPrice)
	}
	if overlay.DustUnits != nil {
		cfg.DustUnits = decimal.NewFromFloat(*overlay.DustUnits)
	}
	return cfg, nil
}

// LoadEnv overlays cfg with environment variables, following
// internal/config.getConnectionString's os.Getenv-with-default pattern.
func LoadEnv(cfg Config) Config {
	if v := os.Getenv("FUNDLEDGER_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("FUNDLEDGER_DATA_SOURCE"); v != "" {
		cfg.DataSource = DataSource(v)
	}
	if v := os.Getenv("DB_CONN_STRING"); v != "" {
		cfg.ConnectionString = v
	}
	if v := os.Getenv("FUNDLEDGER_AUTO_BACKUP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutoBackupOnNewTransaction = b
		}
	}
	return cfg
}
