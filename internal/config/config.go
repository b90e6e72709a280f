// Package config loads the settings shared by the commands.
//
// Sources are applied in order: struct defaults, the YAML file, then
// CURVES_* environment variables. The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"spot-curve-lab/internal/domain"
	"spot-curve-lab/internal/logging"
	"spot-curve-lab/internal/smoothing"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "CURVES"

// Backend names.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

// Config is the complete configuration.
type Config struct {
	Logging logging.Config `yaml:"logging"`
	Input   InputConfig    `yaml:"input"`
	Output  OutputConfig   `yaml:"output"`
	Pass    PassConfig     `yaml:"pass"`
	Basis   BasisConfig    `yaml:"basis"`
	Lambda  LambdaConfig   `yaml:"lambda"`
	Metrics MetricsConfig  `yaml:"metrics"`
}

// InputConfig selects where bid records come from.
type InputConfig struct {
	Backend     string `yaml:"backend" default:"memory" validate:"oneof=memory postgres"`
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	// PostgresMaxConns caps the pool; 0 sizes it from Pass.Workers.
	PostgresMaxConns int32  `yaml:"postgres_max_conns" validate:"gte=0"`
	DemandPath       string `yaml:"demand_path"` // dataset loaded into a memory store
	SupplyPath       string `yaml:"supply_path"`
}

// OutputConfig selects the curve store and the export files.
type OutputConfig struct {
	Backend       string `yaml:"backend" default:"memory" validate:"oneof=memory clickhouse"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" validate:"required_if=Backend clickhouse"`
	Dir           string `yaml:"dir" default:"out" validate:"required"`
	ReportFile    string `yaml:"report_file" default:"REPORT.md"`
	CurvesFile    string `yaml:"curves_file" default:"curves.csv"`
	BasisFile     string `yaml:"basis_file" default:"basis.yaml"`
}

// PassConfig tunes the smoothing pass.
type PassConfig struct {
	Sides        []string `yaml:"sides" default:"[\"DEMAND\",\"SUPPLY\"]" validate:"min=1,dive,oneof=DEMAND SUPPLY"`
	Workers      int      `yaml:"workers" validate:"gte=0"` // 0 means GOMAXPROCS
	SkipExisting bool     `yaml:"skip_existing"`
	Verify       bool     `yaml:"verify" default:"true"`
}

// BasisConfig describes the spline basis and its roughness penalty.
type BasisConfig struct {
	Order        int     `yaml:"order" default:"6" validate:"gte=1"`
	NBasis       int     `yaml:"nbasis" default:"18" validate:"gtefield=Order"`
	RangeMin     float64 `yaml:"range_min" default:"0"`
	RangeMax     float64 `yaml:"range_max" default:"1" validate:"gtfield=RangeMin"`
	GridSize     int     `yaml:"grid_size" default:"201" validate:"gte=2"`
	PenaltyDeriv int     `yaml:"penalty_deriv" default:"4" validate:"gte=1,ltfield=Order"`
}

// LambdaConfig is the logarithmic GCV candidate grid.
type LambdaConfig struct {
	MinExp float64 `yaml:"min_exp" default:"-4"`
	MaxExp float64 `yaml:"max_exp" default:"-1" validate:"gtefield=MinExp"`
	Step   float64 `yaml:"step" default:"0.25" validate:"gt=0"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// envOverrides lists the settings that may come from the environment.
// Pointer fields stay nil when the variable is unset.
type envOverrides struct {
	LogLevel      *string `envconfig:"LOG_LEVEL"`
	LogFormat     *string `envconfig:"LOG_FORMAT"`
	PostgresDSN   *string `envconfig:"POSTGRES_DSN"`
	PostgresConns *int32  `envconfig:"POSTGRES_MAX_CONNS"`
	ClickhouseDSN *string `envconfig:"CLICKHOUSE_DSN"`
	InputBackend  *string `envconfig:"INPUT_BACKEND"`
	OutputBackend *string `envconfig:"OUTPUT_BACKEND"`
	OutputDir     *string `envconfig:"OUTPUT_DIR"`
	Workers       *int    `envconfig:"WORKERS"`
	MetricsAddr   *string `envconfig:"METRICS_ADDR"`
}

var validate = validator.New()

// Default returns a Config with every default applied.
func Default() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &cfg, nil
}

// Load reads the YAML file at path (optional when empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("load config from env: %w", err)
	}
	setString(&c.Logging.Level, env.LogLevel)
	setString(&c.Logging.Format, env.LogFormat)
	setString(&c.Input.PostgresDSN, env.PostgresDSN)
	setString(&c.Output.ClickhouseDSN, env.ClickhouseDSN)
	setString(&c.Input.Backend, env.InputBackend)
	setString(&c.Output.Backend, env.OutputBackend)
	setString(&c.Output.Dir, env.OutputDir)
	setString(&c.Metrics.Addr, env.MetricsAddr)
	if env.Workers != nil {
		c.Pass.Workers = *env.Workers
	}
	if env.PostgresConns != nil {
		c.Input.PostgresMaxConns = *env.PostgresConns
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks field constraints and reports every failing field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// BasisSpec converts the basis section to the domain type.
func (c *Config) BasisSpec() domain.BasisSpec {
	return domain.BasisSpec{
		Order:    c.Basis.Order,
		NBasis:   c.Basis.NBasis,
		RangeMin: c.Basis.RangeMin,
		RangeMax: c.Basis.RangeMax,
		GridSize: c.Basis.GridSize,
	}
}

// SmoothingOptions builds the smoother options from the lambda and basis sections.
func (c *Config) SmoothingOptions() smoothing.Options {
	return smoothing.Options{
		Lambdas:      smoothing.LambdaGrid(c.Lambda.MinExp, c.Lambda.MaxExp, c.Lambda.Step),
		PenaltyDeriv: c.Basis.PenaltyDeriv,
	}
}

// Sides returns the configured market sides.
func (c *Config) Sides() []domain.Side {
	sides := make([]domain.Side, len(c.Pass.Sides))
	for i, s := range c.Pass.Sides {
		sides[i] = domain.Side(s)
	}
	return sides
}

// PostgresPoolSize is the connection cap for the bid database: the configured
// value, or one connection per worker plus one for listing units.
func (c *Config) PostgresPoolSize() int32 {
	if c.Input.PostgresMaxConns > 0 {
		return c.Input.PostgresMaxConns
	}
	workers := c.Pass.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return int32(workers) + 1
}
