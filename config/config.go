// Package config loads the engine settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/custodian/acb/date"
	"github.com/custodian/acb/log"
	ptf "github.com/custodian/acb/portfolio"
	"github.com/custodian/acb/util"
)

const (
	EnvReportingCurrency = "ACB_REPORTING_CURRENCY"
	EnvLogLevel          = "ACB_LOG_LEVEL"
	EnvRatesCacheDir     = "ACB_RATES_CACHE_DIR"
	EnvForceDownload     = "ACB_FORCE_DOWNLOAD"
)

type ToleranceConfig struct {
	Relative string `yaml:"relative"`
	Absolute string `yaml:"absolute"`
}

type RatesConfig struct {
	// No persistent cache when empty.
	CacheDir      string `yaml:"cache_dir"`
	ForceDownload bool   `yaml:"force_download"`
	// Overrides the Valet endpoint.
	URL string `yaml:"url"`
}

type OpeningBalance struct {
	Date     string `yaml:"date"`
	Asset    string `yaml:"asset"`
	Quantity string `yaml:"quantity"`
	Acb      string `yaml:"acb"`
}

type Config struct {
	ReportingCurrency string           `yaml:"reporting_currency"`
	LogLevel          string           `yaml:"log_level"`
	Tolerances        ToleranceConfig  `yaml:"tolerance"`
	Rates             RatesConfig      `yaml:"rates"`
	OpeningBalances   []OpeningBalance `yaml:"opening_balances"`
	RenderFullValues  bool             `yaml:"render_full_values"`
}

func Default() *Config {
	return &Config{
		ReportingCurrency: string(ptf.CAD),
		LogLevel:          "info",
		Tolerances: ToleranceConfig{
			Relative: util.DefaultTolerance.Relative.String(),
			Absolute: util.DefaultTolerance.Absolute.String(),
		},
	}
}

// Load reads the YAML file at path (skipped when empty), then the .env files
// (".env" when none are given; a missing file is not an error), then the
// environment. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes a YAML document over the defaults. Unknown keys are rejected.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvReportingCurrency); v != "" {
		c.ReportingCurrency = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvRatesCacheDir); v != "" {
		c.Rates.CacheDir = v
	}
	if v := os.Getenv(EnvForceDownload); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvForceDownload, v, err)
		}
		c.Rates.ForceDownload = force
	}
	return nil
}

func (c *Config) Validate() error {
	c.ReportingCurrency = strings.ToUpper(strings.TrimSpace(c.ReportingCurrency))
	if money.GetCurrency(c.ReportingCurrency) == nil {
		return fmt.Errorf("reporting currency %q is not an ISO 4217 code", c.ReportingCurrency)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.Tolerance(); err != nil {
		return err
	}
	if _, err := c.OpeningHoldings(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Currency() ptf.Currency {
	return ptf.Currency(c.ReportingCurrency)
}

func (c *Config) Tolerance() (util.Tolerance, error) {
	rel, err := decimal.NewFromString(c.Tolerances.Relative)
	if err != nil {
		return util.Tolerance{}, fmt.Errorf("invalid relative tolerance %q: %w", c.Tolerances.Relative, err)
	}
	abs, err := decimal.NewFromString(c.Tolerances.Absolute)
	if err != nil {
		return util.Tolerance{}, fmt.Errorf("invalid absolute tolerance %q: %w", c.Tolerances.Absolute, err)
	}
	if rel.IsNegative() || abs.IsNegative() {
		return util.Tolerance{}, fmt.Errorf("tolerance cannot be negative")
	}
	return util.Tolerance{Relative: rel, Absolute: abs}, nil
}

// OpeningHoldings builds the store the first transaction is applied to.
func (c *Config) OpeningHoldings() (*ptf.Holdings, error) {
	holdings := ptf.NewHoldings()
	for i, ob := range c.OpeningBalances {
		h, err := ob.holding()
		if err != nil {
			return nil, fmt.Errorf("opening balance %d: %w", i+1, err)
		}
		if err := holdings.Add(h, false); err != nil {
			return nil, fmt.Errorf("opening balance %d: %w", i+1, err)
		}
	}
	return holdings, nil
}

func (ob OpeningBalance) holding() (ptf.AssetHolding, error) {
	d, err := date.Parse(ob.Date)
	if err != nil {
		return ptf.AssetHolding{}, err
	}
	if ob.Asset == "" {
		return ptf.AssetHolding{}, fmt.Errorf("missing asset")
	}
	qty, err := decimal.NewFromString(ob.Quantity)
	if err != nil {
		return ptf.AssetHolding{}, fmt.Errorf("invalid quantity %q: %w", ob.Quantity, err)
	}
	acb := decimal.Zero
	if ob.Acb != "" {
		if acb, err = decimal.NewFromString(ob.Acb); err != nil {
			return ptf.AssetHolding{}, fmt.Errorf("invalid acb %q: %w", ob.Acb, err)
		}
	}
	return ptf.AssetHolding{Date: d, Asset: ptf.Currency(ob.Asset), Quantity: qty, Acb: acb}, nil
}

// RatesCacheDir returns the cache directory with a leading ~ expanded.
func (c *Config) RatesCacheDir() (string, error) {
	dir := c.Rates.CacheDir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return dir, nil
}
