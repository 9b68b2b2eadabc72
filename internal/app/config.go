package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	plvalidator "github.com/go-playground/validator/v10"
	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/rstenmark/fiscaldata/internal/auction"
	"github.com/rstenmark/fiscaldata/internal/fetch"
	"github.com/rstenmark/fiscaldata/pkg/validator"
)

// Config represents the runtime configuration for the fiscaldata tool.
type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Fetch    FetchConfig  `mapstructure:"fetch"`
	Cache    CacheConfig  `mapstructure:"cache"`
	Viewer   ViewerConfig `mapstructure:"viewer"`
}

// FetchConfig configures the upstream Fiscal Data requests.
type FetchConfig struct {
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	SecurityType string        `mapstructure:"security_type" validate:"required"`
	IssuedSince  string        `mapstructure:"issued_since" validate:"required,datetime=2006-01-02"`
	Terms        []string      `mapstructure:"terms" validate:"required,min=1,dive,security_term"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// CacheConfig configures the local SQLite cache store.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl" validate:"min=0"`
}

// ViewerConfig configures the local chart viewer endpoint.
type ViewerConfig struct {
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
}

// IssuedSinceTime parses the configured inclusive lower-bound issue date.
func (c FetchConfig) IssuedSinceTime() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", c.IssuedSince, time.UTC)
}

// TermList converts the configured maturity labels to validated terms.
func (c FetchConfig) TermList() ([]auction.Term, error) {
	terms := make([]auction.Term, 0, len(c.Terms))
	for _, label := range c.Terms {
		term, err := auction.ParseTerm(label)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

var registerRules sync.Once

// LoadConfig initialises configuration using Viper: defaults reproduce the
// reference behaviour, overridable via a YAML file or FISCALDATA_* env vars.
func LoadConfig(paths ...string) (*Config, error) {
	registerRules.Do(func() {
		_ = validator.RegisterValidation("security_term", func(fl plvalidator.FieldLevel) bool {
			_, err := auction.ParseTerm(fl.Field().String())
			return err == nil
		})
	})

	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("FISCALDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validator.ValidateStruct(&config); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("fetch.base_url", fetch.DefaultBaseURL)
	v.SetDefault("fetch.security_type", "Bill")
	v.SetDefault("fetch.issued_since", "2022-01-01")
	v.SetDefault("fetch.terms", []string{
		auction.TermFourWeek.String(),
		auction.TermEightWeek.String(),
		auction.TermThirteenWeek.String(),
		auction.TermTwentySixWeek.String(),
		auction.TermFiftyTwoWeek.String(),
	})
	v.SetDefault("fetch.timeout", "30s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "./data/fiscaldata.sqlite")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("viewer.port", 8417)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
