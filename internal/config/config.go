package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Reference ReferenceConfig `yaml:"reference" mapstructure:"reference"`
	Levels    LevelsConfig    `yaml:"levels" mapstructure:"levels"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
}

// OCRConfig configures text recovery. NativeProvider is "pdfreader" or
// "pdftotext"; OpticalProvider is "none", "tesseract" or "mistral".
type OCRConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	MinChars        int    `yaml:"min_chars" mapstructure:"min_chars"`
	NativeProvider  string `yaml:"native_provider" mapstructure:"native_provider"`
	OpticalProvider string `yaml:"optical_provider" mapstructure:"optical_provider"`
	PdfToTextPath   string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfToPPMPath    string `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	TesseractPath   string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	TesseractLang   string `yaml:"tesseract_lang" mapstructure:"tesseract_lang"`
	DPI             int    `yaml:"dpi" mapstructure:"dpi"`
	MistralKey      string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel    string `yaml:"mistral_model" mapstructure:"mistral_model"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`

	// BreakerFailures consecutive optical failures pause recognition for
	// BreakerCooldownSecs. Zero disables the breaker.
	BreakerFailures     int `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// Timeout returns the per-call optical recognition timeout.
func (c OCRConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// FetchConfig configures document downloads.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// Timeout returns the per-request fetch timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheConfig configures the on-disk document cache.
type CacheConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ReferenceConfig points at the reference tables.
type ReferenceConfig struct {
	CountriesPath      string  `yaml:"countries_path" mapstructure:"countries_path"`
	HouseholdSizePath  string  `yaml:"household_size_path" mapstructure:"household_size_path"`
	HouseholdOverrides string  `yaml:"household_overrides_path" mapstructure:"household_overrides_path"`
	DefaultPeoplePerHH float64 `yaml:"default_people_per_household" mapstructure:"default_people_per_household"`
}

// LevelsConfig configures persisted level state. Driver is "file" or "sqlite".
type LevelsConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// OutputConfig configures row sinks. Driver is "csv" or "postgres".
type OutputConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	SourceID    string `yaml:"source_id" mapstructure:"source_id"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
}

// PipelineConfig configures per-document processing.
type PipelineConfig struct {
	EnablePDFs         bool     `yaml:"enable_pdfs" mapstructure:"enable_pdfs"`
	PreferredPDFTitles []string `yaml:"preferred_pdf_titles" mapstructure:"preferred_pdf_titles"`
	SourceTag          string   `yaml:"source_tag" mapstructure:"source_tag"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.min_chars", 1500)
	v.SetDefault("ocr.native_provider", "pdfreader")
	v.SetDefault("ocr.optical_provider", "tesseract")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.tesseract_lang", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("ocr.timeout_secs", 300)
	v.SetDefault("ocr.breaker_failures", 3)
	v.SetDefault("ocr.breaker_cooldown_secs", 300)
	v.SetDefault("fetch.user_agent", "sitrep-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("cache.dir", "staging/.cache/reliefweb/pdf")
	v.SetDefault("reference.countries_path", "data/countries.csv")
	v.SetDefault("reference.household_size_path", "reference/avg_household_size.csv")
	v.SetDefault("reference.household_overrides_path", "reference/overrides/avg_household_size_overrides.yml")
	v.SetDefault("reference.default_people_per_household", 4.5)
	v.SetDefault("levels.driver", "file")
	v.SetDefault("levels.path", "staging/.cache/reliefweb/levels/levels.json")
	v.SetDefault("output.driver", "csv")
	v.SetDefault("output.path", "staging/reliefweb_pdf.csv")
	v.SetDefault("output.source_id", "reliefweb_pdf")
	v.SetDefault("output.table", "staging.reliefweb_pdf")
	v.SetDefault("pipeline.enable_pdfs", true)
	v.SetDefault("pipeline.preferred_pdf_titles", []string{"situation report", "flash update", "key figures"})
	v.SetDefault("pipeline.source_tag", "reliefweb_pdf")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command mode depends on. Mode is "extract"
// or "levels".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Levels.Driver {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("levels.driver %q is not one of file, sqlite", c.Levels.Driver))
	}
	if c.Levels.Path == "" {
		errs = append(errs, "levels.path is required")
	}

	switch mode {
	case "levels":
	case "extract":
		if c.OCR.MinChars < 0 {
			errs = append(errs, fmt.Sprintf("ocr.min_chars must be >= 0 (got %d)", c.OCR.MinChars))
		}
		switch c.OCR.NativeProvider {
		case "pdfreader", "pdftotext":
		default:
			errs = append(errs, fmt.Sprintf("ocr.native_provider %q is not one of pdfreader, pdftotext", c.OCR.NativeProvider))
		}
		switch c.OCR.OpticalProvider {
		case "none", "tesseract":
		case "mistral":
			if c.OCR.Enabled && c.OCR.MistralKey == "" {
				errs = append(errs, "ocr.mistral_api_key is required for the mistral provider")
			}
		default:
			errs = append(errs, fmt.Sprintf("ocr.optical_provider %q is not one of none, tesseract, mistral", c.OCR.OpticalProvider))
		}
		if c.Cache.Dir == "" {
			errs = append(errs, "cache.dir is required")
		}
		switch c.Output.Driver {
		case "csv":
			if c.Output.Path == "" {
				errs = append(errs, "output.path is required for the csv driver")
			}
		case "postgres":
			if c.Output.DatabaseURL == "" {
				errs = append(errs, "output.database_url is required for the postgres driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("output.driver %q is not one of csv, postgres", c.Output.Driver))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
