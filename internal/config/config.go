package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/gpacalc/internal/calc"
	"github.com/KaramelBytes/gpacalc/internal/table"
	"github.com/KaramelBytes/gpacalc/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Input columns: accepted header names per logical column
	GradeColumns    []string `mapstructure:"grade_columns" yaml:"grade_columns" validate:"min=1,dive,required"`
	CreditColumns   []string `mapstructure:"credit_columns" yaml:"credit_columns" validate:"min=1,dive,required"`
	CategoryColumns []string `mapstructure:"category_columns" yaml:"category_columns" validate:"min=1,dive,required"`

	// Input parsing
	Delimiter        string `mapstructure:"delimiter" yaml:"delimiter" validate:"omitempty,oneof=0x2C ; tab"`
	DecimalSeparator string `mapstructure:"decimal_separator" yaml:"decimal_separator" validate:"omitempty,oneof=. comma"`
	SheetName        string `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex       int    `mapstructure:"sheet_index" yaml:"sheet_index" validate:"gte=0"`

	// HTTP server
	ListenAddr         string   `mapstructure:"listen_addr" yaml:"listen_addr" validate:"required"`
	MaxUploadMB        int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb" validate:"gte=1,lte=1024"`
	UploadDir          string   `mapstructure:"upload_dir" yaml:"upload_dir"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	RateLimitRPS       float64  `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst     int      `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" validate:"gte=0"`
	ReadTimeoutSec     int      `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec" validate:"gte=1"`
	WriteTimeoutSec    int      `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec" validate:"gte=1"`
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec" validate:"gte=1"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=json console"`
}

var validate = validator.New()

// Validate checks field constraints declared in struct tags.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// TableOptions converts the input parsing settings for the table loader.
func (c *Global) TableOptions() table.Options {
	opt := table.DefaultOptions()
	switch c.Delimiter {
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "tab":
		opt.Delimiter = '\t'
	}
	if c.DecimalSeparator == "comma" {
		opt.DecimalSeparator = ','
	}
	opt.SheetName = c.SheetName
	if c.SheetIndex > 0 {
		opt.SheetIndex = c.SheetIndex
	}
	return opt
}

// Columns returns the configured header names per logical column.
func (c *Global) Columns() table.Columns {
	return table.Columns{
		Grade:    c.GradeColumns,
		Credits:  c.CreditColumns,
		Category: c.CategoryColumns,
	}
}

// CalcOptions assembles loader and aggregator options. The grade scale and
// label sets are always the built-in defaults.
func (c *Global) CalcOptions() calc.Options {
	opt := calc.DefaultOptions()
	opt.Table = c.TableOptions()
	opt.Columns = c.Columns()
	return opt
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.gpacalc/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("GPACALC")
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// Defaults
	v.SetDefault("grade_columns", []string{"総合評価", "overall_grade"})
	v.SetDefault("credit_columns", []string{"単位数", "credit_count"})
	v.SetDefault("category_columns", []string{"科目区分", "subject_category"})
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 1)
	// HTTP defaults
	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("upload_dir", "")
	v.SetDefault("cors_allowed_origins", []string{"*"})
	v.SetDefault("rate_limit_rps", 0.0)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("read_timeout_sec", 30)
	v.SetDefault("write_timeout_sec", 30)
	v.SetDefault("shutdown_timeout_sec", 10)
	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Default returns the built-in configuration with env overrides applied and
// no config file read. If the env overrides do not decode or validate, the
// overrides are ignored.
func Default() *Global {
	var c Global
	if err := newViper().Unmarshal(&c); err == nil && c.Validate() == nil {
		return &c
	}
	return builtin()
}

func builtin() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	// Defaults always decode and validate.
	_ = v.Unmarshal(&c)
	return &c
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := newViper()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".gpacalc"), nil
}
