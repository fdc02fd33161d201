// Package config loads the console configuration from defaults, an optional
// JSON file, environment variables and command-line flags, in that order of
// increasing priority, and validates the result.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the console.
type Config struct {
	APIBaseURL       string        `validate:"url"`
	LogLevel         string        `validate:"loglevel"`
	TokenStoragePath string        `validate:"filepath"`
	AdminOnly        bool
	NotificationTTL  time.Duration `validate:"gt=0"`
	RequestTimeout   time.Duration `validate:"gte=0"`
	ConfigFile       string
}

// layer is one configuration source. Empty fields mean "not set here".
type layer struct {
	APIBaseURL       string        `env:"API_BASE_URL" json:"api_base_url"`
	LogLevel         string        `env:"LOG_LEVEL" json:"log_level"`
	TokenStoragePath string        `env:"TOKEN_STORAGE_PATH" json:"token_storage_path"`
	AdminOnly        string        `env:"ADMIN_ONLY" json:"-"`
	AdminOnlyJSON    *bool         `json:"admin_only"`
	NotificationTTL  time.Duration `env:"NOTIFICATION_TTL" json:"-"`
	NotificationTTLS string        `json:"notification_ttl"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" json:"-"`
	RequestTimeoutS  string        `json:"request_timeout"`
	ConfigFile       string        `env:"CONFIG" json:"-"`
}

var defaultConfig = Config{
	APIBaseURL:       "http://localhost:8080",
	LogLevel:         "info",
	TokenStoragePath: "",
	AdminOnly:        true,
	NotificationTTL:  5 * time.Second,
	RequestTimeout:   0,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command-line parsing. Callers that own their
// flag handling (the cobra front-end, tests) use it.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses the given arguments instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func (c *Config) apply(src layer) error {
	if src.APIBaseURL != "" {
		c.APIBaseURL = src.APIBaseURL
	}
	if src.LogLevel != "" {
		c.LogLevel = src.LogLevel
	}
	if src.TokenStoragePath != "" {
		c.TokenStoragePath = src.TokenStoragePath
	}
	if src.AdminOnly != "" {
		adminOnly, err := strconv.ParseBool(src.AdminOnly)
		if err != nil {
			return err
		}
		c.AdminOnly = adminOnly
	}
	if src.AdminOnlyJSON != nil {
		c.AdminOnly = *src.AdminOnlyJSON
	}
	if src.NotificationTTL != 0 {
		c.NotificationTTL = src.NotificationTTL
	}
	if src.NotificationTTLS != "" {
		ttl, err := time.ParseDuration(src.NotificationTTLS)
		if err != nil {
			return err
		}
		c.NotificationTTL = ttl
	}
	if src.RequestTimeout != 0 {
		c.RequestTimeout = src.RequestTimeout
	}
	if src.RequestTimeoutS != "" {
		timeout, err := time.ParseDuration(src.RequestTimeoutS)
		if err != nil {
			return err
		}
		c.RequestTimeout = timeout
	}

	return nil
}

func loadJSONFile(fileName string) (layer, error) {
	var fromFile layer

	data, err := os.ReadFile(fileName)
	if err != nil {
		return fromFile, err
	}

	err = json.Unmarshal(data, &fromFile)

	return fromFile, err
}

func parseFlags(args []string) (layer, error) {
	var values layer

	fs := flag.NewFlagSet("adminconsole", flag.ContinueOnError)
	fs.StringVar(&values.ConfigFile, "c", "", "JSON config file")
	fs.StringVar(&values.APIBaseURL, "u", "", "base URL of the admin REST API")
	fs.StringVar(&values.LogLevel, "l", "", "logger level")
	fs.StringVar(&values.TokenStoragePath, "f", "", "JSON file keeping the auth token between runs")
	fs.StringVar(&values.AdminOnly, "admin-only", "", "allow only admin accounts to sign in (true/false)")

	if args == nil {
		args = os.Args[1:]
	}

	return values, fs.Parse(args)
}

// New builds a validated Config.
// Priority: flags > environment > JSON file > defaults.
func New(optionsProto ...InitOption) (*Config, error) {
	return newWithOverrides(layer{}, optionsProto...)
}

// Overrides are values set by an outer command-line layer (cobra flags).
// They take priority over everything else.
type Overrides struct {
	ConfigFile       string
	APIBaseURL       string
	LogLevel         string
	TokenStoragePath string
	AdminOnly        string
}

// NewFromOverrides is New for front-ends that parse their own flags.
func NewFromOverrides(overrides Overrides) (*Config, error) {
	return newWithOverrides(
		layer{
			ConfigFile:       overrides.ConfigFile,
			APIBaseURL:       overrides.APIBaseURL,
			LogLevel:         overrides.LogLevel,
			TokenStoragePath: overrides.TokenStoragePath,
			AdminOnly:        overrides.AdminOnly,
		},
		WithDisableFlagsParsing(true),
	)
}

func newWithOverrides(outer layer, optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	fromFlags := outer
	if !options.disableFlagsParsing {
		fromFlags, err = parseFlags(options.args)
		if err != nil {
			return nil, err
		}
	}

	var fromEnv layer
	err = env.Parse(&fromEnv)
	if err != nil {
		return nil, err
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := fromEnv.ConfigFile
	if fromFlags.ConfigFile != "" {
		configFile = fromFlags.ConfigFile
	}
	if configFile != "" {
		fromFile, err := loadJSONFile(configFile)
		if err != nil {
			return nil, err
		}
		if err := values.apply(fromFile); err != nil {
			return nil, err
		}
		values.ConfigFile = configFile
	}

	for _, src := range []layer{fromEnv, fromFlags} {
		if err := values.apply(src); err != nil {
			return nil, err
		}
	}

	return values, values.validate()
}
