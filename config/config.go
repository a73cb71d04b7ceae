// Package config reads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment is the deployment environment the app runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short and long names of each environment
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

// Config holds all application configuration. The env tag names the variable
// each field is read from.
type Config struct {
	Port              string      `env:"PORT"`
	Address           string      `env:"ADDRESS"`
	Env               Environment `env:"ENV"`
	LogLevel          string      `env:"LOG_LEVEL" validate:"required,oneof=debug info warn warning error critical"`
	LogDir            string      `env:"LOG_DIR" validate:"required"`
	LogRetentionWeeks int         `env:"LOG_RETENTION_WEEKS" validate:"min=1,max=52"`
	MaxLogFileSize    int64       `env:"MAX_LOG_FILE_SIZE" validate:"min=1048576,max=1073741824"`

	DataDir         string `env:"DATA_DIR"`
	PackageFile     string `env:"PACKAGE_FILE" validate:"required"`
	ProductFile     string `env:"PRODUCT_FILE" validate:"required"`
	RxNormDB        string `env:"RXNORM_DB" validate:"required"`
	CorrectionsFile string `env:"CORRECTIONS_FILE"` // optional YAML unit correction tables

	OutputFile      string `env:"OUTPUT_FILE" validate:"tablefile"`
	ReferenceFile   string `env:"REFERENCE_FILE" validate:"omitempty,tablefile"`
	ScheduleTimes   string `env:"SCHEDULE_TIMES" validate:"required,schedule"` // gocron At() expression, e.g. "06:00;18:00"
	MetricsTextfile string `env:"METRICS_TEXTFILE"`                            // Prometheus textfile written after each run

	AllowCodeCollisions bool `env:"ALLOW_CODE_COLLISIONS"`
}

// LoadEnvFile reads a .env file into the environment. A missing file is not an
// error: the variables may come from the process environment.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	var env envReader

	cfg := &Config{
		Port:              env.str("PORT", "8000"),
		Address:           env.str("ADDRESS", "127.0.0.1"),
		LogLevel:          strings.ToLower(env.str("LOG_LEVEL", "info")),
		LogDir:            env.str("LOG_DIR", "logs"),
		LogRetentionWeeks: env.int("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    env.int64("MAX_LOG_FILE_SIZE", 100*1024*1024),

		DataDir:         env.str("DATA_DIR", "data"),
		PackageFile:     env.str("PACKAGE_FILE", "package.csv"),
		ProductFile:     env.str("PRODUCT_FILE", "product.csv"),
		RxNormDB:        env.str("RXNORM_DB", "rxnorm.db"),
		CorrectionsFile: env.str("CORRECTIONS_FILE", ""),

		OutputFile:      env.str("OUTPUT_FILE", "universal-med-ids.csv"),
		ReferenceFile:   env.str("REFERENCE_FILE", "universal-med-ids.csv"),
		ScheduleTimes:   env.str("SCHEDULE_TIMES", "06:00;18:00"),
		MetricsTextfile: env.str("METRICS_TEXTFILE", ""),

		AllowCodeCollisions: env.bool("ALLOW_CODE_COLLISIONS", false),
	}

	parsed, err := ParseEnvironment(env.str("ENV", "dev"))
	if err != nil {
		env.errs = append(env.errs, err)
	}
	cfg.Env = parsed

	if err := errors.Join(env.errs...); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envReader reads typed variables, collecting values that do not parse
type envReader struct {
	errs []error
}

func (r *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) int64(key string, def int64) int64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be an integer, got: %s", key, v))
		return def
	}
	return n
}

func (r *envReader) int(key string, def int) int {
	return int(r.int64(key, int64(def)))
}

func (r *envReader) bool(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be true or false, got: %s", key, v))
		return def
	}
	return b
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	_ = v.RegisterValidation("tablefile", func(fl validator.FieldLevel) bool {
		ext := strings.ToLower(filepath.Ext(fl.Field().String()))
		return ext == ".csv" || ext == ".xlsx"
	})
	_ = v.RegisterValidation("schedule", func(fl validator.FieldLevel) bool {
		for _, t := range strings.Split(fl.Field().String(), ";") {
			if _, err := time.Parse("15:04", strings.TrimSpace(t)); err != nil {
				return false
			}
		}
		return true
	})
	return v
}

// Validate checks every field. PORT and ADDRESS get dedicated checks whose
// messages say what is wrong with the value.
func (c *Config) Validate() error {
	var errs []error

	if err := validatePort(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid PORT: %w", err))
	}
	if err := validateAddress(c.Address); err != nil {
		errs = append(errs, fmt.Errorf("invalid ADDRESS: %w", err))
	}

	var fieldErrs validator.ValidationErrors
	if err := validate.Struct(c); errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			errs = append(errs, describe(fe))
		}
	} else if err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func describe(fe validator.FieldError) error {
	key := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s cannot be empty", key)
	case "oneof":
		return fmt.Errorf("%s must be one of: [%s], got: %v", key, fe.Param(), fe.Value())
	case "min":
		return fmt.Errorf("%s is too small (min %s), got: %v", key, fe.Param(), fe.Value())
	case "max":
		return fmt.Errorf("%s is too large (max %s), got: %v", key, fe.Param(), fe.Value())
	case "tablefile":
		return fmt.Errorf("%s must end in .csv or .xlsx, got: %v", key, fe.Value())
	case "schedule":
		return fmt.Errorf("%s entry is not HH:MM, got: %v", key, fe.Value())
	}
	return fmt.Errorf("%s failed %s check", key, fe.Tag())
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if n < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", n)
	}
	return nil
}

// validateAddress only allows loopback and private addresses: the status
// endpoint is internal.
func validateAddress(address string) error {
	if address == "localhost" {
		return nil
	}
	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}
	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, use a loopback or private address", address)
	}
	return nil
}

// Path resolves a data file name against DataDir. Absolute paths are kept.
func (c *Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// GetEnvVars lists every variable Load reads
func GetEnvVars() []string {
	t := reflect.TypeOf(Config{})
	vars := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("env"); key != "" {
			vars = append(vars, key)
		}
	}
	return vars
}
