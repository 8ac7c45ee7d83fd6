package config

import (
	"encoding"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves an environment variable. It has the signature of
// os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with an explicit variable source. Tests pass a map-backed
// lookup instead of mutating the process environment.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MapLookup adapts a map to a LookupFunc.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	timeType            = reflect.TypeOf(time.Time{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// loadStruct walks the struct fields, recursing into nested sections, and
// fills every field carrying an env tag.
func loadStruct(v reflect.Value, lookup LookupFunc) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != timeType && !implementsText(fieldVal) {
			if err := loadStruct(fieldVal, lookup); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		value, set := resolve(lookup, name, field.Tag.Get("envAlt"))
		if !set {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}

	return nil
}

// resolve returns the first non-empty value among name and alt. An empty
// variable counts as unset.
func resolve(lookup LookupFunc, name, alt string) (string, bool) {
	if v, ok := lookup(name); ok && v != "" {
		return v, true
	}
	if alt != "" {
		if v, ok := lookup(alt); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func implementsText(v reflect.Value) bool {
	return v.CanAddr() && v.Addr().Type().Implements(textUnmarshalerType)
}

// setField parses value into field according to the field's type.
func setField(field reflect.Value, value string) error {
	if implementsText(field) {
		return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value))
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(value)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// problems collects validation failures so all of them are reported at once.
type problems []string

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Sprintf(format, args...))
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var p problems

	s := c.Server
	p.check(s.Port > 0 && s.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", s.Port)
	p.check(s.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	p.check(s.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")

	e := c.Explore
	p.check(e.DiagnoseLines > 0, "EXPLORE_DIAGNOSE_LINES must be positive")
	p.check(e.DiagnoseMaxBytes > 0, "EXPLORE_DIAGNOSE_MAX_BYTES must be positive")
	p.check(e.MaxRows >= 0, "EXPLORE_MAX_ROWS must be non-negative")
	p.check(e.MaxBytes >= 0, "EXPLORE_MAX_BYTES must be non-negative")
	p.check(e.CategoricalThreshold > 0, "EXPLORE_CATEGORICAL_THRESHOLD must be positive")
	p.check(e.Workers > 0, "EXPLORE_WORKERS must be positive")
	p.check(e.Timeout > 0, "EXPLORE_TIMEOUT must be positive")
	p.check(e.Retain > 0, "EXPLORE_RETAIN must be positive")
	if e.DictionaryPath != "" {
		_, err := os.Stat(e.DictionaryPath)
		p.check(err == nil, "EXPLORE_DICTIONARY_PATH (%q) is not readable: %v", e.DictionaryPath, err)
	}

	l := c.Limits
	p.check(l.MaxFileSize > 0, "EXPLORE_MAX_FILE_SIZE must be positive")
	p.check(l.MaxConcurrent > 0, "EXPLORE_MAX_CONCURRENT must be positive")
	p.check(l.MaxWaitTime > 0, "EXPLORE_MAX_WAIT_TIME must be positive")

	p.check(!c.Rate.Enabled || c.Rate.RequestsPerMinute > 0,
		"RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")

	p.check(!c.Security.RequireAPIKey || len(c.Security.APIKeys) > 0,
		"REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.check(false, "LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		p.check(false, "LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	return p.err()
}

// String renders the config for logs with API keys masked.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config{Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Explore: {MaxRows: %d, MaxBytes: %d, Workers: %d, Dictionary: %q}, ",
		c.Explore.MaxRows, c.Explore.MaxBytes, c.Explore.Workers, c.Explore.DictionaryPath)
	fmt.Fprintf(&b, "Limits: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Limits.MaxFileSize, c.Limits.MaxConcurrent)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: [MASKED x%d], AllowedOrigins: %v}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys), c.Security.AllowedOrigins)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}}", c.Logging.Level, c.Logging.Format)
	return b.String()
}
