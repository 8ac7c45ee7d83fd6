package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(MapLookup(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	// Verify defaults
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Explore.DiagnoseLines != 20 {
		t.Errorf("Explore.DiagnoseLines = %d, want %d", cfg.Explore.DiagnoseLines, 20)
	}
	if cfg.Explore.DiagnoseMaxBytes != 65536 {
		t.Errorf("Explore.DiagnoseMaxBytes = %d, want %d", cfg.Explore.DiagnoseMaxBytes, 65536)
	}
	if cfg.Explore.MaxRows != 0 {
		t.Errorf("Explore.MaxRows = %d, want %d", cfg.Explore.MaxRows, 0)
	}
	if cfg.Explore.CategoricalThreshold != 50 {
		t.Errorf("Explore.CategoricalThreshold = %d, want %d", cfg.Explore.CategoricalThreshold, 50)
	}
	if cfg.Explore.Workers != 4 {
		t.Errorf("Explore.Workers = %d, want %d", cfg.Explore.Workers, 4)
	}
	if cfg.Limits.MaxFileSize != 104857600 {
		t.Errorf("Limits.MaxFileSize = %d, want %d", cfg.Limits.MaxFileSize, 104857600)
	}
	if cfg.Limits.MaxConcurrent != 4 {
		t.Errorf("Limits.MaxConcurrent = %d, want %d", cfg.Limits.MaxConcurrent, 4)
	}
	if cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 100)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(MapLookup(map[string]string{
		"SERVER_PORT":            "9090",
		"EXPLORE_MAX_ROWS":       "5000",
		"EXPLORE_MAX_CONCURRENT": "10",
		"LOG_LEVEL":              "debug",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Explore.MaxRows != 5000 {
		t.Errorf("Explore.MaxRows = %d, want %d", cfg.Explore.MaxRows, 5000)
	}
	if cfg.Limits.MaxConcurrent != 10 {
		t.Errorf("Limits.MaxConcurrent = %d, want %d", cfg.Limits.MaxConcurrent, 10)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_ReadsProcessEnv(t *testing.T) {
	t.Setenv("EXPLORE_WORKERS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Explore.Workers != 7 {
		t.Errorf("Explore.Workers = %d, want %d", cfg.Explore.Workers, 7)
	}
}

func TestLoadFrom_AltEnvVar(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want int
	}{
		{"alt only", map[string]string{"PORT": "3000"}, 3000},
		{"primary wins", map[string]string{"SERVER_PORT": "4000", "PORT": "3000"}, 4000},
		{"empty primary falls through", map[string]string{"SERVER_PORT": "", "PORT": "3000"}, 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(MapLookup(tt.env))
			if err != nil {
				t.Fatalf("LoadFrom() error = %v", err)
			}
			if cfg.Server.Port != tt.want {
				t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, tt.want)
			}
		})
	}
}

func TestLoadStruct_MissingRequired(t *testing.T) {
	var s struct {
		Token string `env:"FAIRPRICE_TEST_TOKEN" required:"true"`
	}

	err := loadStruct(reflect.ValueOf(&s).Elem(), MapLookup(nil))
	if err == nil {
		t.Fatal("loadStruct() expected error for missing FAIRPRICE_TEST_TOKEN")
	}
	if !strings.Contains(err.Error(), "FAIRPRICE_TEST_TOKEN") {
		t.Errorf("error should mention FAIRPRICE_TEST_TOKEN: %v", err)
	}
}

// level implements encoding.TextUnmarshaler for the loader test below.
type level string

func (l *level) UnmarshalText(b []byte) error {
	v := strings.ToLower(string(b))
	if v != "low" && v != "high" {
		return fmt.Errorf("unknown level %q", b)
	}
	*l = level(v)
	return nil
}

func TestLoadStruct_TypedFields(t *testing.T) {
	var s struct {
		Ratio float64  `env:"RATIO" default:"0.5"`
		Level level    `env:"LEVEL" default:"low"`
		Tags  []string `env:"TAGS"`
	}

	err := loadStruct(reflect.ValueOf(&s).Elem(), MapLookup(map[string]string{
		"LEVEL": "HIGH",
		"TAGS":  "a, ,b",
	}))
	if err != nil {
		t.Fatalf("loadStruct() error = %v", err)
	}
	if s.Ratio != 0.5 {
		t.Errorf("Ratio = %v, want 0.5", s.Ratio)
	}
	if s.Level != "high" {
		t.Errorf("Level = %q, want %q", s.Level, "high")
	}
	if !reflect.DeepEqual(s.Tags, []string{"a", "b"}) {
		t.Errorf("Tags = %v, want [a b]", s.Tags)
	}

	err = loadStruct(reflect.ValueOf(&s).Elem(), MapLookup(map[string]string{"LEVEL": "medium"}))
	if err == nil || !strings.Contains(err.Error(), "LEVEL") {
		t.Errorf("loadStruct() error = %v, want one naming LEVEL", err)
	}
}

func TestLoadFrom_InvalidValue(t *testing.T) {
	_, err := LoadFrom(MapLookup(map[string]string{"EXPLORE_WORKERS": "many"}))
	if err == nil {
		t.Fatal("LoadFrom() expected error for non-numeric EXPLORE_WORKERS")
	}
	if !strings.Contains(err.Error(), "EXPLORE_WORKERS") {
		t.Errorf("error should mention EXPLORE_WORKERS: %v", err)
	}
}

func TestLoadFrom_Duration(t *testing.T) {
	cfg, err := LoadFrom(MapLookup(map[string]string{
		"SERVER_READ_TIMEOUT":   "45s",
		"EXPLORE_MAX_WAIT_TIME": "1m30s",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Limits.MaxWaitTime != 90*time.Second {
		t.Errorf("Limits.MaxWaitTime = %v, want %v", cfg.Limits.MaxWaitTime, 90*time.Second)
	}
}

func TestLoadFrom_CommaSeparatedSlice(t *testing.T) {
	cfg, err := LoadFrom(MapLookup(map[string]string{
		"TRUSTED_PROXIES":      "10.0.0.0/8, 172.16.0.0/12 , 192.168.0.0/16",
		"CORS_ALLOWED_ORIGINS": "https://painel.example.org",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if !reflect.DeepEqual(cfg.Security.TrustedProxies, expected) {
		t.Errorf("TrustedProxies = %v, want %v", cfg.Security.TrustedProxies, expected)
	}
	if len(cfg.Security.AllowedOrigins) != 1 {
		t.Errorf("AllowedOrigins = %v, want one origin", cfg.Security.AllowedOrigins)
	}
}

// validConfig returns a config that passes Validate.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Explore: ExploreConfig{
			DiagnoseLines:        20,
			DiagnoseMaxBytes:     1024,
			CategoricalThreshold: 50,
			Workers:              1,
			Timeout:              time.Minute,
			Retain:               10,
		},
		Limits:  LimitsConfig{MaxFileSize: 1, MaxConcurrent: 1, MaxWaitTime: time.Second},
		Rate:    RateLimitConfig{Enabled: true, RequestsPerMinute: 100},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"zero diagnose lines", func(c *Config) { c.Explore.DiagnoseLines = 0 }, "EXPLORE_DIAGNOSE_LINES"},
		{"negative max rows", func(c *Config) { c.Explore.MaxRows = -1 }, "EXPLORE_MAX_ROWS"},
		{"zero workers", func(c *Config) { c.Explore.Workers = 0 }, "EXPLORE_WORKERS"},
		{"missing dictionary", func(c *Config) { c.Explore.DictionaryPath = "/nonexistent/dict.yaml" }, "EXPLORE_DICTIONARY_PATH"},
		{"zero concurrency", func(c *Config) { c.Limits.MaxConcurrent = 0 }, "EXPLORE_MAX_CONCURRENT"},
		{"api key required without keys", func(c *Config) { c.Security.RequireAPIKey = true }, "API_KEYS"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %s: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Explore.Workers = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, name := range []string{"SERVER_PORT", "EXPLORE_WORKERS", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s: %v", name, err)
		}
	}
}

func TestValidate_DictionaryPathExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.yaml")
	if err := os.WriteFile(path, []byte("words: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := validConfig()
	cfg.Explore.DictionaryPath = path
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"localhost", 443, "localhost:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		got := cfg.Addr()
		if got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString_MasksAPIKeys(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret-key-1", "secret-key-2"}},
	}
	str := cfg.String()
	if strings.Contains(str, "secret") {
		t.Error("String() should mask API keys")
	}
	if !strings.Contains(str, "MASKED x2") {
		t.Errorf("String() should contain MASKED placeholder: %s", str)
	}
}
