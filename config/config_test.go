package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadValidConfig(t *testing.T) {
	t.Setenv("PORT", "8002")
	t.Setenv("ADDRESS", "127.0.0.1")
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("OUTPUT_FILE", "out/codes.xlsx")
	t.Setenv("ALLOW_CODE_COLLISIONS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.OutputFile != "out/codes.xlsx" {
		t.Errorf("Expected output file out/codes.xlsx, got %s", cfg.OutputFile)
	}
	if !cfg.AllowCodeCollisions {
		t.Error("Expected ALLOW_CODE_COLLISIONS to be true")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	for _, key := range GetEnvVars() {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expected := map[string]string{
		"Port":          "8000",
		"Address":       "127.0.0.1",
		"LogLevel":      "info",
		"LogDir":        "logs",
		"DataDir":       "data",
		"PackageFile":   "package.csv",
		"ProductFile":   "product.csv",
		"RxNormDB":      "rxnorm.db",
		"OutputFile":    "universal-med-ids.csv",
		"ReferenceFile": "universal-med-ids.csv",
		"ScheduleTimes": "06:00;18:00",
	}
	actual := map[string]string{
		"Port":          cfg.Port,
		"Address":       cfg.Address,
		"LogLevel":      cfg.LogLevel,
		"LogDir":        cfg.LogDir,
		"DataDir":       cfg.DataDir,
		"PackageFile":   cfg.PackageFile,
		"ProductFile":   cfg.ProductFile,
		"RxNormDB":      cfg.RxNormDB,
		"OutputFile":    cfg.OutputFile,
		"ReferenceFile": cfg.ReferenceFile,
		"ScheduleTimes": cfg.ScheduleTimes,
	}
	for field, want := range expected {
		if actual[field] != want {
			t.Errorf("Expected default %s %q, got %q", field, want, actual[field])
		}
	}

	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.LogRetentionWeeks != 4 {
		t.Errorf("Expected 4 retention weeks, got %d", cfg.LogRetentionWeeks)
	}
	if cfg.MaxLogFileSize != 104857600 {
		t.Errorf("Expected 100MB max log size, got %d", cfg.MaxLogFileSize)
	}
	if cfg.CorrectionsFile != "" || cfg.MetricsTextfile != "" {
		t.Error("Optional files should be empty by default")
	}
	if cfg.AllowCodeCollisions {
		t.Error("Collisions should be fatal by default")
	}
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		key      string
		value    string
		expected string
	}{
		{"PORT", "abc", "PORT must be a valid number"},
		{"PORT", "0", "PORT must be between 1 and 65535"},
		{"PORT", "65536", "PORT must be between 1 and 65535"},
		{"PORT", "80", "PORT 80 is privileged"},
		{"ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"ADDRESS", "8.8.8.8", "public IP"},
		{"ENV", "invalid", "ENV must be one of"},
		{"LOG_LEVEL", "invalid", "LOG_LEVEL must be one of"},
		{"LOG_RETENTION_WEEKS", "53", "too large"},
		{"MAX_LOG_FILE_SIZE", "1024", "too small"},
		{"OUTPUT_FILE", "codes.json", "must end in .csv or .xlsx"},
		{"SCHEDULE_TIMES", "6pm", "is not HH:MM"},
		{"SCHEDULE_TIMES", "06:00;25:00", "is not HH:MM"},
		{"LOG_RETENTION_WEEKS", "four", "must be an integer"},
		{"ALLOW_CODE_COLLISIONS", "sometimes", "must be true or false"},
		{"REFERENCE_FILE", "previous.txt", "REFERENCE_FILE must end in .csv or .xlsx"},
	}

	for _, tc := range testCases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %q", tc.expected, err.Error())
			}
		})
	}
}

func TestLoadReportsEveryProblem(t *testing.T) {
	t.Setenv("PORT", "80")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("OUTPUT_FILE", "codes.txt")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected an error")
	}
	for _, want := range []string{"PORT", "LOG_LEVEL", "OUTPUT_FILE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %s in %q", want, err.Error())
		}
	}
}

func TestGetEnvVars(t *testing.T) {
	vars := GetEnvVars()
	if len(vars) != 17 {
		t.Errorf("Expected 17 variables, got %d: %v", len(vars), vars)
	}
	if vars[0] != "PORT" || vars[len(vars)-1] != "ALLOW_CODE_COLLISIONS" {
		t.Errorf("Variables should follow field order, got %v", vars)
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"production", EnvProduction, false},
		{"test", EnvTest, false},
		{"PROD", EnvProduction, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, env)
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestPath(t *testing.T) {
	cfg := &Config{DataDir: "data"}

	if got := cfg.Path("package.csv"); got != filepath.Join("data", "package.csv") {
		t.Errorf("Expected data/package.csv, got %s", got)
	}

	abs := filepath.Join(t.TempDir(), "rxnorm.db")
	if got := cfg.Path(abs); got != abs {
		t.Errorf("Absolute path should be kept, got %s", got)
	}

	if got := cfg.Path(""); got != "" {
		t.Errorf("Empty name should stay empty, got %s", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SCHEDULE_TIMES=07:30\nDATA_DIR=/srv/qumi\n"), 0o600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	// godotenv does not override variables already set
	t.Setenv("SCHEDULE_TIMES", "")
	t.Setenv("DATA_DIR", "")
	_ = os.Unsetenv("SCHEDULE_TIMES")
	_ = os.Unsetenv("DATA_DIR")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.ScheduleTimes != "07:30" {
		t.Errorf("Expected schedule from env file, got %s", cfg.ScheduleTimes)
	}
	if cfg.DataDir != "/srv/qumi" {
		t.Errorf("Expected data dir from env file, got %s", cfg.DataDir)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("Missing env file should not be an error, got %v", err)
	}
}
