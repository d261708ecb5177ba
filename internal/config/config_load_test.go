package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to clear environment variables
func clearEnvVars() {
	for _, name := range []string{
		"FORM31_MODE", "FORM31_HOST", "FORM31_PORT", "FORM31_UPLOADDIR",
		"FORM31_OUTPUTDIR", "FORM31_TEMPDIR", "FORM31_CONVERTER",
		"FORM31_TIMEOUT", "FORM31_SCHEMA", "FORM31_SYSTEMNAME",
		"FORM31_MAXFILESIZE", "FORM31_LOGLEVEL", "FORM31_LOGFORMAT",
	} {
		os.Unsetenv(name)
	}
}

// dirArgs points the working directories at a temp dir so that
// Validate() does not create directories in the repository.
func dirArgs(t *testing.T) []string {
	t.Helper()
	base := t.TempDir()
	return []string{
		"--uploaddir=" + filepath.Join(base, "uploads"),
		"--outputdir=" + filepath.Join(base, "output"),
		"--tempdir=" + filepath.Join(base, "temp"),
	}
}

func loadWithArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	})

	os.Args = append([]string{"form31-converter"}, args...)
	resetFlags()
	return LoadFromFlags()
}

func TestLoadFromFlags_Defaults(t *testing.T) {
	clearEnvVars()
	cfg, err := loadWithArgs(t, dirArgs(t)...)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeServer {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, ModeServer)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("LoadFromFlags() Host = %v, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want 8080", cfg.Port)
	}
	if cfg.ConverterPath != "pdftoxml" {
		t.Errorf("LoadFromFlags() ConverterPath = %v, want pdftoxml", cfg.ConverterPath)
	}
	if cfg.ConverterTimeout != DefaultConverterTimeout {
		t.Errorf("LoadFromFlags() ConverterTimeout = %v, want %v", cfg.ConverterTimeout, DefaultConverterTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.MaxFileSize != int64(DefaultMaxFileSize) {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, DefaultMaxFileSize)
	}
	if !filepath.IsAbs(cfg.UploadDir) {
		t.Errorf("LoadFromFlags() UploadDir = %v, want an absolute path", cfg.UploadDir)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name            string
		args            []string
		wantMode        string
		wantHost        string
		wantPort        int
		wantLogLevel    string
		wantMaxFileSize int64
	}{
		{
			name:            "server mode with custom host and port",
			args:            []string{"--host=0.0.0.0", "--port=9090"},
			wantMode:        ModeServer,
			wantHost:        "0.0.0.0",
			wantPort:        9090,
			wantLogLevel:    "info",
			wantMaxFileSize: DefaultMaxFileSize,
		},
		{
			name:            "cli mode",
			args:            []string{"--mode=cli"},
			wantMode:        ModeCLI,
			wantHost:        "127.0.0.1",
			wantPort:        8080,
			wantLogLevel:    "info",
			wantMaxFileSize: DefaultMaxFileSize,
		},
		{
			name:            "debug logging",
			args:            []string{"--loglevel=debug"},
			wantMode:        ModeServer,
			wantHost:        "127.0.0.1",
			wantPort:        8080,
			wantLogLevel:    "debug",
			wantMaxFileSize: DefaultMaxFileSize,
		},
		{
			name:            "custom max file size",
			args:            []string{"--maxfilesize=5000000"},
			wantMode:        ModeServer,
			wantHost:        "127.0.0.1",
			wantPort:        8080,
			wantLogLevel:    "info",
			wantMaxFileSize: 5000000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			cfg, err := loadWithArgs(t, append(tt.args, dirArgs(t)...)...)
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}

			if cfg.Mode != tt.wantMode {
				t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, tt.wantMode)
			}
			if cfg.Host != tt.wantHost {
				t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, tt.wantHost)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, tt.wantPort)
			}
			if cfg.LogLevel != tt.wantLogLevel {
				t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, tt.wantLogLevel)
			}
			if cfg.MaxFileSize != tt.wantMaxFileSize {
				t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, tt.wantMaxFileSize)
			}
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	clearEnvVars()
	os.Setenv("FORM31_HOST", "192.168.1.1")
	os.Setenv("FORM31_PORT", "3000")
	os.Setenv("FORM31_CONVERTER", "/opt/converter/pdftoxml")
	os.Setenv("FORM31_LOGLEVEL", "warn")
	os.Setenv("FORM31_MAXFILESIZE", "200000000")

	cfg, err := loadWithArgs(t, dirArgs(t)...)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Host != "192.168.1.1" {
		t.Errorf("LoadFromFlags() Host = %v, want 192.168.1.1", cfg.Host)
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want 3000", cfg.Port)
	}
	if cfg.ConverterPath != "/opt/converter/pdftoxml" {
		t.Errorf("LoadFromFlags() ConverterPath = %v, want /opt/converter/pdftoxml", cfg.ConverterPath)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want warn", cfg.LogLevel)
	}
	if cfg.MaxFileSize != 200000000 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want 200000000", cfg.MaxFileSize)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	clearEnvVars()
	os.Setenv("FORM31_HOST", "192.168.1.1")
	os.Setenv("FORM31_PORT", "3000")

	cfg, err := loadWithArgs(t, append([]string{"--host=localhost", "--port=8888"}, dirArgs(t)...)...)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Host != "localhost" {
		t.Errorf("LoadFromFlags() Host = %v, want localhost (should override env)", cfg.Host)
	}
	if cfg.Port != 8888 {
		t.Errorf("LoadFromFlags() Port = %v, want 8888 (should override env)", cfg.Port)
	}
}

func TestLoadFromFlags_InvalidMode(t *testing.T) {
	clearEnvVars()
	_, err := loadWithArgs(t, append([]string{"--mode=daemon"}, dirArgs(t)...)...)
	if err == nil {
		t.Fatal("LoadFromFlags() expected error for invalid mode")
	}
	if !strings.Contains(err.Error(), "mode must be either 'server' or 'cli'") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid mode", err)
	}
}

func TestLoadFromFlags_InvalidPort(t *testing.T) {
	clearEnvVars()
	_, err := loadWithArgs(t, append([]string{"--port=99999"}, dirArgs(t)...)...)
	if err == nil {
		t.Fatal("LoadFromFlags() expected error for invalid port")
	}
	if !strings.Contains(err.Error(), "port must be between 1 and 65535") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid port", err)
	}
}

func TestLoadFromFlags_InvalidLogLevel(t *testing.T) {
	clearEnvVars()
	_, err := loadWithArgs(t, append([]string{"--loglevel=chatty"}, dirArgs(t)...)...)
	if err == nil {
		t.Fatal("LoadFromFlags() expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid log level", err)
	}
}
