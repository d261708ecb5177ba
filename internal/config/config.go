package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeServer = "server"
	ModeCLI    = "cli"

	// Default values
	DefaultPort             = 8080
	DefaultHost             = "127.0.0.1"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMaxFileSize      = 50 * 1024 * 1024 // 50MB
	DefaultConverterTimeout = 30 * time.Second
	DefaultConverterBinary  = "pdftoxml"
	DefaultSchemaPath       = "schemas/form31.xsd"
	DefaultGenerationSystem = "form31-converter"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the Form 31 conversion service.
type Config struct {
	// Server configuration
	Mode string // "server" or "cli"
	Host string
	Port int

	// Pipeline configuration
	UploadDir        string
	OutputDir        string
	TempDir          string
	ConverterPath    string
	ConverterTimeout time.Duration
	SchemaPath       string
	SystemName       string
	MaxFileSize      int64 // Maximum PDF file size in bytes

	// Application configuration
	Version   string
	LogLevel  string
	LogFormat string // "json" or "console"
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:             ModeServer,
		Host:             DefaultHost,
		Port:             DefaultPort,
		UploadDir:        "uploads",
		OutputDir:        "output",
		TempDir:          "temp",
		ConverterPath:    DefaultConverterBinary,
		ConverterTimeout: DefaultConverterTimeout,
		SchemaPath:       DefaultSchemaPath,
		SystemName:       DefaultGenerationSystem,
		MaxFileSize:      DefaultMaxFileSize,
		Version:          "1.0.0",
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
	}
}

// LoadFromFlags parses command line flags and environment variables and
// returns a validated configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	for _, dir := range []*string{&cfg.UploadDir, &cfg.OutputDir, &cfg.TempDir, &cfg.SchemaPath} {
		if expanded, err := filepath.Abs(*dir); err == nil {
			*dir = expanded
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("FORM31")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("uploaddir", cfg.UploadDir)
	viper.SetDefault("outputdir", cfg.OutputDir)
	viper.SetDefault("tempdir", cfg.TempDir)
	viper.SetDefault("converter", cfg.ConverterPath)
	viper.SetDefault("timeout", cfg.ConverterTimeout)
	viper.SetDefault("schema", cfg.SchemaPath)
	viper.SetDefault("systemname", cfg.SystemName)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logformat", cfg.LogFormat)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the HTTP API, 'cli' for one-shot conversion")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("uploaddir", cfg.UploadDir, "Directory for uploaded PDF files")
	pflag.String("outputdir", cfg.OutputDir, "Directory for generated XML files")
	pflag.String("tempdir", cfg.TempDir, "Directory for intermediate converter output")
	pflag.String("converter", cfg.ConverterPath, "Path to the external PDF-to-XML converter binary")
	pflag.Duration("timeout", cfg.ConverterTimeout, "Timeout for a single converter run")
	pflag.String("schema", cfg.SchemaPath, "Path to the Form 31 XSD schema")
	pflag.String("systemname", cfg.SystemName, "Generation system name stamped into produced XML")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logformat", cfg.LogFormat, "Log format (json, console)")
}

// bindFlagsToViper binds command line flags to viper configuration.
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "uploaddir", "outputdir", "tempdir",
		"converter", "timeout", "schema", "systemname", "maxfilesize",
		"loglevel", "logformat",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message.
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nForm 31 Converter - converts bankruptcy Form 31 PDFs to filing XML\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # HTTP server on 127.0.0.1:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host=0.0.0.0 --port=9090               # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=cli form31.pdf                    # convert one file and exit\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORM31_MODE         Run mode\n")
		fmt.Fprintf(os.Stderr, "  FORM31_HOST         Server host\n")
		fmt.Fprintf(os.Stderr, "  FORM31_PORT         Server port\n")
		fmt.Fprintf(os.Stderr, "  FORM31_UPLOADDIR    Upload directory\n")
		fmt.Fprintf(os.Stderr, "  FORM31_OUTPUTDIR    Output directory\n")
		fmt.Fprintf(os.Stderr, "  FORM31_TEMPDIR      Temporary directory\n")
		fmt.Fprintf(os.Stderr, "  FORM31_CONVERTER    Converter binary path\n")
		fmt.Fprintf(os.Stderr, "  FORM31_TIMEOUT      Converter timeout\n")
		fmt.Fprintf(os.Stderr, "  FORM31_SCHEMA       XSD schema path\n")
		fmt.Fprintf(os.Stderr, "  FORM31_SYSTEMNAME   Generation system name\n")
		fmt.Fprintf(os.Stderr, "  FORM31_MAXFILESIZE  Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  FORM31_LOGLEVEL     Log level\n")
		fmt.Fprintf(os.Stderr, "  FORM31_LOGFORMAT    Log format\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper.
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.UploadDir = viper.GetString("uploaddir")
	cfg.OutputDir = viper.GetString("outputdir")
	cfg.TempDir = viper.GetString("tempdir")
	cfg.ConverterPath = viper.GetString("converter")
	cfg.ConverterTimeout = viper.GetDuration("timeout")
	cfg.SchemaPath = viper.GetString("schema")
	cfg.SystemName = viper.GetString("systemname")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFormat = viper.GetString("logformat")
}

// Validate checks the configuration and creates the working directories.
func (c *Config) Validate() error {
	if c.Mode != ModeServer && c.Mode != ModeCLI {
		return errors.New("mode must be either 'server' or 'cli'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.ConverterPath == "" {
		return errors.New("converter path cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.ConverterTimeout <= 0 {
		return errors.New("converter timeout must be positive")
	}

	for name, dir := range map[string]string{
		"upload":    c.UploadDir,
		"output":    c.OutputDir,
		"temporary": c.TempDir,
	} {
		if dir == "" {
			return fmt.Errorf("%s directory cannot be empty", name)
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create %s directory %s: %w", name, dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access %s directory %s: %w", name, dir, err)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s (must be 'json' or 'console')", c.LogFormat)
	}

	return nil
}

// Address returns the server address as host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsServerMode returns true if the service runs the HTTP API.
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, UploadDir: %s, OutputDir: %s, Converter: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.UploadDir, c.OutputDir, c.ConverterPath, c.LogLevel, c.MaxFileSize)
}
