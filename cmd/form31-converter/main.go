package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/osbtools/form31-converter/internal/config"
	"github.com/osbtools/form31-converter/internal/convert"
	"github.com/osbtools/form31-converter/internal/form31"
	"github.com/osbtools/form31-converter/internal/jobs"
	"github.com/osbtools/form31-converter/internal/server"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 15 * time.Second

// setupLogging builds the root logger from the configured level and
// format.
func setupLogging(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "form31-converter").Logger()
}

// runServerMode serves the HTTP API until a shutdown signal arrives.
func runServerMode(srv *server.Server, logger zerolog.Logger) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Start()
	}()

	select {
	case sig := <-signalCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
			os.Exit(1)
		}
		<-serverErrCh

	case err := <-serverErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}

	logger.Info().Msg("server stopped")
}

// runCLIMode converts the files named on the command line and exits.
func runCLIMode(service *convert.Service, logger zerolog.Logger) {
	paths := pflag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "cli mode needs at least one PDF file argument")
		os.Exit(2)
	}

	uploads := make([]convert.FileUpload, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		size := int64(0)
		if err == nil {
			size = info.Size()
		}
		uploads = append(uploads, convert.FileUpload{
			OriginalName: path,
			Path:         path,
			Size:         size,
			MediaType:    "application/pdf",
		})
	}

	batch := service.ProcessBatch(context.Background(), uploads)
	failed := 0
	for _, result := range batch.Results {
		if result.Success {
			fmt.Printf("%s -> %s\n", result.OriginalName, result.XMLPath)
			printSummary(result.XMLPath)
		} else {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %s\n", result.OriginalName, result.Error)
		}
	}
	logger.Info().Int("files", len(batch.Results)).Int("failed", failed).Msg("batch finished")
	if failed > 0 {
		os.Exit(1)
	}
}

// printSummary reads the produced XML back and prints the key fields so
// the operator can eyeball the result.
func printSummary(xmlPath string) {
	data, err := os.ReadFile(xmlPath)
	if err != nil {
		return
	}
	doc, err := form31.ParseGenerated(data)
	if err != nil {
		return
	}
	fmt.Printf("  court file %s, debtor %s %s, %d creditor(s)\n",
		doc.CaseInfo.CourtFileNumber,
		doc.Debtor.Name.FirstName, doc.Debtor.Name.LastName,
		len(doc.Creditors.Entries))
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// A local .env is optional; flags and real environment win.
	_ = godotenv.Load()

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := setupLogging(cfg)
	if cfg.IsDebug() {
		logger.Debug().Str("config", cfg.String()).Msg("starting")
	}

	store := jobs.NewStore()
	service := convert.NewService(convert.Options{
		ConverterPath: cfg.ConverterPath,
		Timeout:       cfg.ConverterTimeout,
		MaxFileSize:   cfg.MaxFileSize,
		OutputDir:     cfg.OutputDir,
		TempDir:       cfg.TempDir,
		SchemaPath:    cfg.SchemaPath,
		SystemName:    cfg.SystemName,
	}, store, logger)

	if cfg.IsServerMode() {
		runServerMode(server.New(cfg, service, store, logger), logger)
	} else {
		runCLIMode(service, logger)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Form 31 Converter\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
