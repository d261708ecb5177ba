package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// DefaultConversionTimeout bounds one converter subprocess run.
const DefaultConversionTimeout = 30 * time.Second

// killGracePeriod is how long Wait may keep draining the converter's
// pipes after the deadline kill before abandoning them.
const killGracePeriod = 3 * time.Second

// Invoker runs the external PDF-to-XML converter as a bounded-time
// subprocess. It keeps no state between invocations; distinct jobs must use
// distinct output paths.
type Invoker struct {
	binaryPath string
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewInvoker creates an invoker for the converter at binaryPath. A
// non-positive timeout falls back to DefaultConversionTimeout.
func NewInvoker(binaryPath string, timeout time.Duration, logger zerolog.Logger) *Invoker {
	if timeout <= 0 {
		timeout = DefaultConversionTimeout
	}
	return &Invoker{
		binaryPath: binaryPath,
		timeout:    timeout,
		logger:     logger.With().Str("component", "invoker").Logger(),
	}
}

// Convert runs `<converter> -input <inputPath> -output <outputPath>` and
// verifies a non-empty output file was produced. The subprocess is killed
// when the timeout expires.
func (iv *Invoker) Convert(ctx context.Context, inputPath, outputPath string) error {
	binary, err := iv.locateBinary()
	if err != nil {
		return err
	}

	outputDir := filepath.Dir(outputPath)
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		iv.logger.Info().Str("dir", outputDir).Msg("creating output directory")
		if err := os.MkdirAll(outputDir, 0o750); err != nil {
			return WrapError(ErrorTypeConverterExecution, "cannot create output directory", err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, iv.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binary, "-input", inputPath, "-output", outputPath)
	// The converter may be a wrapper script that spawns children. Those
	// inherit the output pipes, so killing only the direct child would
	// leave Wait blocked on the pipe copy. Kill the whole process group
	// on deadline, and abandon the pipes if anything survives the kill.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = killGracePeriod
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	iv.logger.Debug().
		Str("binary", binary).
		Str("input", inputPath).
		Str("output", outputPath).
		Dur("timeout", iv.timeout).
		Msg("running converter")

	runErr := cmd.Run()

	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		iv.logger.Warn().Str("stderr", msg).Msg("converter wrote to stderr")
	}

	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return NewErrorf(ErrorTypeConversionTimeout,
				"conversion timed out after %s", iv.timeout).WithFile(inputPath)
		}
		return WrapError(ErrorTypeConverterExecution, "converter failed", runErr).WithFile(inputPath)
	}

	return iv.verifyOutput(outputPath)
}

// Timeout returns the configured wall-clock limit per invocation.
func (iv *Invoker) Timeout() time.Duration {
	return iv.timeout
}

func (iv *Invoker) locateBinary() (string, error) {
	if strings.ContainsRune(iv.binaryPath, os.PathSeparator) {
		info, err := os.Stat(iv.binaryPath)
		if err != nil || info.IsDir() {
			return "", NewErrorf(ErrorTypeConverterNotFound,
				"converter binary not found at %s", iv.binaryPath)
		}
		return iv.binaryPath, nil
	}

	resolved, err := exec.LookPath(iv.binaryPath)
	if err != nil {
		return "", NewErrorf(ErrorTypeConverterNotFound,
			"converter binary %q not found in PATH", iv.binaryPath)
	}
	return resolved, nil
}

func (iv *Invoker) verifyOutput(outputPath string) error {
	info, err := os.Stat(outputPath)
	if err != nil {
		return WrapError(ErrorTypeConverterOutput,
			"converter output was not generated", err).WithFile(outputPath)
	}
	if info.Size() == 0 {
		return NewErrorf(ErrorTypeConverterOutput,
			"converter output is empty: %s", outputPath).WithFile(outputPath)
	}
	f, err := os.Open(outputPath)
	if err != nil {
		return WrapError(ErrorTypeConverterOutput,
			"converter output is not readable", err).WithFile(outputPath)
	}
	f.Close()
	return nil
}
