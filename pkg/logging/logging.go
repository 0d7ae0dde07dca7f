// Package logging configures the global zerolog logger used by harnesssync.
//
// Log lines always go to a human-readable console sink. Once the state
// directory is known the CLI calls AttachFile to add an append-only JSON
// log next to the state file. Secret values must never reach a logger;
// callers log variable names only.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu        sync.Mutex
	console   io.Writer = os.Stderr
	logFile   *os.File
	verbosity int
)

// Level maps a -v count to a zerolog level. Without flags only warnings
// and errors are shown.
func Level(v int) zerolog.Level {
	switch {
	case v <= 0:
		return zerolog.WarnLevel
	case v == 1:
		return zerolog.InfoLevel
	case v == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// SetupLogger configures the global logger on stderr.
func SetupLogger(v int) {
	Setup(os.Stderr, v)
}

// Setup configures the global logger to print to w. An attached log file
// is kept.
func Setup(w io.Writer, v int) {
	mu.Lock()
	defer mu.Unlock()

	console = w
	verbosity = v
	zerolog.SetGlobalLevel(Level(v))
	rebuild()
}

// AttachFile adds path as a second sink, replacing any earlier file. When
// the file cannot be opened logging stays console-only and the error is
// returned.
func AttachFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot create log directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot open log file %s", path)
	}

	mu.Lock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	rebuild()
	mu.Unlock()

	log.Debug().Str("path", path).Msg("Log file attached")
	return nil
}

// rebuild swaps log.Logger for one writing to the current sinks. Callers
// hold mu.
func rebuild() {
	sinks := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}}
	if logFile != nil {
		sinks = append(sinks, logFile)
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(sinks...)).With().Timestamp()
	if verbosity >= 2 {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
}

// GetLogger returns a logger tagged with a component name.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// With returns the global logger carrying fields.
func With(fields map[string]any) zerolog.Logger {
	return log.Logger.With().Fields(fields).Logger()
}

// Track logs the start of op at debug level and returns a func that logs
// its completion with the elapsed time.
func Track(logger zerolog.Logger, op string) func() {
	start := time.Now()
	logger.Debug().Str("operation", op).Msg("Operation started")
	return func() {
		logger.Debug().Str("operation", op).Dur("duration", time.Since(start)).Msg("Operation completed")
	}
}
