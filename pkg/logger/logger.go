package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"healthwatch/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init builds the process logger. Development gets a colored console writer
// with caller info, production gets JSON lines. When logging.file is set the
// output is also appended to that file as JSON.
func Init(cfg *config.Config) (*zerolog.Logger, error) {
	level := zerolog.DebugLevel
	if cfg.IsProduction() {
		level = zerolog.InfoLevel
	}
	if cfg.Logging.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	if !cfg.IsProduction() {
		out = consoleWriter(os.Stdout)
	}

	if cfg.Logging.File != "" {
		f, err := openLogFile(cfg.Logging.File)
		if err != nil {
			return nil, err
		}
		out = zerolog.MultiLevelWriter(out, f)
	}

	baseLogger := New(out, cfg.ServiceName, cfg.Env)

	// Add caller info for dev
	if !cfg.IsProduction() {
		baseLogger = baseLogger.With().Caller().Logger()
	}

	log.Logger = baseLogger

	return &baseLogger, nil
}

// New returns a logger carrying the service and env fields.
func New(out io.Writer, service, env string) zerolog.Logger {
	return zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Str("env", env).
		Logger()
}

// Nop is handed to components in tests.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		PartsOrder: []string{
			"time", "level", "caller", "component", "message",
		},
		FieldsExclude: []string{"service", "env", "component"},
		FormatLevel: func(i any) string {
			return strings.ToUpper(fmt.Sprintf("[%s]", i))
		},
		FormatCaller: func(caller any) string {
			return fmt.Sprintf("(%s)", caller)
		},
	}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
