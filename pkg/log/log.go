// SPDX-License-Identifier: BSD-3-Clause

package log

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	slogmulti "github.com/samber/slog-multi"
	slogzerolog "github.com/samber/slog-zerolog/v2"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

// globalLevel holds the console sink level selected on the command line.
// It defaults to Info and is read every time a logger is constructed.
var globalLevel atomic.Int64

func init() {
	globalLevel.Store(int64(slog.LevelInfo))
}

// ParseLevel maps the operator-facing level names (DEBUG, INFO, WARNING,
// ERROR, CRITICAL) onto slog levels. CRITICAL has no direct slog
// counterpart and maps above Error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "CRITICAL":
		return slog.LevelError + 4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrLogLevel, s)
	}
}

// SetGlobalLevel sets the console sink level for all loggers constructed
// afterwards. Intended to be called once at startup from the CLI layer.
func SetGlobalLevel(level slog.Level) {
	globalLevel.Store(int64(level))
}

// NewDefaultLogger creates a structured logger that writes human-readable
// console output through zerolog and fans structured records out to the
// global OpenTelemetry logger provider. Without an OpenTelemetry SDK
// configured the telemetry branch is a no-op.
func NewDefaultLogger() *slog.Logger {
	zeroLogger := zerolog.
		New(zerolog.NewConsoleWriter()).
		With().
		Timestamp().
		Logger()

	provider := global.GetLoggerProvider()

	otelHandler := otelslog.NewHandler("governor", otelslog.WithLoggerProvider(provider))
	return slog.New(slogmulti.Fanout(
		slogzerolog.Option{Level: slog.Level(globalLevel.Load()), Logger: &zeroLogger}.NewZerologHandler(),
		otelHandler,
	))
}

// GetGlobalLogger returns a logger matching the process-wide logging
// configuration. Services call this once in Run and attach their service
// name with With.
func GetGlobalLogger() *slog.Logger {
	return NewDefaultLogger()
}
