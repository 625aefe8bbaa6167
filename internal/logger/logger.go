// Package logger provides process-wide structured logging for construct-iq.
//
// Info, Warn and Error are always emitted. Debug and Section output only
// appear when verbose mode is enabled via the --verbose flag. The output
// format is console for terminals and JSON otherwise, unless set explicitly.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Output formats.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	format  = FormatAuto
	output  io.Writer = os.Stderr
	sugar   = build(output, format, verbose)
)

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	sugar = build(output, format, verbose)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	sugar = build(output, format, verbose)
}

// SetFormat selects console, json or auto output.
func SetFormat(f string) error {
	switch f {
	case FormatAuto, FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", f)
	}
	mu.Lock()
	defer mu.Unlock()
	format = f
	sugar = build(output, format, verbose)
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = sugar.Sync()
}

func build(w io.Writer, f string, debug bool) *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	tty := isTerminal(w)
	if f == FormatAuto {
		f = FormatJSON
		if tty {
			f = FormatConsole
		}
	}

	var encoder zapcore.Encoder
	if f == FormatConsole {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if tty {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(&lockedWriter{w: w}), level)
	return zap.New(core).Sugar()
}

// writeMu serialises writes across rebuilt loggers sharing one writer.
var writeMu sync.Mutex

type lockedWriter struct {
	w io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	writeMu.Lock()
	defer writeMu.Unlock()
	return l.w.Write(p)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a formatted message if verbose mode is enabled.
func Debug(format string, args ...any) {
	current().Debugf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		writeMu.Lock()
		defer writeMu.Unlock()
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info logs a formatted informational message.
func Info(format string, args ...any) {
	current().Infof(format, args...)
}

// Warn logs a formatted warning.
func Warn(format string, args ...any) {
	current().Warnf(format, args...)
}

// Error logs a formatted error.
func Error(format string, args ...any) {
	current().Errorf(format, args...)
}

// Debugw logs a message with key-value pairs if verbose mode is enabled.
func Debugw(msg string, keysAndValues ...any) {
	current().Debugw(msg, keysAndValues...)
}

// Infow logs a message with key-value pairs.
func Infow(msg string, keysAndValues ...any) {
	current().Infow(msg, keysAndValues...)
}

// Warnw logs a warning with key-value pairs.
func Warnw(msg string, keysAndValues ...any) {
	current().Warnw(msg, keysAndValues...)
}

// Errorw logs an error with key-value pairs.
func Errorw(msg string, keysAndValues ...any) {
	current().Errorw(msg, keysAndValues...)
}
