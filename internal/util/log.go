package util

import (
	"fmt"
	"io"
	"os"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// label and color of each console line kind
type lineStyle struct {
	level LogLevel
	tag   string
	color string
}

var (
	debugStyle   = lineStyle{LevelDebug, "[DEBUG]", "\033[90m"}
	infoStyle    = lineStyle{LevelInfo, "[INFO] ", "\033[36m"}
	successStyle = lineStyle{LevelInfo, "[OK]   ", "\033[32m"}
	warnStyle    = lineStyle{LevelWarn, "[WARN] ", "\033[33m"}
	errorStyle   = lineStyle{LevelError, "[ERROR]", "\033[31m"}
)

var (
	currentLogLevel           = LevelInfo
	logOutput       io.Writer = os.Stderr
	useColors                 = IsTerminal(os.Stderr.Fd())
)

// SetLogLevel sets the minimum log level to display
func SetLogLevel(level LogLevel) {
	currentLogLevel = level
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		currentLogLevel = LevelDebug
	}
}

// SetQuiet enables quiet mode (errors only)
func SetQuiet(quiet bool) {
	if quiet {
		currentLogLevel = LevelError
	}
}

// IsQuiet reports whether only errors are printed
func IsQuiet() bool {
	return currentLogLevel >= LevelError
}

// SetColors enables or disables colored output
func SetColors(enabled bool) {
	useColors = enabled
}

// SetOutput redirects console logging and returns the previous writer.
// Colors are turned off unless w is the terminal stderr.
func SetOutput(w io.Writer) io.Writer {
	prev := logOutput
	logOutput = w
	useColors = w == os.Stderr && IsTerminal(os.Stderr.Fd())
	return prev
}

func logLine(style lineStyle, format string, args []interface{}) {
	if currentLogLevel > style.level {
		return
	}
	stamp := time.Now().Format("15:04:05")
	if useColors {
		stamp = style.color + stamp + "\033[0m"
	}
	fmt.Fprintf(logOutput, "%s %s %s\n", stamp, style.tag, fmt.Sprintf(format, args...))
}

// DebugLog logs debug messages
func DebugLog(format string, args ...interface{}) { logLine(debugStyle, format, args) }

// InfoLog logs informational messages
func InfoLog(format string, args ...interface{}) { logLine(infoStyle, format, args) }

// WarnLog logs warning messages
func WarnLog(format string, args ...interface{}) { logLine(warnStyle, format, args) }

// ErrorLog logs error messages
func ErrorLog(format string, args ...interface{}) { logLine(errorStyle, format, args) }

// SuccessLog logs success messages (shown at info level)
func SuccessLog(format string, args ...interface{}) { logLine(successStyle, format, args) }
