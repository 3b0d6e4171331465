package main

import (
	"path/filepath"

	"github.com/franz/repertoire/internal/codec"
	"github.com/franz/repertoire/internal/report"
	"github.com/franz/repertoire/internal/util"
	"github.com/spf13/viper"
)

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (RPR_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigBool retrieves a bool config value
func GetConfigBool(key string) bool {
	return viper.GetBool(key)
}

// dataPaths resolves the pieces and setlists files. Absolute file names
// ignore --data-dir.
func dataPaths() codec.Paths {
	dir := GetConfigString("data-dir", ".")
	paths := codec.DefaultPaths(dir)
	if name := GetConfigString("pieces", ""); name != "" {
		paths.Pieces = underDir(dir, name)
	}
	if name := GetConfigString("setlists", ""); name != "" {
		paths.Setlists = underDir(dir, name)
	}
	return paths
}

func underDir(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// eventLogLevel follows the console verbosity
func eventLogLevel() report.EventLevel {
	switch {
	case GetConfigBool("quiet"):
		return report.LevelWarning
	case GetConfigBool("verbose"):
		return report.LevelDebug
	default:
		return report.LevelInfo
	}
}

// openEventLog opens the JSONL event log, falling back to the null logger
func openEventLog() *report.EventLogger {
	dir := viper.GetString("event-log")
	if dir == "" {
		return report.NullLogger()
	}
	logger, err := report.NewEventLogger(dir, eventLogLevel())
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	return logger
}
