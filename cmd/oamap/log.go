package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/natefinch/lumberjack"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("main")

var stdoutLogFormat = logging.MustStringFormatter(
	`%{color:reset}%{color}%{time:15:04:05.000} [%{module}] [%{level}] %{message}`,
)

var fileLogFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} [%{module}] [%{shortfunc}] [%{level}] %{message}`,
)

// logFile is the rotating writer behind --logfile, if any.
var logFile *lumberjack.Logger

func parseLevel(s string) (logging.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return logging.DEBUG, nil
	case "info":
		return logging.INFO, nil
	case "notice":
		return logging.NOTICE, nil
	case "", "warning":
		return logging.WARNING, nil
	case "error":
		return logging.ERROR, nil
	case "critical":
		return logging.CRITICAL, nil
	default:
		return logging.WARNING, fmt.Errorf("unknown log level %q", s)
	}
}

// setupLogging installs the backends selected by o and applies its level
// to every module, the library's included. Without --verbose or --logfile
// go-logging's default stderr backend stays in place.
func setupLogging(o Options) error {
	level, err := parseLevel(o.LogLevel)
	if err != nil {
		return err
	}

	var backends []logging.Backend
	if o.Verbose {
		backendStdout := logging.NewLogBackend(os.Stderr, "", 0)
		backends = append(backends, logging.NewBackendFormatter(backendStdout, stdoutLogFormat))
	}
	if o.LogFile != "" {
		path, err := homedir.Expand(filepath.Clean(o.LogFile))
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		logFile = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // Megabytes
			MaxBackups: 3,
			MaxAge:     30, // Days
		}
		backendFile := logging.NewLogBackend(logFile, "", 0)
		backends = append(backends, logging.NewBackendFormatter(backendFile, fileLogFormat))
	}
	if len(backends) > 0 {
		logging.SetBackend(backends...)
	}
	logging.SetLevel(level, "")
	logging.SetLevel(level, "oamap")
	return nil
}

func closeLogging() {
	if logFile != nil {
		if err := logFile.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "closing log file:", err)
		}
		logFile = nil
	}
}
