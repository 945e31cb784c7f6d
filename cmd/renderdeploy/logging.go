package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"renderdeploy/internal/security"

	"github.com/google/uuid"
)

// setupLogging configures slog on w, tagging every record with a run id.
// When logPath is set, records are written as JSON to both w and the file.
// The returned cleanup closes the log file.
func setupLogging(w io.Writer, logPath string, debug bool, secrets []string) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr(secrets),
	}

	cleanup := func() {}
	var handler slog.Handler
	if logPath == "" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		// Create log directory if needed
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		// Open log file with secure permissions
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup = func() { file.Close() }

		handler = slog.NewJSONHandler(io.MultiWriter(w, file), opts)
	}

	logger := slog.New(handler).With("run_id", uuid.NewString())
	return logger, cleanup, nil
}

// redactAttr scrubs secrets from string and error attribute values
func redactAttr(secrets []string) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		switch a.Value.Kind() {
		case slog.KindString:
			a.Value = slog.StringValue(security.Redact(a.Value.String(), secrets...))
		case slog.KindAny:
			if err, ok := a.Value.Any().(error); ok {
				a.Value = slog.StringValue(security.Redact(err.Error(), secrets...))
			}
		}
		return a
	}
}

// redactError renders err with every known secret removed
func redactError(err error) string {
	known := append([]string{apiKey, githubToken, os.Getenv("RENDER_API_KEY")}, secrets...)
	return security.Redact(err.Error(), known...)
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
