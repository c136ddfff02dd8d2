package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for MCP serve mode and installs the
// logger as the default. The MCP protocol owns stdout exclusively for
// JSON-RPC, and stderr is visible to some MCP clients, so serve-mode logs
// go to the log file and nowhere else. An empty level means debug: file
// logs are the only serve-mode diagnostics, so keep them complete.
func SetupMCPMode(level string) (func(), error) {
	if level == "" {
		level = "debug"
	}

	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)

	slog.Info("mcp mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
