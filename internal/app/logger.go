package app

import (
	"strings"

	"github.com/charlesng35/partyd/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server settings, defaulting to
// info level with JSON output.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	encoding := strings.TrimSpace(cfg.LogEncoding)
	if encoding == "" {
		encoding = "json"
	}
	return logger.Init(level, encoding)
}
