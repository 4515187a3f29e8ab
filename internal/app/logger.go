package app

import (
	"strings"

	"github.com/otslabs/tsgallery/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server config.
// Levels are case-insensitive and an empty value means info.
func ConfigureLogging(level string) error {
	return logger.Init(strings.ToLower(strings.TrimSpace(level)))
}
