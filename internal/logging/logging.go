// Package logging configures the process-wide logrus logger from the
// log section of the config.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/b0ase/path402/apps/poeminter/internal/config"
)

var base = logrus.New()

// Setup applies level and format. Unknown levels fall back to info; any
// format other than "json" renders as text.
func Setup(cfg config.LogConfig) *logrus.Logger {
	return SetupWriter(cfg, os.Stderr)
}

// SetupWriter is Setup with an explicit sink. The MCP stdio transport owns
// stdout, so callers must never point this at os.Stdout in that mode.
func SetupWriter(cfg config.LogConfig, w io.Writer) *logrus.Logger {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)
	base.SetOutput(w)

	if strings.EqualFold(cfg.Format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return base
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// Logger exposes the underlying logger.
func Logger() *logrus.Logger {
	return base
}
