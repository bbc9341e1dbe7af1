package logger

import (
	"os"

	"github.com/rizkirmdhn/vidsweep/internal/common/config"
	"github.com/sirupsen/logrus"
)

// ComponentLogger wraps logrus.Logger to provide consistent component logging
type ComponentLogger struct {
	*logrus.Logger
	component string
	fields    logrus.Fields
}

// New creates a new logrus logger with standard configuration
func New(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.Level(cfg.App.LogLevel))
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:   cfg.App.Env != "production",
		DisableColors: cfg.App.Env == "production",
		FullTimestamp: true,
	})

	return log
}

// NewComponentLogger creates a logger with a component field
func NewComponentLogger(log *logrus.Logger, component string) *ComponentLogger {
	return &ComponentLogger{
		Logger:    log,
		component: component,
		fields:    logrus.Fields{},
	}
}

// With returns a copy of the logger that adds key to every entry
func (c *ComponentLogger) With(key string, value interface{}) *ComponentLogger {
	fields := make(logrus.Fields, len(c.fields)+1)
	for k, v := range c.fields {
		fields[k] = v
	}
	fields[key] = value
	return &ComponentLogger{
		Logger:    c.Logger,
		component: c.component,
		fields:    fields,
	}
}

// Entry returns an entry carrying the component and the bound fields
func (c *ComponentLogger) Entry() *logrus.Entry {
	return c.WithFields(logrus.Fields{})
}

// WithField adds a field to the log entry
func (c *ComponentLogger) WithField(key string, value interface{}) *logrus.Entry {
	return c.WithFields(logrus.Fields{key: value})
}

// WithFields adds multiple fields to the log entry, always including component
func (c *ComponentLogger) WithFields(fields logrus.Fields) *logrus.Entry {
	merged := make(logrus.Fields, len(c.fields)+len(fields)+1)
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	if _, exists := merged["component"]; !exists {
		merged["component"] = c.component
	}
	return c.Logger.WithFields(merged)
}

// WithError adds an error field to the log entry
func (c *ComponentLogger) WithError(err error) *logrus.Entry {
	return c.WithFields(logrus.Fields{logrus.ErrorKey: err})
}
