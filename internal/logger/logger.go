package logger

import (
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const localsKey = "logger"

// New builds the process logger. Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Attach stores the logger on the request so handlers deep in the stack can reach it.
func Attach(log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localsKey, log)
		return c.Next()
	}
}

// From returns a request-scoped entry carrying the request id and route.
func From(c *fiber.Ctx) *logrus.Entry {
	log, ok := c.Locals(localsKey).(*logrus.Logger)
	if !ok || log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	})
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		entry = entry.WithField("request_id", rid)
	}
	return entry
}
