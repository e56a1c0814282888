package logger

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps the LOG_LEVEL names used by the deployment to zerolog levels.
// CRITICAL has no zerolog counterpart and maps to fatal.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "", "INFO":
		return zerolog.InfoLevel, nil
	case "WARNING", "WARN":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "CRITICAL":
		return zerolog.FatalLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Setup configures the global zerolog logger. Production emits JSON lines,
// development a human readable console stream.
func Setup(level string, production bool) {
	lvl, err := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if production {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
			With().Timestamp().Logger()
	}

	if err != nil {
		log.Warn().Err(err).Msg("Falling back to INFO log level")
	}
}

// LevelCounter implements zerolog.Hook and counts warnings and errors,
// so a run summary can report how noisy the run was.
type LevelCounter struct {
	warnings atomic.Int64
	errors   atomic.Int64
}

// NewLevelCounter creates an empty counter
func NewLevelCounter() *LevelCounter {
	return &LevelCounter{}
}

// Run implements zerolog.Hook.Run
func (c *LevelCounter) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	switch {
	case level == zerolog.WarnLevel:
		c.warnings.Add(1)
	case level >= zerolog.ErrorLevel && level < zerolog.NoLevel:
		c.errors.Add(1)
	}
}

// Warnings returns the number of warnings seen so far
func (c *LevelCounter) Warnings() int64 {
	return c.warnings.Load()
}

// Errors returns the number of error, fatal and panic events seen so far
func (c *LevelCounter) Errors() int64 {
	return c.errors.Load()
}

// Reset zeroes both counters
func (c *LevelCounter) Reset() {
	c.warnings.Store(0)
	c.errors.Store(0)
}

// Attach adds the counter to the global logger
func (c *LevelCounter) Attach() {
	log.Logger = log.Logger.Hook(c)
}
