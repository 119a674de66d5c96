// Package logx wires a zerolog logger per subsystem name.
//
// The teacher (dieselvk/core.go) opened three *log.Logger file sinks
// (info/warn/error) at startup and passed them around by hand. We keep
// the "one logger per concern" shape but route everything through a
// single structured zerolog.Logger tagged with a "subsystem" field
// instead of three separate files.
package logx

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var debug = os.Getenv("VKENGINE_DEBUG") != ""

// New returns a logger tagged with subsystem, writing to stderr.
// In debug builds (VKENGINE_DEBUG set) output goes through zerolog's
// human-readable console writer; otherwise it's newline-delimited JSON
// suitable for log aggregation.
func New(subsystem string) zerolog.Logger {
	var w = os.Stderr
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(cw).Level(level).With().Timestamp().Str("subsystem", subsystem).Logger()
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("subsystem", subsystem).Logger()
}

// Debug reports whether debug-level logging (and validation) is enabled.
func Debug() bool { return debug }
