// Package sysutil holds process-level helpers: logger construction,
// log-level parsing and small env string helpers.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level. Names are trimmed and
// case-insensitive; "warning" is accepted for warn. Empty or unknown names
// yield info.
func ParseLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || lvl == zerolog.NoLevel || lvl == zerolog.Disabled || lvl == zerolog.TraceLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetLogLevel sets the global zerolog level from a name (see ParseLevel).
func SetLogLevel(name string) {
	zerolog.SetGlobalLevel(ParseLevel(name))
}

// ParseFlag interprets an env-style boolean. ok is false when v is neither
// a true form (1, true, yes, y, on) nor a false form (0, false, no, n, off).
func ParseFlag(v string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}

// IsTruthy reports whether v is a true form.
func IsTruthy(v string) bool {
	b, _ := ParseFlag(v)
	return b
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
