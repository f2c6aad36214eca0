package orchestrator

import (
	"fmt"
	"strings"
)

// Level gates how many plugins take part in a request. Each level invokes a
// strict superset of the plugins invoked by the level below it.
type Level int

const (
	// LevelBasic runs the compliance pipeline only.
	LevelBasic Level = iota
	// LevelStandard adds the extended systems.
	LevelStandard
	// LevelDetailed adds every other registered plugin.
	LevelDetailed
)

// DefaultLevel is used when no level, or an unknown one, is requested.
const DefaultLevel = LevelStandard

// Levels lists every level from least to most thorough.
var Levels = []Level{LevelBasic, LevelStandard, LevelDetailed}

func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelStandard:
		return "standard"
	case LevelDetailed:
		return "detailed"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel parses a level name, ignoring case and surrounding whitespace.
// Unlike NormalizeLevel it rejects unknown names.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return LevelBasic, nil
	case "standard":
		return LevelStandard, nil
	case "detailed":
		return LevelDetailed, nil
	default:
		return DefaultLevel, fmt.Errorf("invalid processing level %q: must be 'basic', 'standard', or 'detailed'", s)
	}
}

// NormalizeLevel parses s leniently: empty or unknown names yield
// DefaultLevel.
func NormalizeLevel(s string) Level {
	l, err := ParseLevel(s)
	if err != nil {
		return DefaultLevel
	}
	return l
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It is lenient in the
// same way as NormalizeLevel.
func (l *Level) UnmarshalText(text []byte) error {
	*l = NormalizeLevel(string(text))
	return nil
}
