package workforce

import (
	"fmt"
	"strconv"
	"strings"
)

// textualLevels is the fixed mapping for proficiency labels seen in imports.
var textualLevels = map[string]Level{
	"beginner":     1,
	"elementary":   2,
	"intermediate": 3,
	"advanced":     4,
	"expert":       5,
}

// ParseLevel normalizes a boundary level value into the canonical 1..5 scale.
// Accepted inputs are integers, numeric strings ("4", "L4") and the textual
// labels beginner, elementary, intermediate, advanced and expert.
func ParseLevel(v any) (Level, error) {
	switch typed := v.(type) {
	case Level:
		return checkLevel(int(typed), v)
	case int:
		return checkLevel(typed, v)
	case int64:
		return checkLevel(int(typed), v)
	case float64:
		if typed != float64(int(typed)) {
			return LevelNone, fmt.Errorf("%w: level %v is not an integer", ErrInvalidInput, v)
		}
		return checkLevel(int(typed), v)
	case string:
		return parseLevelString(typed)
	case nil:
		return LevelNone, fmt.Errorf("%w: level is missing", ErrInvalidInput)
	default:
		return LevelNone, fmt.Errorf("%w: unsupported level type %T", ErrInvalidInput, v)
	}
}

func parseLevelString(raw string) (Level, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return LevelNone, fmt.Errorf("%w: level is empty", ErrInvalidInput)
	}

	if level, ok := textualLevels[s]; ok {
		return level, nil
	}

	s = strings.TrimPrefix(s, "l")
	n, err := strconv.Atoi(s)
	if err != nil {
		return LevelNone, fmt.Errorf("%w: unknown level %q", ErrInvalidInput, raw)
	}

	return checkLevel(n, raw)
}

func checkLevel(n int, raw any) (Level, error) {
	level := Level(n)
	if !level.Valid() {
		return LevelNone, fmt.Errorf("%w: level %v is outside %d..%d", ErrInvalidInput, raw, LevelMin, LevelMax)
	}
	return level, nil
}
