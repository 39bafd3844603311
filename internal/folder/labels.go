package folder

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	LabelModeSplit     = "split"
	LabelModeIncrement = "increment"

	fallbackCurrent = "Custom text1"
	fallbackNext    = "Custom text2"
)

// Labels are the two label lines derived from a folder name.
type Labels struct {
	Current string
	Next    string
	// Parsed is false when either label had to fall back to its placeholder.
	Parsed bool
}

// ParseLabels derives the label pair from a folder name.
//
// In split mode "CGK05-070 - CGK05-071" yields Current "CGK05-070" and Next
// "CGK05-071"; a missing part falls back to "Custom text1"/"Custom text2".
//
// In increment mode the name itself is Current and Next is the name with its
// trailing number incremented, keeping zero padding ("CGK05-070" gives
// "CGK05-071", width at least 3). A name without a trailing number gets Next
// "Custom text2".
func ParseLabels(name, mode, delimiter string) Labels {
	switch mode {
	case LabelModeIncrement:
		next, ok := IncrementLabel(name)
		if !ok {
			return Labels{Current: name, Next: fallbackNext}
		}
		return Labels{Current: name, Next: next, Parsed: true}
	default:
		if delimiter == "" {
			delimiter = " - "
		}
		parts := strings.Split(name, delimiter)
		l := Labels{Current: fallbackCurrent, Next: fallbackNext}
		if len(parts) > 0 && parts[0] != "" {
			l.Current = parts[0]
		}
		if len(parts) > 1 {
			l.Next = parts[1]
		}
		l.Parsed = len(parts) > 1 && parts[0] != ""
		return l
	}
}

// IncrementLabel increments the trailing digit run of s.
func IncrementLabel(s string) (string, bool) {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == end {
		return "", false
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return "", false
	}
	width := end - start
	if width < 3 {
		width = 3
	}
	return fmt.Sprintf("%s%0*d", s[:start], width, n+1), true
}
