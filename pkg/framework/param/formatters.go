package param

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeFormatter formats time values with appropriate units
func TimeFormatter(ms float64) string {
	if ms < 1 {
		return fmt.Sprintf("%.2f µs", ms*1000)
	} else if ms < 1000 {
		return fmt.Sprintf("%.1f ms", ms)
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

// TimeParser parses time strings into milliseconds. A bare number is
// milliseconds.
func TimeParser(str string) (float64, error) {
	str = strings.TrimSpace(str)

	switch {
	case strings.HasSuffix(str, "µs"), strings.HasSuffix(str, "us"):
		v, err := parseNumber(strings.TrimSuffix(strings.TrimSuffix(str, "µs"), "us"))
		return v / 1000, err
	case strings.HasSuffix(str, "ms"):
		return parseNumber(strings.TrimSuffix(str, "ms"))
	case strings.HasSuffix(str, "s"):
		v, err := parseNumber(strings.TrimSuffix(str, "s"))
		return v * 1000, err
	}
	return parseNumber(str)
}

// LevelFormatter formats a 0-1 gain level as a percentage.
func LevelFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value*100)
}

// LevelParser parses "50%" as 0.5. A bare number is taken as the level itself.
func LevelParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	if strings.HasSuffix(str, "%") {
		v, err := parseNumber(strings.TrimSuffix(str, "%"))
		return v / 100, err
	}
	return parseNumber(str)
}

// DecibelFormatter formats dB values
func DecibelFormatter(db float64) string {
	return fmt.Sprintf("%.1f dB", db)
}

// DecibelParser parses dB strings
func DecibelParser(str string) (float64, error) {
	str = strings.TrimSuffix(strings.TrimSpace(str), "dB")
	str = strings.TrimSuffix(strings.TrimSpace(str), "db")
	return parseNumber(str)
}

// CurveFormatter formats a curve amount.
func CurveFormatter(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

// OnOffFormatter formats boolean as On/Off
func OnOffFormatter(value float64) string {
	if value > 0.5 {
		return "On"
	}
	return "Off"
}

// OnOffParser parses On/Off strings
func OnOffParser(str string) (float64, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	switch str {
	case "on", "yes", "true", "1":
		return 1, nil
	case "off", "no", "false", "0":
		return 0, nil
	default:
		return 0, fmt.Errorf("expected 'on' or 'off', got: %s", str)
	}
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
