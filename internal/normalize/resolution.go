package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Minutes per coarse resolution unit.
const (
	MinutesPerMonth   = 43200
	MinutesPerDay     = 1440
	MinutesPerHour    = 60
	DefaultResolution = 60
)

var leadingNumber = regexp.MustCompile(`(\d+)`)

// ResolutionToMinutes parses a free-text resolution descriptor. Rules are
// checked in order: month, day, hour (hr, 1h), min; anything else is 60.
// The match order is a compatibility contract.
func ResolutionToMinutes(resolution string) int {
	s := strings.ToLower(strings.TrimSpace(resolution))

	num := 0
	if m := leadingNumber.FindStringSubmatch(s); m != nil {
		num, _ = strconv.Atoi(m[1])
	}

	switch {
	case strings.Contains(s, "month"):
		return MinutesPerMonth
	case strings.Contains(s, "day") || strings.Contains(s, "daily"):
		return MinutesPerDay
	case strings.Contains(s, "hour") || strings.Contains(s, "hr") || strings.Contains(s, "1h"):
		if num > 0 {
			return num * MinutesPerHour
		}
		return MinutesPerHour
	case strings.Contains(s, "min"):
		if num > 0 {
			return num
		}
		return DefaultResolution
	default:
		return DefaultResolution
	}
}
