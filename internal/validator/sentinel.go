package validator

import "strings"

// Placeholder markers left in mapping templates for rows nobody has filled in.
var sentinelMarkers = []string{"-.-", "[Auto-detected", "[Configure"}

// IsSentinel reports whether a table or column value is a template
// placeholder rather than a real identifier. Empty values count as
// placeholders.
func IsSentinel(value string) bool {
	v := strings.TrimSpace(value)
	switch v {
	case "", "Source", "Target":
		return true
	}
	for _, m := range sentinelMarkers {
		if strings.Contains(v, m) {
			return true
		}
	}
	return false
}

// IsSentinelColumn is IsSentinel plus the "Unknown" column placeholder.
func IsSentinelColumn(value string) bool {
	return IsSentinel(value) || strings.TrimSpace(value) == "Unknown"
}
