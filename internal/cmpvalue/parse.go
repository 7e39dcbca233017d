// Package cmpvalue converts raw CMP response values into typed Go values.
// The service returns every field as a string (or list of strings); Parse
// recovers numbers, booleans, timestamps and nested lists from that encoding.
package cmpvalue

import (
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// isoLayouts cover the timestamp shapes the service emits, with and without
// fractional seconds or a zone offset.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// clockLayout parses the "MM/DD/YYYY hh:mm AM/PM" shape some report fields use.
const clockLayout = "1/2/2006 3:04 PM"

// Parse converts a raw response value to its typed form. Lists are parsed
// element-wise. The check order is load-bearing: integer before float, and
// date shapes only after numeric and boolean checks fail. Parse never fails;
// anything unrecognized comes back unchanged.
func Parse(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Parse(item)
		}
		return out
	case string:
		return parseString(x)
	default:
		return v
	}
}

func parseString(s string) any {
	if s == "" || s == "null" || s == "None" {
		return nil
	}

	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}

	if isDigits(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	if strings.Contains(s, "T") {
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}

	if strings.Contains(s, "AM") || strings.Contains(s, "PM") {
		if t, err := time.Parse(clockLayout, s); err == nil {
			return t
		}
	}

	// Some fields embed whole tables as a JSON list in a string value.
	if strings.HasPrefix(strings.TrimSpace(s), "[") {
		var list []any
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return Parse(list)
		}
	}

	return s
}

// isDigits reports whether s is non-empty and made of ASCII digits only.
// A leading sign disqualifies the string, matching the wire convention that
// negatives arrive as decimals.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
