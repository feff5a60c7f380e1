package ini

import (
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Flavor converts values between their stored and in-memory forms.
type Flavor struct {
	Name   string
	Encode func(value string) string
	Decode func(stored string) string
}

// INI keeps values as they are.
var INI = Flavor{
	Name:   "ini",
	Encode: func(v string) string { return v },
	Decode: func(v string) string { return v },
}

// TOML quotes string values on write and unquotes them on read. Booleans,
// numbers and inline tables or arrays are written bare.
var TOML = Flavor{
	Name:   "toml",
	Encode: encodeTOML,
	Decode: decodeTOML,
}

func encodeTOML(v string) string {
	if bareTOML(v) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

func bareTOML(v string) bool {
	if v == "true" || v == "false" {
		return true
	}
	if _, err := strconv.ParseUint(v, 10, 64); err == nil {
		return true
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return true
	}
	t := strings.TrimSpace(v)
	return (strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}")) ||
		(strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"))
}

func decodeTOML(stored string) string {
	t := strings.TrimSpace(stored)
	if !strings.HasPrefix(t, `"`) && !strings.HasSuffix(t, `"`) {
		return stored
	}

	var doc map[string]any
	if err := toml.Unmarshal([]byte("v = "+t), &doc); err == nil {
		if s, ok := doc["v"].(string); ok {
			return s
		}
	}
	// Not a valid basic string, drop the quotes as they are.
	t = strings.TrimPrefix(t, `"`)
	t = strings.TrimSuffix(t, `"`)
	return strings.TrimSpace(t)
}
