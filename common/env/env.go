// Package env reads typed configuration values from the process environment,
// the way common/config builds its package-level vars.
package env

import (
	"os"
	"strconv"
)

// String returns the environment variable or def when unset.
func String(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// Int parses the environment variable as an integer, falling back to def on
// absence or parse failure.
func Int(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool parses the environment variable as a boolean, falling back to def on
// absence or parse failure.
func Bool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Float64 parses the environment variable as a float64, falling back to def
// on absence or parse failure.
func Float64(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
