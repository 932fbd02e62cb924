package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// resolveEnvString resolves environment variable indirection in the format
// "os.environ/VAR_NAME". A value not in that format is returned unchanged.
func resolveEnvString(value string) string {
	const prefix = "os.environ/"
	if strings.HasPrefix(value, prefix) {
		return os.Getenv(strings.TrimPrefix(value, prefix))
	}
	return value
}

type parseFunc[T any] func(string) (T, error)

func resolveEnvValue[T any](value string, defaultValue T, parser parseFunc[T], typeName string) (T, error) {
	if value == "" {
		return defaultValue, nil
	}
	resolved := resolveEnvString(value)
	if resolved == "" {
		return defaultValue, nil
	}
	parsed, err := parser(resolved)
	if err != nil {
		return defaultValue, fmt.Errorf("failed to parse %s from %q: %w", typeName, resolved, err)
	}
	return parsed, nil
}

func resolveEnvInt(value string, defaultValue int) (int, error) {
	return resolveEnvValue(value, defaultValue, strconv.Atoi, "int")
}

func resolveEnvFloat(value string, defaultValue float64) (float64, error) {
	return resolveEnvValue(value, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}, "float")
}

func resolveEnvBool(value string, defaultValue bool) (bool, error) {
	return resolveEnvValue(value, defaultValue, strconv.ParseBool, "bool")
}

func resolveEnvDuration(value string, defaultValue time.Duration) (time.Duration, error) {
	return resolveEnvValue(value, defaultValue, time.ParseDuration, "duration")
}
