package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// MustGetEnvString panics if the env var is not set - use for required secrets
func MustGetEnvString(envName string) string {
	v, err := GetEnvString(envName)
	if err != nil {
		panic(fmt.Sprintf("REQUIRED environment variable missing or empty: %s", envName))
	}
	return v
}

// GetEnvStringOrDefault returns the env value or a default if not set
func GetEnvStringOrDefault(envName, defaultValue string) string {
	v, err := GetEnvString(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvBoolOrDefault returns the env value or a default if not set
func GetEnvBoolOrDefault(envName string, defaultValue bool) bool {
	v, err := GetEnvBool(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvIntOrDefault returns the env value or a default if not set
func GetEnvIntOrDefault(envName string, defaultValue int) int {
	v, err := GetEnvInt(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvDurationOrDefault returns the env value as duration or a default if not set
func GetEnvDurationOrDefault(envName string, defaultValue time.Duration) time.Duration {
	v, err := GetEnvString(envName)
	if err != nil {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func SanitizeEnv(envName string) (string, error) {
	if len(envName) == 0 {
		return "", errors.New("Environment Variable Name Should Not Empty")
	}

	retValue := strings.TrimSpace(os.Getenv(envName))
	if len(retValue) == 0 {
		return "", errors.New("Environment Variable '" + envName + "' Has an Empty Value")
	}

	return retValue, nil
}

func GetEnvString(envName string) (string, error) {
	return SanitizeEnv(envName)
}

func GetEnvBool(envName string) (bool, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return false, err
	}

	return strconv.ParseBool(envValue)
}

func GetEnvInt(envName string) (int, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return 0, err
	}

	retValue, err := strconv.ParseInt(envValue, 0, 0)
	if err != nil {
		return 0, err
	}

	return int(retValue), nil
}
