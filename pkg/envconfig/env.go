package envconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// LoadDotEnv loads variables from the given files (".env" when none are given) without
// overriding values already present in the environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Get returns the value of the requested environment variable or the supplied fallback when empty.
func Get(name string, fallback string) string {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value
	}
	return fallback
}

// GetDuration parses the requested environment variable as a time.Duration.
func GetDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := Get(name, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", name, err)
	}
	return d, nil
}

// GetBool parses the requested environment variable as a boolean.
func GetBool(name string, fallback bool) (bool, error) {
	raw := Get(name, "")
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("env %s: %w", name, err)
	}
	return b, nil
}

// GetInt parses the requested environment variable as an int.
func GetInt(name string, fallback int) (int, error) {
	raw := Get(name, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", name, err)
	}
	return n, nil
}

// GetList splits a comma separated variable, dropping blank entries.
func GetList(name string) []string {
	var out []string
	for _, part := range strings.Split(Get(name, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates a struct using validator tags.
func Validate(v any) error {
	return validate.Struct(v)
}
