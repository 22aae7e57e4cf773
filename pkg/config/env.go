// Package config reads service configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given files (".env" when none are given).
// Variables already present in the environment win. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func Env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func Int(k string, def int) int {
	v, err := strconv.Atoi(Env(k, ""))
	if err != nil {
		return def
	}
	return v
}

func Float(k string, def float64) float64 {
	v, err := strconv.ParseFloat(Env(k, ""), 64)
	if err != nil {
		return def
	}
	return v
}

// Duration parses Go duration syntax ("250ms", "5s").
func Duration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(Env(k, ""))
	if err != nil {
		return def
	}
	return v
}

func Bool(k string, def bool) bool {
	v, err := strconv.ParseBool(Env(k, ""))
	if err != nil {
		return def
	}
	return v
}

// CSV splits a comma separated variable, dropping blanks.
func CSV(k string, def []string) []string {
	raw := Env(k, "")
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
