package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

// envPrefix prefixes every environment setting.
const envPrefix = "SHEETC_"

// Config holds the settings of one sheetc invocation. Flags win over the
// process environment, which wins over the env file.
type Config struct {
	Debug             bool
	NoColor           bool
	LinksDir          string
	MaxLoopIterations int
	ResetLocals       bool
	Translated        bool
	Concurrency       int
}

// readEnv returns the process environment overlaid on the settings of
// file. A missing file is not an error.
func readEnv(file string) (func(string) string, error) {
	fromFile := map[string]string{}
	if file != "" {
		m, err := godotenv.Read(file)
		switch {
		case err == nil:
			fromFile = m
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read env file %s: %w", file, err)
		}
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fromFile[key]
	}, nil
}

// loadConfig completes cfg, already holding the flag values, with the
// environment for every flag that was not set explicitly.
func loadConfig(cfg Config, changed func(flag string) bool, getenv func(string) string) (Config, error) {
	var errs []error
	boolSetting := func(flag, key string, dst *bool) {
		if changed(flag) {
			return
		}
		if v := getenv(envPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	intSetting := func(flag, key string, dst *int) {
		if changed(flag) {
			return
		}
		if v := getenv(envPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	boolSetting("debug", "DEBUG", &cfg.Debug)
	boolSetting("no-color", "NO_COLOR", &cfg.NoColor)
	boolSetting("reset-locals", "RESET_LOCALS", &cfg.ResetLocals)
	boolSetting("translated", "TRANSLATED", &cfg.Translated)
	intSetting("max-loop-iterations", "MAX_LOOP_ITERATIONS", &cfg.MaxLoopIterations)
	intSetting("jobs", "JOBS", &cfg.Concurrency)
	if !changed("links") {
		if v := getenv(envPrefix + "LINKS"); v != "" {
			cfg.LinksDir = v
		}
	}
	if getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}

	if cfg.MaxLoopIterations < 0 {
		errs = append(errs, fmt.Errorf("max loop iterations must not be negative, got %d", cfg.MaxLoopIterations))
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	return cfg, errors.Join(errs...)
}
