/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

package droidtimeline

import (
	"io"

	"github.com/BurntSushi/toml"
	"github.com/imdario/mergo"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// EnvPrefix is the prefix of all environment variables read by LoadConfig.
const EnvPrefix = "DROIDTIMELINE"

// Config holds the settings of a processing run.
type Config struct {
	Workers         int      `toml:"workers" envconfig:"WORKERS"`
	LogLevel        string   `toml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat       string   `toml:"log_format" envconfig:"LOG_FORMAT"`
	Apps            []string `toml:"apps" envconfig:"APPS"`
	RunHeavySources bool     `toml:"run_heavy_sources" envconfig:"RUN_HEAVY_SOURCES"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// LoadConfig layers the defaults, the TOML file at path (if path is not empty)
// and the environment. Later layers override set fields of earlier ones.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		var file Config
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return cfg, errors.Wrapf(err, "could not read config %s", path)
		}
		if err := Override(&cfg, file); err != nil {
			return cfg, err
		}
	}

	var env Config
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return cfg, errors.Wrap(err, "could not read environment")
	}
	if err := Override(&cfg, env); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Override copies all non zero fields of src into cfg.
func Override(cfg *Config, src Config) error {
	return mergo.Merge(cfg, src, mergo.WithOverride)
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return errors.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// NewLogger creates the logger described by c writing to w.
func (c Config) NewLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.Nop(), errors.Wrap(err, "invalid log level")
	}
	if c.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
