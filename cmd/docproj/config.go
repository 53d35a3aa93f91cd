package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to the environment variable of every config
// field.
const envPrefix = "DOCPROJ_"

// config holds the options of a find command. Values are read from the
// YAML file given with --config, then from the environment and finally from
// the command line flags.
type config struct {
	Data                  string  `yaml:"data" env:"DATA"`
	SQLite                string  `yaml:"sqlite" env:"SQLITE"`
	SQL                   string  `yaml:"sql" env:"SQL"`
	Filter                string  `yaml:"filter" env:"FILTER"`
	Projection            string  `yaml:"projection" env:"PROJECTION"`
	Sort                  string  `yaml:"sort" env:"SORT"`
	Skip                  int64   `yaml:"skip" env:"SKIP"`
	Limit                 int64   `yaml:"limit" env:"LIMIT"`
	AllMatches            bool    `yaml:"allMatches" env:"ALL_MATCHES"`
	CorruptAlertThreshold float64 `yaml:"corruptAlertThreshold" env:"CORRUPT_ALERT_THRESHOLD"`
	Verbose               bool    `yaml:"verbose" env:"VERBOSE"`
}

func defaultConfig() config {
	return config{
		SQL: "SELECT doc FROM documents",
	}
}

// loadConfig reads the config file, if any, and overlays it with the
// environment.
func loadConfig(path string, environ map[string]string) (config, error) {
	cfg := defaultConfig()
	if path != "" {
		if err := readConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string, cfg *config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}
