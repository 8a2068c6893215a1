// Package config holds jsonbbench run settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/weiihann/jsonbbench/harness"
	"github.com/weiihann/jsonbbench/workload"
	"gopkg.in/yaml.v3"
)

// Config is the full set of run settings. Field tags name the YAML keys.
type Config struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	Duration    time.Duration `yaml:"duration"`
	SampleEvery int           `yaml:"sample_every"`
	Users       int           `yaml:"users"`
	Seed        int64         `yaml:"seed"`

	Template string `yaml:"template"`
	Output   string `yaml:"output"`
	JSON     bool   `yaml:"json"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Host:        "localhost",
		Port:        5435,
		Database:    "jsonb_test",
		User:        "testuser",
		Password:    "testpass",
		Duration:    harness.DefaultDuration,
		SampleEvery: harness.DefaultSampleEvery,
		Users:       workload.DefaultUsers,
		Template:    "visualization_template.html",
		Output:      "jsonb_update_results.html",
		LogLevel:    "info",
	}
}

// Load reads YAML from path on top of Default. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports settings that cannot produce a run.
func (c Config) Validate() error {
	if c.SampleEvery <= 0 {
		return fmt.Errorf("sample interval must be positive, got %d", c.SampleEvery)
	}
	if c.Users < 0 {
		return fmt.Errorf("user count must not be negative, got %d", c.Users)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %s", c.Duration)
	}
	if c.DSN == "" && c.Host == "" {
		return errors.New("either dsn or host must be set")
	}
	if c.DSN == "" && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Template == "" || c.Output == "" {
		return errors.New("template and output paths must be set")
	}

	return nil
}

// ConnConfig returns the pgx connection settings. DSN wins when set;
// otherwise the individual fields are applied on top of pgx defaults, which
// still honour PG* environment variables such as PGSSLMODE.
func (c Config) ConnConfig() (*pgx.ConnConfig, error) {
	if c.DSN != "" {
		cc, err := pgx.ParseConfig(c.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}

		return cc, nil
	}

	cc, err := pgx.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("default connection config: %w", err)
	}

	port := uint16(c.Port)

	cc.Host = c.Host
	cc.Port = port
	cc.Database = c.Database
	cc.Password = c.Password
	if c.User != "" {
		cc.User = c.User
	}
	if cc.TLSConfig != nil {
		cc.TLSConfig.ServerName = c.Host
	}

	// Defaults may list several socket directories plus localhost. Once the
	// host is pinned only one plain and one TLS attempt remain meaningful.
	seen := map[bool]bool{cc.TLSConfig != nil: true}
	fallbacks := cc.Fallbacks[:0]
	for _, fb := range cc.Fallbacks {
		useTLS := fb.TLSConfig != nil
		if seen[useTLS] {
			continue
		}
		seen[useTLS] = true

		fb.Host = c.Host
		fb.Port = port
		if useTLS {
			fb.TLSConfig.ServerName = c.Host
		}
		fallbacks = append(fallbacks, fb)
	}
	cc.Fallbacks = fallbacks

	return cc, nil
}
