package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/odoojs/odoo.go/pkg/connection"
)

// fileConfig is the on-disk TOML configuration. The password is never read
// from this file; see resolvePassword.
type fileConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	Username string `toml:"username"`
	Secure   bool   `toml:"secure"`
	LogLevel string `toml:"log_level"`
	Timeout  string `toml:"timeout"`
	// MetricsAddr serves Prometheus metrics on /metrics while a command runs.
	MetricsAddr string `toml:"metrics_addr"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "odooctl", "config.toml")
}

// loadConfig reads path. A missing file is only an error when the path was
// given explicitly.
func loadConfig(path string, explicit bool) (fileConfig, []string, error) {
	cfg := fileConfig{LogLevel: "warn"}
	if path == "" {
		return cfg, nil, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil, nil
		}
		return fileConfig{}, nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	var unknown []string
	for _, key := range md.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return cfg, unknown, nil
}

// applyFlags overrides file values with the flags the user actually set.
func (c *fileConfig) applyFlags(flags *pflag.FlagSet) error {
	var err error
	if flags.Changed("host") {
		c.Host, err = flags.GetString("host")
	}
	if err == nil && flags.Changed("port") {
		c.Port, err = flags.GetInt("port")
	}
	if err == nil && flags.Changed("db") {
		c.Database, err = flags.GetString("db")
	}
	if err == nil && flags.Changed("user") {
		c.Username, err = flags.GetString("user")
	}
	if err == nil && flags.Changed("secure") {
		c.Secure, err = flags.GetBool("secure")
	}
	if err == nil && flags.Changed("log-level") {
		c.LogLevel, err = flags.GetString("log-level")
	}
	if err == nil && flags.Changed("timeout") {
		var d time.Duration
		d, err = flags.GetDuration("timeout")
		c.Timeout = d.String()
	}
	if err == nil && flags.Changed("metrics-addr") {
		c.MetricsAddr, err = flags.GetString("metrics-addr")
	}
	return err
}

func (c fileConfig) validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("config missing host")
	}
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("config missing database")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config port out of range: %d", c.Port)
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("config timeout invalid: %w", err)
		}
	}
	return nil
}

func (c fileConfig) timeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// connectionConfig builds the library config; password is resolved separately.
func (c fileConfig) connectionConfig(password string) *connection.Config {
	cfg := connection.NewConfig(c.Host)
	if c.Port != 0 {
		cfg.Port = c.Port
	}
	cfg.Database = c.Database
	cfg.Username = c.Username
	cfg.Password = password
	cfg.Secure = c.Secure
	return cfg
}

// secretKey identifies the keyring entry for this login.
func (c fileConfig) secretKey() string {
	return fmt.Sprintf("%s@%s/%s", c.Username, c.Host, c.Database)
}
