package config

import (
	"fmt"
	"time"

	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/ratelimit"
)

// Config is the top-level application configuration parsed from YAML.
type Config struct {
	Server ServerConfig           `yaml:"server"`
	Store  StoreConfig            `yaml:"store"`
	Limits map[string]LimitConfig `yaml:"limits"`
	Roles  []model.Role           `yaml:"roles"`
	Tokens []TokenConfig          `yaml:"tokens"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"` // "file" or "postgres"
	Dir      string         `yaml:"dir"`     // file backend root; empty = ~/.pathway/data
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds the connection settings for the postgres backend.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN renders the keyword/value connection string pgx expects.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode)
}

// LimitConfig is one action's rate-limit window.
type LimitConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

// TokenConfig maps a static API token to an actor. This is the built-in
// identity resolver; a deployment fronted by SSO swaps in its own.
type TokenConfig struct {
	Token  string `yaml:"token"`
	UserID string `yaml:"user_id"`
	Role   string `yaml:"role"`
}

// LimitRules converts the configured limits into limiter rules.
func (c *Config) LimitRules() (map[string]ratelimit.Rule, error) {
	rules := make(map[string]ratelimit.Rule, len(c.Limits))
	for action, lc := range c.Limits {
		window, err := time.ParseDuration(lc.Window)
		if err != nil {
			return nil, fmt.Errorf("limit %q: invalid window %q: %w", action, lc.Window, err)
		}
		rules[action] = ratelimit.Rule{Limit: lc.Limit, Window: window}
	}
	return rules, nil
}
