package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Events     EventsConfig     `yaml:"events"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Assignment AssignmentConfig `yaml:"assignment"`
	Matching   MatchingConfig   `yaml:"matching"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type EventsConfig struct {
	URL string `yaml:"url"`
}

type ScoringConfig struct {
	QualificationThreshold float64 `yaml:"qualification_threshold"`
	HighPriorityThreshold  float64 `yaml:"high_priority_threshold"`
	BatchChunkSize         int     `yaml:"batch_chunk_size"`
}

type AssignmentConfig struct {
	TickIntervalMs    int  `yaml:"tick_interval_ms"`
	ResponseTimeoutMs int  `yaml:"response_timeout_ms"`
	AutoAssignEnabled bool `yaml:"auto_assign_enabled"`
}

type MatchingConfig struct {
	Certification float64 `yaml:"certification"`
	Availability  float64 `yaml:"availability"`
	Proximity     float64 `yaml:"proximity"`
	Performance   float64 `yaml:"performance"`
	Preference    float64 `yaml:"preference"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Assignment.TickIntervalMs) * time.Millisecond
}

func (c *Config) ResponseTimeout() time.Duration {
	return time.Duration(c.Assignment.ResponseTimeoutMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Events: EventsConfig{
			URL: "nats://localhost:4222",
		},
		Scoring: ScoringConfig{
			QualificationThreshold: 60,
			HighPriorityThreshold:  80,
			BatchChunkSize:         10,
		},
		Assignment: AssignmentConfig{
			TickIntervalMs:    30000,
			ResponseTimeoutMs: 14400000, // 4 hours
			AutoAssignEnabled: false,
		},
		Matching: MatchingConfig{
			Certification: 0.30,
			Availability:  0.25,
			Proximity:     0.20,
			Performance:   0.15,
			Preference:    0.10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ROLLCALL_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ROLLCALL_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("ROLLCALL_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("ROLLCALL_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ROLLCALL_EVENTS_URL"); v != "" {
		cfg.Events.URL = v
	}
	if v := os.Getenv("ROLLCALL_QUALIFICATION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.QualificationThreshold = f
		}
	}
	if v := os.Getenv("ROLLCALL_HIGH_PRIORITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.HighPriorityThreshold = f
		}
	}
	if v := os.Getenv("ROLLCALL_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Assignment.TickIntervalMs = n
		}
	}
	if v := os.Getenv("ROLLCALL_RESPONSE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Assignment.ResponseTimeoutMs = n
		}
	}
	if v := os.Getenv("ROLLCALL_AUTO_ASSIGN_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Assignment.AutoAssignEnabled = b
		}
	}
	if v := os.Getenv("ROLLCALL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// MatchWeightsOverridden reports whether any matching weight in the file or
// environment differs from zero; a fully-zero block means "use defaults".
func (c *Config) MatchWeightsOverridden() bool {
	m := c.Matching
	return m.Certification+m.Availability+m.Proximity+m.Performance+m.Preference > 0
}
