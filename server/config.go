package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is read from an optional YAML file and then overridden by the
// environment.
type Config struct {
	Addr          string        `yaml:"addr"`
	StaticDir     string        `yaml:"static_dir"`
	SendBuffer    int           `yaml:"send_buffer"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisChannel  string        `yaml:"redis_channel"`
	DatabaseURL   string        `yaml:"database_url"`
	JournalBuffer int           `yaml:"journal_buffer"`
	MDNS          bool          `yaml:"mdns"`
	MDNSInstance  string        `yaml:"mdns_instance"`
	History       HistoryConfig `yaml:"history"`
}

type HistoryConfig struct {
	ClearRedoOnCommit bool `yaml:"clear_redo_on_commit"`
}

func defaultConfig() Config {
	return Config{
		Addr:          ":8081",
		SendBuffer:    256,
		RedisChannel:  "collabcanvas:events",
		JournalBuffer: 1024,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if cfg.SendBuffer <= 0 {
		return cfg, fmt.Errorf("send_buffer must be positive, got %d", cfg.SendBuffer)
	}
	if cfg.JournalBuffer <= 0 {
		return cfg, fmt.Errorf("journal_buffer must be positive, got %d", cfg.JournalBuffer)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("CANVAS_ADDR", &c.Addr)
	setString("CANVAS_STATIC_DIR", &c.StaticDir)
	setString("REDIS_ADDR", &c.RedisAddr)
	setString("REDIS_CHANNEL", &c.RedisChannel)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("CANVAS_MDNS_INSTANCE", &c.MDNSInstance)

	if v := getenv("CANVAS_SEND_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CANVAS_SEND_BUFFER: %w", err)
		}
		c.SendBuffer = n
	}
	if v := getenv("CANVAS_MDNS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CANVAS_MDNS: %w", err)
		}
		c.MDNS = b
	}
	if v := getenv("CANVAS_CLEAR_REDO_ON_COMMIT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CANVAS_CLEAR_REDO_ON_COMMIT: %w", err)
		}
		c.History.ClearRedoOnCommit = b
	}
	return nil
}
