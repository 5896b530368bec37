// Package config loads and validates the core's configuration surface:
// protocol version, ratchet and skip-cache tuning, handshake and session
// lifetimes, and the padding bucket size.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete tunable surface of the cryptographic core.
type Config struct {
	ProtocolVersion       uint16 `yaml:"protocol_version"`
	RatchetInterval       uint64 `yaml:"ratchet_interval"`
	SkipCacheCapacity     int    `yaml:"skip_cache_capacity"`
	SkipDistanceMax       int    `yaml:"skip_distance_max"`
	HandshakeDeadlineSecs int    `yaml:"handshake_deadline_secs"`
	SessionIdleSecs       int    `yaml:"session_idle_secs"`
	PaddingBlockSize      int    `yaml:"padding_block_size"`
}

// LoadConfig reads and parses a YAML configuration file, filling in
// defaults for any zero-valued field and validating the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	c.setDefaults()

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}

	return &c, nil
}

// setDefaults fills unset fields with the values from the configuration
// surface's default column.
func (c *Config) setDefaults() {
	if c.ProtocolVersion == 0 {
		c.ProtocolVersion = 1
	}
	if c.RatchetInterval == 0 {
		c.RatchetInterval = 100
	}
	if c.SkipCacheCapacity == 0 {
		c.SkipCacheCapacity = 1000
	}
	if c.SkipDistanceMax == 0 {
		c.SkipDistanceMax = 1000
	}
	if c.HandshakeDeadlineSecs == 0 {
		c.HandshakeDeadlineSecs = 30
	}
	if c.SessionIdleSecs == 0 {
		c.SessionIdleSecs = 86400
	}
	if c.PaddingBlockSize == 0 {
		c.PaddingBlockSize = 16384
	}
}

// validate enforces the range column of the configuration surface.
func (c *Config) validate() error {
	if c.RatchetInterval < 1 || c.RatchetInterval > 10000 {
		return fmt.Errorf("ratchet_interval %d out of range [1, 10000]", c.RatchetInterval)
	}
	if c.SkipCacheCapacity < 1 || c.SkipCacheCapacity > 10000 {
		return fmt.Errorf("skip_cache_capacity %d out of range [1, 10000]", c.SkipCacheCapacity)
	}
	if c.SkipDistanceMax < 1 || c.SkipDistanceMax > 10000 {
		return fmt.Errorf("skip_distance_max %d out of range [1, 10000]", c.SkipDistanceMax)
	}
	if c.HandshakeDeadlineSecs < 1 || c.HandshakeDeadlineSecs > 600 {
		return fmt.Errorf("handshake_deadline_secs %d out of range [1, 600]", c.HandshakeDeadlineSecs)
	}
	if c.SessionIdleSecs < 60 || c.SessionIdleSecs > 86400 {
		return fmt.Errorf("session_idle_secs %d out of range [60, 86400]", c.SessionIdleSecs)
	}
	switch c.PaddingBlockSize {
	case 4096, 16384, 65536:
	default:
		return fmt.Errorf("padding_block_size %d must be one of 4096, 16384, 65536", c.PaddingBlockSize)
	}
	return nil
}

// GenerateDefault returns a Config populated entirely with defaults.
func GenerateDefault() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// WriteFile serializes c as YAML to path.
func WriteFile(c *Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}
