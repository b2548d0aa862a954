package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bind            string `yaml:"bind"`
	Port            int    `yaml:"port"`
	Token           string `yaml:"token"`
	TopN            int    `yaml:"top_n"`
	CPUSampleMs     int    `yaml:"cpu_sample_ms"`
	NvidiaSmiPath   string `yaml:"nvidia_smi_path"`
	ClampNegativeIO bool   `yaml:"clamp_negative_io"`
}

func (c *Config) CPUSampleInterval() time.Duration {
	return time.Duration(c.CPUSampleMs) * time.Millisecond
}

func defaultConfig() *Config {
	return &Config{
		Bind:          "127.0.0.1",
		Port:          9100,
		TopN:          50,
		CPUSampleMs:   100,
		NvidiaSmiPath: "nvidia-smi",
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Bind == "" {
		cfg.Bind = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 9100
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 50
	}
	if cfg.CPUSampleMs <= 0 {
		cfg.CPUSampleMs = 100
	}
	if cfg.NvidiaSmiPath == "" {
		cfg.NvidiaSmiPath = "nvidia-smi"
	}

	return cfg, nil
}
