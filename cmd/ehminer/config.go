// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/ehminer/internal/errors"
)

const (
	defaultConfigDir  = ".ehminer"
	defaultConfigFile = "project.yaml"
	configVersion     = "1"
)

// Config represents the .ehminer/project.yaml configuration file. CLI flags
// always take precedence over file-based values — see applyFlagOverrides.
type Config struct {
	Version     string   `yaml:"version"`
	Database    string   `yaml:"database"`
	Engine      string   `yaml:"engine"`
	MinProject  int      `yaml:"min_project"`
	Catalog     string   `yaml:"catalog"`
	Deny        []string `yaml:"deny,omitempty"`
	MaxDepth    int      `yaml:"max_depth"`
	DecayCutoff float64  `yaml:"decay_cutoff"`
	Workers     int      `yaml:"workers"`
	MetricsAddr string   `yaml:"metrics_addr,omitempty"`
}

// DefaultConfig returns a Config with the defaults named in the CLI flag
// reference: min-project 2, engine sqlite, glibc_return.csv catalog,
// max-depth 20, decay-cutoff 0.05, workers = NumCPU.
func DefaultConfig() *Config {
	return &Config{
		Version:     configVersion,
		Engine:      "sqlite",
		MinProject:  2,
		Catalog:     "glibc_return.csv",
		MaxDepth:    20,
		DecayCutoff: 0.05,
		Workers:     runtime.NumCPU(),
	}
}

// LoadConfig loads configuration from configPath, or finds .ehminer/project.yaml
// in the current or a parent directory if configPath is empty. Missing
// configuration is not an error: the defaults are returned instead, since
// every setting can also be supplied purely via flags.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		var err error
		configPath, err = findConfigFile()
		if err != nil {
			return DefaultConfig(), nil //nolint:nilerr // absence of a config file is not an error
		}
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // G304: path comes from user config or discovery
	if err != nil {
		return nil, errors.NewConfigError(
			"Cannot read configuration file",
			fmt.Sprintf("Failed to read %s", configPath),
			"Check file permissions and ensure the file exists",
			err,
		)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError(
			"Invalid configuration format",
			"YAML parsing failed - the config file contains syntax errors",
			fmt.Sprintf("Edit %s to fix syntax errors, or delete it to fall back to defaults", configPath),
			err,
		)
	}

	return cfg, nil
}

// SaveConfig writes cfg to configPath as YAML, creating the parent
// directory if needed.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewInternalError(
			"Cannot encode configuration",
			"YAML marshaling failed unexpectedly",
			"This is a bug. Please report it with your configuration details",
			err,
		)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.NewPermissionError(
			"Cannot create configuration directory",
			fmt.Sprintf("Permission denied creating %s", dir),
			"Check directory permissions or run with appropriate privileges",
			err,
		)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.NewPermissionError(
			"Cannot write configuration file",
			fmt.Sprintf("Permission denied writing to %s", configPath),
			"Check file permissions and ensure sufficient disk space",
			err,
		)
	}

	return nil
}

// ConfigPath returns <dir>/.ehminer/project.yaml.
func ConfigPath(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

// findConfigFile walks from the current directory up to the filesystem
// root looking for .ehminer/project.yaml.
func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.NewInternalError(
			"Cannot access working directory",
			"Failed to determine current directory path",
			"Check system permissions and try again",
			err,
		)
	}

	for {
		configPath := ConfigPath(dir)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NewConfigError(
		"Configuration not found",
		"No .ehminer/project.yaml file found in current directory or any parent directory",
		"Run with explicit flags, or create .ehminer/project.yaml",
		nil,
	)
}
