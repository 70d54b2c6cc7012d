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
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine != "sqlite" {
		t.Errorf("Engine = %q, want sqlite", cfg.Engine)
	}
	if cfg.MinProject != 2 {
		t.Errorf("MinProject = %d, want 2", cfg.MinProject)
	}
	if cfg.Catalog != "glibc_return.csv" {
		t.Errorf("Catalog = %q, want glibc_return.csv", cfg.Catalog)
	}
	if cfg.MaxDepth != 20 {
		t.Errorf("MaxDepth = %d, want 20", cfg.MaxDepth)
	}
	if cfg.DecayCutoff != 0.05 {
		t.Errorf("DecayCutoff = %v, want 0.05", cfg.DecayCutoff)
	}
	if cfg.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", cfg.Workers)
	}
}

func TestSaveLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	want := DefaultConfig()
	want.Database = "/var/data/ehminer"
	want.MinProject = 5
	want.Deny = []string{"my_custom_noop"}

	if err := SaveConfig(want, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got.Database != want.Database || got.MinProject != want.MinProject {
		t.Errorf("LoadConfig() = %+v, want %+v", got, want)
	}
	if len(got.Deny) != 1 || got.Deny[0] != "my_custom_noop" {
		t.Errorf("Deny = %v, want [my_custom_noop]", got.Deny)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine != "sqlite" {
		t.Errorf("Engine = %q, want sqlite (default)", cfg.Engine)
	}
}

func TestLoadConfigInvalidYAMLIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("database: [unterminated"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() error = nil, want non-nil for malformed YAML")
	}
}
