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
	"encoding/json"
	"fmt"
	"os"

	"github.com/kraklabs/ehminer/internal/errors"
	"github.com/kraklabs/ehminer/internal/ui"
	"github.com/kraklabs/ehminer/pkg/store"
)

type statusReport struct {
	Database    string `json:"database"`
	Engine      string `json:"engine"`
	TargetCount int    `json:"target_functions"`
	LoggedCount int    `json:"logged_functions"`
	LastRunAt   string `json:"last_run_at,omitempty"`
}

// runStatus reports the current database's target-function count, logged
// function count, and last successful run time, recorded via
// ehm_project_meta by runPipeline.
func runStatus(cfg *Config, globals GlobalFlags) {
	st, err := store.Open(store.Config{DataDir: cfg.Database, Engine: cfg.Engine})
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open database",
			fmt.Sprintf("Failed to open CozoDB at %s", cfg.Database),
			"Run 'ehminer run' first, or check --database and --engine",
			err,
		), globals.JSON)
	}
	defer func() { _ = st.Close() }()

	targets, err := st.TargetFunctions(cfg.MinProject)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot read target functions", err.Error(), "", err,
		), globals.JSON)
	}

	logged, err := st.DistinctLogFunctions()
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot read logged functions", err.Error(), "", err,
		), globals.JSON)
	}

	lastRun, _ := st.GetProjectMeta("last_run_at")

	report := statusReport{
		Database:    cfg.Database,
		Engine:      cfg.Engine,
		TargetCount: len(targets),
		LoggedCount: len(logged),
		LastRunAt:   lastRun,
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return
	}

	ui.Header("ehminer status")
	fmt.Printf("%s %s (%s)\n", ui.Label("Database:"), report.Database, report.Engine)
	fmt.Printf("%s %s\n", ui.Label("Target functions:"), ui.CountText(report.TargetCount))
	fmt.Printf("%s %s\n", ui.Label("Logged functions:"), ui.CountText(report.LoggedCount))
	if report.LastRunAt != "" {
		fmt.Printf("%s %s\n", ui.Label("Last run:"), report.LastRunAt)
	} else {
		fmt.Printf("%s %s\n", ui.Label("Last run:"), ui.DimText("never"))
	}
}
