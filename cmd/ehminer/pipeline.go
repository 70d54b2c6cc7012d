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
	"time"

	"github.com/kraklabs/ehminer/internal/errors"
	"github.com/kraklabs/ehminer/internal/ui"
	"github.com/kraklabs/ehminer/pkg/action"
	"github.com/kraklabs/ehminer/pkg/catalog"
	"github.com/kraklabs/ehminer/pkg/equivalence"
	"github.com/kraklabs/ehminer/pkg/similarity"
	"github.com/kraklabs/ehminer/pkg/store"
)

// runPipeline opens the store, loads the catalog, and runs the three
// mining stages in order: action classification (component H) over every
// logged function, equivalence grouping with path-intention labelling
// (components F and G) over every target function meeting the
// min-project threshold, and similarity scoring (component I) over every
// non-orphan logged function.
func runPipeline(cfg *Config, denyExtra []string, globals GlobalFlags) {
	start := time.Now()

	st, err := store.Open(store.Config{DataDir: cfg.Database, Engine: cfg.Engine})
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open database",
			fmt.Sprintf("Failed to open CozoDB at %s", cfg.Database),
			"Check the --database path and --engine, and that no other process holds the database",
			err,
		), globals.JSON)
	}
	defer func() { _ = st.Close() }()

	if err := st.EnsureSchema(); err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot initialize schema",
			"Failed to create the ehm_* relations",
			"Try a fresh --database directory",
			err,
		), globals.JSON)
	}

	if err := st.RebuildOutputTables(); err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot rebuild output tables",
			"Failed to drop and recreate the derived ehm_* relations",
			"Check that no other process holds the database",
			err,
		), globals.JSON)
	}

	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load return-semantics catalog",
			fmt.Sprintf("Failed to read %s", cfg.Catalog),
			"Check the --catalog path",
			err,
		), globals.JSON)
	}

	deny := equivalence.NewDenyList(append(append([]string{}, cfg.Deny...), denyExtra...)...)

	if !globals.Quiet {
		ui.Header("ehminer")
	}

	runActionStage(st, cfg, globals)
	runEquivalenceStage(st, cat, deny, cfg, globals)
	runSimilarityStage(st, cfg, globals)

	if err := st.SetProjectMeta("last_run_at", time.Now().UTC().Format(time.RFC3339)); err != nil && !globals.Quiet {
		ui.Warningf("failed to record run checkpoint: %v", err)
	}

	if !globals.Quiet {
		ui.Success(fmt.Sprintf("ehminer run complete in %s", elapsed(start)))
	}
}

func runActionStage(st *store.Store, cfg *Config, globals GlobalFlags) {
	roots, err := st.DistinctLogFunctions()
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot list logged functions",
			"Failed to query distinct log functions for action classification",
			"Check that the database was populated by the ingestion pipeline",
			err,
		), globals.JSON)
	}

	if !globals.Quiet {
		ui.Info(fmt.Sprintf("classifying post-branch actions for %s", ui.CountText(len(roots))))
	}
	if err := action.RunAllWithDepth(st, roots, cfg.MaxDepth); err != nil {
		errors.FatalError(errors.NewInternalError(
			"Action classification failed",
			err.Error(),
			"Check the database for malformed call-graph data",
			err,
		), globals.JSON)
	}
}

func runEquivalenceStage(st *store.Store, cat *catalog.Catalog, deny *equivalence.DenyList, cfg *Config, globals GlobalFlags) {
	targets, err := st.TargetFunctions(cfg.MinProject)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot list target functions",
			"Failed to query target functions above the min-project threshold",
			"Check that the database was populated by the ingestion pipeline",
			err,
		), globals.JSON)
	}

	proc := equivalence.NewProcessor(st, cat, deny)
	if !globals.Quiet {
		ui.Info(fmt.Sprintf("grouping %s into equivalence classes", ui.CountText(len(targets))))
	}
	if err := proc.RunAll(targets, cfg.Workers); err != nil {
		errors.FatalError(errors.NewInternalError(
			"Equivalence grouping failed",
			err.Error(),
			"Check the log output above for the specific target functions that failed",
			err,
		), globals.JSON)
	}
}

func runSimilarityStage(st *store.Store, cfg *Config, globals GlobalFlags) {
	roots, err := st.DistinctNonOrphanLogFunctions()
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot list non-orphan logged functions",
			"Failed to query distinct non-orphan log functions for similarity scoring",
			"Check that the equivalence stage ran successfully",
			err,
		), globals.JSON)
	}

	if !globals.Quiet {
		ui.Info(fmt.Sprintf("scoring similarity for %s", ui.CountText(len(roots))))
	}
	if err := similarity.RunAllWithCutoff(st, roots, cfg.DecayCutoff); err != nil {
		errors.FatalError(errors.NewInternalError(
			"Similarity scoring failed",
			err.Error(),
			"Check the database for malformed call-graph data",
			err,
		), globals.JSON)
	}
}
