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

// Package main implements the ehminer CLI: it mines error-handling patterns
// out of a pre-populated CozoDB fact database and writes the results back
// as condition-equivalence, path-intention, function-action, and
// function-similarity rows.
//
// Usage:
//
//	ehminer run [--database DIR] [--catalog FILE] [--min-project N]
//	ehminer status [--json]
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ehminer/internal/errors"
	"github.com/kraklabs/ehminer/internal/metrics"
	"github.com/kraklabs/ehminer/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags that apply across every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .ehminer/project.yaml (default: search ./.ehminer/project.yaml, then parent directories)")
		database    = flag.StringP("database", "d", "", "CozoDB data directory (overrides config)")
		engine      = flag.String("engine", "", "CozoDB storage engine: mem, sqlite, rocksdb (overrides config)")
		minProject  = flag.IntP("min-project", "m", 0, "Minimum distinct-project count for a target function (overrides config, default 2)")
		catalogPath = flag.String("catalog", "", "Path to the return-semantics catalog CSV (overrides config)")
		denyExtra   = flag.StringSlice("deny", nil, "Additional function names to skip during equivalence analysis")
		maxDepth    = flag.Int("max-depth", 0, "Maximum call-graph BFS depth for action classification (overrides config, default 20)")
		decayCutoff = flag.Float64("decay-cutoff", 0, "Weight cutoff for similarity BFS (overrides config, default 0.05)")
		workers     = flag.IntP("workers", "w", 0, "Number of concurrent equivalence workers (overrides config, default NumCPU)")
		metricsAddr = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090 (overrides config)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output (progress, info messages)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ehminer - error-handling pattern miner

ehminer reads call-site and call-graph facts out of a pre-populated
CozoDB database and mines error-handling patterns from them: which
branch conditions are semantically equivalent, how post-branch code
behaves, and how closely that behavior matches fixed error-handling
intents.

Usage:
  ehminer <command> [options]

Commands:
  run       Run the full mining pipeline
  status    Show project status

Global Options:
  -d, --database      CozoDB data directory
      --engine        CozoDB storage engine: mem, sqlite, rocksdb
  -m, --min-project   Minimum distinct-project count for a target function (default 2)
      --catalog       Path to the return-semantics catalog CSV
      --deny          Additional function names to skip (repeatable)
      --max-depth     Maximum call-graph BFS depth (default 20)
      --decay-cutoff  Weight cutoff for similarity BFS (default 0.05)
  -w, --workers       Number of concurrent equivalence workers (default NumCPU)
      --metrics-addr  Address to serve Prometheus metrics on
      --json          Output in JSON format
      --no-color      Disable color output (respects NO_COLOR env var)
  -v, --verbose       Increase verbosity (-v for info, -vv for debug)
  -q, --quiet         Suppress non-essential output
  -c, --config        Path to .ehminer/project.yaml
  -V, --version       Show version and exit

Examples:
  ehminer run
  ehminer run --min-project 3 --workers 8
  ehminer status --json

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("ehminer version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}

	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
		Quiet:   *quiet,
	}

	ui.InitColors(globals.NoColor)
	initLogging(globals.Verbose)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	applyFlagOverrides(cfg, database, engine, minProject, catalogPath, maxDepth, decayCutoff, workers, metricsAddr)

	if cfg.Database == "" {
		errors.FatalError(errors.NewConfigError(
			"Database path is required",
			"No --database flag and no 'database' value in .ehminer/project.yaml",
			"Pass -d/--database, or set 'database' in .ehminer/project.yaml",
			nil,
		), globals.JSON)
	}

	if *metricsAddr != "" || cfg.MetricsAddr != "" {
		addr := *metricsAddr
		if addr == "" {
			addr = cfg.MetricsAddr
		}
		go func() {
			if err := metrics.Serve(addr); err != nil && !globals.Quiet {
				ui.Warningf("metrics server stopped: %v", err)
			}
		}()
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	switch command {
	case "run":
		runPipeline(cfg, *denyExtra, globals)
	case "status":
		runStatus(cfg, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func applyFlagOverrides(
	cfg *Config,
	database, engine *string,
	minProject *int,
	catalogPath *string,
	maxDepth *int,
	decayCutoff *float64,
	workers *int,
	metricsAddr *string,
) {
	if *database != "" {
		cfg.Database = *database
	}
	if *engine != "" {
		cfg.Engine = *engine
	}
	if *minProject > 0 {
		cfg.MinProject = *minProject
	}
	if *catalogPath != "" {
		cfg.Catalog = *catalogPath
	}
	if *maxDepth > 0 {
		cfg.MaxDepth = *maxDepth
	}
	if *decayCutoff > 0 {
		cfg.DecayCutoff = *decayCutoff
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
}

func elapsed(since time.Time) string {
	return time.Since(since).Round(time.Millisecond).String()
}

// initLogging sets the default slog logger's level from the -v count:
// 0=Warn, 1=Info, 2+=Debug. Soft-failure logging (unusable sites, solver
// failures) only surfaces at Debug.
func initLogging(verbose int) {
	level := slog.LevelWarn
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
