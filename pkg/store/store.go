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

// Package store is ehminer's input store adapter (component A): it reads
// call-site and call-graph facts out of an embedded CozoDB instance and
// writes the equivalence, similarity, and action results back, entirely
// through parameterized CozoScript.
package store

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	cozo "github.com/kraklabs/ehminer/pkg/cozodb"
)

// Config configures the embedded store.
type Config struct {
	// DataDir is the directory CozoDB stores its data in.
	DataDir string
	// Engine is the CozoDB storage engine: "mem", "sqlite", or "rocksdb".
	Engine string
}

// Store wraps a CozoDB instance with the ehm_* schema.
type Store struct {
	db     *cozo.CozoDB
	mu     sync.RWMutex
	closed bool
	nextID int64
}

// Open creates or attaches to an embedded CozoDB instance at the configured
// data directory.
func Open(cfg Config) (*Store, error) {
	engine := cfg.Engine
	if engine == "" {
		engine = "sqlite"
	}
	if engine != "mem" {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := cozo.New(engine, cfg.DataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("open cozodb: %w", err)
	}
	return &Store{db: &db}, nil
}

// Close releases the underlying CozoDB handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.db.Close()
	return nil
}

// EnsureSchema creates the ehm_* tables and their secondary indices if they
// don't already exist. Idempotent and safe to call on every startup.
func (s *Store) EnsureSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range schemaStatements() {
		if _, err := s.db.Run(stmt, nil); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, stmt := range indexStatements() {
		if _, err := s.db.Run(stmt, nil); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	s := err.Error()
	return strings.Contains(s, "already exists") || strings.Contains(s, "conflicts with an existing one")
}

// TargetFunctions returns every (call_name, call_def_loc) appearing in at
// least minProject distinct rows of ehm_call_statistic.
func (s *Store) TargetFunctions(minProject int) ([]FunctionKey, error) {
	const q = `?[call_name, call_def_loc, count(project)] := *ehm_call_statistic{call_name, call_def_loc, project}`

	s.mu.RLock()
	rows, err := s.db.RunReadOnly(q, nil)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("target functions query: %w", err)
	}

	var out []FunctionKey
	for _, row := range rows.Rows {
		if len(row) != 3 {
			continue
		}
		name, _ := row[0].(string)
		loc, _ := row[1].(string)
		cnt := toInt(row[2])
		if cnt >= minProject {
			out = append(out, FunctionKey{Name: name, DefLoc: loc})
		}
	}
	return out, nil
}

// DistinctLogFunctions returns every distinct (log_name, log_def_loc) pair
// occurring in ehm_branch_call — the seed set for the action classifier.
func (s *Store) DistinctLogFunctions() ([]FunctionKey, error) {
	const q = `?[log_name, log_def_loc] := *ehm_branch_call{log_name, log_def_loc}`

	s.mu.RLock()
	rows, err := s.db.RunReadOnly(q, nil)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("distinct log functions query: %w", err)
	}

	out := make([]FunctionKey, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		if len(row) != 2 {
			continue
		}
		name, _ := row[0].(string)
		loc, _ := row[1].(string)
		out = append(out, FunctionKey{Name: name, DefLoc: loc})
	}
	return out, nil
}

// CallSites returns every ehm_branch_call row for (callName, callDefLoc)
// whose log_name has already been classified by the action classifier (the
// "log_name ∈ set(function_action.log_name)" filter).
func (s *Store) CallSites(callName, callDefLoc string) ([]CallSite, error) {
	const q = `
	?[id, branch_id, domain, project, call_name, call_def_loc, call_id, call_str,
	  call_ret, call_arg, call_arg_count, expr_tokens, expr_tokens_count,
	  path_number_vec, log_name, log_def_loc, log_id, log_str] :=
	  *ehm_branch_call{id, branch_id, domain, project, call_name, call_def_loc,
	    call_id, call_str, call_ret, call_arg, call_arg_count, expr_tokens,
	    expr_tokens_count, path_number_vec, log_name, log_def_loc, log_id, log_str},
	  call_name = $call_name, call_def_loc = $call_def_loc,
	  *ehm_function_action{log_name}
	`
	params := map[string]any{"call_name": callName, "call_def_loc": callDefLoc}

	s.mu.RLock()
	rows, err := s.db.RunReadOnly(q, params)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("call sites query: %w", err)
	}

	out := make([]CallSite, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		if len(row) != 18 {
			continue
		}
		out = append(out, CallSite{
			ID:              int64(toInt(row[0])),
			BranchID:        int64(toInt(row[1])),
			Domain:          toStr(row[2]),
			Project:         toStr(row[3]),
			CallName:        toStr(row[4]),
			CallDefLoc:      toStr(row[5]),
			CallID:          toStr(row[6]),
			CallStr:         toStr(row[7]),
			CallRet:         toStr(row[8]),
			CallArg:         toStr(row[9]),
			CallArgCount:    toInt(row[10]),
			ExprTokens:      toStr(row[11]),
			ExprTokensCount: toInt(row[12]),
			PathNumberVec:   toStr(row[13]),
			LogName:         toStr(row[14]),
			LogDefLoc:       toStr(row[15]),
			LogID:           toStr(row[16]),
			LogStr:          toStr(row[17]),
		})
	}
	return out, nil
}

// CallGraphCallees returns the direct callees of (funcName, funcDefLoc) per
// ehm_call_graph.
func (s *Store) CallGraphCallees(funcName, funcDefLoc string) ([]FunctionKey, error) {
	const q = `?[call_name, call_def_loc] := *ehm_call_graph{func_name, func_def_loc, call_name, call_def_loc}, func_name = $func_name, func_def_loc = $func_def_loc`
	params := map[string]any{"func_name": funcName, "func_def_loc": funcDefLoc}

	s.mu.RLock()
	rows, err := s.db.RunReadOnly(q, params)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("call graph callees query: %w", err)
	}

	out := make([]FunctionKey, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		if len(row) != 2 {
			continue
		}
		out = append(out, FunctionKey{Name: toStr(row[0]), DefLoc: toStr(row[1])})
	}
	return out, nil
}

// DistinctNonOrphanLogFunctions returns every (log_name, log_def_loc) that
// appears in a non-zero equivalence class, the seed set for the similarity
// scorer (component I).
func (s *Store) DistinctNonOrphanLogFunctions() ([]FunctionKey, error) {
	const q = `?[log_name, log_def_loc] := *ehm_condition_equivalence{log_name, log_def_loc, expr_set_id}, expr_set_id != 0`

	s.mu.RLock()
	rows, err := s.db.RunReadOnly(q, nil)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("non-orphan log functions query: %w", err)
	}

	out := make([]FunctionKey, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		if len(row) != 2 {
			continue
		}
		out = append(out, FunctionKey{Name: toStr(row[0]), DefLoc: toStr(row[1])})
	}
	return out, nil
}

// RebuildOutputTables drops and recreates ehm_condition_equivalence,
// ehm_function_similarity, and ehm_function_action, per the "derived tables
// are truncated and rebuilt on each run" lifecycle rule.
func (s *Store) RebuildOutputTables() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drops := []string{
		`::remove ehm_condition_equivalence`,
		`::remove ehm_function_similarity`,
		`::remove ehm_function_action`,
	}
	for _, stmt := range drops {
		_, _ = s.db.Run(stmt, nil) // ignore "doesn't exist" on first run
	}
	for _, stmt := range []string{createConditionEquivalence, createFunctionSimilarity, createFunctionAction} {
		if _, err := s.db.Run(stmt, nil); err != nil {
			return fmt.Errorf("recreate output table: %w", err)
		}
	}
	atomic.StoreInt64(&s.nextID, 1)
	return nil
}

func (s *Store) allocID() int64 {
	return atomic.AddInt64(&s.nextID, 1)
}

// InsertConditionEquivalence writes one row to ehm_condition_equivalence.
func (s *Store) InsertConditionEquivalence(rec EquivalenceRecord) error {
	const q = `
	?[id, branch_id, domain, project, call_name, call_def_loc, call_id, call_str,
	  call_return, expr_set_id, path_intention, expr_str_vec, path_number_vec,
	  log_name, log_def_loc, log_id, log_str] <- [[
	  $id, $branch_id, $domain, $project, $call_name, $call_def_loc, $call_id,
	  $call_str, $call_return, $expr_set_id, $path_intention, $expr_str_vec,
	  $path_number_vec, $log_name, $log_def_loc, $log_id, $log_str
	]] :put ehm_condition_equivalence {
	  id => branch_id, domain, project, call_name, call_def_loc, call_id,
	  call_str, call_return, expr_set_id, path_intention, expr_str_vec,
	  path_number_vec, log_name, log_def_loc, log_id, log_str
	}`

	cs := rec.CallSite
	params := map[string]any{
		"id":              s.allocID(),
		"branch_id":       cs.BranchID,
		"domain":          cs.Domain,
		"project":         cs.Project,
		"call_name":       cs.CallName,
		"call_def_loc":    cs.CallDefLoc,
		"call_id":         cs.CallID,
		"call_str":        cs.CallStr,
		"call_return":     cs.CallRet,
		"expr_set_id":     rec.ExprSetID,
		"path_intention":  rec.PathIntention,
		"expr_str_vec":    rec.ExprStrVec,
		"path_number_vec": cs.PathNumberVec,
		"log_name":        cs.LogName,
		"log_def_loc":     cs.LogDefLoc,
		"log_id":          cs.LogID,
		"log_str":         cs.LogStr,
	}

	s.mu.Lock()
	_, err := s.db.Run(q, params)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("insert condition equivalence: %w", err)
	}
	return nil
}

// InsertFunctionSimilarity writes one row to ehm_function_similarity.
func (s *Store) InsertFunctionSimilarity(rec SimilarityRecord) error {
	const q = `?[id, log_name, log_def_loc, intention, weight] <- [[$id, $log_name, $log_def_loc, $intention, $weight]] :put ehm_function_similarity { id => log_name, log_def_loc, intention, weight }`
	params := map[string]any{
		"id":          s.allocID(),
		"log_name":    rec.LogName,
		"log_def_loc": rec.LogDefLoc,
		"intention":   rec.Intention,
		"weight":      rec.Weight,
	}

	s.mu.Lock()
	_, err := s.db.Run(q, params)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("insert function similarity: %w", err)
	}
	return nil
}

// InsertFunctionAction writes one row to ehm_function_action.
func (s *Store) InsertFunctionAction(rec ActionRecord) error {
	const q = `?[id, log_name, log_def_loc, intention, trace, level] <- [[$id, $log_name, $log_def_loc, $intention, $trace, $level]] :put ehm_function_action { id => log_name, log_def_loc, intention, trace, level }`
	params := map[string]any{
		"id":          s.allocID(),
		"log_name":    rec.LogName,
		"log_def_loc": rec.LogDefLoc,
		"intention":   rec.Intention,
		"trace":       rec.Trace,
		"level":       rec.Level,
	}

	s.mu.Lock()
	_, err := s.db.Run(q, params)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("insert function action: %w", err)
	}
	return nil
}

// InsertBranchCall writes one row to ehm_branch_call. Production data is
// populated by the upstream static-analysis ingestion pipeline; this is
// used to load fixtures in tests.
func (s *Store) InsertBranchCall(cs CallSite) error {
	const q = `
	?[id, branch_id, domain, project, call_name, call_def_loc, call_id, call_str,
	  call_ret, call_arg, call_arg_count, expr_tokens, expr_tokens_count,
	  path_number_vec, log_name, log_def_loc, log_id, log_str] <- [[
	  $id, $branch_id, $domain, $project, $call_name, $call_def_loc, $call_id,
	  $call_str, $call_ret, $call_arg, $call_arg_count, $expr_tokens,
	  $expr_tokens_count, $path_number_vec, $log_name, $log_def_loc, $log_id, $log_str
	]] :put ehm_branch_call {
	  id => branch_id, domain, project, call_name, call_def_loc, call_id, call_str,
	  call_ret, call_arg, call_arg_count, expr_tokens, expr_tokens_count,
	  path_number_vec, log_name, log_def_loc, log_id, log_str
	}`
	params := map[string]any{
		"id":                s.allocID(),
		"branch_id":         cs.BranchID,
		"domain":            cs.Domain,
		"project":           cs.Project,
		"call_name":         cs.CallName,
		"call_def_loc":      cs.CallDefLoc,
		"call_id":           cs.CallID,
		"call_str":          cs.CallStr,
		"call_ret":          cs.CallRet,
		"call_arg":          cs.CallArg,
		"call_arg_count":    cs.CallArgCount,
		"expr_tokens":       cs.ExprTokens,
		"expr_tokens_count": cs.ExprTokensCount,
		"path_number_vec":   cs.PathNumberVec,
		"log_name":          cs.LogName,
		"log_def_loc":       cs.LogDefLoc,
		"log_id":            cs.LogID,
		"log_str":           cs.LogStr,
	}

	s.mu.Lock()
	_, err := s.db.Run(q, params)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("insert branch call: %w", err)
	}
	return nil
}

// InsertCallGraphEdge writes one row to ehm_call_graph.
func (s *Store) InsertCallGraphEdge(caller, callee FunctionKey) error {
	const q = `?[func_name, func_def_loc, call_name, call_def_loc] <- [[$func_name, $func_def_loc, $call_name, $call_def_loc]] :put ehm_call_graph { func_name, func_def_loc, call_name, call_def_loc }`
	params := map[string]any{
		"func_name":    caller.Name,
		"func_def_loc": caller.DefLoc,
		"call_name":    callee.Name,
		"call_def_loc": callee.DefLoc,
	}

	s.mu.Lock()
	_, err := s.db.Run(q, params)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("insert call graph edge: %w", err)
	}
	return nil
}

// InsertCallStatistic records one (call_name, call_def_loc, project)
// observation in ehm_call_statistic, the table TargetFunctions aggregates
// over to find functions called from at least --min-project projects.
func (s *Store) InsertCallStatistic(callName, callDefLoc, project string) error {
	const q = `?[call_name, call_def_loc, project] <- [[$call_name, $call_def_loc, $project]] :put ehm_call_statistic { call_name, call_def_loc, project }`
	params := map[string]any{
		"call_name":    callName,
		"call_def_loc": callDefLoc,
		"project":      project,
	}

	s.mu.Lock()
	_, err := s.db.Run(q, params)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("insert call statistic: %w", err)
	}
	return nil
}

// GetProjectMeta retrieves a checkpoint metadata value by key. Returns the
// empty string if the key is unset.
func (s *Store) GetProjectMeta(key string) (string, error) {
	const q = `?[value] := *ehm_project_meta{key, value}, key = $key`
	params := map[string]any{"key": key}

	s.mu.RLock()
	rows, err := s.db.Run(q, params)
	s.mu.RUnlock()
	if err != nil {
		return "", err
	}
	if len(rows.Rows) == 0 {
		return "", nil
	}
	return toStr(rows.Rows[0][0]), nil
}

// SetProjectMeta sets a checkpoint metadata value by key.
func (s *Store) SetProjectMeta(key, value string) error {
	const q = `?[key, value] <- [[$key, $value]] :put ehm_project_meta { key => value }`
	params := map[string]any{"key": key, "value": value}

	s.mu.Lock()
	_, err := s.db.Run(q, params)
	s.mu.Unlock()
	return err
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func toStr(v any) string {
	s, _ := v.(string)
	return s
}
