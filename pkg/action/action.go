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

// Package action classifies a post-branch function's behaviour (component
// H): a bounded breadth-first search over the call graph decides whether
// the function (or something it transitively calls) exits, emits output,
// frees/deletes a resource, closes a handle, or returns/gotos/breaks/
// continues — nine fixed action categories.
package action

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/ehminer/pkg/store"
)

// DefaultMaxDepth is the BFS depth bound used unless a caller overrides it.
const DefaultMaxDepth = 20

var functionsList = [][]string{
	{"abort", "exit", "kill", "killpg", "raise", "alarm", "signal"},
	{
		"printf", "fprintf", "dprintf", "vprintf", "vfprintf", "vdprintf",
		"fputs", "puts", "fwrite", "perror", "psignal", "psiginfo", "syslog",
		"pwrite", "write", "writev", "written", "msgsnd", "send", "sendto", "sendmsg",
	},
	{"free"},
	{"remove", "unlink", "unlinkat", "rmdir"},
	{"close", "fclose", "pclose", "shutdown", "closelog"},
	{"return"},
	{"goto"},
	{"break"},
	{"continue"},
}

var keywordsList = [][]string{
	{"abort", "exit", "die", "kill", "quit", "stop"},
	{
		"error", "err", "warn", "alert", "assert", "fail", "crit", "emerg", "out", "exit", "die", "halt",
		"suspend", "wrong", "fatal", "fault", "misplay", "damage", "illegal", "exception", "errmsg", "abort", "msg",
		"record", "report", "stop", "quit", "close", "put", "print", "write", "log", "message", "dump", "hint", "trace", "notify",
	},
	{"free", "clean", "clear"},
	{"rm", "unlink", "del", "clean"},
	{"close", "shutdown"},
	{"return"},
	{"goto"},
	{"break"},
	{"continue"},
}

// ActionNames are the nine category labels, in the order functionsList and
// keywordsList are indexed by.
var ActionNames = []string{"exit", "output", "free", "delete", "close", "return", "goto", "break", "continue"}

// Classification is one matched action for a root function, ready to be
// written as an ehm_function_action row.
type Classification struct {
	Intention string
	Trace     string
	Level     int
}

// Classify runs the nine-category BFS for root (one distinct (log_name,
// log_def_loc) pair from ehm_branch_call). For each category independently:
// the frontier expands through the call graph only via functions whose name
// contains one of the category's keywords; reaching a function whose name
// exactly matches the category's function list emits a Classification and
// stops that category's search immediately — both the remaining frontier
// this round and all further rounds are abandoned, matching the original's
// "first match wins" semantics.
func Classify(st *store.Store, root store.FunctionKey, maxDepth int) ([]Classification, error) {
	var out []Classification

	for i, names := range functionsList {
		keywords := keywordsList[i]

		frontier := []store.FunctionKey{root}
		parent := map[string]string{root.Name: "__TOP__"}

		for count := 0; len(frontier) > 0 && count < maxDepth; count++ {
			var next []store.FunctionKey
			matched := false

			for _, r := range frontier {
				if contains(names, r.Name) {
					trace, level := reconstructTrace(parent, r.Name)
					out = append(out, Classification{Intention: ActionNames[i], Trace: trace, Level: level})
					matched = true
					break
				}

				if !containsSubstring(keywords, strings.ToLower(r.Name)) {
					continue
				}

				callees, err := st.CallGraphCallees(r.Name, r.DefLoc)
				if err != nil {
					return nil, fmt.Errorf("call graph callees of %s: %w", r.Name, err)
				}
				for _, c := range callees {
					next = append(next, c)
					parent[c.Name] = r.Name
				}
			}

			if matched {
				break
			}
			frontier = dedupe(next)
		}
	}

	return out, nil
}

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func containsSubstring(keywords []string, lowerName string) bool {
	for _, k := range keywords {
		if strings.Contains(lowerName, k) {
			return true
		}
	}
	return false
}

// reconstructTrace walks parent from name back to "__TOP__", guarding
// against cycles the same way the original's function_map dedup did.
func reconstructTrace(parent map[string]string, name string) (string, int) {
	trace := name
	level := 1
	seen := map[string]bool{name: true}
	cur := name
	for parent[cur] != "__TOP__" {
		next := parent[cur]
		if seen[next] {
			break
		}
		seen[next] = true
		trace = next + "->" + trace
		level++
		cur = next
	}
	return trace, level
}

// dedupe removes duplicate FunctionKeys and returns them in a deterministic
// order, since the original's set-based frontier had no defined iteration
// order but deterministic output matters for reproducible runs.
func dedupe(keys []store.FunctionKey) []store.FunctionKey {
	seen := map[store.FunctionKey]bool{}
	out := make([]store.FunctionKey, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].DefLoc < out[j].DefLoc
	})
	return out
}

// RunAll classifies every function in roots and writes the resulting rows
// to st, using DefaultMaxDepth for the BFS bound.
func RunAll(st *store.Store, roots []store.FunctionKey) error {
	return RunAllWithDepth(st, roots, DefaultMaxDepth)
}

// RunAllWithDepth is RunAll with an explicit BFS depth bound.
func RunAllWithDepth(st *store.Store, roots []store.FunctionKey, maxDepth int) error {
	for _, root := range roots {
		classes, err := Classify(st, root, maxDepth)
		if err != nil {
			return err
		}
		for _, c := range classes {
			rec := store.ActionRecord{
				LogName:   root.Name,
				LogDefLoc: root.DefLoc,
				Intention: c.Intention,
				Trace:     c.Trace,
				Level:     c.Level,
			}
			if err := st.InsertFunctionAction(rec); err != nil {
				return fmt.Errorf("insert function action for %s: %w", root.Name, err)
			}
		}
	}
	return nil
}
