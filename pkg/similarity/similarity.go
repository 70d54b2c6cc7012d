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

// Package similarity scores a post-branch function's behavioural proximity
// to six fixed intents (component I): a depth-bounded BFS over the call
// graph accumulates a weight per reachable callee, halving on every level,
// then sums those weights against each intent's fixed function list.
package similarity

import (
	"fmt"

	"github.com/kraklabs/ehminer/pkg/store"
)

// DefaultWeightCutoff is the BFS weight cutoff used unless a caller
// overrides it. At 0.05 the BFS expands five levels below the root
// (weights 1/2 down to 1/32) before the halved weight drops below it.
const DefaultWeightCutoff = 0.05

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
}

// IntentNames are the six similarity-scorer intents, in functionsList order.
var IntentNames = []string{"exit", "output", "free", "delete", "close", "return"}

// Intent is one weighted intent score for a post-branch function.
type Intent struct {
	Name   string
	Weight float64
}

// Weights runs the weight-halving BFS from root and returns the six intent
// scores, in IntentNames order (including zero-weight entries — callers
// filter before writing). Uses DefaultWeightCutoff.
func Weights(st *store.Store, root store.FunctionKey) ([]Intent, error) {
	return WeightsWithCutoff(st, root, DefaultWeightCutoff)
}

// WeightsWithCutoff is Weights with an explicit BFS weight cutoff.
func WeightsWithCutoff(st *store.Store, root store.FunctionKey, cutoff float64) ([]Intent, error) {
	calleeWeight := map[store.FunctionKey]float64{root: 1}
	frontier := map[store.FunctionKey]bool{root: true}

	weight := 1.0
	for len(frontier) > 0 && weight > cutoff {
		weight /= 2.0

		next := map[store.FunctionKey]bool{}
		for r := range frontier {
			callees, err := st.CallGraphCallees(r.Name, r.DefLoc)
			if err != nil {
				return nil, fmt.Errorf("call graph callees of %s: %w", r.Name, err)
			}
			for _, c := range callees {
				next[c] = true
			}
		}
		for c := range next {
			calleeWeight[c] += weight
		}
		frontier = next
	}

	out := make([]Intent, len(functionsList))
	for i, names := range functionsList {
		var w float64
		for _, name := range names {
			for c, cw := range calleeWeight {
				if c.Name == name {
					w += cw
				}
			}
		}
		out[i] = Intent{Name: IntentNames[i], Weight: w}
	}
	return out, nil
}

// RunAll scores every function in roots and writes every non-zero-weight
// intent as an ehm_function_similarity row, preceded by the fixed baseline
// row the original always seeded the table with before any scoring ran.
// Uses DefaultWeightCutoff.
func RunAll(st *store.Store, roots []store.FunctionKey) error {
	return RunAllWithCutoff(st, roots, DefaultWeightCutoff)
}

// RunAllWithCutoff is RunAll with an explicit BFS weight cutoff.
func RunAllWithCutoff(st *store.Store, roots []store.FunctionKey, cutoff float64) error {
	if err := st.InsertFunctionSimilarity(store.SimilarityRecord{
		LogName: "return", LogDefLoc: "-", Intention: "return", Weight: 1.0,
	}); err != nil {
		return fmt.Errorf("insert baseline similarity row: %w", err)
	}

	for _, root := range roots {
		intents, err := WeightsWithCutoff(st, root, cutoff)
		if err != nil {
			return err
		}
		for _, intent := range intents {
			if intent.Weight <= 0.0 {
				continue
			}
			rec := store.SimilarityRecord{
				LogName:   root.Name,
				LogDefLoc: root.DefLoc,
				Intention: intent.Name,
				Weight:    intent.Weight,
			}
			if err := st.InsertFunctionSimilarity(rec); err != nil {
				return fmt.Errorf("insert function similarity for %s: %w", root.Name, err)
			}
		}
	}
	return nil
}
