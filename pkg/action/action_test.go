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

//go:build cgo

package action

import (
	"testing"

	"github.com/kraklabs/ehminer/pkg/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.EnsureSchema(); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return s
}

func TestClassifyDirectExitMatch(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	root := store.FunctionKey{Name: "abort", DefLoc: "stdlib.h"}
	got, err := Classify(s, root, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	var found bool
	for _, c := range got {
		if c.Intention == "exit" {
			found = true
			if c.Trace != "abort" || c.Level != 1 {
				t.Errorf("Classification = %+v, want trace=abort level=1", c)
			}
		}
	}
	if !found {
		t.Fatal("expected an exit classification for abort")
	}
}

func TestClassifyExpandsThroughKeywordMatch(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	root := store.FunctionKey{Name: "log_error", DefLoc: "log.h"}
	if err := s.InsertCallGraphEdge(root, store.FunctionKey{Name: "fprintf", DefLoc: "stdio.h"}); err != nil {
		t.Fatalf("InsertCallGraphEdge: %v", err)
	}

	got, err := Classify(s, root, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	var found bool
	for _, c := range got {
		if c.Intention == "output" {
			found = true
			if c.Trace != "log_error->fprintf" || c.Level != 2 {
				t.Errorf("Classification = %+v, want trace=log_error->fprintf level=2", c)
			}
		}
	}
	if !found {
		t.Fatal("expected an output classification reached via log_error->fprintf")
	}
}

func TestClassifyNoMatchYieldsNoClassifications(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	root := store.FunctionKey{Name: "compute_checksum", DefLoc: "util.h"}
	got, err := Classify(s, root, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Classify() = %v, want no classifications", got)
	}
}

func TestRunAllWritesRows(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	roots := []store.FunctionKey{{Name: "abort", DefLoc: "stdlib.h"}}
	if err := RunAll(s, roots); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
}
