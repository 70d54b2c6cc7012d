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

package equivalence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ehminer/pkg/catalog"
	"github.com/kraklabs/ehminer/pkg/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{DataDir: t.TempDir(), Engine: "mem"})
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema())
	return s
}

func seedCallSite(t *testing.T, s *store.Store, branchID int64, callRet, callArg, exprTokens string, exprCount int) {
	t.Helper()
	require.NoError(t, s.InsertFunctionAction(store.ActionRecord{LogName: "log_error", LogDefLoc: "log.h", Intention: "log", Level: 0}))
	require.NoError(t, s.InsertBranchCall(store.CallSite{
		BranchID:        branchID,
		Domain:          "libc",
		Project:         "proj1",
		CallName:        "malloc",
		CallDefLoc:      "stdlib.h",
		CallID:          "c1",
		CallStr:         "malloc_result",
		CallRet:         callRet,
		CallArg:         callArg,
		CallArgCount:    0,
		ExprTokens:      exprTokens,
		ExprTokensCount: exprCount,
		LogName:         "log_error",
		LogDefLoc:       "log.h",
		LogID:           "l1",
		LogStr:          "log_error(...)",
	}))
}

func TestProcessTargetGroupsEquivalentBranches(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	seedCallSite(t, s, 1, "malloc_result", "-", "malloc_result#-_-#UO_9_!", 2)
	seedCallSite(t, s, 2, "malloc_result", "-", "malloc_result#-_-#UO_9_!", 2)

	cat := &catalog.Catalog{}
	p := NewProcessor(s, cat, NewDenyList())

	require.NoError(t, p.ProcessTarget(store.FunctionKey{Name: "malloc", DefLoc: "stdlib.h"}))
}

func TestProcessTargetSkipsDeniedFunctions(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	require.NoError(t, s.InsertFunctionAction(store.ActionRecord{LogName: "log_error", LogDefLoc: "log.h"}))
	require.NoError(t, s.InsertBranchCall(store.CallSite{
		BranchID: 1, CallName: "strcmp", CallDefLoc: "string.h",
		CallStr: "strcmp_result", CallRet: "strcmp_result", CallArg: "-",
		ExprTokens: "strcmp_result#-_-#UO_9_!", ExprTokensCount: 2,
		LogName: "log_error", LogDefLoc: "log.h",
	}))

	cat := &catalog.Catalog{}
	p := NewProcessor(s, cat, NewDenyList())
	require.NoError(t, p.ProcessTarget(store.FunctionKey{Name: "strcmp", DefLoc: "string.h"}))
}

func TestRunAllProcessesEveryTarget(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	seedCallSite(t, s, 1, "malloc_result", "-", "malloc_result#-_-#UO_9_!", 2)

	cat := &catalog.Catalog{}
	p := NewProcessor(s, cat, NewDenyList())

	err := p.RunAll([]store.FunctionKey{
		{Name: "malloc", DefLoc: "stdlib.h"},
		{Name: "nonexistent", DefLoc: "nowhere.h"},
	}, 2)
	require.NoError(t, err)
}

func TestDenyListSkipsBuiltinTrap(t *testing.T) {
	d := NewDenyList()
	if !strings.HasPrefix("__builtin_trap", "__builtin") || !d.Skip("__builtin_trap") {
		t.Fatal("expected __builtin_trap to be skipped")
	}
}
