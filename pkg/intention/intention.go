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

// Package intention labels a branch condition against a callee's catalogued
// return semantics (component G): whether the branch checks for the
// normal-return case, the error-return case, a proper subset of either, or
// neither.
package intention

import (
	"github.com/kraklabs/ehminer/pkg/catalog"
	"github.com/kraklabs/ehminer/pkg/formula"
	"github.com/kraklabs/ehminer/pkg/smt"
)

const (
	Normal    = "NORMAL"
	SubNormal = "SUB-NORMAL"
	Error     = "ERROR"
	SubError  = "SUB-ERROR"
	// Uncheck is assigned by the caller, not by Label: it marks every class
	// of a function with no catalog entry, since Label has nothing to test
	// branch conditions against in that case.
	Uncheck = "UNCHECK"
	Unknown = "UNKNOWN"
)

// Label classifies branch (the folded branch-condition formula, component D's
// output for a call site) against entry's normal/error predicates, using
// bridge to run four entailment checks. Callers are responsible for the
// catalog-miss case: Label assumes entry.NormalQuery/ErrorQuery are present
// and returns UNKNOWN should either of them fail to parse.
//
// entry.CallName's return slot (<CallName>_0) is forced to the sort implied
// by entry.ReturnType — Bool for POINTER, Int for INT — in the branch,
// normal, and error formulas alike, overriding whatever sort the slot was
// tagged with (or the Int default an untagged slot would otherwise fall back
// to). Without this, a POINTER-returning predicate like Not(malloc_0) builds
// malloc_0 as an Int term and the solver call fails.
//
//   - branch_query := branch && (normal || error)
//   - NORMAL:     branch_query entails normal, and normal entails branch_query
//   - SUB-NORMAL: branch_query entails normal (a proper subset)
//   - ERROR:      branch_query entails error, and error entails branch_query
//   - SUB-ERROR:  branch_query entails error (a proper subset)
//   - UNKNOWN:    none of the above
func Label(branch *formula.Node, branchSorts formula.Sorts, entry catalog.Entry, bridge *smt.Bridge) string {
	normal, normalSorts, err := formula.Parse(entry.NormalQuery)
	if err != nil {
		return Unknown
	}
	errNode, errSorts, err := formula.Parse(entry.ErrorQuery)
	if err != nil {
		return Unknown
	}

	slot := entry.CallName + "_0"
	slotSort := formula.SortInt
	if entry.ReturnType == catalog.ReturnPointer {
		slotSort = formula.SortBool
	}
	branchSorts = formula.CopySorts(branchSorts)
	formula.OverrideSort(branchSorts, slot, slotSort)
	formula.OverrideSort(normalSorts, slot, slotSort)
	formula.OverrideSort(errSorts, slot, slotSort)

	returnQuery := &formula.Node{Kind: formula.KindOr, Children: []*formula.Node{normal, errNode}}
	returnSorts := formula.MergeSorts(normalSorts, errSorts)

	branchQuery := &formula.Node{Kind: formula.KindAnd, Children: []*formula.Node{branch, returnQuery}}
	branchQuerySorts := formula.MergeSorts(branchSorts, returnSorts)

	entailsNormal := bridge.Entails(branchQuery, normal, branchQuerySorts, normalSorts)
	normalEntails := bridge.Entails(normal, branchQuery, normalSorts, branchQuerySorts)
	if entailsNormal && normalEntails {
		return Normal
	}
	if entailsNormal {
		return SubNormal
	}

	entailsError := bridge.Entails(branchQuery, errNode, branchQuerySorts, errSorts)
	errorEntails := bridge.Entails(errNode, branchQuery, errSorts, branchQuerySorts)
	if entailsError && errorEntails {
		return Error
	}
	if entailsError {
		return SubError
	}

	return Unknown
}
