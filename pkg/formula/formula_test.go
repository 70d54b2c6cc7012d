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

package formula

import (
	"testing"

	"github.com/kraklabs/ehminer/pkg/store"
)

func TestBuildUnaryNot(t *testing.T) {
	cs := store.CallSite{CallName: "malloc", CallRet: "malloc_result", CallArg: "-"}
	tokens := []string{"malloc_0", "UO_9_!"}

	n, _, err := Build(tokens, cs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n.Kind != KindNot {
		t.Fatalf("Kind = %v, want KindNot", n.Kind)
	}
	if got, want := Print(n), "Not(malloc_0!=0)"; got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestBuildEqualityPlainInts(t *testing.T) {
	cs := store.CallSite{CallName: "foo", CallRet: "ret", CallArg: "x"}
	tokens := []string{"foo_1", "0", "BO_13_=="}

	n, _, err := Build(tokens, cs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := Print(n), "foo_1==0"; got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestBuildEqualityRewritesBoolLiteral(t *testing.T) {
	cs := store.CallSite{CallName: "x", CallRet: "ret", CallArg: "-"}
	// (!x_1) == 0  ->  right side 0 must be rewritten to False since the
	// left side is bool-typed.
	tokens := []string{"x_1", "UO_9_!", "0", "BO_13_=="}

	n, _, err := Build(tokens, cs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n.Kind != KindEq {
		t.Fatalf("Kind = %v, want KindEq", n.Kind)
	}
	right := n.Children[1]
	if right.Kind != KindBoolLit || right.BoolLit != false {
		t.Errorf("right child = %+v, want BoolLit(false)", right)
	}
	if got, want := Print(n), "Not(x_1!=0)==False"; got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestBuildLogicalAndWrapsNonBoolOperands(t *testing.T) {
	cs := store.CallSite{CallName: "f", CallRet: "ret", CallArg: "a#-_-#b"}
	tokens := []string{"f_1", "f_2", "BO_18_&&"}

	n, _, err := Build(tokens, cs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := Print(n), "And(f_1!=0,f_2!=0)"; got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestBuildUnsupportedBinaryOperatorIsParseError(t *testing.T) {
	cs := store.CallSite{CallName: "f", CallRet: "ret", CallArg: "-"}
	tokens := []string{"f_0", "1", "BO_99_??"}

	_, _, err := Build(tokens, cs)
	if err == nil {
		t.Fatal("expected parse error for unsupported binary operator")
	}
	var pe *ParseError
	if !asParseError(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestBuildWrapsLoneNonBoolResult(t *testing.T) {
	cs := store.CallSite{CallName: "f", CallRet: "ret", CallArg: "-"}
	tokens := []string{"f_0"}

	n, _, err := Build(tokens, cs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := Print(n), "f_0!=0"; got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if ok {
		*target = pe
	}
	return ok
}
