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

import "testing"

func TestParseSimpleEquality(t *testing.T) {
	n, _, err := Parse("malloc_0==0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := Print(n), "malloc_0==0"; got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestParseNotWrapper(t *testing.T) {
	n, _, err := Parse("Not(malloc_0)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n.Kind != KindNot {
		t.Fatalf("Kind = %v, want KindNot", n.Kind)
	}
	if got, want := Print(n), "Not(malloc_0)"; got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestParseAndOrNesting(t *testing.T) {
	n, _, err := Parse("And(foo_0<0, Or(foo_0==1, foo_0==2))")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n.Kind != KindAnd {
		t.Fatalf("Kind = %v, want KindAnd", n.Kind)
	}
	if n.Children[1].Kind != KindOr {
		t.Fatalf("right child Kind = %v, want KindOr", n.Children[1].Kind)
	}
}

func TestParseCollectsVariables(t *testing.T) {
	_, sorts, err := Parse("foo_0==0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !sorts.Int["foo_0"] {
		t.Errorf("expected foo_0 in Int sort set, got %+v", sorts.Int)
	}
}

func TestParseTrailingGarbageIsError(t *testing.T) {
	if _, _, err := Parse("foo_0==0)"); err == nil {
		t.Fatal("expected error for trailing input")
	}
}
