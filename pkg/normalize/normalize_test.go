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

package normalize

import (
	"reflect"
	"testing"

	"github.com/kraklabs/ehminer/pkg/store"
)

func TestNormalizeSlotsReturn(t *testing.T) {
	cs := store.CallSite{
		CallName:        "malloc",
		CallStr:         "malloc_result",
		CallRet:         "malloc_result",
		CallArg:         "-",
		CallArgCount:    0,
		ExprTokens:      "malloc_result#-_-#UO_9_!",
		ExprTokensCount: 2,
	}

	got := Normalize(cs)
	want := []string{"malloc_0", "UO_9_!"}
	if !reflect.DeepEqual(got.Tokens, want) {
		t.Errorf("Normalize() = %v, want %v", got.Tokens, want)
	}
}

func TestNormalizeSlotsArgument(t *testing.T) {
	cs := store.CallSite{
		CallName:        "foo",
		CallStr:         "foo(x)",
		CallRet:         "ret",
		CallArg:         "x",
		CallArgCount:    1,
		ExprTokens:      "x#-_-#0#-_-#BO_13_==",
		ExprTokensCount: 3,
	}

	got := Normalize(cs)
	want := []string{"foo_1", "0", "BO_13_=="}
	if !reflect.DeepEqual(got.Tokens, want) {
		t.Errorf("Normalize() = %v, want %v", got.Tokens, want)
	}
}

func TestNormalizeCountMismatchIsUnusable(t *testing.T) {
	cs := store.CallSite{
		CallName:        "foo",
		CallArg:         "-",
		CallArgCount:    0,
		ExprTokens:      "a#-_-#b",
		ExprTokensCount: 5, // mismatch
	}

	got := Normalize(cs)
	if !got.Unusable() {
		t.Error("expected unusable expr on count mismatch")
	}
}

func TestNormalizeEmptyExprIsUnusable(t *testing.T) {
	cs := store.CallSite{
		CallArg:         "-",
		CallArgCount:    0,
		ExprTokens:      "-",
		ExprTokensCount: 0,
	}
	got := Normalize(cs)
	if !got.Unusable() {
		t.Error("expected unusable expr for empty token stream")
	}
}
