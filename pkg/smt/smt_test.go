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

package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ehminer/pkg/formula"
	"github.com/kraklabs/ehminer/pkg/store"
)

func TestCacheKeyIsSymmetric(t *testing.T) {
	a := cacheKey("x==0", "y!=1", "foo")
	b := cacheKey("y!=1", "x==0", "foo")
	assert.Equal(t, a, b)
}

func TestCacheKeyDistinguishesCallee(t *testing.T) {
	a := cacheKey("x==0", "y!=1", "foo")
	b := cacheKey("x==0", "y!=1", "bar")
	assert.NotEqual(t, a, b)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	cs := store.CallSite{CallName: "foo", CallRet: "ret", CallArg: "-"}
	n, _, err := formula.Build([]string{"foo_0"}, cs)
	require.NoError(t, err)

	f1 := Fingerprint(n, "foo")
	f2 := Fingerprint(n, "foo")
	assert.Equal(t, f1, f2)

	f3 := Fingerprint(n, "bar")
	assert.NotEqual(t, f1, f3)
}

func TestEquivalentIdenticalFormulasAreEquivalent(t *testing.T) {
	cs := store.CallSite{CallName: "foo", CallRet: "ret", CallArg: "-"}
	n1, s1, err := formula.Build([]string{"foo_0", "0", "BO_13_=="}, cs)
	require.NoError(t, err)
	n2, s2, err := formula.Build([]string{"foo_0", "0", "BO_13_=="}, cs)
	require.NoError(t, err)

	b := New()
	assert.True(t, b.Equivalent(n1, n2, s1, s2, "foo"))
}

func TestEquivalentContradictoryFormulasAreNotEquivalent(t *testing.T) {
	cs := store.CallSite{CallName: "foo", CallRet: "ret", CallArg: "-"}
	eq, s1, err := formula.Build([]string{"foo_0", "0", "BO_13_=="}, cs)
	require.NoError(t, err)
	neq, s2, err := formula.Build([]string{"foo_0", "0", "BO_14_!="}, cs)
	require.NoError(t, err)

	b := New()
	assert.False(t, b.Equivalent(eq, neq, s1, s2, "foo"))
}

func TestEquivalentCachesSymmetrically(t *testing.T) {
	cs := store.CallSite{CallName: "foo", CallRet: "ret", CallArg: "-"}
	n1, s1, err := formula.Build([]string{"foo_0", "0", "BO_13_=="}, cs)
	require.NoError(t, err)
	n2, s2, err := formula.Build([]string{"foo_0", "0", "BO_13_=="}, cs)
	require.NoError(t, err)

	b := New()
	want := b.Equivalent(n1, n2, s1, s2, "foo")
	got := b.Equivalent(n2, n1, s2, s1, "foo")
	assert.Equal(t, want, got)
}
