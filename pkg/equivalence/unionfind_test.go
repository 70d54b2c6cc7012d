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

package equivalence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionFindMergesTransitively(t *testing.T) {
	uf := NewUnionFind(5)
	uf.Union(0, 1)
	uf.Union(1, 2)
	uf.Union(3, 4)

	assert.Equal(t, uf.Find(0), uf.Find(2))
	assert.NotEqual(t, uf.Find(0), uf.Find(3))
	assert.Equal(t, uf.Find(3), uf.Find(4))
}

func TestUnionFindGroupsByRepresentative(t *testing.T) {
	uf := NewUnionFind(4)
	uf.Union(0, 2)

	groups := uf.Groups()
	var found bool
	for _, members := range groups {
		if len(members) == 2 {
			assert.Contains(t, members, 0)
			assert.Contains(t, members, 2)
			found = true
		}
	}
	assert.True(t, found, "expected a group containing {0,2}")
	assert.Len(t, groups, 3) // {0,2}, {1}, {3}
}

func TestUnionFindSingleElementSetsAreSeparate(t *testing.T) {
	uf := NewUnionFind(3)
	assert.Len(t, uf.Groups(), 3)
}
