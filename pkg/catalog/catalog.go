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

// Package catalog loads the return-semantics catalog (glibc_return.csv):
// known library functions together with their return type and normal/error
// SMT predicate fragments.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ReturnType is the domain of a catalogued function's return value.
type ReturnType string

const (
	ReturnInt     ReturnType = "INT"
	ReturnPointer ReturnType = "POINTER"
)

// Entry is one row of glibc_return.csv.
type Entry struct {
	DomainName   string
	CallName     string
	CallDefLoc   string
	ReturnType   ReturnType
	NormalQuery  string
	ErrorQuery   string
}

// Catalog is a loaded, queryable return-semantics table.
type Catalog struct {
	// byKey indexes entries by (CallName, CallDefLoc); first-row-wins on
	// duplicates, matching the original lookup's unspecified row order.
	byKey map[key]Entry
}

type key struct {
	name, loc string
}

// Load reads a glibc_return.csv-shaped file (header:
// DomainName,CallName,CallDefLoc,ReturnType,NormalQuery,ErrorQuery) from
// path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	wantHeader := []string{"DomainName", "CallName", "CallDefLoc", "ReturnType", "NormalQuery", "ErrorQuery"}
	if len(header) != len(wantHeader) {
		return nil, fmt.Errorf("catalog header has %d columns, want %d", len(header), len(wantHeader))
	}

	c := &Catalog{byKey: make(map[key]Entry)}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row: %w", err)
		}

		e := Entry{
			DomainName:  row[0],
			CallName:    row[1],
			CallDefLoc:  row[2],
			ReturnType:  ReturnType(row[3]),
			NormalQuery: row[4],
			ErrorQuery:  row[5],
		}
		k := key{name: e.CallName, loc: e.CallDefLoc}
		if _, exists := c.byKey[k]; exists {
			continue // first-row-wins
		}
		c.byKey[k] = e
	}
	return c, nil
}

// Lookup returns the catalog entry for (callName, callDefLoc), if any.
func (c *Catalog) Lookup(callName, callDefLoc string) (Entry, bool) {
	e, ok := c.byKey[key{name: callName, loc: callDefLoc}]
	return e, ok
}
