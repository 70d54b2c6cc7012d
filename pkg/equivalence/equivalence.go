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

// Package equivalence groups a target function's branch conditions into
// semantic equivalence classes (component F): it normalizes and folds each
// call site's expression, checks pairwise SMT equivalence, unions matches
// with a disjoint-set forest, labels each class's path intention, and
// writes the result back to the store. Independent target functions run
// concurrently; each gets its own SMT decision cache so one target's
// results never leak into another's.
package equivalence

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kraklabs/ehminer/pkg/catalog"
	"github.com/kraklabs/ehminer/pkg/formula"
	"github.com/kraklabs/ehminer/pkg/intention"
	"github.com/kraklabs/ehminer/pkg/normalize"
	"github.com/kraklabs/ehminer/pkg/smt"
	"github.com/kraklabs/ehminer/pkg/store"
)

// Processor runs component F against one store, using cat for return
// semantics and deny to skip infallible functions.
type Processor struct {
	Store *store.Store
	Cat   *catalog.Catalog
	Deny  *DenyList
}

// NewProcessor returns a Processor ready to run.
func NewProcessor(st *store.Store, cat *catalog.Catalog, deny *DenyList) *Processor {
	return &Processor{Store: st, Cat: cat, Deny: deny}
}

type usableSite struct {
	index int // index into the original CallSites slice
	node  *formula.Node
	sorts formula.Sorts
}

// ProcessTarget groups every call site of one target function and writes
// the resulting ehm_condition_equivalence rows. A function on the deny
// list, or named "operator"/an "__builtin*" overload, is skipped entirely
// — no rows are written for it, matching the upstream tool's behaviour of
// never surfacing these as analysis targets at all.
func (p *Processor) ProcessTarget(fn store.FunctionKey) error {
	if p.Deny.Skip(fn.Name) {
		return nil
	}

	sites, err := p.Store.CallSites(fn.Name, fn.DefLoc)
	if err != nil {
		return fmt.Errorf("call sites: %w", err)
	}
	if len(sites) == 0 {
		return nil
	}

	bridge := smt.New()

	var usable []usableSite
	var orphans []int
	for i, cs := range sites {
		expr := normalize.Normalize(cs)
		if expr.Unusable() {
			slog.Debug("unusable call site, treating as orphan",
				"call_id", cs.CallID, "callee", fn.Name, "reason", "normalization rejected the expression")
			orphans = append(orphans, i)
			continue
		}
		node, sorts, err := formula.Build(expr.Tokens, cs)
		if err != nil {
			slog.Debug("unusable call site, treating as orphan",
				"call_id", cs.CallID, "callee", fn.Name, "reason", err)
			orphans = append(orphans, i)
			continue
		}
		usable = append(usable, usableSite{index: i, node: node, sorts: sorts})
	}

	entry, hasEntry := p.Cat.Lookup(fn.Name, fn.DefLoc)

	// When a catalog entry exists, restrict every query to F's own
	// normal/error domain before comparing: queries that only agree inside
	// Or(normal, error) (e.g. F_0==0 vs F_0>=0 when the domain is F_0<=0)
	// must land in the same equivalence class, matching get_equivalence's
	// And(q, Or(normal, error)) rewrite and its return-type sort override.
	restricted := usable
	if hasEntry {
		normal, normalSorts, errN := formula.Parse(entry.NormalQuery)
		errNode, errSorts, errE := formula.Parse(entry.ErrorQuery)
		if errN != nil || errE != nil {
			slog.Debug("catalog entry has unparsable normal/error query, comparing call sites unrestricted",
				"callee", fn.Name)
		} else {
			slot := entry.CallName + "_0"
			slotSort := formula.SortInt
			if entry.ReturnType == catalog.ReturnPointer {
				slotSort = formula.SortBool
			}
			formula.OverrideSort(normalSorts, slot, slotSort)
			formula.OverrideSort(errSorts, slot, slotSort)
			returnQuery := &formula.Node{Kind: formula.KindOr, Children: []*formula.Node{normal, errNode}}
			returnSorts := formula.MergeSorts(normalSorts, errSorts)

			restricted = make([]usableSite, len(usable))
			for i, u := range usable {
				own := formula.CopySorts(u.sorts)
				formula.OverrideSort(own, slot, slotSort)
				restricted[i] = usableSite{
					index: u.index,
					node:  &formula.Node{Kind: formula.KindAnd, Children: []*formula.Node{u.node, returnQuery}},
					sorts: formula.MergeSorts(own, returnSorts),
				}
			}
		}
	}

	uf := NewUnionFind(len(usable))
	for i := 0; i < len(usable); i++ {
		for j := i + 1; j < len(usable); j++ {
			if bridge.Equivalent(restricted[i].node, restricted[j].node, restricted[i].sorts, restricted[j].sorts, fn.Name) {
				uf.Union(i, j)
			}
		}
	}

	exprSetID := 1
	for _, members := range uf.Groups() {
		pathIntention := intention.Uncheck
		if hasEntry {
			first := usable[members[0]]
			pathIntention = intention.Label(first.node, first.sorts, entry, bridge)
		}

		for _, m := range members {
			site := usable[m]
			rec := store.EquivalenceRecord{
				CallSite:      sites[site.index],
				ExprSetID:     exprSetID,
				PathIntention: pathIntention,
				ExprStrVec:    formula.Print(site.node),
			}
			if err := p.Store.InsertConditionEquivalence(rec); err != nil {
				return fmt.Errorf("insert equivalence row: %w", err)
			}
		}
		exprSetID++
	}

	for _, i := range orphans {
		rec := store.EquivalenceRecord{
			CallSite:      sites[i],
			ExprSetID:     0,
			PathIntention: intention.Unknown,
		}
		if err := p.Store.InsertConditionEquivalence(rec); err != nil {
			return fmt.Errorf("insert orphan row: %w", err)
		}
	}

	return nil
}

// RunAll processes every target function using up to workers goroutines,
// one SMT decision cache per in-flight target. Errors from individual
// targets are collected and returned together; a failure in one target
// does not stop the others.
func (p *Processor) RunAll(targets []store.FunctionKey, workers int) error {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan store.FunctionKey)
	errs := make(chan error, len(targets))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fn := range jobs {
				if err := p.ProcessTarget(fn); err != nil {
					errs <- fmt.Errorf("%s (%s): %w", fn.Name, fn.DefLoc, err)
				}
			}
		}()
	}

	for _, t := range targets {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	close(errs)

	var all []error
	for e := range errs {
		all = append(all, e)
	}
	return errors.Join(all...)
}
