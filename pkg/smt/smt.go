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

// Package smt bridges component D's formula AST to Z3 (component E): it
// declares the free variables of a pair of formulas, asks whether they can
// ever disagree, and owns the per-target-function equivalence decision
// cache so the same pair of queries is never put to the solver twice.
package smt

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	z3 "github.com/mitchellh/go-z3"

	"github.com/kraklabs/ehminer/pkg/formula"
)

// Bridge owns one target function's worth of SMT state: the symmetric
// decision cache and the set of cache keys whose solver call failed.
// Component F creates a fresh Bridge per target function with New; Reset
// clears an existing one.
type Bridge struct {
	mu       sync.Mutex
	decision map[string]bool
	failed   map[string]bool
}

// New returns an empty Bridge.
func New() *Bridge {
	return &Bridge{decision: map[string]bool{}, failed: map[string]bool{}}
}

// Reset clears the caches; call between target functions.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decision = map[string]bool{}
	b.failed = map[string]bool{}
}

// Equivalent decides whether n1 and n2 (belonging to call sites of callee)
// are semantically equivalent under the combined sort information of both.
// Results are cached symmetrically: checking (n1, n2) and (n2, n1) for the
// same callee hits the same cache entry. A solver failure (unsupported
// construct, declaration error) is cached as non-equivalent and never
// retried for the same key, matching the source tool's fail-safe behaviour.
func (b *Bridge) Equivalent(n1, n2 *formula.Node, s1, s2 formula.Sorts, callee string) bool {
	key := cacheKey(formula.Print(n1), formula.Print(n2), callee)

	b.mu.Lock()
	if v, ok := b.decision[key]; ok {
		b.mu.Unlock()
		return v
	}
	if b.failed[key] {
		b.mu.Unlock()
		return false
	}
	b.mu.Unlock()

	eq, err := b.check(n1, n2, s1, s2)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		slog.Debug("smt solver failure, treating as non-equivalent",
			"callee", callee, "reason", err)
		b.failed[key] = true
		return false
	}
	b.decision[key] = eq
	return eq
}

func cacheKey(q1, q2, callee string) string {
	if q1 > q2 {
		q1, q2 = q2, q1
	}
	return q1 + "\x00" + q2 + "\x00" + callee
}

// Entails reports whether premise logically entails conclusion: whether
// every assignment satisfying premise also satisfies conclusion. Used by
// the path-intention labeller (component G) for its four implication
// checks. Declaration or solver failures are treated as "does not entail",
// the same fail-safe posture as Equivalent.
func (b *Bridge) Entails(premise, conclusion *formula.Node, sp, sc formula.Sorts) bool {
	key := "entails\x00" + formula.Print(premise) + "\x00" + formula.Print(conclusion)

	b.mu.Lock()
	if v, ok := b.decision[key]; ok {
		b.mu.Unlock()
		return v
	}
	if b.failed[key] {
		b.mu.Unlock()
		return false
	}
	b.mu.Unlock()

	ok, err := b.entails(premise, conclusion, sp, sc)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		slog.Debug("smt entailment check failure, treating as not entailed", "reason", err)
		b.failed[key] = true
		return false
	}
	b.decision[key] = ok
	return ok
}

func (b *Bridge) entails(premise, conclusion *formula.Node, sp, sc formula.Sorts) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("smt: %v", r)
		}
	}()

	cfg := z3.NewConfig()
	ctx := z3.NewContext(cfg)
	defer ctx.Close()
	cfg.Close()

	vars := newEnv(ctx)
	declareAll(vars, sp)
	declareAll(vars, sc)
	vars.declare("dummy_int_1", formula.SortInt)
	vars.declare("dummy_int_2", formula.SortInt)
	vars.declare("dummy_real_1", formula.SortReal)
	vars.declare("dummy_real_2", formula.SortReal)
	vars.declare("dummy_bool_1", formula.SortBool)
	vars.declare("dummy_bool_2", formula.SortBool)

	pAst, err := vars.build(premise)
	if err != nil {
		return false, err
	}
	cAst, err := vars.build(conclusion)
	if err != nil {
		return false, err
	}

	solver := ctx.NewSolver()
	defer solver.Close()
	solver.Assert(pAst.And(cAst.Not()))

	switch solver.Check() {
	case z3.False:
		return true, nil
	case z3.True:
		return false, nil
	default:
		return false, nil
	}
}

// check builds a fresh Z3 context, declares every free variable referenced
// by either formula plus two dummy variables per sort (matching the
// dummy_int_1/2, dummy_real_1/2, dummy_bool_1/2 injection used to keep the
// solver's variable universe non-empty even for constant formulas), asserts
// that the two formulas can disagree, and reports equivalence as UNSAT of
// that assertion.
func (b *Bridge) check(n1, n2 *formula.Node, s1, s2 formula.Sorts) (eq bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("smt: %v", r)
		}
	}()

	cfg := z3.NewConfig()
	ctx := z3.NewContext(cfg)
	defer ctx.Close()
	cfg.Close()

	vars := newEnv(ctx)
	declareAll(vars, s1)
	declareAll(vars, s2)
	vars.declare("dummy_int_1", formula.SortInt)
	vars.declare("dummy_int_2", formula.SortInt)
	vars.declare("dummy_real_1", formula.SortReal)
	vars.declare("dummy_real_2", formula.SortReal)
	vars.declare("dummy_bool_1", formula.SortBool)
	vars.declare("dummy_bool_2", formula.SortBool)

	a1, err := vars.build(n1)
	if err != nil {
		return false, err
	}
	a2, err := vars.build(n2)
	if err != nil {
		return false, err
	}

	solver := ctx.NewSolver()
	defer solver.Close()

	disagree := a1.Iff(a2).Not()
	solver.Assert(disagree)

	switch solver.Check() {
	case z3.False:
		return true, nil
	case z3.True:
		return false, nil
	default:
		return false, nil
	}
}

// env tracks declared Z3 constants by name so repeated references inside
// one formula (or across n1/n2) resolve to the same AST node.
type env struct {
	ctx   *z3.Context
	byName map[string]*z3.AST
}

func newEnv(ctx *z3.Context) *env {
	return &env{ctx: ctx, byName: map[string]*z3.AST{}}
}

func (e *env) declare(name string, s formula.Sort) {
	if _, ok := e.byName[name]; ok {
		return
	}
	e.byName[name] = e.ctx.Const(e.ctx.Symbol(name), sortOf(e.ctx, s))
}

func declareAll(e *env, s formula.Sorts) {
	names := make([]string, 0, len(s.Int)+len(s.Real)+len(s.Bool))
	for n := range s.Int {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		e.declare(n, formula.SortInt)
	}

	names = names[:0]
	for n := range s.Real {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		e.declare(n, formula.SortReal)
	}

	names = names[:0]
	for n := range s.Bool {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		e.declare(n, formula.SortBool)
	}
}

func sortOf(ctx *z3.Context, s formula.Sort) *z3.Sort {
	switch s {
	case formula.SortReal:
		return ctx.RealSort()
	case formula.SortBool:
		return ctx.BoolSort()
	default:
		return ctx.IntSort()
	}
}

// build converts a formula.Node into a Z3 AST, declaring any variable it
// has not seen yet as an integer (the default sort for slotted call
// arguments that component D never tagged with a VARIABLE_* unary op).
func (e *env) build(n *formula.Node) (*z3.AST, error) {
	switch n.Kind {
	case formula.KindVar:
		if ast, ok := e.byName[n.Name]; ok {
			return ast, nil
		}
		e.declare(n.Name, formula.SortInt)
		return e.byName[n.Name], nil

	case formula.KindIntLit:
		v, err := strconv.ParseInt(n.Lit, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int literal %q: %w", n.Lit, err)
		}
		return e.ctx.Int(int(v), e.ctx.IntSort()), nil

	case formula.KindRealLit:
		num, den, err := parseRational(n.Lit)
		if err != nil {
			return nil, err
		}
		return e.ctx.Real(num, den), nil

	case formula.KindBoolLit:
		if n.BoolLit {
			return e.ctx.True(), nil
		}
		return e.ctx.False(), nil
	}

	children := make([]*z3.AST, len(n.Children))
	for i, c := range n.Children {
		ast, err := e.build(c)
		if err != nil {
			return nil, err
		}
		children[i] = ast
	}

	switch n.Kind {
	case formula.KindAdd:
		return children[0].Add(children[1]), nil
	case formula.KindSub:
		return children[0].Sub(children[1]), nil
	case formula.KindMul:
		return children[0].Mul(children[1]), nil
	case formula.KindDiv:
		return children[0].Div(children[1]), nil
	case formula.KindMod:
		return children[0].Mod(children[1]), nil
	case formula.KindLt:
		return children[0].Lt(children[1]), nil
	case formula.KindGt:
		return children[0].Gt(children[1]), nil
	case formula.KindLe:
		return children[0].Le(children[1]), nil
	case formula.KindGe:
		return children[0].Ge(children[1]), nil
	case formula.KindEq:
		return children[0].Eq(children[1]), nil
	case formula.KindNe:
		return children[0].Eq(children[1]).Not(), nil
	case formula.KindAnd:
		return children[0].And(children[1]), nil
	case formula.KindOr:
		return children[0].Or(children[1]), nil
	case formula.KindNot:
		return children[0].Not(), nil
	case formula.KindNeg:
		return e.ctx.Int(0, e.ctx.IntSort()).Sub(children[0]), nil
	case formula.KindPos:
		return children[0], nil
	default:
		return nil, fmt.Errorf("unsupported node kind %d", n.Kind)
	}
}

// parseRational converts a decimal literal ("1.5", "3", "-0.25") into an
// integer numerator/denominator pair for z3.Context.Real, scaling by the
// fractional digit count instead of round-tripping through float64 so the
// exact constant (not a binary-float approximation of it) reaches the
// solver.
func parseRational(lit string) (num, den int, err error) {
	neg := strings.HasPrefix(lit, "-")
	if neg {
		lit = lit[1:]
	}
	whole, frac, hasFrac := strings.Cut(lit, ".")
	den = 1
	if hasFrac {
		for range frac {
			den *= 10
		}
	}
	digits := whole + frac
	if digits == "" {
		digits = "0"
	}
	n, convErr := strconv.Atoi(digits)
	if convErr != nil {
		return 0, 0, fmt.Errorf("bad real literal %q: %w", lit, convErr)
	}
	if neg {
		n = -n
	}
	return n, den, nil
}

// fingerprint builds a dedup key for a malformed expression from its
// printed form and its callee name.
func fingerprint(exprPrint, calleeName string) string {
	var b strings.Builder
	b.WriteString(exprPrint)
	b.WriteString(calleeName)
	return b.String()
}

// Fingerprint exposes fingerprint for a formula node.
func Fingerprint(n *formula.Node, calleeName string) string {
	return fingerprint(formula.Print(n), calleeName)
}
