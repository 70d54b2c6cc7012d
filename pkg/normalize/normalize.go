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

// Package normalize converts a call site's raw, post-order token stream into
// canonical symbolic form: callee-return and argument references are
// rewritten to stable slot names F_0 (return) and F_i (i-th argument).
package normalize

import (
	"strconv"
	"strings"

	"github.com/kraklabs/ehminer/pkg/store"
)

const tokenSep = "#-_-#"

// Expr is the output of Normalize: the canonical post-order token stream
// ready for folding by pkg/formula, or a nil Tokens slice if the site is
// unusable.
type Expr struct {
	Tokens []string
}

// Unusable reports whether the site failed normalization (count mismatch or
// an empty token list) and must be treated as an orphan.
func (e Expr) Unusable() bool {
	return len(e.Tokens) == 0
}

// Normalize implements the component C algorithm against one call site.
func Normalize(cs store.CallSite) Expr {
	callRet := splitStripLeadingRefs(cs.CallRet)

	callArg := strings.Split(cs.CallArg, tokenSep)
	if len(callArg) > 0 && callArg[0] == "-" {
		callArg = callArg[1:]
	}
	if len(callArg) != cs.CallArgCount {
		return Expr{}
	}
	for i, a := range callArg {
		callArg[i] = stripLeadingRefs(a)
	}

	tokens := strings.Split(cs.ExprTokens, tokenSep)
	if len(tokens) > 0 && tokens[0] == "-" {
		tokens = tokens[1:]
	}
	if len(tokens) != cs.ExprTokensCount {
		return Expr{}
	}
	if len(tokens) == 0 {
		return Expr{}
	}

	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = slot(tok, cs.CallName, cs.CallStr, callRet, callArg)
	}
	return Expr{Tokens: out}
}

// slot renames tok to F_0/F_i if it matches call_str, a call_ret alternate,
// or the i-th call_arg; numeric and float literals and unmatched tokens pass
// through unchanged.
func slot(tok, callName, callStr string, callRet, callArg []string) string {
	if isDigits(tok) {
		return tok
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return tok
	}
	if tok == callStr {
		return callName + "_0"
	}
	for _, ret := range callRet {
		if tok == ret {
			return callName + "_0"
		}
	}
	for i, arg := range callArg {
		if tok == arg {
			return callName + "_" + strconv.Itoa(i+1)
		}
	}
	return tok
}

// splitStripLeadingRefs strips a leading run of '&'/'*' from the whole
// string once, then splits on the token separator — matching call_ret's
// stripping order exactly (unlike call_arg, whose elements are each
// stripped individually after splitting).
func splitStripLeadingRefs(s string) []string {
	return strings.Split(stripLeadingRefs(s), tokenSep)
}

// stripLeadingRefs strips a leading run of '&'/'*' characters, keeping at
// least one character.
func stripLeadingRefs(s string) string {
	for len(s) > 1 && (s[0] == '&' || s[0] == '*') {
		s = s[1:]
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
