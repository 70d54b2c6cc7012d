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

// defaultDeny is the built-in skip list of infallible library functions
// whose call sites never carry meaningful error-handling intent, extensible
// at the command line via --deny.
var defaultDeny = []string{
	"strcmp", "strlen", "strncmp", "memcmp", "strcasecmp", "strncasecmp",
	"strtol", "__error", "__errno_location", "__ctype_b_loc",
	"__sync_synchronize", "strtoul", "count", "empty", "g_strcmp0",
	"g_ascii_strcasecmp", "g_ascii_strncasecmp", "isEmpty", "isNull",
	"qCompare", "size", "strchr", "strstr", "rand", "strrchr", "sscanf",
	"snprintf", "atoi", "fprintf", "_IO_getc",
}

// DenyList is the set of call names to skip entirely during equivalence
// grouping, seeded from defaultDeny and extended via Add.
type DenyList struct {
	set map[string]bool
}

// NewDenyList builds a DenyList from the built-in defaults plus any extra
// names (as supplied by --deny).
func NewDenyList(extra ...string) *DenyList {
	d := &DenyList{set: make(map[string]bool, len(defaultDeny)+len(extra))}
	for _, n := range defaultDeny {
		d.set[n] = true
	}
	for _, n := range extra {
		d.set[n] = true
	}
	return d
}

// Skip reports whether callName should be excluded from analysis: it is on
// the deny list, is the "operator" overload marker, or is a compiler
// builtin.
func (d *DenyList) Skip(callName string) bool {
	if callName == "operator" {
		return true
	}
	if len(callName) >= len("__builtin") && callName[:len("__builtin")] == "__builtin" {
		return true
	}
	return d.set[callName]
}
