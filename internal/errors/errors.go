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

// Package errors provides the structured, user-facing error envelope used
// across ehminer's CLI and libraries: a title, a detail, a hint, and an
// optional wrapped cause.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind classifies a UserError for JSON output and exit-code bucketing.
type Kind string

const (
	KindInternal   Kind = "internal"
	KindConfig     Kind = "config"
	KindDatabase   Kind = "database"
	KindPermission Kind = "permission"
	KindNetwork    Kind = "network"
	KindInput      Kind = "input"
)

// UserError is a structured error meant to be shown directly to a human:
// what went wrong, why, and what to do about it.
type UserError struct {
	Kind   Kind   `json:"kind"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Hint   string `json:"hint,omitempty"`
	Cause  error  `json:"-"`
}

func (e *UserError) Error() string {
	if e.Detail == "" {
		return e.Title
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

func (e *UserError) Unwrap() error { return e.Cause }

func newError(kind Kind, title, detail, hint string, cause error) error {
	return &UserError{Kind: kind, Title: title, Detail: detail, Hint: hint, Cause: cause}
}

func NewInternalError(title, detail, hint string, cause error) error {
	return newError(KindInternal, title, detail, hint, cause)
}

func NewConfigError(title, detail, hint string, cause error) error {
	return newError(KindConfig, title, detail, hint, cause)
}

func NewDatabaseError(title, detail, hint string, cause error) error {
	return newError(KindDatabase, title, detail, hint, cause)
}

func NewPermissionError(title, detail, hint string, cause error) error {
	return newError(KindPermission, title, detail, hint, cause)
}

func NewNetworkError(title, detail, hint string, cause error) error {
	return newError(KindNetwork, title, detail, hint, cause)
}

func NewInputError(title, detail, hint string, cause error) error {
	return newError(KindInput, title, detail, hint, cause)
}

// jsonEnvelope is the wire shape written to stderr when FatalError runs in
// JSON mode.
type jsonEnvelope struct {
	Error UserError `json:"error"`
}

// FatalError prints err to stderr (as a human-readable message, or as a
// JSON envelope when jsonMode is set) and terminates the process with exit
// code 1. It never returns.
func FatalError(err error, jsonMode bool) {
	if err == nil {
		os.Exit(1)
	}

	ue, ok := err.(*UserError)
	if !ok {
		ue = &UserError{Kind: KindInternal, Title: "Unexpected error", Detail: err.Error()}
	}

	if jsonMode {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(jsonEnvelope{Error: *ue})
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", ue.Title)
	if ue.Detail != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", ue.Detail)
	}
	if ue.Hint != "" {
		fmt.Fprintf(os.Stderr, "  Hint: %s\n", ue.Hint)
	}
	if ue.Cause != nil {
		fmt.Fprintf(os.Stderr, "  Cause: %v\n", ue.Cause)
	}
	os.Exit(1)
}
