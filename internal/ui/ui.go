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

// Package ui renders ehminer's terminal output: headers, labels, and
// color-coded status lines, with NO_COLOR/non-tty detection.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Cyan   = color.New(color.FgCyan)
	Dim    = color.New(color.Faint)
	Bold   = color.New(color.Bold)
)

// InitColors disables color output when noColor is set, NO_COLOR is present
// in the environment, or stdout is not a terminal.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold section title.
func Header(title string) {
	fmt.Println()
	_, _ = Bold.Println(title)
}

// SubHeader prints a secondary section title, indented one level.
func SubHeader(title string) {
	_, _ = Bold.Println(title)
}

// Label formats a field name for a "label: value" line.
func Label(text string) string {
	return Dim.Sprint(text)
}

// CountText formats an integer count, dimmed, for result summaries.
func CountText(n int) string {
	return Dim.Sprintf("%d", n)
}

// DimText dims an arbitrary string for secondary detail lines.
func DimText(text string) string {
	return Dim.Sprint(text)
}

func Info(msg string) {
	fmt.Println(msg)
}

func Infof(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

func Warning(msg string) {
	_, _ = Yellow.Fprintln(os.Stderr, msg)
}

func Warningf(format string, args ...any) {
	_, _ = Yellow.Fprintf(os.Stderr, format+"\n", args...)
}

func Success(msg string) {
	_, _ = Green.Println(msg)
}

func Successf(format string, args ...any) {
	_, _ = Green.Printf(format+"\n", args...)
}
