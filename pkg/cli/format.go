// Package cli provides terminal formatting helpers for the connector CLI.
package cli

import (
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

var ansiSeq = regexp.MustCompile("\033\\[[0-9;]*m")

func paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + ansiReset
}

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string { return paint(ansiGreen, s) }

// Yellow wraps s in ANSI yellow.
func Yellow(s string) string { return paint(ansiYellow, s) }

// Red wraps s in ANSI red.
func Red(s string) string { return paint(ansiRed, s) }

// Bold wraps s in ANSI bold.
func Bold(s string) string { return paint(ansiBold, s) }

// Dim wraps s in ANSI dim.
func Dim(s string) string { return paint(ansiDim, s) }

// Strip removes ANSI color sequences from s.
func Strip(s string) string {
	return ansiSeq.ReplaceAllString(s, "")
}

// Width is the number of terminal columns s occupies, ignoring color.
func Width(s string) int {
	return utf8.RuneCountInString(Strip(s))
}

// DotPad pads name with dots to the given width.
// Example: DotPad("eda-url", 12) → "eda-url ...."
func DotPad(name string, width int) string {
	n := Width(name)
	if width <= 0 || n >= width-1 {
		return name
	}
	return name + " " + strings.Repeat(".", width-n-1)
}
