package telnet

import (
	"fmt"
	"regexp"
	"strings"
)

// ANSI escape codes for colored terminal output.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"

	BrightRed    = "\033[91m"
	BrightGreen  = "\033[92m"
	BrightYellow = "\033[93m"
	BrightCyan   = "\033[96m"
)

// Colorize wraps text in the given ANSI color code and appends a reset.
func Colorize(color, text string) string {
	return color + text + Reset
}

// Colorf formats according to a format specifier and wraps the result
// in the given color.
func Colorf(color, format string, args ...any) string {
	return Colorize(color, fmt.Sprintf(format, args...))
}

var ansiPattern = regexp.MustCompile(`\033\[[0-9;]*m`)

// StripANSI removes all ANSI escape sequences from text. Useful in
// tests and for clients that negotiated plain output.
func StripANSI(text string) string {
	return ansiPattern.ReplaceAllString(text, "")
}

// Ruler returns a horizontal divider of the given width.
func Ruler(width int) string {
	if width <= 0 {
		width = 40
	}
	return Colorize(Dim, strings.Repeat("-", width))
}
