package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	// Stdout receives reports; Stderr receives errors and progress
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	mu           sync.RWMutex
	colorEnabled = true
	quietMode    bool
)

// SetColor enables or disables ANSI colors
func SetColor(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	colorEnabled = enabled
}

// SetQuietMode suppresses everything except errors and reports
func SetQuietMode(quiet bool) {
	mu.Lock()
	defer mu.Unlock()
	quietMode = quiet
}

// IsQuiet reports whether quiet mode is on
func IsQuiet() bool {
	mu.RLock()
	defer mu.RUnlock()
	return quietMode
}

func colored() bool {
	mu.RLock()
	defer mu.RUnlock()
	return colorEnabled
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colored() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintError prints an error message in red to stderr
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Stderr, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Stderr, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if IsQuiet() {
		return
	}
	fmt.Fprintln(Stdout, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	if IsQuiet() {
		return
	}
	fmt.Fprintf(Stdout, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow to stderr
func PrintWarning(msg string, args ...interface{}) {
	if IsQuiet() {
		return
	}
	if len(args) > 0 {
		fmt.Fprintln(Stderr, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Stderr, Yellow(msg))
	}
}

// PrintHighlight prints a section heading in magenta
func PrintHighlight(msg string) {
	if IsQuiet() {
		return
	}
	fmt.Fprintln(Stdout, Magenta(msg))
}
