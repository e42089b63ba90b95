// Package report renders lookup results for the terminal.
//
// Text output keeps one fact per line ("Status: 200", "OG Image: ...",
// "IMG: ...") followed by any fallback diagnostics. JSON output marshals
// the same values for scripting. Sweeps and listings are drawn as tables.
package report
