// Package ui holds the terminal helpers used by the CLI: colored messages
// and a progress line for multi-request sweeps. Reports go to Stdout;
// errors and progress go to Stderr.
package ui
