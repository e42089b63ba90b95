// Package lookup defines the outcome of a single provider lookup.
//
// A Result is found when something was extracted, not_found when the
// request succeeded but nothing matched, and failed when the request did not
// reach a 2xx response. Results that are not found carry diagnostics: the
// page length and title for HTML, a truncated indented body for JSON.
package lookup
