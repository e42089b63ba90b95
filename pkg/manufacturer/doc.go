// Package manufacturer queries the shoe manufacturer's public product feeds
// by style code (for example DH6927-140).
//
// Two feeds are supported: the rollup browse feed, which wraps its real
// query in an encoded endpoint parameter, and the threads feed used by the
// release calendar.
package manufacturer
