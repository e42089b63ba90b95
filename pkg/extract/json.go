package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Path splits a dotted lookup path into jsoniter path elements. Numeric
// segments index arrays: "productInfo.0.imageUrl".
func Path(dotted string) []interface{} {
	if dotted == "" {
		return nil
	}
	parts := strings.Split(dotted, ".")
	path := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			path = append(path, n)
		} else {
			path = append(path, p)
		}
	}
	return path
}

// String returns the string at path, or "" when any key is missing or the
// value is not a string.
func String(body []byte, path ...interface{}) string {
	v := jsoniter.Get(body, path...)
	if v.ValueType() != jsoniter.StringValue {
		return ""
	}
	return v.ToString()
}

// Len returns the length of the array at path, or 0
func Len(body []byte, path ...interface{}) int {
	v := jsoniter.Get(body, path...)
	if v.ValueType() != jsoniter.ArrayValue {
		return 0
	}
	return v.Size()
}

// Has reports whether path resolves to any value
func Has(body []byte, path ...interface{}) bool {
	return jsoniter.Get(body, path...).ValueType() != jsoniter.InvalidValue
}

// Strings collects the string found at field under every element of the
// array at arrayPath.
func Strings(body []byte, arrayPath []interface{}, field ...interface{}) []string {
	var out []string
	for i := 0; i < Len(body, arrayPath...); i++ {
		p := append(append(append([]interface{}{}, arrayPath...), i), field...)
		if s := String(body, p...); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FirstString tries each dotted path in order and returns the first
// non-empty string together with the path that produced it.
func FirstString(body []byte, paths ...string) (string, string) {
	for _, p := range paths {
		if s := String(body, Path(p)...); s != "" {
			return p, s
		}
	}
	return "", ""
}

// Valid reports whether body is syntactically valid JSON
func Valid(body []byte) bool {
	return jsoniter.Valid(body)
}

// Pretty indents JSON with two spaces, keeping key order, and truncates the
// result to n characters. Bodies that are not JSON are truncated as-is.
// n <= 0 disables truncation.
func Pretty(body []byte, n int) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		return Truncate(string(body), n)
	}
	return Truncate(buf.String(), n)
}

// Truncate cuts s to at most n characters
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
