package extract

import (
	"encoding/base64"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)

// FindJWTs returns JWT-shaped tokens in order of first appearance
func FindJWTs(body string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range jwtPattern.FindAllString(body, -1) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// DecodeClaims decodes the payload segment of a JWT without verifying it
func DecodeClaims(token string) (map[string]interface{}, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errMalformedToken
	}

	payload := strings.TrimRight(parts[1], "=")
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, err
		}
	}

	var claims map[string]interface{}
	if err := jsoniter.Unmarshal(raw, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}
