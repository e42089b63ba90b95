package inspect

import (
	"context"
	"fmt"
	"strings"

	"imgprobe/pkg/extract"
	"imgprobe/pkg/logger"
	"imgprobe/pkg/probe"
)

// Key is a JWT found in a page whose payload names a project ref
type Key struct {
	Token string `json:"token"`
	Ref   string `json:"ref"`
	Role  string `json:"role,omitempty"`
}

// Report is what a page revealed
type Report struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Length     int    `json:"length"`
	Keys       []Key  `json:"keys"`
	// Needle is the text searched for, empty when none was given
	Needle   string `json:"needle,omitempty"`
	Contains bool   `json:"contains,omitempty"`
}

// Inspector fetches pages and looks for embedded keys
type Inspector struct {
	client *probe.Client
	logger logger.Logger
}

// New creates an Inspector
func New(client *probe.Client, log logger.Logger) *Inspector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Inspector{client: client, logger: log.WithField("component", "inspect")}
}

// Inspect fetches target with profile and lists every JWT in the body that
// decodes to claims with a ref. Tokens that do not decode are skipped.
// When needle is non-empty the report says whether the body contains it.
func (i *Inspector) Inspect(ctx context.Context, target string, profile probe.Profile, needle string) (*Report, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("inspect: url is empty")
	}

	resp, err := i.client.Get(ctx, target, profile.Headers)
	if err != nil {
		return nil, err
	}

	body := resp.Text()
	report := &Report{
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Length:     len(body),
		Keys:       Keys(body),
		Needle:     needle,
	}
	if needle != "" {
		report.Contains = strings.Contains(body, needle)
	}

	i.logger.DebugWithFields("page inspected", map[string]interface{}{
		"url":         report.URL,
		"status_code": report.StatusCode,
		"keys":        len(report.Keys),
	})
	return report, nil
}

// Keys extracts the ref-bearing JWTs from body in order of appearance
func Keys(body string) []Key {
	keys := []Key{}
	for _, token := range extract.FindJWTs(body) {
		claims, err := extract.DecodeClaims(token)
		if err != nil {
			continue
		}
		ref, _ := claims["ref"].(string)
		if ref == "" {
			continue
		}
		role, _ := claims["role"].(string)
		keys = append(keys, Key{Token: token, Ref: ref, Role: role})
	}
	return keys
}
