package probe

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"

	"imgprobe/pkg/logger"
	"imgprobe/pkg/storage"
)

// 1: request method, 2: request url, 3: request headers,
// 4: response status, 5: response url, 6: response headers, 7: response body
const exchangeTemplate = `---- REQUEST ----

%s %s

%s

---- RESPONSE ----

%d %s

%s

%s`

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			if isSensitiveHeader(k) {
				v = "[redacted]"
			}
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "apikey", "x-api-key", "cookie", "set-cookie":
		return true
	}
	return false
}

// jsonStringPair matches "name": "value" with escapes inside the value
var jsonStringPair = regexp.MustCompile(`"([^"\\]+)"(\s*:\s*)"((?:[^"\\]|\\.)*)"`)

// isSensitiveField reports whether a JSON field carries a credential.
// extra holds configured field names such as the token store field.
func isSensitiveField(name string, extra []string) bool {
	lower := strings.ToLower(name)
	for _, f := range extra {
		if f != "" && strings.EqualFold(f, name) {
			return true
		}
	}
	for _, part := range []string{"token", "secret", "password", "passphrase"} {
		if strings.Contains(lower, part) {
			return true
		}
	}
	if lower == "key" {
		return true
	}
	for _, suffix := range []string{"apikey", "api_key", "api-key", "service_key", "private_key"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// redactBody masks string values of sensitive fields in JSON bodies.
// Other bodies pass through unchanged.
func redactBody(body string, extra []string) string {
	return jsonStringPair.ReplaceAllStringFunc(body, func(pair string) string {
		m := jsonStringPair.FindStringSubmatch(pair)
		if !isSensitiveField(m[1], extra) || m[3] == "" {
			return pair
		}
		return `"` + m[1] + `"` + m[2] + `"[redacted]"`
	})
}

func formatExchange(res *resty.Response, redactFields []string) string {
	var reqHeaders http.Header
	responseURL := res.Request.URL
	if res.Request.RawRequest != nil {
		reqHeaders = res.Request.RawRequest.Header
		responseURL = res.Request.RawRequest.URL.String()
	}

	return fmt.Sprintf(exchangeTemplate,
		res.Request.Method, res.Request.URL,
		formatHeaders(reqHeaders),
		res.StatusCode(), responseURL,
		formatHeaders(res.Header()),
		redactBody(res.String(), redactFields),
	)
}

func dumpResponse(dumps *storage.Manager, redactFields []string, log logger.Logger) resty.ResponseMiddleware {
	return func(_ *resty.Client, res *resty.Response) error {
		name := dumps.NextName(res.Request.URL, "txt")
		path, err := dumps.WriteString(name, formatExchange(res, redactFields))
		if err != nil {
			log.WithError(err).Warn("failed to write response dump")
			return nil
		}
		log.DebugWithFields("response dumped", map[string]interface{}{
			"url":  res.Request.URL,
			"path": path,
		})
		return nil
	}
}
