package lookup

import (
	"strconv"
	"strings"

	errs "imgprobe/pkg/errors"
	"imgprobe/pkg/extract"
	"imgprobe/pkg/probe"
)

// Status is the outcome class of a lookup
type Status string

const (
	// StatusFound means at least one image URL was extracted
	StatusFound Status = "found"
	// StatusNotFound means the request succeeded but nothing matched
	StatusNotFound Status = "not_found"
	// StatusFailed means the request failed or returned a non-2xx status
	StatusFailed Status = "failed"
)

// DefaultExcerpt is the JSON fallback length
const DefaultExcerpt = 500

// ErrEmptyReference is returned for a lookup on an empty product reference
var ErrEmptyReference = errs.New(errs.ErrorTypeConfig, 0, "product reference is empty")

// Diagnostic is a labelled value shown when extraction yields nothing
type Diagnostic struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Field is a named extracted value, such as squarishURL
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Result is the outcome of one provider lookup
type Result struct {
	Provider    string       `json:"provider"`
	Operation   string       `json:"operation"`
	Reference   string       `json:"reference"`
	URL         string       `json:"url,omitempty"`
	StatusCode  int          `json:"status_code,omitempty"`
	Status      Status       `json:"status"`
	Primary     string       `json:"primary,omitempty"`
	Images      []string     `json:"images,omitempty"`
	Fields      []Field      `json:"fields,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Excerpt     string       `json:"excerpt,omitempty"`
	Err         error        `json:"-"`
	Error       string       `json:"error,omitempty"`
}

// New starts a Result for a provider operation on reference
func New(provider, operation, reference string) *Result {
	return &Result{
		Provider:  provider,
		Operation: operation,
		Reference: reference,
	}
}

// Begin starts a Result and fails it at once when reference is blank
func Begin(provider, operation, reference string) *Result {
	r := New(provider, operation, reference)
	if strings.TrimSpace(reference) == "" {
		r.Fail(ErrEmptyReference)
	}
	return r
}

// Attach records the response metadata
func (r *Result) Attach(resp *probe.Response) *Result {
	if resp != nil {
		r.URL = resp.URL
		r.StatusCode = resp.StatusCode
	}
	return r
}

// AddImage appends url unless it is empty or already present
func (r *Result) AddImage(url string) {
	if url == "" {
		return
	}
	for _, existing := range r.Images {
		if existing == url {
			return
		}
	}
	r.Images = append(r.Images, url)
}

// AddField records a named value; empty values are skipped
func (r *Result) AddField(name, value string) {
	if value == "" {
		return
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// Field returns the value of the first field called name, or ""
func (r *Result) Field(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Diagnose appends a diagnostic line
func (r *Result) Diagnose(label, value string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Label: label, Value: value})
}

// Diagnostic returns the value of the first diagnostic with label, or ""
func (r *Result) Diagnostic(label string) string {
	for _, d := range r.Diagnostics {
		if d.Label == label {
			return d.Value
		}
	}
	return ""
}

// Settle sets Status from what was extracted: found when there is a primary
// URL or an image, not found otherwise. Failed results are left alone.
func (r *Result) Settle() *Result {
	if r.Status == StatusFailed {
		return r
	}
	if r.Primary != "" || len(r.Images) > 0 {
		r.Status = StatusFound
	} else {
		r.Status = StatusNotFound
	}
	return r
}

// Fail marks the result failed with err
func (r *Result) Fail(err error) *Result {
	r.Status = StatusFailed
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Found reports whether anything was extracted
func (r *Result) Found() bool { return r.Status == StatusFound }

// Failed reports whether the request did not succeed
func (r *Result) Failed() bool { return r.Status == StatusFailed }

// ErrorType returns the typed error class of a failed result
func (r *Result) ErrorType() errs.ErrorType {
	if r.Err == nil {
		return ""
	}
	return errs.TypeOf(r.Err)
}

// HTMLFallback diagnoses an HTML body: its byte length and title
func HTMLFallback(body string) []Diagnostic {
	title := extract.Title(body)
	if title == "" {
		title = "none"
	}
	return []Diagnostic{
		{Label: "length", Value: strconv.Itoa(len(body))},
		{Label: "title", Value: title},
	}
}

// JSONFallback diagnoses a JSON body: the indented body cut to n characters
func JSONFallback(body []byte, n int) []Diagnostic {
	if n <= 0 {
		n = DefaultExcerpt
	}
	return []Diagnostic{{Label: "body", Value: extract.Pretty(body, n)}}
}

// FailedResponse marks r failed because resp was not 2xx. Extraction is not
// attempted; diagnostics describe the body instead.
func FailedResponse(r *Result, resp *probe.Response) *Result {
	r.Attach(resp)
	r.Fail(probe.Classify(resp))
	r.Diagnose("status", strconv.Itoa(resp.StatusCode))
	if resp.IsJSON() || extract.Valid(resp.Body) {
		r.Diagnostics = append(r.Diagnostics, JSONFallback(resp.Body, DefaultExcerpt)...)
	} else {
		r.Diagnostics = append(r.Diagnostics, HTMLFallback(resp.Text())...)
	}
	return r
}
