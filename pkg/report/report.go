package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	jsoniter "github.com/json-iterator/go"

	"imgprobe/pkg/auth"
	"imgprobe/pkg/inspect"
	"imgprobe/pkg/lookup"
	"imgprobe/pkg/marketplace"
	"imgprobe/pkg/ui"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter renders lookup outcomes
type Reporter struct {
	out    io.Writer
	format string
}

// New creates a Reporter writing format to out
func New(out io.Writer, format string) (*Reporter, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		format = FormatText
	case FormatJSON:
		format = FormatJSON
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: text, json)", format)
	}
	return &Reporter{out: out, format: format}, nil
}

// Format returns the output format in use
func (r *Reporter) Format() string {
	return r.format
}

func (r *Reporter) writeJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

func (r *Reporter) line(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Result renders a single lookup
func (r *Reporter) Result(res *lookup.Result) error {
	if r.format == FormatJSON {
		return r.writeJSON(res)
	}
	r.text(res)
	return nil
}

// Results renders several lookups; JSON output is an array
func (r *Reporter) Results(results []*lookup.Result) error {
	if r.format == FormatJSON {
		return r.writeJSON(results)
	}
	for i, res := range results {
		if i > 0 {
			r.line("")
		}
		r.text(res)
	}
	return nil
}

func statusLabel(res *lookup.Result) string {
	switch res.Operation {
	case "page":
		return "Status"
	case "rollup":
		return "Rollup API"
	case "threads":
		return "Threads API"
	default:
		return res.Operation + " status"
	}
}

func primaryLabel(res *lookup.Result) string {
	if res.Operation == "page" {
		return "OG Image"
	}
	return "Image"
}

func (r *Reporter) text(res *lookup.Result) {
	r.line("%s", ui.Magenta(fmt.Sprintf("=== %s %s: %s ===", res.Provider, res.Operation, res.Reference)))

	if res.StatusCode > 0 {
		r.line("%s: %d", statusLabel(res), res.StatusCode)
	}
	if res.Failed() && res.Error != "" {
		r.line("%s %s", ui.Red("Error:"), res.Error)
	}

	shown := make(map[string]bool)
	for _, f := range res.Fields {
		if f.Name == "profile" {
			continue
		}
		r.line("%s: %s", f.Name, f.Value)
		shown[f.Value] = true
	}
	if res.Primary != "" && !shown[res.Primary] {
		r.line("%s: %s", primaryLabel(res), res.Primary)
	}
	for _, img := range res.Images {
		if !shown[img] {
			r.line("IMG: %s", img)
		}
	}

	for _, d := range res.Diagnostics {
		switch d.Label {
		case "status":
			// already printed
		case "message":
			r.line("%s", ui.Yellow(d.Value))
		case "length":
			r.line("HTML length: %s", d.Value)
		case "title":
			r.line("Title: %s", d.Value)
		case "body":
			r.line("%s", d.Value)
		default:
			r.line("%s: %s", d.Label, d.Value)
		}
	}

	if res.Excerpt != "" {
		r.line("%s", res.Excerpt)
	}
}

// Probe renders a query-suffix sweep as a table followed by the excerpts
func (r *Reporter) Probe(id string, outcomes []marketplace.ProbeOutcome) error {
	if r.format == FormatJSON {
		return r.writeJSON(struct {
			Product  string                     `json:"product"`
			Outcomes []marketplace.ProbeOutcome `json:"outcomes"`
		}{id, outcomes})
	}

	t := r.table()
	t.SetTitle("product " + id)
	t.AppendHeader(table.Row{"Suffix", "Status", "Has Media", "Has Image"})
	for _, o := range outcomes {
		status := strconv.Itoa(o.StatusCode)
		if o.Error != "" {
			status = "error"
		}
		t.AppendRow(table.Row{o.Label(), status, o.HasMedia, o.HasImage})
	}
	t.Render()

	for _, o := range outcomes {
		switch {
		case o.Error != "":
			r.line("\n%s: %s", o.Label(), ui.Red(o.Error))
		case o.Excerpt != "":
			r.line("\n%s: %d, has_media=%t, has_image=%t", o.Label(), o.StatusCode, o.HasMedia, o.HasImage)
			r.line("%s", o.Excerpt)
		}
	}
	return nil
}

// Inspect renders the keys found on a page
func (r *Reporter) Inspect(rep *inspect.Report) error {
	if r.format == FormatJSON {
		masked := *rep
		masked.Keys = make([]inspect.Key, len(rep.Keys))
		for i, k := range rep.Keys {
			k.Token = maskToken(k.Token)
			masked.Keys[i] = k
		}
		return r.writeJSON(masked)
	}

	r.line("Status: %d", rep.StatusCode)
	r.line("HTML length: %d", rep.Length)
	if len(rep.Keys) == 0 {
		r.line("%s", ui.Yellow("No keys found"))
	} else {
		t := r.table()
		t.AppendHeader(table.Row{"Ref", "Role", "Token"})
		for _, k := range rep.Keys {
			t.AppendRow(table.Row{k.Ref, k.Role, maskToken(k.Token)})
		}
		t.Render()
	}
	if rep.Needle != "" {
		r.line("Contains %q: %t", rep.Needle, rep.Contains)
	}
	return nil
}

// Secrets renders stored secrets with their values masked
func (r *Reporter) Secrets(secrets []*auth.Secret) error {
	masked := make([]*auth.Secret, 0, len(secrets))
	for _, s := range secrets {
		masked = append(masked, auth.Sanitize(s))
	}
	if r.format == FormatJSON {
		return r.writeJSON(masked)
	}
	if len(masked) == 0 {
		r.line("No secrets stored")
		return nil
	}

	t := r.table()
	t.AppendHeader(table.Row{"Name", "Value", "Last Modified"})
	for _, s := range masked {
		modified := ""
		if !s.LastModified.IsZero() {
			modified = s.LastModified.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{s.Name, s.Value, modified})
	}
	t.Render()
	return nil
}

// Pairs renders labelled values, such as a resolved credential
func (r *Reporter) Pairs(pairs []lookup.Field) error {
	if r.format == FormatJSON {
		obj := make(map[string]string, len(pairs))
		for _, p := range pairs {
			obj[p.Name] = p.Value
		}
		return r.writeJSON(obj)
	}
	for _, p := range pairs {
		r.line("%s: %s", p.Name, p.Value)
	}
	return nil
}

func (r *Reporter) table() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	return t
}

// maskToken keeps the header and the first characters of the signature
// recognisable without printing a usable key.
func maskToken(token string) string {
	if len(token) <= 16 {
		return strings.Repeat("*", len(token))
	}
	return token[:8] + "..." + token[len(token)-4:]
}
