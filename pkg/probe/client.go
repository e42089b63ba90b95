package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"imgprobe/pkg/config"
	errs "imgprobe/pkg/errors"
	"imgprobe/pkg/logger"
	"imgprobe/pkg/retry"
	"imgprobe/pkg/storage"
)

// Options configures a Client
type Options struct {
	Timeout          time.Duration
	CloudflareBypass bool
	// Retry controls attempts per request; nil means a single attempt
	Retry *retry.Config
	// Dumps receives every raw exchange when non-nil
	Dumps *storage.Manager
	// RedactFields are JSON fields masked in dumps on top of the
	// token, secret and key names that are always masked
	RedactFields []string
	// Transport replaces the default transport, mainly for tests
	Transport http.RoundTripper
}

// OptionsFromConfig derives client options from loaded settings
func OptionsFromConfig(cfg *config.Config, log logger.Logger) Options {
	return Options{
		Timeout:          cfg.HTTP.Timeout,
		CloudflareBypass: cfg.HTTP.CloudflareBypass,
		Retry:            retry.FromSettings(cfg.Retry, log),
		RedactFields:     []string{cfg.TokenStore.Field},
	}
}

// Client issues single outbound GET requests
type Client struct {
	http   *resty.Client
	retry  *retry.Config
	logger logger.Logger
}

// Response is the outcome of a request that reached the server, whatever its status
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	URL        string
	Duration   time.Duration
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Text returns the body as a string
func (r *Response) Text() string {
	return string(r.Body)
}

// IsJSON reports whether the server labelled the body as JSON
func (r *Response) IsJSON() bool {
	return strings.Contains(r.Header.Get("Content-Type"), "json")
}

// NewClient creates a new Client
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
		opts.Retry.Logger = log
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetLogger(restyLogger{log})
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		logger.LogRequest(log, res.Request.Method, res.Request.URL, res.StatusCode(), res.Time())
		return nil
	})
	if opts.Dumps != nil {
		client.OnAfterResponse(dumpResponse(opts.Dumps, opts.RedactFields, log))
	}

	return &Client{
		http:   client,
		retry:  opts.Retry,
		logger: log,
	}
}

// Get fetches url with the given headers. Every HTTP status yields a
// Response; only transport failures are returned as errors, typed network.
// With retries the outcome of the final attempt wins.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	var last *Response

	_, err := retry.DoWithResult(ctx, func(ctx context.Context) (*Response, error) {
		resp, err := c.do(ctx, url, headers)
		if err != nil {
			last = nil
			return nil, err
		}
		last = resp
		return resp, Classify(resp)
	}, c.retry)

	if last != nil {
		return last, nil
	}
	return nil, err
}

func (c *Client) do(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": http.MethodGet,
		"url":    url,
	})

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errs.Wrap(errs.ErrorTypeNetwork, 0, ctxErr, "request cancelled")
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, 0, err, "request failed")
	}

	finalURL := url
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalURL = res.RawResponse.Request.URL.String()
	}

	return &Response{
		StatusCode: res.StatusCode(),
		Body:       res.Body(),
		Header:     res.Header(),
		URL:        finalURL,
		Duration:   res.Time(),
	}, nil
}

// Classify maps a non-2xx response to a typed error; nil otherwise
func Classify(resp *Response) error {
	if resp == nil {
		return errs.New(errs.ErrorTypeNetwork, 0, "no response")
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unfollowed redirect")
	}
	if e := errs.FromStatus(resp.StatusCode); e != nil {
		return e
	}
	return nil
}

// restyLogger forwards resty's internal messages to our logger
type restyLogger struct {
	log logger.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.WithField("component", "resty").Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.WithField("component", "resty").Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.WithField("component", "resty").Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
