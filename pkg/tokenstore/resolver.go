package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	go_cache "github.com/eko/gocache/store/go_cache/v4"
	jsoniter "github.com/json-iterator/go"
	gocache "github.com/patrickmn/go-cache"

	"imgprobe/pkg/config"
	errs "imgprobe/pkg/errors"
	"imgprobe/pkg/logger"
	"imgprobe/pkg/probe"
)

var (
	ErrNoTokenRecord      = errs.New(errs.ErrorTypeEmptyResult, 0, "token store returned no records")
	ErrTokenFieldMissing  = errs.New(errs.ErrorTypeParsing, 0, "token record is missing the token field")
	ErrMissingServiceKey  = errs.New(errs.ErrorTypeConfig, 0, "token store service key is not set")
	ErrMissingAPIKey      = errs.New(errs.ErrorTypeConfig, 0, "catalog API key is not set")
	ErrMissingStoreConfig = errs.New(errs.ErrorTypeConfig, 0, "token store base URL, table and field are required")
)

// Credential pairs a bearer token with the static API key
type Credential struct {
	Token  string
	APIKey string
}

// Headers returns the authorization headers for a catalog request
func (c Credential) Headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.Token,
		"x-api-key":     c.APIKey,
		"Accept":        "application/json",
	}
}

// Source yields credentials for authenticated requests
type Source interface {
	Credential(ctx context.Context) (Credential, error)
}

// Static is a Source that always returns the same credential
type Static Credential

// Credential returns the static credential
func (s Static) Credential(context.Context) (Credential, error) {
	if s.APIKey == "" {
		return Credential{}, ErrMissingAPIKey
	}
	return Credential(s), nil
}

// Options configures a Resolver
type Options struct {
	BaseURL    string
	ServiceKey string
	Table      string
	Field      string
	Order      string
	APIKey     string
	// CacheTTL keeps a resolved token in memory; zero disables caching
	CacheTTL time.Duration
}

// OptionsFromConfig derives resolver options from loaded settings
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:    cfg.TokenStore.BaseURL,
		ServiceKey: cfg.TokenStore.ServiceKey,
		Table:      cfg.TokenStore.Table,
		Field:      cfg.TokenStore.Field,
		Order:      cfg.TokenStore.Order,
		APIKey:     cfg.Catalog.APIKey,
		CacheTTL:   cfg.TokenStore.CacheTTL,
	}
}

// Resolver reads the most recent bearer token from the token data store
type Resolver struct {
	client *probe.Client
	opts   Options
	cache  *cache.Cache[string]
	logger logger.Logger
}

// NewResolver creates a Resolver that issues requests through client
func NewResolver(client *probe.Client, opts Options, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	r := &Resolver{
		client: client,
		opts:   opts,
		logger: log.WithField("component", "tokenstore"),
	}
	if opts.CacheTTL > 0 {
		r.cache = cache.New[string](go_cache.NewGoCache(gocache.New(opts.CacheTTL, 2*opts.CacheTTL)))
	}
	return r
}

// RequestURL is the query sent to the store
func (r *Resolver) RequestURL() string {
	u := fmt.Sprintf("%s/rest/v1/%s?select=%s&limit=1",
		strings.TrimRight(r.opts.BaseURL, "/"),
		url.PathEscape(r.opts.Table),
		url.QueryEscape(r.opts.Field))
	if r.opts.Order != "" {
		u += "&order=" + url.QueryEscape(r.opts.Order)
	}
	return u
}

func (r *Resolver) cacheKey() string {
	return r.opts.BaseURL + "|" + r.opts.Table + "|" + r.opts.Field + "|" + r.opts.Order
}

// Resolve returns the token field of the first record the store returns
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if r.opts.BaseURL == "" || r.opts.Table == "" || r.opts.Field == "" {
		return "", ErrMissingStoreConfig
	}
	if r.opts.ServiceKey == "" {
		return "", ErrMissingServiceKey
	}

	if r.cache != nil {
		if token, err := r.cache.Get(ctx, r.cacheKey()); err == nil && token != "" {
			r.logger.Debug("bearer token served from cache")
			return token, nil
		}
	}

	resp, err := r.client.Get(ctx, r.RequestURL(), map[string]string{
		"apikey":        r.opts.ServiceKey,
		"Authorization": "Bearer " + r.opts.ServiceKey,
		"Accept":        "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("token store request failed: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("token store request failed: %w", probe.Classify(resp))
	}

	token, err := parseToken(resp.Body, r.opts.Field)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, r.cacheKey(), token, store.WithExpiration(r.opts.CacheTTL)); err != nil {
			r.logger.WithError(err).Warn("failed to cache bearer token")
		}
	}
	r.logger.DebugWithFields("bearer token resolved", map[string]interface{}{
		"table": r.opts.Table,
		"token": config.MaskSecret(token),
	})
	return token, nil
}

// Credential resolves a token and pairs it with the configured API key
func (r *Resolver) Credential(ctx context.Context) (Credential, error) {
	if r.opts.APIKey == "" {
		return Credential{}, ErrMissingAPIKey
	}
	token, err := r.Resolve(ctx)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: token, APIKey: r.opts.APIKey}, nil
}

// Invalidate drops any cached token
func (r *Resolver) Invalidate(ctx context.Context) {
	if r.cache != nil {
		_ = r.cache.Delete(ctx, r.cacheKey())
	}
}

func parseToken(body []byte, field string) (string, error) {
	var rows []map[string]interface{}
	if err := jsoniter.Unmarshal(body, &rows); err != nil {
		return "", errs.Wrap(errs.ErrorTypeParsing, 0, err, "token store returned an unexpected body")
	}
	if len(rows) == 0 {
		return "", ErrNoTokenRecord
	}

	token, ok := rows[0][field].(string)
	if !ok || token == "" {
		return "", fmt.Errorf("%w: %q", ErrTokenFieldMissing, field)
	}
	return token, nil
}

// IsCredentialError reports whether err came from a missing or unusable credential
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrNoTokenRecord) ||
		errors.Is(err, ErrTokenFieldMissing) ||
		errors.Is(err, ErrMissingServiceKey) ||
		errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrMissingStoreConfig) ||
		errs.IsType(err, errs.ErrorTypeAuth)
}
