// Package crawler is a single-request resilient-fetch primitive. Given a
// URL it fetches the resource under a spoofed client identity, retries once
// against the scheme-flipped variant of the URL on failure, validates
// attribute reads against per-kind allow-lists and accumulates structured
// failure records for later export.
//
// Callers see either a usable result or nil; diagnosing nil means
// consulting the error log.
package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"reflect"
	"time"

	"crawlkit/lib/identity"
	"crawlkit/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single transport attempt.
const DefaultTimeout = 10 * time.Second

// Options configures a Crawler. Everything here is read at construction and
// never mutated afterwards, so one Crawler is safe to share across
// concurrent callers.
type Options struct {
	// Headers are the default request headers. When nil they are derived
	// from the identity generator using Agent and Referrer.
	Headers map[string]string
	// Agent selects the identity kind used to derive default headers.
	Agent identity.Kind
	// Referrer is "", identity.ReferrerAuto, or a verbatim URL.
	Referrer string
	Identity identity.Config
	Timeout  time.Duration
	// Registry defaults to DefaultRegistry().
	Registry Registry
	Logger   *slog.Logger
}

type Crawler struct {
	http     *resty.Client
	headers  map[string]string
	timeout  time.Duration
	registry Registry
	errors   *Log
	log      *slog.Logger
}

func New(opts Options) (*Crawler, error) {
	headers := opts.Headers
	if headers == nil {
		gen := identity.NewGenerator(opts.Identity)
		headers = gen.Headers(opts.Agent, opts.Referrer)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "crawlkit/http")

	return &Crawler{
		http:     client,
		headers:  headers,
		timeout:  timeout,
		registry: registry,
		errors:   NewLog(),
		log:      logger,
	}, nil
}

// Errors exposes the append-only error log owned by this crawler.
func (c *Crawler) Errors() *Log { return c.errors }

// Headers returns the default request headers resolved at construction.
func (c *Crawler) Headers() map[string]string { return c.headers }

func (c *Crawler) record(exception, url, entityID, attribute string) {
	c.errors.Push(Record{
		Time:      time.Now(),
		EntityID:  entityID,
		Attribute: attribute,
		URL:       url,
		Exception: exception,
	})
}

// FetchOptions are per-call overrides; zero values fall back to the
// crawler's defaults.
type FetchOptions struct {
	Headers map[string]string
	Timeout time.Duration
	Cookies map[string]string
	// EntityID tags any failure records produced by this call.
	EntityID string
}

// FlipScheme toggles a URL between http and https, leaving every other
// component unchanged.
func FlipScheme(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "http" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	return u.String(), nil
}

// outcome classifies one transport attempt. Exactly one of the following
// holds: err != nil (transport failure), res == nil (null result),
// reason != "" (application failure), or success.
type outcome struct {
	res    *resty.Response
	reason string
	url    string
	err    error
}

func (o outcome) success() bool {
	return o.err == nil && o.res != nil && o.reason == ""
}

func (c *Crawler) attempt(ctx context.Context, rawURL string, opts FetchOptions) outcome {
	headers := opts.Headers
	if headers == nil {
		headers = c.headers
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.http.R().SetContext(actx).SetHeaders(headers)
	for name, value := range opts.Cookies {
		req.SetCookie(&http.Cookie{Name: name, Value: value})
	}

	res, err := req.Get(rawURL)
	if err != nil {
		return outcome{err: err, url: rawURL}
	}
	if res == nil || res.RawResponse == nil {
		return outcome{url: rawURL}
	}

	out := outcome{res: res, url: finalURL(res)}
	if !res.IsSuccess() {
		out.reason = res.Status()
	}
	return out
}

// Fetch retrieves the URL with at most two transport attempts: the URL as
// given, then once more with its scheme flipped. A nil return means every
// failure was recorded in the error log; a non-nil return may still carry a
// non-success status when only the retry produced a response.
func (c *Crawler) Fetch(ctx context.Context, rawURL string, opts FetchOptions) *Result {
	first := c.attempt(ctx, rawURL, opts)
	if first.success() {
		c.log.InfoContext(ctx, "fetched",
			"url", rawURL, "final_url", first.url,
			"status", first.res.StatusCode(),
		)
		return NewResponseResult(first.res)
	}

	flipped, err := FlipScheme(rawURL)
	if err != nil {
		c.log.ErrorContext(ctx, "unparsable url", "url", rawURL, "err", err)
		c.record(err.Error(), rawURL, opts.EntityID, "")
		return nil
	}
	c.log.WarnContext(ctx, "retrying with flipped scheme",
		"url", rawURL, "flipped_url", flipped,
	)

	retry := c.attempt(ctx, flipped, opts)
	switch {
	case retry.err != nil:
		c.log.ErrorContext(ctx, "fetch failed",
			"url", flipped, "entity_id", opts.EntityID, "err", retry.err,
		)
		c.record(retry.err.Error(), flipped, opts.EntityID, "")
		return nil
	case retry.res == nil:
		c.log.ErrorContext(ctx, "response is null", "url", flipped)
		c.record("response is null", flipped, opts.EntityID, "")
		if retry.reason != "" {
			c.record(retry.reason, flipped, opts.EntityID, "")
		}
		return nil
	case retry.reason != "":
		// the caller still gets the response so status and headers stay
		// inspectable; the failure itself lives in the log
		c.log.WarnContext(ctx, "fetched with non-success status",
			"url", flipped, "status", retry.res.StatusCode(),
		)
		c.record(retry.reason, flipped, opts.EntityID, "")
		return NewResponseResult(retry.res)
	default:
		c.log.InfoContext(ctx, "fetched",
			"url", flipped, "final_url", retry.url,
			"status", retry.res.StatusCode(),
		)
		return NewResponseResult(retry.res)
	}
}

// bestEffortURL resolves the url attribute of a result for failure records.
// It never enters validation-failure recovery, so a kind whose allow-list
// excludes "url" simply yields an empty string.
func (c *Crawler) bestEffortURL(ctx context.Context, res *Result) string {
	if c.registry.Validate(res.Kind(), "url") != nil {
		return ""
	}
	value, err := res.attribute(ctx, "url")
	if err != nil {
		return ""
	}
	s, _ := value.(string)
	return s
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Get reads an attribute off a fetched result after validating it against
// the allow-list for the result's kind. Validation misses, access failures
// and absent values are recorded in the error log and surfaced as a nil
// value with a nil error; the only non-nil error is ErrUnknownKind, which
// signals a caller bug. An absent-but-valid value is logged and still
// returned.
func (c *Crawler) Get(ctx context.Context, res *Result, attribute string) (any, error) {
	if res == nil {
		return nil, ErrUnknownKind
	}

	if err := c.registry.Validate(res.Kind(), attribute); err != nil {
		if _, ok := err.(*NotAllowedError); !ok {
			return nil, err
		}
		u := ""
		if attribute != "url" {
			u = c.bestEffortURL(ctx, res)
		}
		c.log.WarnContext(ctx, "attribute not allowed",
			"kind", res.Kind().String(), "attribute", attribute, "url", u,
		)
		c.record(err.Error(), u, "", attribute)
		return nil, nil
	}

	value, err := res.attribute(ctx, attribute)
	if err != nil {
		u := ""
		if attribute != "url" {
			u = c.bestEffortURL(ctx, res)
		}
		c.log.ErrorContext(ctx, "attribute access failed",
			"attribute", attribute, "url", u, "err", err,
		)
		c.record(err.Error(), u, "", attribute)
		return nil, nil
	}

	if isEmptyValue(value) {
		u := ""
		if attribute != "url" {
			u = c.bestEffortURL(ctx, res)
		}
		c.log.WarnContext(ctx, "null attribute", "attribute", attribute, "url", u)
		c.record("null attribute", u, "", attribute)
	}
	return value, nil
}

// ExportErrors writes the error log to the path, logging any failure.
// See Log.Export for the format dispatch.
func (c *Crawler) ExportErrors(path string) (string, error) {
	out, err := c.errors.Export(path)
	if err != nil {
		c.log.Error("failed to export error log", "path", path, "err", err)
		return "", err
	}
	return out, nil
}
