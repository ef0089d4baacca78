package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"slices"
	"strings"

	"crawlkit/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// Kind tags the category of fetched artifact a Result carries.
type Kind int

const (
	// KindResponse is a raw HTTP response.
	KindResponse Kind = iota
	// KindDocument is a parsed document view of a response body.
	KindDocument
	// KindElement is a sub-element selected out of a document.
	KindElement
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindDocument:
		return "document"
	case KindElement:
		return "element"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the closed tagged variant returned by the fetch layer. Exactly
// one payload is populated, matching the kind. Results are owned by the
// caller; the crawler never retains them.
type Result struct {
	kind Kind

	resp *resty.Response
	doc  *goquery.Document
	sel  *goquery.Selection

	// url is the final URL for responses, the base URL otherwise
	url      string
	raw      []byte
	encoding string
}

func NewResponseResult(resp *resty.Response) *Result {
	return &Result{
		kind:     KindResponse,
		resp:     resp,
		url:      finalURL(resp),
		raw:      resp.Body(),
		encoding: charsetOf(resp.Header().Get("Content-Type")),
	}
}

func NewDocumentResult(doc *goquery.Document, raw []byte, baseURL, encoding string) *Result {
	return &Result{
		kind:     KindDocument,
		doc:      doc,
		url:      baseURL,
		raw:      raw,
		encoding: encoding,
	}
}

func NewElementResult(sel *goquery.Selection, baseURL, encoding string) *Result {
	return &Result{
		kind:     KindElement,
		sel:      sel,
		url:      baseURL,
		encoding: encoding,
	}
}

func (r *Result) Kind() Kind { return r.kind }

// Response returns the underlying response, or nil for other kinds.
func (r *Result) Response() *resty.Response { return r.resp }

// URL returns the final URL for responses, the base URL otherwise.
func (r *Result) URL() string { return r.url }

// Select narrows a document or element result down to a sub-element.
// It returns nil when the selector matches nothing.
func (r *Result) Select(selector string) *Result {
	var sel *goquery.Selection
	switch r.kind {
	case KindDocument:
		sel = r.doc.Find(selector)
	case KindElement:
		sel = r.sel.Find(selector)
	default:
		return nil
	}
	if sel.Length() == 0 {
		return nil
	}
	return NewElementResult(sel, r.url, r.encoding)
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

func finalURL(resp *resty.Response) string {
	if resp == nil {
		return ""
	}
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		return resp.RawResponse.Request.URL.String()
	}
	return resp.Request.URL
}

// redirectHistory lists the URLs visited before the final response,
// oldest first.
func redirectHistory(resp *resty.Response) []string {
	var history []string
	if resp.RawResponse == nil || resp.RawResponse.Request == nil {
		return history
	}
	for prev := resp.RawResponse.Request.Response; prev != nil && prev.Request != nil; prev = prev.Request.Response {
		history = append(history, prev.Request.URL.String())
	}
	slices.Reverse(history)
	return history
}

// attribute reads the named attribute off the result. Callers are expected
// to have validated the name against the registry first; unknown names on a
// known kind still fail defensively here.
func (r *Result) attribute(ctx context.Context, name string) (any, error) {
	switch r.kind {
	case KindResponse:
		return r.responseAttribute(ctx, name)
	case KindDocument, KindElement:
		return r.elementAttribute(ctx, name)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(r.kind))
	}
}

func (r *Result) responseAttribute(ctx context.Context, name string) (any, error) {
	switch name {
	case "content":
		return r.resp.Body(), nil
	case "encoding":
		return r.encoding, nil
	case "headers":
		return r.resp.Header(), nil
	case "history":
		return redirectHistory(r.resp), nil
	case "html":
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.resp.Body()))
		if err != nil {
			return nil, fmt.Errorf("parse document view: %w", err)
		}
		return NewDocumentResult(doc, r.resp.Body(), r.url, r.encoding), nil
	case "json":
		// the one invoked accessor: decodes the body on demand
		var decoded any
		if err := json.Unmarshal(r.resp.Body(), &decoded); err != nil {
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		return decoded, nil
	case "ok":
		return r.resp.IsSuccess(), nil
	case "reason":
		return strings.TrimSpace(strings.TrimPrefix(
			r.resp.Status(), fmt.Sprintf("%d", r.resp.StatusCode()),
		)), nil
	case "status_code":
		return r.resp.StatusCode(), nil
	case "text":
		return string(r.resp.Body()), nil
	case "url":
		return r.url, nil
	default:
		return nil, fmt.Errorf("no accessor for response attribute %q", name)
	}
}

func (r *Result) selection() *goquery.Selection {
	if r.kind == KindDocument {
		return r.doc.Selection
	}
	return r.sel
}

func (r *Result) elementAttribute(ctx context.Context, name string) (any, error) {
	sel := r.selection()
	switch name {
	case "absolute_links", "links":
		var base *url.URL
		if name == "absolute_links" && r.url != "" {
			parsed, err := url.Parse(r.url)
			if err != nil {
				return nil, fmt.Errorf("parse base url: %w", err)
			}
			base = parsed
		}
		anchors := htmlutil.GetAnchors(ctx, sel.Find("a"), base)
		links := make([]string, 0, len(anchors))
		for _, a := range anchors {
			links = append(links, a.Href)
		}
		return links, nil
	case "base_url", "url":
		return r.url, nil
	case "encoding":
		return r.encoding, nil
	case "full_text":
		clone := sel.Clone()
		clone.Find("script, style, noscript").Remove()
		return htmlutil.CleanText(clone.Text()), nil
	case "text":
		body := sel.Find("body")
		if body.Length() == 0 {
			body = sel
		}
		clone := body.Clone()
		clone.Find("script, style, noscript").Remove()
		return htmlutil.CleanText(clone.Text()), nil
	case "html":
		rendered, err := goquery.OuterHtml(sel)
		if err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		return rendered, nil
	case "raw_html":
		if r.raw != nil {
			return r.raw, nil
		}
		rendered, err := goquery.OuterHtml(sel)
		if err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		return []byte(rendered), nil
	default:
		return nil, fmt.Errorf("no accessor for %s attribute %q", r.kind, name)
	}
}
