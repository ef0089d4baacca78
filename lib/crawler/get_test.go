package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head><title>Sample</title>
<script>var tracking = true;</script>
</head><body>
<p>Welcome to the sample page.</p>
<a href="/about">About</a>
<a href="https://other.example/x">Elsewhere</a>
</body></html>`

func fetchSample(t *testing.T, c *Crawler) *Result {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, samplePage)
	}))
	t.Cleanup(srv.Close)

	res := c.Fetch(context.Background(), srv.URL, FetchOptions{})
	require.NotNil(t, res)
	return res
}

func TestGetAllowedResponseAttributes(t *testing.T) {
	c := newTestCrawler(t, Options{})
	res := fetchSample(t, c)
	ctx := context.Background()

	status, err := c.Get(ctx, res, "status_code")
	require.NoError(t, err)
	require.Equal(t, 200, status)

	ok, err := c.Get(ctx, res, "ok")
	require.NoError(t, err)
	require.Equal(t, true, ok)

	reason, err := c.Get(ctx, res, "reason")
	require.NoError(t, err)
	require.Equal(t, "OK", reason)

	encoding, err := c.Get(ctx, res, "encoding")
	require.NoError(t, err)
	require.Equal(t, "utf-8", encoding)

	text, err := c.Get(ctx, res, "text")
	require.NoError(t, err)
	require.Contains(t, text, "Welcome to the sample page.")

	require.Zero(t, c.Errors().Len(), "allowed reads never log")
}

func TestGetUnknownAttributeRecordsAndReturnsNil(t *testing.T) {
	c := newTestCrawler(t, Options{})
	res := fetchSample(t, c)

	value, err := c.Get(context.Background(), res, "absolute_links")
	require.NoError(t, err)
	require.Nil(t, value)

	records := c.Errors().Records()
	require.Len(t, records, 1)
	require.Equal(t, "absolute_links", records[0].Attribute)
	require.Equal(t, res.URL(), records[0].URL)
}

func TestGetDocumentViewAndAttributes(t *testing.T) {
	c := newTestCrawler(t, Options{})
	res := fetchSample(t, c)
	ctx := context.Background()

	view, err := c.Get(ctx, res, "html")
	require.NoError(t, err)
	doc, ok := view.(*Result)
	require.True(t, ok)
	require.Equal(t, KindDocument, doc.Kind())

	links, err := c.Get(ctx, doc, "links")
	require.NoError(t, err)
	require.Equal(t, []string{"/about", "https://other.example/x"}, links)

	absolute, err := c.Get(ctx, doc, "absolute_links")
	require.NoError(t, err)
	require.Equal(t, []string{res.URL() + "/about", "https://other.example/x"}, absolute)

	text, err := c.Get(ctx, doc, "text")
	require.NoError(t, err)
	require.Contains(t, text, "Welcome to the sample page.")
	require.NotContains(t, text, "tracking")

	require.Zero(t, c.Errors().Len())
}

func TestGetStatusCodeOnDocumentIsRecorded(t *testing.T) {
	c := newTestCrawler(t, Options{})
	res := fetchSample(t, c)
	ctx := context.Background()

	view, err := c.Get(ctx, res, "html")
	require.NoError(t, err)
	doc := view.(*Result)

	value, err := c.Get(ctx, doc, "status_code")
	require.NoError(t, err)
	require.Nil(t, value)

	records := c.Errors().Records()
	require.Len(t, records, 1)
	require.Equal(t, "status_code", records[0].Attribute)
}

func TestGetURLNeverRecursesIntoRecovery(t *testing.T) {
	// a registry whose document kind does not permit "url" at all
	registry := Registry{
		KindResponse: attributeSet(responseAttributes),
		KindDocument: attributeSet([]string{"text"}),
	}
	c := newTestCrawler(t, Options{Registry: registry})
	res := fetchSample(t, c)
	ctx := context.Background()

	view, err := c.Get(ctx, res, "html")
	require.NoError(t, err)
	doc := view.(*Result)

	value, err := c.Get(ctx, doc, "url")
	require.NoError(t, err)
	require.Nil(t, value)

	records := c.Errors().Records()
	require.Len(t, records, 1)
	require.Equal(t, "url", records[0].Attribute)
	require.Empty(t, records[0].URL)
}

func TestGetUnknownKindPropagates(t *testing.T) {
	c := newTestCrawler(t, Options{})
	res := &Result{kind: Kind(99)}

	_, err := c.Get(context.Background(), res, "text")
	require.ErrorIs(t, err, ErrUnknownKind)
	require.Zero(t, c.Errors().Len(), "integration bugs are not transient failures")
}

func TestGetNilResultPropagates(t *testing.T) {
	c := newTestCrawler(t, Options{})
	_, err := c.Get(context.Background(), nil, "text")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestGetNullAttributeLoggedButReturned(t *testing.T) {
	c := newTestCrawler(t, Options{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>no anchors here</p></body></html>")
	}))
	defer srv.Close()

	res := c.Fetch(context.Background(), srv.URL, FetchOptions{})
	require.NotNil(t, res)

	view, err := c.Get(context.Background(), res, "html")
	require.NoError(t, err)
	doc := view.(*Result)

	links, err := c.Get(context.Background(), doc, "links")
	require.NoError(t, err)
	require.Empty(t, links, "absence is logged, not suppressed")

	records := c.Errors().Records()
	require.Len(t, records, 1)
	require.Equal(t, "links", records[0].Attribute)
	require.Equal(t, "null attribute", records[0].Exception)
}

func TestGetJSONIsInvoked(t *testing.T) {
	c := newTestCrawler(t, Options{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name": "crawlkit", "count": 3}`)
	}))
	defer srv.Close()

	res := c.Fetch(context.Background(), srv.URL, FetchOptions{})
	require.NotNil(t, res)

	value, err := c.Get(context.Background(), res, "json")
	require.NoError(t, err)
	decoded, ok := value.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "crawlkit", decoded["name"])
}

func TestGetMalformedJSONRecordsAccessFailure(t *testing.T) {
	c := newTestCrawler(t, Options{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all {")
	}))
	defer srv.Close()

	res := c.Fetch(context.Background(), srv.URL, FetchOptions{})
	require.NotNil(t, res)

	value, err := c.Get(context.Background(), res, "json")
	require.NoError(t, err, "access failures are recorded, not raised")
	require.Nil(t, value)

	records := c.Errors().Records()
	require.Len(t, records, 1)
	require.Equal(t, "json", records[0].Attribute)
}

func TestSelectNarrowsToElement(t *testing.T) {
	c := newTestCrawler(t, Options{})
	res := fetchSample(t, c)
	ctx := context.Background()

	view, err := c.Get(ctx, res, "html")
	require.NoError(t, err)
	doc := view.(*Result)

	elem := doc.Select("p")
	require.NotNil(t, elem)
	require.Equal(t, KindElement, elem.Kind())

	text, err := c.Get(ctx, elem, "text")
	require.NoError(t, err)
	require.Equal(t, "Welcome to the sample page.", text)

	require.Nil(t, doc.Select("table"), "empty selections yield no result")
}
