package htmlutil

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const page = `<html><head>
<style>body { color: red }</style>
<script>var x = 1;</script>
</head><body>
<p>Hello   <b>world</b></p>
<a href="/about">About &amp; Us</a>
<a href="https://other.example/page">Other</a>
</body></html>`

func parse(t *testing.T) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestSanitizeRemovesScriptAndStyle(t *testing.T) {
	doc := parse(t)
	Sanitize(doc)
	text := CleanText(doc.Text())
	require.NotContains(t, text, "var x")
	require.NotContains(t, text, "color: red")
	require.Contains(t, text, "Hello world")
}

func TestGetAnchorsResolvesAgainstBase(t *testing.T) {
	doc := parse(t)
	base, err := url.Parse("https://example.com/dir/")
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), doc.Find("a"), base)
	require.Len(t, anchors, 2)
	require.Equal(t, "About & Us", anchors[0].Name)
	require.Equal(t, "https://example.com/about", anchors[0].Href)
	require.Equal(t, "https://other.example/page", anchors[1].Href)
}

func TestGetAnchorsWithoutBase(t *testing.T) {
	doc := parse(t)
	anchors := GetAnchors(context.Background(), doc.Find("a"), nil)
	require.Equal(t, "/about", anchors[0].Href)
}
