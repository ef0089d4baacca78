// Package htmlutil provides text and link extraction helpers over parsed
// documents.
package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("crawlkit.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Sanitize removes script and style subtrees so text extraction only sees
// rendered content.
func Sanitize(doc *goquery.Document) {
	doc.Find("script, style, noscript").Remove()
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText trims non-printable runes and collapses runs of whitespace.
func CleanText(s string) string {
	printable := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || c == '\n' {
			printable.WriteRune(c)
		}
	}
	out := strings.Trim(printable.String(), " \t\n")
	return innerWhitespace.ReplaceAllString(out, " ")
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors extracts every anchor of the selection, resolving the href
// against base when base is non-nil.
func GetAnchors(ctx context.Context, sel *goquery.Selection, base *url.URL) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		link, err := url.Parse(href)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}
		if base != nil {
			link = base.ResolveReference(link)
		}

		name := CleanText(GetText(n))
		linkStr := link.String()
		anchors = append(anchors, Anchor{
			Name: name,
			Href: linkStr,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", linkStr),
		))
	}

	return anchors
}
