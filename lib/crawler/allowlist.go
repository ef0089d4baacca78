package crawler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownKind reports a result kind the registry has no entry for. It
// signals an integration bug rather than a transient condition, so unlike
// every other failure in this package it propagates to the caller.
var ErrUnknownKind = errors.New("unrecognized result kind")

// NotAllowedError reports an attribute outside the allow-list of its kind.
type NotAllowedError struct {
	Kind      Kind
	Attribute string
	Allowed   []string
}

func (e *NotAllowedError) Error() string {
	return fmt.Sprintf(
		"attribute %q is not readable on a %s result, must be one of: %s",
		e.Attribute, e.Kind, strings.Join(e.Allowed, ", "),
	)
}

// Registry maps each result kind to its set of permitted attribute names.
// Lookups for kinds without an entry fail closed.
type Registry map[Kind]map[string]struct{}

var responseAttributes = []string{
	"content", "encoding", "headers", "history", "html", "json",
	"ok", "reason", "status_code", "text", "url",
}

var elementAttributes = []string{
	"absolute_links", "base_url", "encoding", "full_text", "html",
	"links", "raw_html", "text", "url",
}

func attributeSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// DefaultRegistry returns the registry covering every kind the fetch layer
// produces. Documents and elements share one attribute vocabulary.
func DefaultRegistry() Registry {
	return Registry{
		KindResponse: attributeSet(responseAttributes),
		KindDocument: attributeSet(elementAttributes),
		KindElement:  attributeSet(elementAttributes),
	}
}

// Validate confirms the attribute belongs to the allow-list of the given
// kind. It is a pure lookup: no I/O, no mutation.
func (r Registry) Validate(kind Kind, attribute string) error {
	allowed, ok := r[kind]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if _, ok := allowed[attribute]; !ok {
		names := make([]string, 0, len(allowed))
		for n := range allowed {
			names = append(names, n)
		}
		sort.Strings(names)
		return &NotAllowedError{Kind: kind, Attribute: attribute, Allowed: names}
	}
	return nil
}
