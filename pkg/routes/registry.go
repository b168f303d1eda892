package routes

import (
	"fmt"
	"strings"

	"github.com/chambersapp/chambers/pkg/auth"
)

// Entry maps a URL pattern to the permission required to reach it.
type Entry struct {
	// Pattern is the path pattern, e.g. "/cases/{id}/edit". At most one
	// segment may be a {wildcard}; it matches exactly one non-empty
	// segment.
	Pattern string

	// Category and Action name the permission-matrix entry that must be
	// true for the request to pass.
	Category auth.Category
	Action   string

	// OwnerOnly restricts the route to owner accounts. Owner-only routes
	// deny every employee outright, regardless of the permission matrix.
	OwnerOnly bool
}

type segment struct {
	literal  string
	wildcard bool
}

type compiledEntry struct {
	Entry
	segments []segment
}

// Registry holds compiled route-permission entries. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	// byCount buckets entries by segment count so a lookup only scans
	// patterns that could possibly match.
	byCount map[int][]compiledEntry
	size    int
}

// NewRegistry compiles a route-permission table. It fails if any pattern
// is malformed, carries more than one wildcard segment, or can match the
// same concrete path as another pattern.
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{byCount: make(map[int][]compiledEntry)}
	for _, e := range entries {
		ce, err := compile(e)
		if err != nil {
			return nil, err
		}
		n := len(ce.segments)
		for _, existing := range r.byCount[n] {
			if overlaps(existing.segments, ce.segments) {
				return nil, fmt.Errorf("routes: patterns %q and %q can match the same path",
					existing.Pattern, e.Pattern)
			}
		}
		r.byCount[n] = append(r.byCount[n], ce)
		r.size++
	}
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on error, for static tables.
func MustNewRegistry(entries []Entry) *Registry {
	r, err := NewRegistry(entries)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return r.size
}

// Match looks up the permission entry for a concrete request path. The
// second return is false when no entry covers the path, meaning the route
// needs authentication only.
func (r *Registry) Match(path string) (Entry, bool) {
	parts := splitPath(path)
	if parts == nil {
		return Entry{}, false
	}
	for _, ce := range r.byCount[len(parts)] {
		if matchSegments(ce.segments, parts) {
			return ce.Entry, true
		}
	}
	return Entry{}, false
}

func compile(e Entry) (compiledEntry, error) {
	if !strings.HasPrefix(e.Pattern, "/") {
		return compiledEntry{}, fmt.Errorf("routes: pattern %q must start with /", e.Pattern)
	}
	parts := strings.Split(strings.TrimPrefix(e.Pattern, "/"), "/")

	ce := compiledEntry{Entry: e, segments: make([]segment, 0, len(parts))}
	wildcards := 0
	for _, p := range parts {
		switch {
		case p == "":
			return compiledEntry{}, fmt.Errorf("routes: pattern %q has an empty segment", e.Pattern)
		case strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}"):
			wildcards++
			if wildcards > 1 {
				return compiledEntry{}, fmt.Errorf("routes: pattern %q has more than one wildcard segment", e.Pattern)
			}
			ce.segments = append(ce.segments, segment{wildcard: true})
		case strings.ContainsAny(p, "{}"):
			return compiledEntry{}, fmt.Errorf("routes: pattern %q has a malformed segment %q", e.Pattern, p)
		default:
			ce.segments = append(ce.segments, segment{literal: p})
		}
	}
	return ce, nil
}

// splitPath splits a request path into segments. Paths containing an empty
// segment (e.g. "/a//edit") match nothing.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}

func matchSegments(segs []segment, parts []string) bool {
	if len(segs) != len(parts) {
		return false
	}
	for i, s := range segs {
		if s.wildcard {
			continue // split already guarantees non-empty
		}
		if s.literal != parts[i] {
			return false
		}
	}
	return true
}

// overlaps reports whether two same-length patterns can both match some
// concrete path: at every position the segments are compatible when both
// are the same literal or either is a wildcard.
func overlaps(a, b []segment) bool {
	for i := range a {
		if a[i].wildcard || b[i].wildcard {
			continue
		}
		if a[i].literal != b[i].literal {
			return false
		}
	}
	return true
}
