// Package tagresolver expands wildcard tag patterns against a registry's
// tag listing (spec.md §4.4), grounded on the same HTTP-client idiom as
// internal/inference.
package tagresolver

import (
	"context"
	"path"
	"strings"

	"github.com/qcbench/qcbench/internal/inference"
)

// ThirdPartyLister queries a third-party registry (e.g. hf.co/ns/repo) for
// its known tags. HuggingFaceLister in this package implements it for
// hf.co sources.
type ThirdPartyLister interface {
	ListTags(ctx context.Context, source string) ([]string, error)
}

// Resolver expands tag patterns against either the inference server's own
// listing or a third-party registry.
type Resolver struct {
	server     *inference.Client
	thirdParty ThirdPartyLister
}

// New returns a Resolver backed by server for primary-registry lookups and
// thirdParty for third-party registry lookups (may be nil if unsupported).
func New(server *inference.Client, thirdParty ThirdPartyLister) *Resolver {
	return &Resolver{server: server, thirdParty: thirdParty}
}

// IsThirdPartySource reports whether source names a third-party registry
// path (contains a "/" before any tag), e.g. "hf.co/ns/repo".
func IsThirdPartySource(source string) bool {
	return strings.Contains(source, "/")
}

// Resolve expands source against pattern ("*", "q4_*", or a literal tag)
// into the set of concrete tags known to the registry, preserving registry
// ordering and de-duplicating case-insensitively. A pattern with no "*"
// passes through unchanged without any registry call.
func (r *Resolver) Resolve(ctx context.Context, source, pattern string) ([]string, error) {
	if !strings.Contains(pattern, "*") {
		return []string{pattern}, nil
	}

	var candidates []string
	if IsThirdPartySource(source) {
		if r.thirdParty == nil {
			return nil, nil
		}
		tags, err := r.thirdParty.ListTags(ctx, source)
		if err != nil {
			return nil, err
		}
		candidates = tags
	} else {
		summaries, err := r.server.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			candidates = append(candidates, tagOf(s.Name))
		}
	}

	return matchPattern(pattern, candidates), nil
}

// tagOf extracts the tag portion of a "name:tag" reference.
func tagOf(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// matchPattern filters candidates by pattern (a glob understood by
// path.Match) and de-duplicates case-insensitively, preserving the first
// occurrence's original casing and registry order.
func matchPattern(pattern string, candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		ok, err := path.Match(pattern, c)
		if err != nil || !ok {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
