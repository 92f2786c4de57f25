// Package pathctx derives a PathContext (segments, layer, domain, depth,
// keywords) from a file path alone, with no filesystem access. It follows
// the same table-driven, lookup-by-first-match shape as a file-extension
// registry, applied to path-to-layer/domain classification instead.
package pathctx

import (
	"path"
	"strings"

	"github.com/conradkoh/raggrep/internal/store"
)

// layerPattern matches a path segment to an architectural layer.
type layerPattern struct {
	Layer    string
	Segments []string
}

// LayerPatterns is checked in order; the first segment match wins. Layer
// values are drawn from a closed set: controller, service, repository,
// model, util, config, middleware, domain, infrastructure, presentation,
// test. Segment names (e.g. "handler", "api") map onto that set rather
// than being layer values themselves.
var LayerPatterns = []layerPattern{
	{Layer: "controller", Segments: []string{"handler", "handlers", "controller", "controllers", "routes", "router", "api"}},
	{Layer: "service", Segments: []string{"service", "services", "usecase", "usecases"}},
	{Layer: "repository", Segments: []string{"repository", "repositories", "repo", "dao", "store", "storage"}},
	{Layer: "model", Segments: []string{"model", "models", "entity", "entities", "schema", "types"}},
	{Layer: "middleware", Segments: []string{"middleware", "middlewares", "interceptor"}},
	{Layer: "config", Segments: []string{"config", "configs", "settings"}},
	{Layer: "domain", Segments: []string{"domain", "domains", "core"}},
	{Layer: "test", Segments: []string{"test", "tests", "__tests__", "spec", "specs"}},
	{Layer: "infrastructure", Segments: []string{"infra", "infrastructure", "platform"}},
	{Layer: "presentation", Segments: []string{"ui", "view", "views", "component", "components", "pages"}},
	{Layer: "util", Segments: []string{"util", "utils", "helper", "helpers", "common", "shared"}},
}

// domainPattern matches a path segment to a business/functional domain.
type domainPattern struct {
	Domain   string
	Segments []string
}

// DomainPatterns is checked in order; the first segment match wins. It
// is deliberately smaller and more speculative than LayerPatterns:
// domain names are project-specific, these are common enough defaults
// to be useful without a config file.
var DomainPatterns = []domainPattern{
	{Domain: "auth", Segments: []string{"auth", "authn", "authz", "login", "session", "token"}},
	{Domain: "user", Segments: []string{"user", "users", "account", "accounts", "profile"}},
	{Domain: "billing", Segments: []string{"billing", "payment", "payments", "invoice", "invoices", "subscription"}},
	{Domain: "search", Segments: []string{"search", "index", "indexer", "query"}},
	{Domain: "notification", Segments: []string{"notification", "notifications", "email", "mail", "sms"}},
	{Domain: "admin", Segments: []string{"admin", "ops", "internal"}},
}

// Parse derives a PathContext from filePath alone. Segments are the
// lowercased, slash-split, extension-stripped path components; Layer and
// Domain are the first matching entries in LayerPatterns/DomainPatterns
// (empty string if none match); Depth is len(Segments)-1 (directory
// depth, excluding the file name); Keywords is Segments deduplicated and
// filtered to length > 2.
func Parse(filePath string) store.PathContext {
	clean := strings.TrimPrefix(path.Clean(filePath), "/")
	base := path.Base(clean)
	base = strings.TrimSuffix(base, path.Ext(base))

	rawSegments := strings.Split(path.Dir(clean), "/")
	if path.Dir(clean) == "." {
		rawSegments = nil
	}
	rawSegments = append(rawSegments, base)

	segments := make([]string, 0, len(rawSegments))
	for _, s := range rawSegments {
		if s == "" {
			continue
		}
		segments = append(segments, strings.ToLower(s))
	}

	layer := matchLayer(segments)
	domain := matchDomain(segments)
	keywords := keywordsOf(segments)

	depth := len(segments) - 1
	if depth < 0 {
		depth = 0
	}

	return store.PathContext{
		Segments: segments,
		Layer:    layer,
		Domain:   domain,
		Depth:    depth,
		Keywords: keywords,
	}
}

func matchLayer(segments []string) string {
	for _, p := range LayerPatterns {
		for _, seg := range segments {
			for _, candidate := range p.Segments {
				if seg == candidate {
					return p.Layer
				}
			}
		}
	}
	return ""
}

func matchDomain(segments []string) string {
	for _, p := range DomainPatterns {
		for _, seg := range segments {
			for _, candidate := range p.Segments {
				if seg == candidate {
					return p.Domain
				}
			}
		}
	}
	return ""
}

func keywordsOf(segments []string) []string {
	seen := make(map[string]struct{}, len(segments))
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if len(seg) <= 2 {
			continue
		}
		if _, dup := seen[seg]; dup {
			continue
		}
		seen[seg] = struct{}{}
		out = append(out, seg)
	}
	return out
}
