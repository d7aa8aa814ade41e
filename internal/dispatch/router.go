package dispatch

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/aras-services/native-gateway/internal/domain"
)

// wildcardDomain registers (or matches) a route against any request host;
// spec S1 registers its identity-handler example under this domain.
const wildcardDomain = "*"

// RouteIndex maps (domain, method, path pattern) route keys to endpoint
// ids and resolves incoming requests to the matching endpoint id plus its
// extracted path parameters. Each domain gets its own chi tree so that two
// endpoints sharing a method and path pattern under different domains
// never collide; chi's tree is immutable once built, so mutations rebuild
// fresh *chi.Mux values and publish them atomically — lookups from
// concurrent requests never block on a route being added or removed.
type RouteIndex struct {
	mu     sync.Mutex
	routes map[domain.RouteKey]string // route key -> endpoint id

	muxByDomainV atomic.Pointer[map[string]*chi.Mux]
	byPatternV   atomic.Pointer[map[patternKey]string]
}

type patternKey struct {
	domain  string
	method  string
	pattern string
}

func NewRouteIndex() *RouteIndex {
	idx := &RouteIndex{routes: make(map[domain.RouteKey]string)}
	emptyMuxes := map[string]*chi.Mux{}
	idx.muxByDomainV.Store(&emptyMuxes)
	emptyPatterns := map[patternKey]string{}
	idx.byPatternV.Store(&emptyPatterns)
	return idx
}

// Add registers or replaces the route for key, then rebuilds the index.
func (idx *RouteIndex) Add(key domain.RouteKey, endpointID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.routes[key] = endpointID
	idx.rebuild()
}

// Remove drops the route for key, then rebuilds the index.
func (idx *RouteIndex) Remove(key domain.RouteKey) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.routes, key)
	idx.rebuild()
}

// rebuild must be called with mu held. Every domain gets its own chi tree
// so that matching stays keyed on (domain, method, pattern) end to end.
func (idx *RouteIndex) rebuild() {
	muxes := make(map[string]*chi.Mux)
	byPattern := make(map[patternKey]string, len(idx.routes))
	for key, endpointID := range idx.routes {
		m, ok := muxes[key.Domain]
		if !ok {
			m = chi.NewMux()
			muxes[key.Domain] = m
		}
		m.MethodFunc(key.Method, key.PathPattern, noopHandler)
		byPattern[patternKey{domain: key.Domain, method: key.Method, pattern: key.PathPattern}] = endpointID
	}
	idx.muxByDomainV.Store(&muxes)
	idx.byPatternV.Store(&byPattern)
}

func noopHandler(http.ResponseWriter, *http.Request) {}

// Match resolves r to an endpoint id and chi URL params, or ok=false if no
// route matches. The request's host is tried first; wildcardDomain is
// tried as a fallback so a handler registered under "*" still answers
// requests to any host.
func (idx *RouteIndex) Match(r *http.Request) (endpointID string, params map[string]string, ok bool) {
	muxes := *idx.muxByDomainV.Load()
	byPattern := *idx.byPatternV.Load()

	host := requestDomain(r)
	candidates := []string{host}
	if host != wildcardDomain {
		candidates = append(candidates, wildcardDomain)
	}

	for _, d := range candidates {
		m, ok := muxes[d]
		if !ok {
			continue
		}
		rctx := chi.NewRouteContext()
		if !m.Match(rctx, r.Method, r.URL.Path) {
			continue
		}
		id, found := byPattern[patternKey{domain: d, method: r.Method, pattern: rctx.RoutePattern()}]
		if !found {
			continue
		}
		params = make(map[string]string, len(rctx.URLParams.Keys))
		for i, k := range rctx.URLParams.Keys {
			params[k] = rctx.URLParams.Values[i]
		}
		return id, params, true
	}
	return "", nil, false
}

// requestDomain extracts the host portion of the request, stripping any
// port, for use as the domain half of the route key.
func requestDomain(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}
