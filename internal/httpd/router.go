package httpd

import "strings"

// Handler processes one framed request and produces a response.
type Handler func(*Request) *Response

// MatchKind selects how a route's path is compared against a request.
type MatchKind int

const (
	// MatchExact requires full path equality.
	MatchExact MatchKind = iota

	// MatchPrefix requires the request path to start with the route
	// path. Used for parameterized paths like /api/vehicle/{plate}.
	MatchPrefix
)

type route struct {
	method string
	path   string
	kind   MatchKind
	h      Handler
}

// Router dispatches requests by (method, path) against an ordered route
// table. Registration order is precedence: the first matching entry wins,
// which is what lets an exact /api/vehicle route coexist with a prefix
// /api/vehicle/ route.
type Router struct {
	apiPrefix string
	routes    []route

	// Static serves every path outside the API prefix. Nil means such
	// paths get the NotFound response.
	Static Handler

	// NotFound produces the response for unmatched API routes.
	NotFound Handler
}

// NewRouter creates a router serving API routes under apiPrefix.
func NewRouter(apiPrefix string) *Router {
	return &Router{
		apiPrefix: apiPrefix,
		NotFound: func(*Request) *Response {
			return JSON(404, false, "API endpoint not found", nil)
		},
	}
}

// Handle appends a route to the table.
func (r *Router) Handle(method, path string, kind MatchKind, h Handler) {
	r.routes = append(r.routes, route{method: method, path: path, kind: kind, h: h})
}

// Dispatch routes a request. OPTIONS short-circuits to the CORS preflight
// response before the table is consulted.
func (r *Router) Dispatch(req *Request) *Response {
	if req.Method == "OPTIONS" {
		return NewResponse(204)
	}

	if !strings.HasPrefix(req.Path, r.apiPrefix) {
		if r.Static != nil {
			return r.Static(req)
		}
		return r.NotFound(req)
	}

	for _, rt := range r.routes {
		if rt.method != req.Method {
			continue
		}
		matched := false
		switch rt.kind {
		case MatchExact:
			matched = req.Path == rt.path
		case MatchPrefix:
			matched = strings.HasPrefix(req.Path, rt.path)
		}
		if matched {
			return rt.h(req)
		}
	}
	return r.NotFound(req)
}
