package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteFinder resolves the route pattern serving r, e.g. "/orders/{orderID}".
type RouteFinder func(r *http.Request) (string, bool)

// MakeRouteFinder returns a RouteFinder that matches requests against routes
// without serving them.
func MakeRouteFinder(routes chi.Routes) RouteFinder {
	return func(r *http.Request) (string, bool) {
		rctx := chi.NewRouteContext()
		if !routes.Match(rctx, r.Method, r.URL.Path) {
			return "", false
		}
		return rctx.RoutePattern(), true
	}
}

func routeOf(find RouteFinder, r *http.Request) string {
	if route, ok := find(r); ok {
		return route
	}
	return "unknown"
}
