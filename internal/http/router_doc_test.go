package http

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

var swaggerRoute = regexp.MustCompile(`(?m)^// swagger:route (\S+) (\S+) \w+$`)

// Every registered route carries a swagger:route block and no block
// describes a route that does not exist.
func TestRouter_SwaggerRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	routes, ok := router.(chi.Routes)
	if !ok {
		t.Fatalf("router is %T, want chi.Routes", router)
	}

	registered := map[string]bool{}
	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		registered[method+" "+strings.TrimSuffix(route, "/")] = true
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	files, err := filepath.Glob(filepath.Join("..", "handlers", "*.go"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	documented := map[string]bool{}
	for _, f := range files {
		if strings.HasSuffix(f, "_test.go") {
			continue
		}
		src, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", f, err)
		}
		for _, m := range swaggerRoute.FindAllStringSubmatch(string(src), -1) {
			documented[m[1]+" "+m[2]] = true
		}
	}

	for route := range registered {
		if !documented[route] {
			t.Errorf("route %s has no swagger:route block", route)
		}
	}
	for route := range documented {
		if !registered[route] {
			t.Errorf("swagger:route %s is not registered", route)
		}
	}
}
