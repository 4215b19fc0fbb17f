package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func header(name string) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
			w.Header().Add("X-Layer", name)
			next.ServeHTTP(w, req)
		})
	}
}

func text(body string) Handler {
	return func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { _, _ = w.Write([]byte(body)) }
}

func serve(r Router, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.Mux().ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestAdaptChi_LayersApplyPerScope(t *testing.T) {
	t.Parallel()

	r := AdaptChi(chi.NewRouter())
	r.Use(header("root"))
	r.Get("/meta/health", text("ok"))

	r.Group(func(gr Router) {
		gr.Use(header("auth"))
		if gr.Mux() == nil {
			t.Fatalf("group Mux() returned nil")
		}
		gr.Get("/api/tokens", text("tokens"))
	})

	r.Route("/api/runs", func(sr Router) {
		sr.Use(header("runs"))
		if sr.Mux() == nil {
			t.Fatalf("route Mux() returned nil")
		}
		sr.Get("/{run}/profiles", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
			_, _ = w.Write([]byte(Param(req, "run")))
		})
	})

	cases := []struct {
		path   string
		body   string
		layers []string
	}{
		{"/meta/health", "ok", []string{"root"}},
		{"/api/tokens", "tokens", []string{"root", "auth"}},
		{"/api/runs/20251019_120000/profiles", "20251019_120000", []string{"root", "runs"}},
	}
	for _, c := range cases {
		rr := serve(r, stdhttp.MethodGet, c.path)
		if rr.Code != stdhttp.StatusOK || rr.Body.String() != c.body {
			t.Fatalf("GET %s => %d %q", c.path, rr.Code, rr.Body.String())
		}
		got := rr.Header().Values("X-Layer")
		if len(got) != len(c.layers) {
			t.Fatalf("GET %s layers = %v, want %v", c.path, got, c.layers)
		}
		for i := range got {
			if got[i] != c.layers[i] {
				t.Fatalf("GET %s layers = %v, want %v", c.path, got, c.layers)
			}
		}
	}
}

func TestAdaptChi_SafeVerbsHandleAndNesting(t *testing.T) {
	t.Parallel()

	r := AdaptChi(chi.NewRouter())
	r.Head("/api/runs", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.Header().Set("X-Runs", "2") })
	r.Options("/api/runs", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusNoContent) })
	r.Handle("/metrics", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		_, _ = w.Write([]byte("ghfinder_requests_total 1"))
	}))

	r.Group(func(gr Router) {
		gr.Head("/api/tokens", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.Header().Set("X-Tokens", "1") })
		gr.Options("/api/tokens", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusNoContent) })
		gr.Handle("/api/live", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
			_, _ = w.Write([]byte("live"))
		}))
		gr.Group(func(ngr Router) {
			ngr.Get("/api/runs/latest", text("latest"))
		})
	})

	r.Route("/debug", func(sr Router) {
		sr.Route("/pprof", func(nr Router) {
			nr.Get("/", text("index"))
		})
	})

	if rr := serve(r, stdhttp.MethodHead, "/api/runs"); rr.Code != stdhttp.StatusOK || rr.Body.Len() != 0 || rr.Header().Get("X-Runs") != "2" {
		t.Fatalf("HEAD /api/runs => %d len=%d", rr.Code, rr.Body.Len())
	}
	if rr := serve(r, stdhttp.MethodOptions, "/api/runs"); rr.Code != stdhttp.StatusNoContent {
		t.Fatalf("OPTIONS /api/runs => %d", rr.Code)
	}
	if rr := serve(r, stdhttp.MethodGet, "/metrics"); rr.Body.String() != "ghfinder_requests_total 1" {
		t.Fatalf("GET /metrics => %q", rr.Body.String())
	}
	if rr := serve(r, stdhttp.MethodHead, "/api/tokens"); rr.Header().Get("X-Tokens") != "1" {
		t.Fatalf("HEAD /api/tokens missing header")
	}
	if rr := serve(r, stdhttp.MethodOptions, "/api/tokens"); rr.Code != stdhttp.StatusNoContent {
		t.Fatalf("OPTIONS /api/tokens => %d", rr.Code)
	}
	if rr := serve(r, stdhttp.MethodGet, "/api/live"); rr.Body.String() != "live" {
		t.Fatalf("GET /api/live => %q", rr.Body.String())
	}
	if rr := serve(r, stdhttp.MethodGet, "/api/runs/latest"); rr.Body.String() != "latest" {
		t.Fatalf("GET /api/runs/latest => %q", rr.Body.String())
	}
	if rr := serve(r, stdhttp.MethodGet, "/debug/pprof/"); rr.Body.String() != "index" {
		t.Fatalf("GET /debug/pprof/ => %q", rr.Body.String())
	}
	if rr := serve(r, stdhttp.MethodPost, "/api/runs"); rr.Code != stdhttp.StatusMethodNotAllowed {
		t.Fatalf("POST /api/runs => %d, want 405", rr.Code)
	}
}
