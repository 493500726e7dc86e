package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"amazon-dashboard/internal/config"
	"amazon-dashboard/internal/dataset"
	"amazon-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer() *Server {
	analytics := services.NewAnalytics(dataset.Preloaded(dataset.FromProducts(nil)), dataset.DefaultSeed, testLogger())
	return NewServer(analytics, 10, testLogger(), &TemplateHandlers{
		Dashboard: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("dashboard")) },
	})
}

func TestServer_Routing(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		method string
		path   string
		status int
		code   string
	}{
		{http.MethodGet, "/", http.StatusOK, ""},
		{http.MethodGet, "/health", http.StatusOK, ""},
		{http.MethodGet, "/api/pages", http.StatusOK, ""},
		{http.MethodGet, "/api/pages/overview", http.StatusOK, ""},
		{http.MethodGet, "/api/pages/nope", http.StatusNotFound, "NOT_FOUND"},
		{http.MethodGet, "/api/unknown", http.StatusNotFound, "NOT_FOUND"},
		{http.MethodPost, "/api/pages", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{http.MethodDelete, "/health", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.code == "" {
				return
			}
			var resp struct {
				Success bool `json:"success"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error envelope: %v", err)
			}
			if resp.Success || resp.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", resp, tt.code)
			}
		})
	}
}

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{ShutdownTimeout: 5 * time.Second}}
}

func TestGracefulServer_Serve(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	httpServer := &http.Server{Handler: newTestServer()}
	gs := NewGracefulServer(httpServer, testLogger(), testConfig())

	var mu sync.Mutex
	var order []int
	for i := range 3 {
		gs.RegisterShutdownHook(func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("hooks ran in order %v, want [0 1 2]", order)
	}
}

func TestGracefulServer_HookErrors(t *testing.T) {
	gs := NewGracefulServer(&http.Server{}, testLogger(), testConfig())
	boom := errors.New("boom")

	ran := false
	gs.RegisterShutdownHook(func(ctx context.Context) error { return boom })
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran = true
		return nil
	})

	err := gs.shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("shutdown() error = %v, want boom", err)
	}
	if !ran {
		t.Error("a failing hook should not stop later hooks")
	}
}
