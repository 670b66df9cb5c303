package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestHTTPProvider_DoGET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/overlap/region/human/7:140453136-140453136" {
			t.Errorf("expected overlap path, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected method GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("feature"); got != "gene" {
			t.Errorf("expected feature=gene, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("expected Accept application/json, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"external_name":"BRAF"}]`))
	}))
	defer server.Close()

	p := NewHTTPProvider("ensembl-mock", server.URL+"/", 5*time.Second)

	resp, err := p.Do(context.Background(), Request{
		Name:  "gene",
		Path:  "/overlap/region/human/7:140453136-140453136",
		Query: url.Values{"feature": {"gene"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `[{"external_name":"BRAF"}]` {
		t.Errorf("unexpected body %q", resp.Body)
	}
}

func TestHTTPProvider_NonSuccessIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider("ensembl-mock", server.URL, 5*time.Second)

	resp, err := p.Do(context.Background(), Request{Path: "/vep"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "2" {
		t.Errorf("expected Retry-After header to be passed through")
	}

	stats := p.GetHealth().MonitorStats
	if stats == nil || stats.ThrottleCount429 != 1 {
		t.Errorf("expected monitor to record the 429, got %+v", stats)
	}
}

func TestHTTPProvider_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	p := NewHTTPProvider("closed", addr, time.Second)

	_, err := p.Do(context.Background(), Request{Path: "/x"})
	if err == nil {
		t.Fatal("expected error from closed server")
	}

	if h := p.GetHealth(); h.ErrorRate != 1 {
		t.Errorf("expected error rate 1, got %v", h.ErrorRate)
	}
}

func TestHTTPProvider_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p := NewHTTPProvider("slow", server.URL, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Do(ctx, Request{Path: "/slow"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
