package annotator

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/varannot/internal/core/domain"
	"github.com/vietddude/varannot/internal/infra/ensembl"
	"github.com/vietddude/varannot/internal/infra/rpc"
	"github.com/vietddude/varannot/internal/infra/rpc/budget"
	"github.com/vietddude/varannot/internal/infra/rpc/provider"
	"github.com/vietddude/varannot/internal/infra/rpc/routing"
)

// mockFetcher answers every kind from fixed tables, with random latency.
type mockFetcher struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
	requests []domain.AnnotationRequest

	fail map[domain.AnnotationKind]bool
	wait chan struct{}
}

func (m *mockFetcher) Fetch(ctx context.Context, req domain.AnnotationRequest) domain.Outcome {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.wait != nil {
		select {
		case <-m.wait:
		case <-ctx.Done():
			return domain.Cancelled(req.Kind, ctx.Err())
		}
	}
	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)

	if m.fail[req.Kind] {
		return domain.Failed(req.Kind, routing.ErrExhaustedRetries)
	}

	out := domain.Success(req.Kind)
	switch req.Kind {
	case domain.KindGene:
		out.Gene = "GENE" + req.Variant.Locus()
	case domain.KindDbsnpID:
		out.RSID = "rs1"
	case domain.KindFrequency:
		out.Frequencies = []domain.PopulationFrequency{
			{Allele: req.Allele, Frequency: 0.25, Population: "gnomADe:NFE"},
		}
	}
	return out
}

func variants(n int) []domain.Variant {
	out := make([]domain.Variant, n)
	for i := range out {
		out[i] = domain.Variant{Chrom: "1", Pos: uint64(1000 + i), Ref: "A", Alt: "G"}
	}
	return out
}

func TestAnnotate_PreservesOrder(t *testing.T) {
	f := &mockFetcher{}
	p := NewPipeline(Config{MaxWorkers: 4}, f)

	in := variants(40)
	out, err := p.Annotate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d records, got %d", len(in), len(out))
	}

	for i := range in {
		if out[i].Variant != in[i] {
			t.Errorf("record %d is %v, want %v", i, out[i].Variant, in[i])
		}
		if out[i].Gene == nil || *out[i].Gene != "GENE"+in[i].Locus() {
			t.Errorf("record %d has wrong gene", i)
		}
		if !out[i].Resolved() {
			t.Errorf("record %d not fully resolved: %v", i, out[i].Outcomes)
		}
	}

	if got := len(f.requests); got != 3*len(in) {
		t.Errorf("expected %d fetches, got %d", 3*len(in), got)
	}
}

func TestAnnotate_BoundedConcurrency(t *testing.T) {
	f := &mockFetcher{}
	p := NewPipeline(Config{MaxWorkers: 2}, f)

	if _, err := p.Annotate(context.Background(), variants(20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two variants at a time, three lookups each.
	if f.maxSeen > 6 {
		t.Errorf("saw %d concurrent fetches, want at most 6", f.maxSeen)
	}
}

func TestAnnotate_FailedKindLeavesFieldNil(t *testing.T) {
	f := &mockFetcher{fail: map[domain.AnnotationKind]bool{domain.KindGene: true}}
	p := NewPipeline(DefaultConfig(), f)

	out, err := p.Annotate(context.Background(), variants(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, rec := range out {
		if rec.Gene != nil {
			t.Errorf("record %d: gene should be nil", i)
		}
		if rec.Outcomes[domain.KindGene] != domain.OutcomeFailed {
			t.Errorf("record %d: gene outcome %v", i, rec.Outcomes[domain.KindGene])
		}
		if rec.RSID == nil || rec.Frequency == nil {
			t.Errorf("record %d: other kinds should still resolve", i)
		}
	}
}

func TestAnnotate_Cancelled(t *testing.T) {
	f := &mockFetcher{wait: make(chan struct{})}
	p := NewPipeline(Config{MaxWorkers: 1}, f)

	ctx, cancel := context.WithCancel(context.Background())
	var seen atomic.Int32
	go func() {
		for seen.Load() == 0 {
			f.mu.Lock()
			n := len(f.requests)
			f.mu.Unlock()
			if n > 0 {
				seen.Store(1)
			}
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	in := variants(5)
	out, err := p.Annotate(ctx, in)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d records after cancel, got %d", len(in), len(out))
	}
	for i, rec := range out {
		if rec.Variant != in[i] {
			t.Errorf("record %d out of order", i)
		}
		for _, k := range domain.AllKinds {
			if rec.Outcomes[k] != domain.OutcomeCancelled {
				t.Errorf("record %d kind %s: %v, want cancelled", i, k, rec.Outcomes[k])
			}
		}
	}
}

func TestAnnotate_ProgressCallback(t *testing.T) {
	p := NewPipeline(DefaultConfig(), &mockFetcher{})

	var calls atomic.Int32
	var last atomic.Int32
	p.SetProgressCallback(func(done, total int, rec domain.AnnotatedVariant) {
		calls.Add(1)
		if total != 7 {
			t.Errorf("total = %d", total)
		}
		if done == total {
			last.Store(1)
		}
	})

	if _, err := p.Annotate(context.Background(), variants(7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 7 || last.Load() != 1 {
		t.Errorf("progress called %d times", calls.Load())
	}
}

func TestAnnotate_EndToEnd(t *testing.T) {
	// Variant 2 has no frequency data upstream; everything else resolves.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasPrefix(path, "/overlap/region/human/"):
			_, _ = w.Write([]byte(`[{"id":"ENSG1","external_name":"GENE_` + locusFrom(path) + `"}]`))

		case strings.HasPrefix(path, "/vep/human/region/2:200-200"):
			if r.URL.Query().Get("af") == "1" {
				http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`[{"colocated_variants":[{"id":"rs2"}]}]`))

		case strings.HasPrefix(path, "/vep/human/region/"):
			_, _ = w.Write([]byte(`[{"colocated_variants":[{"id":"rs9","frequencies":{
				"G":{"gnomadg_nfe":0.2,"gnomade_nfe":0.1},
				"T":{"gnomade_nfe":0.7}}}]}]`))

		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := rpc.NewClient(
		provider.NewHTTPProvider("ensembl-test", server.URL, 5*time.Second),
		budget.NewGate(1000),
		routing.NewPolicy(routing.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond}),
	)
	p := NewPipeline(DefaultConfig(), ensembl.NewAdapter(client, ensembl.Endpoints{}))

	in := []domain.Variant{
		{Chrom: "1", Pos: 100, Ref: "A", Alt: "G"},
		{Chrom: "2", Pos: 200, Ref: "C", Alt: "G"},
		{Chrom: "3", Pos: 300, Ref: "A", Alt: "G"},
	}

	out, err := p.Annotate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 records, got %d", len(out))
	}

	for i, rec := range out {
		if rec.Variant != in[i] {
			t.Errorf("record %d out of order", i)
		}
		if rec.Gene == nil || !strings.HasPrefix(*rec.Gene, "GENE_") {
			t.Errorf("record %d: expected gene, got %v", i, rec.Gene)
		}
		if rec.RSID == nil {
			t.Errorf("record %d: expected rsID", i)
		}
	}

	if out[1].Frequency != nil {
		t.Errorf("variant 2 should have no frequency, got %v", *out[1].Frequency)
	}
	if out[1].Outcomes[domain.KindFrequency] != domain.OutcomeMissing {
		t.Errorf("variant 2 frequency outcome %v", out[1].Outcomes[domain.KindFrequency])
	}
	if *out[1].RSID != "rs2" {
		t.Errorf("variant 2 rsID %s", *out[1].RSID)
	}

	for _, i := range []int{0, 2} {
		rec := out[i]
		if rec.Frequency == nil || *rec.Frequency != 0.1 || *rec.Population != "gnomADe:NFE" {
			t.Errorf("record %d: expected 0.1 gnomADe:NFE, got %v %v", i, rec.Frequency, rec.Population)
		}
	}
}

func locusFrom(path string) string {
	s := strings.TrimPrefix(path, "/overlap/region/human/")
	return strings.SplitN(s, "-", 2)[0]
}
