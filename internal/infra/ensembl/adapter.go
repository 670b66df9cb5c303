// Package ensembl fetches variant annotations from the Ensembl REST API.
package ensembl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/vietddude/varannot/internal/core/domain"
	"github.com/vietddude/varannot/internal/infra/rpc"
	"github.com/vietddude/varannot/internal/infra/rpc/provider"
	"github.com/vietddude/varannot/internal/infra/rpc/routing"
)

var rsIDPattern = regexp.MustCompile(`^rs\d+$`)

// Endpoints holds the REST paths used per annotation kind.
type Endpoints struct {
	Overlap string `yaml:"overlap"`
	VEP     string `yaml:"vep"`
}

// DefaultEndpoints returns the GRCh37 human endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Overlap: "/overlap/region/human",
		VEP:     "/vep/human/region",
	}
}

// Adapter turns AnnotationRequests into REST calls and parses the responses.
type Adapter struct {
	client    *rpc.Client
	endpoints Endpoints
	logger    *slog.Logger
}

// NewAdapter creates an adapter on top of client.
func NewAdapter(client *rpc.Client, endpoints Endpoints) *Adapter {
	def := DefaultEndpoints()
	if endpoints.Overlap == "" {
		endpoints.Overlap = def.Overlap
	}
	if endpoints.VEP == "" {
		endpoints.VEP = def.VEP
	}
	return &Adapter{
		client:    client,
		endpoints: endpoints,
		logger:    slog.Default().With("component", "ensembl"),
	}
}

// Fetch resolves one annotation. It never returns an error: every failure is
// folded into the Outcome status.
func (a *Adapter) Fetch(ctx context.Context, req domain.AnnotationRequest) domain.Outcome {
	httpReq, err := a.BuildRequest(req)
	if err != nil {
		a.logger.Error("Invalid annotation request", "request", req.String(), "error", err)
		return domain.Failed(req.Kind, fmt.Errorf("%w: %v", routing.ErrClientError, err))
	}

	resp, err := a.client.Fetch(ctx, httpReq)
	if err != nil {
		return a.failure(ctx, req, err)
	}

	out, err := parse(req.Kind, resp.Body)
	if err != nil {
		a.logger.Error("Malformed response",
			"request", req.String(),
			"variant", req.Variant.String(),
			"error", err,
			"body", rpc.Truncate(string(resp.Body), 200),
		)
		return domain.Failed(req.Kind, fmt.Errorf("parse %s response: %w", req.Kind, err))
	}
	if out.Status == domain.OutcomeMissing {
		a.logger.Debug("No annotation found", "request", req.String(), "variant", req.Variant.String())
	}
	return out
}

func (a *Adapter) failure(ctx context.Context, req domain.AnnotationRequest, err error) domain.Outcome {
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return domain.Cancelled(req.Kind, err)

	case errors.Is(err, routing.ErrNotFound):
		a.logger.Debug("Annotation not found", "request", req.String(), "variant", req.Variant.String())
		return domain.Missing(req.Kind)

	case errors.Is(err, routing.ErrClientError):
		a.logger.Error("Request rejected by service",
			"request", req.String(),
			"variant", req.Variant.String(),
			"error", err,
		)

	default:
		a.logger.Warn("Annotation failed",
			"request", req.String(),
			"variant", req.Variant.String(),
			"error", err,
		)
	}
	return domain.Failed(req.Kind, err)
}

// BuildRequest maps an AnnotationRequest to its REST call.
func (a *Adapter) BuildRequest(req domain.AnnotationRequest) (provider.Request, error) {
	if req.Region == "" {
		return provider.Request{}, errors.New("empty region")
	}

	switch req.Kind {
	case domain.KindGene:
		return provider.Request{
			Name:  string(req.Kind),
			Path:  a.endpoints.Overlap + "/" + req.Region,
			Query: url.Values{"feature": {"gene"}},
		}, nil

	case domain.KindDbsnpID, domain.KindFrequency:
		if req.Allele == "" {
			return provider.Request{}, errors.New("empty allele")
		}
		r := provider.Request{
			Name: string(req.Kind),
			Path: fmt.Sprintf("%s/%s:1/%s", a.endpoints.VEP, req.Region, url.PathEscape(req.Allele)),
		}
		if req.Kind == domain.KindFrequency {
			r.Query = url.Values{
				"af":         {"1"},
				"af_gnomade": {"1"},
				"af_gnomadg": {"1"},
			}
		}
		return r, nil
	}

	return provider.Request{}, fmt.Errorf("unknown annotation kind %q", req.Kind)
}

func parse(kind domain.AnnotationKind, body []byte) (domain.Outcome, error) {
	switch kind {
	case domain.KindGene:
		var features []overlapFeature
		if err := json.Unmarshal(body, &features); err != nil {
			return domain.Outcome{}, err
		}
		for _, f := range features {
			if name := strings.TrimSpace(f.ExternalName); name != "" {
				out := domain.Success(kind)
				out.Gene = name
				return out, nil
			}
		}
		for _, f := range features {
			if f.ID != "" {
				out := domain.Success(kind)
				out.Gene = f.ID
				return out, nil
			}
		}
		return domain.Missing(kind), nil

	case domain.KindDbsnpID:
		var results []vepResult
		if err := json.Unmarshal(body, &results); err != nil {
			return domain.Outcome{}, err
		}
		for _, r := range results {
			for _, cv := range r.ColocatedVariants {
				if rsIDPattern.MatchString(cv.ID) {
					out := domain.Success(kind)
					out.RSID = cv.ID
					return out, nil
				}
			}
		}
		return domain.Missing(kind), nil

	case domain.KindFrequency:
		var results []vepResult
		if err := json.Unmarshal(body, &results); err != nil {
			return domain.Outcome{}, err
		}
		var freqs []domain.PopulationFrequency
		for _, r := range results {
			for _, cv := range r.ColocatedVariants {
				freqs = append(freqs, cv.Frequencies...)
			}
		}
		if len(freqs) == 0 {
			return domain.Missing(kind), nil
		}
		out := domain.Success(kind)
		out.Frequencies = freqs
		return out, nil
	}

	return domain.Outcome{}, fmt.Errorf("unknown annotation kind %q", kind)
}
