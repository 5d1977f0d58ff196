package adapter

import (
	"context"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"protscope/internal/domain"
)

// DefaultStringURL is the STRING API root
const DefaultStringURL = "https://string-db.org/api"

// StringAdapter fetches scored interaction partners from STRING
type StringAdapter struct {
	opts    options
	breaker *gobreaker.CircuitBreaker
}

// NewStringAdapter creates an interaction source for the STRING API
func NewStringAdapter(opts ...Option) *StringAdapter {
	o := applyOptions(DefaultStringURL, opts)
	o.baseURL = strings.TrimRight(o.baseURL, "/")
	return &StringAdapter{
		opts:    o,
		breaker: newBreaker("string", o.breaker, o.logger),
	}
}

// Name returns the adapter identifier
func (s *StringAdapter) Name() string {
	return "string"
}

// stringInteraction is one row of the interaction_partners JSON response
type stringInteraction struct {
	PreferredNameA string  `json:"preferredName_A"`
	PreferredNameB string  `json:"preferredName_B"`
	Score          float64 `json:"score"`
}

// Interactions fetches interaction partners of identifier. An empty response
// yields no edges and no error; the graph builder decides what that means.
func (s *StringAdapter) Interactions(ctx context.Context, identifier string, species, minScore int) ([]domain.InteractionEdge, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.NewNotFound(identifier)
	}

	params := url.Values{}
	params.Set("identifiers", identifier)
	params.Set("species", strconv.Itoa(species))
	params.Set("required_score", strconv.Itoa(minScore))
	if s.opts.limit > 0 {
		params.Set("limit", strconv.Itoa(s.opts.limit))
	}
	if s.opts.callerIdentity != "" {
		params.Set("caller_identity", s.opts.callerIdentity)
	}
	target := s.opts.baseURL + "/json/interaction_partners?" + params.Encode()

	start := time.Now()
	body, err := guard(s.breaker, func() ([]byte, error) {
		return fetch(ctx, s.opts, target, "application/json")
	})
	if err != nil {
		s.opts.logger.Warn("string fetch failed",
			zap.String("identifier", identifier),
			zap.Int("species", species),
			zap.Error(err))
		return nil, err
	}

	var rows []stringInteraction
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, domain.WrapFormat("failed to parse STRING response", err)
	}

	edges := make([]domain.InteractionEdge, 0, len(rows))
	for _, r := range rows {
		edges = append(edges, domain.NewInteractionEdge(r.PreferredNameA, r.PreferredNameB, ScaleScore(r.Score)))
	}

	s.opts.logger.Debug("fetched interactions",
		zap.String("identifier", identifier),
		zap.Int("edges", len(edges)),
		zap.Duration("elapsed", time.Since(start)))
	return edges, nil
}

// ScaleScore converts a STRING probability in [0,1] to the 0-1000 integer scale
func ScaleScore(p float64) int {
	v := int(math.Round(p * domain.MaxInteractionScore))
	switch {
	case v < 0:
		return 0
	case v > domain.MaxInteractionScore:
		return domain.MaxInteractionScore
	}
	return v
}
