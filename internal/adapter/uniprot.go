package adapter

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"protscope/internal/codec"
	"protscope/internal/domain"
)

// DefaultUniProtURL is the UniProtKB REST root
const DefaultUniProtURL = "https://rest.uniprot.org/uniprotkb"

var acceptHeaders = map[domain.FormatKind]string{
	domain.FormatXML:   "application/xml",
	domain.FormatFASTA: "text/plain",
	domain.FormatJSON:  "application/json",
}

// UniProtAdapter resolves UniProtKB accessions to canonical records
type UniProtAdapter struct {
	opts    options
	breaker *gobreaker.CircuitBreaker
}

// NewUniProtAdapter creates a resolver for the UniProtKB REST API
func NewUniProtAdapter(opts ...Option) *UniProtAdapter {
	o := applyOptions(DefaultUniProtURL, opts)
	o.baseURL = strings.TrimRight(o.baseURL, "/")
	return &UniProtAdapter{
		opts:    o,
		breaker: newBreaker("uniprot", o.breaker, o.logger),
	}
}

// Name returns the adapter identifier
func (u *UniProtAdapter) Name() string {
	return "uniprot"
}

// DefaultFormat returns the wire format Resolve requests
func (u *UniProtAdapter) DefaultFormat() domain.FormatKind {
	return u.opts.format
}

// Resolve fetches and normalizes identifier in the default format
func (u *UniProtAdapter) Resolve(ctx context.Context, identifier string) (domain.SequenceRecord, error) {
	return u.ResolveAs(ctx, identifier, u.opts.format)
}

// ResolveAs fetches {base}/{identifier}.{kind} and normalizes the body
func (u *UniProtAdapter) ResolveAs(ctx context.Context, identifier string, kind domain.FormatKind) (domain.SequenceRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.SequenceRecord{}, domain.NewNotFound(identifier)
	}
	if !kind.Valid() {
		return domain.SequenceRecord{}, domain.NewFormatError("unknown format " + string(kind))
	}

	start := time.Now()
	target := u.opts.baseURL + "/" + url.PathEscape(identifier) + "." + string(kind)

	body, err := guard(u.breaker, func() ([]byte, error) {
		return fetch(ctx, u.opts, target, acceptHeaders[kind])
	})
	if err != nil {
		u.opts.logger.Warn("uniprot fetch failed",
			zap.String("identifier", identifier),
			zap.String("format", string(kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return domain.SequenceRecord{}, err
	}

	rec, err := codec.Normalize(body, kind)
	if err != nil {
		if errors.Is(err, codec.ErrNoEntry) {
			return domain.SequenceRecord{}, domain.NewNotFound(identifier)
		}
		u.opts.logger.Warn("uniprot response did not normalize",
			zap.String("identifier", identifier),
			zap.String("format", string(kind)),
			zap.Int("bytes", len(body)),
			zap.Error(err))
		return domain.SequenceRecord{}, err
	}

	u.opts.logger.Debug("resolved record",
		zap.String("identifier", identifier),
		zap.String("format", string(kind)),
		zap.Int("length", rec.Length()),
		zap.Duration("elapsed", time.Since(start)))
	return rec, nil
}
