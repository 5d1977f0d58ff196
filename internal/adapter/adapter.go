package adapter

import (
	"context"

	"protscope/internal/domain"
)

// RecordSource resolves an identifier to exactly one canonical record
type RecordSource interface {
	// Name returns the unique identifier for this source
	Name() string

	// Resolve fetches the record in the source's default format
	Resolve(ctx context.Context, identifier string) (domain.SequenceRecord, error)

	// ResolveAs fetches the record in an explicit wire format
	ResolveAs(ctx context.Context, identifier string, kind domain.FormatKind) (domain.SequenceRecord, error)
}

// InteractionSource returns scored pairwise interactions for an identifier.
// It never builds a graph; filtering and deduplication belong to the caller.
type InteractionSource interface {
	// Name returns the unique identifier for this source
	Name() string

	// Interactions fetches edges for identifier in species, asking the
	// remote for scores of at least minScore (0-1000 scale)
	Interactions(ctx context.Context, identifier string, species, minScore int) ([]domain.InteractionEdge, error)
}
