// Package domain defines the core types of the protscope sequence pipeline.
//
// This package contains the value objects passed between pipeline stages and
// the typed error taxonomy every stage reports through.
//
// # Core Types
//
// SequenceRecord is the canonical, format-independent protein record produced
// by normalizing one remote response. Its sequence is always upper-case, free
// of whitespace and non-empty.
//
// AlignmentResult holds one global alignment of a user sequence against a
// reference, with gap symbols inserted so both aligned strings have equal length.
//
// InteractionEdge and InteractionGraph describe scored, undirected
// protein-protein interactions. BuildInteractionGraph filters and deduplicates
// raw edges into a graph.
//
// # Errors
//
// Error carries an ErrorKind (NOT_FOUND, TRANSIENT, FORMAT, EMPTY_INPUT,
// EMPTY_GRAPH). The exported sentinels match any error of their kind through
// errors.Is, and UserMessage maps a kind to an actionable message.
//
// # Design Principles
//
// - Values, not shared state: every structure is owned by the call that built it
// - No network, storage or logging dependencies
// - Deterministic output for identical input
package domain
