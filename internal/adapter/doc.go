// Package adapter implements the remote data sources protscope reads from.
//
// Adapters wrap one external HTTP service each and translate every outcome into
// the domain error taxonomy. They perform exactly one outbound request per call;
// retrying is the caller's decision.
//
// # Sources
//
// UniProtAdapter resolves a UniProtKB accession to a canonical SequenceRecord,
// fetching {base}/{id}.{xml|fasta|json} and normalizing the body with the codec
// package.
//
// StringAdapter fetches scored interaction partners from the STRING network API
// and converts its probability scores to the 0-1000 integer scale.
//
// # Error Mapping
//
// Transport failures, timeouts, non-2xx statuses and an open circuit breaker
// become TRANSIENT errors. An empty body or a document with no entry becomes
// NOT_FOUND. A body of the wrong shape becomes FORMAT.
//
// # Circuit Breakers
//
// Each adapter owns a sony/gobreaker breaker. Only transient failures count
// against it, so a stream of unknown identifiers never trips the breaker.
package adapter
