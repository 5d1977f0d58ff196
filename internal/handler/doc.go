// Package handler implements the HTTP API for protscope.
//
// Routes are mounted on a chi router by NewRouter:
//
//	GET  /health
//	GET  /metrics
//	GET  /events
//	GET  /api/records/{id}?format=xml|fasta|json
//	GET  /api/records/{id}/export?as=fasta|json|yaml
//	POST /api/records/{id}/align
//	GET  /api/records/{id}/interactions?species=&min_score=
//	POST /api/records/{id}/report
//	POST /api/normalize?format=xml|fasta|json
//	POST /api/align
//	POST /api/interactions/graph
//
// # Errors
//
// Failures are returned as JSON {error, details, kind}. The pipeline error kind
// selects the status: NOT_FOUND and EMPTY_GRAPH 404, TRANSIENT 503 with
// Retry-After, FORMAT 422, EMPTY_INPUT 400. Oversized alignments get 413.
//
// Request bodies are validated before processing.
package handler
