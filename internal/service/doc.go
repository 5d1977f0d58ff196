// Package service implements the retrieval and analysis pipeline for protscope.
//
// PipelineService sits between the HTTP handlers and the remote adapters. Each
// operation receives its inputs explicitly: a resolved record is passed into
// Align as an argument and never read back from shared state.
//
// # Operations
//
// Resolve fetches and normalizes one record, retrying only TRANSIENT failures
// with exponential backoff when retries are configured.
//
// Align runs a global alignment of a user sequence against a resolved record.
//
// Interactions fetches scored partners and builds the thresholded interaction
// graph. BuildGraph does the same for caller-supplied edges.
//
// Report resolves once, then runs alignment and the interaction fetch on
// separate workers. A failure in one branch is recorded on the report and never
// discards the record or the other branch.
//
// # Event System
//
// Operations publish events via EventBus; the SSE hub relays them to
// connected clients as a progress feed.
package service
