package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"protscope/internal/codec"
	"protscope/internal/core/align"
	"protscope/internal/domain"
	"protscope/internal/service"
	"protscope/internal/validation"
)

// DefaultMaxBodySize bounds uploaded documents and request bodies
const DefaultMaxBodySize = 32 << 20

// retryAfterSeconds is advertised on 503 responses
const retryAfterSeconds = "5"

// Pipeline is the subset of the pipeline service the handlers call
type Pipeline interface {
	Resolve(ctx context.Context, identifier string, kind domain.FormatKind) (domain.SequenceRecord, error)
	Align(ctx context.Context, rec domain.SequenceRecord, query string) (domain.AlignmentResult, error)
	AlignSequences(ctx context.Context, query, reference string) (domain.AlignmentResult, error)
	Interactions(ctx context.Context, identifier string, species, minScore int) (domain.InteractionGraph, error)
	BuildGraph(ctx context.Context, edges []domain.InteractionEdge, minScore int) (domain.InteractionGraph, error)
	Report(ctx context.Context, req service.ReportRequest) (*service.Report, error)
}

// PipelineHandler serves the record, alignment and interaction API
type PipelineHandler struct {
	svc         Pipeline
	validate    *validation.Validator
	logger      *zap.Logger
	maxBodySize int64
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(svc Pipeline, logger *zap.Logger) *PipelineHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineHandler{
		svc:         svc,
		validate:    validation.New("json"),
		logger:      logger.Named("handler"),
		maxBodySize: DefaultMaxBodySize,
	}
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error   string           `json:"error"`
	Details string           `json:"details,omitempty"`
	Kind    domain.ErrorKind `json:"kind,omitempty"`
}

// RecordResponse is a resolved record plus its derived length
type RecordResponse struct {
	domain.SequenceRecord
	Length int `json:"length"`
}

// AlignRequest aligns two raw sequences
type AlignRequest struct {
	Query     string `json:"query" validate:"required"`
	Reference string `json:"reference" validate:"required"`
}

// RecordAlignRequest aligns a sequence against a resolved record
type RecordAlignRequest struct {
	Sequence string `json:"sequence" validate:"required"`
	Format   string `json:"format,omitempty" validate:"omitempty,oneof=xml fasta json"`
}

// AlignResponse carries the alignment and its printable trace
type AlignResponse struct {
	Identifier string                 `json:"identifier,omitempty"`
	Alignment  domain.AlignmentResult `json:"alignment"`
	Identity   float64                `json:"identity"`
	Gaps       int                    `json:"gaps"`
	Trace      string                 `json:"trace"`
}

// GraphRequest builds a graph from caller-supplied edges
type GraphRequest struct {
	Edges    []domain.InteractionEdge `json:"edges"`
	MinScore *int                     `json:"min_score,omitempty" validate:"omitempty,gte=0,lte=1000"`
}

// ReportRequest selects the optional report branches
type ReportRequest struct {
	Sequence string `json:"sequence,omitempty"`
	Format   string `json:"format,omitempty" validate:"omitempty,oneof=xml fasta json"`
	Species  int    `json:"species,omitempty" validate:"gte=0"`
	MinScore *int   `json:"min_score,omitempty" validate:"omitempty,gte=0,lte=1000"`
}

// Health reports liveness
func (h *PipelineHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// GetRecord resolves a record in the requested format
func (h *PipelineHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind, ok := h.formatParam(w, r.URL.Query().Get("format"))
	if !ok {
		return
	}

	rec, err := h.svc.Resolve(r.Context(), id, kind)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, RecordResponse{SequenceRecord: rec, Length: rec.Length()}, http.StatusOK)
}

// ExportRecord resolves a record and downloads it as fasta, json or yaml
func (h *PipelineHandler) ExportRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exp, err := codec.ExporterFor(strings.ToLower(r.URL.Query().Get("as")))
	if err != nil {
		h.writeError(w, "Invalid export format", err.Error(), "", http.StatusBadRequest)
		return
	}
	kind, ok := h.formatParam(w, r.URL.Query().Get("format"))
	if !ok {
		return
	}

	rec, err := h.svc.Resolve(r.Context(), id, kind)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", rec.Identifier, exp.Name()))
	if err := exp.Export(rec, w); err != nil {
		// Headers are already sent
		h.logger.Error("failed to export record", zap.String("identifier", rec.Identifier), zap.Error(err))
	}
}

// NormalizeDocument parses an uploaded document into a record
func (h *PipelineHandler) NormalizeDocument(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		h.writeError(w, "Format required", "set ?format=xml|fasta|json", "", http.StatusBadRequest)
		return
	}
	kind, ok := h.formatParam(w, raw)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		h.writeBodyError(w, err)
		return
	}

	rec, err := codec.Normalize(body, kind)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, RecordResponse{SequenceRecord: rec, Length: rec.Length()}, http.StatusOK)
}

// AlignSequences aligns two raw sequences
func (h *PipelineHandler) AlignSequences(w http.ResponseWriter, r *http.Request) {
	var req AlignRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.AlignSequences(r.Context(), req.Query, req.Reference)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, newAlignResponse("", res), http.StatusOK)
}

// AlignToRecord resolves a record and aligns the posted sequence against it
func (h *PipelineHandler) AlignToRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RecordAlignRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.svc.Resolve(r.Context(), id, domain.FormatKind(req.Format))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	res, err := h.svc.Align(r.Context(), rec, req.Sequence)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, newAlignResponse(rec.Identifier, res), http.StatusOK)
}

// GetInteractions builds the interaction graph around a record's identifier
func (h *PipelineHandler) GetInteractions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	species, ok := h.intParam(w, r, "species", 0)
	if !ok {
		return
	}
	minScore, ok := h.intParam(w, r, "min_score", -1)
	if !ok {
		return
	}
	if minScore > domain.MaxInteractionScore {
		h.writeError(w, "Invalid parameter", "min_score must be <= 1000", "", http.StatusBadRequest)
		return
	}

	graph, err := h.svc.Interactions(r.Context(), id, species, minScore)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, graph, http.StatusOK)
}

// BuildGraph builds a graph from the posted edges
func (h *PipelineHandler) BuildGraph(w http.ResponseWriter, r *http.Request) {
	var req GraphRequest
	if !h.decode(w, r, &req) {
		return
	}

	minScore := domain.DefaultMinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	graph, err := h.svc.BuildGraph(r.Context(), req.Edges, minScore)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, graph, http.StatusOK)
}

// Report resolves a record and runs the requested analyses
func (h *PipelineHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ReportRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}

	minScore := -1
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	report, err := h.svc.Report(r.Context(), service.ReportRequest{
		Identifier: id,
		Format:     domain.FormatKind(req.Format),
		Query:      req.Sequence,
		Species:    req.Species,
		MinScore:   minScore,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, report, http.StatusOK)
}

func newAlignResponse(identifier string, res domain.AlignmentResult) AlignResponse {
	return AlignResponse{
		Identifier: identifier,
		Alignment:  res,
		Identity:   res.Identity(),
		Gaps:       res.Gaps(),
		Trace:      res.Render(),
	}
}

// Helper methods

func (h *PipelineHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodySize)).Decode(dst); err != nil {
		h.writeBodyError(w, err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, "Invalid request", err.Error(), "", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *PipelineHandler) formatParam(w http.ResponseWriter, raw string) (domain.FormatKind, bool) {
	if raw == "" {
		return "", true
	}
	kind, err := domain.ParseFormatKind(raw)
	if err != nil {
		h.writeError(w, "Invalid format", err.Error(), "", http.StatusBadRequest)
		return "", false
	}
	return kind, true
}

func (h *PipelineHandler) intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.writeError(w, "Invalid parameter", fmt.Sprintf("%s must be a non-negative integer", name), "", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func (h *PipelineHandler) writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeError(w, "Request body too large", err.Error(), "", http.StatusRequestEntityTooLarge)
		return
	}
	h.writeError(w, "Invalid request body", err.Error(), "", http.StatusBadRequest)
}

// statusFor maps a pipeline error onto an HTTP status
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound, domain.KindEmptyGraph:
		return http.StatusNotFound
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	case domain.KindFormat:
		return http.StatusUnprocessableEntity
	case domain.KindEmptyInput:
		return http.StatusBadRequest
	}
	if errors.Is(err, align.ErrTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func (h *PipelineHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := domain.KindOf(err)

	message := domain.UserMessage(err)
	if status == http.StatusRequestEntityTooLarge {
		message = "The sequences are too long to align."
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("kind", string(kind)),
		zap.Int("status", status),
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}

	h.writeError(w, message, err.Error(), kind, status)
}

func (h *PipelineHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", zap.Error(err))
	}
}

func (h *PipelineHandler) writeError(w http.ResponseWriter, error, details string, kind domain.ErrorKind, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
		Kind:    kind,
	}); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}
