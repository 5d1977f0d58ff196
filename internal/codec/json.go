package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"protscope/internal/domain"
)

// JSONCodec normalizes UniProtKB REST JSON entries and exports canonical records
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() domain.FormatKind {
	return domain.FormatJSON
}

// Name returns the export format name
func (c *JSONCodec) Name() string {
	return "json"
}

// ContentType returns the MIME type used for downloads
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// jsonDocument covers both a single entry and a search response wrapping entries
type jsonDocument struct {
	jsonEntry
	Results *[]jsonEntry `json:"results"`
}

type jsonEntry struct {
	PrimaryAccession   string                 `json:"primaryAccession"`
	ProteinDescription jsonProteinDescription `json:"proteinDescription"`
	Organism           jsonOrganism           `json:"organism"`
	Genes              []jsonGene             `json:"genes"`
	Comments           []jsonComment          `json:"comments"`
	Sequence           *jsonSequence          `json:"sequence"`
}

type jsonProteinDescription struct {
	RecommendedName *jsonProteinName  `json:"recommendedName"`
	SubmissionNames []jsonProteinName `json:"submissionNames"`
}

type jsonProteinName struct {
	FullName jsonValue `json:"fullName"`
}

type jsonValue struct {
	Value string `json:"value"`
}

type jsonOrganism struct {
	ScientificName string `json:"scientificName"`
}

type jsonGene struct {
	GeneName *jsonValue `json:"geneName"`
}

type jsonComment struct {
	CommentType          string                    `json:"commentType"`
	Texts                []jsonValue               `json:"texts"`
	SubcellularLocations []jsonSubcellularLocation `json:"subcellularLocations"`
	Disease              *jsonDisease              `json:"disease"`
}

type jsonSubcellularLocation struct {
	Location jsonValue `json:"location"`
}

type jsonDisease struct {
	DiseaseID string `json:"diseaseId"`
}

type jsonSequence struct {
	Value  string `json:"value"`
	Length int    `json:"length"`
}

// Normalize parses a UniProtKB JSON entry, or a search response holding exactly one result
func (c *JSONCodec) Normalize(raw []byte) (domain.SequenceRecord, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.SequenceRecord{}, domain.WrapFormat("empty document", ErrNoEntry)
	}

	var doc jsonDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.SequenceRecord{}, domain.WrapFormat("failed to parse JSON", err)
	}

	entry := doc.jsonEntry
	if doc.Results != nil {
		switch len(*doc.Results) {
		case 0:
			return domain.SequenceRecord{}, domain.WrapFormat("no results", ErrNoEntry)
		case 1:
			entry = (*doc.Results)[0]
		default:
			return domain.SequenceRecord{}, domain.NewFormatError("multiple records")
		}
	}

	if entry.PrimaryAccession == "" && entry.Sequence == nil {
		return domain.SequenceRecord{}, domain.WrapFormat("no entry fields", ErrNoEntry)
	}
	if entry.Sequence == nil || strings.TrimSpace(entry.Sequence.Value) == "" {
		return domain.SequenceRecord{}, domain.NewFormatError("missing sequence")
	}
	if strings.TrimSpace(entry.PrimaryAccession) == "" {
		return domain.SequenceRecord{}, domain.NewFormatError("missing accession")
	}

	rec, err := domain.NewSequenceRecord(
		entry.PrimaryAccession,
		entry.ProteinDescription.fullName(),
		entry.Organism.ScientificName,
		entry.gene(),
		entry.Sequence.Value,
		entry.annotations(),
	)
	if err != nil {
		return domain.SequenceRecord{}, err
	}
	if entry.Sequence.Length > 0 && entry.Sequence.Length != rec.Length() {
		return domain.SequenceRecord{}, domain.NewFormatError(
			fmt.Sprintf("sequence length %d does not match declared length %d", rec.Length(), entry.Sequence.Length))
	}
	return rec, nil
}

// Export writes the canonical record as indented JSON
func (c *JSONCodec) Export(rec domain.SequenceRecord, w io.Writer) error {
	return c.encode(rec, w)
}

// ExportGraph writes an interaction graph as indented JSON
func (c *JSONCodec) ExportGraph(graph domain.InteractionGraph, w io.Writer) error {
	return c.encode(graph, w)
}

func (c *JSONCodec) encode(v any, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

func (d jsonProteinDescription) fullName() string {
	if d.RecommendedName != nil && strings.TrimSpace(d.RecommendedName.FullName.Value) != "" {
		return d.RecommendedName.FullName.Value
	}
	for _, n := range d.SubmissionNames {
		if strings.TrimSpace(n.FullName.Value) != "" {
			return n.FullName.Value
		}
	}
	return ""
}

func (e jsonEntry) gene() string {
	for _, g := range e.Genes {
		if g.GeneName != nil && g.GeneName.Value != "" {
			return g.GeneName.Value
		}
	}
	return ""
}

func (e jsonEntry) annotations() map[string]string {
	collected := make(map[string][]string)
	for _, c := range e.Comments {
		switch strings.ToUpper(c.CommentType) {
		case "FUNCTION":
			collected[domain.AnnotationFunction] = append(collected[domain.AnnotationFunction], values(c.Texts)...)
		case "PATHWAY":
			collected[domain.AnnotationPathway] = append(collected[domain.AnnotationPathway], values(c.Texts)...)
		case "SUBCELLULAR LOCATION":
			for _, l := range c.SubcellularLocations {
				collected[domain.AnnotationLocalization] = append(collected[domain.AnnotationLocalization], l.Location.Value)
			}
		case "DISEASE":
			if c.Disease != nil {
				collected[domain.AnnotationDisease] = append(collected[domain.AnnotationDisease], c.Disease.DiseaseID)
			} else {
				collected[domain.AnnotationDisease] = append(collected[domain.AnnotationDisease], values(c.Texts)...)
			}
		}
	}

	out := make(map[string]string, len(collected))
	for k, v := range collected {
		out[k] = joinNonEmpty(v)
	}
	return out
}

func values(vs []jsonValue) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Value)
	}
	return out
}
