package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// FormatKind selects one of the wire formats a record can arrive in
type FormatKind string

const (
	FormatXML   FormatKind = "xml"
	FormatFASTA FormatKind = "fasta"
	FormatJSON  FormatKind = "json"
)

// Valid reports whether k is one of the known formats
func (k FormatKind) Valid() bool {
	switch k {
	case FormatXML, FormatFASTA, FormatJSON:
		return true
	}
	return false
}

// ParseFormatKind parses a format name, case-insensitively
func ParseFormatKind(s string) (FormatKind, error) {
	k := FormatKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", NewFormatError(fmt.Sprintf("unknown format %q", s))
	}
	return k, nil
}

// Annotation keys recognised on a SequenceRecord
const (
	AnnotationFunction     = "function"
	AnnotationLocalization = "localization"
	AnnotationPathway      = "pathway"
	AnnotationDisease      = "disease"
)

// AnnotationKeys lists annotation keys in display order
var AnnotationKeys = []string{
	AnnotationFunction,
	AnnotationLocalization,
	AnnotationPathway,
	AnnotationDisease,
}

// GapSymbol marks a gap in an aligned sequence. It is not a residue.
const GapSymbol = '-'

// SequenceRecord is the canonical, format-independent protein record
type SequenceRecord struct {
	Identifier  string            `json:"identifier" yaml:"identifier"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Organism    string            `json:"organism,omitempty" yaml:"organism,omitempty"`
	Gene        string            `json:"gene,omitempty" yaml:"gene,omitempty"`
	Sequence    string            `json:"sequence" yaml:"sequence"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// NewSequenceRecord builds a record, canonicalizing the sequence.
// An empty sequence fails with a FORMAT error; a record is never built without one.
func NewSequenceRecord(identifier, description, organism, gene, sequence string, annotations map[string]string) (SequenceRecord, error) {
	seq, err := CanonicalSequence(sequence)
	if err != nil {
		return SequenceRecord{}, err
	}
	if seq == "" {
		return SequenceRecord{}, NewFormatError("missing sequence")
	}

	rec := SequenceRecord{
		Identifier:  strings.TrimSpace(identifier),
		Description: collapseSpace(description),
		Organism:    collapseSpace(organism),
		Gene:        strings.TrimSpace(gene),
		Sequence:    seq,
	}
	for k, v := range annotations {
		v = collapseSpace(v)
		if v == "" {
			continue
		}
		if rec.Annotations == nil {
			rec.Annotations = make(map[string]string, len(annotations))
		}
		rec.Annotations[k] = v
	}
	return rec, nil
}

// Length returns the number of residues
func (r SequenceRecord) Length() int {
	return len(r.Sequence)
}

// Annotation returns a named annotation, or "" when absent
func (r SequenceRecord) Annotation(key string) string {
	if r.Annotations == nil {
		return ""
	}
	return r.Annotations[key]
}

// CanonicalSequence strips all whitespace, upper-cases, and checks that only
// residue letters remain. The result may be empty; callers decide whether that is an error.
func CanonicalSequence(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	pos := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		pos++
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
			r -= 'a' - 'A'
		default:
			return "", NewFormatError(fmt.Sprintf("invalid residue %q at position %d", r, pos))
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
