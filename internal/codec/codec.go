package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"protscope/internal/domain"
)

// ErrNoEntry marks a well-formed document that carries no record at all.
// Resolvers treat it as an unresolvable identifier rather than a shape problem.
var ErrNoEntry = errors.New("document contains no entry")

// Normalizer converts one raw response into a canonical record
type Normalizer interface {
	Normalize(raw []byte) (domain.SequenceRecord, error)
	Format() domain.FormatKind
}

// Exporter writes a canonical record in a downloadable format
type Exporter interface {
	Export(rec domain.SequenceRecord, w io.Writer) error
	Name() string
	ContentType() string
}

var normalizers = map[domain.FormatKind]Normalizer{
	domain.FormatXML:   NewXMLCodec(),
	domain.FormatFASTA: NewFASTACodec(),
	domain.FormatJSON:  NewJSONCodec(),
}

// Normalize parses raw according to kind. The set of kinds is closed;
// the format is never guessed from the content.
func Normalize(raw []byte, kind domain.FormatKind) (domain.SequenceRecord, error) {
	n, ok := normalizers[kind]
	if !ok {
		return domain.SequenceRecord{}, domain.NewFormatError(fmt.Sprintf("unknown format %q", kind))
	}
	return n.Normalize(raw)
}

// ExporterFor returns the exporter registered under name
func ExporterFor(name string) (Exporter, error) {
	switch name {
	case "fasta", "":
		return NewFASTACodec(), nil
	case "json":
		return NewJSONCodec(), nil
	case "yaml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unknown export format %q", name)
}

// joinNonEmpty joins repeated annotation values, skipping blanks and repeats
func joinNonEmpty(parts []string) string {
	var kept []string
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		kept = append(kept, p)
	}
	return strings.Join(kept, "; ")
}
