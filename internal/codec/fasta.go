package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"protscope/internal/domain"
)

// HeaderMarker starts every FASTA header line
const HeaderMarker = '>'

// DefaultColumns is the sequence wrap width used on export
const DefaultColumns = 60

// FASTACodec handles FASTA import/export for single records
type FASTACodec struct {
	// Columns is the export wrap width; <= 0 disables wrapping
	Columns int
}

// NewFASTACodec creates a new FASTA codec
func NewFASTACodec() *FASTACodec {
	return &FASTACodec{Columns: DefaultColumns}
}

// Format returns the codec format identifier
func (c *FASTACodec) Format() domain.FormatKind {
	return domain.FormatFASTA
}

// Name returns the export format name
func (c *FASTACodec) Name() string {
	return "fasta"
}

// ContentType returns the MIME type used for downloads
func (c *FASTACodec) ContentType() string {
	return "text/x-fasta"
}

// Normalize parses exactly one FASTA record. Lines starting with the header
// marker are headers; every other line is stripped and appended to the sequence.
func (c *FASTACodec) Normalize(raw []byte) (domain.SequenceRecord, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.SequenceRecord{}, domain.WrapFormat("empty document", ErrNoEntry)
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		header  string
		headers int
		seq     strings.Builder
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == HeaderMarker {
			headers++
			if headers > 1 {
				return domain.SequenceRecord{}, domain.NewFormatError("multiple records")
			}
			header = strings.TrimSpace(line[1:])
			continue
		}
		if headers == 0 {
			return domain.SequenceRecord{}, domain.NewFormatError("missing header line")
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return domain.SequenceRecord{}, domain.WrapFormat("failed to read FASTA", err)
	}

	h := parseHeader(header)
	return domain.NewSequenceRecord(h.identifier, h.description, h.organism, h.gene, seq.String(), nil)
}

// Export writes the record as a single FASTA entry
func (c *FASTACodec) Export(rec domain.SequenceRecord, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%c%s\n", HeaderMarker, FormatHeader(rec)); err != nil {
		return fmt.Errorf("failed to write FASTA header: %w", err)
	}
	for _, line := range wrap(rec.Sequence, c.Columns) {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("failed to write FASTA sequence: %w", err)
		}
	}
	return bw.Flush()
}

// FormatHeader renders the header line (without the marker) for rec
func FormatHeader(rec domain.SequenceRecord) string {
	parts := []string{rec.Identifier}
	if rec.Description != "" {
		parts = append(parts, rec.Description)
	}
	if rec.Organism != "" {
		parts = append(parts, "OS="+rec.Organism)
	}
	if rec.Gene != "" {
		parts = append(parts, "GN="+rec.Gene)
	}
	return strings.Join(parts, " ")
}

func wrap(seq string, cols int) []string {
	if cols <= 0 || len(seq) <= cols {
		return []string{seq}
	}
	lines := make([]string, 0, 1+(len(seq)-1)/cols)
	for start := 0; start < len(seq); start += cols {
		end := start + cols
		if end > len(seq) {
			end = len(seq)
		}
		lines = append(lines, seq[start:end])
	}
	return lines
}

type fastaHeader struct {
	identifier  string
	description string
	organism    string
	gene        string
}

// headerKeyRE finds UniProt-style "KEY=" qualifiers such as OS= and GN=
var headerKeyRE = regexp.MustCompile(`(?:^|\s)(OS|OX|GN|PE|SV)=`)

// parseHeader understands "db|ACCESSION|NAME description OS=... GN=..." and
// the export form "ACCESSION description OS=... GN=...".
func parseHeader(header string) fastaHeader {
	var h fastaHeader
	if header == "" {
		return h
	}

	id, rest, _ := strings.Cut(header, " ")
	if parts := strings.Split(id, "|"); len(parts) >= 2 {
		id = parts[1]
	}
	h.identifier = id

	matches := headerKeyRE.FindAllStringSubmatchIndex(rest, -1)
	if len(matches) == 0 {
		h.description = rest
		return h
	}
	h.description = rest[:matches[0][0]]
	for i, m := range matches {
		key := rest[m[2]:m[3]]
		end := len(rest)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		value := strings.TrimSpace(rest[m[1]:end])
		switch key {
		case "OS":
			h.organism = value
		case "GN":
			h.gene = value
		}
	}
	return h
}
