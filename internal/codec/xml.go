package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"protscope/internal/domain"
)

// UniProtNamespace is the XML namespace of UniProtKB entry documents
const UniProtNamespace = "http://uniprot.org/uniprot"

// XMLCodec normalizes UniProtKB XML entry documents
type XMLCodec struct{}

// NewXMLCodec creates a new XML codec
func NewXMLCodec() *XMLCodec {
	return &XMLCodec{}
}

// Format returns the codec format identifier
func (c *XMLCodec) Format() domain.FormatKind {
	return domain.FormatXML
}

type xmlDocument struct {
	XMLName xml.Name   `xml:"uniprot"`
	Entries []xmlEntry `xml:"entry"`
}

type xmlEntry struct {
	Accessions []string     `xml:"accession"`
	Protein    xmlProtein   `xml:"protein"`
	Genes      []xmlGene    `xml:"gene"`
	Organism   xmlOrganism  `xml:"organism"`
	Comments   []xmlComment `xml:"comment"`
	// Only the entry's direct sequence child; isoform sequences live under comments.
	Sequence *xmlSequence `xml:"sequence"`
}

type xmlProtein struct {
	RecommendedName *xmlProteinName  `xml:"recommendedName"`
	SubmittedNames  []xmlProteinName `xml:"submittedName"`
}

type xmlProteinName struct {
	FullName string `xml:"fullName"`
}

type xmlGene struct {
	Names []xmlTypedName `xml:"name"`
}

type xmlOrganism struct {
	Names []xmlTypedName `xml:"name"`
}

type xmlTypedName struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type xmlComment struct {
	Type      string       `xml:"type,attr"`
	Texts     []string     `xml:"text"`
	Locations []string     `xml:"subcellularLocation>location"`
	Diseases  []xmlDisease `xml:"disease"`
}

type xmlDisease struct {
	Name string `xml:"name"`
}

type xmlSequence struct {
	Length string `xml:"length,attr"`
	Value  string `xml:",chardata"`
}

// Normalize parses a UniProtKB XML document holding exactly one entry
func (c *XMLCodec) Normalize(raw []byte) (domain.SequenceRecord, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.SequenceRecord{}, domain.WrapFormat("empty document", ErrNoEntry)
	}

	var doc xmlDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return domain.SequenceRecord{}, domain.WrapFormat("failed to parse XML", err)
	}
	if doc.XMLName.Space != UniProtNamespace {
		return domain.SequenceRecord{}, domain.NewFormatError(
			fmt.Sprintf("unexpected XML namespace %q", doc.XMLName.Space))
	}

	switch len(doc.Entries) {
	case 0:
		return domain.SequenceRecord{}, domain.WrapFormat("no entry element", ErrNoEntry)
	case 1:
	default:
		return domain.SequenceRecord{}, domain.NewFormatError("multiple records")
	}
	entry := doc.Entries[0]

	if entry.Sequence == nil || strings.TrimSpace(entry.Sequence.Value) == "" {
		return domain.SequenceRecord{}, domain.NewFormatError("missing sequence")
	}
	if len(entry.Accessions) == 0 || strings.TrimSpace(entry.Accessions[0]) == "" {
		return domain.SequenceRecord{}, domain.NewFormatError("missing accession")
	}

	rec, err := domain.NewSequenceRecord(
		entry.Accessions[0],
		entry.Protein.fullName(),
		pickTyped(entry.Organism.Names, "scientific"),
		firstGene(entry.Genes),
		entry.Sequence.Value,
		entry.annotations(),
	)
	if err != nil {
		return domain.SequenceRecord{}, err
	}

	if entry.Sequence.Length != "" {
		declared, err := strconv.Atoi(strings.TrimSpace(entry.Sequence.Length))
		if err != nil {
			return domain.SequenceRecord{}, domain.WrapFormat("invalid sequence length attribute", err)
		}
		if declared != rec.Length() {
			return domain.SequenceRecord{}, domain.NewFormatError(
				fmt.Sprintf("sequence length %d does not match declared length %d", rec.Length(), declared))
		}
	}

	return rec, nil
}

func (p xmlProtein) fullName() string {
	if p.RecommendedName != nil && strings.TrimSpace(p.RecommendedName.FullName) != "" {
		return p.RecommendedName.FullName
	}
	for _, n := range p.SubmittedNames {
		if strings.TrimSpace(n.FullName) != "" {
			return n.FullName
		}
	}
	return ""
}

func (e xmlEntry) annotations() map[string]string {
	collected := make(map[string][]string)
	for _, c := range e.Comments {
		switch c.Type {
		case "function":
			collected[domain.AnnotationFunction] = append(collected[domain.AnnotationFunction], c.Texts...)
		case "pathway":
			collected[domain.AnnotationPathway] = append(collected[domain.AnnotationPathway], c.Texts...)
		case "subcellular location":
			collected[domain.AnnotationLocalization] = append(collected[domain.AnnotationLocalization], c.Locations...)
		case "disease":
			if len(c.Diseases) == 0 {
				collected[domain.AnnotationDisease] = append(collected[domain.AnnotationDisease], c.Texts...)
			}
			for _, d := range c.Diseases {
				collected[domain.AnnotationDisease] = append(collected[domain.AnnotationDisease], d.Name)
			}
		}
	}

	out := make(map[string]string, len(collected))
	for k, v := range collected {
		out[k] = joinNonEmpty(v)
	}
	return out
}

// pickTyped returns the name with the wanted type attribute, falling back to the first one
func pickTyped(names []xmlTypedName, want string) string {
	for _, n := range names {
		if n.Type == want {
			return n.Value
		}
	}
	if len(names) > 0 {
		return names[0].Value
	}
	return ""
}

func firstGene(genes []xmlGene) string {
	for _, g := range genes {
		if name := pickTyped(g.Names, "primary"); name != "" {
			return name
		}
	}
	return ""
}
