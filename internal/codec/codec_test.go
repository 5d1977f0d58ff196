package codec

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protscope/internal/domain"
)

const p53Description = "Cellular tumor antigen p53"

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return raw
}

func TestNormalizeP04637(t *testing.T) {
	tests := []struct {
		fixture string
		kind    domain.FormatKind
	}{
		{"P04637.xml", domain.FormatXML},
		{"P04637.fasta", domain.FormatFASTA},
		{"P04637.json", domain.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			rec, err := Normalize(readFixture(t, tt.fixture), tt.kind)
			require.NoError(t, err)

			assert.Equal(t, "P04637", rec.Identifier)
			assert.Equal(t, p53Description, rec.Description)
			assert.Equal(t, "Homo sapiens", rec.Organism)
			assert.Equal(t, "TP53", rec.Gene)
			assert.Equal(t, 393, rec.Length())
			assert.True(t, strings.HasPrefix(rec.Sequence, "MEEPQSDPSVEPP"))
			assert.True(t, strings.HasSuffix(rec.Sequence, "KTEGPDSD"))
		})
	}
}

func TestNormalizeFormatsAgree(t *testing.T) {
	xmlRec, err := Normalize(readFixture(t, "P04637.xml"), domain.FormatXML)
	require.NoError(t, err)
	jsonRec, err := Normalize(readFixture(t, "P04637.json"), domain.FormatJSON)
	require.NoError(t, err)
	fastaRec, err := Normalize(readFixture(t, "P04637.fasta"), domain.FormatFASTA)
	require.NoError(t, err)

	assert.Equal(t, xmlRec, jsonRec)
	assert.Equal(t, xmlRec.Sequence, fastaRec.Sequence)
	assert.Equal(t, xmlRec.Description, fastaRec.Description)
}

func TestNormalizeAnnotations(t *testing.T) {
	rec, err := Normalize(readFixture(t, "P04637.xml"), domain.FormatXML)
	require.NoError(t, err)

	assert.Equal(t, "Cytoplasm; Nucleus", rec.Annotation(domain.AnnotationLocalization))
	assert.Equal(t, "Li-Fraumeni syndrome", rec.Annotation(domain.AnnotationDisease))
	assert.Contains(t, rec.Annotation(domain.AnnotationFunction), "transcription factor")
	assert.Empty(t, rec.Annotation(domain.AnnotationPathway))
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		kind      domain.FormatKind
		noEntry   bool
		wantInMsg string
	}{
		{"xml empty body", "", domain.FormatXML, true, "empty"},
		{"xml truncated", `<uniprot xmlns="http://uniprot.org/uniprot"><entry>`, domain.FormatXML, false, "parse"},
		{"xml wrong namespace", `<uniprot><entry/></uniprot>`, domain.FormatXML, false, "namespace"},
		{"xml no entry", `<uniprot xmlns="http://uniprot.org/uniprot"></uniprot>`, domain.FormatXML, true, "no entry"},
		{"xml two entries", `<uniprot xmlns="http://uniprot.org/uniprot">
			<entry><accession>A</accession><sequence>MA</sequence></entry>
			<entry><accession>B</accession><sequence>MA</sequence></entry></uniprot>`, domain.FormatXML, false, "multiple records"},
		{"xml no accession", `<uniprot xmlns="http://uniprot.org/uniprot"><entry><sequence>MA</sequence></entry></uniprot>`,
			domain.FormatXML, false, "missing accession"},
		{"xml length mismatch", `<uniprot xmlns="http://uniprot.org/uniprot"><entry><accession>A</accession><sequence length="3">MA</sequence></entry></uniprot>`,
			domain.FormatXML, false, "declared length"},
		{"fasta no header", "MEEPQ\n", domain.FormatFASTA, false, "missing header"},
		{"fasta header only", ">P04637 p53\n", domain.FormatFASTA, false, "missing sequence"},
		{"fasta two records", ">A\nMA\n>B\nMA\n", domain.FormatFASTA, false, "multiple records"},
		{"fasta invalid residue", ">A\nME1P\n", domain.FormatFASTA, false, "invalid residue"},
		{"json not json", "<html></html>", domain.FormatJSON, false, "parse"},
		{"json empty object", "{}", domain.FormatJSON, true, "no entry"},
		{"json no results", `{"results": []}`, domain.FormatJSON, true, "no results"},
		{"json no sequence", `{"primaryAccession": "P04637"}`, domain.FormatJSON, false, "missing sequence"},
		{"unknown kind", ">A\nMA\n", domain.FormatKind("gff"), false, "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]byte(tt.raw), tt.kind)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrFormat), "expected FORMAT error, got %v", err)
			assert.Equal(t, tt.noEntry, errors.Is(err, ErrNoEntry))
			assert.Contains(t, err.Error(), tt.wantInMsg)
		})
	}
}

func TestNormalizeMissingSequenceFixture(t *testing.T) {
	_, err := Normalize(readFixture(t, "no_sequence.xml"), domain.FormatXML)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFormat)
	assert.Contains(t, err.Error(), "missing sequence")
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		header string
		want   fastaHeader
	}{
		{
			"sp|P04637|P53_HUMAN Cellular tumor antigen p53 OS=Homo sapiens OX=9606 GN=TP53 PE=1 SV=4",
			fastaHeader{"P04637", "Cellular tumor antigen p53", "Homo sapiens", "TP53"},
		},
		{
			"P04637 Cellular tumor antigen p53 OS=Homo sapiens GN=TP53",
			fastaHeader{"P04637", "Cellular tumor antigen p53", "Homo sapiens", "TP53"},
		},
		{"P04637", fastaHeader{identifier: "P04637"}},
		{"query1 some free text", fastaHeader{identifier: "query1", description: "some free text"}},
		{"", fastaHeader{}},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHeader(tt.header))
		})
	}
}

func TestFASTAExportRoundTrip(t *testing.T) {
	rec, err := Normalize(readFixture(t, "P04637.xml"), domain.FormatXML)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewFASTACodec().Export(rec, &buf))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, ">P04637 Cellular tumor antigen p53 OS=Homo sapiens GN=TP53", lines[0])
	for _, line := range lines[1 : len(lines)-1] {
		assert.Len(t, line, DefaultColumns)
	}
	assert.Len(t, lines[len(lines)-1], 393%DefaultColumns)

	back, err := Normalize(buf.Bytes(), domain.FormatFASTA)
	require.NoError(t, err)
	assert.Equal(t, rec.Sequence, back.Sequence)
	assert.Equal(t, rec.Identifier, back.Identifier)
	assert.Equal(t, rec.Description, back.Description)
	assert.Equal(t, rec.Organism, back.Organism)
	assert.Equal(t, rec.Gene, back.Gene)
}

func TestFASTAExportUnwrapped(t *testing.T) {
	rec, err := domain.NewSequenceRecord("Q1", "", "", "", "MEEPQSDPSV", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	c := &FASTACodec{Columns: 0}
	require.NoError(t, c.Export(rec, &buf))
	assert.Equal(t, ">Q1\nMEEPQSDPSV\n", buf.String())
}

func TestExporters(t *testing.T) {
	rec, err := Normalize(readFixture(t, "P04637.xml"), domain.FormatXML)
	require.NoError(t, err)

	t.Run("default is fasta", func(t *testing.T) {
		exp, err := ExporterFor("")
		require.NoError(t, err)
		assert.Equal(t, "fasta", exp.Name())
		assert.Equal(t, "text/x-fasta", exp.ContentType())
	})

	t.Run("yaml export parses back", func(t *testing.T) {
		exp, err := ExporterFor("yaml")
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, exp.Export(rec, &buf))
		assert.Contains(t, buf.String(), "length: 393")

		back, err := NewYAMLCodec().Parse(&buf)
		require.NoError(t, err)
		assert.Equal(t, rec, back)
	})

	t.Run("json export carries the canonical fields", func(t *testing.T) {
		exp, err := ExporterFor("json")
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, exp.Export(rec, &buf))
		assert.Contains(t, buf.String(), `"identifier": "P04637"`)
		assert.Contains(t, buf.String(), `"description": "Cellular tumor antigen p53"`)
	})

	t.Run("unknown exporter", func(t *testing.T) {
		_, err := ExporterFor("genbank")
		assert.Error(t, err)
	})
}

func TestGraphExport(t *testing.T) {
	graph, err := domain.BuildInteractionGraph([]domain.InteractionEdge{
		domain.NewInteractionEdge("TP53", "MDM2", 999),
		domain.NewInteractionEdge("TP53", "EP300", 990),
	}, domain.DefaultMinScore)
	require.NoError(t, err)

	var y bytes.Buffer
	require.NoError(t, NewYAMLCodec().ExportGraph(graph, &y))
	assert.Contains(t, y.String(), "min_score: 700")
	assert.Contains(t, y.String(), "node_a: MDM2")

	var j bytes.Buffer
	require.NoError(t, NewJSONCodec().ExportGraph(graph, &j))
	assert.Contains(t, j.String(), `"nodes": [`)
}

func TestJoinNonEmpty(t *testing.T) {
	assert.Equal(t, "a b; c", joinNonEmpty([]string{" a\n b ", "", "c", "a b"}))
	assert.Equal(t, "", joinNonEmpty(nil))
}
