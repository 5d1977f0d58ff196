package codec

import (
	"fmt"
	"io"

	"protscope/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec exports records and interaction graphs as YAML
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Name returns the export format name
func (c *YAMLCodec) Name() string {
	return "yaml"
}

// ContentType returns the MIME type used for downloads
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// yamlRecord is the exported record layout; length is informational
type yamlRecord struct {
	Identifier  string            `yaml:"identifier"`
	Description string            `yaml:"description,omitempty"`
	Organism    string            `yaml:"organism,omitempty"`
	Gene        string            `yaml:"gene,omitempty"`
	Length      int               `yaml:"length"`
	Sequence    string            `yaml:"sequence"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// Export writes the record as YAML
func (c *YAMLCodec) Export(rec domain.SequenceRecord, w io.Writer) error {
	yr := yamlRecord{
		Identifier:  rec.Identifier,
		Description: rec.Description,
		Organism:    rec.Organism,
		Gene:        rec.Gene,
		Length:      rec.Length(),
		Sequence:    rec.Sequence,
		Annotations: rec.Annotations,
	}
	return c.encode(&yr, w)
}

// ExportGraph writes an interaction graph as YAML
func (c *YAMLCodec) ExportGraph(graph domain.InteractionGraph, w io.Writer) error {
	return c.encode(&graph, w)
}

// Parse reads a record previously written by Export
func (c *YAMLCodec) Parse(r io.Reader) (domain.SequenceRecord, error) {
	var yr yamlRecord
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yr); err != nil {
		return domain.SequenceRecord{}, domain.WrapFormat("failed to parse YAML", err)
	}
	return domain.NewSequenceRecord(yr.Identifier, yr.Description, yr.Organism, yr.Gene, yr.Sequence, yr.Annotations)
}

func (c *YAMLCodec) encode(v any, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
