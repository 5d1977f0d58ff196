package domain

import (
	"fmt"
	"strings"
)

// AlignmentResult is one global alignment of a query against a reference
type AlignmentResult struct {
	Query            string `json:"query"`
	Reference        string `json:"reference"`
	AlignedQuery     string `json:"aligned_query"`
	AlignedReference string `json:"aligned_reference"`
	Score            int    `json:"score"`
}

// Gaps counts gap columns across both aligned strings
func (a AlignmentResult) Gaps() int {
	return strings.Count(a.AlignedQuery, string(GapSymbol)) +
		strings.Count(a.AlignedReference, string(GapSymbol))
}

// Identity returns the fraction of alignment columns that are identical residues
func (a AlignmentResult) Identity() float64 {
	if len(a.AlignedQuery) == 0 {
		return 0
	}
	same := 0
	for i := 0; i < len(a.AlignedQuery); i++ {
		if a.AlignedQuery[i] != GapSymbol && a.AlignedQuery[i] == a.AlignedReference[i] {
			same++
		}
	}
	return float64(same) / float64(len(a.AlignedQuery))
}

// MatchLine returns the column annotation used in the trace:
// '|' for identical residues, '.' for mismatches and ' ' where either side has a gap.
func (a AlignmentResult) MatchLine() string {
	var b strings.Builder
	b.Grow(len(a.AlignedQuery))
	for i := 0; i < len(a.AlignedQuery); i++ {
		q, r := a.AlignedQuery[i], a.AlignedReference[i]
		switch {
		case q == GapSymbol || r == GapSymbol:
			b.WriteByte(' ')
		case q == r:
			b.WriteByte('|')
		default:
			b.WriteByte('.')
		}
	}
	return b.String()
}

// Render returns the human-readable alignment trace
func (a AlignmentResult) Render() string {
	return fmt.Sprintf("%s\n%s\n%s\n  Score=%d\n",
		a.AlignedQuery, a.MatchLine(), a.AlignedReference, a.Score)
}
