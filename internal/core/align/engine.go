// Package align implements global pairwise alignment of protein sequences.
//
// Scoring is identity-only: a match scores 1, a mismatch or gap scores 0, with
// no gap-opening or extension penalty. The score of an optimal alignment is
// therefore the length of the longest common subsequence of the two inputs.
package align

import (
	"errors"
	"fmt"
	"strings"

	"protscope/internal/domain"
)

// ErrTooLarge is returned when the score matrix would exceed the configured budget
var ErrTooLarge = errors.New("alignment exceeds matrix size limit")

// Option is a functional option for configuring Engine
type Option func(*Engine)

// WithMaxCells bounds the number of score matrix cells; n <= 0 means unbounded
func WithMaxCells(n int64) Option {
	return func(e *Engine) {
		e.maxCells = n
	}
}

// Engine performs global alignments
type Engine struct {
	maxCells int64
}

// NewEngine creates an alignment engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxCells returns the matrix budget, 0 when unbounded
func (e *Engine) MaxCells() int64 {
	return e.maxCells
}

// Cells returns the score matrix size for sequences of length n and m
func Cells(n, m int) int64 {
	return int64(n+1) * int64(m+1)
}

var defaultEngine = NewEngine()

// Align globally aligns query against reference with an unbounded engine
func Align(query, reference string) (domain.AlignmentResult, error) {
	return defaultEngine.Align(query, reference)
}

// Align globally aligns query against reference.
//
// Both inputs are canonicalized first (whitespace stripped, upper-cased), so
// Query and Reference in the result hold the canonical forms and de-gapping
// them returns CanonicalSequence of each input, not the raw argument.
// The traceback starts at the bottom-right
// cell and prefers, in order, a diagonal step, a gap in the reference, then a
// gap in the query, so equal inputs always produce the same alignment.
func (e *Engine) Align(query, reference string) (domain.AlignmentResult, error) {
	a, err := domain.CanonicalSequence(query)
	if err != nil {
		return domain.AlignmentResult{}, fmt.Errorf("query: %w", err)
	}
	b, err := domain.CanonicalSequence(reference)
	if err != nil {
		return domain.AlignmentResult{}, fmt.Errorf("reference: %w", err)
	}
	if a == "" {
		return domain.AlignmentResult{}, domain.NewEmptyInput("query")
	}
	if b == "" {
		return domain.AlignmentResult{}, domain.NewEmptyInput("reference")
	}
	if cells := Cells(len(a), len(b)); e.maxCells > 0 && cells > e.maxCells {
		return domain.AlignmentResult{}, fmt.Errorf("%w: %d cells, limit %d", ErrTooLarge, cells, e.maxCells)
	}

	m := fill(a, b)
	alignedA, alignedB := traceback(m, a, b)

	return domain.AlignmentResult{
		Query:            a,
		Reference:        b,
		AlignedQuery:     alignedA,
		AlignedReference: alignedB,
		Score:            int(m.at(len(a), len(b))),
	}, nil
}

// matrix is a row-major (len(a)+1) x (len(b)+1) score table
type matrix struct {
	cols  int
	cells []int32
}

func (m *matrix) at(i, j int) int32 {
	return m.cells[i*m.cols+j]
}

func (m *matrix) set(i, j int, v int32) {
	m.cells[i*m.cols+j] = v
}

func score(x, y byte) int32 {
	if x == y {
		return 1
	}
	return 0
}

// fill computes the score table; row 0 and column 0 stay zero since gaps are free
func fill(a, b string) *matrix {
	m := &matrix{cols: len(b) + 1, cells: make([]int32, (len(a)+1)*(len(b)+1))}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			best := m.at(i-1, j-1) + score(a[i-1], b[j-1])
			if up := m.at(i-1, j); up > best {
				best = up
			}
			if left := m.at(i, j-1); left > best {
				best = left
			}
			m.set(i, j, best)
		}
	}
	return m
}

func traceback(m *matrix, a, b string) (string, string) {
	i, j := len(a), len(b)
	outA := make([]byte, 0, i+j)
	outB := make([]byte, 0, i+j)

	for i > 0 || j > 0 {
		cur := m.at(i, j)
		switch {
		case i > 0 && j > 0 && cur == m.at(i-1, j-1)+score(a[i-1], b[j-1]):
			outA = append(outA, a[i-1])
			outB = append(outB, b[j-1])
			i--
			j--
		case i > 0 && cur == m.at(i-1, j):
			outA = append(outA, a[i-1])
			outB = append(outB, domain.GapSymbol)
			i--
		default:
			outA = append(outA, domain.GapSymbol)
			outB = append(outB, b[j-1])
			j--
		}
	}

	reverse(outA)
	reverse(outB)
	return string(outA), string(outB)
}

func reverse(s []byte) {
	for l, r := 0, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
}

// Degap removes gap symbols from an aligned sequence
func Degap(aligned string) string {
	return strings.ReplaceAll(aligned, string(domain.GapSymbol), "")
}
