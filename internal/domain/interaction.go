package domain

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

const (
	// MaxInteractionScore is the top of the interaction score scale
	MaxInteractionScore = 1000
	// DefaultMinScore is the usual high-confidence threshold
	DefaultMinScore = 700
)

// InteractionEdge is one scored undirected interaction between two proteins
type InteractionEdge struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	NodeA string `json:"node_a" yaml:"node_a"`
	NodeB string `json:"node_b" yaml:"node_b"`
	Score int    `json:"score" yaml:"score"`
}

// NewInteractionEdge creates an edge with its endpoints in canonical order
func NewInteractionEdge(a, b string, score int) InteractionEdge {
	edge := InteractionEdge{NodeA: a, NodeB: b, Score: score}
	edge.NodeA, edge.NodeB = edge.Pair()
	edge.ID = edge.GenerateID()
	return edge
}

// GenerateID creates a deterministic ID from the unordered endpoint pair.
// Names are NUL-separated since protein names routinely contain hyphens.
func (e InteractionEdge) GenerateID() string {
	a, b := e.Pair()
	hash := sha256.Sum256([]byte(a + "\x00" + b))
	return fmt.Sprintf("%x", hash[:8])
}

// Pair returns the endpoints in canonical order
func (e InteractionEdge) Pair() (string, string) {
	a, b := strings.TrimSpace(e.NodeA), strings.TrimSpace(e.NodeB)
	if a > b {
		a, b = b, a
	}
	return a, b
}

// IsSelfLoop reports whether both endpoints name the same protein
func (e InteractionEdge) IsSelfLoop() bool {
	return strings.TrimSpace(e.NodeA) == strings.TrimSpace(e.NodeB)
}

// InteractionGraph is an undirected weighted graph of protein interactions
type InteractionGraph struct {
	Nodes    []string          `json:"nodes" yaml:"nodes"`
	Edges    []InteractionEdge `json:"edges" yaml:"edges"`
	MinScore int               `json:"min_score" yaml:"min_score"`
}

// BuildInteractionGraph filters edges below minScore, drops self-loops, blank
// names and out-of-range scores, and merges duplicate pairs keeping the highest score.
// It fails with an EMPTY_GRAPH error when nothing survives.
func BuildInteractionGraph(edges []InteractionEdge, minScore int) (InteractionGraph, error) {
	best := make(map[[2]string]InteractionEdge, len(edges))
	for _, e := range edges {
		if e.Score < minScore || e.Score < 0 || e.Score > MaxInteractionScore {
			continue
		}
		if strings.TrimSpace(e.NodeA) == "" || strings.TrimSpace(e.NodeB) == "" || e.IsSelfLoop() {
			continue
		}
		edge := NewInteractionEdge(e.NodeA, e.NodeB, e.Score)
		key := [2]string{edge.NodeA, edge.NodeB}
		if prev, ok := best[key]; ok && prev.Score >= edge.Score {
			continue
		}
		best[key] = edge
	}

	if len(best) == 0 {
		return InteractionGraph{}, NewEmptyGraph(minScore)
	}

	graph := InteractionGraph{
		Edges:    make([]InteractionEdge, 0, len(best)),
		MinScore: minScore,
	}
	seen := make(map[string]struct{}, len(best)*2)
	for _, e := range best {
		graph.Edges = append(graph.Edges, e)
		for _, n := range []string{e.NodeA, e.NodeB} {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				graph.Nodes = append(graph.Nodes, n)
			}
		}
	}

	sort.Strings(graph.Nodes)
	sort.Slice(graph.Edges, func(i, j int) bool {
		if graph.Edges[i].NodeA != graph.Edges[j].NodeA {
			return graph.Edges[i].NodeA < graph.Edges[j].NodeA
		}
		return graph.Edges[i].NodeB < graph.Edges[j].NodeB
	})

	return graph, nil
}

// HasEdge reports whether a and b are connected
func (g InteractionGraph) HasEdge(a, b string) bool {
	_, ok := g.Weight(a, b)
	return ok
}

// Weight returns the score of the edge between a and b
func (g InteractionGraph) Weight(a, b string) (int, bool) {
	if a > b {
		a, b = b, a
	}
	for _, e := range g.Edges {
		if e.NodeA == a && e.NodeB == b {
			return e.Score, true
		}
	}
	return 0, false
}

// Neighbors returns the sorted names of proteins interacting with node
func (g InteractionGraph) Neighbors(node string) []string {
	var out []string
	for _, e := range g.Edges {
		switch node {
		case e.NodeA:
			out = append(out, e.NodeB)
		case e.NodeB:
			out = append(out, e.NodeA)
		}
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of edges touching node
func (g InteractionGraph) Degree(node string) int {
	return len(g.Neighbors(node))
}
