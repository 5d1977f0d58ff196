package domain

import "testing"

func TestAlignmentResultTrace(t *testing.T) {
	res := AlignmentResult{
		Query:            "ACGT",
		Reference:        "AGGTT",
		AlignedQuery:     "ACGT-",
		AlignedReference: "AGGTT",
		Score:            3,
	}

	t.Run("match line marks identities mismatches and gaps", func(t *testing.T) {
		if got := res.MatchLine(); got != "|.|| " {
			t.Errorf("expected %q, got %q", "|.|| ", got)
		}
	})

	t.Run("render includes score", func(t *testing.T) {
		want := "ACGT-\n|.|| \nAGGTT\n  Score=3\n"
		if got := res.Render(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("gaps and identity", func(t *testing.T) {
		if res.Gaps() != 1 {
			t.Errorf("expected 1 gap, got %d", res.Gaps())
		}
		if id := res.Identity(); id != 0.6 {
			t.Errorf("expected identity 0.6, got %v", id)
		}
	})

	t.Run("empty alignment has zero identity", func(t *testing.T) {
		if (AlignmentResult{}).Identity() != 0 {
			t.Error("expected zero identity")
		}
	})
}
