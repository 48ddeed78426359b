package scoring

import (
	"math"
	"testing"

	"github.com/ctr-research/SurveyPipe/internal/models"
)

func fillItems(answers map[string]models.Answer, value float64, ids ...string) {
	for _, id := range ids {
		answers[id] = models.NumberAnswer(value)
	}
}

func fillRange(answers map[string]models.Answer, prefix string, from, to int, value float64) {
	for i := from; i <= to; i++ {
		answers[prefix+itoa(i)] = models.NumberAnswer(value)
	}
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return string(rune('0'+i/10)) + string(rune('0'+i%10))
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestScoreStrategicCurator(t *testing.T) {
	answers := map[string]models.Answer{}
	fillRange(answers, "CAT", 1, 26, 6)
	fillItems(answers, 6, "ID5", "ID6", "ID7", "ID8", "ID9")
	fillItems(answers, 3, "ID1", "ID2", "ID3", "ID4")

	r := Score(answers)
	if r.Archetype.Name != "The Strategic Curator" {
		t.Fatalf("archetype = %q", r.Archetype.Name)
	}
	if r.Archetype.Power != "Judgment Mastery" {
		t.Errorf("power = %q", r.Archetype.Power)
	}
	approx(t, "TrustScore", r.TrustScore, 6)
	approx(t, "CuratorScore", r.CuratorScore, 6)
	approx(t, "ExecutorScore", r.ExecutorScore, 3)
	approx(t, "CuratorialShift", r.CuratorialShift, 2)
}

func TestScoreIntuitiveMaverick(t *testing.T) {
	answers := map[string]models.Answer{}
	fillRange(answers, "CAT", 1, 26, 2)
	fillItems(answers, 6, "ID1", "ID2", "ID3", "ID4")
	fillItems(answers, 2, "ID5", "ID6", "ID7", "ID8", "ID9")

	r := Score(answers)
	if r.Archetype.Name != "The Intuitive Maverick" {
		t.Fatalf("archetype = %q", r.Archetype.Name)
	}
	if r.Archetype.Power != "Artisanal Rigor" {
		t.Errorf("power = %q", r.Archetype.Power)
	}
}

func TestScoreSystemsOrchestrator(t *testing.T) {
	answers := map[string]models.Answer{}
	fillRange(answers, "CAT", 1, 26, 4)
	fillRange(answers, "OC", 1, 24, 6)

	r := Score(answers)
	if r.Archetype.Name != "The Systems Orchestrator" {
		t.Fatalf("archetype = %q", r.Archetype.Name)
	}
	approx(t, "OrgReadiness", r.OrgReadiness, 6)
}

func TestScoreCautiousPragmatistDefault(t *testing.T) {
	r := Score(map[string]models.Answer{})
	if r.Archetype.Name != "The Cautious Pragmatist" {
		t.Fatalf("archetype = %q", r.Archetype.Name)
	}
	// Empty answer sets fall back to neutral everywhere.
	approx(t, "TrustScore", r.TrustScore, 4)
	approx(t, "OrgReadiness", r.OrgReadiness, 4)
	approx(t, "CuratorScore", r.CuratorScore, 4)
	approx(t, "ExecutorScore", r.ExecutorScore, 4)
	approx(t, "CuratorialShift", r.CuratorialShift, 1)
}

func TestArchetypePriorityOrder(t *testing.T) {
	// Qualifies for both Strategic Curator and Systems Orchestrator;
	// the curator rule is checked first.
	answers := map[string]models.Answer{}
	fillRange(answers, "CAT", 1, 26, 6)
	fillRange(answers, "OC", 1, 24, 7)
	fillItems(answers, 7, "ID5", "ID6", "ID7", "ID8", "ID9")
	fillItems(answers, 2, "ID1", "ID2", "ID3", "ID4")

	r := Score(answers)
	if r.Archetype.Name != "The Strategic Curator" {
		t.Fatalf("archetype = %q, want curator rule to win", r.Archetype.Name)
	}
}

func TestCuratorialShiftGuardsZeroDenominator(t *testing.T) {
	approx(t, "shift", curatorialShift(5, 0), 5)
	approx(t, "shift", curatorialShift(6, 3), 2)
}

func TestDimensionScores(t *testing.T) {
	answers := map[string]models.Answer{}
	fillItems(answers, 7, "CAT1", "CAT2", "CAT3", "CAT4", "CAT5")
	fillItems(answers, 2, "CAT16", "CAT17", "CAT18", "CAT19")

	d := DimensionScores(answers)
	if len(d) != 5 {
		t.Fatalf("expected 5 dimensions, got %d", len(d))
	}
	approx(t, "Strategic", d["Strategic"], 7)
	approx(t, "Aesthetic", d["Aesthetic"], 2)
	// Unanswered dimensions sit at the neutral midpoint.
	approx(t, "Cultural", d["Cultural"], 4)
	approx(t, "Brand", d["Brand"], 4)
	approx(t, "Stakeholder", d["Stakeholder"], 4)
}

func TestScoreAcceptsTextNumbers(t *testing.T) {
	answers := map[string]models.Answer{
		"CAT1": models.TextAnswer("6"),
		"CAT2": models.TextAnswer("not a number"),
	}
	r := Score(answers)
	// The unparsable item is skipped, not defaulted, for prefix averages.
	approx(t, "TrustScore", r.TrustScore, 6)
}
