// Package scoring computes the calibration archetype and dimension scores
// from a completed answer set. All functions are pure and total: any answer
// map, including an empty one, yields a result.
package scoring

import (
	"strconv"
	"strings"

	"github.com/ctr-research/SurveyPipe/internal/models"
)

const neutral = float64(models.ScaleNeutralMidpoint)

var (
	curatorItems  = []string{"ID5", "ID6", "ID7", "ID8", "ID9"}
	executorItems = []string{"ID1", "ID2", "ID3", "ID4"}
)

// dimensionItems maps each trust dimension to its scale items.
var dimensionItems = []struct {
	name string
	ids  []string
}{
	{"Strategic", []string{"CAT1", "CAT2", "CAT3", "CAT4", "CAT5"}},
	{"Cultural", []string{"CAT6", "CAT7", "CAT8", "CAT9", "CAT10"}},
	{"Brand", []string{"CAT11", "CAT12", "CAT13", "CAT14", "CAT15"}},
	{"Aesthetic", []string{"CAT16", "CAT17", "CAT18", "CAT19"}},
	{"Stakeholder", []string{"CAT20", "CAT21", "CAT22", "CAT23"}},
}

// Result bundles every derived score for the completion record.
type Result struct {
	Archetype       models.Archetype
	TrustScore      float64
	CuratorScore    float64
	ExecutorScore   float64
	CuratorialShift float64
	OrgReadiness    float64
	Dimensions      models.DimensionScores
}

// Score derives all aggregate scores from the answer set.
func Score(answers map[string]models.Answer) Result {
	trust := prefixAverage(answers, "CAT")
	curator := itemMean(answers, curatorItems)
	executor := itemMean(answers, executorItems)
	org := prefixAverage(answers, "OC")

	shift := curatorialShift(curator, executor)

	return Result{
		Archetype:       classify(trust, shift, executor, org),
		TrustScore:      trust,
		CuratorScore:    curator,
		ExecutorScore:   executor,
		CuratorialShift: shift,
		OrgReadiness:    org,
		Dimensions:      DimensionScores(answers),
	}
}

// DimensionScores computes the five trust dimension means. Missing or
// non-numeric items fall back to the neutral midpoint.
func DimensionScores(answers map[string]models.Answer) models.DimensionScores {
	out := make(models.DimensionScores, len(dimensionItems))
	for _, d := range dimensionItems {
		out[d.name] = itemMean(answers, d.ids)
	}
	return out
}

// classify applies the archetype decision chain in order. The first matching
// rule wins.
func classify(trust, shift, executor, org float64) models.Archetype {
	switch {
	case trust > 5 && shift > 1.2:
		return models.Archetype{
			Name:  "The Strategic Curator",
			Desc:  "You have successfully transitioned your value from execution to judgment, demonstrating high trust calibration.",
			Power: "Judgment Mastery",
		}
	case trust < 3 && executor > 5:
		return models.Archetype{
			Name:  "The Intuitive Maverick",
			Desc:  "You rely on deep-seated creative intuition and remain skeptical of algorithmic shortcuts.",
			Power: "Artisanal Rigor",
		}
	case org > 5:
		return models.Archetype{
			Name:  "The Systems Orchestrator",
			Desc:  "Your expertise lies in harmonizing human talent with technological infrastructure at scale.",
			Power: "Architectural Vision",
		}
	default:
		return models.Archetype{
			Name:  "The Cautious Pragmatist",
			Desc:  "You are navigating the early stages of AI integration with a balanced, risk-aware approach.",
			Power: "Balanced Perspective",
		}
	}
}

// curatorialShift is the curator/executor ratio with a guarded denominator.
func curatorialShift(curator, executor float64) float64 {
	if executor == 0 {
		return curator
	}
	return curator / executor
}

// prefixAverage averages every answered item whose id starts with prefix.
// An empty selection yields the neutral midpoint.
func prefixAverage(answers map[string]models.Answer, prefix string) float64 {
	var sum float64
	var n int
	for id, a := range answers {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		v, ok := numeric(a)
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return neutral
	}
	return sum / float64(n)
}

// itemMean averages a fixed item list, substituting the neutral midpoint for
// missing or non-numeric answers.
func itemMean(answers map[string]models.Answer, ids []string) float64 {
	var sum float64
	for _, id := range ids {
		v, ok := numeric(answers[id])
		if !ok {
			v = neutral
		}
		sum += v
	}
	return sum / float64(len(ids))
}

func numeric(a models.Answer) (float64, bool) {
	if a.Number != nil {
		return *a.Number, true
	}
	if a.Text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(a.Text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
