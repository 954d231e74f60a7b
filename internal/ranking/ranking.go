// Package ranking orders predicted intents by NLU confidence.
package ranking

import (
	"fmt"
	"math"
	"sort"

	"lex-dialog/internal/domain"
)

// MaxAlternatives is the number of alternative intents reported next to the
// chosen one.
const MaxAlternatives = 4

// ScoreRangeError reports a confidence score outside [0.0, 1.0]. Scores are
// never clamped.
type ScoreRangeError struct {
	IntentName string
	Score      float64
}

func (e *ScoreRangeError) Error() string {
	return fmt.Sprintf("ranking: intent %q has score %v outside [0,1]", e.IntentName, e.Score)
}

// Validate checks every score in list.
func Validate(list []domain.PredictedIntent) error {
	for _, p := range list {
		score, ok := p.Score()
		if !ok {
			continue
		}
		if math.IsNaN(score) || score < 0 || score > 1 {
			return &ScoreRangeError{IntentName: p.IntentName, Score: score}
		}
	}
	return nil
}

// Sort returns a copy of list ordered by score descending. Equal scores keep
// their original relative order; intents without a score go last.
func Sort(list []domain.PredictedIntent) ([]domain.PredictedIntent, error) {
	if err := Validate(list); err != nil {
		return nil, err
	}
	out := append([]domain.PredictedIntent(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		si, oki := out[i].Score()
		sj, okj := out[j].Score()
		if oki != okj {
			return oki
		}
		return si > sj
	})
	return out, nil
}

// Top returns the first entry of a sorted list.
func Top(sorted []domain.PredictedIntent) (domain.PredictedIntent, bool) {
	if len(sorted) == 0 {
		return domain.PredictedIntent{}, false
	}
	return sorted[0], true
}

// Alternatives returns up to limit entries of sorted, skipping chosen.
func Alternatives(sorted []domain.PredictedIntent, chosen string, limit int) []domain.PredictedIntent {
	if limit <= 0 {
		limit = MaxAlternatives
	}
	var out []domain.PredictedIntent
	for _, p := range sorted {
		if p.IntentName == chosen {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}
