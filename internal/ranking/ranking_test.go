package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"lex-dialog/internal/domain"
)

func scored(name string, score float64) domain.PredictedIntent {
	return domain.PredictedIntent{IntentName: name, NluIntentConfidence: &domain.IntentConfidence{Score: score}}
}

func names(list []domain.PredictedIntent) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.IntentName)
	}
	return out
}

func TestSort_DescendingAndStable(t *testing.T) {
	in := []domain.PredictedIntent{
		scored("A", 0.5),
		scored("B", 0.9),
		scored("C", 0.5),
		{IntentName: "Unscored"},
		scored("D", 0.9),
		scored("E", 0.1),
	}
	out, err := Sort(in)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "D", "A", "C", "E", "Unscored"}, names(out))
	require.Equal(t, "A", in[0].IntentName, "input must not be reordered")
}

func TestSort_Idempotent(t *testing.T) {
	in := []domain.PredictedIntent{scored("A", 0.3), scored("B", 0.3), scored("C", 0.8)}
	once, err := Sort(in)
	require.NoError(t, err)
	twice, err := Sort(once)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestSort_RejectsOutOfRangeScores(t *testing.T) {
	for _, bad := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1)} {
		_, err := Sort([]domain.PredictedIntent{scored("A", 0.5), scored("Bad", bad)})
		var rangeErr *ScoreRangeError
		require.ErrorAs(t, err, &rangeErr)
		require.Equal(t, "Bad", rangeErr.IntentName)
	}
}

func TestSort_AcceptsBoundaryScores(t *testing.T) {
	out, err := Sort([]domain.PredictedIntent{scored("Zero", 0), scored("One", 1)})
	require.NoError(t, err)
	require.Equal(t, []string{"One", "Zero"}, names(out))
}

func TestAlternatives(t *testing.T) {
	sorted := []domain.PredictedIntent{
		scored("A", 0.9), scored("B", 0.8), scored("C", 0.7),
		scored("D", 0.6), scored("E", 0.5), scored("F", 0.4),
	}
	require.Equal(t, []string{"B", "C", "D", "E"}, names(Alternatives(sorted, "A", 0)))
	require.Equal(t, []string{"A", "B"}, names(Alternatives(sorted, "C", 2)))

	top, ok := Top(sorted)
	require.True(t, ok)
	require.Equal(t, "A", top.IntentName)
	_, ok = Top(nil)
	require.False(t, ok)
}
