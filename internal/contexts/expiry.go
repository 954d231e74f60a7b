// Package contexts decides which active contexts survive into the next turn.
//
// A context lives for timeToLiveInSeconds of wall-clock time or turnsToLive
// conversation turns since it was last set or refreshed, whichever runs out
// first. Survivors keep their insertion order.
package contexts

import (
	"time"

	"lex-dialog/internal/domain"
)

// Track converts client-supplied contexts into tracked contexts with fresh
// counters. A nil input yields nil.
func Track(list []domain.ActiveContext, now time.Time) []domain.TrackedContext {
	if list == nil {
		return nil
	}
	out := make([]domain.TrackedContext, 0, len(list))
	for _, c := range list {
		out = append(out, fresh(c, now))
	}
	return out
}

// Live drops contexts whose wall-clock lifetime has elapsed. Turn counters are
// not touched.
func Live(now time.Time, tracked []domain.TrackedContext) []domain.TrackedContext {
	var out []domain.TrackedContext
	for _, c := range tracked {
		if !timeExpired(c, now) {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the set of context names in tracked.
func Names(tracked []domain.TrackedContext) map[string]bool {
	out := make(map[string]bool, len(tracked))
	for _, c := range tracked {
		out[c.Name] = true
	}
	return out
}

// Set inserts ctx, or refreshes the existing context with the same name in
// place with the new time to live and parameters.
func Set(tracked []domain.TrackedContext, ctx domain.ActiveContext, now time.Time) []domain.TrackedContext {
	for i, c := range tracked {
		if c.Name == ctx.Name {
			out := append([]domain.TrackedContext(nil), tracked...)
			out[i] = fresh(ctx, now)
			return out
		}
	}
	return append(append([]domain.TrackedContext(nil), tracked...), fresh(ctx, now))
}

// Advance ends a turn. Contexts named in refreshed get both counters reset;
// every other context spends one turn. A context is dropped once its turns
// reach zero or its lifetime has elapsed. The names of dropped contexts are
// returned alongside the survivors.
func Advance(now time.Time, tracked []domain.TrackedContext, refreshed map[string]bool) ([]domain.TrackedContext, []string) {
	var (
		survivors []domain.TrackedContext
		expired   []string
	)
	for _, c := range tracked {
		if refreshed[c.Name] {
			survivors = append(survivors, fresh(c.ActiveContext, now))
			continue
		}
		c.RemainingTurns--
		if c.RemainingTurns <= 0 || timeExpired(c, now) {
			expired = append(expired, c.Name)
			continue
		}
		survivors = append(survivors, c)
	}
	return survivors, expired
}

func fresh(c domain.ActiveContext, now time.Time) domain.TrackedContext {
	return domain.TrackedContext{
		ActiveContext:  c,
		RefreshedAt:    now,
		RemainingTurns: c.TimeToLive.TurnsToLive,
	}
}

func timeExpired(c domain.TrackedContext, now time.Time) bool {
	return now.Sub(c.RefreshedAt) >= c.TimeToLive.Duration()
}
