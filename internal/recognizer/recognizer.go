// Package recognizer is a deterministic utterance matcher over a bot
// catalog. It scores intents by token overlap with their sample utterances and
// pulls enumerated slot values out of the text.
package recognizer

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"lex-dialog/internal/catalog"
	"lex-dialog/internal/domain"
	"lex-dialog/internal/ranking"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_]+)\}`)

var (
	affirmWords = map[string]bool{"yes": true, "yeah": true, "yep": true, "sure": true, "ok": true, "okay": true, "correct": true}
	denyWords   = map[string]bool{"no": true, "nope": true, "nah": true, "cancel": true}
)

type Result struct {
	// Candidates are ranked by score, best first. Each carries the slot
	// values found for that intent.
	Candidates   []domain.PredictedIntent
	Confirmation domain.ConfirmationStatus
}

// Recognize scores every intent against text. Intents with no overlap are
// left out.
func Recognize(intents []*catalog.Intent, text string) (Result, error) {
	tokens := Tokenize(text)
	var candidates []domain.PredictedIntent
	for _, in := range intents {
		slots, matched := extract(in, tokens)
		score := bestScore(in, tokens, matched)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, domain.PredictedIntent{
			IntentName:          in.Name,
			NluIntentConfidence: &domain.IntentConfidence{Score: score},
			Slots:               slots,
		})
	}
	ranked, err := ranking.Sort(candidates)
	if err != nil {
		return Result{}, err
	}
	return Result{Candidates: ranked, Confirmation: Affirmation(text)}, nil
}

// ExtractSlots returns the enumerated slot values of in found in text, keyed
// by slot name and resolved to their canonical value.
func ExtractSlots(in *catalog.Intent, text string) map[string]string {
	slots, _ := extract(in, Tokenize(text))
	return slots
}

// Affirmation classifies a yes/no answer. Mixed or absent answers are None.
func Affirmation(text string) domain.ConfirmationStatus {
	var yes, no bool
	for _, tok := range Tokenize(text) {
		yes = yes || affirmWords[tok]
		no = no || denyWords[tok]
	}
	switch {
	case yes && !no:
		return domain.ConfirmationConfirmed
	case no && !yes:
		return domain.ConfirmationDenied
	}
	return domain.ConfirmationNone
}

// Tokenize lowercases s and splits it on anything that is not a letter or a
// digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// extract finds the longest enumerated value or synonym of each slot in
// tokens. matched holds the tokens of each match by slot name.
func extract(in *catalog.Intent, tokens []string) (slots map[string]string, matched map[string][]string) {
	for i := range in.Slots {
		slot := &in.Slots[i]
		var (
			best      string
			bestWords []string
		)
		for _, v := range slot.Values {
			for _, phrase := range append([]string{v.Value}, v.Synonyms...) {
				words := Tokenize(phrase)
				if len(words) > len(bestWords) && containsRun(tokens, words) {
					best, bestWords = v.Value, words
				}
			}
		}
		if best == "" {
			continue
		}
		if slots == nil {
			slots = make(map[string]string)
			matched = make(map[string][]string)
		}
		slots[slot.Name] = best
		matched[slot.Name] = bestWords
	}
	return slots, matched
}

func bestScore(in *catalog.Intent, tokens []string, matched map[string][]string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	utterance := toSet(tokens)
	var best float64
	for _, sample := range in.SampleUtterances {
		words := Tokenize(placeholderPattern.ReplaceAllString(sample, " "))
		for _, m := range placeholderPattern.FindAllStringSubmatch(sample, -1) {
			words = append(words, matched[m[1]]...)
		}
		if s := jaccard(utterance, toSet(words)); s > best {
			best = s
		}
	}
	return math.Round(best*100) / 100
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	var inter int
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func toSet(words []string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

func containsRun(tokens, run []string) bool {
	if len(run) == 0 || len(run) > len(tokens) {
		return false
	}
	for i := 0; i+len(run) <= len(tokens); i++ {
		ok := true
		for j, w := range run {
			if tokens[i+j] != w {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
