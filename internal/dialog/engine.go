package dialog

import (
	"fmt"
	"strings"

	"lex-dialog/internal/catalog"
	"lex-dialog/internal/domain"
	"lex-dialog/internal/ranking"
)

// Reason explains outcomes that did not simply follow the slot-filling order.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonNoMatch     Reason = "no_match"
	ReasonMaxAttempts Reason = "max_attempts"
	ReasonDenied      Reason = "denied"
)

// TurnInput is what the engine knows about one user turn.
type TurnInput struct {
	// Current is the session's dialog action before the turn. The zero value
	// starts a new conversation.
	Current domain.DialogAction
	// Candidates are the eligible intents ranked best first.
	Candidates []domain.PredictedIntent
	// Extracted holds slot values found in the utterance for the current
	// intent.
	Extracted map[string]string
	// Affirmation is the yes/no reading of the utterance.
	Affirmation domain.ConfirmationStatus
	Utterance   string
	Attempts    int
}

type Outcome struct {
	Action domain.DialogAction
	// Intent is nil while no intent is selected.
	Intent       *catalog.Intent
	Confidence   *domain.IntentConfidence
	Confirmation domain.ConfirmationStatus
	Attempts     int
	// NewCycle is set when the turn selected an intent afresh.
	NewCycle bool
	Reason   Reason
}

// State returns the dialog state of the outcome.
func (o Outcome) State() domain.DialogState {
	s, _ := o.Action.State()
	return s
}

type Engine struct {
	policy Policy
}

func NewEngine(p Policy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: p}, nil
}

func (e *Engine) Policy() Policy { return e.policy }

// Next computes the dialog state that follows one user turn.
func (e *Engine) Next(bot *catalog.Bot, in TurnInput) (Outcome, error) {
	if bot == nil {
		return Outcome{}, fmt.Errorf("dialog: bot must not be nil")
	}
	from, _ := in.Current.State()

	var (
		out Outcome
		err error
	)
	switch from {
	case domain.DialogStateElicitSlot:
		out, err = e.continueSlot(bot, in)
	case domain.DialogStateConfirmIntent:
		out, err = e.continueConfirm(bot, in)
	case domain.DialogStateElicitIntent:
		out, err = e.start(bot, in, in.Attempts)
	default:
		out, err = e.start(bot, in, 0)
	}
	if err != nil {
		return Outcome{}, err
	}
	return out, check(from, out)
}

// Delegate picks the next step for an intent and slots set by the client,
// as if the slots had just been collected.
func (e *Engine) Delegate(bot *catalog.Bot, intentName string, slots map[string]string, confirmation domain.ConfirmationStatus) (Outcome, error) {
	if intentName == "" {
		out := Outcome{Action: domain.NewDialogAction(domain.DialogStateElicitIntent, "", "", nil)}
		return out, check("", out)
	}
	intent, ok := bot.Intent(intentName)
	if !ok {
		return Outcome{}, fmt.Errorf("dialog: bot %s has no intent %s", bot.Name, intentName)
	}
	out := e.fill(intent, domain.CopyMap(slots), confirmation)
	return out, check("", out)
}

func check(from domain.DialogState, out Outcome) error {
	if err := out.Action.Validate(); err != nil {
		return fmt.Errorf("dialog: %w", err)
	}
	if to := out.State(); !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

func (e *Engine) threshold(bot *catalog.Bot) float64 {
	if bot.ConfidenceThreshold > 0 {
		return bot.ConfidenceThreshold
	}
	return e.policy.AcceptanceThreshold
}

// confident returns the top candidate when it clears the threshold.
func (e *Engine) confident(bot *catalog.Bot, candidates []domain.PredictedIntent) (domain.PredictedIntent, bool) {
	top, ok := ranking.Top(candidates)
	if !ok {
		return domain.PredictedIntent{}, false
	}
	score, scored := top.Score()
	if !scored || score < e.threshold(bot) {
		return domain.PredictedIntent{}, false
	}
	return top, true
}

func (e *Engine) start(bot *catalog.Bot, in TurnInput, attempts int) (Outcome, error) {
	top, ok := e.confident(bot, in.Candidates)
	if !ok {
		attempts++
		if attempts >= e.policy.MaxAttempts {
			return Outcome{
				Action:   domain.NewDialogAction(domain.DialogStateFailed, FallbackIntent, "", nil),
				Attempts: attempts,
				Reason:   ReasonNoMatch,
			}, nil
		}
		return Outcome{
			Action:   domain.NewDialogAction(domain.DialogStateElicitIntent, "", "", nil),
			Attempts: attempts,
			Reason:   ReasonNoMatch,
		}, nil
	}
	intent, ok := bot.Intent(top.IntentName)
	if !ok {
		return Outcome{}, fmt.Errorf("dialog: bot %s has no intent %s", bot.Name, top.IntentName)
	}
	out := e.fill(intent, MergeSlots(nil, top.Slots), domain.ConfirmationNone)
	out.Confidence = top.NluIntentConfidence
	out.NewCycle = true
	return out, nil
}

// fill applies the slot-filling order: the first missing required slot, then
// confirmation, then fulfillment.
func (e *Engine) fill(intent *catalog.Intent, slots map[string]string, confirmation domain.ConfirmationStatus) Outcome {
	out := Outcome{Intent: intent, Confirmation: confirmation}
	for _, s := range intent.Slots {
		if s.Required && slots[s.Name] == "" {
			out.Action = domain.NewDialogAction(domain.DialogStateElicitSlot, intent.Name, s.Name, slots)
			return out
		}
	}
	if intent.NeedsConfirmation() && confirmation != domain.ConfirmationConfirmed {
		out.Action = domain.NewDialogAction(domain.DialogStateConfirmIntent, intent.Name, "", slots)
		return out
	}
	out.Action = domain.NewDialogAction(domain.DialogStateReadyForFulfillment, intent.Name, "", slots)
	return out
}

func (e *Engine) currentIntent(bot *catalog.Bot, a domain.DialogAction) (*catalog.Intent, error) {
	intent, ok := bot.Intent(a.IntentName)
	if !ok {
		return nil, fmt.Errorf("dialog: bot %s has no intent %s", bot.Name, a.IntentName)
	}
	return intent, nil
}

func (e *Engine) continueSlot(bot *catalog.Bot, in TurnInput) (Outcome, error) {
	intent, err := e.currentIntent(bot, in.Current)
	if err != nil {
		return Outcome{}, err
	}
	target := in.Current.SlotToElicit
	slots := MergeSlots(in.Current.Slots, in.Extracted)
	if s, ok := intent.Slot(target); ok && !s.Enumerated() && slots[target] == "" {
		if v := strings.TrimSpace(in.Utterance); v != "" {
			slots = MergeSlots(slots, map[string]string{target: v})
		}
	}
	if err := CheckSlotUnion(in.Current.Slots, slots); err != nil {
		return Outcome{}, err
	}

	out := e.fill(intent, slots, domain.ConfirmationNone)
	if out.Action.SlotToElicit != target {
		return out, nil
	}
	out.Attempts = in.Attempts + 1
	if out.Attempts >= e.policy.MaxAttempts {
		out.Action = domain.NewDialogAction(domain.DialogStateFailed, intent.Name, "", slots)
		out.Reason = ReasonMaxAttempts
	}
	return out, nil
}

func (e *Engine) continueConfirm(bot *catalog.Bot, in TurnInput) (Outcome, error) {
	intent, err := e.currentIntent(bot, in.Current)
	if err != nil {
		return Outcome{}, err
	}
	slots := domain.CopyMap(in.Current.Slots)

	switch in.Affirmation {
	case domain.ConfirmationConfirmed:
		return e.fill(intent, slots, domain.ConfirmationConfirmed), nil
	case domain.ConfirmationDenied:
		if e.policy.OnDeny == DenyFail {
			return Outcome{
				Action:       domain.NewDialogAction(domain.DialogStateFailed, intent.Name, "", slots),
				Intent:       intent,
				Confirmation: domain.ConfirmationDenied,
				Reason:       ReasonDenied,
			}, nil
		}
		return Outcome{
			Action:       domain.NewDialogAction(domain.DialogStateElicitIntent, "", "", nil),
			Confirmation: domain.ConfirmationDenied,
			Reason:       ReasonDenied,
		}, nil
	}

	if top, ok := e.confident(bot, in.Candidates); ok && top.IntentName != intent.Name {
		return e.start(bot, in, 0)
	}
	if corrected := MergeSlots(slots, in.Extracted); changed(slots, corrected) {
		return e.fill(intent, corrected, domain.ConfirmationNone), nil
	}

	attempts := in.Attempts + 1
	if attempts >= e.policy.MaxAttempts {
		return Outcome{
			Action:   domain.NewDialogAction(domain.DialogStateFailed, intent.Name, "", slots),
			Intent:   intent,
			Attempts: attempts,
			Reason:   ReasonMaxAttempts,
		}, nil
	}
	out := e.fill(intent, slots, domain.ConfirmationNone)
	out.Attempts = attempts
	return out, nil
}

func changed(prev, next map[string]string) bool {
	if len(prev) != len(next) {
		return true
	}
	for k, v := range next {
		if prev[k] != v {
			return true
		}
	}
	return false
}
