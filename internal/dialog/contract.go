// Package dialog drives one intent through the Lex dialog states: eliciting
// the intent, eliciting its slots, confirming it and handing it off for
// fulfillment.
package dialog

import (
	"fmt"

	"lex-dialog/internal/domain"
)

// FallbackIntent names the intent reported when a turn fails before any
// intent was recognized.
const FallbackIntent = "AMAZON.FallbackIntent"

var startTargets = []domain.DialogState{
	domain.DialogStateElicitIntent,
	domain.DialogStateElicitSlot,
	domain.DialogStateConfirmIntent,
	domain.DialogStateReadyForFulfillment,
	domain.DialogStateFailed,
}

// transitions is keyed by the state the session is in. The empty state is a
// session without a dialog action yet.
var transitions = map[domain.DialogState][]domain.DialogState{
	"": startTargets,

	domain.DialogStateElicitSlot: {
		domain.DialogStateElicitSlot,
		domain.DialogStateConfirmIntent,
		domain.DialogStateReadyForFulfillment,
		domain.DialogStateFailed,
	},
	domain.DialogStateConfirmIntent: {
		domain.DialogStateConfirmIntent,
		domain.DialogStateReadyForFulfillment,
		domain.DialogStateElicitIntent,
		domain.DialogStateElicitSlot,
		domain.DialogStateFailed,
	},
	domain.DialogStateElicitIntent:        startTargets,
	domain.DialogStateReadyForFulfillment: append([]domain.DialogState{domain.DialogStateFulfilled}, startTargets...),
	domain.DialogStateFulfilled:           startTargets,
	domain.DialogStateFailed:              startTargets,
}

// CanTransition reports whether a dialog may move from one state to another.
// Terminal and ready states only lead to a new intent cycle, except that
// ReadyForFulfillment also resolves to Fulfilled or Failed.
func CanTransition(from, to domain.DialogState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError reports a step the state machine does not allow.
type TransitionError struct {
	From, To domain.DialogState
}

func (e *TransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "(new)"
	}
	return fmt.Sprintf("dialog: transition %s -> %s not allowed", from, e.To)
}

// SlotShrinkError reports a slot value that disappeared within one intent.
type SlotShrinkError struct {
	Slot string
}

func (e *SlotShrinkError) Error() string {
	return fmt.Sprintf("dialog: slot %q lost its value", e.Slot)
}

// MergeSlots returns the union of prev and next. A value in next replaces the
// one in prev only when it is non-empty.
func MergeSlots(prev, next map[string]string) map[string]string {
	out := domain.CopyMap(prev)
	for k, v := range next {
		if v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(next))
		}
		out[k] = v
	}
	return out
}

// CheckSlotUnion returns a *SlotShrinkError when a slot set in prev has no
// value in next.
func CheckSlotUnion(prev, next map[string]string) error {
	for k, v := range prev {
		if v != "" && next[k] == "" {
			return &SlotShrinkError{Slot: k}
		}
	}
	return nil
}

// Resolve closes a ReadyForFulfillment action with the fulfillment outcome.
func Resolve(a domain.DialogAction, fulfilled bool) (domain.DialogAction, error) {
	state, _ := a.State()
	if state != domain.DialogStateReadyForFulfillment {
		return domain.DialogAction{}, &TransitionError{From: state, To: domain.DialogStateFulfilled}
	}
	to := domain.DialogStateFailed
	if fulfilled {
		to = domain.DialogStateFulfilled
	}
	out := domain.NewDialogAction(to, a.IntentName, "", domain.CopyMap(a.Slots))
	out.Message, out.MessageFormat = a.Message, a.MessageFormat
	return out, nil
}
