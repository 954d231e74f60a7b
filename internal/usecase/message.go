package usecase

import (
	"regexp"
	"strings"

	"lex-dialog/internal/catalog"
	"lex-dialog/internal/dialog"
	"lex-dialog/internal/domain"
)

var slotReference = regexp.MustCompile(`\{([A-Za-z_]+)\}`)

// render substitutes {Slot} references with slot values. Unknown or empty
// slots are left as written.
func render(template string, slots map[string]string) string {
	if template == "" || len(slots) == 0 {
		return strings.TrimSpace(template)
	}
	out := slotReference.ReplaceAllStringFunc(template, func(ref string) string {
		if v := slots[ref[1:len(ref)-1]]; v != "" {
			return v
		}
		return ref
	})
	return strings.TrimSpace(out)
}

// reply is the message and card that accompany a dialog action.
type reply struct {
	message string
	card    *domain.ResponseCard
}

// replyFor picks the bot's message for the action. previous is the action of
// the turn before, which supplies the rejection statement after a denial.
func replyFor(bot *catalog.Bot, a domain.DialogAction, reason dialog.Reason, previous domain.DialogAction) reply {
	state, _ := a.State()
	intent, _ := bot.Intent(a.IntentName)

	switch state {
	case domain.DialogStateElicitSlot:
		if intent == nil {
			return reply{}
		}
		slot, ok := intent.Slot(a.SlotToElicit)
		if !ok {
			return reply{}
		}
		return reply{message: render(slot.Prompt, a.Slots), card: slot.Card()}
	case domain.DialogStateConfirmIntent:
		if intent == nil {
			return reply{}
		}
		return reply{message: render(intent.ConfirmationPrompt, a.Slots)}
	case domain.DialogStateElicitIntent:
		if reason == dialog.ReasonDenied {
			if prev, ok := bot.Intent(previous.IntentName); ok && prev.RejectionStatement != "" {
				return reply{message: render(prev.RejectionStatement, previous.Slots)}
			}
		}
		return reply{message: bot.ClarificationPrompt}
	case domain.DialogStateFailed:
		if reason == dialog.ReasonDenied && intent != nil && intent.RejectionStatement != "" {
			return reply{message: render(intent.RejectionStatement, a.Slots)}
		}
		return reply{message: bot.AbortStatement}
	case domain.DialogStateFulfilled:
		if intent == nil {
			return reply{}
		}
		return reply{message: render(intent.ConclusionStatement, a.Slots)}
	}
	return reply{}
}

// withMessage attaches a plain-text message to the action.
func withMessage(a domain.DialogAction, msg string) domain.DialogAction {
	a.Message = msg
	a.MessageFormat = ""
	if msg != "" {
		a.MessageFormat = domain.MessageFormatPlainText
	}
	return a
}
