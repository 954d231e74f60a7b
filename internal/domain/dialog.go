package domain

import "fmt"

// DialogAction is the current step of the conversation as exchanged by
// GetSession and PutSession.
type DialogAction struct {
	Type             DialogActionType  `json:"type"`
	FulfillmentState FulfillmentState  `json:"fulfillmentState,omitempty"`
	IntentName       string            `json:"intentName,omitempty"`
	SlotToElicit     string            `json:"slotToElicit,omitempty"`
	Slots            map[string]string `json:"slots"`
	Message          string            `json:"message,omitempty"`
	MessageFormat    MessageFormat     `json:"messageFormat,omitempty"`
}

// NewDialogAction builds the wire action for a dialog state. Terminal and
// fulfillment states collapse into Close with the matching fulfillment state.
func NewDialogAction(state DialogState, intentName, slotToElicit string, slots map[string]string) DialogAction {
	a := DialogAction{IntentName: intentName, SlotToElicit: slotToElicit, Slots: slots}
	switch state {
	case DialogStateElicitIntent:
		a.Type = DialogActionElicitIntent
	case DialogStateConfirmIntent:
		a.Type = DialogActionConfirmIntent
	case DialogStateElicitSlot:
		a.Type = DialogActionElicitSlot
	case DialogStateFulfilled:
		a.Type, a.FulfillmentState = DialogActionClose, FulfillmentFulfilled
	case DialogStateFailed:
		a.Type, a.FulfillmentState = DialogActionClose, FulfillmentFailed
	case DialogStateReadyForFulfillment:
		a.Type, a.FulfillmentState = DialogActionClose, FulfillmentReadyForFulfillment
	}
	return a
}

// State maps the action back to its dialog state. Delegate actions and Close
// actions without a fulfillment state have none.
func (a DialogAction) State() (DialogState, bool) {
	switch a.Type {
	case DialogActionElicitIntent:
		return DialogStateElicitIntent, true
	case DialogActionConfirmIntent:
		return DialogStateConfirmIntent, true
	case DialogActionElicitSlot:
		return DialogStateElicitSlot, true
	case DialogActionClose:
		switch a.FulfillmentState {
		case FulfillmentFulfilled:
			return DialogStateFulfilled, true
		case FulfillmentFailed:
			return DialogStateFailed, true
		case FulfillmentReadyForFulfillment:
			return DialogStateReadyForFulfillment, true
		}
	}
	return "", false
}

// Validate enforces the field-presence invariants of a dialog action:
// slotToElicit is set exactly when eliciting a slot, and an intent is named
// in every state except ElicitIntent.
func (a DialogAction) Validate() error {
	if a.Type == "" {
		return invalid("dialogAction.type", "required")
	}
	if _, err := ParseDialogActionType(string(a.Type)); err != nil {
		return err
	}
	if err := validateMessage("dialogAction.message", a.Message); err != nil {
		return err
	}
	if a.Type == DialogActionDelegate {
		if a.SlotToElicit != "" {
			return invalid("dialogAction.slotToElicit", "not allowed for %s", a.Type)
		}
		return nil
	}
	state, ok := a.State()
	if !ok {
		return invalid("dialogAction.fulfillmentState", "required for %s", a.Type)
	}
	if a.Type != DialogActionClose && a.FulfillmentState != "" {
		return invalid("dialogAction.fulfillmentState", "only allowed for %s", DialogActionClose)
	}
	if state == DialogStateElicitSlot {
		if a.SlotToElicit == "" {
			return invalid("dialogAction.slotToElicit", "required for %s", state)
		}
		if a.Slots[a.SlotToElicit] != "" {
			return invalid("dialogAction.slotToElicit", "slot %q already has a value", a.SlotToElicit)
		}
	} else if a.SlotToElicit != "" {
		return invalid("dialogAction.slotToElicit", "not allowed for %s", state)
	}
	if state != DialogStateElicitIntent && a.IntentName == "" {
		return invalid("dialogAction.intentName", "required for %s", state)
	}
	return nil
}

func (a DialogAction) String() string {
	state, ok := a.State()
	if !ok {
		return fmt.Sprintf("%s(%s)", a.Type, a.IntentName)
	}
	if state == DialogStateElicitSlot {
		return fmt.Sprintf("%s(%s.%s)", state, a.IntentName, a.SlotToElicit)
	}
	return fmt.Sprintf("%s(%s)", state, a.IntentName)
}
