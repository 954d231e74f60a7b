package domain

// InvocationFulfillment is the invocation source of a fulfillment code hook.
const InvocationFulfillment = "FulfillmentCodeHook"

// CodeHookEvent is posted to the fulfillment webhook when an intent is ready.
type CodeHookEvent struct {
	MessageVersion    string            `json:"messageVersion"`
	InvocationSource  string            `json:"invocationSource"`
	UserID            string            `json:"userId"`
	InputTranscript   string            `json:"inputTranscript"`
	SessionAttributes map[string]string `json:"sessionAttributes"`
	RequestAttributes map[string]string `json:"requestAttributes,omitempty"`
	Bot               CodeHookBot       `json:"bot"`
	OutputDialogMode  string            `json:"outputDialogMode"`
	CurrentIntent     CodeHookIntent    `json:"currentIntent"`
	ActiveContexts    []ActiveContext   `json:"activeContexts,omitempty"`
}

type CodeHookBot struct {
	Name    string `json:"name"`
	Alias   string `json:"alias"`
	Version string `json:"version"`
}

type CodeHookIntent struct {
	Name               string             `json:"name"`
	Slots              map[string]string  `json:"slots"`
	ConfirmationStatus ConfirmationStatus `json:"confirmationStatus"`
}

// CodeHookResponse is what the webhook answers. Only Close actions are
// accepted from a fulfillment hook.
type CodeHookResponse struct {
	SessionAttributes map[string]string `json:"sessionAttributes,omitempty"`
	DialogAction      CodeHookAction    `json:"dialogAction"`
}

type CodeHookAction struct {
	Type             DialogActionType `json:"type"`
	FulfillmentState FulfillmentState `json:"fulfillmentState"`
	Message          *CodeHookMessage `json:"message,omitempty"`
}

type CodeHookMessage struct {
	ContentType MessageFormat `json:"contentType"`
	Content     string        `json:"content"`
}

// Validate checks that the hook closed the intent with a final outcome.
func (r CodeHookResponse) Validate() error {
	if r.DialogAction.Type != DialogActionClose {
		return invalid("dialogAction.type", "must be %s, got %q", DialogActionClose, r.DialogAction.Type)
	}
	switch r.DialogAction.FulfillmentState {
	case FulfillmentFulfilled, FulfillmentFailed:
	default:
		return invalid("dialogAction.fulfillmentState", "must be %s or %s", FulfillmentFulfilled, FulfillmentFailed)
	}
	if m := r.DialogAction.Message; m != nil {
		return validateMessage("dialogAction.message.content", m.Content)
	}
	return nil
}
