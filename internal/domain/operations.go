package domain

import "strings"

// Content types accepted and produced for text conversations.
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// ReservedAttributePrefix marks request attributes interpreted by the runtime.
const ReservedAttributePrefix = "x-amz-lex:"

type PostTextRequest struct {
	Key               SessionKey        `json:"-"`
	SessionAttributes map[string]string `json:"sessionAttributes,omitempty"`
	RequestAttributes map[string]string `json:"requestAttributes,omitempty"`
	InputText         string            `json:"inputText"`
	// ActiveContexts replaces the session's contexts when non-nil.
	ActiveContexts []ActiveContext `json:"activeContexts,omitempty"`
}

func (r PostTextRequest) Validate() error {
	if err := r.Key.Validate(); err != nil {
		return err
	}
	if err := checkLength("inputText", r.InputText, 1, MaxInputTextLength); err != nil {
		return err
	}
	return ValidateActiveContexts(r.ActiveContexts)
}

type PostTextResult struct {
	IntentName          string             `json:"intentName,omitempty"`
	NluIntentConfidence *IntentConfidence  `json:"nluIntentConfidence,omitempty"`
	AlternativeIntents  []PredictedIntent  `json:"alternativeIntents,omitempty"`
	Slots               map[string]string  `json:"slots,omitempty"`
	SessionAttributes   map[string]string  `json:"sessionAttributes,omitempty"`
	Message             string             `json:"message,omitempty"`
	SentimentResponse   *SentimentResponse `json:"sentimentResponse,omitempty"`
	MessageFormat       MessageFormat      `json:"messageFormat,omitempty"`
	DialogState         DialogState        `json:"dialogState,omitempty"`
	SlotToElicit        string             `json:"slotToElicit,omitempty"`
	ResponseCard        *ResponseCard      `json:"responseCard,omitempty"`
	SessionID           string             `json:"sessionId,omitempty"`
	BotVersion          string             `json:"botVersion,omitempty"`
	ActiveContexts      []ActiveContext    `json:"activeContexts,omitempty"`
}

// Action returns the dialog action described by the result.
func (r PostTextResult) Action() DialogAction {
	return NewDialogAction(r.DialogState, r.IntentName, r.SlotToElicit, r.Slots)
}

type PostContentRequest struct {
	Key               SessionKey        `json:"-"`
	ContentType       string            `json:"-"`
	Accept            string            `json:"-"`
	InputText         string            `json:"-"`
	SessionAttributes map[string]string `json:"-"`
	RequestAttributes map[string]string `json:"-"`
	ActiveContexts    []ActiveContext   `json:"-"`
}

func (r PostContentRequest) Validate() error {
	if err := r.Key.Validate(); err != nil {
		return err
	}
	if r.ContentType == "" {
		return invalid("contentType", "required")
	}
	return ValidateActiveContexts(r.ActiveContexts)
}

// IsText reports whether the content type is a text type.
func IsText(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/plain")
}

type PostContentResult struct {
	ContentType         string             `json:"contentType,omitempty"`
	IntentName          string             `json:"intentName,omitempty"`
	NluIntentConfidence *IntentConfidence  `json:"nluIntentConfidence,omitempty"`
	AlternativeIntents  []PredictedIntent  `json:"alternativeIntents,omitempty"`
	Slots               map[string]string  `json:"slots,omitempty"`
	SessionAttributes   map[string]string  `json:"sessionAttributes,omitempty"`
	SentimentResponse   *SentimentResponse `json:"sentimentResponse,omitempty"`
	Message             string             `json:"message,omitempty"`
	EncodedMessage      string             `json:"encodedMessage,omitempty"`
	MessageFormat       MessageFormat      `json:"messageFormat,omitempty"`
	DialogState         DialogState        `json:"dialogState,omitempty"`
	SlotToElicit        string             `json:"slotToElicit,omitempty"`
	InputTranscript     string             `json:"inputTranscript,omitempty"`
	BotVersion          string             `json:"botVersion,omitempty"`
	SessionID           string             `json:"sessionId,omitempty"`
	ActiveContexts      []ActiveContext    `json:"activeContexts,omitempty"`
	Body                []byte             `json:"-"`
}

type GetSessionRequest struct {
	Key                   SessionKey `json:"-"`
	CheckpointLabelFilter string     `json:"-"`
}

func (r GetSessionRequest) Validate() error {
	if err := r.Key.Validate(); err != nil {
		return err
	}
	if r.CheckpointLabelFilter != "" {
		return validateCheckpointLabel("checkpointLabelFilter", r.CheckpointLabelFilter)
	}
	return nil
}

type GetSessionResult struct {
	RecentIntentSummaryView []IntentSummary   `json:"recentIntentSummaryView"`
	SessionAttributes       map[string]string `json:"sessionAttributes"`
	SessionID               string            `json:"sessionId,omitempty"`
	DialogAction            *DialogAction     `json:"dialogAction,omitempty"`
	ActiveContexts          []ActiveContext   `json:"activeContexts"`
}

type PutSessionRequest struct {
	Key                     SessionKey        `json:"-"`
	Accept                  string            `json:"-"`
	SessionAttributes       map[string]string `json:"sessionAttributes,omitempty"`
	DialogAction            *DialogAction     `json:"dialogAction,omitempty"`
	RecentIntentSummaryView []IntentSummary   `json:"recentIntentSummaryView,omitempty"`
	ActiveContexts          []ActiveContext   `json:"activeContexts,omitempty"`
}

func (r PutSessionRequest) Validate() error {
	if err := r.Key.Validate(); err != nil {
		return err
	}
	if r.DialogAction != nil {
		if err := r.DialogAction.Validate(); err != nil {
			return err
		}
	}
	if err := validateSummaries(r.RecentIntentSummaryView); err != nil {
		return err
	}
	return ValidateActiveContexts(r.ActiveContexts)
}

type PutSessionResult struct {
	ContentType       string            `json:"contentType,omitempty"`
	IntentName        string            `json:"intentName,omitempty"`
	Slots             map[string]string `json:"slots,omitempty"`
	SessionAttributes map[string]string `json:"sessionAttributes,omitempty"`
	Message           string            `json:"message,omitempty"`
	EncodedMessage    string            `json:"encodedMessage,omitempty"`
	MessageFormat     MessageFormat     `json:"messageFormat,omitempty"`
	DialogState       DialogState       `json:"dialogState,omitempty"`
	SlotToElicit      string            `json:"slotToElicit,omitempty"`
	SessionID         string            `json:"sessionId,omitempty"`
	ActiveContexts    []ActiveContext   `json:"activeContexts,omitempty"`
}

type DeleteSessionRequest struct {
	Key SessionKey `json:"-"`
}

func (r DeleteSessionRequest) Validate() error {
	return r.Key.Validate()
}

type DeleteSessionResult struct {
	BotName   string `json:"botName,omitempty"`
	BotAlias  string `json:"botAlias,omitempty"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}
