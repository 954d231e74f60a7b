package domain

import (
	"encoding/json"
	"fmt"
)

// DialogState is the conversation state reported on every turn.
type DialogState string

const (
	DialogStateElicitIntent        DialogState = "ElicitIntent"
	DialogStateConfirmIntent       DialogState = "ConfirmIntent"
	DialogStateElicitSlot          DialogState = "ElicitSlot"
	DialogStateFulfilled           DialogState = "Fulfilled"
	DialogStateReadyForFulfillment DialogState = "ReadyForFulfillment"
	DialogStateFailed              DialogState = "Failed"
)

var dialogStates = []DialogState{
	DialogStateElicitIntent,
	DialogStateConfirmIntent,
	DialogStateElicitSlot,
	DialogStateFulfilled,
	DialogStateReadyForFulfillment,
	DialogStateFailed,
}

// DialogStates returns every dialog state in declaration order.
func DialogStates() []DialogState {
	return append([]DialogState(nil), dialogStates...)
}

func ParseDialogState(s string) (DialogState, error) {
	return parseVariant("DialogState", s, dialogStates)
}

// Terminal reports whether the state ends the current intent's lifecycle.
func (s DialogState) Terminal() bool {
	return s == DialogStateFulfilled || s == DialogStateFailed
}

func (s DialogState) MarshalJSON() ([]byte, error) {
	return marshalVariant("DialogState", s, dialogStates)
}

func (s *DialogState) UnmarshalJSON(b []byte) error {
	return unmarshalVariant(b, s, ParseDialogState)
}

// DialogActionType is the wire-level dialog action type used by GetSession and
// PutSession. Close carries its outcome in FulfillmentState.
type DialogActionType string

const (
	DialogActionElicitIntent  DialogActionType = "ElicitIntent"
	DialogActionConfirmIntent DialogActionType = "ConfirmIntent"
	DialogActionElicitSlot    DialogActionType = "ElicitSlot"
	DialogActionClose         DialogActionType = "Close"
	DialogActionDelegate      DialogActionType = "Delegate"
)

var dialogActionTypes = []DialogActionType{
	DialogActionElicitIntent,
	DialogActionConfirmIntent,
	DialogActionElicitSlot,
	DialogActionClose,
	DialogActionDelegate,
}

func ParseDialogActionType(s string) (DialogActionType, error) {
	return parseVariant("DialogActionType", s, dialogActionTypes)
}

func (t DialogActionType) MarshalJSON() ([]byte, error) {
	return marshalVariant("DialogActionType", t, dialogActionTypes)
}

func (t *DialogActionType) UnmarshalJSON(b []byte) error {
	return unmarshalVariant(b, t, ParseDialogActionType)
}

type FulfillmentState string

const (
	FulfillmentFulfilled           FulfillmentState = "Fulfilled"
	FulfillmentFailed              FulfillmentState = "Failed"
	FulfillmentReadyForFulfillment FulfillmentState = "ReadyForFulfillment"
)

var fulfillmentStates = []FulfillmentState{
	FulfillmentFulfilled,
	FulfillmentFailed,
	FulfillmentReadyForFulfillment,
}

func ParseFulfillmentState(s string) (FulfillmentState, error) {
	return parseVariant("FulfillmentState", s, fulfillmentStates)
}

func (f FulfillmentState) MarshalJSON() ([]byte, error) {
	return marshalVariant("FulfillmentState", f, fulfillmentStates)
}

func (f *FulfillmentState) UnmarshalJSON(b []byte) error {
	return unmarshalVariant(b, f, ParseFulfillmentState)
}

type ConfirmationStatus string

const (
	ConfirmationNone      ConfirmationStatus = "None"
	ConfirmationConfirmed ConfirmationStatus = "Confirmed"
	ConfirmationDenied    ConfirmationStatus = "Denied"
)

var confirmationStatuses = []ConfirmationStatus{
	ConfirmationNone,
	ConfirmationConfirmed,
	ConfirmationDenied,
}

func ParseConfirmationStatus(s string) (ConfirmationStatus, error) {
	return parseVariant("ConfirmationStatus", s, confirmationStatuses)
}

func (c ConfirmationStatus) MarshalJSON() ([]byte, error) {
	return marshalVariant("ConfirmationStatus", c, confirmationStatuses)
}

func (c *ConfirmationStatus) UnmarshalJSON(b []byte) error {
	return unmarshalVariant(b, c, ParseConfirmationStatus)
}

type MessageFormat string

const (
	MessageFormatPlainText     MessageFormat = "PlainText"
	MessageFormatCustomPayload MessageFormat = "CustomPayload"
	MessageFormatSSML          MessageFormat = "SSML"
	MessageFormatComposite     MessageFormat = "Composite"
)

var messageFormats = []MessageFormat{
	MessageFormatPlainText,
	MessageFormatCustomPayload,
	MessageFormatSSML,
	MessageFormatComposite,
}

func ParseMessageFormat(s string) (MessageFormat, error) {
	return parseVariant("MessageFormat", s, messageFormats)
}

func (m MessageFormat) MarshalJSON() ([]byte, error) {
	return marshalVariant("MessageFormat", m, messageFormats)
}

func (m *MessageFormat) UnmarshalJSON(b []byte) error {
	return unmarshalVariant(b, m, ParseMessageFormat)
}

func parseVariant[T ~string](typeName, s string, allowed []T) (T, error) {
	for _, v := range allowed {
		if string(v) == s {
			return v, nil
		}
	}
	var zero T
	return zero, &UnknownVariantError{Type: typeName, Value: s}
}

// marshalVariant encodes the zero value as "" so optional enum fields can use
// omitempty semantics on the surrounding struct. Unknown values are rejected.
func marshalVariant[T ~string](typeName string, v T, allowed []T) ([]byte, error) {
	if v != "" {
		if _, err := parseVariant(typeName, string(v), allowed); err != nil {
			return nil, err
		}
	}
	return json.Marshal(string(v))
}

func unmarshalVariant[T ~string](b []byte, dst *T, parse func(string) (T, error)) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("domain: decode enum: %w", err)
	}
	if raw == "" {
		*dst = ""
		return nil
	}
	v, err := parse(raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
