package domain

// IntentConfidence is the NLU score of an intent, in [0.0, 1.0].
type IntentConfidence struct {
	Score float64 `json:"score"`
}

// PredictedIntent is one candidate intent for the user's utterance.
type PredictedIntent struct {
	IntentName          string            `json:"intentName,omitempty"`
	NluIntentConfidence *IntentConfidence `json:"nluIntentConfidence,omitempty"`
	Slots               map[string]string `json:"slots,omitempty"`
}

// Score returns the confidence score and whether one is present.
func (p PredictedIntent) Score() (float64, bool) {
	if p.NluIntentConfidence == nil {
		return 0, false
	}
	return p.NluIntentConfidence.Score, true
}

// IntentSummary records one intent of the session history.
type IntentSummary struct {
	IntentName         string             `json:"intentName,omitempty"`
	CheckpointLabel    string             `json:"checkpointLabel,omitempty"`
	Slots              map[string]string  `json:"slots"`
	ConfirmationStatus ConfirmationStatus `json:"confirmationStatus,omitempty"`
	DialogActionType   DialogActionType   `json:"dialogActionType"`
	FulfillmentState   FulfillmentState   `json:"fulfillmentState,omitempty"`
	SlotToElicit       string             `json:"slotToElicit,omitempty"`
}

func (s IntentSummary) Validate() error {
	if s.DialogActionType == "" {
		return invalid("intentSummary.dialogActionType", "required")
	}
	if s.CheckpointLabel != "" {
		if err := validateCheckpointLabel("intentSummary.checkpointLabel", s.CheckpointLabel); err != nil {
			return err
		}
	}
	return nil
}

func validateSummaries(list []IntentSummary) error {
	if len(list) > MaxRecentIntentSummaries {
		return invalid("recentIntentSummaryView", "%d entries exceed %d", len(list), MaxRecentIntentSummaries)
	}
	for _, s := range list {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SentimentResponse is passed through untouched when a bot reports sentiment.
type SentimentResponse struct {
	SentimentLabel string `json:"sentimentLabel,omitempty"`
	SentimentScore string `json:"sentimentScore,omitempty"`
}
