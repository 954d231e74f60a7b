package domain

import "time"

// SessionKey identifies a conversation: one user talking to one bot alias.
type SessionKey struct {
	BotName  string
	BotAlias string
	UserID   string
}

func (k SessionKey) String() string {
	return k.BotName + "#" + k.BotAlias + "#" + k.UserID
}

// Session is the server-side conversation state for a SessionKey.
type Session struct {
	Key                     SessionKey        `json:"-"`
	SessionID               string            `json:"sessionId"`
	SessionAttributes       map[string]string `json:"sessionAttributes,omitempty"`
	DialogAction            DialogAction      `json:"dialogAction"`
	ActiveContexts          []TrackedContext  `json:"activeContexts,omitempty"`
	RecentIntentSummaryView []IntentSummary   `json:"recentIntentSummaryView,omitempty"`
	ElicitAttempts          int               `json:"elicitAttempts,omitempty"`
	Turn                    int               `json:"turn"`
	CreatedAt               time.Time         `json:"createdAt"`
	UpdatedAt               time.Time         `json:"updatedAt"`
}

// PublicContexts returns the active contexts in wire form, in list order.
func (s *Session) PublicContexts() []ActiveContext {
	if len(s.ActiveContexts) == 0 {
		return nil
	}
	out := make([]ActiveContext, 0, len(s.ActiveContexts))
	for _, c := range s.ActiveContexts {
		out = append(out, c.Public())
	}
	return out
}

// PushSummary records the state of the current intent at the head of the
// history. The head entry is replaced while it still describes the same,
// unfinished intent; otherwise a new entry is prepended. The history keeps at
// most MaxRecentIntentSummaries entries.
func (s *Session) PushSummary(sum IntentSummary) {
	if sum.IntentName == "" {
		return
	}
	if len(s.RecentIntentSummaryView) > 0 {
		head := s.RecentIntentSummaryView[0]
		if head.IntentName == sum.IntentName && head.DialogActionType != DialogActionClose {
			if sum.CheckpointLabel == "" {
				sum.CheckpointLabel = head.CheckpointLabel
			}
			s.RecentIntentSummaryView[0] = sum
			return
		}
	}
	view := make([]IntentSummary, 0, MaxRecentIntentSummaries)
	view = append(view, sum)
	view = append(view, s.RecentIntentSummaryView...)
	if len(view) > MaxRecentIntentSummaries {
		view = view[:MaxRecentIntentSummaries]
	}
	s.RecentIntentSummaryView = view
}

// SummaryOf builds the intent summary for a dialog action.
func SummaryOf(a DialogAction, confirmation ConfirmationStatus) IntentSummary {
	return IntentSummary{
		IntentName:         a.IntentName,
		Slots:              CopyMap(a.Slots),
		ConfirmationStatus: confirmation,
		DialogActionType:   a.Type,
		FulfillmentState:   a.FulfillmentState,
		SlotToElicit:       a.SlotToElicit,
	}
}

// CopyMap returns a shallow copy of m, or nil when m is empty.
func CopyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
