package lexruntime

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lexruntimeservice/types"

	"lex-dialog/internal/domain"
	"lex-dialog/internal/lexerr"
)

func toSDKContexts(list []domain.ActiveContext) []types.ActiveContext {
	if list == nil {
		return nil
	}
	out := make([]types.ActiveContext, 0, len(list))
	for _, c := range list {
		out = append(out, types.ActiveContext{
			Name:       aws.String(c.Name),
			Parameters: c.Parameters,
			TimeToLive: &types.ActiveContextTimeToLive{
				TimeToLiveInSeconds: aws.Int32(int32(c.TimeToLive.TimeToLiveInSeconds)),
				TurnsToLive:         aws.Int32(int32(c.TimeToLive.TurnsToLive)),
			},
		})
	}
	return out
}

func fromSDKContexts(list []types.ActiveContext) []domain.ActiveContext {
	if len(list) == 0 {
		return nil
	}
	out := make([]domain.ActiveContext, 0, len(list))
	for _, c := range list {
		ac := domain.ActiveContext{Name: aws.ToString(c.Name), Parameters: c.Parameters}
		if c.TimeToLive != nil {
			ac.TimeToLive = domain.ActiveContextTimeToLive{
				TimeToLiveInSeconds: int(aws.ToInt32(c.TimeToLive.TimeToLiveInSeconds)),
				TurnsToLive:         int(aws.ToInt32(c.TimeToLive.TurnsToLive)),
			}
		}
		out = append(out, ac)
	}
	return out
}

func fromSDKConfidence(c *types.IntentConfidence) *domain.IntentConfidence {
	if c == nil {
		return nil
	}
	return &domain.IntentConfidence{Score: c.Score}
}

func fromSDKPredicted(list []types.PredictedIntent) []domain.PredictedIntent {
	if len(list) == 0 {
		return nil
	}
	out := make([]domain.PredictedIntent, 0, len(list))
	for _, p := range list {
		out = append(out, domain.PredictedIntent{
			IntentName:          aws.ToString(p.IntentName),
			NluIntentConfidence: fromSDKConfidence(p.NluIntentConfidence),
			Slots:               p.Slots,
		})
	}
	return out
}

func fromSDKSentiment(s *types.SentimentResponse) *domain.SentimentResponse {
	if s == nil {
		return nil
	}
	return &domain.SentimentResponse{
		SentimentLabel: aws.ToString(s.SentimentLabel),
		SentimentScore: aws.ToString(s.SentimentScore),
	}
}

func fromSDKCard(c *types.ResponseCard) *domain.ResponseCard {
	if c == nil {
		return nil
	}
	card := &domain.ResponseCard{
		Version:     aws.ToString(c.Version),
		ContentType: string(c.ContentType),
	}
	for _, a := range c.GenericAttachments {
		att := domain.GenericAttachment{
			Title:             aws.ToString(a.Title),
			SubTitle:          aws.ToString(a.SubTitle),
			ImageURL:          aws.ToString(a.ImageUrl),
			AttachmentLinkURL: aws.ToString(a.AttachmentLinkUrl),
		}
		for _, b := range a.Buttons {
			att.Buttons = append(att.Buttons, domain.Button{Text: aws.ToString(b.Text), Value: aws.ToString(b.Value)})
		}
		card.GenericAttachments = append(card.GenericAttachments, att)
	}
	return card
}

func toSDKAction(a *domain.DialogAction) *types.DialogAction {
	if a == nil {
		return nil
	}
	return &types.DialogAction{
		Type:             types.DialogActionType(a.Type),
		FulfillmentState: types.FulfillmentState(a.FulfillmentState),
		IntentName:       optString(a.IntentName),
		SlotToElicit:     optString(a.SlotToElicit),
		Slots:            a.Slots,
		Message:          optString(a.Message),
		MessageFormat:    types.MessageFormatType(a.MessageFormat),
	}
}

// fromSDKAction parses the enums of a remote action and checks its field
// invariants.
func fromSDKAction(a *types.DialogAction) (domain.DialogAction, error) {
	action := domain.DialogAction{
		IntentName:   aws.ToString(a.IntentName),
		SlotToElicit: aws.ToString(a.SlotToElicit),
		Slots:        a.Slots,
		Message:      aws.ToString(a.Message),
	}
	var err error
	if action.Type, err = domain.ParseDialogActionType(string(a.Type)); err != nil {
		return domain.DialogAction{}, lexerr.BadGateway("unexpected dialog action type", err)
	}
	if a.FulfillmentState != "" {
		if action.FulfillmentState, err = domain.ParseFulfillmentState(string(a.FulfillmentState)); err != nil {
			return domain.DialogAction{}, lexerr.BadGateway("unexpected fulfillment state", err)
		}
	}
	if action.MessageFormat, err = parseFormat(string(a.MessageFormat)); err != nil {
		return domain.DialogAction{}, err
	}
	if err := action.Validate(); err != nil {
		return domain.DialogAction{}, lexerr.BadGateway("inconsistent dialog action", err)
	}
	return action, nil
}

func toSDKSummaries(list []domain.IntentSummary) []types.IntentSummary {
	if list == nil {
		return nil
	}
	out := make([]types.IntentSummary, 0, len(list))
	for _, s := range list {
		out = append(out, types.IntentSummary{
			DialogActionType:   types.DialogActionType(s.DialogActionType),
			IntentName:         optString(s.IntentName),
			CheckpointLabel:    optString(s.CheckpointLabel),
			Slots:              s.Slots,
			ConfirmationStatus: types.ConfirmationStatus(s.ConfirmationStatus),
			FulfillmentState:   types.FulfillmentState(s.FulfillmentState),
			SlotToElicit:       optString(s.SlotToElicit),
		})
	}
	return out
}

func fromSDKSummaries(list []types.IntentSummary) ([]domain.IntentSummary, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]domain.IntentSummary, 0, len(list))
	for _, s := range list {
		sum := domain.IntentSummary{
			IntentName:      aws.ToString(s.IntentName),
			CheckpointLabel: aws.ToString(s.CheckpointLabel),
			Slots:           s.Slots,
			SlotToElicit:    aws.ToString(s.SlotToElicit),
		}
		var err error
		if sum.DialogActionType, err = domain.ParseDialogActionType(string(s.DialogActionType)); err != nil {
			return nil, lexerr.BadGateway("unexpected summary action type", err)
		}
		if s.FulfillmentState != "" {
			if sum.FulfillmentState, err = domain.ParseFulfillmentState(string(s.FulfillmentState)); err != nil {
				return nil, lexerr.BadGateway("unexpected summary fulfillment state", err)
			}
		}
		if s.ConfirmationStatus != "" {
			if sum.ConfirmationStatus, err = domain.ParseConfirmationStatus(string(s.ConfirmationStatus)); err != nil {
				return nil, lexerr.BadGateway("unexpected confirmation status", err)
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
