// Package lexruntime calls a hosted Lex V1 runtime through aws-sdk-go-v2 and
// converts its answers into domain types, enforcing the same dialog
// invariants the local runtime does.
package lexruntime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lexruntimeservice"
	"github.com/aws/aws-sdk-go-v2/service/lexruntimeservice/types"
	"github.com/aws/smithy-go"

	"lex-dialog/internal/domain"
	"lex-dialog/internal/keylock"
	"lex-dialog/internal/lexerr"
	"lex-dialog/internal/ranking"
)

// lexAPI is the minimal Lex runtime interface required by Client.
// *lexruntimeservice.Client from aws-sdk-go-v2 satisfies this interface.
type lexAPI interface {
	PostText(ctx context.Context, in *lexruntimeservice.PostTextInput, optFns ...func(*lexruntimeservice.Options)) (*lexruntimeservice.PostTextOutput, error)
	PostContent(ctx context.Context, in *lexruntimeservice.PostContentInput, optFns ...func(*lexruntimeservice.Options)) (*lexruntimeservice.PostContentOutput, error)
	GetSession(ctx context.Context, in *lexruntimeservice.GetSessionInput, optFns ...func(*lexruntimeservice.Options)) (*lexruntimeservice.GetSessionOutput, error)
	PutSession(ctx context.Context, in *lexruntimeservice.PutSessionInput, optFns ...func(*lexruntimeservice.Options)) (*lexruntimeservice.PutSessionOutput, error)
	DeleteSession(ctx context.Context, in *lexruntimeservice.DeleteSessionInput, optFns ...func(*lexruntimeservice.Options)) (*lexruntimeservice.DeleteSessionOutput, error)
}

// Client implements the five runtime operations against a remote bot.
// Turns of the same conversation are sent one at a time.
type Client struct {
	api   lexAPI
	locks *keylock.Mutex
}

func New(api lexAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("lexruntime: api must not be nil")
	}
	return &Client{api: api, locks: keylock.New()}, nil
}

func (c *Client) PostText(ctx context.Context, req domain.PostTextRequest) (domain.PostTextResult, error) {
	if err := req.Validate(); err != nil {
		return domain.PostTextResult{}, lexerr.BadRequest(err.Error(), err)
	}
	unlock := c.locks.Lock(req.Key)
	defer unlock()

	out, err := c.api.PostText(ctx, &lexruntimeservice.PostTextInput{
		BotName:           aws.String(req.Key.BotName),
		BotAlias:          aws.String(req.Key.BotAlias),
		UserId:            aws.String(req.Key.UserID),
		InputText:         aws.String(req.InputText),
		SessionAttributes: req.SessionAttributes,
		RequestAttributes: req.RequestAttributes,
		ActiveContexts:    toSDKContexts(req.ActiveContexts),
	})
	if err != nil {
		return domain.PostTextResult{}, mapError("post text", err)
	}
	if out == nil {
		return domain.PostTextResult{}, lexerr.BadGateway("empty post text response", nil)
	}

	res := domain.PostTextResult{
		IntentName:          aws.ToString(out.IntentName),
		NluIntentConfidence: fromSDKConfidence(out.NluIntentConfidence),
		AlternativeIntents:  fromSDKPredicted(out.AlternativeIntents),
		Slots:               out.Slots,
		SessionAttributes:   out.SessionAttributes,
		Message:             aws.ToString(out.Message),
		SentimentResponse:   fromSDKSentiment(out.SentimentResponse),
		SlotToElicit:        aws.ToString(out.SlotToElicit),
		ResponseCard:        fromSDKCard(out.ResponseCard),
		SessionID:           aws.ToString(out.SessionId),
		BotVersion:          aws.ToString(out.BotVersion),
		ActiveContexts:      fromSDKContexts(out.ActiveContexts),
	}
	if res.DialogState, err = parseState(string(out.DialogState)); err != nil {
		return domain.PostTextResult{}, err
	}
	if res.MessageFormat, err = parseFormat(string(out.MessageFormat)); err != nil {
		return domain.PostTextResult{}, err
	}
	if err := checkResult(res.DialogState, res.IntentName, res.SlotToElicit, res.NluIntentConfidence, res.AlternativeIntents); err != nil {
		return domain.PostTextResult{}, err
	}
	return res, nil
}

func (c *Client) PostContent(ctx context.Context, req domain.PostContentRequest) (domain.PostContentResult, error) {
	if err := req.Validate(); err != nil {
		return domain.PostContentResult{}, lexerr.BadRequest(err.Error(), err)
	}
	sessionAttrs, err := jsonString(req.SessionAttributes)
	if err != nil {
		return domain.PostContentResult{}, err
	}
	requestAttrs, err := jsonString(req.RequestAttributes)
	if err != nil {
		return domain.PostContentResult{}, err
	}
	contexts, err := jsonString(req.ActiveContexts)
	if err != nil {
		return domain.PostContentResult{}, err
	}

	unlock := c.locks.Lock(req.Key)
	defer unlock()

	in := &lexruntimeservice.PostContentInput{
		BotName:           aws.String(req.Key.BotName),
		BotAlias:          aws.String(req.Key.BotAlias),
		UserId:            aws.String(req.Key.UserID),
		ContentType:       aws.String(req.ContentType),
		InputStream:       strings.NewReader(req.InputText),
		SessionAttributes: sessionAttrs,
		RequestAttributes: requestAttrs,
		ActiveContexts:    contexts,
	}
	if req.Accept != "" {
		in.Accept = aws.String(req.Accept)
	}
	out, err := c.api.PostContent(ctx, in)
	if err != nil {
		return domain.PostContentResult{}, mapError("post content", err)
	}
	if out == nil {
		return domain.PostContentResult{}, lexerr.BadGateway("empty post content response", nil)
	}
	if out.AudioStream != nil {
		defer out.AudioStream.Close()
	}

	res := domain.PostContentResult{
		ContentType:     aws.ToString(out.ContentType),
		IntentName:      aws.ToString(out.IntentName),
		Message:         aws.ToString(out.Message),
		EncodedMessage:  aws.ToString(out.EncodedMessage),
		SlotToElicit:    aws.ToString(out.SlotToElicit),
		InputTranscript: aws.ToString(out.InputTranscript),
		BotVersion:      aws.ToString(out.BotVersion),
		SessionID:       aws.ToString(out.SessionId),
	}
	fields := []struct {
		name string
		raw  *string
		dst  any
	}{
		{"slots", out.Slots, &res.Slots},
		{"sessionAttributes", out.SessionAttributes, &res.SessionAttributes},
		{"activeContexts", out.ActiveContexts, &res.ActiveContexts},
		{"alternativeIntents", out.AlternativeIntents, &res.AlternativeIntents},
		{"nluIntentConfidence", out.NluIntentConfidence, &res.NluIntentConfidence},
		{"sentimentResponse", out.SentimentResponse, &res.SentimentResponse},
	}
	for _, f := range fields {
		if err := decodeJSONField(f.name, f.raw, f.dst); err != nil {
			return domain.PostContentResult{}, err
		}
	}
	if res.DialogState, err = parseState(string(out.DialogState)); err != nil {
		return domain.PostContentResult{}, err
	}
	if res.MessageFormat, err = parseFormat(string(out.MessageFormat)); err != nil {
		return domain.PostContentResult{}, err
	}
	if err := checkResult(res.DialogState, res.IntentName, res.SlotToElicit, res.NluIntentConfidence, res.AlternativeIntents); err != nil {
		return domain.PostContentResult{}, err
	}
	if out.AudioStream != nil {
		if res.Body, err = io.ReadAll(out.AudioStream); err != nil {
			return domain.PostContentResult{}, lexerr.BadGateway("read response body", err)
		}
	}
	return res, nil
}

func (c *Client) GetSession(ctx context.Context, req domain.GetSessionRequest) (domain.GetSessionResult, error) {
	if err := req.Validate(); err != nil {
		return domain.GetSessionResult{}, lexerr.BadRequest(err.Error(), err)
	}
	in := &lexruntimeservice.GetSessionInput{
		BotName:  aws.String(req.Key.BotName),
		BotAlias: aws.String(req.Key.BotAlias),
		UserId:   aws.String(req.Key.UserID),
	}
	if req.CheckpointLabelFilter != "" {
		in.CheckpointLabelFilter = aws.String(req.CheckpointLabelFilter)
	}
	out, err := c.api.GetSession(ctx, in)
	if err != nil {
		return domain.GetSessionResult{}, mapError("get session", err)
	}
	if out == nil {
		return domain.GetSessionResult{}, lexerr.BadGateway("empty get session response", nil)
	}

	res := domain.GetSessionResult{
		SessionAttributes: out.SessionAttributes,
		SessionID:         aws.ToString(out.SessionId),
		ActiveContexts:    fromSDKContexts(out.ActiveContexts),
	}
	if res.RecentIntentSummaryView, err = fromSDKSummaries(out.RecentIntentSummaryView); err != nil {
		return domain.GetSessionResult{}, err
	}
	if out.DialogAction != nil {
		action, err := fromSDKAction(out.DialogAction)
		if err != nil {
			return domain.GetSessionResult{}, err
		}
		res.DialogAction = &action
	}
	return res, nil
}

func (c *Client) PutSession(ctx context.Context, req domain.PutSessionRequest) (domain.PutSessionResult, error) {
	if err := req.Validate(); err != nil {
		return domain.PutSessionResult{}, lexerr.BadRequest(err.Error(), err)
	}
	unlock := c.locks.Lock(req.Key)
	defer unlock()

	in := &lexruntimeservice.PutSessionInput{
		BotName:                 aws.String(req.Key.BotName),
		BotAlias:                aws.String(req.Key.BotAlias),
		UserId:                  aws.String(req.Key.UserID),
		SessionAttributes:       req.SessionAttributes,
		DialogAction:            toSDKAction(req.DialogAction),
		RecentIntentSummaryView: toSDKSummaries(req.RecentIntentSummaryView),
		ActiveContexts:          toSDKContexts(req.ActiveContexts),
	}
	if req.Accept != "" {
		in.Accept = aws.String(req.Accept)
	}
	out, err := c.api.PutSession(ctx, in)
	if err != nil {
		return domain.PutSessionResult{}, mapError("put session", err)
	}
	if out == nil {
		return domain.PutSessionResult{}, lexerr.BadGateway("empty put session response", nil)
	}
	if out.AudioStream != nil {
		_ = out.AudioStream.Close()
	}

	res := domain.PutSessionResult{
		ContentType:    aws.ToString(out.ContentType),
		IntentName:     aws.ToString(out.IntentName),
		Message:        aws.ToString(out.Message),
		EncodedMessage: aws.ToString(out.EncodedMessage),
		SlotToElicit:   aws.ToString(out.SlotToElicit),
		SessionID:      aws.ToString(out.SessionId),
	}
	for name, f := range map[string]struct {
		raw *string
		dst any
	}{
		"slots":             {out.Slots, &res.Slots},
		"sessionAttributes": {out.SessionAttributes, &res.SessionAttributes},
		"activeContexts":    {out.ActiveContexts, &res.ActiveContexts},
	} {
		if err := decodeJSONField(name, f.raw, f.dst); err != nil {
			return domain.PutSessionResult{}, err
		}
	}
	if res.DialogState, err = parseState(string(out.DialogState)); err != nil {
		return domain.PutSessionResult{}, err
	}
	if res.MessageFormat, err = parseFormat(string(out.MessageFormat)); err != nil {
		return domain.PutSessionResult{}, err
	}
	if err := checkAction(res.DialogState, res.IntentName, res.SlotToElicit); err != nil {
		return domain.PutSessionResult{}, err
	}
	return res, nil
}

func (c *Client) DeleteSession(ctx context.Context, req domain.DeleteSessionRequest) (domain.DeleteSessionResult, error) {
	if err := req.Validate(); err != nil {
		return domain.DeleteSessionResult{}, lexerr.BadRequest(err.Error(), err)
	}
	unlock := c.locks.Lock(req.Key)
	defer unlock()

	out, err := c.api.DeleteSession(ctx, &lexruntimeservice.DeleteSessionInput{
		BotName:  aws.String(req.Key.BotName),
		BotAlias: aws.String(req.Key.BotAlias),
		UserId:   aws.String(req.Key.UserID),
	})
	if err != nil {
		return domain.DeleteSessionResult{}, mapError("delete session", err)
	}
	if out == nil {
		return domain.DeleteSessionResult{}, lexerr.BadGateway("empty delete session response", nil)
	}
	return domain.DeleteSessionResult{
		BotName:   aws.ToString(out.BotName),
		BotAlias:  aws.ToString(out.BotAlias),
		UserID:    aws.ToString(out.UserId),
		SessionID: aws.ToString(out.SessionId),
	}, nil
}

// mapError converts an SDK failure into the runtime error of the same name.
// Throttling keeps the service's retry hint.
func mapError(op string, err error) error {
	var limit *types.LimitExceededException
	if errors.As(err, &limit) {
		retry, _ := strconv.Atoi(aws.ToString(limit.RetryAfterSeconds))
		return lexerr.LimitExceeded(limit.ErrorMessage(), retry)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		kind, _ := lexerr.ParseKind(apiErr.ErrorCode())
		return lexerr.New(kind, apiErr.ErrorMessage(), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return lexerr.New(lexerr.KindRequestTimeout, op+" timed out", err)
	}
	return lexerr.Internal(fmt.Sprintf("lexruntime: %s", op), err)
}

func parseState(s string) (domain.DialogState, error) {
	if s == "" {
		return "", nil
	}
	state, err := domain.ParseDialogState(s)
	if err != nil {
		return "", lexerr.BadGateway("unexpected dialog state", err)
	}
	return state, nil
}

func parseFormat(s string) (domain.MessageFormat, error) {
	if s == "" {
		return "", nil
	}
	format, err := domain.ParseMessageFormat(s)
	if err != nil {
		return "", lexerr.BadGateway("unexpected message format", err)
	}
	return format, nil
}

// checkAction rejects responses that break the dialog field invariants.
func checkAction(state domain.DialogState, intentName, slotToElicit string) error {
	if state == "" {
		return nil
	}
	action := domain.NewDialogAction(state, intentName, slotToElicit, nil)
	if err := action.Validate(); err != nil {
		return lexerr.BadGateway("inconsistent dialog response", err)
	}
	return nil
}

func checkResult(state domain.DialogState, intentName, slotToElicit string, confidence *domain.IntentConfidence, alternatives []domain.PredictedIntent) error {
	if err := checkAction(state, intentName, slotToElicit); err != nil {
		return err
	}
	scored := alternatives
	if confidence != nil {
		scored = append([]domain.PredictedIntent{{IntentName: intentName, NluIntentConfidence: confidence}}, alternatives...)
	}
	if err := ranking.Validate(scored); err != nil {
		return lexerr.BadGateway("invalid intent confidence", err)
	}
	return nil
}

// jsonString renders a header value. The SDK base64-encodes it on the wire.
func jsonString(v any) (*string, error) {
	switch t := v.(type) {
	case map[string]string:
		if len(t) == 0 {
			return nil, nil
		}
	case []domain.ActiveContext:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, lexerr.BadRequest("encode header", err)
	}
	return aws.String(string(b)), nil
}

func decodeJSONField(name string, raw *string, dst any) error {
	if raw == nil || *raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(*raw), dst); err != nil {
		return lexerr.BadGateway("decode "+name, err)
	}
	return nil
}
