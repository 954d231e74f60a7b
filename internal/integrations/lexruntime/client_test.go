package lexruntime

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lexruntimeservice"
	"github.com/aws/aws-sdk-go-v2/service/lexruntimeservice/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"

	"lex-dialog/internal/domain"
	"lex-dialog/internal/lexerr"
)

// fakeAPI records the last input of each operation and answers with canned
// outputs.
type fakeAPI struct {
	textIn     *lexruntimeservice.PostTextInput
	textOut    *lexruntimeservice.PostTextOutput
	contentIn  *lexruntimeservice.PostContentInput
	contentOut *lexruntimeservice.PostContentOutput
	getIn      *lexruntimeservice.GetSessionInput
	getOut     *lexruntimeservice.GetSessionOutput
	putIn      *lexruntimeservice.PutSessionInput
	putOut     *lexruntimeservice.PutSessionOutput
	deleteOut  *lexruntimeservice.DeleteSessionOutput
	err        error
}

func (f *fakeAPI) PostText(_ context.Context, in *lexruntimeservice.PostTextInput, _ ...func(*lexruntimeservice.Options)) (*lexruntimeservice.PostTextOutput, error) {
	f.textIn = in
	return f.textOut, f.err
}

func (f *fakeAPI) PostContent(_ context.Context, in *lexruntimeservice.PostContentInput, _ ...func(*lexruntimeservice.Options)) (*lexruntimeservice.PostContentOutput, error) {
	f.contentIn = in
	return f.contentOut, f.err
}

func (f *fakeAPI) GetSession(_ context.Context, in *lexruntimeservice.GetSessionInput, _ ...func(*lexruntimeservice.Options)) (*lexruntimeservice.GetSessionOutput, error) {
	f.getIn = in
	return f.getOut, f.err
}

func (f *fakeAPI) PutSession(_ context.Context, in *lexruntimeservice.PutSessionInput, _ ...func(*lexruntimeservice.Options)) (*lexruntimeservice.PutSessionOutput, error) {
	f.putIn = in
	return f.putOut, f.err
}

func (f *fakeAPI) DeleteSession(_ context.Context, _ *lexruntimeservice.DeleteSessionInput, _ ...func(*lexruntimeservice.Options)) (*lexruntimeservice.DeleteSessionOutput, error) {
	return f.deleteOut, f.err
}

var key = domain.SessionKey{BotName: "PizzaBot", BotAlias: "prod", UserID: "user-1"}

func newClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	c, err := New(api)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsNilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestPostText_ConvertsRequestAndResult(t *testing.T) {
	api := &fakeAPI{textOut: &lexruntimeservice.PostTextOutput{
		IntentName:          aws.String("OrderPizza"),
		NluIntentConfidence: &types.IntentConfidence{Score: 0.92},
		AlternativeIntents: []types.PredictedIntent{
			{IntentName: aws.String("AMAZON.FallbackIntent")},
			{IntentName: aws.String("CheckStatus"), NluIntentConfidence: &types.IntentConfidence{Score: 0.1}},
		},
		DialogState:   types.DialogStateElicitSlot,
		SlotToElicit:  aws.String("PizzaSize"),
		Slots:         map[string]string{"PizzaSize": ""},
		Message:       aws.String("What size?"),
		MessageFormat: types.MessageFormatTypePlainText,
		SessionId:     aws.String("session-1"),
		ResponseCard: &types.ResponseCard{
			Version:     aws.String("1"),
			ContentType: types.ContentTypeGeneric,
			GenericAttachments: []types.GenericAttachment{{
				Title:   aws.String("Size"),
				Buttons: []types.Button{{Text: aws.String("Large"), Value: aws.String("large")}},
			}},
		},
		ActiveContexts: []types.ActiveContext{{
			Name:       aws.String("PizzaOrdered"),
			TimeToLive: &types.ActiveContextTimeToLive{TimeToLiveInSeconds: aws.Int32(30), TurnsToLive: aws.Int32(1)},
		}},
	}}
	c := newClient(t, api)

	res, err := c.PostText(context.Background(), domain.PostTextRequest{
		Key:       key,
		InputText: "I want a pizza",
		ActiveContexts: []domain.ActiveContext{{
			Name:       "Greeted",
			TimeToLive: domain.ActiveContextTimeToLive{TimeToLiveInSeconds: 60, TurnsToLive: 2},
		}},
	})
	require.NoError(t, err)

	require.Equal(t, "PizzaBot", aws.ToString(api.textIn.BotName))
	require.Equal(t, "user-1", aws.ToString(api.textIn.UserId))
	require.Len(t, api.textIn.ActiveContexts, 1)
	require.Equal(t, int32(2), aws.ToInt32(api.textIn.ActiveContexts[0].TimeToLive.TurnsToLive))

	require.Equal(t, domain.DialogStateElicitSlot, res.DialogState)
	require.Equal(t, "PizzaSize", res.SlotToElicit)
	require.Equal(t, domain.MessageFormatPlainText, res.MessageFormat)
	require.InDelta(t, 0.92, res.NluIntentConfidence.Score, 1e-9)
	require.Len(t, res.AlternativeIntents, 2)
	require.Equal(t, "large", res.ResponseCard.GenericAttachments[0].Buttons[0].Value)
	require.Equal(t, domain.GenericCardContentType, res.ResponseCard.ContentType)
	require.Equal(t, []domain.ActiveContext{{
		Name:       "PizzaOrdered",
		TimeToLive: domain.ActiveContextTimeToLive{TimeToLiveInSeconds: 30, TurnsToLive: 1},
	}}, res.ActiveContexts)
}

func TestPostText_RejectsInvalidRequestWithoutCalling(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api)
	_, err := c.PostText(context.Background(), domain.PostTextRequest{Key: key})
	require.Equal(t, lexerr.KindBadRequest, lexerr.KindOf(err))
	require.Nil(t, api.textIn)
}

func TestPostText_RejectsInconsistentResponses(t *testing.T) {
	cases := []struct {
		name string
		out  *lexruntimeservice.PostTextOutput
	}{
		{"unknown state", &lexruntimeservice.PostTextOutput{DialogState: types.DialogState("Thinking")}},
		{"elicit slot without slot", &lexruntimeservice.PostTextOutput{
			DialogState: types.DialogStateElicitSlot, IntentName: aws.String("OrderPizza"),
		}},
		{"slot outside elicit slot", &lexruntimeservice.PostTextOutput{
			DialogState: types.DialogStateConfirmIntent, IntentName: aws.String("OrderPizza"), SlotToElicit: aws.String("PizzaSize"),
		}},
		{"fulfilled without intent", &lexruntimeservice.PostTextOutput{DialogState: types.DialogStateFulfilled}},
		{"score above one", &lexruntimeservice.PostTextOutput{
			DialogState: types.DialogStateFulfilled, IntentName: aws.String("OrderPizza"),
			NluIntentConfidence: &types.IntentConfidence{Score: 1.2},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, &fakeAPI{textOut: tc.out})
			_, err := c.PostText(context.Background(), domain.PostTextRequest{Key: key, InputText: "hi"})
			require.Equal(t, lexerr.KindBadGateway, lexerr.KindOf(err))
		})
	}
}

func TestPostText_UnknownStateIsUnknownVariant(t *testing.T) {
	c := newClient(t, &fakeAPI{textOut: &lexruntimeservice.PostTextOutput{DialogState: types.DialogState("Thinking")}})
	_, err := c.PostText(context.Background(), domain.PostTextRequest{Key: key, InputText: "hi"})
	var unknown *domain.UnknownVariantError
	require.ErrorAs(t, err, &unknown)
}

func TestPostContent_JSONHeaders(t *testing.T) {
	api := &fakeAPI{contentOut: &lexruntimeservice.PostContentOutput{
		DialogState:         types.DialogStateConfirmIntent,
		IntentName:          aws.String("OrderPizza"),
		Slots:               aws.String(`{"PizzaSize":"large"}`),
		SessionAttributes:   aws.String(`{"crust":"thin"}`),
		NluIntentConfidence: aws.String(`{"score":0.8}`),
		ActiveContexts:      aws.String(`[{"name":"PizzaOrdered","timeToLive":{"timeToLiveInSeconds":30,"turnsToLive":1},"parameters":{}}]`),
		Message:             aws.String("A large pizza?"),
		ContentType:         aws.String("text/plain;charset=utf-8"),
		AudioStream:         io.NopCloser(strings.NewReader("A large pizza?")),
	}}
	c := newClient(t, api)

	res, err := c.PostContent(context.Background(), domain.PostContentRequest{
		Key:               key,
		ContentType:       domain.ContentTypeText,
		Accept:            "text/plain; charset=utf-8",
		InputText:         "a big one",
		SessionAttributes: map[string]string{"crust": "thin"},
	})
	require.NoError(t, err)

	require.Equal(t, `{"crust":"thin"}`, aws.ToString(api.contentIn.SessionAttributes))
	require.Nil(t, api.contentIn.RequestAttributes)
	require.Nil(t, api.contentIn.ActiveContexts)
	body, err := io.ReadAll(api.contentIn.InputStream)
	require.NoError(t, err)
	require.Equal(t, "a big one", string(body))

	require.Equal(t, domain.DialogStateConfirmIntent, res.DialogState)
	require.Equal(t, map[string]string{"PizzaSize": "large"}, res.Slots)
	require.Equal(t, "thin", res.SessionAttributes["crust"])
	require.InDelta(t, 0.8, res.NluIntentConfidence.Score, 1e-9)
	require.Equal(t, "PizzaOrdered", res.ActiveContexts[0].Name)
	require.Equal(t, "A large pizza?", string(res.Body))
}

func TestPostContent_BadHeaderJSON(t *testing.T) {
	c := newClient(t, &fakeAPI{contentOut: &lexruntimeservice.PostContentOutput{Slots: aws.String("{")}})
	_, err := c.PostContent(context.Background(), domain.PostContentRequest{Key: key, ContentType: domain.ContentTypeText})
	require.Equal(t, lexerr.KindBadGateway, lexerr.KindOf(err))
}

func TestGetSession_ConvertsRecords(t *testing.T) {
	api := &fakeAPI{getOut: &lexruntimeservice.GetSessionOutput{
		SessionId: aws.String("session-1"),
		DialogAction: &types.DialogAction{
			Type:             types.DialogActionTypeClose,
			FulfillmentState: types.FulfillmentStateFulfilled,
			IntentName:       aws.String("OrderPizza"),
		},
		RecentIntentSummaryView: []types.IntentSummary{{
			DialogActionType:   types.DialogActionTypeClose,
			FulfillmentState:   types.FulfillmentStateFulfilled,
			ConfirmationStatus: types.ConfirmationStatusConfirmed,
			IntentName:         aws.String("OrderPizza"),
			CheckpointLabel:    aws.String("ordered"),
		}},
	}}
	c := newClient(t, api)

	res, err := c.GetSession(context.Background(), domain.GetSessionRequest{Key: key, CheckpointLabelFilter: "ordered"})
	require.NoError(t, err)
	require.Equal(t, "ordered", aws.ToString(api.getIn.CheckpointLabelFilter))
	require.Equal(t, "session-1", res.SessionID)

	state, ok := res.DialogAction.State()
	require.True(t, ok)
	require.Equal(t, domain.DialogStateFulfilled, state)
	require.Equal(t, domain.ConfirmationConfirmed, res.RecentIntentSummaryView[0].ConfirmationStatus)
}

func TestGetSession_RejectsUnknownActionType(t *testing.T) {
	c := newClient(t, &fakeAPI{getOut: &lexruntimeservice.GetSessionOutput{
		DialogAction: &types.DialogAction{Type: types.DialogActionType("Wander")},
	}})
	_, err := c.GetSession(context.Background(), domain.GetSessionRequest{Key: key})
	var unknown *domain.UnknownVariantError
	require.ErrorAs(t, err, &unknown)
}

func TestPutSession_SendsAction(t *testing.T) {
	api := &fakeAPI{putOut: &lexruntimeservice.PutSessionOutput{
		DialogState:  types.DialogStateElicitSlot,
		IntentName:   aws.String("OrderPizza"),
		SlotToElicit: aws.String("PizzaSize"),
		Slots:        aws.String(`{"PizzaSize":null}`),
	}}
	c := newClient(t, api)

	res, err := c.PutSession(context.Background(), domain.PutSessionRequest{
		Key: key,
		DialogAction: &domain.DialogAction{
			Type:         domain.DialogActionElicitSlot,
			IntentName:   "OrderPizza",
			SlotToElicit: "PizzaSize",
		},
	})
	require.NoError(t, err)
	require.Equal(t, types.DialogActionTypeElicitSlot, api.putIn.DialogAction.Type)
	require.Equal(t, "PizzaSize", aws.ToString(api.putIn.DialogAction.SlotToElicit))
	require.Nil(t, api.putIn.DialogAction.Message)
	require.Equal(t, domain.DialogStateElicitSlot, res.DialogState)
	require.Contains(t, res.Slots, "PizzaSize")
}

func TestDeleteSession(t *testing.T) {
	c := newClient(t, &fakeAPI{deleteOut: &lexruntimeservice.DeleteSessionOutput{
		BotName: aws.String("PizzaBot"), BotAlias: aws.String("prod"), UserId: aws.String("user-1"), SessionId: aws.String("session-1"),
	}})
	res, err := c.DeleteSession(context.Background(), domain.DeleteSessionRequest{Key: key})
	require.NoError(t, err)
	require.Equal(t, domain.DeleteSessionResult{BotName: "PizzaBot", BotAlias: "prod", UserID: "user-1", SessionID: "session-1"}, res)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		kind  lexerr.Kind
		retry int
	}{
		{"limit with hint", &types.LimitExceededException{Message: aws.String("slow down"), RetryAfterSeconds: aws.String("30")}, lexerr.KindLimitExceeded, 30},
		{"limit without hint", &types.LimitExceededException{Message: aws.String("slow down")}, lexerr.KindLimitExceeded, 0},
		{"not found", &types.NotFoundException{Message: aws.String("no session")}, lexerr.KindNotFound, 0},
		{"generic api error", &smithy.GenericAPIError{Code: "DependencyFailedException", Message: "hook"}, lexerr.KindDependencyFailed, 0},
		{"unknown code", &smithy.GenericAPIError{Code: "Teapot"}, lexerr.KindInternalFailure, 0},
		{"deadline", context.DeadlineExceeded, lexerr.KindRequestTimeout, 0},
		{"transport", errors.New("connection reset"), lexerr.KindInternalFailure, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, &fakeAPI{err: tc.err})
			_, err := c.DeleteSession(context.Background(), domain.DeleteSessionRequest{Key: key})
			lexErr, ok := lexerr.As(err)
			require.True(t, ok)
			require.Equal(t, tc.kind, lexErr.Kind)
			require.Equal(t, tc.retry, lexErr.RetryAfterSeconds)
		})
	}
}
