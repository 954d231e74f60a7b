package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"lex-dialog/internal/domain"
	"lex-dialog/internal/lexerr"
	"lex-dialog/internal/log"
)

type stubRuntime struct {
	err error

	correlationID string
	textIn        domain.PostTextRequest
	contentIn     domain.PostContentRequest
	getIn         domain.GetSessionRequest
}

func (s *stubRuntime) PostText(ctx context.Context, req domain.PostTextRequest) (domain.PostTextResult, error) {
	s.textIn = req
	s.correlationID = log.CorrelationIDFromContext(ctx)
	return domain.PostTextResult{
		IntentName:   "OrderPizza",
		DialogState:  domain.DialogStateElicitSlot,
		SlotToElicit: "PizzaSize",
		Message:      "What size pizza?",
		SessionID:    "session-1",
	}, s.err
}

func (s *stubRuntime) PostContent(_ context.Context, req domain.PostContentRequest) (domain.PostContentResult, error) {
	s.contentIn = req
	return domain.PostContentResult{ContentType: domain.ContentTypeText, DialogState: domain.DialogStateConfirmIntent, Message: "A large pizza, right?"}, s.err
}

func (s *stubRuntime) GetSession(_ context.Context, req domain.GetSessionRequest) (domain.GetSessionResult, error) {
	s.getIn = req
	return domain.GetSessionResult{SessionID: "session-1"}, s.err
}

func (s *stubRuntime) PutSession(context.Context, domain.PutSessionRequest) (domain.PutSessionResult, error) {
	return domain.PutSessionResult{}, s.err
}

func (s *stubRuntime) DeleteSession(_ context.Context, req domain.DeleteSessionRequest) (domain.DeleteSessionResult, error) {
	return domain.DeleteSessionResult{BotName: req.Key.BotName, SessionID: "session-1"}, s.err
}

func newTestHandler(t *testing.T, rt *stubRuntime) *Handler {
	t.Helper()
	h, err := NewHandler(rt, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return h
}

func makeEvent(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_PostText(t *testing.T) {
	rt := &stubRuntime{}
	h := newTestHandler(t, rt)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/bot/PizzaBot/alias/prod/user/user-1/text", `{"inputText":"I want a pizza"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, domain.SessionKey{BotName: "PizzaBot", BotAlias: "prod", UserID: "user-1"}, rt.textIn.Key)
	require.Equal(t, "I want a pizza", rt.textIn.InputText)

	out := parseBody[domain.PostTextResult](t, resp.Body)
	require.Equal(t, domain.DialogStateElicitSlot, out.DialogState)
	require.Equal(t, "PizzaSize", out.SlotToElicit)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
	require.Equal(t, resp.Headers["X-Correlation-Id"], rt.correlationID)
}

func TestHandle_PostContentBase64Body(t *testing.T) {
	rt := &stubRuntime{}
	h := newTestHandler(t, rt)

	event := makeEvent(http.MethodPost, "/bot/PizzaBot/alias/prod/user/user-1/content", base64.StdEncoding.EncodeToString([]byte("large")))
	event.IsBase64Encoded = true
	event.Headers = map[string]string{"content-type": "text/plain; charset=utf-8", "accept": "text/plain; charset=utf-8"}

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "large", rt.contentIn.InputText)
	require.Equal(t, "text/plain; charset=utf-8", rt.contentIn.ContentType)
	require.Equal(t, "ConfirmIntent", resp.Headers["X-Amz-Lex-Dialog-State"])
	require.Equal(t, "A large pizza, right?", resp.Body)
}

func TestHandle_GetSessionQuery(t *testing.T) {
	rt := &stubRuntime{}
	h := newTestHandler(t, rt)

	event := makeEvent(http.MethodGet, "/bot/PizzaBot/alias/prod/user/user-1/session", "")
	event.QueryStringParameters = map[string]string{"checkpointLabelFilter": "before-order"}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "before-order", rt.getIn.CheckpointLabelFilter)
}

func TestHandle_RoutingErrors(t *testing.T) {
	h := newTestHandler(t, &stubRuntime{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/ask", `{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NotFoundException", resp.Headers["X-Amzn-Errortype"])

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodGet, "/bot/PizzaBot/alias/prod/user/user-1/text", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	event := makeEvent(http.MethodPost, "/bot/PizzaBot/alias/prod/user/user-1/content", "***")
	event.IsBase64Encoded = true
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_MapsRuntimeErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{name: "bad request", err: lexerr.BadRequest("inputText: required", nil), status: http.StatusBadRequest, kind: "BadRequestException"},
		{name: "not found", err: lexerr.NotFound("bot not found"), status: http.StatusNotFound, kind: "NotFoundException"},
		{name: "limit exceeded", err: lexerr.LimitExceeded("slow down", 30), status: http.StatusTooManyRequests, kind: "LimitExceededException"},
		{name: "dependency failed", err: lexerr.DependencyFailed("hook down", nil), status: http.StatusFailedDependency, kind: "DependencyFailedException"},
		{name: "bad gateway", err: lexerr.BadGateway("upstream", nil), status: http.StatusBadGateway, kind: "BadGatewayException"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, kind: "InternalFailureException"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubRuntime{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/bot/PizzaBot/alias/prod/user/user-1/text", `{"inputText":"hi"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.kind, resp.Headers["X-Amzn-Errortype"])

			out := parseBody[map[string]string](t, resp.Body)
			require.NotEmpty(t, out["message"])
		})
	}
}

func TestHandle_LimitExceededSetsRetryAfter(t *testing.T) {
	h := newTestHandler(t, &stubRuntime{err: lexerr.LimitExceeded("slow down", 30)})
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/bot/PizzaBot/alias/prod/user/user-1/text", `{"inputText":"hi"}`))
	require.NoError(t, err)
	require.Equal(t, "30", resp.Headers["Retry-After"])
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	rt := &stubRuntime{}
	h := newTestHandler(t, rt)

	event := makeEvent(http.MethodPost, "/bot/PizzaBot/alias/prod/user/user-1/text", `{"inputText":"hi"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
	require.Equal(t, "corr-123", rt.correlationID)
}
