package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"lex-dialog/internal/domain"
	"lex-dialog/internal/wire"
)

type stubRuntime struct {
	text domain.PostTextRequest
	put  domain.PutSessionRequest
}

func (s *stubRuntime) PostText(_ context.Context, req domain.PostTextRequest) (domain.PostTextResult, error) {
	s.text = req
	return domain.PostTextResult{IntentName: "OrderPizza", DialogState: domain.DialogStateElicitSlot, SlotToElicit: "Size"}, nil
}

func (s *stubRuntime) PostContent(context.Context, domain.PostContentRequest) (domain.PostContentResult, error) {
	return domain.PostContentResult{}, nil
}

func (s *stubRuntime) GetSession(context.Context, domain.GetSessionRequest) (domain.GetSessionResult, error) {
	return domain.GetSessionResult{SessionID: "session-1"}, nil
}

func (s *stubRuntime) PutSession(_ context.Context, req domain.PutSessionRequest) (domain.PutSessionResult, error) {
	s.put = req
	return domain.PutSessionResult{DialogState: domain.DialogStateElicitIntent}, nil
}

func (s *stubRuntime) DeleteSession(context.Context, domain.DeleteSessionRequest) (domain.DeleteSessionResult, error) {
	return domain.DeleteSessionResult{SessionID: "session-1"}, nil
}

func run(t *testing.T, rt *stubRuntime, args ...string) (string, error) {
	t.Helper()
	conn := func(context.Context, *options) (wire.Runtime, func(), error) {
		return rt, func() {}, nil
	}
	cmd := newRootCmd(conn)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--bot", "PizzaBot", "--alias", "prod", "--user", "user-1"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestText(t *testing.T) {
	rt := &stubRuntime{}
	out, err := run(t, rt, "text", "--attr", "crust=thin", "I", "want", "pizza")
	require.NoError(t, err)
	require.Equal(t, "I want pizza", rt.text.InputText)
	require.Equal(t, map[string]string{"crust": "thin"}, rt.text.SessionAttributes)
	require.Equal(t, "user-1", rt.text.Key.UserID)

	var res domain.PostTextResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "Size", res.SlotToElicit)
}

func TestText_DuplicateAttribute(t *testing.T) {
	_, err := run(t, &stubRuntime{}, "text", "--attr", "a=1", "--attr", "a=2", "hi")
	var dup *domain.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
}

func TestSessionPut_DialogAction(t *testing.T) {
	rt := &stubRuntime{}
	_, err := run(t, rt, "session", "put", "--dialog-action", `{"type":"Close","fulfillmentState":"Fulfilled","intentName":"OrderPizza"}`)
	require.NoError(t, err)
	require.NotNil(t, rt.put.DialogAction)
	require.Equal(t, domain.FulfillmentFulfilled, rt.put.DialogAction.FulfillmentState)

	_, err = run(t, rt, "session", "put", "--dialog-action", `{"type":"Wander"}`)
	var unknown *domain.UnknownVariantError
	require.ErrorAs(t, err, &unknown)
}

func TestSessionGetAndDelete(t *testing.T) {
	out, err := run(t, &stubRuntime{}, "session", "get")
	require.NoError(t, err)
	require.Contains(t, out, `"sessionId": "session-1"`)

	out, err = run(t, &stubRuntime{}, "session", "delete")
	require.NoError(t, err)
	require.Contains(t, out, "session-1")
}

func TestParseAttrs_Malformed(t *testing.T) {
	_, err := parseAttrs([]string{"novalue"})
	require.Error(t, err)
	m, err := parseAttrs(nil)
	require.NoError(t, err)
	require.Nil(t, m)
}
