package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lex-dialog/internal/lexerr"
	"lex-dialog/internal/log"
	"lex-dialog/internal/wire"
)

type Handler struct {
	runtime wire.Runtime
	logger  zerolog.Logger
}

type Option func(*Handler)

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(runtime wire.Runtime, opts ...Option) (*Handler, error) {
	if runtime == nil {
		return nil, errors.New("handler: runtime must not be nil")
	}
	h := &Handler{runtime: runtime, logger: log.WithComponent("handler")}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle serves one API Gateway proxy event. Failures are always answered
// with an error response, never returned to the Lambda runtime.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, wire.HeaderCorrelationID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	ctx = log.ContextWithCorrelationID(ctx, correlationID)
	logger := log.WithContext(ctx, h.logger)

	resp, err := h.serve(ctx, event)
	resp.Header.Set(wire.HeaderCorrelationID, correlationID)

	ev := logger.Info()
	if err != nil {
		ev = logger.Warn().Err(err).Str("kind", string(lexerr.KindOf(err)))
	}
	ev.Str("method", event.HTTPMethod).Str("path", event.Path).Int("status", resp.Status).Msg("request handled")

	out := events.APIGatewayProxyResponse{
		StatusCode: resp.Status,
		Headers:    wire.FlattenHeader(resp.Header),
		Body:       string(resp.Body),
	}
	return out, nil
}

func (h *Handler) serve(ctx context.Context, event events.APIGatewayProxyRequest) (wire.Response, error) {
	route, err := wire.ParseRoute(event.HTTPMethod, event.Path)
	switch {
	case errors.Is(err, wire.ErrRouteNotFound):
		return encode(lexerr.NotFound("no route for " + event.Path))
	case errors.Is(err, wire.ErrMethodNotAllowed):
		return encode(lexerr.BadRequest(event.HTTPMethod+" is not allowed on "+event.Path, nil))
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		if body, err = base64.StdEncoding.DecodeString(event.Body); err != nil {
			return encode(lexerr.BadRequest("request body is not valid base64", err))
		}
	}
	query := make(url.Values, len(event.QueryStringParameters))
	for k, v := range event.QueryStringParameters {
		query.Set(k, v)
	}
	return wire.Dispatch(ctx, h.runtime, wire.Request{
		Route:  route,
		Header: wire.HeaderFromMap(event.Headers),
		Query:  query,
		Body:   body,
	})
}

func encode(err error) (wire.Response, error) {
	status, header, body := wire.EncodeError(err)
	return wire.Response{Status: status, Header: header, Body: body}, err
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
