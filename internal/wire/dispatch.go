package wire

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"lex-dialog/internal/domain"
	"lex-dialog/internal/lexerr"
)

// Runtime is the set of operations served over REST.
type Runtime interface {
	PostText(ctx context.Context, req domain.PostTextRequest) (domain.PostTextResult, error)
	PostContent(ctx context.Context, req domain.PostContentRequest) (domain.PostContentResult, error)
	GetSession(ctx context.Context, req domain.GetSessionRequest) (domain.GetSessionResult, error)
	PutSession(ctx context.Context, req domain.PutSessionRequest) (domain.PutSessionResult, error)
	DeleteSession(ctx context.Context, req domain.DeleteSessionRequest) (domain.DeleteSessionResult, error)
}

type Request struct {
	Route  Route
	Header http.Header
	Query  url.Values
	Body   []byte
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Dispatch decodes req, runs the operation and encodes the outcome. A failed
// operation is encoded into the response and also returned for logging.
func Dispatch(ctx context.Context, rt Runtime, req Request) (Response, error) {
	resp, err := dispatch(ctx, rt, req)
	if err != nil {
		status, h, body := EncodeError(err)
		return Response{Status: status, Header: h, Body: body}, err
	}
	return resp, nil
}

func dispatch(ctx context.Context, rt Runtime, req Request) (Response, error) {
	key := req.Route.Key
	switch req.Route.Op {
	case OpPostText:
		var in domain.PostTextRequest
		if err := decodeBody(req.Body, &in); err != nil {
			return Response{}, err
		}
		in.Key = key
		out, err := rt.PostText(ctx, in)
		if err != nil {
			return Response{}, err
		}
		return jsonResponse(out)

	case OpPostContent:
		in, err := DecodePostContent(key, req.Header, req.Body)
		if err != nil {
			return Response{}, err
		}
		out, err := rt.PostContent(ctx, in)
		if err != nil {
			return Response{}, err
		}
		h, body, err := PostContentHeaders(out)
		if err != nil {
			return Response{}, lexerr.Internal("encode PostContent response", err)
		}
		return Response{Status: http.StatusOK, Header: h, Body: body}, nil

	case OpGetSession:
		out, err := rt.GetSession(ctx, domain.GetSessionRequest{
			Key:                   key,
			CheckpointLabelFilter: req.Query.Get(CheckpointLabelQuery),
		})
		if err != nil {
			return Response{}, err
		}
		return jsonResponse(out)

	case OpPutSession:
		var in domain.PutSessionRequest
		if err := decodeBody(req.Body, &in); err != nil {
			return Response{}, err
		}
		in.Key = key
		in.Accept = req.Header.Get(HeaderAccept)
		out, err := rt.PutSession(ctx, in)
		if err != nil {
			return Response{}, err
		}
		h, err := PutSessionHeaders(out)
		if err != nil {
			return Response{}, lexerr.Internal("encode PutSession response", err)
		}
		return Response{Status: http.StatusOK, Header: h}, nil

	case OpDeleteSession:
		out, err := rt.DeleteSession(ctx, domain.DeleteSessionRequest{Key: key})
		if err != nil {
			return Response{}, err
		}
		return jsonResponse(out)
	}
	return Response{}, lexerr.NotFound("unknown operation " + string(req.Route.Op))
}

func decodeBody(body []byte, dst any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return lexerr.BadRequest("request body is not valid JSON", err)
	}
	return nil
}

func jsonResponse(v any) (Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{}, lexerr.Internal("encode response", err)
	}
	h := make(http.Header)
	h.Set(HeaderContentType, "application/json")
	return Response{Status: http.StatusOK, Header: h, Body: body}, nil
}
