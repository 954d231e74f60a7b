package wire

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"lex-dialog/internal/lexerr"
)

type errorBody struct {
	Message string `json:"message"`
}

// EncodeError renders err as a runtime error response: the exception name in
// x-amzn-ErrorType, a JSON message body, and Retry-After on throttling.
func EncodeError(err error) (int, http.Header, []byte) {
	lexErr := lexerr.Wrap(err)
	h := make(http.Header)
	h.Set(HeaderContentType, "application/json")
	h.Set(HeaderErrorType, string(lexErr.Kind))
	if lexErr.Kind == lexerr.KindLimitExceeded && lexErr.RetryAfterSeconds > 0 {
		h.Set(HeaderRetryAfter, strconv.Itoa(lexErr.RetryAfterSeconds))
	}
	msg := lexErr.Message
	if msg == "" {
		msg = string(lexErr.Kind)
	}
	body, _ := json.Marshal(errorBody{Message: msg})
	return lexerr.HTTPStatus(lexErr.Kind), h, body
}

// DecodeError reads an error response. The kind comes from x-amzn-ErrorType
// when present and from the status code otherwise.
func DecodeError(status int, h http.Header, body []byte) *lexerr.Error {
	kind := lexerr.KindForStatus(status)
	if name := h.Get(HeaderErrorType); name != "" {
		name, _, _ = strings.Cut(name, ":")
		if k, ok := lexerr.ParseKind(strings.TrimSpace(name)); ok {
			kind = k
		}
	}

	var eb errorBody
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
		msg = eb.Message
	}
	if kind == lexerr.KindLimitExceeded {
		n, _ := strconv.Atoi(h.Get(HeaderRetryAfter))
		return lexerr.LimitExceeded(msg, n)
	}
	return lexerr.New(kind, msg, nil)
}
