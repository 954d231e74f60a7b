// Package wire maps the runtime operations onto the Lex runtime REST surface:
// paths, x-amz-lex-* headers and error responses.
package wire

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"lex-dialog/internal/domain"
)

type Operation string

const (
	OpPostText      Operation = "PostText"
	OpPostContent   Operation = "PostContent"
	OpGetSession    Operation = "GetSession"
	OpPutSession    Operation = "PutSession"
	OpDeleteSession Operation = "DeleteSession"
)

var (
	ErrRouteNotFound    = errors.New("wire: route not found")
	ErrMethodNotAllowed = errors.New("wire: method not allowed")
)

// Route is a parsed runtime request path.
type Route struct {
	Op  Operation
	Key domain.SessionKey
}

// Path builds the request path for op and key. Path segments are escaped.
func Path(op Operation, key domain.SessionKey) string {
	var leaf string
	switch op {
	case OpPostText:
		leaf = "text"
	case OpPostContent:
		leaf = "content"
	default:
		leaf = "session"
	}
	return "/bot/" + url.PathEscape(key.BotName) +
		"/alias/" + url.PathEscape(key.BotAlias) +
		"/user/" + url.PathEscape(key.UserID) +
		"/" + leaf
}

// Method returns the HTTP method used by op.
func Method(op Operation) string {
	switch op {
	case OpGetSession:
		return http.MethodGet
	case OpDeleteSession:
		return http.MethodDelete
	}
	return http.MethodPost
}

// ParseRoute resolves /bot/{botName}/alias/{botAlias}/user/{userId}/{leaf}.
func ParseRoute(method, path string) (Route, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 7 || parts[0] != "bot" || parts[2] != "alias" || parts[4] != "user" {
		return Route{}, ErrRouteNotFound
	}
	var key domain.SessionKey
	for i, dst := range []*string{&key.BotName, &key.BotAlias, &key.UserID} {
		v, err := url.PathUnescape(parts[1+2*i])
		if err != nil || v == "" {
			return Route{}, ErrRouteNotFound
		}
		*dst = v
	}

	op, err := operationFor(strings.ToUpper(method), parts[6])
	if err != nil {
		return Route{}, err
	}
	return Route{Op: op, Key: key}, nil
}

func operationFor(method, leaf string) (Operation, error) {
	switch leaf {
	case "text":
		if method == http.MethodPost {
			return OpPostText, nil
		}
	case "content":
		if method == http.MethodPost {
			return OpPostContent, nil
		}
	case "session":
		switch method {
		case http.MethodGet:
			return OpGetSession, nil
		case http.MethodPost:
			return OpPutSession, nil
		case http.MethodDelete:
			return OpDeleteSession, nil
		}
	default:
		return "", ErrRouteNotFound
	}
	return "", ErrMethodNotAllowed
}
