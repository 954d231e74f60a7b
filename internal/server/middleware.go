package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lex-dialog/internal/lexerr"
	"lex-dialog/internal/log"
	"lex-dialog/internal/wire"
)

// requestLogger attaches a correlation id to the request context and the
// response, and logs one line per request.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(wire.HeaderCorrelationID)
			if id == "" {
				id = uuid.NewString()
			}
			ctx := log.ContextWithCorrelationID(r.Context(), id)
			w.Header().Set(wire.HeaderCorrelationID, id)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger := log.WithContext(ctx, base)
			ev := logger.Info()
			if ww.Status() >= http.StatusInternalServerError {
				ev = logger.Error()
			} else if ww.Status() >= http.StatusBadRequest {
				ev = logger.Warn()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}

// recoverer turns a panic into an InternalFailure response.
func recoverer(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)
				logger := log.WithContext(r.Context(), base)
				logger.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic_value", rec).
					Str("stack_trace", string(buf[:n])).
					Msg("panic recovered in HTTP handler")
				writeResponse(w, encodeError(lexerr.Internal("unexpected failure", nil)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit throttles each conversation (bot, alias, user). Throttled requests
// get the LimitExceeded error with a Retry-After of one window.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := int(window / time.Second)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(conversationKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeResponse(w, encodeError(lexerr.LimitExceeded("request rate exceeded", retryAfter)))
		}),
	)
}

func conversationKey(r *http.Request) (string, error) {
	route, err := wire.ParseRoute(r.Method, r.URL.EscapedPath())
	if err != nil {
		return httprate.KeyByIP(r)
	}
	return route.Key.String(), nil
}

func encodeError(err error) wire.Response {
	status, h, body := wire.EncodeError(err)
	return wire.Response{Status: status, Header: h, Body: body}
}

func writeResponse(w http.ResponseWriter, resp wire.Response) {
	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
