package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	HeaderContentType    = "Content-Type"
	HeaderAccept         = "Accept"
	HeaderErrorType      = "X-Amzn-Errortype"
	HeaderRetryAfter     = "Retry-After"
	HeaderCorrelationID  = "X-Correlation-Id"
	HeaderSessionAttrs   = "X-Amz-Lex-Session-Attributes"
	HeaderRequestAttrs   = "X-Amz-Lex-Request-Attributes"
	HeaderActiveContexts = "X-Amz-Lex-Active-Contexts"
	HeaderIntentName     = "X-Amz-Lex-Intent-Name"
	HeaderSlots          = "X-Amz-Lex-Slots"
	HeaderConfidence     = "X-Amz-Lex-Nlu-Intent-Confidence"
	HeaderAlternatives   = "X-Amz-Lex-Alternative-Intents"
	HeaderSentiment      = "X-Amz-Lex-Sentiment"
	HeaderMessage        = "X-Amz-Lex-Message"
	HeaderEncodedMessage = "X-Amz-Lex-Encoded-Message"
	HeaderMessageFormat  = "X-Amz-Lex-Message-Format"
	HeaderDialogState    = "X-Amz-Lex-Dialog-State"
	HeaderSlotToElicit   = "X-Amz-Lex-Slot-To-Elicit"
	HeaderTranscript     = "X-Amz-Lex-Input-Transcript"
	HeaderEncodedInput   = "X-Amz-Lex-Encoded-Input-Transcript"
	HeaderBotVersion     = "X-Amz-Lex-Bot-Version"
	HeaderSessionID      = "X-Amz-Lex-Session-Id"
)

// EncodeJSONHeader serializes v as base64-encoded JSON, the form structured
// values take in x-amz-lex-* headers.
func EncodeJSONHeader(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("wire: marshal header value: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeJSONHeader reverses EncodeJSONHeader. An empty header leaves dst
// untouched.
func DecodeJSONHeader(value string, dst any) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("wire: decode header base64: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("wire: unmarshal header value: %w", err)
	}
	return nil
}

// EncodeTextHeader base64-encodes free text for the encoded-* headers.
func EncodeTextHeader(s string) string {
	if s == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func DecodeTextHeader(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("wire: decode text header: %w", err)
	}
	return string(raw), nil
}

type headerWriter struct {
	h   http.Header
	err error
}

func newHeaderWriter() *headerWriter {
	return &headerWriter{h: make(http.Header)}
}

func (w *headerWriter) str(name, v string) {
	if v != "" {
		w.h.Set(name, v)
	}
}

// plain sets a raw text header only when v is printable ASCII; callers send
// the base64 form alongside it.
func (w *headerWriter) plain(name, v string) {
	for _, r := range v {
		if r < 0x20 || r > 0x7e {
			return
		}
	}
	w.str(name, v)
}

func (w *headerWriter) json(name string, v any, present bool) {
	if w.err != nil || !present {
		return
	}
	s, err := EncodeJSONHeader(v)
	if err != nil {
		w.err = fmt.Errorf("wire: header %s: %w", name, err)
		return
	}
	w.h.Set(name, s)
}

type headerReader struct {
	h   http.Header
	err error
}

func (r *headerReader) json(name string, dst any) {
	if r.err != nil {
		return
	}
	if err := DecodeJSONHeader(r.h.Get(name), dst); err != nil {
		r.err = fmt.Errorf("wire: header %s: %w", name, err)
	}
}

func (r *headerReader) text(name string) string {
	if r.err != nil {
		return ""
	}
	s, err := DecodeTextHeader(r.h.Get(name))
	if err != nil {
		r.err = fmt.Errorf("wire: header %s: %w", name, err)
	}
	return s
}

// HeaderFromMap builds an http.Header from a flat map such as an API Gateway
// event's headers. Keys are canonicalized.
func HeaderFromMap(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// FlattenHeader keeps the first value of every header.
func FlattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
