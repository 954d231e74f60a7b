package wire

import (
	"fmt"
	"net/http"

	"lex-dialog/internal/domain"
	"lex-dialog/internal/lexerr"
)

// CheckpointLabelQuery filters GetSession summaries.
const CheckpointLabelQuery = "checkpointLabelFilter"

// DecodePostContent builds a PostContent request from the request headers and
// the raw text body. Malformed headers are BadRequest.
func DecodePostContent(key domain.SessionKey, h http.Header, body []byte) (domain.PostContentRequest, error) {
	req := domain.PostContentRequest{
		Key:         key,
		ContentType: h.Get(HeaderContentType),
		Accept:      h.Get(HeaderAccept),
		InputText:   string(body),
	}
	r := &headerReader{h: h}
	r.json(HeaderSessionAttrs, &req.SessionAttributes)
	r.json(HeaderRequestAttrs, &req.RequestAttributes)
	r.json(HeaderActiveContexts, &req.ActiveContexts)
	if r.err != nil {
		return domain.PostContentRequest{}, lexerr.BadRequest("invalid PostContent headers", r.err)
	}
	return req, nil
}

// EncodePostContentRequest is the client side of DecodePostContent.
func EncodePostContentRequest(req domain.PostContentRequest) (http.Header, []byte, error) {
	w := newHeaderWriter()
	w.str(HeaderContentType, req.ContentType)
	w.str(HeaderAccept, req.Accept)
	w.json(HeaderSessionAttrs, req.SessionAttributes, req.SessionAttributes != nil)
	w.json(HeaderRequestAttrs, req.RequestAttributes, req.RequestAttributes != nil)
	w.json(HeaderActiveContexts, req.ActiveContexts, req.ActiveContexts != nil)
	if w.err != nil {
		return nil, nil, w.err
	}
	return w.h, []byte(req.InputText), nil
}

// PostContentHeaders renders a PostContent result as response headers. The
// body carries the message text.
func PostContentHeaders(res domain.PostContentResult) (http.Header, []byte, error) {
	w := newHeaderWriter()
	w.str(HeaderContentType, res.ContentType)
	w.str(HeaderIntentName, res.IntentName)
	w.json(HeaderConfidence, res.NluIntentConfidence, res.NluIntentConfidence != nil)
	w.json(HeaderAlternatives, res.AlternativeIntents, len(res.AlternativeIntents) > 0)
	w.json(HeaderSlots, res.Slots, len(res.Slots) > 0)
	w.json(HeaderSessionAttrs, res.SessionAttributes, len(res.SessionAttributes) > 0)
	w.json(HeaderSentiment, res.SentimentResponse, res.SentimentResponse != nil)
	w.plain(HeaderMessage, res.Message)
	w.str(HeaderEncodedMessage, res.EncodedMessage)
	w.str(HeaderMessageFormat, string(res.MessageFormat))
	w.str(HeaderDialogState, string(res.DialogState))
	w.str(HeaderSlotToElicit, res.SlotToElicit)
	w.plain(HeaderTranscript, res.InputTranscript)
	w.str(HeaderEncodedInput, EncodeTextHeader(res.InputTranscript))
	w.str(HeaderBotVersion, res.BotVersion)
	w.str(HeaderSessionID, res.SessionID)
	w.json(HeaderActiveContexts, res.ActiveContexts, len(res.ActiveContexts) > 0)
	if w.err != nil {
		return nil, nil, w.err
	}
	body := res.Body
	if body == nil && res.Message != "" {
		body = []byte(res.Message)
	}
	return w.h, body, nil
}

// DecodePostContentResult reads a PostContent response.
func DecodePostContentResult(h http.Header, body []byte) (domain.PostContentResult, error) {
	res := domain.PostContentResult{
		ContentType:    h.Get(HeaderContentType),
		IntentName:     h.Get(HeaderIntentName),
		EncodedMessage: h.Get(HeaderEncodedMessage),
		SlotToElicit:   h.Get(HeaderSlotToElicit),
		BotVersion:     h.Get(HeaderBotVersion),
		SessionID:      h.Get(HeaderSessionID),
		Body:           body,
	}
	r := &headerReader{h: h}
	r.json(HeaderConfidence, &res.NluIntentConfidence)
	r.json(HeaderAlternatives, &res.AlternativeIntents)
	r.json(HeaderSlots, &res.Slots)
	r.json(HeaderSessionAttrs, &res.SessionAttributes)
	r.json(HeaderSentiment, &res.SentimentResponse)
	r.json(HeaderActiveContexts, &res.ActiveContexts)
	res.Message = r.text(HeaderEncodedMessage)
	res.InputTranscript = r.text(HeaderEncodedInput)
	if r.err != nil {
		return domain.PostContentResult{}, r.err
	}
	if res.Message == "" {
		res.Message = h.Get(HeaderMessage)
	}
	if res.InputTranscript == "" {
		res.InputTranscript = h.Get(HeaderTranscript)
	}
	var err error
	if res.MessageFormat, res.DialogState, err = parseEnums(h); err != nil {
		return domain.PostContentResult{}, err
	}
	return res, nil
}

// PutSessionHeaders renders a PutSession result as response headers.
func PutSessionHeaders(res domain.PutSessionResult) (http.Header, error) {
	w := newHeaderWriter()
	w.str(HeaderContentType, res.ContentType)
	w.str(HeaderIntentName, res.IntentName)
	w.json(HeaderSlots, res.Slots, len(res.Slots) > 0)
	w.json(HeaderSessionAttrs, res.SessionAttributes, len(res.SessionAttributes) > 0)
	w.plain(HeaderMessage, res.Message)
	w.str(HeaderEncodedMessage, res.EncodedMessage)
	w.str(HeaderMessageFormat, string(res.MessageFormat))
	w.str(HeaderDialogState, string(res.DialogState))
	w.str(HeaderSlotToElicit, res.SlotToElicit)
	w.str(HeaderSessionID, res.SessionID)
	w.json(HeaderActiveContexts, res.ActiveContexts, len(res.ActiveContexts) > 0)
	if w.err != nil {
		return nil, w.err
	}
	return w.h, nil
}

// DecodePutSessionResult reads a PutSession response.
func DecodePutSessionResult(h http.Header) (domain.PutSessionResult, error) {
	res := domain.PutSessionResult{
		ContentType:    h.Get(HeaderContentType),
		IntentName:     h.Get(HeaderIntentName),
		EncodedMessage: h.Get(HeaderEncodedMessage),
		SlotToElicit:   h.Get(HeaderSlotToElicit),
		SessionID:      h.Get(HeaderSessionID),
	}
	r := &headerReader{h: h}
	r.json(HeaderSlots, &res.Slots)
	r.json(HeaderSessionAttrs, &res.SessionAttributes)
	r.json(HeaderActiveContexts, &res.ActiveContexts)
	res.Message = r.text(HeaderEncodedMessage)
	if r.err != nil {
		return domain.PutSessionResult{}, r.err
	}
	if res.Message == "" {
		res.Message = h.Get(HeaderMessage)
	}
	var err error
	if res.MessageFormat, res.DialogState, err = parseEnums(h); err != nil {
		return domain.PutSessionResult{}, err
	}
	return res, nil
}

func parseEnums(h http.Header) (domain.MessageFormat, domain.DialogState, error) {
	var (
		format domain.MessageFormat
		state  domain.DialogState
		err    error
	)
	if v := h.Get(HeaderMessageFormat); v != "" {
		if format, err = domain.ParseMessageFormat(v); err != nil {
			return "", "", fmt.Errorf("wire: header %s: %w", HeaderMessageFormat, err)
		}
	}
	if v := h.Get(HeaderDialogState); v != "" {
		if state, err = domain.ParseDialogState(v); err != nil {
			return "", "", fmt.Errorf("wire: header %s: %w", HeaderDialogState, err)
		}
	}
	return format, state, nil
}

