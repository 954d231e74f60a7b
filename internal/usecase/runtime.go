package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lex-dialog/internal/catalog"
	"lex-dialog/internal/contexts"
	"lex-dialog/internal/dialog"
	"lex-dialog/internal/domain"
	"lex-dialog/internal/keylock"
	"lex-dialog/internal/lexerr"
	"lex-dialog/internal/log"
	"lex-dialog/internal/metrics"
	"lex-dialog/internal/ranking"
	"lex-dialog/internal/recognizer"
	"lex-dialog/internal/repository"
)

const (
	opPostText      = "PostText"
	opPostContent   = "PostContent"
	opGetSession    = "GetSession"
	opPutSession    = "PutSession"
	opDeleteSession = "DeleteSession"

	defaultRetryAfter = 60 * time.Second
)

type BotResolver interface {
	Resolve(ctx context.Context, bot, alias string) (*catalog.Bot, error)
}

type SessionStore interface {
	Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error)
	Put(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, key domain.SessionKey) (*domain.Session, error)
}

// Fulfiller runs the fulfillment code hook of intents configured with one.
type Fulfiller interface {
	Fulfill(ctx context.Context, event domain.CodeHookEvent) (domain.CodeHookResponse, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// RuntimeService runs the dialog operations over a bot catalog and a session
// store. Operations on the same session key never interleave.
type RuntimeService struct {
	bots   BotResolver
	store  SessionStore
	engine *dialog.Engine
	hook   Fulfiller
	logger zerolog.Logger
	now    func() time.Time
	locks  *keylock.Mutex

	maxTurns   int
	retryAfter time.Duration
}

type Option func(*RuntimeService)

// WithFulfiller sets the code hook used by CodeHook intents. Without one such
// intents fail with DependencyFailed.
func WithFulfiller(f Fulfiller) Option {
	return func(s *RuntimeService) { s.hook = f }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *RuntimeService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *RuntimeService) { s.now = now }
}

// WithTurnLimit caps the user turns of one session. Further turns fail with
// LimitExceeded until the session is deleted or expires.
func WithTurnLimit(maxTurns int, retryAfter time.Duration) Option {
	return func(s *RuntimeService) {
		s.maxTurns = maxTurns
		s.retryAfter = retryAfter
	}
}

func NewRuntimeService(bots BotResolver, store SessionStore, engine *dialog.Engine, opts ...Option) (*RuntimeService, error) {
	if bots == nil {
		return nil, errors.New("usecase: bot resolver must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if engine == nil {
		return nil, errors.New("usecase: dialog engine must not be nil")
	}
	s := &RuntimeService{
		bots:   bots,
		store:  store,
		engine: engine,
		logger: log.WithComponent("runtime"),
		now:    time.Now,
		locks:  keylock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxTurns < 0 {
		return nil, errors.New("usecase: turn limit must not be negative")
	}
	if s.retryAfter <= 0 {
		s.retryAfter = defaultRetryAfter
	}
	return s, nil
}

// turnRequest is the part of PostText and PostContent that drives a turn.
type turnRequest struct {
	key               domain.SessionKey
	text              string
	sessionAttributes map[string]string
	requestAttributes map[string]string
	activeContexts    []domain.ActiveContext
}

type turnResult struct {
	bot          *catalog.Bot
	session      *domain.Session
	outcome      dialog.Outcome
	reply        reply
	alternatives []domain.PredictedIntent
}

func (s *RuntimeService) PostText(ctx context.Context, req domain.PostTextRequest) (domain.PostTextResult, error) {
	if err := req.Validate(); err != nil {
		return domain.PostTextResult{}, s.fail(ctx, opPostText, lexerr.BadRequest("invalid PostText request", err))
	}
	t, err := s.runTurn(ctx, turnRequest{
		key:               req.Key,
		text:              req.InputText,
		sessionAttributes: req.SessionAttributes,
		requestAttributes: req.RequestAttributes,
		activeContexts:    req.ActiveContexts,
	})
	if err != nil {
		return domain.PostTextResult{}, s.fail(ctx, opPostText, err)
	}
	a := t.session.DialogAction
	s.succeed(ctx, opPostText, t.session)
	return domain.PostTextResult{
		IntentName:          a.IntentName,
		NluIntentConfidence: t.outcome.Confidence,
		AlternativeIntents:  t.alternatives,
		Slots:               domain.CopyMap(a.Slots),
		SessionAttributes:   domain.CopyMap(t.session.SessionAttributes),
		Message:             a.Message,
		MessageFormat:       a.MessageFormat,
		DialogState:         t.outcome.State(),
		SlotToElicit:        a.SlotToElicit,
		ResponseCard:        t.reply.card,
		SessionID:           t.session.SessionID,
		BotVersion:          t.bot.Version,
		ActiveContexts:      t.session.PublicContexts(),
	}, nil
}

// PostContent runs a turn for text content. Audio is not accepted.
func (s *RuntimeService) PostContent(ctx context.Context, req domain.PostContentRequest) (domain.PostContentResult, error) {
	if err := req.Validate(); err != nil {
		return domain.PostContentResult{}, s.fail(ctx, opPostContent, lexerr.BadRequest("invalid PostContent request", err))
	}
	if !domain.IsText(req.ContentType) {
		return domain.PostContentResult{}, s.fail(ctx, opPostContent,
			lexerr.New(lexerr.KindUnsupportedMediaType, fmt.Sprintf("content type %q is not supported", req.ContentType), nil))
	}
	if err := checkAccept(req.Accept); err != nil {
		return domain.PostContentResult{}, s.fail(ctx, opPostContent, err)
	}
	text := strings.TrimSpace(req.InputText)
	if err := (domain.PostTextRequest{Key: req.Key, InputText: text}).Validate(); err != nil {
		return domain.PostContentResult{}, s.fail(ctx, opPostContent, lexerr.BadRequest("invalid PostContent input", err))
	}
	t, err := s.runTurn(ctx, turnRequest{
		key:               req.Key,
		text:              text,
		sessionAttributes: req.SessionAttributes,
		requestAttributes: req.RequestAttributes,
		activeContexts:    req.ActiveContexts,
	})
	if err != nil {
		return domain.PostContentResult{}, s.fail(ctx, opPostContent, err)
	}
	a := t.session.DialogAction
	s.succeed(ctx, opPostContent, t.session)
	return domain.PostContentResult{
		ContentType:         domain.ContentTypeText,
		IntentName:          a.IntentName,
		NluIntentConfidence: t.outcome.Confidence,
		AlternativeIntents:  t.alternatives,
		Slots:               domain.CopyMap(a.Slots),
		SessionAttributes:   domain.CopyMap(t.session.SessionAttributes),
		Message:             a.Message,
		EncodedMessage:      encodeMessage(a.Message),
		MessageFormat:       a.MessageFormat,
		DialogState:         t.outcome.State(),
		SlotToElicit:        a.SlotToElicit,
		InputTranscript:     text,
		BotVersion:          t.bot.Version,
		SessionID:           t.session.SessionID,
		ActiveContexts:      t.session.PublicContexts(),
	}, nil
}

func (s *RuntimeService) GetSession(ctx context.Context, req domain.GetSessionRequest) (domain.GetSessionResult, error) {
	if err := req.Validate(); err != nil {
		return domain.GetSessionResult{}, s.fail(ctx, opGetSession, lexerr.BadRequest("invalid GetSession request", err))
	}
	unlock := s.locks.Lock(req.Key)
	defer unlock()

	sess, err := s.load(ctx, req.Key)
	if err != nil {
		return domain.GetSessionResult{}, s.fail(ctx, opGetSession, err)
	}
	sess.ActiveContexts = contexts.Live(s.now(), sess.ActiveContexts)

	var summaries []domain.IntentSummary
	for _, sum := range sess.RecentIntentSummaryView {
		if req.CheckpointLabelFilter == "" || sum.CheckpointLabel == req.CheckpointLabelFilter {
			summaries = append(summaries, sum)
		}
	}
	res := domain.GetSessionResult{
		RecentIntentSummaryView: summaries,
		SessionAttributes:       domain.CopyMap(sess.SessionAttributes),
		SessionID:               sess.SessionID,
		ActiveContexts:          sess.PublicContexts(),
	}
	if sess.DialogAction.Type != "" {
		a := sess.DialogAction
		a.Slots = domain.CopyMap(a.Slots)
		res.DialogAction = &a
	}
	s.succeed(ctx, opGetSession, sess)
	return res, nil
}

// PutSession replaces the parts of the session named in the request. A
// Delegate dialog action lets the engine choose the next step for the given
// intent and slots.
func (s *RuntimeService) PutSession(ctx context.Context, req domain.PutSessionRequest) (domain.PutSessionResult, error) {
	if err := req.Validate(); err != nil {
		return domain.PutSessionResult{}, s.fail(ctx, opPutSession, lexerr.BadRequest("invalid PutSession request", err))
	}
	if err := checkAccept(req.Accept); err != nil {
		return domain.PutSessionResult{}, s.fail(ctx, opPutSession, err)
	}
	unlock := s.locks.Lock(req.Key)
	defer unlock()

	bot, err := s.bots.Resolve(ctx, req.Key.BotName, req.Key.BotAlias)
	if err != nil {
		return domain.PutSessionResult{}, s.fail(ctx, opPutSession, err)
	}
	now := s.now()
	sess, err := s.loadOrCreate(ctx, req.Key, now)
	if err != nil {
		return domain.PutSessionResult{}, s.fail(ctx, opPutSession, err)
	}
	sess.ActiveContexts = contexts.Live(now, sess.ActiveContexts)

	if req.SessionAttributes != nil {
		sess.SessionAttributes = domain.CopyMap(req.SessionAttributes)
	}
	if req.ActiveContexts != nil {
		sess.ActiveContexts = contexts.Track(req.ActiveContexts, now)
	}
	if req.RecentIntentSummaryView != nil {
		sess.RecentIntentSummaryView = append([]domain.IntentSummary(nil), req.RecentIntentSummaryView...)
	}

	if req.DialogAction != nil {
		a, err := s.putAction(bot, *req.DialogAction)
		if err != nil {
			return domain.PutSessionResult{}, s.fail(ctx, opPutSession, err)
		}
		if a.Message == "" {
			a = withMessage(a, replyFor(bot, a, dialog.ReasonNone, domain.DialogAction{}).message)
		}
		sess.DialogAction = a
		sess.ElicitAttempts = 0
		if req.RecentIntentSummaryView == nil {
			sess.PushSummary(domain.SummaryOf(a, domain.ConfirmationNone))
		}
	}
	if sess.DialogAction.Type == "" {
		sess.DialogAction = withMessage(domain.NewDialogAction(domain.DialogStateElicitIntent, "", "", nil), "")
	}
	sess.UpdatedAt = now
	if err := s.store.Put(ctx, sess); err != nil {
		return domain.PutSessionResult{}, s.fail(ctx, opPutSession, lexerr.Internal("save session", err))
	}

	a := sess.DialogAction
	state, _ := a.State()
	s.succeed(ctx, opPutSession, sess)
	return domain.PutSessionResult{
		ContentType:       domain.ContentTypeText,
		IntentName:        a.IntentName,
		Slots:             domain.CopyMap(a.Slots),
		SessionAttributes: domain.CopyMap(sess.SessionAttributes),
		Message:           a.Message,
		EncodedMessage:    encodeMessage(a.Message),
		MessageFormat:     a.MessageFormat,
		DialogState:       state,
		SlotToElicit:      a.SlotToElicit,
		SessionID:         sess.SessionID,
		ActiveContexts:    sess.PublicContexts(),
	}, nil
}

// putAction resolves a client-supplied dialog action against the bot.
func (s *RuntimeService) putAction(bot *catalog.Bot, a domain.DialogAction) (domain.DialogAction, error) {
	if a.Type == domain.DialogActionDelegate {
		out, err := s.engine.Delegate(bot, a.IntentName, a.Slots, domain.ConfirmationNone)
		if err != nil {
			return domain.DialogAction{}, lexerr.BadRequest("cannot delegate dialog action", err)
		}
		return out.Action, nil
	}
	if a.IntentName == "" {
		return a, nil
	}
	intent, ok := bot.Intent(a.IntentName)
	if !ok {
		return domain.DialogAction{}, lexerr.BadRequest(fmt.Sprintf("bot %s has no intent %s", bot.Name, a.IntentName), nil)
	}
	if a.SlotToElicit != "" {
		if _, ok := intent.Slot(a.SlotToElicit); !ok {
			return domain.DialogAction{}, lexerr.BadRequest(fmt.Sprintf("intent %s has no slot %s", intent.Name, a.SlotToElicit), nil)
		}
	}
	a.Slots = domain.CopyMap(a.Slots)
	return a, nil
}

func (s *RuntimeService) DeleteSession(ctx context.Context, req domain.DeleteSessionRequest) (domain.DeleteSessionResult, error) {
	if err := req.Validate(); err != nil {
		return domain.DeleteSessionResult{}, s.fail(ctx, opDeleteSession, lexerr.BadRequest("invalid DeleteSession request", err))
	}
	unlock := s.locks.Lock(req.Key)
	defer unlock()

	old, err := s.store.Delete(ctx, req.Key)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.DeleteSessionResult{}, s.fail(ctx, opDeleteSession, lexerr.NotFound("session not found"))
	}
	if err != nil {
		return domain.DeleteSessionResult{}, s.fail(ctx, opDeleteSession, lexerr.Internal("delete session", err))
	}
	metrics.RecordTurn(opDeleteSession, "")
	s.logger.Info().Str("bot", req.Key.BotName).Str("alias", req.Key.BotAlias).Str("session_id", old.SessionID).Msg("session deleted")
	return domain.DeleteSessionResult{
		BotName:   req.Key.BotName,
		BotAlias:  req.Key.BotAlias,
		UserID:    req.Key.UserID,
		SessionID: old.SessionID,
	}, nil
}

// runTurn applies one user utterance to the session under the key's lock.
func (s *RuntimeService) runTurn(ctx context.Context, req turnRequest) (turnResult, error) {
	unlock := s.locks.Lock(req.key)
	defer unlock()

	bot, err := s.bots.Resolve(ctx, req.key.BotName, req.key.BotAlias)
	if err != nil {
		return turnResult{}, err
	}
	now := s.now()
	sess, err := s.loadOrCreate(ctx, req.key, now)
	if err != nil {
		return turnResult{}, err
	}
	if s.maxTurns > 0 && sess.Turn >= s.maxTurns {
		return turnResult{}, lexerr.LimitExceeded(
			fmt.Sprintf("session reached %d turns", s.maxTurns), int(s.retryAfter/time.Second))
	}

	live := contexts.Live(now, sess.ActiveContexts)
	expired := len(sess.ActiveContexts) - len(live)
	if req.sessionAttributes != nil {
		sess.SessionAttributes = domain.CopyMap(req.sessionAttributes)
	}
	refreshed := make(map[string]bool)
	if req.activeContexts != nil {
		live = contexts.Track(req.activeContexts, now)
		for _, c := range req.activeContexts {
			refreshed[c.Name] = true
		}
	}

	current := sess.DialogAction
	rec, err := recognizer.Recognize(bot.Eligible(contexts.Names(live)), req.text)
	if err != nil {
		return turnResult{}, lexerr.Internal("recognize utterance", err)
	}
	var extracted map[string]string
	if in, ok := bot.Intent(current.IntentName); ok {
		extracted = recognizer.ExtractSlots(in, req.text)
	}
	out, err := s.engine.Next(bot, dialog.TurnInput{
		Current:     current,
		Candidates:  rec.Candidates,
		Extracted:   extracted,
		Affirmation: rec.Confirmation,
		Utterance:   req.text,
		Attempts:    sess.ElicitAttempts,
	})
	if err != nil {
		return turnResult{}, lexerr.Internal("advance dialog", err)
	}

	action := out.Action
	r := replyFor(bot, action, out.Reason, current)
	if out.State() == domain.DialogStateReadyForFulfillment && out.Intent != nil {
		action, r, err = s.fulfill(ctx, bot, sess, out, req)
		if err != nil {
			return turnResult{}, err
		}
		out.Action = action
	}
	sess.DialogAction = withMessage(action, r.message)

	if out.Intent != nil {
		for _, name := range out.Intent.InputContexts {
			refreshed[name] = true
		}
		if out.State() == domain.DialogStateFulfilled {
			for _, oc := range out.Intent.OutputContexts {
				c := oc.Active()
				if len(action.Slots) <= domain.MaxContextParameters {
					c.Parameters = domain.CopyMap(action.Slots)
				}
				live = contexts.Set(live, c, now)
				refreshed[c.Name] = true
			}
		}
	}
	live, dropped := contexts.Advance(now, live, refreshed)
	metrics.RecordContextsExpired(expired + len(dropped))
	sess.ActiveContexts = live

	sess.ElicitAttempts = out.Attempts
	if out.State().Terminal() {
		sess.ElicitAttempts = 0
	}
	sess.PushSummary(domain.SummaryOf(action, out.Confirmation))
	sess.Turn++
	sess.UpdatedAt = now
	if err := s.store.Put(ctx, sess); err != nil {
		return turnResult{}, lexerr.Internal("save session", err)
	}

	return turnResult{
		bot:          bot,
		session:      sess,
		outcome:      out,
		reply:        r,
		alternatives: ranking.Alternatives(rec.Candidates, action.IntentName, ranking.MaxAlternatives),
	}, nil
}

// fulfill completes an intent that reached ReadyForFulfillment according to
// its fulfillment mode.
func (s *RuntimeService) fulfill(ctx context.Context, bot *catalog.Bot, sess *domain.Session, out dialog.Outcome, req turnRequest) (domain.DialogAction, reply, error) {
	switch out.Intent.Fulfillment {
	case catalog.FulfillClose:
		a, err := dialog.Resolve(out.Action, true)
		if err != nil {
			return domain.DialogAction{}, reply{}, lexerr.Internal("resolve fulfillment", err)
		}
		return a, replyFor(bot, a, dialog.ReasonNone, domain.DialogAction{}), nil
	case catalog.FulfillCodeHook:
	default:
		return out.Action, reply{}, nil
	}

	if s.hook == nil {
		metrics.RecordFulfillment("error")
		return domain.DialogAction{}, reply{}, lexerr.DependencyFailed(
			fmt.Sprintf("intent %s has no fulfillment code hook configured", out.Intent.Name), nil)
	}
	resp, err := s.hook.Fulfill(ctx, domain.CodeHookEvent{
		MessageVersion:    "1.0",
		InvocationSource:  domain.InvocationFulfillment,
		UserID:            req.key.UserID,
		InputTranscript:   req.text,
		SessionAttributes: domain.CopyMap(sess.SessionAttributes),
		RequestAttributes: domain.CopyMap(req.requestAttributes),
		Bot:               domain.CodeHookBot{Name: bot.Name, Alias: bot.Alias, Version: bot.Version},
		OutputDialogMode:  "Text",
		CurrentIntent: domain.CodeHookIntent{
			Name:               out.Intent.Name,
			Slots:              domain.CopyMap(out.Action.Slots),
			ConfirmationStatus: out.Confirmation,
		},
		ActiveContexts: sess.PublicContexts(),
	})
	if err != nil {
		metrics.RecordFulfillment("error")
		msg := "fulfillment code hook failed"
		if status, ok := upstreamStatusCode(err); ok {
			msg = fmt.Sprintf("fulfillment code hook returned status %d", status)
		}
		return domain.DialogAction{}, reply{}, lexerr.DependencyFailed(msg, err)
	}

	fulfilled := resp.DialogAction.FulfillmentState == domain.FulfillmentFulfilled
	if fulfilled {
		metrics.RecordFulfillment("fulfilled")
	} else {
		metrics.RecordFulfillment("failed")
	}
	a, err := dialog.Resolve(out.Action, fulfilled)
	if err != nil {
		return domain.DialogAction{}, reply{}, lexerr.Internal("resolve fulfillment", err)
	}
	if resp.SessionAttributes != nil {
		sess.SessionAttributes = domain.CopyMap(resp.SessionAttributes)
	}
	r := replyFor(bot, a, dialog.ReasonNone, domain.DialogAction{})
	if m := resp.DialogAction.Message; m != nil && m.Content != "" {
		r.message = m.Content
	}
	return a, r, nil
}

func (s *RuntimeService) load(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, lexerr.NotFound("session not found")
	}
	if err != nil {
		return nil, lexerr.Internal("load session", err)
	}
	return sess, nil
}

func (s *RuntimeService) loadOrCreate(ctx context.Context, key domain.SessionKey, now time.Time) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, key)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, lexerr.Internal("load session", err)
	}
	return &domain.Session{
		Key:       key,
		SessionID: newUUID(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *RuntimeService) succeed(ctx context.Context, op string, sess *domain.Session) {
	state, _ := sess.DialogAction.State()
	metrics.RecordTurn(op, string(state))
	l := log.WithContext(ctx, s.logger)
	l.Info().
		Str("operation", op).
		Str("bot", sess.Key.BotName).
		Str("alias", sess.Key.BotAlias).
		Str("session_id", sess.SessionID).
		Str("dialog_state", string(state)).
		Str("intent", sess.DialogAction.IntentName).
		Int("turn", sess.Turn).
		Msg("dialog operation")
}

// fail converts err to the typed runtime failure and records it.
func (s *RuntimeService) fail(ctx context.Context, op string, err error) error {
	lexErr := lexerr.Wrap(err)
	metrics.RecordError(op, string(lexErr.Kind))
	l := log.WithContext(ctx, s.logger)
	ev := l.Warn()
	if lexErr.Kind == lexerr.KindInternalFailure || lexErr.Kind == lexerr.KindDependencyFailed {
		ev = l.Error()
	}
	ev.Err(lexErr).Str("operation", op).Str("kind", string(lexErr.Kind)).Msg("dialog operation failed")
	return lexErr
}

// checkAccept allows text responses only.
func checkAccept(accept string) error {
	accept = strings.TrimSpace(accept)
	if accept == "" || accept == "*/*" || domain.IsText(accept) {
		return nil
	}
	return lexerr.New(lexerr.KindNotAcceptable, fmt.Sprintf("accept %q is not supported", accept), nil)
}

func encodeMessage(msg string) string {
	if msg == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(msg))
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
