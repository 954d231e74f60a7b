package lexerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindBadRequest, http.StatusBadRequest},
		{KindBadGateway, http.StatusBadGateway},
		{KindDependencyFailed, http.StatusFailedDependency},
		{KindLimitExceeded, http.StatusTooManyRequests},
		{KindNotFound, http.StatusNotFound},
		{KindUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{KindInternalFailure, http.StatusInternalServerError},
		{Kind("Bogus"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			require.Equal(t, tc.status, HTTPStatus(tc.kind))
		})
	}
}

func TestRetryable_OnlyThrottling(t *testing.T) {
	require.True(t, Retryable(KindLimitExceeded))
	require.False(t, Retryable(KindDependencyFailed))
	require.False(t, Retryable(KindBadGateway))
	require.False(t, Retryable(KindNotFound))
}

func TestLimitExceeded_CarriesRetryAfter(t *testing.T) {
	err := LimitExceeded("too many turns", 30)
	require.Equal(t, KindLimitExceeded, err.Kind)
	require.Equal(t, 30, err.RetryAfterSeconds)
	require.Contains(t, err.Error(), "retry after 30s")

	require.Zero(t, LimitExceeded("x", -5).RetryAfterSeconds)
	require.Zero(t, DependencyFailed("hook failed", nil).RetryAfterSeconds)
}

func TestKindOf_WrappedChain(t *testing.T) {
	base := NotFound("session not found")
	wrapped := fmt.Errorf("usecase: GetSession: %w", base)
	require.Equal(t, KindNotFound, KindOf(wrapped))
	require.Equal(t, KindInternalFailure, KindOf(errors.New("boom")))
}

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", BadGateway("bot is building", nil))
	require.ErrorIs(t, err, &Error{Kind: KindBadGateway})
	require.NotErrorIs(t, err, &Error{Kind: KindNotFound})
}

func TestWrap(t *testing.T) {
	require.Nil(t, Wrap(nil))

	typed := BadRequest("bad", nil)
	require.Same(t, typed, Wrap(fmt.Errorf("outer: %w", typed)))

	untyped := errors.New("disk on fire")
	got := Wrap(untyped)
	require.Equal(t, KindInternalFailure, got.Kind)
	require.ErrorIs(t, got, untyped)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("LimitExceededException")
	require.True(t, ok)
	require.Equal(t, KindLimitExceeded, k)

	k, ok = ParseKind("SomethingElse")
	require.False(t, ok)
	require.Equal(t, KindInternalFailure, k)
}

func TestKindForStatus(t *testing.T) {
	for kind, status := range statusByKind {
		require.Equal(t, kind, KindForStatus(status))
	}
	require.Equal(t, KindInternalFailure, KindForStatus(http.StatusTeapot))
}
