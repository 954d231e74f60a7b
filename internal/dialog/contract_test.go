package dialog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lex-dialog/internal/domain"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.DialogState
		ok       bool
	}{
		{"", domain.DialogStateElicitSlot, true},
		{"", domain.DialogStateFulfilled, false},
		{domain.DialogStateElicitIntent, domain.DialogStateFailed, true},
		{domain.DialogStateElicitIntent, domain.DialogStateReadyForFulfillment, true},
		{domain.DialogStateElicitSlot, domain.DialogStateElicitIntent, false},
		{domain.DialogStateElicitSlot, domain.DialogStateConfirmIntent, true},
		{domain.DialogStateConfirmIntent, domain.DialogStateElicitIntent, true},
		{domain.DialogStateConfirmIntent, domain.DialogStateFulfilled, false},
		{domain.DialogStateReadyForFulfillment, domain.DialogStateFulfilled, true},
		{domain.DialogStateReadyForFulfillment, domain.DialogStateFailed, true},
		{domain.DialogStateFulfilled, domain.DialogStateElicitIntent, true},
		{domain.DialogStateFulfilled, domain.DialogStateFulfilled, false},
		{domain.DialogStateFailed, domain.DialogStateElicitSlot, true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%q -> %q", tc.from, tc.to)
	}
}

func TestMergeSlots(t *testing.T) {
	prev := map[string]string{"Size": "large", "Crust": "thin"}
	merged := MergeSlots(prev, map[string]string{"Size": "", "Crust": "thick", "Drink": "cola"})
	require.Equal(t, map[string]string{"Size": "large", "Crust": "thick", "Drink": "cola"}, merged)
	require.Equal(t, "thin", prev["Crust"], "prev must not be mutated")

	require.Nil(t, MergeSlots(nil, nil))
	require.Nil(t, MergeSlots(nil, map[string]string{"Size": ""}))
}

func TestCheckSlotUnion(t *testing.T) {
	prev := map[string]string{"Size": "large"}
	require.NoError(t, CheckSlotUnion(prev, map[string]string{"Size": "small", "Crust": "thin"}))

	err := CheckSlotUnion(prev, map[string]string{"Crust": "thin"})
	var shrink *SlotShrinkError
	require.ErrorAs(t, err, &shrink)
	require.Equal(t, "Size", shrink.Slot)
}

func TestResolve(t *testing.T) {
	ready := domain.NewDialogAction(domain.DialogStateReadyForFulfillment, "OrderPizza", "", map[string]string{"Size": "large"})
	ready.Message = "On its way"

	done, err := Resolve(ready, true)
	require.NoError(t, err)
	require.Equal(t, domain.DialogActionClose, done.Type)
	require.Equal(t, domain.FulfillmentFulfilled, done.FulfillmentState)
	require.Equal(t, "On its way", done.Message)

	failed, err := Resolve(ready, false)
	require.NoError(t, err)
	require.Equal(t, domain.FulfillmentFailed, failed.FulfillmentState)

	_, err = Resolve(domain.NewDialogAction(domain.DialogStateElicitSlot, "OrderPizza", "Size", nil), true)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	require.Equal(t, domain.DialogStateElicitSlot, te.From)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.OnDeny = "Shrug"
	require.Error(t, p.Validate())

	p = DefaultPolicy()
	p.MaxAttempts = 0
	require.Error(t, p.Validate())

	p = DefaultPolicy()
	p.AcceptanceThreshold = 1.2
	require.Error(t, p.Validate())

	_, err := NewEngine(p)
	require.Error(t, err)

	b, err := ParseDenyBehavior("Fail")
	require.NoError(t, err)
	require.Equal(t, DenyFail, b)
}
