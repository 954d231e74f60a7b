package dialog

import (
	"errors"
	"fmt"
)

// DenyBehavior decides where a "no" to ConfirmIntent leads.
type DenyBehavior string

const (
	// DenyRestart drops the intent and elicits a new one.
	DenyRestart DenyBehavior = "Restart"
	// DenyFail ends the intent in Failed.
	DenyFail DenyBehavior = "Fail"
)

func ParseDenyBehavior(s string) (DenyBehavior, error) {
	switch DenyBehavior(s) {
	case DenyRestart, DenyFail:
		return DenyBehavior(s), nil
	}
	return "", fmt.Errorf("dialog: unknown deny behavior %q", s)
}

const (
	DefaultAcceptanceThreshold = 0.4
	DefaultMaxAttempts         = 3
)

type Policy struct {
	// AcceptanceThreshold is the lowest score that selects an intent. A bot
	// definition may override it.
	AcceptanceThreshold float64
	OnDeny              DenyBehavior
	// MaxAttempts bounds how many times the same prompt is asked before the
	// intent fails.
	MaxAttempts int
}

func DefaultPolicy() Policy {
	return Policy{
		AcceptanceThreshold: DefaultAcceptanceThreshold,
		OnDeny:              DenyRestart,
		MaxAttempts:         DefaultMaxAttempts,
	}
}

func (p Policy) Validate() error {
	if p.AcceptanceThreshold < 0 || p.AcceptanceThreshold > 1 {
		return fmt.Errorf("dialog: acceptance threshold %v outside [0,1]", p.AcceptanceThreshold)
	}
	if _, err := ParseDenyBehavior(string(p.OnDeny)); err != nil {
		return err
	}
	if p.MaxAttempts < 1 {
		return errors.New("dialog: max attempts must be at least 1")
	}
	return nil
}
