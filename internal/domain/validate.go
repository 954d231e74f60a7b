package domain

import (
	"regexp"
	"unicode/utf8"
)

const (
	MaxInputTextLength       = 1024
	MaxMessageLength         = 1024
	MaxEncodedMessageLength  = 1366
	MaxRecentIntentSummaries = 3
	MaxActiveContexts        = 20
	MaxContextParameters     = 10
	MinTimeToLiveSeconds     = 5
	MaxTimeToLiveSeconds     = 86400
	MinTurnsToLive           = 1
	MaxTurnsToLive           = 20
)

var (
	botNamePattern         = regexp.MustCompile(`^([A-Za-z]_?)+$`)
	userIDPattern          = regexp.MustCompile(`^[0-9a-zA-Z._:-]+$`)
	contextNamePattern     = regexp.MustCompile(`^([A-Za-z]_?)+$`)
	checkpointLabelPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
)

func checkLength(field, v string, min, max int) error {
	n := utf8.RuneCountInString(v)
	if n < min || n > max {
		return invalid(field, "length %d outside [%d,%d]", n, min, max)
	}
	return nil
}

func checkPattern(field, v string, re *regexp.Regexp) error {
	if !re.MatchString(v) {
		return invalid(field, "must match %s", re.String())
	}
	return nil
}

// Validate checks botName, botAlias and userId as sent on every operation.
func (k SessionKey) Validate() error {
	if err := checkLength("botName", k.BotName, 2, 50); err != nil {
		return err
	}
	if err := checkPattern("botName", k.BotName, botNamePattern); err != nil {
		return err
	}
	if k.BotAlias == "" {
		return invalid("botAlias", "required")
	}
	if err := checkLength("userId", k.UserID, 2, 100); err != nil {
		return err
	}
	return checkPattern("userId", k.UserID, userIDPattern)
}

func validateCheckpointLabel(field, label string) error {
	if err := checkLength(field, label, 1, 255); err != nil {
		return err
	}
	return checkPattern(field, label, checkpointLabelPattern)
}

func validateMessage(field, msg string) error {
	if msg == "" {
		return nil
	}
	return checkLength(field, msg, 1, MaxMessageLength)
}
