// Package catalog loads the declarative bot definitions the runtime converses
// with: intents, their sample utterances, slots and prompts.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"lex-dialog/internal/domain"
)

type Status string

const (
	StatusReady    Status = "READY"
	StatusBuilding Status = "BUILDING"
	StatusFailed   Status = "FAILED"
)

// Fulfillment selects what happens once an intent is ready for fulfillment.
type Fulfillment string

const (
	// FulfillReturnIntent hands ReadyForFulfillment back to the client.
	FulfillReturnIntent Fulfillment = "ReturnIntent"
	// FulfillCodeHook calls the fulfillment webhook.
	FulfillCodeHook Fulfillment = "CodeHook"
	// FulfillClose marks the intent Fulfilled with the conclusion statement.
	FulfillClose Fulfillment = "Close"
)

// Bot is one alias of a bot. A non-zero ConfidenceThreshold overrides the
// runtime acceptance threshold.
type Bot struct {
	Name                string   `yaml:"name"`
	Alias               string   `yaml:"alias"`
	Version             string   `yaml:"version"`
	Status              Status   `yaml:"status"`
	Locale              string   `yaml:"locale"`
	ConfidenceThreshold float64  `yaml:"confidenceThreshold"`
	ClarificationPrompt string   `yaml:"clarificationPrompt"`
	AbortStatement      string   `yaml:"abortStatement"`
	Intents             []Intent `yaml:"intents"`
}

type Intent struct {
	Name                string          `yaml:"name"`
	SampleUtterances    []string        `yaml:"sampleUtterances"`
	Slots               []Slot          `yaml:"slots"`
	ConfirmationPrompt  string          `yaml:"confirmationPrompt"`
	RejectionStatement  string          `yaml:"rejectionStatement"`
	ConclusionStatement string          `yaml:"conclusionStatement"`
	Fulfillment         Fulfillment     `yaml:"fulfillment"`
	InputContexts       []string        `yaml:"inputContexts"`
	OutputContexts      []OutputContext `yaml:"outputContexts"`
}

type Slot struct {
	Name         string      `yaml:"name"`
	Required     bool        `yaml:"required"`
	Prompt       string      `yaml:"prompt"`
	Values       []SlotValue `yaml:"values"`
	ResponseCard *Card       `yaml:"responseCard"`
}

type SlotValue struct {
	Value    string   `yaml:"value"`
	Synonyms []string `yaml:"synonyms"`
}

// Card is a single-attachment generic response card shown while a slot is
// elicited.
type Card struct {
	Title    string   `yaml:"title"`
	SubTitle string   `yaml:"subTitle"`
	ImageURL string   `yaml:"imageUrl"`
	Buttons  []Button `yaml:"buttons"`
}

type Button struct {
	Text  string `yaml:"text"`
	Value string `yaml:"value"`
}

// OutputContext is set on the session when the intent is fulfilled.
type OutputContext struct {
	Name                string `yaml:"name"`
	TimeToLiveInSeconds int    `yaml:"timeToLiveInSeconds"`
	TurnsToLive         int    `yaml:"turnsToLive"`
}

// Parse decodes a YAML or JSON bot definition and validates it. Missing
// status and fulfillment fields take their defaults.
func Parse(data []byte) (*Bot, error) {
	var b Bot
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("catalog: decode definition: %w", err)
	}
	b.applyDefaults()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Bot) applyDefaults() {
	if b.Status == "" {
		b.Status = StatusReady
	}
	for i := range b.Intents {
		if b.Intents[i].Fulfillment == "" {
			b.Intents[i].Fulfillment = FulfillReturnIntent
		}
	}
}

func (b *Bot) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return errors.New("catalog: bot name is required")
	}
	if strings.TrimSpace(b.Alias) == "" {
		return fmt.Errorf("catalog: bot %s: alias is required", b.Name)
	}
	switch b.Status {
	case StatusReady, StatusBuilding, StatusFailed:
	default:
		return fmt.Errorf("catalog: bot %s: unknown status %q", b.Name, b.Status)
	}
	if b.ConfidenceThreshold < 0 || b.ConfidenceThreshold > 1 {
		return fmt.Errorf("catalog: bot %s: confidence threshold %v outside [0,1]", b.Name, b.ConfidenceThreshold)
	}
	if len(b.Intents) == 0 {
		return fmt.Errorf("catalog: bot %s: at least one intent is required", b.Name)
	}
	seen := make(map[string]bool, len(b.Intents))
	for _, in := range b.Intents {
		if seen[in.Name] {
			return fmt.Errorf("catalog: bot %s: %w", b.Name, &domain.DuplicateKeyError{Key: in.Name})
		}
		seen[in.Name] = true
		if err := in.validate(); err != nil {
			return fmt.Errorf("catalog: bot %s: %w", b.Name, err)
		}
	}
	return nil
}

func (in Intent) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("intent name is required")
	}
	if len(in.SampleUtterances) == 0 {
		return fmt.Errorf("intent %s: at least one sample utterance is required", in.Name)
	}
	switch in.Fulfillment {
	case FulfillReturnIntent, FulfillCodeHook, FulfillClose:
	default:
		return fmt.Errorf("intent %s: unknown fulfillment %q", in.Name, in.Fulfillment)
	}
	seen := make(map[string]bool, len(in.Slots))
	for _, s := range in.Slots {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("intent %s: slot name is required", in.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("intent %s: %w", in.Name, &domain.DuplicateKeyError{Key: s.Name})
		}
		seen[s.Name] = true
		if s.Required && strings.TrimSpace(s.Prompt) == "" {
			return fmt.Errorf("intent %s: required slot %s needs a prompt", in.Name, s.Name)
		}
		if s.ResponseCard != nil {
			if err := s.ResponseCard.toDomain().Validate(); err != nil {
				return fmt.Errorf("intent %s: slot %s: %w", in.Name, s.Name, err)
			}
		}
	}
	outputs := make([]domain.ActiveContext, 0, len(in.OutputContexts))
	for _, oc := range in.OutputContexts {
		outputs = append(outputs, oc.Active())
	}
	if err := domain.ValidateActiveContexts(outputs); err != nil {
		return fmt.Errorf("intent %s: output contexts: %w", in.Name, err)
	}
	return nil
}

// Intent returns the intent named name.
func (b *Bot) Intent(name string) (*Intent, bool) {
	for i := range b.Intents {
		if b.Intents[i].Name == name {
			return &b.Intents[i], true
		}
	}
	return nil, false
}

// Eligible returns the intents whose input contexts are all active.
func (b *Bot) Eligible(active map[string]bool) []*Intent {
	var out []*Intent
	for i := range b.Intents {
		in := &b.Intents[i]
		ok := true
		for _, name := range in.InputContexts {
			if !active[name] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, in)
		}
	}
	return out
}

// Slot returns the slot named name.
func (in *Intent) Slot(name string) (*Slot, bool) {
	for i := range in.Slots {
		if in.Slots[i].Name == name {
			return &in.Slots[i], true
		}
	}
	return nil, false
}

// NeedsConfirmation reports whether the intent asks the user to confirm.
func (in *Intent) NeedsConfirmation() bool {
	return strings.TrimSpace(in.ConfirmationPrompt) != ""
}

// Enumerated reports whether the slot only accepts listed values.
func (s *Slot) Enumerated() bool {
	return len(s.Values) > 0
}

// Card returns the slot's response card in wire form, or nil.
func (s *Slot) Card() *domain.ResponseCard {
	if s.ResponseCard == nil {
		return nil
	}
	c := s.ResponseCard.toDomain()
	return &c
}

func (c *Card) toDomain() domain.ResponseCard {
	att := domain.GenericAttachment{
		Title:    c.Title,
		SubTitle: c.SubTitle,
		ImageURL: c.ImageURL,
	}
	for _, b := range c.Buttons {
		att.Buttons = append(att.Buttons, domain.Button{Text: b.Text, Value: b.Value})
	}
	return domain.ResponseCard{
		Version:            "1",
		ContentType:        domain.GenericCardContentType,
		GenericAttachments: []domain.GenericAttachment{att},
	}
}

// Active returns the output context in session form.
func (oc OutputContext) Active() domain.ActiveContext {
	return domain.ActiveContext{
		Name: oc.Name,
		TimeToLive: domain.ActiveContextTimeToLive{
			TimeToLiveInSeconds: oc.TimeToLiveInSeconds,
			TurnsToLive:         oc.TurnsToLive,
		},
		Parameters: map[string]string{},
	}
}
