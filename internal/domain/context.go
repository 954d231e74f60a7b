package domain

import "time"

// ActiveContextTimeToLive bounds how long a context survives without being
// refreshed, by wall-clock seconds and by conversation turns.
type ActiveContextTimeToLive struct {
	TimeToLiveInSeconds int `json:"timeToLiveInSeconds"`
	TurnsToLive         int `json:"turnsToLive"`
}

func (t ActiveContextTimeToLive) Validate() error {
	if t.TimeToLiveInSeconds < MinTimeToLiveSeconds || t.TimeToLiveInSeconds > MaxTimeToLiveSeconds {
		return invalid("timeToLive.timeToLiveInSeconds", "%d outside [%d,%d]", t.TimeToLiveInSeconds, MinTimeToLiveSeconds, MaxTimeToLiveSeconds)
	}
	if t.TurnsToLive < MinTurnsToLive || t.TurnsToLive > MaxTurnsToLive {
		return invalid("timeToLive.turnsToLive", "%d outside [%d,%d]", t.TurnsToLive, MinTurnsToLive, MaxTurnsToLive)
	}
	return nil
}

// Duration returns the wall-clock lifetime.
func (t ActiveContextTimeToLive) Duration() time.Duration {
	return time.Duration(t.TimeToLiveInSeconds) * time.Second
}

type ActiveContext struct {
	Name       string                  `json:"name"`
	TimeToLive ActiveContextTimeToLive `json:"timeToLive"`
	Parameters map[string]string       `json:"parameters"`
}

func (c ActiveContext) Validate() error {
	if err := checkLength("activeContext.name", c.Name, 1, 100); err != nil {
		return err
	}
	if err := checkPattern("activeContext.name", c.Name, contextNamePattern); err != nil {
		return err
	}
	if err := c.TimeToLive.Validate(); err != nil {
		return err
	}
	if len(c.Parameters) > MaxContextParameters {
		return invalid("activeContext.parameters", "%d entries exceed %d", len(c.Parameters), MaxContextParameters)
	}
	return nil
}

// ValidateActiveContexts checks every context and rejects lists that are too
// long or that name the same context twice.
func ValidateActiveContexts(list []ActiveContext) error {
	if len(list) > MaxActiveContexts {
		return invalid("activeContexts", "%d entries exceed %d", len(list), MaxActiveContexts)
	}
	seen := make(map[string]struct{}, len(list))
	for _, c := range list {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Name]; dup {
			return &DuplicateKeyError{Key: c.Name}
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// TrackedContext is the server-side form of an active context: the configured
// time to live plus the counters consumed since the last refresh.
type TrackedContext struct {
	ActiveContext
	RefreshedAt    time.Time `json:"refreshedAt"`
	RemainingTurns int       `json:"remainingTurns"`
}

// Public returns the context as reported to clients.
func (t TrackedContext) Public() ActiveContext {
	return t.ActiveContext
}
