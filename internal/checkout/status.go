package checkout

type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
)

// tracker holds only in-flight submissions. A finished attempt, successful or not,
// drops its entry so the map stays bounded by concurrent checkouts.
type tracker struct {
	states map[string]Status
}

func newTracker() tracker {
	return tracker{states: make(map[string]Status)}
}

func (t tracker) get(sessionID string) Status {
	if s, ok := t.states[sessionID]; ok {
		return s
	}
	return StatusIdle
}

func (t tracker) begin(sessionID string) bool {
	if t.get(sessionID) == StatusSubmitting {
		return false
	}
	t.states[sessionID] = StatusSubmitting
	return true
}

func (t tracker) finish(sessionID string) {
	delete(t.states, sessionID)
}
