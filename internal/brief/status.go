package brief

import "time"

// Status is the orchestrator's lifecycle state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusFetching   Status = "fetching"
	StatusSelecting  Status = "selecting"
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Progress milestones per status. Generating covers three externally visible
// steps (script, audio, persist) so it appears three times on the progress
// axis.
const (
	progressIdle      = 0
	progressFetching  = 0
	progressSelecting = 20
	progressScript    = 40
	progressAudio     = 60
	progressPersist   = 90
	progressReady     = 100
)

// validNext encodes the legal forward transitions. Error is reachable from
// every working state, and both outcomes revert to Idle once the run
// completes; each run is independent.
var validNext = map[Status][]Status{
	StatusIdle:       {StatusFetching},
	StatusFetching:   {StatusSelecting, StatusError},
	StatusSelecting:  {StatusGenerating, StatusError},
	StatusGenerating: {StatusReady, StatusError},
	StatusReady:      {StatusIdle},
	StatusError:      {StatusIdle},
}

func canTransition(from, to Status) bool {
	for _, s := range validNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusEvent is one progress notification. RunID ties events of the same
// generation run together across subscribers.
type StatusEvent struct {
	RunID    string    `json:"run_id"`
	Status   Status    `json:"status"`
	Progress int       `json:"progress"`
	At       time.Time `json:"at"`
}
