package events

import "time"

type Sport string

const (
	SportSoccer     Sport = "soccer"
	SportBasketball Sport = "basketball"
)

// Event is the envelope that flows through the event bus.
// Every pipeline event (odds captured, picks generated, bet settled) is wrapped in one.
type Event struct {
	ID        string
	Type      EventType
	Sport     Sport
	League    string
	MatchID   string
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// Ingestion events
	EventOddsCaptured    EventType = "odds_captured"
	EventResultsIngested EventType = "results_ingested"
	// Prediction run events
	EventPicksGenerated EventType = "picks_generated"
	// Settlement events
	EventPickSettled EventType = "pick_settled"
	EventBetSettled  EventType = "bet_settled"
	// Monitoring events
	EventDriftFlagged EventType = "drift_flagged"
	EventRunAlert     EventType = "run_alert"
)
