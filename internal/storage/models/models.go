package models

import "time"

// QuestionRecord is one answered or escalated question, persisted for the
// history endpoint. TicketID is empty unless the question escalated.
type QuestionRecord struct {
	ID              string
	Question        string
	Answer          string
	Decision        string
	TicketID        string
	ChunksRetrieved int
	LatencyMS       int
	CreatedAt       time.Time
}

// EvaluationResult is the outcome of one golden-dataset case run through
// the full pipeline.
type EvaluationResult struct {
	ID               int64
	Question         string
	ExpectedDecision string
	ActualDecision   string
	Passed           bool
	Answer           string
	TicketID         string
	LatencyMS        int
	CreatedAt        time.Time
}
