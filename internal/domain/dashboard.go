package domain

import "time"

// KeywordCount is an aggregated question intent and how often it was asked.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// DailyCount is the number of interactions on one calendar day (UTC).
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// FailedQuestion is an unanswered intent, grouped by normalized question.
type FailedQuestion struct {
	NormalizedQuestion string    `json:"normalized_question"`
	Count              int       `json:"count"`
	LastAskedAt        time.Time `json:"last_asked_at"`
}
