package domain

import (
	"fmt"
	"time"
)

// QAStatus classifies a completed chat interaction for analytics.
type QAStatus string

const (
	QAStatusSuccess  QAStatus = "SUCCESS"
	QAStatusNoAnswer QAStatus = "NO_ANSWER"
)

// QALog is the durable record of one chat interaction. Exactly one row is
// written per completed interaction, best-effort: a failed write never fails
// the user-facing response. Rows are never mutated, only bulk-purged by the
// owning user.
type QALog struct {
	ID                 string
	UserID             string
	DocumentID         string
	LinkID             string
	Question           string
	Answer             string
	Model              string
	PromptTokens       *int
	CompletionTokens   *int
	LatencyMs          *int
	Status             QAStatus
	NormalizedQuestion string
	CreatedAt          time.Time
}

// ValidateQALog validates a QALog instance
func ValidateQALog(l *QALog) error {
	if l == nil {
		return fmt.Errorf("qa log cannot be nil")
	}
	if l.ID == "" {
		return fmt.Errorf("qa log ID is required")
	}
	if l.UserID == "" {
		return fmt.Errorf("qa log UserID is required")
	}
	if l.Question == "" {
		return fmt.Errorf("qa log Question is required")
	}
	if !isValidQAStatus(l.Status) {
		return fmt.Errorf("qa log Status is invalid: %s", l.Status)
	}
	return nil
}

func isValidQAStatus(s QAStatus) bool {
	switch s {
	case QAStatusSuccess, QAStatusNoAnswer:
		return true
	}
	return false
}
