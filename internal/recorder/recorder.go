package recorder

import "FxSentinel/internal/model"

// Recorder persists evaluations and decisions for later review.
type Recorder interface {
	RecordEvaluation(ev *model.Evaluation) error
	RecordDecision(d *model.Decision) error
	RecentDecisions(limit int) ([]model.Decision, error)
	Close() error
}
