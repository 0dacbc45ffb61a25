package recorder

import "FxSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvaluation(_ *model.Evaluation) error      { return nil }
func (n *NoopRecorder) RecordDecision(_ *model.Decision) error          { return nil }
func (n *NoopRecorder) RecentDecisions(_ int) ([]model.Decision, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                    { return nil }
