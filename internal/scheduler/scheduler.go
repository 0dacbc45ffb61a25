package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"FxSentinel/internal/config"
	"FxSentinel/internal/model"
	"FxSentinel/internal/notifier"
	"FxSentinel/internal/recorder"
)

// Evaluator runs the gate sequence for one symbol.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string) (*model.Evaluation, error)
}

// Notifier delivers formatted messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// CycleReport is the outcome of one evaluation cycle.
type CycleReport struct {
	At          time.Time
	Skipped     bool // outside trading hours
	Evaluations []*model.Evaluation
	Failed      []string
	Best        *model.Decision
}

// Scheduler drives evaluation cycles from cron and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   Evaluator
	Notifier Notifier // nil disables delivery
	Recorder recorder.Recorder
	Symbols  []string
	Hours    config.TradingHours
	Ctx      context.Context

	logger  zerolog.Logger
	now     func() time.Time
	cycleMu sync.Mutex
	mu      sync.Mutex
	last    *CycleReport
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, engine Evaluator, n Notifier, rec recorder.Recorder,
	symbols []string, hours config.TradingHours, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Engine:   engine,
		Notifier: n,
		Recorder: rec,
		Symbols:  symbols,
		Hours:    hours,
		Ctx:      ctx,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

// Register schedules the evaluation cycle.
func (s *Scheduler) Register(evaluateCron string) error {
	if _, err := s.Cron.AddFunc(evaluateCron, func() { s.RunCycle(s.Ctx) }); err != nil {
		return fmt.Errorf("register evaluate task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Strs("symbols", s.Symbols).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// InTradingHours reports whether t falls inside the UTC window. A window with
// EndHour before StartHour wraps past midnight; equal hours mean all day.
func InTradingHours(h config.TradingHours, t time.Time) bool {
	if !h.Enabled || h.StartHour == h.EndHour {
		return true
	}
	hour := t.UTC().Hour()
	if h.StartHour < h.EndHour {
		return hour >= h.StartHour && hour < h.EndHour
	}
	return hour >= h.StartHour || hour < h.EndHour
}

// RunCycle evaluates every symbol in order, records each evaluation, and
// delivers the highest-confidence accepted decision. Cycles never overlap; a
// cycle triggered while another runs waits for it.
func (s *Scheduler) RunCycle(ctx context.Context) *CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	report := &CycleReport{At: s.now()}
	if !InTradingHours(s.Hours, report.At) {
		report.Skipped = true
		s.logger.Debug().Int("hour", report.At.UTC().Hour()).Msg("outside trading hours, cycle skipped")
		s.setLast(report)
		return report
	}

	for _, symbol := range s.Symbols {
		if ctx.Err() != nil {
			break
		}
		log := s.logger.With().Str("symbol", symbol).Logger()
		ev, err := s.Engine.Evaluate(ctx, symbol)
		if err != nil {
			log.Error().Err(err).Msg("evaluate")
			report.Failed = append(report.Failed, symbol)
			continue
		}
		report.Evaluations = append(report.Evaluations, ev)
		if err := s.Recorder.RecordEvaluation(ev); err != nil {
			log.Error().Err(err).Msg("record evaluation")
		}
		log.Info().
			Str("stage", string(ev.Stage)).
			Bool("accepted", ev.Accepted).
			Str("direction", string(ev.Direction)).
			Float64("score", ev.Score).
			Str("reason", ev.Reason).
			Msg("evaluated")
	}

	report.Best = selectBest(report.Evaluations)
	if best := report.Best; best != nil {
		if err := s.Recorder.RecordDecision(best); err != nil {
			s.logger.Error().Err(err).Str("decision", best.ID).Msg("record decision")
		}
		s.logger.Info().
			Str("symbol", best.Symbol).
			Str("direction", string(best.Direction)).
			Float64("confidence", best.Confidence).
			Msg("decision selected")
		s.trySend(ctx, notifier.FormatDecision(best))
	}

	s.setLast(report)
	return report
}

// selectBest returns the accepted decision with the highest confidence; the
// earliest wins a tie.
func selectBest(evals []*model.Evaluation) *model.Decision {
	var best *model.Decision
	for _, ev := range evals {
		if !ev.Accepted || ev.Decision == nil {
			continue
		}
		if best == nil || ev.Decision.Confidence > best.Confidence {
			best = ev.Decision
		}
	}
	return best
}

func (s *Scheduler) setLast(r *CycleReport) {
	s.mu.Lock()
	s.last = r
	s.mu.Unlock()
}

// LastCycle returns the most recent cycle report, or nil before the first cycle.
func (s *Scheduler) LastCycle() *CycleReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

const helpText = "Available commands:\n" +
	"• /status - last cycle summary\n" +
	"• /evaluate SYMBOL - evaluate one symbol now\n" +
	"• /run - run a full cycle now\n" +
	"• /history - recent decisions\n" +
	"• /symbols - watched symbols"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/status":
		last := s.LastCycle()
		switch {
		case last == nil:
			return "No cycle has run yet."
		case last.Skipped:
			return fmt.Sprintf("⏸ Last cycle at %s was outside trading hours.", last.At.UTC().Format("2006-01-02 15:04 UTC"))
		}
		return notifier.FormatCycleReport(last.At, last.Evaluations, last.Best)
	case "/evaluate":
		if len(fields) < 2 {
			return "Usage: /evaluate SYMBOL"
		}
		symbol := strings.ToUpper(fields[1])
		ev, err := s.Engine.Evaluate(ctx, symbol)
		if err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("on-demand evaluate")
			return fmt.Sprintf("❌ evaluate %s: %v", symbol, err)
		}
		if err := s.Recorder.RecordEvaluation(ev); err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("record evaluation")
		}
		return notifier.FormatEvaluation(ev)
	case "/run":
		r := s.RunCycle(ctx)
		if r.Skipped {
			return "⏸ Outside trading hours."
		}
		return notifier.FormatCycleReport(r.At, r.Evaluations, r.Best)
	case "/history":
		decisions, err := s.Recorder.RecentDecisions(10)
		if err != nil {
			return fmt.Sprintf("❌ history: %v", err)
		}
		return notifier.FormatDecisionHistory(decisions)
	case "/symbols":
		return "👀 Watching: " + strings.Join(s.Symbols, ", ")
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}
