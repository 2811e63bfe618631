package predict

import (
	"context"
	"time"

	"github.com/samcharles93/tabpredict/internal/logger"
)

// Event describes one finished invocation. It carries no feature values.
type Event struct {
	RequestID      string
	Source         string
	Rows           int
	MissingColumns []string
	Probabilities  bool
	Kind           ErrorKind
	Error          string
	Duration       time.Duration
	At             time.Time
}

// Recorder persists events. Record failures never fail a prediction.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

func (s *Service) record(ctx context.Context, opts Options, rows int, out *Outcome, err error, took time.Duration) {
	if s.recorder == nil {
		return
	}
	ev := Event{
		RequestID: opts.RequestID,
		Source:    opts.Source,
		Rows:      rows,
		Kind:      Kind(err),
		Duration:  took,
		At:        s.now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if out != nil {
		ev.MissingColumns = out.Report.Missing
		ev.Probabilities = out.Result != nil && out.Result.Probabilities != nil
	}
	if rerr := s.recorder.Record(ctx, ev); rerr != nil {
		logger.FromContext(ctx).Warn("recording prediction event", "error", rerr)
	}
}
