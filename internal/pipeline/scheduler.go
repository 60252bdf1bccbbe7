package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/altavoxlabs/altavox-core/internal/synth"
	"github.com/altavoxlabs/altavox-core/internal/textproc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// AudioUnit is the synthesized audio for one text unit, keyed by the unit's
// original position.
type AudioUnit struct {
	Index int
	Data  []byte
}

// EffectiveConcurrency bounds the requested fan-out by the unit count and by
// max(5, ceil(units/3)), keeping outbound parallelism within what the backend
// host tolerates while guaranteeing at least three batches for large inputs.
func EffectiveConcurrency(requested, units int) int {
	if units <= 0 {
		return 0
	}
	if requested < 1 {
		requested = 1
	}
	limit := (units + 2) / 3
	if limit < 5 {
		limit = 5
	}
	eff := requested
	if eff > units {
		eff = units
	}
	if eff > limit {
		eff = limit
	}
	return eff
}

// Scheduler drives unit synthesis batch by batch. Batches run strictly in
// sequence; calls inside a batch run concurrently. The first failure aborts
// the whole run with no partial result.
type Scheduler struct {
	synth  synth.Synthesizer
	logger *slog.Logger

	unitsSynthesized metric.Int64Counter
	batchesCompleted metric.Int64Counter
	unitFailures     metric.Int64Counter
}

func NewScheduler(s synth.Synthesizer, logger *slog.Logger) *Scheduler {
	sched := &Scheduler{
		synth:  s,
		logger: logger.With(slog.String("component", "pipeline")),
	}
	meter := otel.Meter("github.com/altavoxlabs/altavox-core/internal/pipeline")
	var err error
	if sched.unitsSynthesized, err = meter.Int64Counter("speech_units_synthesized_total",
		metric.WithDescription("Text units successfully synthesized")); err != nil {
		logger.Warn("failed to create units counter", slog.String("error", err.Error()))
	}
	if sched.batchesCompleted, err = meter.Int64Counter("speech_batches_completed_total",
		metric.WithDescription("Synthesis batches completed")); err != nil {
		logger.Warn("failed to create batches counter", slog.String("error", err.Error()))
	}
	if sched.unitFailures, err = meter.Int64Counter("speech_unit_failures_total",
		metric.WithDescription("Unit synthesis failures")); err != nil {
		logger.Warn("failed to create failures counter", slog.String("error", err.Error()))
	}
	return sched
}

// RunBatches partitions units into consecutive batches of the effective
// concurrency and hands each completed batch, in input order, to emit.
func (s *Scheduler) RunBatches(ctx context.Context, units []textproc.Unit, requested int, tmpl synth.Request, emit func([]AudioUnit) error) error {
	if len(units) == 0 {
		return nil
	}
	eff := EffectiveConcurrency(requested, len(units))
	s.logger.Debug("scheduling synthesis",
		slog.Int("units", len(units)),
		slog.Int("requested", requested),
		slog.Int("effective", eff))

	for start := 0; start < len(units); start += eff {
		end := start + eff
		if end > len(units) {
			end = len(units)
		}
		batch := units[start:end]
		results := make([]AudioUnit, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, unit := range batch {
			g.Go(func() error {
				req := tmpl
				req.Text = unit.Content
				data, err := s.synth.Synthesize(gctx, req)
				if err != nil {
					if s.unitFailures != nil {
						s.unitFailures.Add(ctx, 1)
					}
					return fmt.Errorf("synthesize unit %d: %w", unit.Index, err)
				}
				results[i] = AudioUnit{Index: unit.Index, Data: data}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if s.unitsSynthesized != nil {
			s.unitsSynthesized.Add(ctx, int64(len(batch)))
		}
		if s.batchesCompleted != nil {
			s.batchesCompleted.Add(ctx, 1)
		}
		if err := emit(results); err != nil {
			return err
		}
	}
	return nil
}
