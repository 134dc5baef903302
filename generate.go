package trafficgen

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultMinOverviewImages = 1
	defaultMaxOverviewImages = 3
)

// GeneratorOptions configure one generation run.
type GeneratorOptions struct {
	Start              time.Time
	End                time.Time
	AverageDailyVolume int
	// MinOverviewImages and MaxOverviewImages bound the per-record
	// overview count, inclusive. Zero values default to 1 and 3.
	MinOverviewImages int
	MaxOverviewImages int
}

// Generator drives the assemble-and-dispatch loop.
type Generator struct {
	assembler  *Assembler
	dispatcher *BatchDispatcher
	log        zerolog.Logger
}

func NewGenerator(assembler *Assembler, dispatcher *BatchDispatcher, log zerolog.Logger) *Generator {
	return &Generator{
		assembler:  assembler,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Run generates averageDailyVolume records per whole day in [Start, End),
// dispatching them in batches, and returns the total record count flushed.
// Cancellation is checked between records; a record is either fully
// assembled and offered or not produced at all.
func (g *Generator) Run(ctx context.Context, opts GeneratorOptions) (int, error) {

	minOverview := opts.MinOverviewImages
	maxOverview := opts.MaxOverviewImages

	if minOverview == 0 {
		minOverview = defaultMinOverviewImages
	}

	if maxOverview == 0 {
		maxOverview = defaultMaxOverviewImages
	}

	days := int(opts.End.Sub(opts.Start).Hours() / 24)
	total := opts.AverageDailyVolume * days

	if total <= 0 {
		g.log.Info().
			Time("start", opts.Start).
			Time("end", opts.End).
			Msg("empty date range, nothing to generate")
		return 0, nil
	}

	window := TimeWindow{
		Start: opts.Start,
		End:   opts.End,
	}

	g.log.Info().
		Int("total_records", total).
		Int("days", days).
		Int("daily_volume", opts.AverageDailyVolume).
		Msg("starting generation")

	for i := 0; i < total; i++ {

		select {
		case <-ctx.Done():
			return g.dispatcher.Count(), ctx.Err()
		default:
		}

		record, err := g.assembler.Assemble(ctx, window, minOverview, maxOverview)

		if err != nil {
			return g.dispatcher.Count(), err
		}

		err = g.dispatcher.Offer(ctx, record)

		if err != nil {
			return g.dispatcher.Count(), err
		}
	}

	err := g.dispatcher.Drain(ctx)

	if err != nil {
		return g.dispatcher.Count(), err
	}

	g.log.Info().
		Int("total_records", g.dispatcher.Count()).
		Int("batches", g.dispatcher.Flushes()).
		Msg("generation complete")

	return g.dispatcher.Count(), nil
}
