// Package engine runs one generation pass per tick: it draws a time factor per
// LPAR, runs every generator against it and hands the assembled batch to the
// storage fan-out.
package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rmf-simulator/internal/baseline"
	"rmf-simulator/internal/generator"
	"rmf-simulator/internal/model"
	"rmf-simulator/internal/sink"
	"rmf-simulator/internal/timefactor"
)

var ErrTickInProgress = errors.New("tick already in progress")

var errGeneration = errors.New("generation defect")

// localStreamSalt separates the local-noise stream from the factor stream of the same LPAR.
const localStreamSalt = 0x9e3779b97f4a7c15

type BatchWriter interface {
	Write(ctx context.Context, batch model.MetricBatch) map[string]sink.Result
}

type BatchResult struct {
	BatchID      string                 `json:"batch_id"`
	Tick         time.Time              `json:"tick"`
	Samples      int                    `json:"samples"`
	DroppedLPARs []string               `json:"dropped_lpars,omitempty"`
	Sinks        map[string]sink.Result `json:"sinks"`
}

// Failed returns the names of sinks whose write failed.
func (r BatchResult) Failed() []string {
	var out []string
	for name, res := range r.Sinks {
		if !res.OK() {
			out = append(out, name)
		}
	}
	return out
}

type Options struct {
	// Seed feeds every per-LPAR stream. Zero picks a random seed.
	Seed       uint64
	Clock      func() time.Time
	Generators []generator.Generator
}

type Engine struct {
	registry *baseline.Registry
	factors  *timefactor.Model
	gens     []generator.Generator
	out      BatchWriter
	logger   *slog.Logger
	now      func() time.Time
	seed     uint64

	streams  map[string]*lparStreams
	inFlight atomic.Bool
}

// lparStreams are the two random sources of one LPAR. The mutex keeps a
// single generation pass at a time on them.
type lparStreams struct {
	mu     sync.Mutex
	factor *rand.Rand
	local  *rand.Rand
}

func New(registry *baseline.Registry, factors *timefactor.Model, out BatchWriter, opts Options, logger *slog.Logger) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if len(opts.Generators) == 0 {
		opts.Generators = generator.Default()
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}

	e := &Engine{
		registry: registry,
		factors:  factors,
		gens:     opts.Generators,
		out:      out,
		logger:   logger,
		now:      opts.Clock,
		seed:     opts.Seed,
		streams:  make(map[string]*lparStreams, registry.Len()),
	}
	for _, name := range registry.Names() {
		h := nameHash(name)
		e.streams[name] = &lparStreams{
			factor: rand.New(rand.NewPCG(opts.Seed, h)),
			local:  rand.New(rand.NewPCG(opts.Seed^localStreamSalt, h)),
		}
	}
	return e
}

func (e *Engine) Seed() uint64 {
	return e.seed
}

// GenerateAndStore runs one tick. Sink failures are reported in the result and
// never fail the call; only configuration defects and an overlapping call do.
func (e *Engine) GenerateAndStore(ctx context.Context) (BatchResult, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return BatchResult{}, ErrTickInProgress
	}
	defer e.inFlight.Store(false)

	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	tick := e.now()
	batch, dropped, err := e.Generate(tick)
	if err != nil {
		return BatchResult{}, err
	}
	batch.ID = uuid.NewString()

	res := BatchResult{
		BatchID:      batch.ID,
		Tick:         tick,
		Samples:      batch.Len(),
		DroppedLPARs: dropped,
	}
	res.Sinks = e.out.Write(ctx, batch)
	return res, nil
}

// Generate builds the batch for tick without storing it. LPARs are generated
// in parallel; the batch keeps registry order then generator order.
func (e *Engine) Generate(tick time.Time) (model.MetricBatch, []string, error) {
	names := e.registry.Names()
	perLPAR := make([][]model.MetricSample, len(names))
	failed := make([]bool, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			samples, err := e.generateLPAR(name, tick)
			switch {
			case err == nil:
				perLPAR[i] = samples
			case errors.Is(err, errGeneration):
				e.logger.Error("lpar dropped from tick", "lpar", name, "error", err)
				failed[i] = true
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.MetricBatch{}, nil, err
	}

	batch := model.MetricBatch{Sysplex: e.registry.Sysplex(), Tick: tick}
	var dropped []string
	for i, samples := range perLPAR {
		if failed[i] {
			dropped = append(dropped, names[i])
			continue
		}
		batch.Samples = append(batch.Samples, samples...)
	}
	return batch, dropped, nil
}

func (e *Engine) generateLPAR(name string, tick time.Time) (out []model.MetricSample, err error) {
	entry, err := e.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	st, ok := e.streams[name]
	if !ok {
		return nil, fmt.Errorf("%w: no random streams for %q", baseline.ErrUnknownLPAR, name)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: panic: %v", errGeneration, r)
		}
	}()

	in := generator.Input{
		Sysplex: e.registry.Sysplex(),
		Entry:   entry,
		Factor:  e.factors.Draw(tick, entry.Config, st.factor),
		At:      tick,
		Rand:    st.local,
	}
	for _, g := range e.gens {
		for _, s := range g.Generate(in) {
			if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
				return nil, fmt.Errorf("%w: %s produced %v for %s", errGeneration, g.Component, s.Value, s.Metric)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func nameHash(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}
