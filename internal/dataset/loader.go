// Package dataset orchestrates the load pipeline for each dataset kind:
// probe the candidate sources, parse the first payload that resolves,
// and fall back to synthetic data when nothing usable comes back. A load
// never fails — the worst outcome is a synthetic record set flagged with
// fallback provenance.
package dataset

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/washdeck/backend/internal/model"
	"github.com/washdeck/backend/internal/source"
)

// State is a dataset loader's position in its load cycle. Each loader
// owns its state exclusively; nothing else writes it.
type State string

const (
	StateIdle      State = "idle"
	StateProbing   State = "probing"
	StateParsing   State = "parsing"
	StateSucceeded State = "succeeded"
	StateFellBack  State = "fell_back"

	// StateFailedEmpty is reachable only if a fallback generator breaks
	// its never-empty contract. Normal operation cannot end here.
	StateFailedEmpty State = "failed_empty"
)

// ParseFunc decodes a raw payload into records, reporting how many
// malformed rows were skipped. The seed carries ids loaded earlier in
// the dependency chain so dependent kinds can drop dangling references.
type ParseFunc func(payload []byte, seed model.SeedContext) (model.RecordSet, int, error)

// GenerateFunc produces a synthetic record set consistent with the seed.
type GenerateFunc func(seed model.SeedContext) model.RecordSet

// Result is the outcome of one load: the records plus the status line
// that goes into the snapshot's per-dataset diagnostics.
type Result struct {
	Kind    model.Kind
	Records model.RecordSet
	Status  model.DatasetStatus
}

// Loader runs the probe → parse → fallback pipeline for one dataset
// kind. Loads are serialized per loader; overlapping refreshes queue
// rather than interleave state transitions.
type Loader struct {
	kind       model.Kind
	candidates []string
	prober     *source.Prober
	parse      ParseFunc
	generate   GenerateFunc

	runMu sync.Mutex // serializes Load runs

	mu    sync.Mutex
	state State
}

func NewLoader(kind model.Kind, candidates []string, prober *source.Prober, parse ParseFunc, generate GenerateFunc) *Loader {
	return &Loader{
		kind:       kind,
		candidates: candidates,
		prober:     prober,
		parse:      parse,
		generate:   generate,
		state:      StateIdle,
	}
}

// State returns the loader's current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Load runs one full load cycle and always returns a usable Result.
// Probe failure, an undecodable payload, and a payload with zero valid
// rows all route to the synthetic fallback instead of erroring.
func (l *Loader) Load(ctx context.Context, seed model.SeedContext) Result {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	l.setState(StateProbing)
	payload, candidate, err := l.prober.Probe(ctx, l.candidates)
	if err != nil {
		if !errors.Is(err, source.ErrNotFound) {
			log.Printf("[loader] %s: probe: %v", l.kind, err)
		}
		return l.fallBack(seed, 0)
	}

	l.setState(StateParsing)
	records, skipped, err := l.parse(payload, seed)
	if err != nil {
		log.Printf("[loader] %s: %s unparseable: %v", l.kind, candidate, err)
		return l.fallBack(seed, skipped)
	}
	if records.Count() == 0 {
		log.Printf("[loader] %s: %s yielded no valid records (%d rows skipped)", l.kind, candidate, skipped)
		return l.fallBack(seed, skipped)
	}

	l.setState(StateSucceeded)
	log.Printf("[loader] %s: %d records (%d skipped) from %s", l.kind, records.Count(), skipped, candidate)
	return Result{
		Kind:    l.kind,
		Records: records,
		Status: model.DatasetStatus{
			Kind:       l.kind,
			Provenance: model.ProvenanceReal,
			Candidate:  candidate,
			Records:    records.Count(),
			Skipped:    skipped,
			LoadedAt:   time.Now(),
		},
	}
}

func (l *Loader) fallBack(seed model.SeedContext, skipped int) Result {
	records := l.generate(seed)
	if records.Count() == 0 {
		l.setState(StateFailedEmpty)
		log.Printf("[loader] %s: fallback generator returned an empty set", l.kind)
	} else {
		l.setState(StateFellBack)
		log.Printf("[loader] %s: no usable source, generated %d synthetic records", l.kind, records.Count())
	}

	return Result{
		Kind:    l.kind,
		Records: records,
		Status: model.DatasetStatus{
			Kind:       l.kind,
			Provenance: model.ProvenanceFallback,
			Records:    records.Count(),
			Skipped:    skipped,
			LoadedAt:   time.Now(),
		},
	}
}
