package dataset

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/washdeck/backend/internal/config"
	"github.com/washdeck/backend/internal/model"
	"github.com/washdeck/backend/internal/source"
)

// Aggregator runs all dataset loaders and owns the consolidated
// snapshot. Loads respect the dependency chain — washrooms before crew,
// crew before tasks — and run concurrently where no dependency exists.
// One dataset falling back never blocks or fails the others.
type Aggregator struct {
	loaders map[model.Kind]*Loader

	mu       sync.RWMutex
	snapshot *model.Snapshot
}

// NewAggregator builds one loader per dataset kind from the configured
// candidate lists.
func NewAggregator(cfg *config.Config) *Aggregator {
	prober := source.NewProber(cfg.Sources.ProbeTimeout, cfg.Sources.MaxPayloadBytes)

	loaders := make(map[model.Kind]*Loader, len(model.Kinds()))
	for _, kind := range model.Kinds() {
		parseFn, generateFn := funcsFor(kind)
		loaders[kind] = NewLoader(kind, cfg.Sources.Candidates(kind), prober, parseFn, generateFn)
	}
	return &Aggregator{loaders: loaders}
}

// LoadAll runs every loader and publishes the consolidated snapshot.
// It never fails: datasets with no usable source come back synthetic.
func (a *Aggregator) LoadAll(ctx context.Context) *model.Snapshot {
	return a.run(ctx)
}

// Refresh re-runs the full pipeline. The new snapshot replaces the
// current one atomically, and only if no later-completing refresh beat
// it there — last applied wins by completion time.
func (a *Aggregator) Refresh(ctx context.Context) *model.Snapshot {
	return a.run(ctx)
}

func (a *Aggregator) run(ctx context.Context) *model.Snapshot {
	started := time.Now()
	results := make(map[model.Kind]Result, len(a.loaders))

	var resMu sync.Mutex
	var wg sync.WaitGroup
	load := func(kind model.Kind, seed model.SeedContext) {
		defer wg.Done()
		r := a.loaders[kind].Load(ctx, seed)
		resMu.Lock()
		results[kind] = r
		resMu.Unlock()
	}

	// Stage 1: washrooms and flights have no dependencies.
	wg.Add(2)
	go load(model.KindWashrooms, model.SeedContext{})
	go load(model.KindFlights, model.SeedContext{})
	wg.Wait()

	seed := model.SeedContext{
		WashroomIDs: washroomIDs(results[model.KindWashrooms].Records.Washrooms),
	}

	// Stage 2: crew locations reference washrooms.
	wg.Add(1)
	go load(model.KindCrew, seed)
	wg.Wait()

	seed.CrewIDs = crewIDs(results[model.KindCrew].Records.Crew)

	// Stage 3: tasks and the derived score metrics reference both.
	wg.Add(2)
	go load(model.KindTasks, seed)
	go load(model.KindScores, seed)
	wg.Wait()

	snap := buildSnapshot(results)
	if a.publish(snap) {
		log.Printf("[loader] snapshot published in %v (%d washrooms, %d crew, %d tasks, %d scores, %d flights)",
			time.Since(started).Round(time.Millisecond),
			len(snap.Washrooms), len(snap.Crew), len(snap.Tasks), len(snap.Scores), len(snap.Flights))
	} else {
		log.Printf("[loader] discarding stale snapshot from refresh started at %s", started.Format(time.RFC3339))
	}
	return snap
}

// publish swaps in the snapshot unless a later-completing load already
// did. Returns whether the snapshot was applied.
func (a *Aggregator) publish(s *model.Snapshot) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.snapshot != nil && !s.LoadedAt.After(a.snapshot.LoadedAt) {
		return false
	}
	a.snapshot = s
	return true
}

// Snapshot returns the current consolidated snapshot, or nil before the
// first LoadAll completes. The returned value is immutable; callers
// must not modify it.
func (a *Aggregator) Snapshot() *model.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Loader exposes the loader for one kind, mainly for state inspection.
func (a *Aggregator) Loader(kind model.Kind) *Loader {
	return a.loaders[kind]
}

// RunPeriodic refreshes on the given interval until ctx is cancelled,
// invoking onReload (if non-nil) after every cycle. A zero or negative
// interval disables periodic refresh.
func (a *Aggregator) RunPeriodic(ctx context.Context, interval time.Duration, onReload func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx)
			if onReload != nil {
				onReload()
			}
		}
	}
}

func buildSnapshot(results map[model.Kind]Result) *model.Snapshot {
	snap := &model.Snapshot{
		Washrooms: results[model.KindWashrooms].Records.Washrooms,
		Crew:      results[model.KindCrew].Records.Crew,
		Tasks:     results[model.KindTasks].Records.Tasks,
		Scores:    results[model.KindScores].Records.Scores,
		Flights:   results[model.KindFlights].Records.Flights,
		Datasets:  make(map[model.Kind]model.DatasetStatus, len(results)),
		LoadedAt:  time.Now(),
	}
	for kind, r := range results {
		snap.Datasets[kind] = r.Status
	}
	return snap
}

func washroomIDs(washrooms []model.Washroom) []string {
	ids := make([]string, 0, len(washrooms))
	for _, w := range washrooms {
		ids = append(ids, w.ID)
	}
	return ids
}

func crewIDs(crew []model.CrewMember) []string {
	ids := make([]string, 0, len(crew))
	for _, c := range crew {
		ids = append(ids, c.ID)
	}
	return ids
}
