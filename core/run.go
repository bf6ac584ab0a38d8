package core

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/teris-io/shortid"

	"github.com/NVIDIA/dprofile/core/errtax"
)

// State is one point in the run lifecycle: queued -> processing ->
// completed | failed. Terminal once completed or failed (spec §3).
type State string

const (
	Queued     State = "queued"
	Processing State = "processing"
	Completed  State = "completed"
	Failed     State = "failed"
)

func (s State) Terminal() bool { return s == Completed || s == Failed }

// ErrStartupTimeout-style sentinel errors the pipeline can wrap.
var (
	ErrTerminal     = errors.New("run: already in a terminal state")
	ErrProgressBack = errors.New("run: progress must be non-decreasing")
)

// Run is a single profiling job (spec §3). Created by the caller with a
// Dialect; mutated only by the pipeline stages; terminal once completed
// or failed.
type Run struct {
	mu sync.Mutex

	id      string
	state   State
	dialect Dialect
	header  Header

	progressPct int

	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time

	// StageTimings is a [FULL] addition (SPEC_FULL.md §3.1): wall-clock
	// per stage, derived data harmless to carry alongside the contract.
	StageTimings map[string]time.Duration

	Errors *errtax.Aggregator

	columns []string // ordered column names, set once header is known
}

var gen *shortid.Shortid

func init() {
	var err error
	gen, err = shortid.New(1, shortid.DefaultABC, 0xC0FFEE)
	if err != nil {
		panic(err)
	}
}

// NewRun establishes state `queued` with a frozen dialect (create_run,
// spec §6).
func NewRun(dialect Dialect) *Run {
	id, err := gen.Generate()
	if err != nil {
		// shortid only fails on pathological seed/alphabet config; the
		// package-level generator is fixed, so fall back defensively.
		id = time.Now().UTC().Format("20060102T150405.000000000")
	}
	return &Run{
		id:           id,
		state:        Queued,
		dialect:      dialect,
		createdAt:    time.Now(),
		StageTimings: make(map[string]time.Duration),
		Errors:       errtax.NewAggregator(),
	}
}

func (r *Run) ID() string { return r.id }

func (r *Run) Dialect() Dialect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dialect
}

// OverrideDialect lets S3 fix delimiter/quoting once auto-detected,
// before S4 decode begins. Rejected with ErrTerminal once the run is
// completed or failed; the pipeline calls it while the run is processing.
func (r *Run) OverrideDialect(d Dialect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return ErrTerminal
	}
	r.dialect = d
	return nil
}

func (r *Run) SetHeader(h Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.header = h
	r.columns = append([]string(nil), h.Names...)
}

func (r *Run) Header() Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start transitions queued -> processing.
func (r *Run) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = Processing
	r.startedAt = time.Now()
}

// Complete transitions processing -> completed. Once terminal, no
// further mutation is permitted (spec §3 invariant).
func (r *Run) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = Completed
	r.completedAt = time.Now()
	r.progressPct = 100
}

// Fail transitions to `failed`; a failed run may leave progress < 100
// (spec §3 invariant).
func (r *Run) Fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = Failed
	r.completedAt = time.Now()
}

// SetProgress enforces the monotonic-non-decreasing invariant (spec §3,
// §5, §8); a caller attempting to move it backward gets ErrProgressBack
// and the stored value is left unchanged.
func (r *Run) SetProgress(pct int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return ErrTerminal
	}
	if pct < r.progressPct {
		return ErrProgressBack
	}
	if pct > 100 {
		pct = 100
	}
	r.progressPct = pct
	return nil
}

func (r *Run) Progress() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progressPct
}

func (r *Run) RecordStage(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StageTimings[name] = d
}

// Snapshot is the read-only view returned by status(run_id) (spec §6).
type Snapshot struct {
	ID          string
	State       State
	ProgressPct int
	Errors      []errtax.Detail
	Header      Header
}

func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID:          r.id,
		State:       r.state,
		ProgressPct: r.progressPct,
		Errors:      r.Errors.Rollup(),
		Header:      r.header,
	}
}
