package pipeline

import (
	"context"
	"sync"
	"time"

	"surveyprep/internal/dataset"
)

// Stage identifiers.
const (
	StageIDClean       = "clean"
	StageIDTarget      = "target"
	StageIDEligibility = "eligibility"
	StageIDDietary     = "dietary"
	StageIDImpute      = "impute"
	StageIDFeatures    = "features"
)

// Stage names.
const (
	StageNameClean       = "Encoding and Outlier Cleaning"
	StageNameTarget      = "Target Derivation"
	StageNameEligibility = "Eligibility Flagging"
	StageNameDietary     = "Dietary Averaging"
	StageNameImpute      = "Nearest-Neighbor Imputation"
	StageNameFeatures    = "Feature Engineering"
)

// Stage is a single step of the preparation chain. Execute reads the
// current table from the run state and replaces it with the stage's
// output.
type Stage interface {
	// ID returns the unique identifier for this stage.
	ID() string

	// Name returns the human-readable name for this stage.
	Name() string

	// Execute runs the stage against the run state's current table.
	Execute(ctx context.Context, state *State) error
}

// Status represents the current status of a stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StageState is the runtime record of one stage within a run.
type StageState struct {
	ID        string
	Name      string
	Status    Status
	StartTime *time.Time
	EndTime   *time.Time
	Rows      int
	Err       error
}

// State is the shared state of one pipeline run. The table field holds
// the current table between stages; stages replace it, never mutate it
// in place.
type State struct {
	RunID string

	mu          sync.RWMutex
	table       *dataset.Table
	stages      map[string]*StageState
	order       []string
	diagnostics []string
}

// newState creates run state over the input table.
func newState(runID string, t *dataset.Table, stages []Stage) *State {
	s := &State{
		RunID:  runID,
		table:  t,
		stages: make(map[string]*StageState, len(stages)),
	}
	for _, stage := range stages {
		s.stages[stage.ID()] = &StageState{
			ID:     stage.ID(),
			Name:   stage.Name(),
			Status: StatusPending,
		}
		s.order = append(s.order, stage.ID())
	}
	return s
}

// Table returns the current table.
func (s *State) Table() *dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// SetTable replaces the current table.
func (s *State) SetTable(t *dataset.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
}

// Stage returns the state record for a stage ID, or nil.
func (s *State) Stage(id string) *StageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stages[id]
}

// Stages returns the stage records in execution order.
func (s *State) Stages() []*StageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StageState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.stages[id])
	}
	return out
}

// AddDiagnostic records a non-fatal skip or warning for the run
// summary.
func (s *State) AddDiagnostic(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = append(s.diagnostics, msg)
}

// Diagnostics returns the accumulated non-fatal diagnostics.
func (s *State) Diagnostics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// start marks the stage active.
func (st *StageState) start() {
	now := time.Now()
	st.StartTime = &now
	st.Status = StatusActive
}

// complete marks the stage completed with the resulting row count.
func (st *StageState) complete(rows int) {
	now := time.Now()
	st.EndTime = &now
	st.Status = StatusCompleted
	st.Rows = rows
}

// fail marks the stage failed.
func (st *StageState) fail(err error) {
	now := time.Now()
	st.EndTime = &now
	st.Status = StatusFailed
	st.Err = err
}
