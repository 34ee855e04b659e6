package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"surveyprep/internal/dataset"
	"surveyprep/internal/preprocess"
	"surveyprep/internal/registry"
)

// Manager owns the ordered stage list and executes runs. A manager is
// safe to reuse; each run owns its tables exclusively and shares no
// mutable state with other runs.
type Manager struct {
	stages []Stage
	logger *slog.Logger
	tracer *runTracer
}

// NewManager creates a manager with the canonical stage order:
// clean, target, eligibility, dietary, impute, features.
func NewManager(reg *registry.Registry, params preprocess.Params, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	return &Manager{
		stages: []Stage{
			NewCleanStage(reg, params, logger),
			NewTargetStage(reg, params, logger),
			NewEligibilityStage(reg, params, logger),
			NewDietaryStage(reg, logger),
			NewImputeStage(reg, params, logger),
			NewFeatureStage(reg, params, logger),
		},
		logger: logger,
		tracer: newRunTracer(),
	}, nil
}

// NewManagerWithStages creates a manager over a custom stage list, for
// tests and partial reprocessing.
func NewManagerWithStages(stages []Stage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{stages: stages, logger: logger, tracer: newRunTracer()}
}

// Run executes all stages in order against the input table and returns
// the prepared table plus the run state. The input is cloned up front;
// the caller's table is never touched.
//
// Row count must be identical after every stage. A stage that deletes
// rows fails the run: row filtering belongs to explicit terminal steps
// outside the pipeline.
func (m *Manager) Run(ctx context.Context, input *dataset.Table) (*dataset.Table, *State, error) {
	runID := uuid.NewString()
	state := newState(runID, input.Clone(), m.stages)
	rows := input.NumRows()

	ctx, runSpan := m.tracer.traceRun(ctx, runID, rows, input.NumCols())
	defer runSpan.End()

	start := time.Now()
	m.logger.InfoContext(ctx, "pipeline run started",
		slog.String("run_id", runID),
		slog.Int("rows", rows),
		slog.Int("columns", input.NumCols()),
		slog.Int("stages", len(m.stages)),
	)

	for _, stage := range m.stages {
		if err := ctx.Err(); err != nil {
			return nil, state, fmt.Errorf("run cancelled before %s: %w", stage.ID(), err)
		}

		st := state.Stage(stage.ID())
		st.start()
		stageCtx, span := m.tracer.traceStage(ctx, runID, stage.ID())

		m.logger.InfoContext(stageCtx, "stage started",
			slog.String("run_id", runID),
			slog.String("stage", stage.ID()),
		)

		err := stage.Execute(stageCtx, state)
		if err == nil && state.Table().NumRows() != rows {
			err = fmt.Errorf("stage %s changed row count from %d to %d",
				stage.ID(), rows, state.Table().NumRows())
		}
		endStage(span, err)

		if err != nil {
			st.fail(err)
			m.logger.ErrorContext(stageCtx, "stage failed",
				slog.String("run_id", runID),
				slog.String("stage", stage.ID()),
				slog.String("error", err.Error()),
			)
			return nil, state, fmt.Errorf("stage %s: %w", stage.ID(), err)
		}

		st.complete(state.Table().NumRows())
		m.logger.InfoContext(stageCtx, "stage completed",
			slog.String("run_id", runID),
			slog.String("stage", stage.ID()),
			slog.Int("rows", st.Rows),
		)
	}

	m.logger.InfoContext(ctx, "pipeline run completed",
		slog.String("run_id", runID),
		slog.Int("rows", state.Table().NumRows()),
		slog.Int("columns", state.Table().NumCols()),
		slog.Duration("duration", time.Since(start)),
		slog.Int("diagnostics", len(state.Diagnostics())),
	)
	return state.Table(), state, nil
}

// DropMissingTarget is the explicit terminal filter: it returns a new
// table without the rows whose composite score is missing. It is never
// part of Run; callers opt in after the pipeline completes.
func DropMissingTarget(t *dataset.Table, scoreColumn string) (*dataset.Table, int) {
	score := t.Column(scoreColumn)
	if score == nil {
		return t, 0
	}
	out := t.FilterRows(func(row int) bool {
		return !dataset.IsMissing(score.Values[row])
	})
	return out, t.NumRows() - out.NumRows()
}
