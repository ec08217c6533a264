package workers

import (
	"context"
	"testing"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/adapters"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

// stubStatusSource отдаёт фиксированный удалённый статус и запоминает,
// о каком запуске его спрашивали.
type stubStatusSource struct {
	remote *adapters.RemoteRunStatus
	err    error

	adapterID string
	runID     string
	calls     int
}

func (s *stubStatusSource) FetchRunStatus(_ context.Context, adapterID, externalRunID string) (*adapters.RemoteRunStatus, error) {
	s.calls++
	s.adapterID = adapterID
	s.runID = externalRunID
	return s.remote, s.err
}

func TestPoller_RepairsDriftedRun(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	clk := newTestClock()

	// Task дошёл до failed, но запись run отстала (процесс упал между
	// двумя записями)
	now := clk.Now()
	task := domain.ExecutionTask{
		ID:              "execution-task-0001",
		ExecutionRunRef: "execution-run-0001",
		Status:          domain.TaskStatusFailed,
		Failure: &domain.FailureDetail{
			Code:  "SERIAL_DISCONNECTED",
			Class: domain.FailureClassTransient,
		},
		CompletedAt: &now,
	}
	run := domain.ExecutionRun{
		ID:           "execution-run-0001",
		RobotPlanRef: "robot-plan-1",
		Attempt:      1,
		Status:       domain.RunStatusRunning,
	}
	if err := store.CreateAs(ctx, mem, task.ID, domain.KindExecutionTask, task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	if err := store.CreateAs(ctx, mem, run.ID, domain.KindExecutionRun, run); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	p := NewPoller(PollerConfig{Store: mem, Clock: clk, Logger: discardLogger()})

	repaired, err := p.Reconcile(ctx, 0)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("repaired = %d, want 1", repaired)
	}

	got, _ := store.GetAs[domain.ExecutionRun](ctx, mem, run.ID)
	if got.Status != domain.RunStatusFailed {
		t.Errorf("run status = %s", got.Status)
	}
	if !got.RetryRecommended {
		t.Error("retry recommendation lost in repair")
	}
	if got.CompletedAt == nil {
		t.Error("completedAt not mirrored")
	}

	// Второй проход ничего не меняет
	repaired, err = p.Reconcile(ctx, 0)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if repaired != 0 {
		t.Errorf("second pass repaired %d", repaired)
	}
}

func TestPoller_SkipsConsistentAndSettled(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	clk := newTestClock()

	// Согласованная пара: running/running с одинаковым прогрессом
	task := domain.ExecutionTask{
		ID:              "execution-task-0001",
		ExecutionRunRef: "execution-run-0001",
		Status:          domain.TaskStatusRunning,
		Progress:        map[string]any{"step": 3, "totalSteps": 12},
	}
	run := domain.ExecutionRun{
		ID:       "execution-run-0001",
		Status:   domain.RunStatusRunning,
		Progress: map[string]any{"step": 3, "totalSteps": 12},
	}

	// Settled run не трогается, даже если task «живее» записи
	settledTask := domain.ExecutionTask{
		ID:              "execution-task-0002",
		ExecutionRunRef: "execution-run-0002",
		Status:          domain.TaskStatusRunning,
	}
	settledRun := domain.ExecutionRun{ID: "execution-run-0002", Status: domain.RunStatusCanceled}

	if err := store.CreateAs(ctx, mem, task.ID, domain.KindExecutionTask, task); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.CreateAs(ctx, mem, run.ID, domain.KindExecutionRun, run); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.CreateAs(ctx, mem, settledTask.ID, domain.KindExecutionTask, settledTask); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.CreateAs(ctx, mem, settledRun.ID, domain.KindExecutionRun, settledRun); err != nil {
		t.Fatalf("seed: %v", err)
	}

	p := NewPoller(PollerConfig{Store: mem, Clock: clk, Logger: discardLogger()})
	repaired, err := p.Reconcile(ctx, 0)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repaired != 0 {
		t.Errorf("repaired = %d, want 0", repaired)
	}

	got, _ := store.GetAs[domain.ExecutionRun](ctx, mem, settledRun.ID)
	if got.Status != domain.RunStatusCanceled {
		t.Errorf("settled run mutated: %s", got.Status)
	}
}

func TestPoller_ObservesRemoteStatusOfSilentExecutor(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	clk := newTestClock()

	// Executor умер после запуска удалённой работы: task застыл в running,
	// но адаптер знает, что запуск уже провалился
	task := domain.ExecutionTask{
		ID:              "execution-task-0001",
		ExecutionRunRef: "execution-run-0001",
		Status:          domain.TaskStatusRunning,
		AdapterID:       "opentrons_ot2",
		External:        &domain.ExternalRef{RunID: "ext-run-9"},
	}
	run := domain.ExecutionRun{
		ID:           "execution-run-0001",
		RobotPlanRef: "robot-plan-1",
		Attempt:      1,
		Status:       domain.RunStatusRunning,
	}
	if err := store.CreateAs(ctx, mem, task.ID, domain.KindExecutionTask, task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	if err := store.CreateAs(ctx, mem, run.ID, domain.KindExecutionRun, run); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	source := &stubStatusSource{
		remote: &adapters.RemoteRunStatus{
			Status:    domain.TaskStatusFailed,
			RawStatus: "failed",
			Failure: &domain.FailureDetail{
				Code:  "EXECUTOR_EXCEPTION",
				Class: domain.FailureClassTransient,
			},
		},
	}
	p := NewPoller(PollerConfig{Store: mem, Status: source, Clock: clk, Logger: discardLogger()})

	repaired, err := p.Reconcile(ctx, 0)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("repaired = %d, want 1", repaired)
	}
	if source.adapterID != "opentrons_ot2" || source.runID != "ext-run-9" {
		t.Errorf("asked %s/%s", source.adapterID, source.runID)
	}

	gotRun, _ := store.GetAs[domain.ExecutionRun](ctx, mem, run.ID)
	if gotRun.Status != domain.RunStatusFailed {
		t.Errorf("run status = %s, want failed", gotRun.Status)
	}
	if !gotRun.RetryRecommended {
		t.Error("transient remote failure did not recommend retry")
	}
	if gotRun.LastRawStatus != "failed" {
		t.Errorf("raw status = %q", gotRun.LastRawStatus)
	}
	if gotRun.CompletedAt == nil {
		t.Error("completedAt not set from remote terminal status")
	}

	// Task не перезаписывается: его мутации принадлежат executor'у
	gotTask, _ := store.GetAs[domain.ExecutionTask](ctx, mem, task.ID)
	if gotTask.Status != domain.TaskStatusRunning {
		t.Errorf("task mutated to %s", gotTask.Status)
	}

	// Осевший run второй проход не трогает и адаптер больше не спрашивает
	calls := source.calls
	repaired, err = p.Reconcile(ctx, 0)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if repaired != 0 {
		t.Errorf("second pass repaired %d", repaired)
	}
	if source.calls != calls {
		t.Errorf("settled run re-queried the adapter")
	}
}

func TestPoller_RemoteStatusErrorFallsBackToTaskState(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	clk := newTestClock()

	task := domain.ExecutionTask{
		ID:              "execution-task-0001",
		ExecutionRunRef: "execution-run-0001",
		Status:          domain.TaskStatusRunning,
		AdapterID:       "opentrons_ot2",
		External:        &domain.ExternalRef{RunID: "ext-run-9"},
	}
	run := domain.ExecutionRun{
		ID:            "execution-run-0001",
		Status:        domain.RunStatusRunning,
		ExternalRunID: "ext-run-9",
	}
	if err := store.CreateAs(ctx, mem, task.ID, domain.KindExecutionTask, task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	if err := store.CreateAs(ctx, mem, run.ID, domain.KindExecutionRun, run); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	source := &stubStatusSource{err: context.DeadlineExceeded}
	p := NewPoller(PollerConfig{Store: mem, Status: source, Clock: clk, Logger: discardLogger()})

	// Недоступный адаптер не валит реконсиляцию: run остаётся как есть
	repaired, err := p.Reconcile(ctx, 0)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repaired != 0 {
		t.Errorf("repaired = %d, want 0", repaired)
	}
	gotRun, _ := store.GetAs[domain.ExecutionRun](ctx, mem, run.ID)
	if gotRun.Status != domain.RunStatusRunning {
		t.Errorf("run status = %s", gotRun.Status)
	}
}
