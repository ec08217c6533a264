package workers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

func seedStuckTask(t *testing.T, mem *store.Memory, clk interface{ Now() time.Time }) string {
	t.Helper()
	expired := clk.Now().Add(-10 * time.Minute)
	claimed := clk.Now().Add(-time.Hour)
	task := domain.ExecutionTask{
		ID:              "execution-task-0001",
		ExecutionRunRef: "execution-run-0001",
		Status:          domain.TaskStatusRunning,
		ExecutorID:      "sidecar-dead",
		ClaimedAt:       &claimed,
		LeaseExpiresAt:  &expired,
	}
	if err := store.CreateAs(context.Background(), mem, task.ID, domain.KindExecutionTask, task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task.ID
}

func TestIncidentWorker_StuckLeaseRaisedOnce(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	clk := newTestClock()
	taskID := seedStuckTask(t, mem, clk)

	w := NewIncidentWorker(IncidentConfig{Store: mem, Clock: clk, Logger: discardLogger()})

	raised, err := w.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if raised != 1 {
		t.Fatalf("raised = %d, want 1", raised)
	}

	incidents, _ := store.ListAs[domain.Incident](ctx, mem, domain.KindIncident, 0)
	if len(incidents) != 1 {
		t.Fatalf("incidents = %d", len(incidents))
	}
	inc := incidents[0]
	if inc.Type != domain.IncidentTaskLeaseStuck || inc.RelatedID != taskID {
		t.Errorf("incident: %+v", inc)
	}
	if inc.Status != domain.IncidentStatusOpen {
		t.Errorf("status = %s", inc.Status)
	}

	// Повторный скан того же условия не плодит дубликаты
	raised, err = w.Scan(ctx)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if raised != 0 {
		t.Errorf("second scan raised %d", raised)
	}

	// Acked инцидент всё ещё подавляет дубликат
	svc := NewIncidentService(mem, clk)
	if _, err := svc.Acknowledge(ctx, inc.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	raised, _ = w.Scan(ctx)
	if raised != 0 {
		t.Errorf("scan after ack raised %d", raised)
	}

	// После resolve условие поднимается заново
	if _, err := svc.Resolve(ctx, inc.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	raised, _ = w.Scan(ctx)
	if raised != 1 {
		t.Errorf("scan after resolve raised %d, want 1", raised)
	}
}

func TestIncidentWorker_RetriesExhaustedWithRunbook(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	clk := newTestClock()

	run := domain.ExecutionRun{
		ID:               "execution-run-0003",
		RobotPlanRef:     "robot-plan-1",
		Attempt:          3,
		Status:           domain.RunStatusFailed,
		FailureClass:     domain.FailureClassTransient,
		FailureCode:      "EXECUTOR_EXCEPTION",
		RetryRecommended: true,
	}
	if err := store.CreateAs(ctx, mem, run.ID, domain.KindExecutionRun, run); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	w := NewIncidentWorker(IncidentConfig{Store: mem, Clock: clk, Logger: discardLogger()})
	raised, err := w.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if raised != 1 {
		t.Fatalf("raised = %d", raised)
	}

	incidents, _ := store.ListAs[domain.Incident](ctx, mem, domain.KindIncident, 0)
	inc := incidents[0]
	if inc.Type != domain.IncidentRetriesExhausted || inc.Severity != domain.IncidentSeverityCritical {
		t.Errorf("incident: type=%s severity=%s", inc.Type, inc.Severity)
	}
	// Notes включают рекомендации runbook по failure code
	if !strings.Contains(inc.Notes, "EXECUTOR_EXCEPTION") || !strings.Contains(inc.Notes, "sidecar") {
		t.Errorf("notes lack runbook guidance: %q", inc.Notes)
	}
}

func TestIncidentWorker_UnclassifiedFailure(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	clk := newTestClock()

	run := domain.ExecutionRun{
		ID:           "execution-run-0004",
		RobotPlanRef: "robot-plan-1",
		Attempt:      1,
		Status:       domain.RunStatusFailed,
		FailureClass: domain.FailureClassUnknown,
		FailureCode:  "WEIRD_STATE",
	}
	if err := store.CreateAs(ctx, mem, run.ID, domain.KindExecutionRun, run); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	w := NewIncidentWorker(IncidentConfig{Store: mem, Clock: clk, Logger: discardLogger()})
	raised, err := w.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if raised != 1 {
		t.Fatalf("raised = %d", raised)
	}

	incidents, _ := store.ListAs[domain.Incident](ctx, mem, domain.KindIncident, 0)
	if incidents[0].Type != domain.IncidentUnclassifiedFailure {
		t.Errorf("type = %s", incidents[0].Type)
	}
}

func TestIncidentService_Lifecycle(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	clk := newTestClock()
	svc := NewIncidentService(mem, clk)

	inc := domain.Incident{
		ID: "incident-0001", Type: domain.IncidentAdapterUnhealthy,
		Severity: domain.IncidentSeverityCritical, Status: domain.IncidentStatusOpen,
		RelatedKind: "adapter", RelatedID: "opentrons_ot2", CreatedAt: clk.Now(),
	}
	if err := store.CreateAs(ctx, mem, inc.ID, domain.KindIncident, inc); err != nil {
		t.Fatalf("seed: %v", err)
	}

	acked, err := svc.Acknowledge(ctx, inc.ID)
	if err != nil {
		t.Fatalf("ack: %v", err)
	}
	if acked.Status != domain.IncidentStatusAcked || acked.AckedAt == nil {
		t.Errorf("acked: %+v", acked)
	}

	// Повторный ack уже не open
	if _, err := svc.Acknowledge(ctx, inc.ID); err == nil {
		t.Error("double ack should fail")
	}

	resolved, err := svc.Resolve(ctx, inc.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.IncidentStatusResolved || resolved.ResolvedAt == nil {
		t.Errorf("resolved: %+v", resolved)
	}
	if _, err := svc.Resolve(ctx, inc.ID); err == nil {
		t.Error("double resolve should fail")
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 1 || summary.ByStatus[domain.IncidentStatusResolved] != 1 {
		t.Errorf("summary: %+v", summary)
	}
	if summary.ByType[domain.IncidentAdapterUnhealthy] != 1 {
		t.Errorf("summary by type: %+v", summary.ByType)
	}
}
