package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

func TestMemory_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec := Record{ID: "execution-task-0001", Kind: domain.KindExecutionTask, Payload: json.RawMessage(`{"id":"execution-task-0001"}`)}
	if err := m.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Повторное создание того же id
	if err := m.Create(ctx, rec); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := m.Get(ctx, "execution-task-0001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != domain.KindExecutionTask {
		t.Errorf("kind = %s", got.Kind)
	}

	rec.Payload = json.RawMessage(`{"id":"execution-task-0001","status":"claimed"}`)
	if err := m.Update(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := m.Update(ctx, Record{ID: "missing", Kind: domain.KindExecutionTask}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ListByKind(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, id := range []string{"execution-task-0002", "execution-task-0001"} {
		if err := m.Create(ctx, Record{ID: id, Kind: domain.KindExecutionTask, Payload: json.RawMessage(`{}`)}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := m.Create(ctx, Record{ID: "incident-0001", Kind: domain.KindIncident, Payload: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("create incident: %v", err)
	}

	recs, err := m.List(ctx, domain.KindExecutionTask, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	// Порядок детерминирован: по id
	if recs[0].ID != "execution-task-0001" || recs[1].ID != "execution-task-0002" {
		t.Errorf("unexpected order: %s, %s", recs[0].ID, recs[1].ID)
	}

	recs, err = m.List(ctx, domain.KindExecutionTask, 1)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 record with limit, got %d", len(recs))
	}
}

func TestGenericHelpers_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	task := domain.ExecutionTask{ID: "execution-task-0001", Status: domain.TaskStatusQueued, AdapterID: "opentrons_ot2"}
	if err := CreateAs(ctx, m, task.ID, domain.KindExecutionTask, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := GetAs[domain.ExecutionTask](ctx, m, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AdapterID != "opentrons_ot2" || got.Status != domain.TaskStatusQueued {
		t.Errorf("unexpected payload: %+v", got)
	}

	got.Status = domain.TaskStatusClaimed
	if err := UpdateAs(ctx, m, task.ID, domain.KindExecutionTask, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, err := ListAs[domain.ExecutionTask](ctx, m, domain.KindExecutionTask, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Status != domain.TaskStatusClaimed {
		t.Errorf("unexpected list result: %+v", all)
	}
}

func TestNextID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := NextID(ctx, m, domain.KindExecutionTask, PrefixExecutionTask)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != "execution-task-0001" {
		t.Errorf("first id = %s", id)
	}

	for _, existing := range []string{"execution-task-0003", "execution-task-0007"} {
		if err := m.Create(ctx, Record{ID: existing, Kind: domain.KindExecutionTask, Payload: json.RawMessage(`{}`)}); err != nil {
			t.Fatalf("seed %s: %v", existing, err)
		}
	}

	id, err = NextID(ctx, m, domain.KindExecutionTask, PrefixExecutionTask)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != "execution-task-0008" {
		t.Errorf("expected execution-task-0008, got %s", id)
	}
}
