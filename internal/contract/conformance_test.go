package contract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/clock"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

func newTestService(t *testing.T, s store.Store) *ConformanceService {
	t.Helper()
	svc, err := NewConformance(ConformanceConfig{
		Store:  s,
		Clock:  clock.NewManual(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new conformance: %v", err)
	}
	return svc
}

func TestValidate_ClaimRequest(t *testing.T) {
	svc := newTestService(t, nil)

	valid := `{"executorId":"sidecar-1","capabilities":["opentrons_ot2"],"maxTasks":5}`
	result, err := svc.Validate(PayloadClaimRequest, []byte(valid))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Errorf("valid payload rejected: %v", result.Errors)
	}

	cases := map[string]string{
		"missing executorId": `{"maxTasks":5}`,
		"unknown field":      `{"executorId":"sidecar-1","robotId":"ot2"}`,
		"bad maxTasks":       `{"executorId":"sidecar-1","maxTasks":0}`,
		"malformed JSON":     `{"executorId":`,
	}
	for name, payload := range cases {
		result, err := svc.Validate(PayloadClaimRequest, []byte(payload))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if result.Valid {
			t.Errorf("%s: accepted", name)
		}
		if len(result.Errors) == 0 {
			t.Errorf("%s: no error details", name)
		}
	}
}

func TestValidate_UpdateStatusFailureShape(t *testing.T) {
	svc := newTestService(t, nil)

	valid := `{"executorId":"sidecar-1","sequence":2,"status":"failed","failure":{"code":"EXECUTOR_EXCEPTION","class":"transient"}}`
	result, err := svc.Validate(PayloadUpdateStatus, []byte(valid))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Errorf("valid payload rejected: %v", result.Errors)
	}

	// failure без code отвергается
	invalid := `{"executorId":"sidecar-1","sequence":2,"status":"failed","failure":{"class":"transient"}}`
	result, _ = svc.Validate(PayloadUpdateStatus, []byte(invalid))
	if result.Valid {
		t.Error("failure without code accepted")
	}

	// неизвестный status отвергается
	unknown := `{"executorId":"sidecar-1","sequence":2,"status":"paused"}`
	result, _ = svc.Validate(PayloadUpdateStatus, []byte(unknown))
	if result.Valid {
		t.Error("unknown status accepted")
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.Validate(PayloadKind("mystery"), []byte(`{}`)); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestSelfTest_PassesAndPersists(t *testing.T) {
	mem := store.NewMemory()
	svc := newTestService(t, mem)
	ctx := context.Background()

	report, err := svc.SelfTest(ctx, true)
	if err != nil {
		t.Fatalf("self-test: %v", err)
	}
	if !report.Passed {
		for _, c := range report.Checks {
			if !c.Pass {
				t.Errorf("check failed: %s/%s want=%v got=%v errors=%v", c.Kind, c.Name, c.WantValid, c.GotValid, c.Errors)
			}
		}
		t.Fatal("self-test did not pass")
	}
	if len(report.Checks) != 10 {
		t.Errorf("checks = %d", len(report.Checks))
	}

	stored, err := svc.LastReport(ctx)
	if err != nil {
		t.Fatalf("last report: %v", err)
	}
	if stored.ContractVersion != Version || !stored.Passed {
		t.Errorf("stored report: %+v", stored)
	}

	// Повторный прогон перезаписывает отчёт, а не падает на duplicate
	if _, err := svc.SelfTest(ctx, true); err != nil {
		t.Fatalf("second self-test: %v", err)
	}
}

func TestGate(t *testing.T) {
	mem := store.NewMemory()
	svc := newTestService(t, mem)
	ctx := context.Background()

	// Без сохранённого отчёта gate закрыт
	result, err := svc.Gate(ctx, GateRequirements{}, nil)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	if result.Ready {
		t.Error("gate open without a report")
	}

	if _, err := svc.SelfTest(ctx, true); err != nil {
		t.Fatalf("self-test: %v", err)
	}

	result, err = svc.Gate(ctx, GateRequirements{}, nil)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	if !result.Ready {
		t.Errorf("gate closed after passing self-test: %v", result.Reasons)
	}

	// Требование по адаптеру без источника health — причина отказа
	result, _ = svc.Gate(ctx, GateRequirements{Adapters: []string{"opentrons_ot2"}}, nil)
	if result.Ready {
		t.Error("gate open without health source")
	}

	// Unhealthy адаптер закрывает gate, healthy — открывает
	result, _ = svc.Gate(ctx, GateRequirements{Adapters: []string{"opentrons_ot2"}}, fakeChecker{healthy: false})
	if result.Ready {
		t.Error("gate open with unhealthy adapter")
	}
	result, _ = svc.Gate(ctx, GateRequirements{Adapters: []string{"opentrons_ot2"}}, fakeChecker{healthy: true})
	if !result.Ready {
		t.Errorf("gate closed with healthy adapter: %v", result.Reasons)
	}
}

type fakeChecker struct {
	healthy bool
}

func (f fakeChecker) CheckAdapter(_ context.Context, _ string, _ bool) (bool, string) {
	if f.healthy {
		return true, ""
	}
	return false, "connection refused"
}

func TestLastReport_MissingIsNotFound(t *testing.T) {
	mem := store.NewMemory()
	svc := newTestService(t, mem)

	_, err := svc.LastReport(context.Background())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
