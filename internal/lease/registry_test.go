package lease

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/clock"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noopTick(context.Context) error { return nil }

func TestRegistry_StartAcquiresLease(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	r := New(Config{Store: mem, InstanceID: "instance-a", Logger: discardLogger()})
	defer r.StopAll(ctx)

	result, err := r.Start(ctx, domain.WorkerPoller, FixedSchedule(time.Hour), noopTick, StartOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !result.Started {
		t.Fatal("expected loop to start")
	}
	if result.Lease.OwnerInstance != "instance-a" || !result.Lease.Running {
		t.Errorf("lease: %+v", result.Lease)
	}

	stored, err := store.GetAs[domain.WorkerLease](ctx, mem, RecordID(domain.WorkerPoller))
	if err != nil {
		t.Fatalf("load lease: %v", err)
	}
	if stored.OwnerInstance != "instance-a" {
		t.Errorf("stored owner = %s", stored.OwnerInstance)
	}
	if stored.IntervalMs != time.Hour.Milliseconds() {
		t.Errorf("interval ms = %d", stored.IntervalMs)
	}

	// Повторный Start того же instance — no-op
	again, err := r.Start(ctx, domain.WorkerPoller, FixedSchedule(time.Hour), noopTick, StartOptions{})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if again.Started {
		t.Error("second start launched a duplicate loop")
	}
}

func TestRegistry_StartBlockedByLiveOwner(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	a := New(Config{Store: mem, InstanceID: "instance-a", Logger: discardLogger()})
	defer a.StopAll(ctx)
	if _, err := a.Start(ctx, domain.WorkerRetry, FixedSchedule(time.Hour), noopTick, StartOptions{}); err != nil {
		t.Fatalf("start a: %v", err)
	}

	b := New(Config{Store: mem, InstanceID: "instance-b", Logger: discardLogger()})
	defer b.StopAll(ctx)
	result, err := b.Start(ctx, domain.WorkerRetry, FixedSchedule(time.Hour), noopTick, StartOptions{})
	if err != nil {
		t.Fatalf("start b: %v", err)
	}
	if result.Started {
		t.Fatal("second instance must not start while the lease is live")
	}
	if result.Lease.OwnerInstance != "instance-a" {
		t.Errorf("reported owner = %s", result.Lease.OwnerInstance)
	}

	// Forced takeover перехватывает владение
	forced, err := b.Start(ctx, domain.WorkerRetry, FixedSchedule(time.Hour), noopTick, StartOptions{ForceTakeover: true})
	if err != nil {
		t.Fatalf("force start b: %v", err)
	}
	if !forced.Started {
		t.Fatal("forced takeover did not start")
	}
	stored, _ := store.GetAs[domain.WorkerLease](ctx, mem, RecordID(domain.WorkerRetry))
	if stored.OwnerInstance != "instance-b" {
		t.Errorf("owner after takeover = %s", stored.OwnerInstance)
	}
}

func TestRegistry_ExpiredLeaseIsClaimable(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	clk := clock.NewManual(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))

	// Брошенный lease мёртвого процесса
	expired := clk.Now().Add(-time.Minute)
	acquired := clk.Now().Add(-time.Hour)
	ghost := domain.WorkerLease{
		WorkerID:      domain.WorkerIncident,
		OwnerInstance: "instance-ghost",
		AcquiredAt:    &acquired,
		ExpiresAt:     &expired,
		Running:       true,
	}
	if err := store.CreateAs(ctx, mem, RecordID(domain.WorkerIncident), domain.KindWorkerLease, ghost); err != nil {
		t.Fatalf("seed ghost lease: %v", err)
	}

	r := New(Config{Store: mem, Clock: clk, InstanceID: "instance-a", Logger: discardLogger()})
	defer r.StopAll(ctx)

	result, err := r.Start(ctx, domain.WorkerIncident, FixedSchedule(time.Hour), noopTick, StartOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !result.Started {
		t.Fatal("expired lease should be claimable without force")
	}
	if result.Lease.OwnerInstance != "instance-a" {
		t.Errorf("owner = %s", result.Lease.OwnerInstance)
	}
}

func TestRegistry_StopReleasesLease(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	r := New(Config{Store: mem, InstanceID: "instance-a", Logger: discardLogger()})

	if _, err := r.Start(ctx, domain.WorkerPoller, FixedSchedule(time.Hour), noopTick, StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Stop(ctx, domain.WorkerPoller); err != nil {
		t.Fatalf("stop: %v", err)
	}

	stored, err := store.GetAs[domain.WorkerLease](ctx, mem, RecordID(domain.WorkerPoller))
	if err != nil {
		t.Fatalf("load lease: %v", err)
	}
	if stored.Running || stored.OwnerInstance != "" || stored.ExpiresAt != nil {
		t.Errorf("lease not released: %+v", stored)
	}

	// После Stop тот же worker можно запустить снова
	result, err := r.Start(ctx, domain.WorkerPoller, FixedSchedule(time.Hour), noopTick, StartOptions{})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !result.Started {
		t.Error("restart after stop did not start")
	}
	r.StopAll(ctx)
}

func TestRegistry_TicksRun(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	r := New(Config{Store: mem, InstanceID: "instance-a", Logger: discardLogger()})
	defer r.StopAll(ctx)

	ticks := make(chan struct{}, 64)
	tick := func(context.Context) error {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return nil
	}

	if _, err := r.Start(ctx, domain.WorkerPoller, FixedSchedule(5*time.Millisecond), tick, StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d did not fire", i+1)
		}
	}
}

func TestRegistry_LoserOfTakeoverStops(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	ticks := make(chan struct{}, 64)
	tick := func(context.Context) error {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return nil
	}

	a := New(Config{Store: mem, InstanceID: "instance-a", Logger: discardLogger()})
	defer a.StopAll(ctx)
	if _, err := a.Start(ctx, domain.WorkerPoller, FixedSchedule(5*time.Millisecond), tick, StartOptions{}); err != nil {
		t.Fatalf("start a: %v", err)
	}
	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("loop a never ticked")
	}

	b := New(Config{Store: mem, InstanceID: "instance-b", Logger: discardLogger()})
	defer b.StopAll(ctx)
	if _, err := b.Start(ctx, domain.WorkerPoller, FixedSchedule(time.Hour), noopTick, StartOptions{ForceTakeover: true}); err != nil {
		t.Fatalf("force start b: %v", err)
	}

	// Проигравший цикл обнаруживает чужого владельца и останавливается
	deadline := time.After(3 * time.Second)
	for quiet := false; !quiet; {
		select {
		case <-ticks:
		case <-time.After(100 * time.Millisecond):
			quiet = true
		case <-deadline:
			t.Fatal("loop a kept ticking after takeover")
		}
	}

	stored, _ := store.GetAs[domain.WorkerLease](ctx, mem, RecordID(domain.WorkerPoller))
	if stored.OwnerInstance != "instance-b" {
		t.Errorf("owner = %s, want instance-b", stored.OwnerInstance)
	}
}
