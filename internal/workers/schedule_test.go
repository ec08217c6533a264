package workers

import (
	"testing"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/lease"
)

func TestParseCron_Every(t *testing.T) {
	sched, err := ParseCron("@every 30s")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sched.Interval() != 30*time.Second {
		t.Errorf("interval = %v", sched.Interval())
	}

	from := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	next := sched.Next(from)
	if !next.After(from) {
		t.Errorf("next %v not after from %v", next, from)
	}
}

func TestParseCron_FiveField(t *testing.T) {
	sched, err := ParseCron("*/5 * * * *")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sched.Interval() != 5*time.Minute {
		t.Errorf("interval = %v", sched.Interval())
	}

	from := time.Date(2026, 8, 28, 10, 2, 0, 0, time.UTC)
	next := sched.Next(from)
	want := time.Date(2026, 8, 28, 10, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestParseCron_Invalid(t *testing.T) {
	if _, err := ParseCron("not a cron"); err == nil {
		t.Error("expected parse error")
	}
}

func TestScheduleFromEnv(t *testing.T) {
	// Default: фиксированный интервал
	sched, err := ScheduleFromEnv("poller", 15*time.Second)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if fixed, ok := sched.(lease.FixedSchedule); !ok || time.Duration(fixed) != 15*time.Second {
		t.Errorf("default schedule: %#v", sched)
	}

	// Интервал из окружения
	t.Setenv("CL_RETRY_WORKER_INTERVAL_MS", "2500")
	sched, err = ScheduleFromEnv("retry-worker", time.Minute)
	if err != nil {
		t.Fatalf("interval env: %v", err)
	}
	if fixed, ok := sched.(lease.FixedSchedule); !ok || time.Duration(fixed) != 2500*time.Millisecond {
		t.Errorf("interval schedule: %#v", sched)
	}

	// Cron имеет приоритет над интервалом
	t.Setenv("CL_RETRY_WORKER_CRON", "@every 1m")
	sched, err = ScheduleFromEnv("retry-worker", time.Minute)
	if err != nil {
		t.Fatalf("cron env: %v", err)
	}
	if _, ok := sched.(*CronSchedule); !ok {
		t.Errorf("cron schedule: %#v", sched)
	}

	// Мусор в интервале — ошибка
	t.Setenv("CL_INCIDENT_WORKER_INTERVAL_MS", "soon")
	if _, err := ScheduleFromEnv("incident-worker", time.Minute); err == nil {
		t.Error("expected error for bad interval")
	}
}
