package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/adapters"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/clock"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/mq"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

// defaultStuckGrace — насколько дольше срока lease task должен висеть
// без re-claim, прежде чем подниматься инцидент.
const defaultStuckGrace = 2 * time.Minute

// IncidentWorker сканирует систему на операторские условия и поднимает
// дедуплицированные инциденты.
//
// Инвариант дедупликации: для пары (type, related entity) одновременно
// существует не более одного неразрешённого инцидента; повторный скан
// того же условия инцидент не создаёт.
type IncidentWorker struct {
	store       store.Store
	health      *adapters.HealthService
	publisher   *mq.Publisher
	clock       clock.Clock
	logger      *slog.Logger
	stuckGrace  time.Duration
	maxAttempts int
}

// IncidentConfig — конфигурация IncidentWorker.
type IncidentConfig struct {
	// Store — record store.
	Store store.Store

	// Health — кэш health-статусов адаптеров (опционально).
	Health *adapters.HealthService

	// Publisher — шина событий (опционально).
	Publisher *mq.Publisher

	// StuckGrace — допуск сверх истечения lease до поднятия
	// task_lease_stuck (default: 2m).
	StuckGrace time.Duration

	// MaxAttempts — потолок попыток retry-цепочки, после которого
	// поднимается retries_exhausted (default: 3, как у RetryWorker).
	MaxAttempts int

	// Clock — источник времени (default: системные часы).
	Clock clock.Clock

	// Logger — логгер.
	Logger *slog.Logger
}

// NewIncidentWorker создаёт IncidentWorker.
func NewIncidentWorker(cfg IncidentConfig) *IncidentWorker {
	c := cfg.Clock
	if c == nil {
		c = clock.System()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	grace := cfg.StuckGrace
	if grace <= 0 {
		grace = defaultStuckGrace
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &IncidentWorker{
		store:       cfg.Store,
		health:      cfg.Health,
		publisher:   cfg.Publisher,
		clock:       c,
		logger:      logger,
		stuckGrace:  grace,
		maxAttempts: maxAttempts,
	}
}

// candidate — условие, обнаруженное одним из сканов.
type candidate struct {
	Type        domain.IncidentType
	Severity    domain.IncidentSeverity
	RelatedKind string
	RelatedID   string
	Notes       string
}

// Tick — одна итерация incident цикла.
func (w *IncidentWorker) Tick(ctx context.Context) error {
	metricTicks.WithLabelValues(string(domain.WorkerIncident)).Inc()
	_, err := w.Scan(ctx)
	return err
}

// Scan выполняет все проверки и поднимает недостающие инциденты.
// Возвращает число созданных инцидентов.
func (w *IncidentWorker) Scan(ctx context.Context) (int, error) {
	var candidates []candidate

	stuck, err := w.scanStuckTasks(ctx)
	if err != nil {
		return 0, err
	}
	candidates = append(candidates, stuck...)

	runCandidates, err := w.scanRuns(ctx)
	if err != nil {
		return 0, err
	}
	candidates = append(candidates, runCandidates...)
	candidates = append(candidates, w.scanAdapters(ctx)...)

	if len(candidates) == 0 {
		return 0, nil
	}

	open, err := w.openKeys(ctx)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, c := range candidates {
		key := string(c.Type) + "/" + c.RelatedID
		if _, exists := open[key]; exists {
			continue
		}
		if err := w.raise(ctx, c); err != nil {
			w.logger.Warn("raise incident failed",
				"type", c.Type, "related_id", c.RelatedID, "error", err)
			continue
		}
		open[key] = struct{}{}
		raised++
	}
	return raised, nil
}

// scanStuckTasks ищет claimed/running tasks, чей lease истёк давно
// и которые никто не re-claim'ит.
func (w *IncidentWorker) scanStuckTasks(ctx context.Context) ([]candidate, error) {
	tasks, err := store.ListAs[domain.ExecutionTask](ctx, w.store, domain.KindExecutionTask, 0)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	now := w.clock.Now()
	var out []candidate
	for i := range tasks {
		task := &tasks[i]
		switch task.Status {
		case domain.TaskStatusClaimed, domain.TaskStatusRunning, domain.TaskStatusCancelRequested:
		default:
			continue
		}
		if task.LeaseExpiresAt == nil || now.Before(task.LeaseExpiresAt.Add(w.stuckGrace)) {
			continue
		}

		out = append(out, candidate{
			Type:        domain.IncidentTaskLeaseStuck,
			Severity:    domain.IncidentSeverityWarning,
			RelatedKind: string(domain.KindExecutionTask),
			RelatedID:   task.ID,
			Notes: fmt.Sprintf(
				"task %s is %s with a lease that expired at %s and no executor re-claimed it; last owner %q. Check the executor sidecar, then cancel or wait for re-claim.",
				task.ID, task.Status, task.LeaseExpiresAt.UTC().Format(time.RFC3339), task.ExecutorID,
			),
		})
	}
	return out, nil
}

// scanRuns ищет исчерпанные retry-цепочки и неклассифицированные отказы.
func (w *IncidentWorker) scanRuns(ctx context.Context) ([]candidate, error) {
	runs, err := store.ListAs[domain.ExecutionRun](ctx, w.store, domain.KindExecutionRun, 0)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	retried := make(map[string]struct{})
	for i := range runs {
		if parent := runs[i].ParentExecutionRunRef; parent != "" {
			retried[parent] = struct{}{}
		}
	}

	var out []candidate
	for i := range runs {
		run := &runs[i]
		if run.Status != domain.RunStatusFailed {
			continue
		}

		switch {
		case run.FailureClass == domain.FailureClassTransient &&
			run.RetryRecommended &&
			run.Attempt >= w.maxAttempts:
			if _, exists := retried[run.ID]; exists {
				continue
			}
			out = append(out, candidate{
				Type:        domain.IncidentRetriesExhausted,
				Severity:    domain.IncidentSeverityCritical,
				RelatedKind: string(domain.KindExecutionRun),
				RelatedID:   run.ID,
				Notes: w.withRunbook(run.FailureCode, fmt.Sprintf(
					"run %s failed with a transient error on attempt %d of %d; the retry budget is spent. Investigate before re-queueing the plan manually.",
					run.ID, run.Attempt, w.maxAttempts,
				)),
			})

		case run.FailureClass == domain.FailureClassUnknown || run.FailureClass == "":
			out = append(out, candidate{
				Type:        domain.IncidentUnclassifiedFailure,
				Severity:    domain.IncidentSeverityWarning,
				RelatedKind: string(domain.KindExecutionRun),
				RelatedID:   run.ID,
				Notes: fmt.Sprintf(
					"run %s failed without a failure classification (code %q). The executor could not tell whether a retry is safe; triage manually.",
					run.ID, run.FailureCode,
				),
			})
		}
	}
	return out, nil
}

// scanAdapters поднимает инциденты по кэшированным unhealthy статусам.
// Live probe здесь не выполняется: свежесть кэша обеспечивает poller.
func (w *IncidentWorker) scanAdapters(ctx context.Context) []candidate {
	if w.health == nil {
		return nil
	}

	var out []candidate
	for _, status := range w.health.Check(ctx, false) {
		if status.Healthy || status.Detail == "never probed" {
			continue
		}
		out = append(out, candidate{
			Type:        domain.IncidentAdapterUnhealthy,
			Severity:    domain.IncidentSeverityCritical,
			RelatedKind: "adapter",
			RelatedID:   status.AdapterID,
			Notes: fmt.Sprintf(
				"adapter %s failed its last health probe at %s: %s. Tasks targeting it will stay queued until the endpoint recovers.",
				status.AdapterID, status.CheckedAt.UTC().Format(time.RFC3339), status.Detail,
			),
		})
	}
	return out
}

// withRunbook дополняет notes рекомендациями runbook по failure code.
func (w *IncidentWorker) withRunbook(code, notes string) string {
	entry, ok := adapters.LookupRunbook(code)
	if !ok {
		return notes
	}
	return notes + fmt.Sprintf(
		" Runbook %s: likely cause: %s. Actions: %s.",
		code, entry.LikelyCause, strings.Join(entry.Actions, "; "),
	)
}

// openKeys возвращает dedup-ключи неразрешённых инцидентов.
func (w *IncidentWorker) openKeys(ctx context.Context) (map[string]struct{}, error) {
	incidents, err := store.ListAs[domain.Incident](ctx, w.store, domain.KindIncident, 0)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	keys := make(map[string]struct{})
	for i := range incidents {
		if incidents[i].Status == domain.IncidentStatusResolved {
			continue
		}
		keys[incidents[i].DedupKey()] = struct{}{}
	}
	return keys, nil
}

// raise создаёт инцидент и публикует событие.
func (w *IncidentWorker) raise(ctx context.Context, c candidate) error {
	id, err := store.NextID(ctx, w.store, domain.KindIncident, store.PrefixIncident)
	if err != nil {
		return err
	}

	incident := domain.Incident{
		ID:          id,
		Type:        c.Type,
		Severity:    c.Severity,
		Status:      domain.IncidentStatusOpen,
		RelatedKind: c.RelatedKind,
		RelatedID:   c.RelatedID,
		Notes:       c.Notes,
		CreatedAt:   w.clock.Now(),
	}
	if err := store.CreateAs(ctx, w.store, id, domain.KindIncident, incident); err != nil {
		return err
	}

	metricIncidentsRaised.WithLabelValues(string(c.Type)).Inc()
	w.logger.Warn("incident raised",
		"incident_id", id,
		"type", c.Type,
		"severity", c.Severity,
		"related_id", c.RelatedID,
	)

	if w.publisher != nil {
		if err := w.publisher.PublishIncidentRaised(ctx, mq.IncidentRaisedPayload{
			IncidentID: id,
			Type:       string(c.Type),
			Severity:   string(c.Severity),
			RelatedID:  c.RelatedID,
		}); err != nil {
			w.logger.Warn("publish incident.raised failed", "incident_id", id, "error", err)
		}
	}
	return nil
}
