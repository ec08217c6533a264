package queue

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/clock"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/mq"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/telemetry"
)

// Клампы claim-параметров и дефолты протокола.
const (
	minClaimTasks = 1
	maxClaimTasks = 20

	minLeaseMs     = 5_000
	maxLeaseMs     = 300_000
	defaultLeaseMs = 60_000

	// DefaultContractVersion — версия sidecar-контракта по умолчанию.
	DefaultContractVersion = "execution-task/v1"
)

// Queue — сервис execution task queue: владеет state machine task'ов,
// протоколом claim/heartbeat/logs/status/complete и зеркалированием
// статусов в run ledger.
type Queue struct {
	store     store.Store
	clock     clock.Clock
	publisher *mq.Publisher
	logger    *slog.Logger
}

// Config — конфигурация Queue.
type Config struct {
	// Store — record store.
	Store store.Store

	// Clock — источник времени (default: системные часы).
	Clock clock.Clock

	// Publisher — шина событий (опционально; nil — события не публикуются).
	Publisher *mq.Publisher

	// Logger — логгер.
	Logger *slog.Logger
}

// New создаёт Queue.
func New(cfg Config) *Queue {
	c := cfg.Clock
	if c == nil {
		c = clock.System()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:     cfg.Store,
		clock:     c,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}

// CreateQueuedTask создаёт пару ExecutionRun + ExecutionTask для robot plan
// и публикует task как claimable.
//
// Номер попытки — max(attempt по всем runs этого плана) + 1; retry-цепочка
// строится через ParentExecutionRunID.
func (q *Queue) CreateQueuedTask(ctx context.Context, in CreateTaskInput) (*CreateTaskResult, error) {
	if in.RobotPlanID == "" {
		return nil, badRequestf("robotPlanId is required")
	}

	planRec, err := q.store.Get(ctx, in.RobotPlanID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("robot plan %s not found", in.RobotPlanID)
		}
		return nil, &Error{Kind: KindNotFound, Message: "load robot plan", Err: err}
	}
	if planRec.Kind != domain.KindRobotPlan {
		return nil, badRequestf("record %s is not a robot plan (kind %s)", in.RobotPlanID, planRec.Kind)
	}

	plan, err := store.GetAs[domain.RobotPlan](ctx, q.store, in.RobotPlanID)
	if err != nil {
		return nil, badRequestf("robot plan %s is malformed: %v", in.RobotPlanID, err)
	}
	if plan.TargetPlatform == "" {
		return nil, badRequestf("robot plan %s has no target platform", in.RobotPlanID)
	}
	if !domain.SupportedPlatform(plan.TargetPlatform) {
		return nil, badRequestf("unsupported target platform %q", plan.TargetPlatform)
	}

	if in.ParentExecutionRunID != "" {
		parentRec, err := q.store.Get(ctx, in.ParentExecutionRunID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, notFoundf("parent execution run %s not found", in.ParentExecutionRunID)
			}
			return nil, &Error{Kind: KindNotFound, Message: "load parent run", Err: err}
		}
		if parentRec.Kind != domain.KindExecutionRun {
			return nil, badRequestf("parent %s is not an execution run", in.ParentExecutionRunID)
		}
	}

	runs, err := store.ListAs[domain.ExecutionRun](ctx, q.store, domain.KindExecutionRun, 0)
	if err != nil {
		return nil, &Error{Kind: KindCreateFailed, Message: "list execution runs", Err: err}
	}
	attempt := 1
	for i := range runs {
		if runs[i].RobotPlanRef == in.RobotPlanID && runs[i].Attempt >= attempt {
			attempt = runs[i].Attempt + 1
		}
	}

	runID, err := store.NextID(ctx, q.store, domain.KindExecutionRun, store.PrefixExecutionRun)
	if err != nil {
		return nil, &Error{Kind: KindCreateFailed, Message: "allocate run id", Err: err}
	}
	taskID, err := store.NextID(ctx, q.store, domain.KindExecutionTask, store.PrefixExecutionTask)
	if err != nil {
		return nil, &Error{Kind: KindCreateFailed, Message: "allocate task id", Err: err}
	}

	contractVersion := in.ContractVersion
	if contractVersion == "" {
		contractVersion = plan.ContractVersion
	}
	if contractVersion == "" {
		contractVersion = DefaultContractVersion
	}

	now := q.clock.Now()

	run := domain.ExecutionRun{
		ID:                    runID,
		RobotPlanRef:          in.RobotPlanID,
		PlannedRunRef:         plan.PlannedRunRef,
		ParentExecutionRunRef: in.ParentExecutionRunID,
		Attempt:               attempt,
		Status:                domain.RunStatusRunning,
		Mode:                  domain.RunModeRemoteTask,
		CreatedAt:             now,
	}
	if err := store.CreateAs(ctx, q.store, runID, domain.KindExecutionRun, run); err != nil {
		return nil, createFailed(err, "execution run")
	}

	task := domain.ExecutionTask{
		ID:                taskID,
		ExecutionRunRef:   runID,
		RobotPlanRef:      in.RobotPlanID,
		PlannedRunRef:     plan.PlannedRunRef,
		AdapterID:         plan.Adapter(),
		TargetPlatform:    plan.TargetPlatform,
		ContractVersion:   contractVersion,
		RuntimeParameters: in.RuntimeParameters,
		ArtifactRefs:      append([]domain.ArtifactRef(nil), plan.ArtifactRefs...),
		Status:            domain.TaskStatusQueued,
		LastSequence:      0,
		CreatedAt:         now,
	}
	// Run уже записан; отказ записи task оставит осиротевший run —
	// окно дрейфа закрывает Poller.
	if err := store.CreateAs(ctx, q.store, taskID, domain.KindExecutionTask, task); err != nil {
		return nil, createFailed(err, "execution task")
	}

	metricTasksCreated.Inc()
	q.logger.Info("task queued",
		"task_id", taskID,
		"execution_run_id", runID,
		"robot_plan_id", in.RobotPlanID,
		"adapter_id", task.AdapterID,
		"attempt", attempt,
	)

	if q.publisher != nil {
		if err := q.publisher.PublishTaskQueued(ctx, mq.TaskQueuedPayload{
			TaskID:         taskID,
			ExecutionRunID: runID,
			AdapterID:      task.AdapterID,
		}); err != nil {
			q.logger.Warn("failed to publish task.queued", "task_id", taskID, "error", err)
		}
	}

	return &CreateTaskResult{TaskID: taskID, ExecutionRunID: runID, Attempt: attempt}, nil
}

// ClaimTasks выдаёт executor'у до MaxTasks подходящих tasks.
//
// Кандидаты: queued tasks плюс claimed tasks с истёкшим lease
// (abandoned работа передаётся новому владельцу). Порядок детерминирован:
// createdAt, затем id. Конкурентно перехваченные tasks пропускаются,
// а не валят весь вызов.
func (q *Queue) ClaimTasks(ctx context.Context, in ClaimInput) ([]ClaimedTask, error) {
	if in.ExecutorID == "" {
		return nil, badRequestf("executorId is required")
	}

	maxTasks := in.MaxTasks
	if maxTasks < minClaimTasks {
		maxTasks = minClaimTasks
	}
	if maxTasks > maxClaimTasks {
		maxTasks = maxClaimTasks
	}

	leaseMs := in.LeaseDurationMs
	if leaseMs <= 0 {
		leaseMs = defaultLeaseMs
	}
	if leaseMs < minLeaseMs {
		leaseMs = minLeaseMs
	}
	if leaseMs > maxLeaseMs {
		leaseMs = maxLeaseMs
	}

	tasks, err := store.ListAs[domain.ExecutionTask](ctx, q.store, domain.KindExecutionTask, 0)
	if err != nil {
		return nil, &Error{Kind: KindNotFound, Message: "list execution tasks", Err: err}
	}

	now := q.clock.Now()

	var candidates []domain.ExecutionTask
	for i := range tasks {
		t := tasks[i]
		if !in.Capabilities.Matches(t.AdapterID, t.TargetPlatform) {
			continue
		}
		claimable := t.Status == domain.TaskStatusQueued ||
			(t.Status == domain.TaskStatusClaimed && t.LeaseExpired(now))
		if claimable {
			candidates = append(candidates, t)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	claimed := make([]ClaimedTask, 0, maxTasks)
	for i := range candidates {
		if len(claimed) >= maxTasks {
			break
		}

		// Перечитываем и перепроверяем: конкурентный claim мог уже
		// забрать task — тогда просто пропускаем его.
		task, err := store.GetAs[domain.ExecutionTask](ctx, q.store, candidates[i].ID)
		if err != nil {
			continue
		}
		stillClaimable := task.Status == domain.TaskStatusQueued ||
			(task.Status == domain.TaskStatusClaimed && task.LeaseExpired(now))
		if !stillClaimable || !domain.CanTransition(task.Status, domain.TaskStatusClaimed) {
			continue
		}

		task.Status = domain.TaskStatusClaimed
		task.ExecutorID = in.ExecutorID
		if task.ClaimedAt == nil {
			// Re-claim после истечения lease сохраняет исходный claimedAt.
			at := now
			task.ClaimedAt = &at
		}
		task.LeaseDurationMs = leaseMs
		expires := now.Add(msToDuration(leaseMs))
		task.LeaseExpiresAt = &expires
		hb := now
		task.LastHeartbeatAt = &hb

		if err := store.UpdateAs(ctx, q.store, task.ID, domain.KindExecutionTask, task); err != nil {
			q.logger.Warn("claim write failed, skipping task", "task_id", task.ID, "error", err)
			continue
		}

		metricTasksClaimed.Inc()
		telemetry.WithExecutorID(q.logger, in.ExecutorID).Info("task claimed",
			"task_id", task.ID,
			"execution_run_id", task.ExecutionRunRef,
			"lease_expires_at", expires,
		)

		claimed = append(claimed, ClaimedTask{
			TaskID:            task.ID,
			ExecutionRunID:    task.ExecutionRunRef,
			RobotPlanID:       task.RobotPlanRef,
			AdapterID:         task.AdapterID,
			TargetPlatform:    task.TargetPlatform,
			ContractVersion:   task.ContractVersion,
			RuntimeParameters: task.RuntimeParameters,
			ArtifactRefs:      task.ArtifactRefs,
			LeaseExpiresAt:    expires,
		})
	}

	return claimed, nil
}

// RequestCancel переводит task в cancel_requested (или queued task сразу
// в canceled) со стороны управляющего сервиса.
//
// Отмена advisory: для running task executor обязан сам довести работу
// до терминального статуса, queue не может прервать удалённое выполнение.
func (q *Queue) RequestCancel(ctx context.Context, taskID string) (*MutationResult, error) {
	task, err := store.GetAs[domain.ExecutionTask](ctx, q.store, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("task %s not found", taskID)
		}
		return nil, &Error{Kind: KindNotFound, Message: "load task", Err: err}
	}

	var target domain.TaskStatus
	switch {
	case task.Status == domain.TaskStatusQueued:
		target = domain.TaskStatusCanceled
	case domain.CanTransition(task.Status, domain.TaskStatusCancelRequested):
		target = domain.TaskStatusCancelRequested
	default:
		metricInvalidTransitions.Inc()
		return nil, badRequestf("cannot request cancel from status %s", task.Status)
	}

	// LastSequence не трогаем: счётчик принадлежит executor'у, и съеденный
	// сервером номер превратил бы его следующую мутацию в «stale replay».
	// Терминальность отменённого task защищает таблица переходов.
	now := q.clock.Now()
	task.Status = target
	if target.IsTerminal() {
		task.CompletedAt = &now
	}
	if err := store.UpdateAs(ctx, q.store, task.ID, domain.KindExecutionTask, task); err != nil {
		return nil, updateFailed(err, "execution task")
	}

	q.mirrorRun(ctx, task)
	q.logger.Info("cancel requested", "task_id", task.ID, "status", target)

	return &MutationResult{Accepted: true, Status: task.Status, LastSequence: task.LastSequence}, nil
}
