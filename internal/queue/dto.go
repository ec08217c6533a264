package queue

import (
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

// CreateTaskInput — вход createQueuedTask.
type CreateTaskInput struct {
	// RobotPlanID — id скомпилированного robot plan.
	RobotPlanID string

	// RuntimeParameters — параметры запуска, передаются executor'у как есть.
	RuntimeParameters map[string]any

	// ParentExecutionRunID — провалившийся run, retry которого создаётся.
	ParentExecutionRunID string

	// ContractVersion — версия sidecar-контракта.
	// Пустая — берётся из плана, иначе execution-task/v1.
	ContractVersion string
}

// CreateTaskResult — результат createQueuedTask.
type CreateTaskResult struct {
	TaskID         string
	ExecutionRunID string
	Attempt        int
}

// ClaimInput — вход claimTasks.
type ClaimInput struct {
	// ExecutorID — обязательный идентификатор executor'а.
	ExecutorID string

	// Capabilities — множество capabilities (пустое или "*" — любые tasks).
	Capabilities domain.CapabilitySet

	// MaxTasks — максимум tasks за вызов, клампится в [1, 20].
	MaxTasks int

	// LeaseDurationMs — запрошенная длительность lease,
	// клампится в [5000, 300000] мс.
	LeaseDurationMs int64
}

// ClaimedTask — поля, которые executor получает на руки после claim.
// Состав совпадает с тем, что sidecar использует для старта работы.
type ClaimedTask struct {
	TaskID            string               `json:"taskId"`
	ExecutionRunID    string               `json:"executionRunId"`
	RobotPlanID       string               `json:"robotPlanId"`
	AdapterID         string               `json:"adapterId"`
	TargetPlatform    string               `json:"targetPlatform"`
	ContractVersion   string               `json:"contractVersion"`
	RuntimeParameters map[string]any       `json:"runtimeParameters,omitempty"`
	ArtifactRefs      []domain.ArtifactRef `json:"artifactRefs,omitempty"`
	LeaseExpiresAt    time.Time            `json:"leaseExpiresAt"`
}

// HeartbeatInput — вход heartbeat.
type HeartbeatInput struct {
	TaskID     string
	ExecutorID string

	// Sequence — строго возрастающий номер мутации от executor.
	Sequence int64

	// Status — запрошенный статус; пустой — running если task claimed,
	// иначе текущий статус. Для heartbeat допустимы только claimed и running.
	Status domain.TaskStatus

	// Progress — непрозрачное состояние прогресса.
	Progress map[string]any

	// At — время события; nil — текущее время.
	At *time.Time
}

// AppendLogsInput — вход appendLogs.
type AppendLogsInput struct {
	TaskID     string
	ExecutorID string
	Sequence   int64
	Entries    []domain.LogEntry
}

// UpdateStatusInput — вход updateStatus.
type UpdateStatusInput struct {
	TaskID     string
	ExecutorID string
	Sequence   int64
	Status     domain.TaskStatus
	Failure    *domain.FailureDetail
	External   *domain.ExternalRef
	At         *time.Time
}

// CompleteInput — вход complete.
type CompleteInput struct {
	TaskID       string
	ExecutorID   string
	Sequence     int64
	FinalStatus  domain.TaskStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Artifacts    []map[string]any
	Measurements []map[string]any
}

// MutationResult — результат мутирующей операции протокола.
//
// Accepted=false означает, что sequence уже был применён: это не ошибка,
// а сигнал executor'у, что ровно этот update уже учтён (безопасный
// at-least-once retry по ненадёжной сети).
type MutationResult struct {
	Accepted     bool              `json:"accepted"`
	Status       domain.TaskStatus `json:"status"`
	LastSequence int64             `json:"lastSequence"`

	// LogID — id созданной записи лога (только appendLogs).
	LogID string `json:"logId,omitempty"`
}
