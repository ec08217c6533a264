package domain

import "time"

// RunMode — режим выполнения run.
type RunMode string

const (
	// RunModeRemoteTask — выполнение через удалённый executor
	// по протоколу claim/heartbeat/status.
	RunModeRemoteTask RunMode = "remote_task"
)

// ExecutionRun — одна попытка выполнения robot plan.
//
// Task — это «как» (протокол с executor'ом), run — долговременная запись
// «что произошло». Run неизменяем после достижения терминального статуса.
// Retry одного robot plan образуют цепочку через ParentExecutionRunRef.
type ExecutionRun struct {
	// ID — идентификатор run.
	ID string `json:"id"`

	// RobotPlanRef — ссылка на robot plan.
	RobotPlanRef string `json:"robotPlanRef"`

	// PlannedRunRef — ссылка на исходный planned run (опционально).
	PlannedRunRef string `json:"plannedRunRef,omitempty"`

	// ParentExecutionRunRef — run, retry которого представляет этот run.
	ParentExecutionRunRef string `json:"parentExecutionRunRef,omitempty"`

	// Attempt — номер попытки для данного robot plan:
	// max(attempt по всем существующим runs этого plan) + 1.
	Attempt int `json:"attempt"`

	// Status — статус run.
	Status RunStatus `json:"status"`

	// Mode — режим выполнения.
	Mode RunMode `json:"mode"`

	// Progress — последнее известное состояние прогресса (зеркало task).
	Progress map[string]any `json:"progress,omitempty"`

	// ExternalRunID / ExternalProtocolID / LastRawStatus — идентификаторы
	// и последний сырой статус во внешней системе выполнения.
	ExternalRunID      string `json:"externalRunId,omitempty"`
	ExternalProtocolID string `json:"externalProtocolId,omitempty"`
	LastRawStatus      string `json:"lastRawStatus,omitempty"`

	// FailureClass / FailureCode — классификация отказа.
	FailureClass FailureClass `json:"failureClass,omitempty"`
	FailureCode  string       `json:"failureCode,omitempty"`

	// RetryRecommended / RetryReason — рекомендация retry-worker'у.
	// Выставляется при переходе task в failed.
	RetryRecommended bool   `json:"retryRecommended,omitempty"`
	RetryReason      string `json:"retryReason,omitempty"`

	// Notes — свободный текст (сообщение отказа, пометки операторов).
	Notes string `json:"notes,omitempty"`

	// StartedAt / CompletedAt — времена выполнения.
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"createdAt"`
}

// IsSettled возвращает true, если run достиг терминального статуса.
func (r *ExecutionRun) IsSettled() bool {
	return r.Status.IsTerminal()
}
