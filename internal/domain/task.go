package domain

import "time"

// ExecutionTask — единица удалённой работы.
//
// Task создаётся вместе со своим ExecutionRun при публикации robot plan
// и мутирует исключительно через протокол claim/heartbeat/logs/status/complete.
// Терминальные tasks никогда не удаляются — это audit trail.
type ExecutionTask struct {
	// ID — идентификатор task.
	ID string `json:"id"`

	// ExecutionRunRef — ссылка на ExecutionRun (1:1).
	ExecutionRunRef string `json:"executionRunRef"`

	// RobotPlanRef — ссылка на robot plan.
	RobotPlanRef string `json:"robotPlanRef"`

	// PlannedRunRef — ссылка на исходный planned run (опционально).
	PlannedRunRef string `json:"plannedRunRef,omitempty"`

	// AdapterID — адаптер, который должен выполнить task
	// (capability для claim-матчинга, например "integra_assist_plus").
	AdapterID string `json:"adapterId"`

	// TargetPlatform — целевая платформа robot plan.
	TargetPlatform string `json:"targetPlatform"`

	// ContractVersion — версия sidecar-контракта.
	ContractVersion string `json:"contractVersion"`

	// RuntimeParameters — параметры запуска, прокидываются executor'у как есть.
	RuntimeParameters map[string]any `json:"runtimeParameters,omitempty"`

	// ArtifactRefs — снапшот ссылок на артефакты robot plan,
	// копируется при создании и больше не меняется.
	ArtifactRefs []ArtifactRef `json:"artifactRefs,omitempty"`

	// Status — текущий статус.
	Status TaskStatus `json:"status"`

	// ExecutorID — владелец task после claim.
	// Сбрасывается только re-claim'ом после истечения lease,
	// никогда — самим executor'ом.
	ExecutorID string `json:"executorId,omitempty"`

	// ClaimedAt — время первого claim. Re-claim после истечения lease
	// сохраняет исходное значение.
	ClaimedAt *time.Time `json:"claimedAt,omitempty"`

	// LeaseDurationMs — длительность lease, согласованная при claim.
	LeaseDurationMs int64 `json:"leaseDurationMs,omitempty"`

	// LeaseExpiresAt — момент истечения lease.
	LeaseExpiresAt *time.Time `json:"leaseExpiresAt,omitempty"`

	// LastHeartbeatAt — время последнего heartbeat.
	LastHeartbeatAt *time.Time `json:"lastHeartbeatAt,omitempty"`

	// LastSequence — монотонный счётчик принятых мутаций.
	// Начинается с 0; каждая принятая мутация строго увеличивает его.
	LastSequence int64 `json:"lastSequence"`

	// Progress — непрозрачное состояние прогресса от executor.
	Progress map[string]any `json:"progress,omitempty"`

	// Failure — детали отказа, если task провалился.
	Failure *FailureDetail `json:"failure,omitempty"`

	// External — идентификаторы во внешней системе выполнения.
	External *ExternalRef `json:"external,omitempty"`

	// StartedAt / CompletedAt — времена выполнения, присылаются в complete.
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Artifacts / Measurements — прикрепляются при завершении.
	Artifacts    []map[string]any `json:"artifacts,omitempty"`
	Measurements []map[string]any `json:"measurements,omitempty"`

	// CreatedAt — время создания task.
	CreatedAt time.Time `json:"createdAt"`
}

// ArtifactRef — ссылка на артефакт robot plan.
type ArtifactRef struct {
	Role string `json:"role"`
	URI  string `json:"uri"`
	Mime string `json:"mime,omitempty"`
}

// FailureDetail — классифицированный отказ.
type FailureDetail struct {
	Code    string       `json:"code,omitempty"`
	Class   FailureClass `json:"class,omitempty"`
	Message string       `json:"message,omitempty"`
}

// ExternalRef — идентификаторы во внешней системе выполнения
// (например, run id протокола в Opentrons robot-server).
type ExternalRef struct {
	RunID      string `json:"runId,omitempty"`
	ProtocolID string `json:"protocolId,omitempty"`
	RawStatus  string `json:"rawStatus,omitempty"`
}

// LeaseExpired возвращает true, если lease task истёк к моменту now.
// Task без lease (ещё не claimed) не считается expired.
func (t *ExecutionTask) LeaseExpired(now time.Time) bool {
	if t.LeaseExpiresAt == nil {
		return false
	}
	return now.After(*t.LeaseExpiresAt)
}

// OwnedBy проверяет владение task.
func (t *ExecutionTask) OwnedBy(executorID string) bool {
	return t.ExecutorID != "" && t.ExecutorID == executorID
}
