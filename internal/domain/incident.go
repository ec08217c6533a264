package domain

import "time"

// IncidentStatus — статус инцидента.
//
// Жизненный цикл: open → acked → resolved.
type IncidentStatus string

const (
	IncidentStatusOpen     IncidentStatus = "open"
	IncidentStatusAcked    IncidentStatus = "acked"
	IncidentStatusResolved IncidentStatus = "resolved"
)

// IncidentSeverity — серьёзность инцидента.
type IncidentSeverity string

const (
	IncidentSeverityInfo     IncidentSeverity = "info"
	IncidentSeverityWarning  IncidentSeverity = "warning"
	IncidentSeverityCritical IncidentSeverity = "critical"
)

// IncidentType — категория условия, породившего инцидент.
type IncidentType string

const (
	// IncidentTaskLeaseStuck — claimed task с давно истёкшим lease,
	// который никто не re-claim'ит.
	IncidentTaskLeaseStuck IncidentType = "task_lease_stuck"

	// IncidentAdapterUnhealthy — adapter endpoint не отвечает на health probe.
	IncidentAdapterUnhealthy IncidentType = "adapter_unhealthy"

	// IncidentRetriesExhausted — transient-отказ, retry исчерпаны.
	IncidentRetriesExhausted IncidentType = "retries_exhausted"

	// IncidentUnclassifiedFailure — run провалился без классификации отказа.
	IncidentUnclassifiedFailure IncidentType = "unclassified_failure"
)

// Incident — дедуплицированный операторский алерт.
//
// Инвариант: повторное сканирование не создаёт второй открытый incident
// для той же пары (type, related entity).
type Incident struct {
	// ID — идентификатор инцидента.
	ID string `json:"id"`

	// Type — категория.
	Type IncidentType `json:"type"`

	// Severity — серьёзность.
	Severity IncidentSeverity `json:"severity"`

	// Status — текущий статус.
	Status IncidentStatus `json:"status"`

	// RelatedKind / RelatedID — сущность, к которой относится инцидент
	// (execution_task, execution_run или adapter).
	RelatedKind string `json:"relatedKind"`
	RelatedID   string `json:"relatedId"`

	// Notes — свободный текст: описание условия и рекомендации из runbook.
	Notes string `json:"notes,omitempty"`

	// CreatedAt / AckedAt / ResolvedAt — времена переходов.
	CreatedAt  time.Time  `json:"createdAt"`
	AckedAt    *time.Time `json:"ackedAt,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// DedupKey — ключ дедупликации инцидентов.
func (i *Incident) DedupKey() string {
	return string(i.Type) + "/" + i.RelatedID
}
