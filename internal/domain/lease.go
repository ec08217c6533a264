package domain

import "time"

// WorkerID — логический идентификатор singleton background worker'а.
type WorkerID string

// Singleton workers системы.
const (
	WorkerPoller   WorkerID = "poller"
	WorkerRetry    WorkerID = "retry-worker"
	WorkerIncident WorkerID = "incident-worker"
)

// WorkerLease — запись взаимного исключения для одного logical worker id.
//
// Инвариант: в любой момент не более одного instance держит неистёкший
// lease для данного worker id. Исключение — forced takeover, который
// по дизайну гоняется по принципу last-writer-wins (fencing token
// не сравнивается).
type WorkerLease struct {
	// WorkerID — логический идентификатор worker'а.
	WorkerID WorkerID `json:"workerId"`

	// OwnerInstance — instance id процесса, держащего lease.
	OwnerInstance string `json:"ownerInstance,omitempty"`

	// AcquiredAt — время захвата lease текущим владельцем.
	AcquiredAt *time.Time `json:"acquiredAt,omitempty"`

	// ExpiresAt — момент истечения lease.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`

	// IntervalMs — сконфигурированный интервал тиков.
	IntervalMs int64 `json:"intervalMs,omitempty"`

	// Running — true, пока владелец крутит периодический цикл.
	Running bool `json:"running"`
}

// Expired возвращает true, если lease истёк к моменту now.
// Lease без ExpiresAt считается истёкшим.
func (l *WorkerLease) Expired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return true
	}
	return now.After(*l.ExpiresAt)
}
