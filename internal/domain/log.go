package domain

import "time"

// LogEntryType — закрытое множество типов записей лога.
type LogEntryType string

const (
	LogEntryError     LogEntryType = "error"
	LogEntryWarning   LogEntryType = "warning"
	LogEntryTelemetry LogEntryType = "telemetry"
	LogEntryInfo      LogEntryType = "info"
)

// MapLogLevel приводит произвольный level от executor к закрытому множеству.
// Неизвестные уровни становятся info.
func MapLogLevel(level string) LogEntryType {
	switch level {
	case "error", "fatal":
		return LogEntryError
	case "warning", "warn":
		return LogEntryWarning
	case "telemetry", "metric":
		return LogEntryTelemetry
	default:
		return LogEntryInfo
	}
}

// LogEntry — одна запись лога, присланная executor'ом.
// Формат полей совпадает с wire-форматом sidecar-контракта.
type LogEntry struct {
	Message   string         `json:"message"`
	Level     string         `json:"level,omitempty"`
	Code      string         `json:"code,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// StoredLogEntry — запись лога после нормализации уровня.
type StoredLogEntry struct {
	Type      LogEntryType   `json:"type"`
	Message   string         `json:"message"`
	Code      string         `json:"code,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// TaskLog — неизменяемая запись одного принятого appendLogs вызова.
// Каждый принятый batch создаёт новую запись; записи никогда не мутируют.
type TaskLog struct {
	// ID — идентификатор записи.
	ID string `json:"id"`

	// TaskRef / ExecutionRunRef — ссылки на task и run.
	TaskRef         string `json:"taskRef"`
	ExecutionRunRef string `json:"executionRunRef"`

	// Sequence — sequence номер принятого вызова.
	Sequence int64 `json:"sequence"`

	// Entries — нормализованные записи batch'а.
	Entries []StoredLogEntry `json:"entries"`

	// FirstEntryAt / LastEntryAt — собственные timestamps первой
	// и последней записи, если executor их прислал.
	FirstEntryAt string `json:"firstEntryAt,omitempty"`
	LastEntryAt  string `json:"lastEntryAt,omitempty"`

	// CreatedAt — время приёма batch'а.
	CreatedAt time.Time `json:"createdAt"`
}
