package domain

import "testing"

func TestCanTransition_Lifecycle(t *testing.T) {
	allowed := []struct{ from, to TaskStatus }{
		{TaskStatusQueued, TaskStatusClaimed},
		{TaskStatusQueued, TaskStatusCanceled},
		{TaskStatusClaimed, TaskStatusRunning},
		{TaskStatusClaimed, TaskStatusFailed},
		{TaskStatusRunning, TaskStatusCancelRequested},
		{TaskStatusRunning, TaskStatusCompleted},
		{TaskStatusRunning, TaskStatusFailed},
		{TaskStatusCancelRequested, TaskStatusCanceled},
		{TaskStatusCancelRequested, TaskStatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to TaskStatus }{
		{TaskStatusQueued, TaskStatusRunning},
		{TaskStatusQueued, TaskStatusCompleted},
		{TaskStatusClaimed, TaskStatusCompleted},
		{TaskStatusCompleted, TaskStatusRunning},
		{TaskStatusFailed, TaskStatusQueued},
		{TaskStatusCanceled, TaskStatusFailed},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be denied", tc.from, tc.to)
		}
	}
}

func TestCanTransition_SelfLoop(t *testing.T) {
	// Heartbeat повторяет текущий статус — для нетерминальных это легально
	for _, s := range []TaskStatus{TaskStatusQueued, TaskStatusClaimed, TaskStatusRunning, TaskStatusCancelRequested} {
		if !CanTransition(s, s) {
			t.Errorf("self-loop on %s should be allowed", s)
		}
	}
	// Терминальные неизменяемы, даже «в себя»
	for _, s := range []TaskStatus{TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled} {
		if CanTransition(s, s) {
			t.Errorf("self-loop on terminal %s should be denied", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminals := map[TaskStatus]bool{
		TaskStatusQueued:          false,
		TaskStatusClaimed:         false,
		TaskStatusRunning:         false,
		TaskStatusCancelRequested: false,
		TaskStatusCompleted:       true,
		TaskStatusFailed:          true,
		TaskStatusCanceled:        true,
	}
	for s, want := range terminals {
		if got := s.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, want)
		}
	}
}

func TestCoerceRunStatus(t *testing.T) {
	cases := map[TaskStatus]RunStatus{
		TaskStatusQueued:          RunStatusRunning,
		TaskStatusClaimed:         RunStatusRunning,
		TaskStatusRunning:         RunStatusRunning,
		TaskStatusCancelRequested: RunStatusRunning,
		TaskStatusCompleted:       RunStatusCompleted,
		TaskStatusFailed:          RunStatusFailed,
		TaskStatusCanceled:        RunStatusCanceled,
	}
	for task, want := range cases {
		if got := CoerceRunStatus(task); got != want {
			t.Errorf("CoerceRunStatus(%s) = %s, want %s", task, got, want)
		}
	}
}

func TestMapLogLevel(t *testing.T) {
	cases := map[string]LogEntryType{
		"error":     LogEntryError,
		"fatal":     LogEntryError,
		"warning":   LogEntryWarning,
		"warn":      LogEntryWarning,
		"telemetry": LogEntryTelemetry,
		"metric":    LogEntryTelemetry,
		"info":      LogEntryInfo,
		"debug":     LogEntryInfo,
		"":          LogEntryInfo,
		"VERBOSE":   LogEntryInfo,
	}
	for level, want := range cases {
		if got := MapLogLevel(level); got != want {
			t.Errorf("MapLogLevel(%q) = %s, want %s", level, got, want)
		}
	}
}
