package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

// ReportID — id записи отчёта self-test для текущей версии контракта.
var ReportID = "contract-report-" + strings.ReplaceAll(Version, "/", "-")

// Check — одна проверка self-test: пример payload и ожидаемый вердикт.
type Check struct {
	Kind      PayloadKind `json:"kind"`
	Name      string      `json:"name"`
	WantValid bool        `json:"wantValid"`
	GotValid  bool        `json:"gotValid"`
	Pass      bool        `json:"pass"`
	Errors    []string    `json:"errors,omitempty"`
}

// Report — результат прогона self-test.
type Report struct {
	ID              string    `json:"id"`
	ContractVersion string    `json:"contractVersion"`
	RunAt           time.Time `json:"runAt"`
	Passed          bool      `json:"passed"`
	Checks          []Check   `json:"checks"`
}

// selfTestCase — встроенный пример payload.
type selfTestCase struct {
	kind      PayloadKind
	name      string
	payload   string
	wantValid bool
}

// selfTestCases — канонические примеры протокола, по паре на вид payload:
// один валидный и один с типичной ошибкой sidecar'а.
var selfTestCases = []selfTestCase{
	{
		kind: PayloadClaimRequest, name: "full claim request", wantValid: true,
		payload: `{"executorId":"sidecar-ot2-01","capabilities":["opentrons_ot2"],"maxTasks":2,"leaseDurationMs":60000}`,
	},
	{
		kind: PayloadClaimRequest, name: "claim without executorId", wantValid: false,
		payload: `{"capabilities":["opentrons_ot2"]}`,
	},
	{
		kind: PayloadHeartbeat, name: "running heartbeat with progress", wantValid: true,
		payload: `{"executorId":"sidecar-ot2-01","sequence":4,"status":"running","progress":{"step":3,"totalSteps":12}}`,
	},
	{
		kind: PayloadHeartbeat, name: "heartbeat with terminal status", wantValid: false,
		payload: `{"executorId":"sidecar-ot2-01","sequence":5,"status":"completed"}`,
	},
	{
		kind: PayloadAppendLogs, name: "log batch", wantValid: true,
		payload: `{"executorId":"sidecar-ot2-01","sequence":6,"entries":[{"message":"aspirate 50ul from A1","level":"info"},{"message":"pressure spike","level":"warning","code":"PRESSURE_SPIKE"}]}`,
	},
	{
		kind: PayloadAppendLogs, name: "empty log batch", wantValid: false,
		payload: `{"executorId":"sidecar-ot2-01","sequence":7,"entries":[]}`,
	},
	{
		kind: PayloadUpdateStatus, name: "failure with classification", wantValid: true,
		payload: `{"executorId":"sidecar-ot2-01","sequence":8,"status":"failed","failure":{"code":"EXECUTOR_EXCEPTION","class":"transient","message":"robot-server timed out"},"external":{"runId":"run-9f2","rawStatus":"failed"}}`,
	},
	{
		kind: PayloadUpdateStatus, name: "failure without code", wantValid: false,
		payload: `{"executorId":"sidecar-ot2-01","sequence":9,"status":"failed","failure":{"class":"transient"}}`,
	},
	{
		kind: PayloadComplete, name: "successful completion", wantValid: true,
		payload: `{"executorId":"sidecar-ot2-01","sequence":10,"finalStatus":"completed","startedAt":"2026-08-28T10:00:00Z","completedAt":"2026-08-28T10:12:30Z","artifacts":[{"role":"result","uri":"s3://cl-artifacts/run-9f2/results.csv"}]}`,
	},
	{
		kind: PayloadComplete, name: "completion with non-terminal status", wantValid: false,
		payload: `{"executorId":"sidecar-ot2-01","sequence":11,"finalStatus":"running"}`,
	},
}

// SelfTest прогоняет встроенные примеры через схемы и возвращает отчёт.
// persist=true — отчёт сохраняется в store под ReportID (create-or-update),
// перезаписывая предыдущий прогон той же версии контракта.
func (s *ConformanceService) SelfTest(ctx context.Context, persist bool) (*Report, error) {
	report := &Report{
		ID:              ReportID,
		ContractVersion: Version,
		RunAt:           s.clock.Now(),
		Passed:          true,
	}

	for _, tc := range selfTestCases {
		result, err := s.Validate(tc.kind, []byte(tc.payload))
		if err != nil {
			return nil, fmt.Errorf("self-test %s/%s: %w", tc.kind, tc.name, err)
		}
		check := Check{
			Kind:      tc.kind,
			Name:      tc.name,
			WantValid: tc.wantValid,
			GotValid:  result.Valid,
			Pass:      result.Valid == tc.wantValid,
			Errors:    result.Errors,
		}
		if !check.Pass {
			report.Passed = false
		}
		report.Checks = append(report.Checks, check)
	}

	if persist {
		if s.store == nil {
			return nil, errors.New("conformance service has no store, cannot persist report")
		}
		err := store.CreateAs(ctx, s.store, ReportID, domain.KindContractReport, report)
		if errors.Is(err, store.ErrAlreadyExists) {
			err = store.UpdateAs(ctx, s.store, ReportID, domain.KindContractReport, report)
		}
		if err != nil {
			return nil, fmt.Errorf("persist contract report: %w", err)
		}
	}

	s.logger.Info("contract self-test finished",
		"contract_version", Version,
		"passed", report.Passed,
		"checks", len(report.Checks),
		"persisted", persist,
	)
	return report, nil
}

// LastReport возвращает последний сохранённый отчёт self-test.
func (s *ConformanceService) LastReport(ctx context.Context) (*Report, error) {
	if s.store == nil {
		return nil, errors.New("conformance service has no store")
	}
	report, err := store.GetAs[Report](ctx, s.store, ReportID)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GateRequirements — требования готовности к ротации парка executor'ов.
type GateRequirements struct {
	// MaxReportAge — максимальный возраст сохранённого self-test отчёта;
	// 0 — возраст не проверяется.
	MaxReportAge time.Duration

	// Adapters — адаптеры, которые должны быть healthy по кэшу.
	Adapters []string
}

// AdapterChecker — источник health-статусов адаптеров для Gate.
type AdapterChecker interface {
	CheckAdapter(ctx context.Context, adapterID string, probe bool) (healthy bool, detail string)
}

// GateResult — вердикт готовности.
type GateResult struct {
	Ready   bool     `json:"ready"`
	Reasons []string `json:"reasons,omitempty"`
	Report  *Report  `json:"report,omitempty"`
}

// Gate проверяет, что контракт готов к выкатке новой версии sidecar:
// сохранённый self-test пройден, не устарел и требуемые адаптеры живы.
// Reasons перечисляет все провальные условия разом.
func (s *ConformanceService) Gate(ctx context.Context, req GateRequirements, health AdapterChecker) (*GateResult, error) {
	result := &GateResult{}

	report, err := s.LastReport(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		result.Reasons = append(result.Reasons,
			"no persisted self-test report, run the self-test with persist first")
	case err != nil:
		return nil, err
	default:
		result.Report = report
		if !report.Passed {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("last self-test for %s did not pass", report.ContractVersion))
		}
		if report.ContractVersion != Version {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("persisted report is for %s, expected %s", report.ContractVersion, Version))
		}
		if req.MaxReportAge > 0 {
			age := s.clock.Now().Sub(report.RunAt)
			if age > req.MaxReportAge {
				result.Reasons = append(result.Reasons,
					fmt.Sprintf("self-test report is %s old, max allowed %s", age.Round(time.Second), req.MaxReportAge))
			}
		}
	}

	for _, adapterID := range req.Adapters {
		if health == nil {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("adapter %s required but no health source configured", adapterID))
			continue
		}
		healthy, detail := health.CheckAdapter(ctx, adapterID, false)
		if !healthy {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("adapter %s is not healthy: %s", adapterID, detail))
		}
	}

	result.Ready = len(result.Reasons) == 0
	return result, nil
}
