package adapters

import (
	"sort"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

// RunbookVersion — версия встроенного runbook. Меняется при
// редактировании записей, чтобы операторы видели, с чем сверяются.
const RunbookVersion = "2026.08"

// RunbookEntry — операторская инструкция по одному known failure code.
type RunbookEntry struct {
	Code          string                  `json:"code"`
	Class         domain.FailureClass     `json:"class"`
	Severity      domain.IncidentSeverity `json:"severity"`
	LikelyCause   string                  `json:"likelyCause"`
	Actions       []string                `json:"actions"`
	PlatformNotes map[domain.Platform]string `json:"platformNotes,omitempty"`
}

// runbook — известные failure codes, приходящие от executor'ов.
// Ключ — значение failure.code из отчётов sidecar.
var runbook = map[string]RunbookEntry{
	"EXECUTOR_EXCEPTION": {
		Code:        "EXECUTOR_EXCEPTION",
		Class:       domain.FailureClassTransient,
		Severity:    domain.IncidentSeverityWarning,
		LikelyCause: "unhandled exception inside the executor sidecar, not the protocol itself",
		Actions: []string{
			"check the sidecar logs around the failure timestamp",
			"verify the sidecar can reach the robot controller",
			"retry is safe: the protocol did not start or was rolled back",
		},
	},
	"PROTOCOL_ANALYSIS_FAILED": {
		Code:        "PROTOCOL_ANALYSIS_FAILED",
		Class:       domain.FailureClassTerminal,
		Severity:    domain.IncidentSeverityCritical,
		LikelyCause: "the robot rejected the protocol file during pre-run analysis",
		Actions: []string{
			"inspect the protocol artifact referenced by the task",
			"re-generate the protocol from the robot plan and create a new task",
			"do not retry the same artifact: analysis is deterministic",
		},
		PlatformNotes: map[domain.Platform]string{
			domain.PlatformOpentronsOT2:  "analysis errors are reported by the robot-server /protocols endpoint",
			domain.PlatformOpentronsFlex: "analysis errors are reported by the robot-server /protocols endpoint",
		},
	},
	"DECK_CALIBRATION_FAILED": {
		Code:        "DECK_CALIBRATION_FAILED",
		Class:       domain.FailureClassTerminal,
		Severity:    domain.IncidentSeverityCritical,
		LikelyCause: "deck or pipette calibration is missing or stale on the device",
		Actions: []string{
			"run the on-device calibration flow before re-queueing",
			"confirm the pipette mounts match the protocol requirements",
		},
	},
	"TIP_PICKUP_FAILED": {
		Code:        "TIP_PICKUP_FAILED",
		Class:       domain.FailureClassTransient,
		Severity:    domain.IncidentSeverityWarning,
		LikelyCause: "tip rack misplaced or tips already consumed",
		Actions: []string{
			"verify tip rack placement against the deck layout",
			"replace the tip rack and retry",
		},
	},
	"LABWARE_MISSING": {
		Code:        "LABWARE_MISSING",
		Class:       domain.FailureClassTransient,
		Severity:    domain.IncidentSeverityWarning,
		LikelyCause: "expected labware was not detected on the deck",
		Actions: []string{
			"check the deck against the planned layout",
			"retry after the labware is placed",
		},
	},
	"INSUFFICIENT_VOLUME": {
		Code:        "INSUFFICIENT_VOLUME",
		Class:       domain.FailureClassTerminal,
		Severity:    domain.IncidentSeverityWarning,
		LikelyCause: "a source well ran out of liquid mid-run",
		Actions: []string{
			"refill reagents and create a fresh task",
			"review the plan volumes: the shortfall is usually systematic",
		},
		PlatformNotes: map[domain.Platform]string{
			domain.PlatformIntegraAssist: "the Assist Plus aborts the whole program on volume errors",
		},
	},
	"SERIAL_DISCONNECTED": {
		Code:        "SERIAL_DISCONNECTED",
		Class:       domain.FailureClassTransient,
		Severity:    domain.IncidentSeverityCritical,
		LikelyCause: "the serial link between sidecar host and device dropped",
		Actions: []string{
			"reseat the USB/serial cable",
			"restart the sidecar so it re-enumerates the port",
			"retry once the adapter health probe is green",
		},
		PlatformNotes: map[domain.Platform]string{
			domain.PlatformPyLabRobot: "pylabrobot keeps no device session: reconnect is a full re-setup",
		},
	},
	"PROTOCOL_CANCELED_ON_DEVICE": {
		Code:        "PROTOCOL_CANCELED_ON_DEVICE",
		Class:       domain.FailureClassTerminal,
		Severity:    domain.IncidentSeverityInfo,
		LikelyCause: "an operator stopped the run from the device touchscreen or app",
		Actions: []string{
			"confirm with the operator why the run was stopped",
			"re-queue only after the physical deck is reset",
		},
	},
	"HOMING_FAILED": {
		Code:        "HOMING_FAILED",
		Class:       domain.FailureClassTransient,
		Severity:    domain.IncidentSeverityCritical,
		LikelyCause: "the gantry could not reach its home position",
		Actions: []string{
			"check for physical obstructions on the deck",
			"power-cycle the device, then retry",
		},
	},
}

// LookupRunbook возвращает запись runbook по failure code.
func LookupRunbook(code string) (RunbookEntry, bool) {
	entry, ok := runbook[code]
	return entry, ok
}

// RunbookCodes возвращает отсортированный список известных failure codes.
func RunbookCodes() []string {
	codes := make([]string, 0, len(runbook))
	for code := range runbook {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
