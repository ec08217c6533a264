package domain

// Platform — целевая робот-платформа robot plan.
type Platform string

// Поддерживаемые платформы.
const (
	PlatformOpentronsOT2  Platform = "opentrons_ot2"
	PlatformOpentronsFlex Platform = "opentrons_flex"
	PlatformIntegraAssist Platform = "integra_assist_plus"
	PlatformPyLabRobot    Platform = "pylabrobot"
)

// SupportedPlatform проверяет принадлежность к закрытому множеству платформ.
func SupportedPlatform(p string) bool {
	switch Platform(p) {
	case PlatformOpentronsOT2, PlatformOpentronsFlex, PlatformIntegraAssist, PlatformPyLabRobot:
		return true
	default:
		return false
	}
}

// RobotPlan — скомпилированный план, потребляемый task queue.
//
// Компиляция планов — внешний collaborator; queue читает plan
// только чтобы создать run+task и скопировать ссылки на артефакты.
type RobotPlan struct {
	// ID — идентификатор плана.
	ID string `json:"id"`

	// Name — человекочитаемое имя.
	Name string `json:"name,omitempty"`

	// PlannedRunRef — planned run, из которого скомпилирован план.
	PlannedRunRef string `json:"plannedRunRef,omitempty"`

	// TargetPlatform — платформа, обязательное поле.
	TargetPlatform string `json:"targetPlatform"`

	// AdapterID — адаптер для выполнения. Если пуст,
	// используется TargetPlatform.
	AdapterID string `json:"adapterId,omitempty"`

	// ContractVersion — версия sidecar-контракта плана.
	ContractVersion string `json:"contractVersion,omitempty"`

	// ArtifactRefs — сгенерированные артефакты (протокол, deck layout и т.п.).
	ArtifactRefs []ArtifactRef `json:"artifactRefs,omitempty"`
}

// Adapter возвращает adapter id плана с fallback на платформу.
func (p *RobotPlan) Adapter() string {
	if p.AdapterID != "" {
		return p.AdapterID
	}
	return p.TargetPlatform
}
