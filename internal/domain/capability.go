package domain

// CapabilitySet — типизированное множество capabilities executor'а.
//
// Пустое множество и wildcard "*" матчат любой task; иначе capability
// должна совпасть с adapter id или target platform задачи.
type CapabilitySet []string

// MatchesAll возвращает true, если множество матчит любой task.
func (c CapabilitySet) MatchesAll() bool {
	if len(c) == 0 {
		return true
	}
	for _, cap := range c {
		if cap == "*" {
			return true
		}
	}
	return false
}

// Matches проверяет, может ли executor с этим множеством capabilities
// выполнять task с данными adapter id и target platform.
func (c CapabilitySet) Matches(adapterID, targetPlatform string) bool {
	if c.MatchesAll() {
		return true
	}
	for _, cap := range c {
		if cap == adapterID || cap == targetPlatform {
			return true
		}
	}
	return false
}
