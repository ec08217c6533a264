package domain

import "testing"

func TestCapabilitySet_Matches(t *testing.T) {
	cases := []struct {
		name     string
		caps     CapabilitySet
		adapter  string
		platform string
		want     bool
	}{
		{"empty set matches anything", nil, "opentrons_ot2", "opentrons_ot2", true},
		{"wildcard matches anything", CapabilitySet{"*"}, "custom-adapter", "pylabrobot", true},
		{"adapter id match", CapabilitySet{"integra_assist_plus"}, "integra_assist_plus", "integra_assist_plus", true},
		{"platform match", CapabilitySet{"opentrons_flex"}, "flex-bay-2", "opentrons_flex", true},
		{"no match", CapabilitySet{"opentrons_ot2"}, "integra_assist_plus", "integra_assist_plus", false},
		{"wildcard among others", CapabilitySet{"opentrons_ot2", "*"}, "pylabrobot", "pylabrobot", true},
	}
	for _, tc := range cases {
		if got := tc.caps.Matches(tc.adapter, tc.platform); got != tc.want {
			t.Errorf("%s: Matches(%q, %q) = %v, want %v", tc.name, tc.adapter, tc.platform, got, tc.want)
		}
	}
}

func TestRobotPlan_AdapterFallback(t *testing.T) {
	plan := RobotPlan{TargetPlatform: "opentrons_ot2"}
	if got := plan.Adapter(); got != "opentrons_ot2" {
		t.Errorf("expected fallback to platform, got %q", got)
	}

	plan.AdapterID = "ot2-bay-1"
	if got := plan.Adapter(); got != "ot2-bay-1" {
		t.Errorf("expected explicit adapter, got %q", got)
	}
}
