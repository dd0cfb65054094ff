// internal/severity/severity_test.go
package severity

import "testing"

func TestForKnownLabels(t *testing.T) {
	tests := []struct {
		label string
		want  Tier
	}{
		{"BENIGN", Safe},
		{"Bot", Critical},
		{"DDoS", Critical},
		{"DoS Hulk", Critical},
		{"Heartbleed", Critical},
		{"Infiltration", Critical},
		{"Web Attack - Sql Injection", Critical},
		{"DoS GoldenEye", High},
		{"DoS Slowhttptest", High},
		{"DoS slowloris", High},
		{"FTP-Patator", High},
		{"PortScan", High},
		{"SSH-Patator", High},
		{"Web Attack - Brute Force", High},
		{"Web Attack - XSS", High},
	}

	for _, tt := range tests {
		if got := For(tt.label); got != tt.want {
			t.Errorf("For(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}

	if len(tests) != len(Labels()) {
		t.Errorf("table has %d labels, test covers %d", len(Labels()), len(tests))
	}
}

func TestForUnknownLabelDefaultsToMedium(t *testing.T) {
	for _, label := range []string{"", "Ransomware", "benign", "ddos", "Web Attack - SSRF"} {
		if got := For(label); got != Medium {
			t.Errorf("For(%q) = %s, want MEDIUM", label, got)
		}
	}
}

func TestAttackLabelsAreHighOrCritical(t *testing.T) {
	for label, tier := range Labels() {
		if label == BenignLabel {
			continue
		}
		if tier != High && tier != Critical {
			t.Errorf("%q maps to %s, want HIGH or CRITICAL", label, tier)
		}
	}
}

func TestLabelsReturnsCopy(t *testing.T) {
	labels := Labels()
	labels["Bot"] = Low
	if For("Bot") != Critical {
		t.Error("mutating Labels() result changed the policy")
	}
}

func TestRankAndParse(t *testing.T) {
	order := []Tier{Safe, Low, Medium, High, Critical}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("%s should rank below %s", order[i-1], order[i])
		}
	}
	if Tier("UNKNOWN").Rank() != -1 {
		t.Error("unknown tier should rank -1")
	}

	if got, ok := Parse(" critical "); !ok || got != Critical {
		t.Errorf("Parse(critical) = %s, %v", got, ok)
	}
	if _, ok := Parse("severe"); ok {
		t.Error("Parse(severe) should fail")
	}
}
