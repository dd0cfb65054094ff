// internal/explainer/parse_test.go
package explainer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseBriefingAccepts(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		summary string
	}{
		{
			name:    "bare object",
			raw:     `{"summary": "Bot beacon", "severity": "HIGH", "impact": "C2 channel", "action": "Block host"}`,
			summary: "Bot beacon",
		},
		{
			name:    "surrounding whitespace",
			raw:     "\n  {\"summary\": \"s\", \"severity\": \"LOW\", \"impact\": \"i\", \"action\": \"a\"}\n",
			summary: "s",
		},
		{
			name:    "wrapped in prose",
			raw:     `Here is the analysis: {"summary": "Flood", "severity": "CRITICAL", "impact": "Outage", "action": "Rate limit"} Hope this helps.`,
			summary: "Flood",
		},
		{
			name:    "markdown fence",
			raw:     "```json\n{\"summary\": \"fenced\", \"severity\": \"HIGH\", \"impact\": \"i\", \"action\": \"a\"}",
			summary: "fenced",
		},
		{
			name:    "braces inside strings",
			raw:     `Result: {"summary": "payload {x} seen", "severity": "HIGH", "impact": "i}", "action": "a"} trailing {junk`,
			summary: "payload {x} seen",
		},
		{
			name:    "extra keys ignored",
			raw:     `{"summary": "s", "severity": "HIGH", "impact": "i", "action": "a", "mitre": "T1498"}`,
			summary: "s",
		},
	}

	for _, tt := range tests {
		b, err := ParseBriefing(tt.raw)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if b.Summary != tt.summary {
			t.Errorf("%s: Summary = %q, want %q", tt.name, b.Summary, tt.summary)
		}
		if b.Fallback {
			t.Errorf("%s: parsed briefing marked as fallback", tt.name)
		}
	}
}

func TestParseBriefingVerbatim(t *testing.T) {
	raw := `{"summary": "  Spaced  summary ", "severity": "medium-ish", "impact": "Line1\nLine2", "action": "Do \"this\""}`
	b, err := ParseBriefing(raw)
	if err != nil {
		t.Fatalf("ParseBriefing: %v", err)
	}
	if b.Summary != "  Spaced  summary " {
		t.Errorf("Summary = %q", b.Summary)
	}
	if b.Severity != "medium-ish" {
		t.Errorf("Severity = %q, generator text must not be normalized", b.Severity)
	}
	if b.Impact != "Line1\nLine2" {
		t.Errorf("Impact = %q", b.Impact)
	}
	if b.Action != `Do "this"` {
		t.Errorf("Action = %q", b.Action)
	}
}

func TestParseBriefingRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"plain text", "The traffic looks like a DDoS attack."},
		{"null", "null"},
		{"array", `[{"summary": "s"}]`},
		{"missing action", `{"summary": "s", "severity": "HIGH", "impact": "i"}`},
		{"missing summary in prose", `Answer: {"severity": "HIGH", "impact": "i", "action": "a"}`},
		{"non-string value", `{"summary": "s", "severity": 5, "impact": "i", "action": "a"}`},
		{"blank value", `{"summary": "   ", "severity": "HIGH", "impact": "i", "action": "a"}`},
		{"truncated", `{"summary": "s", "severity": "HIGH", "impact": "cut off mid`},
		{"unbalanced prose", `Here: {"summary": "s", "severity"`},
	}

	for _, tt := range tests {
		_, err := ParseBriefing(tt.raw)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("%s: error %v does not wrap ErrMalformedResponse", tt.name, err)
		}
	}
}

func TestParseBriefingDirectObjectWithMissingKeyIsFinal(t *testing.T) {
	// The body parses directly, so no embedded object is searched for even
	// though one is present in a value.
	raw := `{"summary": "{\"summary\":\"a\",\"severity\":\"b\",\"impact\":\"c\",\"action\":\"d\"}"}`
	if _, err := ParseBriefing(raw); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{`no braces`, "", false},
		{`x {"a": 1} y {"b": 2}`, `{"a": 1}`, true},
		{`{"a": {"b": 2}} tail`, `{"a": {"b": 2}}`, true},
		{`{"a": "\"}"}`, `{"a": "\"}"}`, true},
		{`{"a": 1`, "", false},
	}
	for _, tt := range tests {
		got, ok := extractObject(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("extractObject(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		attack     string
		confidence float64
		severity   string
	}{
		{"DDoS", 97.6, "CRITICAL"},
		{"PortScan", 51.2, "HIGH"},
		{"Cryptojacking", 64.0, "MEDIUM"},
		{"", 0, "MEDIUM"},
	}

	for _, tt := range tests {
		b := Fallback(tt.attack, tt.confidence)
		if !strings.Contains(b.Summary, tt.attack) {
			t.Errorf("Fallback(%q).Summary = %q, missing attack type", tt.attack, b.Summary)
		}
		if pct := fmt.Sprintf("%.0f%%", tt.confidence); !strings.Contains(b.Summary, pct) {
			t.Errorf("Fallback(%q).Summary = %q, missing %s", tt.attack, b.Summary, pct)
		}
		if b.Severity != tt.severity {
			t.Errorf("Fallback(%q).Severity = %q, want %q", tt.attack, b.Severity, tt.severity)
		}
		if b.Summary == "" || b.Impact == "" || b.Action == "" {
			t.Errorf("Fallback(%q) has empty field: %+v", tt.attack, b)
		}
		if !b.Fallback {
			t.Errorf("Fallback(%q) not marked as fallback", tt.attack)
		}
	}

	if Fallback("Bot", 88.8) != Fallback("Bot", 88.8) {
		t.Error("Fallback is not deterministic")
	}
}
