// internal/explainer/prompt.go
package explainer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/signalnine/secureinfer/internal/protocol"
)

const promptHeader = `You are SecureInfer, an on-device cybersecurity AI analyst.
Respond ONLY with a valid JSON object. No markdown. No text outside JSON.
Required keys: "summary", "severity", "impact", "action"
Severity must be exactly one of: SAFE, LOW, MEDIUM, HIGH, CRITICAL
Keep all values under 80 words total.

Network attack detected:
`

// promptFeatures is the curated subset shown to the generator. The full
// record is too noisy for a small model.
var promptFeatures = []struct {
	label string
	key   string
	unit  string
}{
	{"Destination Port", "Destination Port", ""},
	{"Flow Duration", "Flow Duration", " ms"},
	{"Forward Packets", "Total Fwd Packets", ""},
	{"Backward Packets", "Total Backward Packets", ""},
	{"Packet Length Mean", "Packet Length Mean", ""},
	{"Flow Bytes/s", "Flow Bytes/s", ""},
}

// BuildPrompt renders the briefing request for one classification
func BuildPrompt(attackType string, features protocol.FeatureRecord, confidence float64) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	fmt.Fprintf(&b, "Type: %s\n", attackType)
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", confidence)
	for _, f := range promptFeatures {
		v, ok := features.Lookup(f.key)
		if !ok {
			fmt.Fprintf(&b, "%s: N/A\n", f.label)
			continue
		}
		fmt.Fprintf(&b, "%s: %s%s\n", f.label, strconv.FormatFloat(v, 'f', -1, 64), f.unit)
	}
	b.WriteString("\nRespond with JSON only:")
	return b.String()
}
