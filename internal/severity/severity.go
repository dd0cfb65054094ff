// internal/severity/severity.go
package severity

import "strings"

// Tier is a discrete urgency level, independent of model confidence
type Tier string

const (
	Safe     Tier = "SAFE"
	Low      Tier = "LOW"
	Medium   Tier = "MEDIUM"
	High     Tier = "HIGH"
	Critical Tier = "CRITICAL"
)

// BenignLabel is the classifier output for traffic with no attack
const BenignLabel = "BENIGN"

// Default is returned for labels missing from the table. New labels appear
// whenever the model is retrained, so this path is expected in production.
const Default = Medium

// table maps classifier labels to tiers. Data theft and full compromise are
// CRITICAL; disruption and reconnaissance are HIGH.
var table = map[string]Tier{
	BenignLabel: Safe,

	"Bot":                        Critical,
	"DDoS":                       Critical,
	"DoS Hulk":                   Critical,
	"Heartbleed":                 Critical,
	"Infiltration":               Critical,
	"Web Attack - Sql Injection": Critical,

	"DoS GoldenEye":            High,
	"DoS Slowhttptest":         High,
	"DoS slowloris":            High,
	"FTP-Patator":              High,
	"PortScan":                 High,
	"SSH-Patator":              High,
	"Web Attack - Brute Force": High,
	"Web Attack - XSS":         High,
}

// For returns the tier for a classifier label
func For(label string) Tier {
	if t, ok := table[label]; ok {
		return t
	}
	return Default
}

// Labels returns a copy of the policy table
func Labels() map[string]Tier {
	out := make(map[string]Tier, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

var ranks = map[Tier]int{Safe: 0, Low: 1, Medium: 2, High: 3, Critical: 4}

// Rank orders tiers for display. Unknown tiers sort before SAFE.
func (t Tier) Rank() int {
	if r, ok := ranks[t]; ok {
		return r
	}
	return -1
}

// Parse converts a case-insensitive tier name. ok is false for anything
// outside the five known tiers.
func Parse(s string) (Tier, bool) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := ranks[t]
	return t, ok
}
