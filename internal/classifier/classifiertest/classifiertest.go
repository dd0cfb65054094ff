// internal/classifier/classifiertest/classifiertest.go

// Package classifiertest provides a small hand-built model for tests.
// It separates BENIGN, Bot, DDoS and an unmapped "Ransomware" class using
// destination port and flow duration only.
package classifiertest

import (
	"testing"

	"github.com/signalnine/secureinfer/internal/classifier"
)

// FeatureColumns is the training-time column order of the CICIDS2017 feature set
var FeatureColumns = []string{
	"Destination Port", "Flow Duration", "Total Fwd Packets",
	"Total Backward Packets", "Total Length of Fwd Packets",
	"Fwd Packet Length Max", "Fwd Packet Length Mean",
	"Bwd Packet Length Max", "Bwd Packet Length Mean",
	"Flow Bytes/s", "Flow Packets/s", "Flow IAT Mean",
	"Flow IAT Std", "Fwd IAT Total", "Bwd IAT Total",
	"Fwd PSH Flags", "Bwd Packets/s", "Packet Length Mean",
	"Packet Length Std", "Average Packet Size",
}

// Classes is the label encoder order
var Classes = []string{"BENIGN", "Bot", "DDoS", "Ransomware"}

func leaf(v float64) *float64 { return &v }

func stump(split string, threshold, below, above float64) classifier.Node {
	return classifier.Node{
		NodeID: 0, Split: split, SplitCondition: threshold, Yes: 1, No: 2, Missing: 1,
		Children: []classifier.Node{
			{NodeID: 1, Leaf: leaf(below)},
			{NodeID: 2, Leaf: leaf(above)},
		},
	}
}

// Artifacts returns the demo model with an identity scaler
func Artifacts() classifier.Artifacts {
	n := len(FeatureColumns)
	scaler := classifier.Scaler{Mean: make([]float64, n), Scale: make([]float64, n)}
	for i := range scaler.Scale {
		scaler.Scale[i] = 1
	}

	return classifier.Artifacts{
		FeatureColumns: append([]string(nil), FeatureColumns...),
		Classes:        append([]string(nil), Classes...),
		Scaler:         scaler,
		Model: classifier.Model{
			NumClass:  len(Classes),
			BaseScore: 0.5,
			Trees: []classifier.Node{
				// BENIGN: short flows
				stump("f1", 1000, 3, -1),
				// Bot: high ports
				stump("Destination Port", 8000, -1, 3),
				// DDoS: long flows
				stump("Flow Duration", 1000000, -1, 3),
				// Ransomware: port 445 exactly
				{
					NodeID: 0, Split: "f0", SplitCondition: 445, Yes: 1, No: 2, Missing: 1,
					Children: []classifier.Node{
						{NodeID: 1, Leaf: leaf(-2)},
						{
							NodeID: 2, Split: "f0", SplitCondition: 446, Yes: 3, No: 4, Missing: 3,
							Children: []classifier.Node{
								{NodeID: 3, Leaf: leaf(5)},
								{NodeID: 4, Leaf: leaf(-2)},
							},
						},
					},
				},
			},
		},
	}
}

// New builds the demo classifier, failing the test on error
func New(t testing.TB) *classifier.Classifier {
	t.Helper()
	c, err := classifier.New(Artifacts())
	if err != nil {
		t.Fatalf("build demo classifier: %v", err)
	}
	return c
}

// WriteModelDir writes the demo artifacts to a temp dir and returns its path
func WriteModelDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	if err := classifier.WriteArtifacts(dir, Artifacts()); err != nil {
		t.Fatalf("write demo artifacts: %v", err)
	}
	return dir
}
