// internal/protocol/types_test.go
package protocol

import (
	"encoding/json"
	"testing"
)

func TestFeatureRecordMissingKeyIsZero(t *testing.T) {
	rec := FeatureRecord{"Destination Port": 80}
	if got := rec.Get("Flow Duration"); got != 0 {
		t.Errorf("Get(missing) = %v, want 0", got)
	}
	if _, ok := rec.Lookup("Flow Duration"); ok {
		t.Error("Lookup(missing) reported present")
	}
	if got := rec.Get("Destination Port"); got != 80 {
		t.Errorf("Get(Destination Port) = %v, want 80", got)
	}
}

func TestAnalyzeRequestRecord(t *testing.T) {
	body := []byte(`{
		"destination_port": 8080,
		"flow_duration": 221092,
		"features": {"Total Fwd Packets": 5, "Destination Port": 1}
	}`)

	var req AnalyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	rec := req.Record()

	if rec.Get("Destination Port") != 8080 {
		t.Errorf("Destination Port = %v, want 8080 (named field wins)", rec.Get("Destination Port"))
	}
	if rec.Get("Flow Duration") != 221092 {
		t.Errorf("Flow Duration = %v, want 221092", rec.Get("Flow Duration"))
	}
	if rec.Get("Total Fwd Packets") != 5 {
		t.Errorf("Total Fwd Packets = %v, want 5", rec.Get("Total Fwd Packets"))
	}
	if _, ok := rec.Lookup("Packet Length Mean"); ok {
		t.Error("unset named field should not appear in record")
	}
}

func TestAnalyzeRequestRejectsNonNumeric(t *testing.T) {
	var req AnalyzeRequest
	if err := json.Unmarshal([]byte(`{"destination_port": "eighty"}`), &req); err == nil {
		t.Error("expected error for non-numeric feature")
	}
}
