// internal/replay/flows.go
package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/signalnine/secureinfer/internal/protocol"
	"github.com/signalnine/secureinfer/internal/samples"
	"github.com/signalnine/secureinfer/internal/severity"
)

// LabelColumn holds the ground-truth class in CICIDS2017 flow exports
const LabelColumn = "Label"

// MaxBatch caps how many flows one tick sends
const MaxBatch = 500

// Flow is one record to replay with its expected label, if known
type Flow struct {
	Row      int // 1-based data row in the source file
	Expected string
	Record   protocol.FeatureRecord
}

// labelReplacer repairs the dash that CICIDS exports mangle in the
// "Web Attack - ..." labels
var labelReplacer = strings.NewReplacer("\ufffd", "-", "\u2013", "-")

// NormalizeLabel trims and repairs a CSV label
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(labelReplacer.Replace(s)), " ")
}

// ReadFlows parses a flow CSV. Header names are trimmed. Rows with a
// non-numeric, infinite or NaN feature are skipped.
func ReadFlows(r io.Reader) ([]Flow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty CSV")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	labelIdx := -1
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if columns[i] == LabelColumn {
			labelIdx = i
		}
	}

	var flows []Flow
	row := 0
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++

		if len(fields) != len(columns) {
			continue
		}

		flow := Flow{Row: row, Record: make(protocol.FeatureRecord, len(columns))}
		ok := true
		for i, raw := range fields {
			if i == labelIdx {
				flow.Expected = NormalizeLabel(raw)
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
				ok = false
				break
			}
			flow.Record[columns[i]] = v
		}
		if ok {
			flows = append(flows, flow)
		}
	}

	return flows, nil
}

// LoadFlows reads a flow CSV from disk
func LoadFlows(path string) ([]Flow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFlows(f)
}

// SampleFlows returns the reference samples as flows. The benign sample
// expects the classifier's benign label.
func SampleFlows() []Flow {
	all := samples.All()
	flows := make([]Flow, len(all))
	for i, s := range all {
		expected := s.Name
		if s.Name == samples.NormalTraffic {
			expected = severity.BenignLabel
		}
		flows[i] = Flow{Row: i + 1, Expected: expected, Record: s.Record}
	}
	return flows
}

// NextBatch returns up to size flows starting at offset and the offset to
// resume from. Past the end it starts over from the first flow.
func NextBatch(flows []Flow, offset, size int) ([]Flow, int) {
	if len(flows) == 0 || size <= 0 {
		return nil, offset
	}
	if size > MaxBatch {
		size = MaxBatch
	}
	if offset < 0 || offset >= len(flows) {
		offset = 0
	}

	end := offset + size
	if end > len(flows) {
		end = len(flows)
	}
	return flows[offset:end], end % len(flows)
}
