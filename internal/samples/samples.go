// internal/samples/samples.go

// Package samples holds reference flow records taken from the CICIDS2017
// test split, one per class the stock model knows.
package samples

import (
	"math/rand"

	"github.com/signalnine/secureinfer/internal/protocol"
)

// NormalTraffic names the benign reference record
const NormalTraffic = "Normal Traffic"

// Sample is a named reference record
type Sample struct {
	Name   string
	Record protocol.FeatureRecord
}

var all = []Sample{
	{
		Name: "Bot",
		Record: protocol.FeatureRecord{
			"Destination Port":            8080,
			"Flow Duration":               221092,
			"Total Fwd Packets":           5,
			"Total Backward Packets":      4,
			"Total Length of Fwd Packets": 212,
			"Fwd Packet Length Max":       194,
			"Fwd Packet Length Mean":      42.4,
			"Bwd Packet Length Max":       129,
			"Bwd Packet Length Mean":      36.25,
			"Flow Bytes/s":                1614.7124,
			"Flow Packets/s":              40.707,
			"Flow IAT Mean":               27636.5,
			"Flow IAT Std":                77176.5874,
			"Fwd IAT Total":               221092,
			"Bwd IAT Total":               219348,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               18.092,
			"Packet Length Mean":          35.7,
			"Packet Length Std":           68.1307,
			"Average Packet Size":         39.6667,
		},
	},
	{
		Name: "DDoS",
		Record: protocol.FeatureRecord{
			"Destination Port":            80,
			"Flow Duration":               5481877,
			"Total Fwd Packets":           5,
			"Total Backward Packets":      0,
			"Total Length of Fwd Packets": 30,
			"Fwd Packet Length Max":       6,
			"Fwd Packet Length Mean":      6,
			"Bwd Packet Length Max":       0,
			"Bwd Packet Length Mean":      0,
			"Flow Bytes/s":                5.4726,
			"Flow Packets/s":              0.9121,
			"Flow IAT Mean":               1370469.25,
			"Flow IAT Std":                2740283.205,
			"Fwd IAT Total":               5481877,
			"Bwd IAT Total":               0,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               0,
			"Packet Length Mean":          6,
			"Packet Length Std":           0,
			"Average Packet Size":         7.2,
		},
	},
	{
		Name: "DoS GoldenEye",
		Record: protocol.FeatureRecord{
			"Destination Port":            80,
			"Flow Duration":               5009870,
			"Total Fwd Packets":           5,
			"Total Backward Packets":      5,
			"Total Length of Fwd Packets": 423,
			"Fwd Packet Length Max":       423,
			"Fwd Packet Length Mean":      84.6,
			"Bwd Packet Length Max":       2077,
			"Bwd Packet Length Mean":      705,
			"Flow Bytes/s":                788.0444,
			"Flow Packets/s":              1.9961,
			"Flow IAT Mean":               556652.2222,
			"Flow IAT Std":                1666670.117,
			"Fwd IAT Total":               8766,
			"Bwd IAT Total":               5009782,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               0.998,
			"Packet Length Mean":          358.9091,
			"Packet Length Std":           719.2071,
			"Average Packet Size":         394.8,
		},
	},
	{
		Name: "DoS Hulk",
		Record: protocol.FeatureRecord{
			"Destination Port":            80,
			"Flow Duration":               117028556,
			"Total Fwd Packets":           7,
			"Total Backward Packets":      7,
			"Total Length of Fwd Packets": 356,
			"Fwd Packet Length Max":       356,
			"Fwd Packet Length Mean":      50.8571,
			"Bwd Packet Length Max":       4344,
			"Bwd Packet Length Mean":      1656.4286,
			"Flow Bytes/s":                102.1204,
			"Flow Packets/s":              0.1196,
			"Flow IAT Mean":               9002196.615,
			"Flow IAT Std":                28000000,
			"Fwd IAT Total":               117000000,
			"Bwd IAT Total":               67758,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               0.0598,
			"Packet Length Mean":          796.7333,
			"Packet Length Std":           1524.5415,
			"Average Packet Size":         853.6429,
		},
	},
	{
		Name: "DoS Slowhttptest",
		Record: protocol.FeatureRecord{
			"Destination Port":            80,
			"Flow Duration":               63135525,
			"Total Fwd Packets":           7,
			"Total Backward Packets":      0,
			"Total Length of Fwd Packets": 0,
			"Fwd Packet Length Max":       0,
			"Fwd Packet Length Mean":      0,
			"Bwd Packet Length Max":       0,
			"Bwd Packet Length Mean":      0,
			"Flow Bytes/s":                0,
			"Flow Packets/s":              0.1109,
			"Flow IAT Mean":               10500000,
			"Flow IAT Std":                11900000,
			"Fwd IAT Total":               63100000,
			"Bwd IAT Total":               0,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               0,
			"Packet Length Mean":          0,
			"Packet Length Std":           0,
			"Average Packet Size":         0,
		},
	},
	{
		Name: "DoS slowloris",
		Record: protocol.FeatureRecord{
			"Destination Port":            80,
			"Flow Duration":               105687199,
			"Total Fwd Packets":           16,
			"Total Backward Packets":      3,
			"Total Length of Fwd Packets": 2541,
			"Fwd Packet Length Max":       231,
			"Fwd Packet Length Mean":      158.8125,
			"Bwd Packet Length Max":       6,
			"Bwd Packet Length Mean":      2,
			"Flow Bytes/s":                24.0994,
			"Flow Packets/s":              0.1798,
			"Flow IAT Mean":               5871511.056,
			"Flow IAT Std":                12500000,
			"Fwd IAT Total":               106000000,
			"Bwd IAT Total":               103000000,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               0.0284,
			"Packet Length Mean":          127.35,
			"Packet Length Std":           117.5734,
			"Average Packet Size":         134.0526,
		},
	},
	{
		Name: "FTP-Patator",
		Record: protocol.FeatureRecord{
			"Destination Port":            21,
			"Flow Duration":               9315166,
			"Total Fwd Packets":           9,
			"Total Backward Packets":      15,
			"Total Length of Fwd Packets": 106,
			"Fwd Packet Length Max":       23,
			"Fwd Packet Length Mean":      11.7778,
			"Bwd Packet Length Max":       34,
			"Bwd Packet Length Mean":      12.5333,
			"Flow Bytes/s":                31.5614,
			"Flow Packets/s":              2.5764,
			"Flow IAT Mean":               405007.2174,
			"Flow IAT Std":                1063900.849,
			"Fwd IAT Total":               6819776,
			"Bwd IAT Total":               9315058,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               1.6103,
			"Packet Length Mean":          11.76,
			"Packet Length Std":           12.6171,
			"Average Packet Size":         12.25,
		},
	},
	{
		Name: "Heartbleed",
		Record: protocol.FeatureRecord{
			"Destination Port":            444,
			"Flow Duration":               119261118,
			"Total Fwd Packets":           2794,
			"Total Backward Packets":      2130,
			"Total Length of Fwd Packets": 12264,
			"Fwd Packet Length Max":       4344,
			"Fwd Packet Length Mean":      4.3894,
			"Bwd Packet Length Max":       13032,
			"Bwd Packet Length Mean":      3699.3127,
			"Flow Bytes/s":                66172.4469,
			"Flow Packets/s":              41.2876,
			"Flow IAT Mean":               24225.2931,
			"Flow IAT Std":                152596.5581,
			"Fwd IAT Total":               119000000,
			"Bwd IAT Total":               119000000,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               17.86,
			"Packet Length Mean":          1603.278,
			"Packet Length Std":           2381.9096,
			"Average Packet Size":         1603.6036,
		},
	},
	{
		Name: "Infiltration",
		Record: protocol.FeatureRecord{
			"Destination Port":            444,
			"Flow Duration":               119995180,
			"Total Fwd Packets":           1819,
			"Total Backward Packets":      1817,
			"Total Length of Fwd Packets": 489184,
			"Fwd Packet Length Max":       1271,
			"Fwd Packet Length Mean":      268.9302,
			"Bwd Packet Length Max":       6,
			"Bwd Packet Length Mean":      6,
			"Flow Bytes/s":                4167.5507,
			"Flow Packets/s":              30.3012,
			"Flow IAT Mean":               33011.0536,
			"Flow IAT Std":                583232.1056,
			"Fwd IAT Total":               120000000,
			"Bwd IAT Total":               120000000,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               15.1423,
			"Packet Length Mean":          137.5012,
			"Packet Length Std":           229.2879,
			"Average Packet Size":         137.5391,
		},
	},
	{
		Name: "PortScan",
		Record: protocol.FeatureRecord{
			"Destination Port":            8194,
			"Flow Duration":               95,
			"Total Fwd Packets":           1,
			"Total Backward Packets":      1,
			"Total Length of Fwd Packets": 2,
			"Fwd Packet Length Max":       2,
			"Fwd Packet Length Mean":      2,
			"Bwd Packet Length Max":       6,
			"Bwd Packet Length Mean":      6,
			"Flow Bytes/s":                84210.5263,
			"Flow Packets/s":              21052.6316,
			"Flow IAT Mean":               95,
			"Flow IAT Std":                0,
			"Fwd IAT Total":               0,
			"Bwd IAT Total":               0,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               10526.3158,
			"Packet Length Mean":          3.3333,
			"Packet Length Std":           2.3094,
			"Average Packet Size":         5,
		},
	},
	{
		Name: "SSH-Patator",
		Record: protocol.FeatureRecord{
			"Destination Port":            22,
			"Flow Duration":               13929430,
			"Total Fwd Packets":           21,
			"Total Backward Packets":      33,
			"Total Length of Fwd Packets": 2008,
			"Fwd Packet Length Max":       640,
			"Fwd Packet Length Mean":      95.619,
			"Bwd Packet Length Max":       976,
			"Bwd Packet Length Mean":      83.1818,
			"Flow Bytes/s":                341.22,
			"Flow Packets/s":              3.8767,
			"Flow IAT Mean":               262819.434,
			"Flow IAT Std":                710997.8276,
			"Fwd IAT Total":               11700000,
			"Bwd IAT Total":               13900000,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               2.3691,
			"Packet Length Mean":          86.4182,
			"Packet Length Std":           188.2012,
			"Average Packet Size":         88.0185,
		},
	},
	{
		Name: "Web Attack - Brute Force",
		Record: protocol.FeatureRecord{
			"Destination Port":            80,
			"Flow Duration":               31,
			"Total Fwd Packets":           1,
			"Total Backward Packets":      1,
			"Total Length of Fwd Packets": 0,
			"Fwd Packet Length Max":       0,
			"Fwd Packet Length Mean":      0,
			"Bwd Packet Length Max":       0,
			"Bwd Packet Length Mean":      0,
			"Flow Bytes/s":                0,
			"Flow Packets/s":              64516.129,
			"Flow IAT Mean":               31,
			"Flow IAT Std":                0,
			"Fwd IAT Total":               0,
			"Bwd IAT Total":               0,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               32258.0645,
			"Packet Length Mean":          0,
			"Packet Length Std":           0,
			"Average Packet Size":         0,
		},
	},
	{
		Name: "Web Attack - Sql Injection",
		Record: protocol.FeatureRecord{
			"Destination Port":            80,
			"Flow Duration":               5038618,
			"Total Fwd Packets":           4,
			"Total Backward Packets":      4,
			"Total Length of Fwd Packets": 537,
			"Fwd Packet Length Max":       537,
			"Fwd Packet Length Mean":      134.25,
			"Bwd Packet Length Max":       1881,
			"Bwd Packet Length Mean":      470.25,
			"Flow Bytes/s":                479.8935,
			"Flow Packets/s":              1.5877,
			"Flow IAT Mean":               719802.5714,
			"Flow IAT Std":                1889342.685,
			"Fwd IAT Total":               34275,
			"Bwd IAT Total":               5038504,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               0.7939,
			"Packet Length Mean":          268.6667,
			"Packet Length Std":           630.168,
			"Average Packet Size":         302.25,
		},
	},
	{
		Name: "Web Attack - XSS",
		Record: protocol.FeatureRecord{
			"Destination Port":            80,
			"Flow Duration":               68064242,
			"Total Fwd Packets":           212,
			"Total Backward Packets":      106,
			"Total Length of Fwd Packets": 48783,
			"Fwd Packet Length Max":       585,
			"Fwd Packet Length Mean":      230.1085,
			"Bwd Packet Length Max":       1869,
			"Bwd Packet Length Mean":      1731.9245,
			"Flow Bytes/s":                3413.9365,
			"Flow Packets/s":              4.6721,
			"Flow IAT Mean":               214713.6972,
			"Flow IAT Std":                446166.0968,
			"Fwd IAT Total":               68100000,
			"Bwd IAT Total":               68100000,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               1.5574,
			"Packet Length Mean":          728.4232,
			"Packet Length Std":           766.5181,
			"Average Packet Size":         730.7138,
		},
	},
	{
		Name: "Normal Traffic",
		Record: protocol.FeatureRecord{
			"Destination Port":            53,
			"Flow Duration":               198,
			"Total Fwd Packets":           2,
			"Total Backward Packets":      2,
			"Total Length of Fwd Packets": 70,
			"Fwd Packet Length Max":       35,
			"Fwd Packet Length Mean":      35,
			"Bwd Packet Length Max":       163,
			"Bwd Packet Length Mean":      163,
			"Flow Bytes/s":                2000000,
			"Flow Packets/s":              20202.0202,
			"Flow IAT Mean":               66,
			"Flow IAT Std":                108.2543,
			"Fwd IAT Total":               3,
			"Bwd IAT Total":               4,
			"Fwd PSH Flags":               0,
			"Bwd Packets/s":               10101.0101,
			"Packet Length Mean":          86.2,
			"Packet Length Std":           70.1085,
			"Average Packet Size":         107.75,
		},
	},
}

// All returns every reference sample. Records are copied so callers may
// modify them.
func All() []Sample {
	out := make([]Sample, len(all))
	for i, s := range all {
		out[i] = Sample{Name: s.Name, Record: clone(s.Record)}
	}
	return out
}

// Names lists sample names in a stable order
func Names() []string {
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// Get looks up a sample by name
func Get(name string) (Sample, bool) {
	for _, s := range all {
		if s.Name == name {
			return Sample{Name: s.Name, Record: clone(s.Record)}, true
		}
	}
	return Sample{}, false
}

// Random picks any sample, benign included
func Random(r *rand.Rand) Sample {
	s := all[r.Intn(len(all))]
	return Sample{Name: s.Name, Record: clone(s.Record)}
}

// RandomAttack picks a non-benign sample
func RandomAttack(r *rand.Rand) Sample {
	for {
		s := Random(r)
		if s.Name != NormalTraffic {
			return s
		}
	}
}

func clone(r protocol.FeatureRecord) protocol.FeatureRecord {
	out := make(protocol.FeatureRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
