// internal/classifier/artifacts.go
package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names inside the model directory
const (
	FeatureColumnsFile = "feature_cols.json"
	LabelEncoderFile   = "label_encoder.json"
	ScalerFile         = "scaler.json"
	ModelFile          = "classifier.json"
)

type labelEncoder struct {
	Classes []string `json:"classes"`
}

// Load reads all four artifacts from dir. Any missing or inconsistent
// artifact yields an error wrapping ErrModelUnavailable.
func Load(dir string) (*Classifier, error) {
	var a Artifacts
	var enc labelEncoder

	files := []struct {
		name string
		dst  interface{}
	}{
		{FeatureColumnsFile, &a.FeatureColumns},
		{LabelEncoderFile, &enc},
		{ScalerFile, &a.Scaler},
		{ModelFile, &a.Model},
	}
	for _, f := range files {
		if err := readJSON(filepath.Join(dir, f.name), f.dst); err != nil {
			return nil, err
		}
	}
	a.Classes = enc.Classes

	return New(a)
}

// WriteArtifacts stores artifacts in the layout Load expects
func WriteArtifacts(dir string, a Artifacts) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	files := []struct {
		name string
		src  interface{}
	}{
		{FeatureColumnsFile, a.FeatureColumns},
		{LabelEncoderFile, labelEncoder{Classes: a.Classes}},
		{ScalerFile, a.Scaler},
		{ModelFile, a.Model},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.src, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrModelUnavailable, filepath.Base(path), err)
	}
	return nil
}
