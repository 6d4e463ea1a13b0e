package output

import (
	"encoding/json"
	"io"

	"github.com/yairfalse/driftwatch/internal/detector"
	"github.com/yairfalse/driftwatch/pkg/types"
	"gopkg.in/yaml.v3"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct{}

type resultsDocument struct {
	Results []detector.EnvironmentResult `json:"results" yaml:"results"`
}

func (f *JSONFormatter) encode(v interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

func (f *JSONFormatter) FormatSaved(saved Saved, w io.Writer) error {
	return f.encode(saved, w)
}

func (f *JSONFormatter) FormatDetection(d Detection, w io.Writer) error {
	return f.encode(d, w)
}

func (f *JSONFormatter) FormatResults(results []detector.EnvironmentResult, w io.Writer) error {
	return f.encode(resultsDocument{Results: results}, w)
}

func (f *JSONFormatter) FormatReport(report *types.DriftReport, w io.Writer) error {
	return f.encode(report, w)
}

func encodeYAML(v interface{}, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(v)
}

func (f *YAMLFormatter) FormatSaved(saved Saved, w io.Writer) error {
	return encodeYAML(saved, w)
}

func (f *YAMLFormatter) FormatDetection(d Detection, w io.Writer) error {
	return encodeYAML(d, w)
}

func (f *YAMLFormatter) FormatResults(results []detector.EnvironmentResult, w io.Writer) error {
	return encodeYAML(resultsDocument{Results: results}, w)
}

func (f *YAMLFormatter) FormatReport(report *types.DriftReport, w io.Writer) error {
	return encodeYAML(report, w)
}
