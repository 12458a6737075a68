package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/hcl"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
)

// LoadSettings reads run settings from a file, choosing the format by
// extension, or from a directory of HCL files.
func LoadSettings(path string) (*structure.Settings, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if info.IsDir() {
		return hcl.ParseSettingsDirectory(path)
	}

	format := hcl.FormatFromExtension(path)
	if format == hcl.ContentTypeHCL {
		return hcl.ParseSettingsFiles(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if format == "" {
		format = hcl.DetectContent(data)
	}
	return DecodeSettings(data, format)
}

// DecodeSettings decodes and validates settings in the given content type
func DecodeSettings(data []byte, contentType string) (*structure.Settings, error) {
	var settings structure.Settings
	switch contentType {
	case hcl.ContentTypeHCL:
		return hcl.ParseSettings(string(data))
	case hcl.ContentTypeYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&settings); err != nil {
			return nil, fmt.Errorf("failed to decode YAML settings: %w", err)
		}
	case hcl.ContentTypeJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&settings); err != nil {
			return nil, fmt.Errorf("failed to decode JSON settings: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported settings content type %q", contentType)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}
