package hcl

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ContentTypeHCL is the custom MIME type for HCL configuration
	ContentTypeHCL = "application/vnd.hcl"

	// ContentTypeJSON is the standard MIME type for JSON
	ContentTypeJSON = "application/json"

	// ContentTypeYAML is the MIME type for YAML settings
	ContentTypeYAML = "application/yaml"
)

// DetectContentType determines whether a request body is JSON, YAML or HCL
// from the Content-Type header, falling back to inspecting the body.
func DetectContentType(r *http.Request) (string, error) {
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch mediaType {
			case ContentTypeHCL, ContentTypeJSON, ContentTypeYAML:
				return mediaType, nil
			case "application/x-yaml", "text/yaml":
				return ContentTypeYAML, nil
			}
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}
	// Reset the body so it can be read again later
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	return DetectContent(body), nil
}

// DetectContent guesses the format of a settings document. JSON starts with
// { or [, anything that parses as HCL is HCL, and a YAML mapping is YAML.
// JSON is the fallback.
func DetectContent(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ContentTypeJSON
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return ContentTypeJSON
	}
	if IsHCL(trimmed) {
		return ContentTypeHCL
	}
	if isYAMLMapping(trimmed) {
		return ContentTypeYAML
	}
	return ContentTypeJSON
}

func isYAMLMapping(content []byte) bool {
	var doc map[string]interface{}
	return yaml.Unmarshal(content, &doc) == nil && len(doc) > 0
}

// FormatFromExtension maps a settings file name to its content type. Unknown
// extensions yield an empty string.
func FormatFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl", ".tf", ".tfvars":
		return ContentTypeHCL
	case ".json":
		return ContentTypeJSON
	case ".yaml", ".yml":
		return ContentTypeYAML
	default:
		return ""
	}
}
