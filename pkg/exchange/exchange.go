// Package exchange reads and writes workflow templates as portable JSON or
// YAML documents.
package exchange

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/flowdesk/pkg/models"
	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/xeipuuv/gojsonschema"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	ErrUnknownFormat   = errors.New("unknown exchange format")
	ErrInvalidDocument = errors.New("invalid template document")
)

// ParseFormat accepts json, yaml or yml, case-insensitively. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}

	return "application/json"
}

// Extension is the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Encode serialises template in the given format.
func Encode(template *models.WorkflowTemplate, format Format) ([]byte, error) {
	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template: %w", err)
	}

	switch format {
	case FormatJSON:
		return data, nil
	case FormatYAML:
		out, err := yaml.JSONToYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to convert template to yaml: %w", err)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Decode parses a template document. The document is checked against the
// template schema before it is unmarshalled.
func Decode(data []byte, format Format) (*models.WorkflowTemplate, error) {
	var err error

	switch format {
	case FormatJSON:
	case FormatYAML:
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := Validate(data); err != nil {
		return nil, err
	}

	var template models.WorkflowTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return &template, nil
}

// Validate checks a JSON document against the template schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
	}

	return nil
}
