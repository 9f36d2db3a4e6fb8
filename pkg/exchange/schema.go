package exchange

import (
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var schemaLoader = gojsonschema.NewGoLoader(templateSchema())

// Schema returns the JSON Schema template documents are validated against.
func Schema() map[string]any {
	return templateSchema()
}

func templateSchema() map[string]any {
	nodeTypes := make([]any, 0, len(models.NodeTypes()))
	for _, nodeType := range models.NodeTypes() {
		nodeTypes = append(nodeTypes, string(nodeType))
	}

	dataSources := []any{}
	for _, entry := range models.DataSourceCatalog() {
		dataSources = append(dataSources, string(entry.ID))
	}

	position := map[string]any{
		"type":     "object",
		"required": []any{"x", "y"},
		"properties": map[string]any{
			"x": map[string]any{"type": "number"},
			"y": map[string]any{"type": "number"},
		},
	}

	config := map[string]any{
		"type": []any{"object", "null"},
		"properties": map[string]any{
			"data_sources": map[string]any{
				"type":  []any{"array", "null"},
				"items": map[string]any{"enum": dataSources},
			},
			"auto_advance":      map[string]any{"type": "boolean"},
			"parallel_branches": map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": "string"}},
			"deadline_days":     map[string]any{"type": "integer", "minimum": 0},
			"approval_required": map[string]any{"type": "boolean"},
			"assignee":          map[string]any{"type": "string"},
			"role":              map[string]any{"type": "string"},
			"condition":         map[string]any{"type": "string"},
			"message":           map[string]any{"type": "string"},
		},
	}

	node := map[string]any{
		"type":     "object",
		"required": []any{"id", "type", "position"},
		"properties": map[string]any{
			"id":          map[string]any{"type": "string", "minLength": 1},
			"type":        map[string]any{"enum": nodeTypes},
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"position":    position,
			"config":      config,
			"status": map[string]any{
				"enum": []any{"pending", "in_progress", "completed", "rejected"},
			},
		},
	}

	edge := map[string]any{
		"type":     "object",
		"required": []any{"id", "source", "target"},
		"properties": map[string]any{
			"id":        map[string]any{"type": "string", "minLength": 1},
			"source":    map[string]any{"type": "string", "minLength": 1},
			"target":    map[string]any{"type": "string", "minLength": 1},
			"label":     map[string]any{"type": "string"},
			"condition": map[string]any{"type": "string"},
		},
	}

	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"title":    "WorkflowTemplate",
		"type":     "object",
		"required": []any{"name", "type"},
		"properties": map[string]any{
			"id":          map[string]any{"type": "string"},
			"name":        map[string]any{"type": "string", "minLength": 3},
			"description": map[string]any{"type": "string"},
			"type": map[string]any{
				"enum": []any{
					string(models.TemplateTypeOnboarding),
					string(models.TemplateTypeOffboarding),
					string(models.TemplateTypePromotion),
					string(models.TemplateTypeCustom),
				},
			},
			"nodes":      map[string]any{"type": []any{"array", "null"}, "items": node},
			"edges":      map[string]any{"type": []any{"array", "null"}, "items": edge},
			"version":    map[string]any{"type": "integer", "minimum": 0},
			"is_active":  map[string]any{"type": "boolean"},
			"owner":      map[string]any{"type": "string"},
			"updated_by": map[string]any{"type": "string"},
			"metadata":   map[string]any{"type": []any{"object", "null"}},
			"created_at": map[string]any{"type": "string"},
			"updated_at": map[string]any{"type": "string"},
		},
	}
}
