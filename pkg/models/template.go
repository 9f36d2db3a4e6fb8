package models

import "time"

// TemplateType classifies what HR process a template drives.
type TemplateType string

const (
	TemplateTypeOnboarding  TemplateType = "onboarding"
	TemplateTypeOffboarding TemplateType = "offboarding"
	TemplateTypePromotion   TemplateType = "promotion"
	TemplateTypeCustom      TemplateType = "custom"
)

// WorkflowTemplate is the unit the editor loads and hands back on save.
type WorkflowTemplate struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"                  validate:"required,min=3"`
	Description string          `json:"description,omitempty"`
	Type        TemplateType    `json:"type"                  validate:"required,oneof=onboarding offboarding promotion custom"`
	Nodes       []*WorkflowNode `json:"nodes"                 validate:"dive"`
	Edges       []*WorkflowEdge `json:"edges"                 validate:"dive"`
	Version     int             `json:"version"               validate:"min=0"` // Bumped on every save
	IsActive    bool            `json:"is_active"`
	Owner       string          `json:"owner,omitempty"`
	UpdatedBy   string          `json:"updated_by,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the template graph. Metadata is copied one level deep.
func (t *WorkflowTemplate) Clone() *WorkflowTemplate {
	if t == nil {
		return nil
	}

	clone := *t
	clone.Nodes = CloneNodes(t.Nodes)
	clone.Edges = CloneEdges(t.Edges)

	if t.Metadata != nil {
		clone.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}

// CloneNodes deep-copies a node list.
func CloneNodes(nodes []*WorkflowNode) []*WorkflowNode {
	out := make([]*WorkflowNode, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, node.Clone())
	}

	return out
}

// CloneEdges copies an edge list.
func CloneEdges(edges []*WorkflowEdge) []*WorkflowEdge {
	out := make([]*WorkflowEdge, 0, len(edges))
	for _, edge := range edges {
		out = append(out, edge.Clone())
	}

	return out
}
