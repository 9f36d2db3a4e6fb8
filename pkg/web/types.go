// Package web provides HTTP request and response types for the template and editor session API.
package web

import (
	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/services"
)

// CreateTemplateRequest represents the request body for creating a new template.
type CreateTemplateRequest struct {
	ID          string                 `json:"id,omitempty"`
	Name        string                 `json:"name"               validate:"required,min=3"`
	Description string                 `json:"description"`
	Type        models.TemplateType    `json:"type"               validate:"required,oneof=onboarding offboarding promotion custom"`
	Nodes       []*models.WorkflowNode `json:"nodes"`
	Edges       []*models.WorkflowEdge `json:"edges"`
	IsActive    *bool                  `json:"is_active,omitempty"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
}

// Template converts the request into a template ready for the service.
func (r CreateTemplateRequest) Template() *models.WorkflowTemplate {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return &models.WorkflowTemplate{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
		IsActive:    active,
		Metadata:    r.Metadata,
	}
}

// OpenSessionRequest represents the request body for opening an editor session.
type OpenSessionRequest struct {
	TemplateID   string              `json:"template_id"`
	Name         string              `json:"name"`
	Type         models.TemplateType `json:"type"`
	ReadOnly     bool                `json:"read_only"`
	EdgePolicies []string            `json:"edge_policies"`
}

// SessionResponse is returned by every session endpoint: the session and
// the editor state after the call.
type SessionResponse struct {
	Session *services.SessionInfo `json:"session"`
	State   editor.State          `json:"state"`
}

type AddNodeRequest struct {
	Type models.NodeType `json:"type" validate:"required"`
	X    float64         `json:"x"`
	Y    float64         `json:"y"`
}

// UpdateNodeRequest patches a node. Position is applied without a history
// entry, as a drag step would be.
type UpdateNodeRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Position    *models.Position `json:"position,omitempty"`
}

type AddEdgeRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Label  string `json:"label"`
}

type PointerRequest struct {
	NodeID string  `json:"node_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type DropRequest struct {
	Type    models.NodeType `json:"type"    validate:"required"`
	ClientX float64         `json:"client_x"`
	ClientY float64         `json:"client_y"`
	Canvas  *editor.Rect    `json:"canvas,omitempty"`
}

// SelectRequest selects a node or an edge; exactly one must be set.
type SelectRequest struct {
	NodeID string `json:"node_id" validate:"required_without=EdgeID,excluded_with=EdgeID"`
	EdgeID string `json:"edge_id" validate:"required_without=NodeID"`
}

// ZoomRequest either sets an absolute zoom or applies an action.
type ZoomRequest struct {
	Zoom   *float64 `json:"zoom,omitempty"`
	Action string   `json:"action,omitempty" validate:"required_without=Zoom,omitempty,oneof=in out reset"`
}

type CommitFieldRequest struct {
	Key   string `json:"key"   validate:"required"`
	Value any    `json:"value"`
}

type SaveResponse struct {
	Saved    bool                     `json:"saved"`
	Template *models.WorkflowTemplate `json:"template,omitempty"`
}
