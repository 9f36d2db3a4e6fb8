// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/flowdesk/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a task WorkflowNode with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:          uuid.New().String(),
		Type:        models.NodeTypeTask,
		Title:       "Test Task",
		Description: "A task for testing",
		Position:    models.Position{X: 100, Y: 200},
		Config: &models.TaskConfig{
			Assignment: models.Assignment{Assignee: "test-user", DeadlineDays: 3},
		},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.ID = id
	}
}

// WithTitle sets the node title.
func WithTitle(title string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Title = title
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// WithType sets the node type and resets its config to the type's defaults.
func WithType(nodeType models.NodeType) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Type = nodeType

		config, err := models.DefaultConfig(nodeType)
		if err == nil {
			n.Config = config
		}
	}
}

// WithConfig sets the node configuration.
func WithConfig(config models.NodeConfig) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Config = config
	}
}

// CreateTestEdge creates a test edge between two nodes.
func CreateTestEdge(sourceNodeID, targetNodeID string) *models.WorkflowEdge {
	return &models.WorkflowEdge{
		ID:     uuid.New().String(),
		Source: sourceNodeID,
		Target: targetNodeID,
	}
}

// CreateTestTemplate creates an onboarding template start → review → end.
func CreateTestTemplate(overrides ...func(*models.WorkflowTemplate)) *models.WorkflowTemplate {
	created := time.Date(2026, 1, 5, 8, 30, 0, 0, time.UTC)

	template := &models.WorkflowTemplate{
		ID:          uuid.New().String(),
		Name:        "Test Onboarding",
		Description: "A template for testing",
		Type:        models.TemplateTypeOnboarding,
		Nodes: []*models.WorkflowNode{
			CreateTestNode(WithID("start"), WithType(models.NodeTypeStart), WithTitle("Start"), WithPosition(50, 50)),
			CreateTestNode(WithID("review"), WithType(models.NodeTypeApproval), WithTitle("Manager review"), WithPosition(300, 50)),
			CreateTestNode(WithID("end"), WithType(models.NodeTypeEnd), WithTitle("Done"), WithPosition(550, 50)),
		},
		Edges: []*models.WorkflowEdge{
			{ID: "start-review", Source: "start", Target: "review"},
			{ID: "review-end", Source: "review", Target: "end", Label: "approved"},
		},
		Version:   1,
		IsActive:  true,
		Owner:     "test-user",
		Metadata:  map[string]any{"category": "test"},
		CreatedAt: created,
		UpdatedAt: created,
	}

	for _, override := range overrides {
		override(template)
	}

	return template
}
